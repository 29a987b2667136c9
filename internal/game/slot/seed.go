package slot

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"io"

	"golang.org/x/crypto/blake2b"
)

// Seed 旋转种子及其承诺哈希
type Seed struct {
	Value      string `json:"value"`
	Commitment string `json:"commitment"`
}

// SeedSource 在旋转请求时生成不可预测的种子。
// 熵来自 crypto/rand，经服务端密钥与 (会话, 序号) 做 keyed blake2b 混合。
type SeedSource struct {
	key    []byte
	reader io.Reader
}

// NewSeedSource 创建种子源，key 超过64字节时先做摘要
func NewSeedSource(key string) *SeedSource {
	k := []byte(key)
	if len(k) > blake2b.Size {
		sum := blake2b.Sum512(k)
		k = sum[:]
	}
	return &SeedSource{key: k, reader: rand.Reader}
}

// Next 生成下一颗种子
func (s *SeedSource) Next(sessionID string, spinIndex int64) (Seed, error) {
	entropy := make([]byte, 32)
	if _, err := io.ReadFull(s.reader, entropy); err != nil {
		return Seed{}, fmt.Errorf("读取随机熵失败: %w", err)
	}

	h, err := blake2b.New256(s.key)
	if err != nil {
		return Seed{}, fmt.Errorf("初始化种子哈希失败: %w", err)
	}
	h.Write(entropy)
	h.Write([]byte(sessionID))
	var idx [8]byte
	binary.BigEndian.PutUint64(idx[:], uint64(spinIndex))
	h.Write(idx[:])

	value := hex.EncodeToString(h.Sum(nil))
	return Seed{Value: value, Commitment: CommitSeed(value)}, nil
}

// CommitSeed 计算种子承诺：blake2b-256(seed)
func CommitSeed(seed string) string {
	sum := blake2b.Sum256([]byte(seed))
	return hex.EncodeToString(sum[:])
}

// VerifyCommitment 校验种子与承诺是否匹配
func VerifyCommitment(seed, commitment string) bool {
	return subtle.ConstantTimeCompare([]byte(CommitSeed(seed)), []byte(commitment)) == 1
}

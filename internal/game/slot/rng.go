package slot

import (
	"hash/fnv"
)

// Rng 返回 [0,1) 区间的确定性随机数
type Rng func() float64

const (
	rngFallbackState = 0x9E3779B97F4A7C15
	rngMultiplier    = 0x2545F4914F6CDD1D
)

// MakeRng 由种子派生确定性随机流：相同种子产生相同的无限序列。
// 空种子属于编程错误，直接panic。
func MakeRng(seed string) Rng {
	if seed == "" {
		panic("slot: empty rng seed")
	}

	h := fnv.New64a()
	_, _ = h.Write([]byte(seed))
	state := mix64(h.Sum64())
	if state == 0 {
		state = rngFallbackState
	}

	return func() float64 {
		// xorshift64*
		state ^= state >> 12
		state ^= state << 25
		state ^= state >> 27
		return float64((state*rngMultiplier)>>11) / (1 << 53)
	}
}

// mix64 splitmix64 终结函数，打散相近种子的哈希值
func mix64(z uint64) uint64 {
	z += 0x9E3779B97F4A7C15
	z = (z ^ (z >> 30)) * 0xBF58476D1CE4E5B9
	z = (z ^ (z >> 27)) * 0x94D049BB133111EB
	return z ^ (z >> 31)
}

// intn 返回 [0,n) 的整数
func intn(rng Rng, n int) int {
	if n <= 1 {
		return 0
	}
	v := int(rng() * float64(n))
	if v >= n {
		v = n - 1
	}
	return v
}

// pickWeighted 累计权重抽取：r∈[0,total)，累加至超过r为止，同权重时先声明者优先
func pickWeighted(weights []int, total int, rng Rng) int {
	r := intn(rng, total)
	cumulative := 0
	for i, w := range weights {
		cumulative += w
		if cumulative > r {
			return i
		}
	}
	return len(weights) - 1
}

func pickValue(values []WeightedValue, rng Rng) float64 {
	if len(values) == 0 {
		return 1
	}
	weights := make([]int, len(values))
	total := 0
	for i, v := range values {
		weights[i] = v.Weight
		total += v.Weight
	}
	return values[pickWeighted(weights, total, rng)].Value
}

package repository

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/suite"
	"github.com/wfunc/spin-engine/internal/models"
	"gorm.io/gorm"
)

// SpinLedgerTestSuite 旋转账本测试套件
type SpinLedgerTestSuite struct {
	suite.Suite
	db      *gorm.DB
	manager *Manager
}

func (suite *SpinLedgerTestSuite) SetupTest() {
	suite.db = SetupTestDB()
	suite.manager = NewManager(suite.db)
	SeedPlayer(suite.T(), suite.db, "p1", "s1", "classic_fruit", 1000)
}

func (suite *SpinLedgerTestSuite) TearDownTest() {
	CleanupTestDB(suite.db)
}

// TestCommit_AssignsSequentialIndex 自动分配从1开始的连续序号
func (suite *SpinLedgerTestSuite) TestCommit_AssignsSequentialIndex() {
	ctx := context.Background()
	ledger := suite.manager.Ledger()

	first, err := ledger.Commit(ctx, CreateTestCommit("s1", "p1", "classic_fruit", "spin-1", 100, 0))
	suite.Require().NoError(err)
	assert.Equal(suite.T(), int64(1), first.Record.SpinIndex)
	assert.Equal(suite.T(), int64(900), first.Balance)
	assert.Equal(suite.T(), int64(900), first.Record.BalanceAfter)

	second, err := ledger.Commit(ctx, CreateTestCommit("s1", "p1", "classic_fruit", "spin-2", 100, 250))
	suite.Require().NoError(err)
	assert.Equal(suite.T(), int64(2), second.Record.SpinIndex)
	assert.Equal(suite.T(), int64(1050), second.Balance)
}

// TestCommit_ExplicitIndex 显式序号必须等于下一个序号
func (suite *SpinLedgerTestSuite) TestCommit_ExplicitIndex() {
	ctx := context.Background()
	ledger := suite.manager.Ledger()

	c := CreateTestCommit("s1", "p1", "classic_fruit", "spin-1", 10, 0)
	c.SpinIndex = 1
	_, err := ledger.Commit(ctx, c)
	suite.Require().NoError(err)

	skip := CreateTestCommit("s1", "p1", "classic_fruit", "spin-3", 10, 0)
	skip.SpinIndex = 3
	_, err = ledger.Commit(ctx, skip)
	assert.ErrorIs(suite.T(), err, ErrSpinIndexMismatch)

	again := CreateTestCommit("s1", "p1", "classic_fruit", "spin-1b", 10, 0)
	again.SpinIndex = 1
	_, err = ledger.Commit(ctx, again)
	assert.ErrorIs(suite.T(), err, ErrSpinIndexMismatch)
}

// TestCommit_DuplicateSpinID 旋转ID重复时整体回滚
func (suite *SpinLedgerTestSuite) TestCommit_DuplicateSpinID() {
	ctx := context.Background()
	ledger := suite.manager.Ledger()

	_, err := ledger.Commit(ctx, CreateTestCommit("s1", "p1", "classic_fruit", "same", 10, 0))
	suite.Require().NoError(err)
	_, err = ledger.Commit(ctx, CreateTestCommit("s1", "p1", "classic_fruit", "same", 10, 0))
	assert.ErrorIs(suite.T(), err, ErrDuplicate)

	wallet, err := suite.manager.Wallet().FindByPlayerID(ctx, "p1")
	suite.Require().NoError(err)
	assert.Equal(suite.T(), int64(990), wallet.Balance)
}

// TestCommit_InsufficientBalanceRollsBack 余额不足不写账本不写流水
func (suite *SpinLedgerTestSuite) TestCommit_InsufficientBalanceRollsBack() {
	ctx := context.Background()

	_, err := suite.manager.Ledger().Commit(ctx, CreateTestCommit("s1", "p1", "classic_fruit", "big", 5000, 0))
	assert.ErrorIs(suite.T(), err, ErrInsufficientBalance)

	next, err := suite.manager.SpinRecord().NextSpinIndex(ctx, "s1")
	suite.Require().NoError(err)
	assert.Equal(suite.T(), int64(1), next)

	var count int64
	suite.db.Model(&models.Transaction{}).Where("type = ?", models.TxTypeBet).Count(&count)
	assert.Zero(suite.T(), count)

	session, err := suite.manager.GameSession().FindBySessionID(ctx, "s1")
	suite.Require().NoError(err)
	assert.Zero(suite.T(), session.SpinCount)
}

// TestCommit_WritesTransactionsAndSessionStats 写入投注/派彩流水和会话统计
func (suite *SpinLedgerTestSuite) TestCommit_WritesTransactionsAndSessionStats() {
	ctx := context.Background()
	ledger := suite.manager.Ledger()

	_, err := ledger.Commit(ctx, CreateTestCommit("s1", "p1", "classic_fruit", "a", 100, 0))
	suite.Require().NoError(err)
	_, err = ledger.Commit(ctx, CreateTestCommit("s1", "p1", "classic_fruit", "b", 100, 400))
	suite.Require().NoError(err)

	var bets, wins []models.Transaction
	suite.db.Where("type = ?", models.TxTypeBet).Order("id").Find(&bets)
	suite.db.Where("type = ?", models.TxTypeWin).Order("id").Find(&wins)
	suite.Require().Len(bets, 2)
	suite.Require().Len(wins, 1)
	assert.Equal(suite.T(), "BET-b", bets[1].OrderNo)
	assert.Equal(suite.T(), int64(900), bets[1].BeforeBalance)
	assert.Equal(suite.T(), int64(800), bets[1].AfterBalance)
	assert.Equal(suite.T(), int64(800), wins[0].BeforeBalance)
	assert.Equal(suite.T(), int64(1200), wins[0].AfterBalance)

	session, err := suite.manager.GameSession().FindBySessionID(ctx, "s1")
	suite.Require().NoError(err)
	assert.Equal(suite.T(), int64(2), session.SpinCount)
	assert.Equal(suite.T(), int64(200), session.TotalBet)
	assert.Equal(suite.T(), int64(400), session.TotalWin)
	assert.Equal(suite.T(), int64(400), session.PeakWin)
}

// TestCommit_UnknownSession 会话不存在时回滚
func (suite *SpinLedgerTestSuite) TestCommit_UnknownSession() {
	ctx := context.Background()
	_, err := suite.manager.Ledger().Commit(ctx, CreateTestCommit("nope", "p1", "classic_fruit", "x", 10, 0))
	assert.ErrorIs(suite.T(), err, ErrNotFound)

	wallet, err := suite.manager.Wallet().FindByPlayerID(ctx, "p1")
	suite.Require().NoError(err)
	assert.Equal(suite.T(), int64(1000), wallet.Balance)
}

func TestSpinLedgerSuite(t *testing.T) {
	suite.Run(t, new(SpinLedgerTestSuite))
}

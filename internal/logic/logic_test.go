package logic

import (
	"math/big"
	"testing"
	"time"

	"github.com/blues/ffb/internal/database"
	"github.com/blues/ffb/internal/model"
	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// 测试用地址
const (
	ownerAddr   = "0x1000000000000000000000000000000000000001"
	ffWallet    = "0x2000000000000000000000000000000000000002"
	creatorAddr = "0x3000000000000000000000000000000000000003"
	projWallet  = "0x4000000000000000000000000000000000000004"
	aliceAddr   = "0x5000000000000000000000000000000000000005"
	bobAddr     = "0x6000000000000000000000000000000000000006"
	otherWallet = "0x7000000000000000000000000000000000000007"
)

const defaultFeePerMille = 50

type testEnv struct {
	t           *testing.T
	db          *gorm.DB
	token       *TokenLogic
	crowdsale   *CrowdsaleLogic
	builder     *BuilderLogic
	account     *AccountLogic
	builderAddr string
	clock       time.Time
}

func newTestDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))
	return db
}

func newTestEnv(t *testing.T) *testEnv {
	db := newTestDB(t)
	token := NewTokenLogic(db)
	crowdsale := NewCrowdsaleLogic(db, token)
	builder := NewBuilderLogic(db, token, crowdsale)

	env := &testEnv{
		t:         t,
		db:        db,
		token:     token,
		crowdsale: crowdsale,
		builder:   builder,
		account:   NewAccountLogic(db),
		clock:     time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
	}
	crowdsale.now = func() time.Time { return env.clock }
	builder.now = func() time.Time { return env.clock }

	require.NoError(t, builder.Init(ownerAddr, ffWallet, defaultFeePerMille))

	b, err := builder.GetBuilder()
	require.NoError(t, err)
	env.builderAddr = b.Address

	return env
}

func (e *testEnv) advance(d time.Duration) {
	e.clock = e.clock.Add(d)
}

func (e *testEnv) fund(address string, amount int64) {
	require.NoError(e.t, e.account.Deposit(address, big.NewInt(amount)))
}

func (e *testEnv) balance(address string) int64 {
	b, err := e.account.Balance(address)
	require.NoError(e.t, err)
	return b.Int64()
}

func (e *testEnv) tokenBalance(cs *model.CrowdsaleModel, address string) int64 {
	b, err := e.token.BalanceOf(e.db, cs.TokenId, address)
	require.NoError(e.t, err)
	return b.Int64()
}

func defaultParams(e *testEnv) StartCrowdsaleParams {
	return StartCrowdsaleParams{
		Name:        "Friends Token",
		Symbol:      "FRND",
		Decimals:    18,
		Cap:         big.NewInt(10000),
		Goal:        big.NewInt(5000),
		OpeningTime: e.clock.Add(time.Hour),
		ClosingTime: e.clock.Add(time.Hour + 10*24*time.Hour),
		Rate:        10,
		Wallet:      projWallet,
		Info:        `{"title":"test"}`,
	}
}

// startDefault 启动一轮默认参数的众筹并进入购买窗口
func (e *testEnv) startDefault() *model.CrowdsaleModel {
	cs, err := e.builder.StartCrowdsale(creatorAddr, defaultParams(e))
	require.NoError(e.t, err)
	e.advance(2 * time.Hour)
	return cs
}

func (e *testEnv) reload(cs *model.CrowdsaleModel) *model.CrowdsaleModel {
	fresh, err := e.crowdsale.GetCrowdsaleById(cs.Id)
	require.NoError(e.t, err)
	return fresh
}

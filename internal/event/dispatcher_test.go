package event

import (
	"testing"
	"time"

	"github.com/blues/ffb/internal/database"
	"github.com/blues/ffb/internal/logic"
	"github.com/blues/ffb/internal/model"
	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

const (
	csAddr     = "0x1100000000000000000000000000000000000011"
	tokenAddr  = "0x2200000000000000000000000000000000000022"
	buyerAddr  = "0x3300000000000000000000000000000000000033"
	walletAddr = "0x4400000000000000000000000000000000000044"
)

func newTestDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))
	return db
}

func newTestDispatcher(t *testing.T, db *gorm.DB) *Dispatcher {
	tokenLogic := logic.NewTokenLogic(db)
	crowdsaleLogic := logic.NewCrowdsaleLogic(db, tokenLogic)
	d, err := NewDispatcher(db, crowdsaleLogic, tokenLogic, 4, time.Minute)
	require.NoError(t, err)
	t.Cleanup(d.Stop)
	return d
}

func seedCrowdsale(t *testing.T, db *gorm.DB, weiRaised int64) *model.CrowdsaleModel {
	token := model.TokenModel{Address: tokenAddr, Name: "Test", Symbol: "TST", Decimals: 18, Owner: csAddr}
	require.NoError(t, db.Create(&token).Error)

	cs := model.CrowdsaleModel{
		Address:              csAddr,
		Owner:                walletAddr,
		Cap:                  model.NewBigInt(10000),
		Goal:                 model.NewBigInt(5000),
		Rate:                 10,
		Wallet:               walletAddr,
		TokenId:              token.Id,
		OpeningTime:          time.Now().Add(-time.Hour),
		ClosingTime:          time.Now().Add(time.Hour),
		Round:                1,
		FriendsFingersWallet: walletAddr,
		State:                model.CrowdsaleStateActive,
		Creator:              buyerAddr,
		WeiRaised:            model.NewBigInt(weiRaised),
	}
	require.NoError(t, db.Create(&cs).Error)
	return &cs
}

func seedEvent(t *testing.T, db *gorm.DB, eventType, txHash, data string) *model.EventModel {
	e := model.EventModel{
		ContractAddress: csAddr,
		EventType:       eventType,
		TxHash:          txHash,
		Data:            data,
	}
	require.NoError(t, db.Create(&e).Error)
	return &e
}

func TestDispatchPurchaseEvent(t *testing.T) {
	db := newTestDB(t)
	cs := seedCrowdsale(t, db, 100)
	require.NoError(t, db.Create(&model.DepositModel{
		CrowdsaleId: cs.Id,
		Address:     buyerAddr,
		Amount:      model.NewBigInt(100),
	}).Error)

	seedEvent(t, db, model.EventTypeTokenPurchase, "0x01",
		`{"purchaser":"`+buyerAddr+`","value":"100"}`)

	d := newTestDispatcher(t, db)
	require.NoError(t, d.dispatchPending())

	var e model.EventModel
	require.NoError(t, db.First(&e).Error)
	assert.True(t, e.Processed)
}

func TestDispatchPurchaseEventEscrowMismatch(t *testing.T) {
	db := newTestDB(t)
	cs := seedCrowdsale(t, db, 200)
	require.NoError(t, db.Create(&model.DepositModel{
		CrowdsaleId: cs.Id,
		Address:     buyerAddr,
		Amount:      model.NewBigInt(100),
	}).Error)

	seedEvent(t, db, model.EventTypeTokenPurchase, "0x02",
		`{"purchaser":"`+buyerAddr+`","value":"200"}`)

	d := newTestDispatcher(t, db)
	require.NoError(t, d.dispatchPending())

	// 对账失败的事件保持未处理，等待人工排查
	var e model.EventModel
	require.NoError(t, db.First(&e).Error)
	assert.False(t, e.Processed)
}

func TestDispatchStartedEvent(t *testing.T) {
	db := newTestDB(t)
	seedCrowdsale(t, db, 0)
	seedEvent(t, db, model.EventTypeCrowdsaleStarted, "0x03",
		`{"ffCrowdsale":"`+csAddr+`"}`)

	d := newTestDispatcher(t, db)
	require.NoError(t, d.dispatchPending())

	var e model.EventModel
	require.NoError(t, db.First(&e).Error)
	assert.True(t, e.Processed)
}

func TestDispatchMalformedPayload(t *testing.T) {
	db := newTestDB(t)
	seedCrowdsale(t, db, 0)
	seedEvent(t, db, model.EventTypeTokenPurchase, "0x05", `{not-json`)

	d := newTestDispatcher(t, db)
	require.NoError(t, d.dispatchPending())

	// 无法解析的载荷标记后不再轮询
	var e model.EventModel
	require.NoError(t, db.First(&e).Error)
	assert.True(t, e.Processed)
}

func TestDispatchUnknownEventType(t *testing.T) {
	db := newTestDB(t)
	seedCrowdsale(t, db, 0)
	seedEvent(t, db, "SomethingElse", "0x04", `{}`)

	d := newTestDispatcher(t, db)
	require.NoError(t, d.dispatchPending())

	// 未知类型直接标记，避免阻塞队列
	var e model.EventModel
	require.NoError(t, db.First(&e).Error)
	assert.True(t, e.Processed)
}

package logic

import (
	"math/big"
	"testing"
	"time"

	"github.com/blues/ffb/internal/chain"
	"github.com/blues/ffb/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuyTokens(t *testing.T) {
	env := newTestEnv(t)
	cs := env.startDefault()
	env.fund(aliceAddr, 10000)

	err := env.crowdsale.BuyTokens(aliceAddr, aliceAddr, cs.Address, big.NewInt(6000))
	require.NoError(t, err)

	fresh := env.reload(cs)
	assert.Equal(t, int64(6000), fresh.WeiRaised.Int64())
	assert.Equal(t, int64(60000), env.tokenBalance(cs, aliceAddr))
	assert.Equal(t, int64(4000), env.balance(aliceAddr))
	assert.Equal(t, int64(6000), env.balance(cs.Address))

	deposits, err := env.crowdsale.GetDeposits(cs.Address)
	require.NoError(t, err)
	require.Len(t, deposits, 1)
	assert.Equal(t, int64(6000), deposits[0].Amount.Int64())
}

func TestBuyTokensForBeneficiary(t *testing.T) {
	env := newTestEnv(t)
	cs := env.startDefault()
	env.fund(aliceAddr, 1000)

	// alice出资，代币归bob，退款权属于alice
	require.NoError(t, env.crowdsale.BuyTokens(aliceAddr, bobAddr, cs.Address, big.NewInt(1000)))

	assert.Equal(t, int64(10000), env.tokenBalance(cs, bobAddr))
	assert.Equal(t, int64(0), env.tokenBalance(cs, aliceAddr))

	deposits, err := env.crowdsale.GetDeposits(cs.Address)
	require.NoError(t, err)
	require.Len(t, deposits, 1)
	assert.Equal(t, chain.Normalize(aliceAddr), deposits[0].Address)
}

func TestBuyTokensGuards(t *testing.T) {
	env := newTestEnv(t)
	params := defaultParams(env)
	cs, err := env.builder.StartCrowdsale(creatorAddr, params)
	require.NoError(t, err)
	env.fund(aliceAddr, 50000)

	// 窗口未开始
	err = env.crowdsale.BuyTokens(aliceAddr, aliceAddr, cs.Address, big.NewInt(100))
	assert.ErrorIs(t, err, ErrTimeWindow)

	env.advance(2 * time.Hour)

	// 零金额与无效受益人
	err = env.crowdsale.BuyTokens(aliceAddr, aliceAddr, cs.Address, big.NewInt(0))
	assert.ErrorIs(t, err, ErrInvalidParameter)
	err = env.crowdsale.BuyTokens(aliceAddr, chain.ZeroAddress, cs.Address, big.NewInt(100))
	assert.ErrorIs(t, err, ErrInvalidParameter)

	// 超出上限
	err = env.crowdsale.BuyTokens(aliceAddr, aliceAddr, cs.Address, big.NewInt(10001))
	assert.ErrorIs(t, err, ErrInvalidParameter)

	// 余额不足
	err = env.crowdsale.BuyTokens(bobAddr, bobAddr, cs.Address, big.NewInt(100))
	assert.ErrorIs(t, err, ErrInsufficientBalance)

	// 暂停
	require.NoError(t, env.crowdsale.Pause(env.builderAddr, cs.Address))
	err = env.crowdsale.BuyTokens(aliceAddr, aliceAddr, cs.Address, big.NewInt(100))
	assert.ErrorIs(t, err, ErrPaused)
	require.NoError(t, env.crowdsale.Unpause(env.builderAddr, cs.Address))

	// 窗口结束后
	env.advance(11 * 24 * time.Hour)
	err = env.crowdsale.BuyTokens(aliceAddr, aliceAddr, cs.Address, big.NewInt(100))
	assert.ErrorIs(t, err, ErrTimeWindow)
}

func TestBuyTokensFailureRollsBack(t *testing.T) {
	env := newTestEnv(t)
	cs := env.startDefault()
	env.fund(aliceAddr, 500)

	// 金额超过余额，购买整体回滚
	err := env.crowdsale.BuyTokens(aliceAddr, aliceAddr, cs.Address, big.NewInt(600))
	require.Error(t, err)

	fresh := env.reload(cs)
	assert.Equal(t, int64(0), fresh.WeiRaised.Int64())
	assert.Equal(t, int64(500), env.balance(aliceAddr))
	assert.Equal(t, int64(0), env.tokenBalance(cs, aliceAddr))
}

func TestHasClosed(t *testing.T) {
	env := newTestEnv(t)
	cs := env.startDefault()
	env.fund(aliceAddr, 10000)

	closed, err := env.crowdsale.HasClosed(cs.Address)
	require.NoError(t, err)
	assert.False(t, closed)

	// 达到上限即结束，时间窗口未过也一样
	require.NoError(t, env.crowdsale.BuyTokens(aliceAddr, aliceAddr, cs.Address, big.NewInt(10000)))
	closed, err = env.crowdsale.HasClosed(cs.Address)
	require.NoError(t, err)
	assert.True(t, closed)
}

func TestFinalizeGoalReached(t *testing.T) {
	env := newTestEnv(t)
	cs := env.startDefault()
	env.fund(aliceAddr, 6000)
	require.NoError(t, env.crowdsale.BuyTokens(aliceAddr, aliceAddr, cs.Address, big.NewInt(6000)))

	// 未结束不能结算
	err := env.crowdsale.Finalize(env.builderAddr, cs.Address)
	assert.ErrorIs(t, err, ErrTimeWindow)

	env.advance(11 * 24 * time.Hour)

	// 非所有者不能结算
	err = env.crowdsale.Finalize(aliceAddr, cs.Address)
	assert.ErrorIs(t, err, ErrNotAuthorized)

	require.NoError(t, env.crowdsale.Finalize(env.builderAddr, cs.Address))

	fresh := env.reload(cs)
	assert.Equal(t, model.CrowdsaleStateClosed, fresh.State)

	// 资金分账: 平台费 6000*50/1000=300，余款5700
	assert.Equal(t, int64(300), env.balance(ffWallet))
	assert.Equal(t, int64(5700), env.balance(projWallet))
	assert.Equal(t, int64(0), env.balance(cs.Address))

	// 代币侧平台奖励: 10000*10*50/1000=5000
	assert.Equal(t, int64(5000), env.tokenBalance(cs, env.builderAddr))

	// 重复结算失败
	err = env.crowdsale.Finalize(env.builderAddr, cs.Address)
	assert.ErrorIs(t, err, ErrInvalidState)
}

func TestFinalizeGoalNotReached(t *testing.T) {
	env := newTestEnv(t)
	cs := env.startDefault()
	env.fund(aliceAddr, 1000)
	require.NoError(t, env.crowdsale.BuyTokens(aliceAddr, aliceAddr, cs.Address, big.NewInt(1000)))

	env.advance(11 * 24 * time.Hour)
	require.NoError(t, env.crowdsale.Finalize(env.builderAddr, cs.Address))

	fresh := env.reload(cs)
	assert.Equal(t, model.CrowdsaleStateRefunding, fresh.State)

	// 资金不动，等待退款
	assert.Equal(t, int64(1000), env.balance(cs.Address))
	assert.Equal(t, int64(0), env.balance(ffWallet))
	assert.Equal(t, int64(0), env.balance(projWallet))
}

func TestClaimRefund(t *testing.T) {
	env := newTestEnv(t)
	cs := env.startDefault()
	env.fund(aliceAddr, 1000)
	env.fund(bobAddr, 500)
	require.NoError(t, env.crowdsale.BuyTokens(aliceAddr, aliceAddr, cs.Address, big.NewInt(1000)))
	require.NoError(t, env.crowdsale.BuyTokens(bobAddr, bobAddr, cs.Address, big.NewInt(500)))

	// 退款未开启
	err := env.crowdsale.ClaimRefund(aliceAddr, cs.Address)
	assert.ErrorIs(t, err, ErrInvalidState)

	env.advance(11 * 24 * time.Hour)
	require.NoError(t, env.crowdsale.Finalize(env.builderAddr, cs.Address))

	require.NoError(t, env.crowdsale.ClaimRefund(aliceAddr, cs.Address))
	assert.Equal(t, int64(1000), env.balance(aliceAddr))
	assert.Equal(t, int64(500), env.balance(cs.Address))

	// 重复提取失败
	err = env.crowdsale.ClaimRefund(aliceAddr, cs.Address)
	assert.ErrorIs(t, err, ErrInvalidState)

	// 没有存款的地址不能提取
	err = env.crowdsale.ClaimRefund(otherWallet, cs.Address)
	assert.ErrorIs(t, err, ErrInvalidState)
}

func TestBlockCrowdsale(t *testing.T) {
	env := newTestEnv(t)
	cs := env.startDefault()

	err := env.crowdsale.BlockCrowdsale(aliceAddr, cs.Address)
	assert.ErrorIs(t, err, ErrNotAuthorized)

	require.NoError(t, env.crowdsale.BlockCrowdsale(env.builderAddr, cs.Address))
	fresh := env.reload(cs)
	assert.Equal(t, model.CrowdsaleStateBlocked, fresh.State)

	// 封禁后不能购买也不能再封禁
	env.fund(aliceAddr, 100)
	err = env.crowdsale.BuyTokens(aliceAddr, aliceAddr, cs.Address, big.NewInt(100))
	assert.ErrorIs(t, err, ErrInvalidState)
	err = env.crowdsale.BlockCrowdsale(env.builderAddr, cs.Address)
	assert.ErrorIs(t, err, ErrInvalidState)
}

func TestSetExpiredAndWithdraw(t *testing.T) {
	env := newTestEnv(t)
	cs := env.startDefault()
	env.fund(aliceAddr, 1000)
	require.NoError(t, env.crowdsale.BuyTokens(aliceAddr, aliceAddr, cs.Address, big.NewInt(1000)))

	env.advance(11 * 24 * time.Hour)
	require.NoError(t, env.crowdsale.Finalize(env.builderAddr, cs.Address))

	// 锁定期未满
	err := env.crowdsale.SetExpiredAndWithdraw(env.builderAddr, cs.Address)
	assert.ErrorIs(t, err, ErrTimeWindow)

	// 满一年后清扫未领取资金
	env.clock = cs.ClosingTime.Add(model.SafeWithdrawalLockout + time.Second)
	require.NoError(t, env.crowdsale.SetExpiredAndWithdraw(env.builderAddr, cs.Address))

	fresh := env.reload(cs)
	assert.Equal(t, model.CrowdsaleStateExpired, fresh.State)
	assert.Equal(t, int64(0), env.balance(cs.Address))
	assert.Equal(t, int64(1000), env.balance(ffWallet))

	// 过期后不能再退款
	err = env.crowdsale.ClaimRefund(aliceAddr, cs.Address)
	assert.ErrorIs(t, err, ErrInvalidState)
}

func TestSetExpiredRequiresRefunding(t *testing.T) {
	env := newTestEnv(t)
	cs := env.startDefault()

	env.clock = cs.ClosingTime.Add(model.SafeWithdrawalLockout + time.Second)
	err := env.crowdsale.SetExpiredAndWithdraw(env.builderAddr, cs.Address)
	assert.ErrorIs(t, err, ErrInvalidState)
}

func TestSafeWithdrawal(t *testing.T) {
	env := newTestEnv(t)
	cs := env.startDefault()
	env.fund(aliceAddr, 800)
	require.NoError(t, env.crowdsale.BuyTokens(aliceAddr, aliceAddr, cs.Address, big.NewInt(800)))

	err := env.crowdsale.SafeWithdrawal(env.builderAddr, cs.Address)
	assert.ErrorIs(t, err, ErrTimeWindow)

	// 一年差一秒仍被拒绝
	env.clock = cs.ClosingTime.Add(model.SafeWithdrawalLockout - time.Second)
	err = env.crowdsale.SafeWithdrawal(env.builderAddr, cs.Address)
	assert.ErrorIs(t, err, ErrTimeWindow)

	// 恰好满一年可提取
	env.clock = cs.ClosingTime.Add(model.SafeWithdrawalLockout)
	require.NoError(t, env.crowdsale.SafeWithdrawal(env.builderAddr, cs.Address))
	assert.Equal(t, int64(800), env.balance(ffWallet))

	// 余额为零时提取是空操作
	require.NoError(t, env.crowdsale.SafeWithdrawal(env.builderAddr, cs.Address))
	assert.Equal(t, int64(800), env.balance(ffWallet))
}

func TestSetFriendsFingersRate(t *testing.T) {
	env := newTestEnv(t)
	cs := env.startDefault()

	// 上调被拒绝
	err := env.crowdsale.SetFriendsFingersRate(env.builderAddr, cs.Address, defaultFeePerMille+1)
	assert.ErrorIs(t, err, ErrInvalidParameter)

	// 下调成功
	require.NoError(t, env.crowdsale.SetFriendsFingersRate(env.builderAddr, cs.Address, 30))
	fresh := env.reload(cs)
	assert.Equal(t, int64(30), fresh.FriendsFingersRatePerMille)

	// 负值被拒绝
	err = env.crowdsale.SetFriendsFingersRate(env.builderAddr, cs.Address, -1)
	assert.ErrorIs(t, err, ErrInvalidParameter)
}

func TestUpdateCrowdsaleInfo(t *testing.T) {
	env := newTestEnv(t)
	cs := env.startDefault()

	require.NoError(t, env.crowdsale.UpdateCrowdsaleInfo(env.builderAddr, cs.Address, `{"title":"updated"}`))
	fresh := env.reload(cs)
	assert.Equal(t, `{"title":"updated"}`, fresh.CrowdsaleInfo)

	// 时间窗口结束后冻结
	env.advance(11 * 24 * time.Hour)
	err := env.crowdsale.UpdateCrowdsaleInfo(env.builderAddr, cs.Address, `{"title":"late"}`)
	assert.ErrorIs(t, err, ErrTimeWindow)
}

func TestPauseUnpause(t *testing.T) {
	env := newTestEnv(t)
	cs := env.startDefault()

	require.NoError(t, env.crowdsale.Pause(env.builderAddr, cs.Address))

	// 无变化的切换被拒绝
	err := env.crowdsale.Pause(env.builderAddr, cs.Address)
	assert.ErrorIs(t, err, ErrInvalidState)

	// 暂停下结算也被拒绝
	env.advance(11 * 24 * time.Hour)
	err = env.crowdsale.Finalize(env.builderAddr, cs.Address)
	assert.ErrorIs(t, err, ErrPaused)

	require.NoError(t, env.crowdsale.Unpause(env.builderAddr, cs.Address))
	require.NoError(t, env.crowdsale.Finalize(env.builderAddr, cs.Address))
}

func TestPurchaseEmitsEvent(t *testing.T) {
	env := newTestEnv(t)
	cs := env.startDefault()
	env.fund(aliceAddr, 100)
	require.NoError(t, env.crowdsale.BuyTokens(aliceAddr, aliceAddr, cs.Address, big.NewInt(100)))

	events, err := NewEventLogic(env.db).GetEvents(cs.Address, model.EventTypeTokenPurchase, 10)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.False(t, events[0].Processed)
	assert.NotEmpty(t, events[0].TxHash)
}

func TestValidateCrowdsaleParams(t *testing.T) {
	env := newTestEnv(t)
	now := env.clock

	base := defaultParams(env)

	cases := []struct {
		name   string
		mutate func(*StartCrowdsaleParams)
	}{
		{"zero cap", func(p *StartCrowdsaleParams) { p.Cap = big.NewInt(0) }},
		{"goal above cap", func(p *StartCrowdsaleParams) { p.Goal = big.NewInt(10001) }},
		{"negative goal", func(p *StartCrowdsaleParams) { p.Goal = big.NewInt(-1) }},
		{"opening in past", func(p *StartCrowdsaleParams) { p.OpeningTime = now.Add(-time.Hour) }},
		{"closing before opening", func(p *StartCrowdsaleParams) { p.ClosingTime = p.OpeningTime.Add(-time.Minute) }},
		{"duration over 30 days", func(p *StartCrowdsaleParams) { p.ClosingTime = p.OpeningTime.Add(31 * 24 * time.Hour) }},
		{"zero rate", func(p *StartCrowdsaleParams) { p.Rate = 0 }},
		{"invalid wallet", func(p *StartCrowdsaleParams) { p.Wallet = "not-an-address" }},
		{"zero wallet", func(p *StartCrowdsaleParams) { p.Wallet = chain.ZeroAddress }},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			p := base
			tc.mutate(&p)
			_, err := env.builder.StartCrowdsale(creatorAddr, p)
			assert.ErrorIs(t, err, ErrInvalidParameter)
		})
	}
}

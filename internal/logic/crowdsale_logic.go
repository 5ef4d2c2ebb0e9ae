package logic

import (
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/blues/ffb/internal/chain"
	"github.com/blues/ffb/internal/logger"
	"github.com/blues/ffb/internal/model"
	"gorm.io/gorm"
)

// CrowdsaleLogic 众筹轮次业务逻辑
// 每个操作在单个数据库事务内执行：要么完整提交，要么完整回滚
type CrowdsaleLogic struct {
	db     *gorm.DB
	token  TokenAPI
	events *EventLogic
	now    func() time.Time
}

// NewCrowdsaleLogic 创建众筹业务逻辑
func NewCrowdsaleLogic(db *gorm.DB, token TokenAPI) *CrowdsaleLogic {
	return &CrowdsaleLogic{
		db:     db,
		token:  token,
		events: NewEventLogic(db),
		now:    time.Now,
	}
}

// BuyTokens 购买代币，资金留在众筹合约账户内延迟结算
func (c *CrowdsaleLogic) BuyTokens(caller, beneficiary, crowdsaleAddress string, amount *big.Int) error {
	return c.db.Transaction(func(tx *gorm.DB) error {
		cs, err := c.getByAddress(tx, crowdsaleAddress)
		if err != nil {
			return err
		}
		return c.buyTokensTx(tx, cs, caller, beneficiary, amount)
	})
}

func (c *CrowdsaleLogic) buyTokensTx(tx *gorm.DB, cs *model.CrowdsaleModel, caller, beneficiary string, amount *big.Int) error {
	if cs.Paused {
		return ErrPaused
	}
	if cs.State != model.CrowdsaleStateActive {
		return fmt.Errorf("%w: 状态为%s", ErrInvalidState, cs.State)
	}
	if !chain.IsValidAddress(beneficiary) {
		return fmt.Errorf("%w: 无效的受益人地址", ErrInvalidParameter)
	}
	if amount == nil || amount.Sign() <= 0 {
		return fmt.Errorf("%w: 贡献金额必须大于0", ErrInvalidParameter)
	}

	now := c.now()
	if now.Before(cs.OpeningTime) || now.After(cs.ClosingTime) {
		return fmt.Errorf("%w: 不在众筹时间窗口内", ErrTimeWindow)
	}

	raised := new(big.Int).Add(&cs.WeiRaised.Int, amount)
	if raised.Cmp(&cs.Cap.Int) > 0 {
		return fmt.Errorf("%w: 超出募集上限", ErrInvalidParameter)
	}

	// 资金从贡献者转入众筹账户，同时记入退款托管
	if err := transferValue(tx, caller, cs.Address, amount); err != nil {
		return err
	}
	if err := depositEscrow(tx, cs.Id, caller, amount); err != nil {
		return err
	}

	cs.WeiRaised.Int.Set(raised)
	if err := tx.Model(cs).Update("wei_raised", cs.WeiRaised).Error; err != nil {
		return err
	}

	// 按固定比率铸币给受益人
	tokens := new(big.Int).Mul(amount, big.NewInt(cs.Rate))
	if err := c.token.Mint(tx, cs.Address, cs.TokenId, beneficiary, tokens); err != nil {
		return err
	}

	logger.Info("Crowdsale %d purchase: %s wei from %s, %s tokens to %s",
		cs.Id, amount.String(), caller, tokens.String(), beneficiary)

	return c.events.Append(tx, cs.Address, model.EventTypeTokenPurchase, map[string]interface{}{
		"purchaser":   chain.Normalize(caller),
		"beneficiary": chain.Normalize(beneficiary),
		"value":       amount.String(),
		"amount":      tokens.String(),
	})
}

// HasClosed 众筹是否已结束：时间窗口过期或达到上限
// 一旦为真不会再变回假
func (c *CrowdsaleLogic) HasClosed(crowdsaleAddress string) (bool, error) {
	cs, err := c.getByAddress(c.db, crowdsaleAddress)
	if err != nil {
		return false, err
	}
	return c.hasClosed(cs), nil
}

func (c *CrowdsaleLogic) hasClosed(cs *model.CrowdsaleModel) bool {
	if c.now().After(cs.ClosingTime) {
		return true
	}
	return cs.WeiRaised.Int.Cmp(&cs.Cap.Int) >= 0
}

// Finalize 结算，仅所有者可调用，单次生效
// 达到目标：铸平台奖励、分账转出；未达到：开启退款
func (c *CrowdsaleLogic) Finalize(caller, crowdsaleAddress string) error {
	return c.db.Transaction(func(tx *gorm.DB) error {
		cs, err := c.getByAddress(tx, crowdsaleAddress)
		if err != nil {
			return err
		}
		if !chain.SameAddress(caller, cs.Owner) {
			return ErrNotAuthorized
		}
		return c.finalizeTx(tx, cs)
	})
}

func (c *CrowdsaleLogic) finalizeTx(tx *gorm.DB, cs *model.CrowdsaleModel) error {
	if cs.Paused {
		return ErrPaused
	}
	if cs.State != model.CrowdsaleStateActive {
		return fmt.Errorf("%w: 已结算", ErrInvalidState)
	}
	if !c.hasClosed(cs) {
		return fmt.Errorf("%w: 众筹尚未结束", ErrTimeWindow)
	}

	if cs.WeiRaised.Int.Cmp(&cs.Goal.Int) >= 0 {
		if err := c.settleTx(tx, cs); err != nil {
			return err
		}
		cs.State = model.CrowdsaleStateClosed
	} else {
		// 目标未达成：不转出资金，开启退款池
		cs.State = model.CrowdsaleStateRefunding
	}

	if err := tx.Model(cs).Update("state", cs.State).Error; err != nil {
		return err
	}

	logger.Info("Crowdsale %d finalized with state %s (raised %s, goal %s)",
		cs.Id, cs.State, cs.WeiRaised.String(), cs.Goal.String())

	return c.events.Append(tx, cs.Address, model.EventTypeFinalized, map[string]interface{}{
		"state":      string(cs.State),
		"wei_raised": cs.WeiRaised.String(),
	})
}

// settleTx 目标达成时的分账
func (c *CrowdsaleLogic) settleTx(tx *gorm.DB, cs *model.CrowdsaleModel) error {
	perMille := big.NewInt(cs.FriendsFingersRatePerMille)
	thousand := big.NewInt(1000)

	// 代币侧平台奖励: cap * rate * fee / 1000，铸给builder
	bonus := new(big.Int).Mul(&cs.Cap.Int, big.NewInt(cs.Rate))
	bonus.Mul(bonus, perMille)
	bonus.Div(bonus, thousand)
	if bonus.Sign() > 0 {
		if err := c.token.Mint(tx, cs.Address, cs.TokenId, cs.Owner, bonus); err != nil {
			return err
		}
	}

	// 资金侧分账: 平台费走ffWallet，余款走项目钱包
	fee := new(big.Int).Mul(&cs.WeiRaised.Int, perMille)
	fee.Div(fee, thousand)
	remainder := new(big.Int).Sub(&cs.WeiRaised.Int, fee)

	if err := transferValue(tx, cs.Address, cs.FriendsFingersWallet, fee); err != nil {
		return err
	}
	return transferValue(tx, cs.Address, cs.Wallet, remainder)
}

// ClaimRefund 贡献者提取退款，仅退款状态下可用
func (c *CrowdsaleLogic) ClaimRefund(caller, crowdsaleAddress string) error {
	return c.db.Transaction(func(tx *gorm.DB) error {
		cs, err := c.getByAddress(tx, crowdsaleAddress)
		if err != nil {
			return err
		}
		if cs.Paused {
			return ErrPaused
		}
		if cs.State != model.CrowdsaleStateRefunding {
			return fmt.Errorf("%w: 未开启退款", ErrInvalidState)
		}

		amount, err := withdrawEscrow(tx, cs.Id, caller)
		if err != nil {
			return err
		}

		logger.Info("Crowdsale %d refund: %s wei to %s", cs.Id, amount.String(), caller)
		return transferValue(tx, cs.Address, caller, amount)
	})
}

// BlockCrowdsale 封禁进行中的众筹，单向转换
func (c *CrowdsaleLogic) BlockCrowdsale(caller, crowdsaleAddress string) error {
	return c.db.Transaction(func(tx *gorm.DB) error {
		cs, err := c.getByAddress(tx, crowdsaleAddress)
		if err != nil {
			return err
		}
		if !chain.SameAddress(caller, cs.Owner) {
			return ErrNotAuthorized
		}
		return c.blockTx(tx, cs)
	})
}

func (c *CrowdsaleLogic) blockTx(tx *gorm.DB, cs *model.CrowdsaleModel) error {
	if cs.State != model.CrowdsaleStateActive {
		return fmt.Errorf("%w: 只能封禁进行中的众筹", ErrInvalidState)
	}
	cs.State = model.CrowdsaleStateBlocked
	return tx.Model(cs).Update("state", cs.State).Error
}

// SetExpiredAndWithdraw 退款状态下满一年后，清扫未领取资金并标记过期
func (c *CrowdsaleLogic) SetExpiredAndWithdraw(caller, crowdsaleAddress string) error {
	return c.db.Transaction(func(tx *gorm.DB) error {
		cs, err := c.getByAddress(tx, crowdsaleAddress)
		if err != nil {
			return err
		}
		if !chain.SameAddress(caller, cs.Owner) {
			return ErrNotAuthorized
		}
		return c.setExpiredAndWithdrawTx(tx, cs)
	})
}

func (c *CrowdsaleLogic) setExpiredAndWithdrawTx(tx *gorm.DB, cs *model.CrowdsaleModel) error {
	if cs.State != model.CrowdsaleStateRefunding {
		return fmt.Errorf("%w: 仅退款状态可标记过期", ErrInvalidState)
	}
	if c.now().Before(cs.ClosingTime.Add(model.SafeWithdrawalLockout)) {
		return fmt.Errorf("%w: 锁定期未满一年", ErrTimeWindow)
	}

	if err := c.sweepTx(tx, cs); err != nil {
		return err
	}

	cs.State = model.CrowdsaleStateExpired
	return tx.Model(cs).Update("state", cs.State).Error
}

// SafeWithdrawal 结束一年后的紧急提款，任意状态下可用
func (c *CrowdsaleLogic) SafeWithdrawal(caller, crowdsaleAddress string) error {
	return c.db.Transaction(func(tx *gorm.DB) error {
		cs, err := c.getByAddress(tx, crowdsaleAddress)
		if err != nil {
			return err
		}
		if !chain.SameAddress(caller, cs.Owner) {
			return ErrNotAuthorized
		}
		return c.safeWithdrawalTx(tx, cs)
	})
}

func (c *CrowdsaleLogic) safeWithdrawalTx(tx *gorm.DB, cs *model.CrowdsaleModel) error {
	if c.now().Before(cs.ClosingTime.Add(model.SafeWithdrawalLockout)) {
		return fmt.Errorf("%w: 锁定期未满一年", ErrTimeWindow)
	}
	return c.sweepTx(tx, cs)
}

// sweepTx 将众筹账户的全部余额转入平台钱包
// 余额为零时是空操作，不算失败
func (c *CrowdsaleLogic) sweepTx(tx *gorm.DB, cs *model.CrowdsaleModel) error {
	balance, err := accountBalance(tx, cs.Address)
	if err != nil {
		return err
	}
	if balance.Sign() == 0 {
		return nil
	}

	logger.Info("Crowdsale %d sweeping %s wei to %s", cs.Id, balance.String(), cs.FriendsFingersWallet)
	return transferValue(tx, cs.Address, cs.FriendsFingersWallet, balance)
}

// SetFriendsFingersWallet 更换平台费接收钱包
func (c *CrowdsaleLogic) SetFriendsFingersWallet(caller, crowdsaleAddress, wallet string) error {
	return c.db.Transaction(func(tx *gorm.DB) error {
		cs, err := c.getByAddress(tx, crowdsaleAddress)
		if err != nil {
			return err
		}
		if !chain.SameAddress(caller, cs.Owner) {
			return ErrNotAuthorized
		}
		return c.setFriendsFingersWalletTx(tx, cs, wallet)
	})
}

func (c *CrowdsaleLogic) setFriendsFingersWalletTx(tx *gorm.DB, cs *model.CrowdsaleModel, wallet string) error {
	if !chain.IsValidAddress(wallet) {
		return fmt.Errorf("%w: 无效的钱包地址", ErrInvalidParameter)
	}
	cs.FriendsFingersWallet = chain.Normalize(wallet)
	return tx.Model(cs).Update("friends_fingers_wallet", cs.FriendsFingersWallet).Error
}

// SetFriendsFingersRate 调整平台费率，只允许下调
func (c *CrowdsaleLogic) SetFriendsFingersRate(caller, crowdsaleAddress string, ratePerMille int64) error {
	return c.db.Transaction(func(tx *gorm.DB) error {
		cs, err := c.getByAddress(tx, crowdsaleAddress)
		if err != nil {
			return err
		}
		if !chain.SameAddress(caller, cs.Owner) {
			return ErrNotAuthorized
		}
		return c.setFriendsFingersRateTx(tx, cs, ratePerMille)
	})
}

func (c *CrowdsaleLogic) setFriendsFingersRateTx(tx *gorm.DB, cs *model.CrowdsaleModel, ratePerMille int64) error {
	if ratePerMille < 0 || ratePerMille > cs.FriendsFingersRatePerMille {
		return fmt.Errorf("%w: 平台费率只能下调", ErrInvalidParameter)
	}
	cs.FriendsFingersRatePerMille = ratePerMille
	return tx.Model(cs).Update("friends_fingers_rate_per_mille", ratePerMille).Error
}

// UpdateCrowdsaleInfo 更新描述信息，时间窗口结束后冻结
func (c *CrowdsaleLogic) UpdateCrowdsaleInfo(caller, crowdsaleAddress, info string) error {
	return c.db.Transaction(func(tx *gorm.DB) error {
		cs, err := c.getByAddress(tx, crowdsaleAddress)
		if err != nil {
			return err
		}
		if !chain.SameAddress(caller, cs.Owner) {
			return ErrNotAuthorized
		}
		return c.updateCrowdsaleInfoTx(tx, cs, info)
	})
}

func (c *CrowdsaleLogic) updateCrowdsaleInfoTx(tx *gorm.DB, cs *model.CrowdsaleModel, info string) error {
	if c.now().After(cs.ClosingTime) {
		return fmt.Errorf("%w: 众筹已结束，描述信息已冻结", ErrTimeWindow)
	}
	cs.CrowdsaleInfo = info
	return tx.Model(cs).Update("crowdsale_info", info).Error
}

// Pause 暂停众筹
func (c *CrowdsaleLogic) Pause(caller, crowdsaleAddress string) error {
	return c.setPaused(caller, crowdsaleAddress, true)
}

// Unpause 恢复众筹
func (c *CrowdsaleLogic) Unpause(caller, crowdsaleAddress string) error {
	return c.setPaused(caller, crowdsaleAddress, false)
}

func (c *CrowdsaleLogic) setPaused(caller, crowdsaleAddress string, paused bool) error {
	return c.db.Transaction(func(tx *gorm.DB) error {
		cs, err := c.getByAddress(tx, crowdsaleAddress)
		if err != nil {
			return err
		}
		if !chain.SameAddress(caller, cs.Owner) {
			return ErrNotAuthorized
		}
		return c.setPausedTx(tx, cs, paused)
	})
}

func (c *CrowdsaleLogic) setPausedTx(tx *gorm.DB, cs *model.CrowdsaleModel, paused bool) error {
	if cs.Paused == paused {
		return fmt.Errorf("%w: 暂停状态未变化", ErrInvalidState)
	}
	cs.Paused = paused
	return tx.Model(cs).Update("paused", paused).Error
}

// TransferAnyERC20Token 回收误转入众筹账户的其他代币
func (c *CrowdsaleLogic) TransferAnyERC20Token(caller, crowdsaleAddress, tokenAddress string, amount *big.Int, beneficiary string) error {
	return c.db.Transaction(func(tx *gorm.DB) error {
		cs, err := c.getByAddress(tx, crowdsaleAddress)
		if err != nil {
			return err
		}
		if !chain.SameAddress(caller, cs.Owner) {
			return ErrNotAuthorized
		}
		return c.transferAnyERC20TokenTx(tx, cs, tokenAddress, amount, beneficiary)
	})
}

func (c *CrowdsaleLogic) transferAnyERC20TokenTx(tx *gorm.DB, cs *model.CrowdsaleModel, tokenAddress string, amount *big.Int, beneficiary string) error {
	token, err := c.token.GetByAddress(tx, tokenAddress)
	if err != nil {
		return err
	}
	return c.token.Transfer(tx, cs.Address, token.Id, beneficiary, amount)
}

// GetCrowdsale 按地址查询众筹详情
func (c *CrowdsaleLogic) GetCrowdsale(crowdsaleAddress string) (*model.CrowdsaleModel, error) {
	return c.getByAddress(c.db, crowdsaleAddress)
}

// GetCrowdsaleById 按id查询众筹详情
func (c *CrowdsaleLogic) GetCrowdsaleById(id int64) (*model.CrowdsaleModel, error) {
	var cs model.CrowdsaleModel
	err := c.db.First(&cs, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: 众筹不存在", ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("查询众筹失败: %w", err)
	}
	return &cs, nil
}

// GetDeposits 查询某轮众筹的托管存款记录
func (c *CrowdsaleLogic) GetDeposits(crowdsaleAddress string) ([]model.DepositModel, error) {
	cs, err := c.getByAddress(c.db, crowdsaleAddress)
	if err != nil {
		return nil, err
	}
	return escrowDeposits(c.db, cs.Id)
}

func (c *CrowdsaleLogic) getByAddress(tx *gorm.DB, address string) (*model.CrowdsaleModel, error) {
	var cs model.CrowdsaleModel
	err := tx.Where("address = ?", chain.Normalize(address)).First(&cs).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: 众筹不存在", ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("查询众筹失败: %w", err)
	}
	return &cs, nil
}

// validateCrowdsaleParams 创建/重启众筹时的参数校验
func validateCrowdsaleParams(now time.Time, cap, goal *big.Int, opening, closing time.Time, rate int64, wallet string, allowZeroGoal bool) error {
	if cap == nil || cap.Sign() <= 0 {
		return fmt.Errorf("%w: 募集上限必须大于0", ErrInvalidParameter)
	}
	if goal == nil || goal.Sign() < 0 {
		return fmt.Errorf("%w: 目标金额不能为负", ErrInvalidParameter)
	}
	if goal.Sign() == 0 && !allowZeroGoal {
		return fmt.Errorf("%w: 目标金额必须大于0", ErrInvalidParameter)
	}
	if goal.Cmp(cap) > 0 {
		return fmt.Errorf("%w: 目标金额不能超过募集上限", ErrInvalidParameter)
	}
	if opening.Before(now) {
		return fmt.Errorf("%w: 开始时间不能早于当前时间", ErrInvalidParameter)
	}
	if !opening.Before(closing) {
		return fmt.Errorf("%w: 开始时间必须早于结束时间", ErrInvalidParameter)
	}
	if closing.Sub(opening) > model.MaxDuration {
		return fmt.Errorf("%w: 持续时间不能超过30天", ErrInvalidParameter)
	}
	if rate <= 0 {
		return fmt.Errorf("%w: 兑换比率必须大于0", ErrInvalidParameter)
	}
	if !chain.IsValidAddress(wallet) {
		return fmt.Errorf("%w: 无效的钱包地址", ErrInvalidParameter)
	}
	return nil
}

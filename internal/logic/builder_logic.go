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

// BuilderLogic 平台注册表与编排逻辑
// 代理操作以builder地址作为调用方转发给众筹逻辑，
// 内层失败会使整个事务回滚
type BuilderLogic struct {
	db        *gorm.DB
	token     *TokenLogic
	crowdsale *CrowdsaleLogic
	events    *EventLogic
	now       func() time.Time
}

// NewBuilderLogic 创建平台业务逻辑
func NewBuilderLogic(db *gorm.DB, token *TokenLogic, crowdsale *CrowdsaleLogic) *BuilderLogic {
	return &BuilderLogic{
		db:        db,
		token:     token,
		crowdsale: crowdsale,
		events:    NewEventLogic(db),
		now:       time.Now,
	}
}

// StartCrowdsaleParams 启动众筹的请求参数
type StartCrowdsaleParams struct {
	Name          string
	Symbol        string
	Decimals      uint8
	Cap           *big.Int
	Goal          *big.Int
	CreatorSupply *big.Int
	OpeningTime   time.Time
	ClosingTime   time.Time
	Rate          int64
	Wallet        string
	Info          string
}

// RestartCrowdsaleParams 重启众筹的请求参数
type RestartCrowdsaleParams struct {
	Cap         *big.Int
	OpeningTime time.Time
	ClosingTime time.Time
	Rate        int64
	Info        string
}

// Init 初始化平台配置，幂等
func (b *BuilderLogic) Init(owner, friendsFingersWallet string, defaultRatePerMille int64) error {
	if !chain.IsValidAddress(owner) {
		return fmt.Errorf("%w: 无效的所有者地址", ErrInvalidParameter)
	}
	if !chain.IsValidAddress(friendsFingersWallet) {
		return fmt.Errorf("%w: 无效的平台钱包地址", ErrInvalidParameter)
	}

	return b.db.Transaction(func(tx *gorm.DB) error {
		var builder model.BuilderModel
		err := tx.First(&builder).Error
		if err == nil {
			return nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("查询平台配置失败: %w", err)
		}

		builder = model.BuilderModel{
			Address:                    chain.DeriveAddress(owner, 0),
			Owner:                      chain.Normalize(owner),
			FriendsFingersWallet:       chain.Normalize(friendsFingersWallet),
			FriendsFingersRatePerMille: defaultRatePerMille,
		}
		if err := tx.Create(&builder).Error; err != nil {
			return fmt.Errorf("创建平台配置失败: %w", err)
		}

		logger.Info("Builder initialized at %s (owner %s, wallet %s, fee %d‰)",
			builder.Address, builder.Owner, builder.FriendsFingersWallet, defaultRatePerMille)
		return nil
	})
}

// StartCrowdsale 启动新的众筹链，调用者成为创建者
func (b *BuilderLogic) StartCrowdsale(caller string, params StartCrowdsaleParams) (*model.CrowdsaleModel, error) {
	var created *model.CrowdsaleModel
	err := b.db.Transaction(func(tx *gorm.DB) error {
		builder, err := b.getBuilder(tx)
		if err != nil {
			return err
		}
		if builder.Paused {
			return ErrPaused
		}
		if !chain.IsValidAddress(caller) {
			return fmt.Errorf("%w: 无效的调用者地址", ErrInvalidParameter)
		}

		// 只有平台首个众筹允许目标为0
		allowZeroGoal := builder.CrowdsaleCount == 0
		if err := validateCrowdsaleParams(b.now(), params.Cap, params.Goal,
			params.OpeningTime, params.ClosingTime, params.Rate, params.Wallet, allowZeroGoal); err != nil {
			return err
		}

		id := builder.CrowdsaleCount + 1
		crowdsaleAddress := chain.DeriveAddress(builder.Address, uint64(id)*2-1)
		tokenAddress := chain.DeriveAddress(builder.Address, uint64(id)*2)

		// 部署代币：先铸创建者份额给项目钱包，再把所有权交给众筹
		token, err := b.token.CreateToken(tx, tokenAddress, params.Name, params.Symbol, params.Decimals, builder.Address)
		if err != nil {
			return err
		}
		if params.CreatorSupply != nil && params.CreatorSupply.Sign() > 0 {
			if err := b.token.Mint(tx, builder.Address, token.Id, params.Wallet, params.CreatorSupply); err != nil {
				return err
			}
		}
		if err := b.token.TransferOwnership(tx, builder.Address, token.Id, crowdsaleAddress); err != nil {
			return err
		}

		cs := model.CrowdsaleModel{
			Id:                         id,
			Address:                    crowdsaleAddress,
			Owner:                      builder.Address,
			Cap:                        bigIntOf(params.Cap),
			Goal:                       bigIntOf(params.Goal),
			Rate:                       params.Rate,
			Wallet:                     chain.Normalize(params.Wallet),
			TokenId:                    token.Id,
			CreatorSupply:              bigIntOf(params.CreatorSupply),
			OpeningTime:                params.OpeningTime,
			ClosingTime:                params.ClosingTime,
			Round:                      1,
			FriendsFingersRatePerMille: builder.FriendsFingersRatePerMille,
			FriendsFingersWallet:       builder.FriendsFingersWallet,
			CrowdsaleInfo:              params.Info,
			State:                      model.CrowdsaleStateActive,
			// 首个众筹直接开放，后续部署默认暂停，需管理员手动开放
			Paused:  id != 1,
			Creator: chain.Normalize(caller),
		}
		if err := tx.Create(&cs).Error; err != nil {
			return fmt.Errorf("创建众筹失败: %w", err)
		}

		builder.CrowdsaleCount = id
		if err := tx.Model(builder).Update("crowdsale_count", id).Error; err != nil {
			return err
		}

		if err := b.events.Append(tx, builder.Address, model.EventTypeCrowdsaleStarted, map[string]interface{}{
			"ffCrowdsale": crowdsaleAddress,
		}); err != nil {
			return err
		}

		logger.Info("Crowdsale %d started at %s by %s (cap %s, goal %s, rate %d)",
			id, crowdsaleAddress, caller, params.Cap.String(), params.Goal.String(), params.Rate)

		created = &cs
		return nil
	})
	return created, err
}

// RestartCrowdsale 将已成功的轮次链入下一轮
// 新轮次复用同一代币，比率必须严格递减
func (b *BuilderLogic) RestartCrowdsale(caller, oldCrowdsaleAddress string, params RestartCrowdsaleParams) (*model.CrowdsaleModel, error) {
	var created *model.CrowdsaleModel
	err := b.db.Transaction(func(tx *gorm.DB) error {
		builder, err := b.getBuilder(tx)
		if err != nil {
			return err
		}
		if builder.Paused {
			return ErrPaused
		}

		old, err := b.crowdsale.getByAddress(tx, oldCrowdsaleAddress)
		if err != nil {
			return err
		}
		if !b.isOwnerOrCreator(builder, old, caller) {
			return ErrNotAuthorized
		}

		if old.State != model.CrowdsaleStateActive {
			return fmt.Errorf("%w: 已结算的轮次不能重启", ErrInvalidState)
		}
		if !b.crowdsale.hasClosed(old) {
			return fmt.Errorf("%w: 上一轮尚未结束", ErrTimeWindow)
		}
		if old.WeiRaised.Int.Cmp(&old.Goal.Int) < 0 {
			return fmt.Errorf("%w: 上一轮未达成目标，只能关闭", ErrInvalidState)
		}
		if old.NextRoundId != 0 {
			return fmt.Errorf("%w: 该轮次已重启过", ErrInvalidState)
		}
		if old.Round >= model.MaxRounds {
			return fmt.Errorf("%w: 轮次链最多%d轮", ErrInvalidParameter, model.MaxRounds)
		}
		if params.Rate >= old.Rate {
			return fmt.Errorf("%w: 新比率必须低于上一轮", ErrInvalidParameter)
		}

		// 后续轮次没有独立目标，链的成功已经被证明
		goal := big.NewInt(0)
		if err := validateCrowdsaleParams(b.now(), params.Cap, goal,
			params.OpeningTime, params.ClosingTime, params.Rate, old.Wallet, true); err != nil {
			return err
		}

		id := builder.CrowdsaleCount + 1
		crowdsaleAddress := chain.DeriveAddress(builder.Address, uint64(id)*2-1)

		// 代币所有权从旧轮次移交给新轮次，与链指针更新同一事务提交
		if err := b.token.TransferOwnership(tx, old.Address, old.TokenId, crowdsaleAddress); err != nil {
			return err
		}

		cs := model.CrowdsaleModel{
			Id:                         id,
			Address:                    crowdsaleAddress,
			Owner:                      builder.Address,
			Cap:                        bigIntOf(params.Cap),
			Goal:                       bigIntOf(goal),
			Rate:                       params.Rate,
			Wallet:                     old.Wallet,
			TokenId:                    old.TokenId,
			OpeningTime:                params.OpeningTime,
			ClosingTime:                params.ClosingTime,
			Round:                      old.Round + 1,
			PreviousRoundId:            old.Id,
			FriendsFingersRatePerMille: builder.FriendsFingersRatePerMille,
			FriendsFingersWallet:       builder.FriendsFingersWallet,
			CrowdsaleInfo:              params.Info,
			State:                      model.CrowdsaleStateActive,
			Paused:                     true,
			Creator:                    old.Creator,
		}
		if err := tx.Create(&cs).Error; err != nil {
			return fmt.Errorf("创建众筹失败: %w", err)
		}

		old.NextRoundId = id
		if err := tx.Model(old).Update("next_round_id", id).Error; err != nil {
			return err
		}

		builder.CrowdsaleCount = id
		if err := tx.Model(builder).Update("crowdsale_count", id).Error; err != nil {
			return err
		}

		if err := b.events.Append(tx, builder.Address, model.EventTypeCrowdsaleStarted, map[string]interface{}{
			"ffCrowdsale": crowdsaleAddress,
		}); err != nil {
			return err
		}

		logger.Info("Crowdsale %d restarted from %d (round %d, rate %d)", id, old.Id, cs.Round, cs.Rate)

		created = &cs
		return nil
	})
	return created, err
}

// CloseCrowdsale 关闭轮次：结算、关闭铸币并把代币所有权交还创建者
func (b *BuilderLogic) CloseCrowdsale(caller, crowdsaleAddress string) error {
	return b.db.Transaction(func(tx *gorm.DB) error {
		builder, err := b.getBuilder(tx)
		if err != nil {
			return err
		}
		cs, err := b.crowdsale.getByAddress(tx, crowdsaleAddress)
		if err != nil {
			return err
		}
		if !b.isOwnerOrCreator(builder, cs, caller) {
			return ErrNotAuthorized
		}
		if cs.NextRoundId != 0 {
			return fmt.Errorf("%w: 已重启的轮次不能关闭", ErrInvalidState)
		}
		if cs.State == model.CrowdsaleStateClosed || cs.State == model.CrowdsaleStateExpired {
			return fmt.Errorf("%w: 该轮次已关闭", ErrInvalidState)
		}

		if err := b.crowdsale.finalizeTx(tx, cs); err != nil {
			return err
		}

		// 链走到终点：铸币永久关闭，代币归还创建者
		if err := b.token.FinishMinting(tx, cs.Address, cs.TokenId); err != nil {
			return err
		}
		return b.token.TransferOwnership(tx, cs.Address, cs.TokenId, cs.Creator)
	})
}

// PauseCrowdsale 代理：暂停众筹
func (b *BuilderLogic) PauseCrowdsale(caller, crowdsaleAddress string) error {
	return b.forwardAdmin(caller, crowdsaleAddress, func(tx *gorm.DB, cs *model.CrowdsaleModel) error {
		return b.crowdsale.setPausedTx(tx, cs, true)
	})
}

// UnpauseCrowdsale 代理：恢复众筹
func (b *BuilderLogic) UnpauseCrowdsale(caller, crowdsaleAddress string) error {
	return b.forwardAdmin(caller, crowdsaleAddress, func(tx *gorm.DB, cs *model.CrowdsaleModel) error {
		return b.crowdsale.setPausedTx(tx, cs, false)
	})
}

// BlockCrowdsale 代理：封禁众筹
func (b *BuilderLogic) BlockCrowdsale(caller, crowdsaleAddress string) error {
	return b.forwardAdmin(caller, crowdsaleAddress, func(tx *gorm.DB, cs *model.CrowdsaleModel) error {
		return b.crowdsale.blockTx(tx, cs)
	})
}

// SetFriendsFingersWalletForCrowdsale 代理：更换某轮众筹的平台钱包
func (b *BuilderLogic) SetFriendsFingersWalletForCrowdsale(caller, crowdsaleAddress, wallet string) error {
	return b.forwardAdmin(caller, crowdsaleAddress, func(tx *gorm.DB, cs *model.CrowdsaleModel) error {
		return b.crowdsale.setFriendsFingersWalletTx(tx, cs, wallet)
	})
}

// SetFriendsFingersRateForCrowdsale 代理：下调某轮众筹的平台费率
func (b *BuilderLogic) SetFriendsFingersRateForCrowdsale(caller, crowdsaleAddress string, ratePerMille int64) error {
	return b.forwardAdmin(caller, crowdsaleAddress, func(tx *gorm.DB, cs *model.CrowdsaleModel) error {
		return b.crowdsale.setFriendsFingersRateTx(tx, cs, ratePerMille)
	})
}

// SafeWithdrawalFromCrowdsale 代理：紧急提款
func (b *BuilderLogic) SafeWithdrawalFromCrowdsale(caller, crowdsaleAddress string) error {
	return b.forwardAdmin(caller, crowdsaleAddress, func(tx *gorm.DB, cs *model.CrowdsaleModel) error {
		return b.crowdsale.safeWithdrawalTx(tx, cs)
	})
}

// SetExpiredAndWithdraw 代理：标记过期并清扫
func (b *BuilderLogic) SetExpiredAndWithdraw(caller, crowdsaleAddress string) error {
	return b.forwardAdmin(caller, crowdsaleAddress, func(tx *gorm.DB, cs *model.CrowdsaleModel) error {
		return b.crowdsale.setExpiredAndWithdrawTx(tx, cs)
	})
}

// SafeTokenWithdrawalFromCrowdsale 代理：回收众筹账户持有的其他代币到平台钱包
func (b *BuilderLogic) SafeTokenWithdrawalFromCrowdsale(caller, crowdsaleAddress, tokenAddress string, amount *big.Int) error {
	return b.forwardAdmin(caller, crowdsaleAddress, func(tx *gorm.DB, cs *model.CrowdsaleModel) error {
		builder, err := b.getBuilder(tx)
		if err != nil {
			return err
		}
		return b.crowdsale.transferAnyERC20TokenTx(tx, cs, tokenAddress, amount, builder.FriendsFingersWallet)
	})
}

// UpdateCrowdsaleInfo 代理：更新描述信息，创建者也可调用
func (b *BuilderLogic) UpdateCrowdsaleInfo(caller, crowdsaleAddress, info string) error {
	return b.db.Transaction(func(tx *gorm.DB) error {
		builder, err := b.getBuilder(tx)
		if err != nil {
			return err
		}
		cs, err := b.crowdsale.getByAddress(tx, crowdsaleAddress)
		if err != nil {
			return err
		}
		if !b.isOwnerOrCreator(builder, cs, caller) {
			return ErrNotAuthorized
		}
		return b.crowdsale.updateCrowdsaleInfoTx(tx, cs, info)
	})
}

// ChangeEnabledAddressStatus 授权/撤销管理地址，仅所有者可操作
func (b *BuilderLogic) ChangeEnabledAddressStatus(caller, address string, enabled bool) error {
	return b.db.Transaction(func(tx *gorm.DB) error {
		builder, err := b.getBuilder(tx)
		if err != nil {
			return err
		}
		if !chain.SameAddress(caller, builder.Owner) {
			return ErrNotAuthorized
		}
		if !chain.IsValidAddress(address) {
			return fmt.Errorf("%w: 无效的地址", ErrInvalidParameter)
		}

		address = chain.Normalize(address)
		var record model.EnabledAddressModel
		err = tx.Where("address = ?", address).First(&record).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			record = model.EnabledAddressModel{Address: address, Enabled: enabled}
			return tx.Create(&record).Error
		}
		if err != nil {
			return fmt.Errorf("查询授权地址失败: %w", err)
		}
		return tx.Model(&record).Update("enabled", enabled).Error
	})
}

// SetDefaultFriendsFingersRate 下调默认平台费率，只影响之后启动的众筹
func (b *BuilderLogic) SetDefaultFriendsFingersRate(caller string, ratePerMille int64) error {
	return b.db.Transaction(func(tx *gorm.DB) error {
		builder, err := b.getBuilder(tx)
		if err != nil {
			return err
		}
		if !chain.SameAddress(caller, builder.Owner) {
			return ErrNotAuthorized
		}
		if ratePerMille < 0 || ratePerMille > builder.FriendsFingersRatePerMille {
			return fmt.Errorf("%w: 平台费率只能下调", ErrInvalidParameter)
		}
		return tx.Model(builder).Update("friends_fingers_rate_per_mille", ratePerMille).Error
	})
}

// SetMainWallet 更换平台主钱包，只影响之后启动的众筹
func (b *BuilderLogic) SetMainWallet(caller, wallet string) error {
	return b.db.Transaction(func(tx *gorm.DB) error {
		builder, err := b.getBuilder(tx)
		if err != nil {
			return err
		}
		if !chain.SameAddress(caller, builder.Owner) {
			return ErrNotAuthorized
		}
		if !chain.IsValidAddress(wallet) {
			return fmt.Errorf("%w: 无效的钱包地址", ErrInvalidParameter)
		}
		return tx.Model(builder).Update("friends_fingers_wallet", chain.Normalize(wallet)).Error
	})
}

// Pause 暂停平台，禁止启动/重启众筹
func (b *BuilderLogic) Pause(caller string) error {
	return b.setPaused(caller, true)
}

// Unpause 恢复平台
func (b *BuilderLogic) Unpause(caller string) error {
	return b.setPaused(caller, false)
}

func (b *BuilderLogic) setPaused(caller string, paused bool) error {
	return b.db.Transaction(func(tx *gorm.DB) error {
		builder, err := b.getBuilder(tx)
		if err != nil {
			return err
		}
		if !chain.SameAddress(caller, builder.Owner) {
			return ErrNotAuthorized
		}
		if builder.Paused == paused {
			return fmt.Errorf("%w: 暂停状态未变化", ErrInvalidState)
		}
		return tx.Model(builder).Update("paused", paused).Error
	})
}

// Donate 直接捐赠，全额即时转给平台钱包
func (b *BuilderLogic) Donate(caller string, amount *big.Int) error {
	if amount == nil || amount.Sign() <= 0 {
		return fmt.Errorf("%w: 捐赠金额必须大于0", ErrInvalidParameter)
	}
	return b.db.Transaction(func(tx *gorm.DB) error {
		builder, err := b.getBuilder(tx)
		if err != nil {
			return err
		}
		return transferValue(tx, caller, builder.FriendsFingersWallet, amount)
	})
}

// TransferAnyERC20Token 回收误转入平台账户的代币，仅所有者可操作
func (b *BuilderLogic) TransferAnyERC20Token(caller, tokenAddress string, amount *big.Int, beneficiary string) error {
	return b.db.Transaction(func(tx *gorm.DB) error {
		builder, err := b.getBuilder(tx)
		if err != nil {
			return err
		}
		if !chain.SameAddress(caller, builder.Owner) {
			return ErrNotAuthorized
		}
		token, err := b.token.GetByAddress(tx, tokenAddress)
		if err != nil {
			return err
		}
		return b.token.Transfer(tx, builder.Address, token.Id, beneficiary, amount)
	})
}

// GetBuilder 查询平台配置
func (b *BuilderLogic) GetBuilder() (*model.BuilderModel, error) {
	return b.getBuilder(b.db)
}

// ListCrowdsales 按注册顺序查询众筹列表
func (b *BuilderLogic) ListCrowdsales(page, pageSize int) ([]model.CrowdsaleModel, int64, error) {
	if page <= 0 {
		page = 1
	}
	if pageSize <= 0 || pageSize > 100 {
		pageSize = 20
	}

	var total int64
	if err := b.db.Model(&model.CrowdsaleModel{}).Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("查询众筹总数失败: %w", err)
	}

	var crowdsales []model.CrowdsaleModel
	err := b.db.Order("id ASC").Offset((page - 1) * pageSize).Limit(pageSize).Find(&crowdsales).Error
	if err != nil {
		return nil, 0, fmt.Errorf("查询众筹列表失败: %w", err)
	}
	return crowdsales, total, nil
}

// IsEnabledAddress 查询地址是否具有授权管理权限
func (b *BuilderLogic) IsEnabledAddress(address string) (bool, error) {
	return b.isEnabled(b.db, address)
}

// forwardAdmin 代理管理操作的公共路径：校验调用方为所有者或授权地址，
// 确认目标在注册表中，然后以builder身份转发
func (b *BuilderLogic) forwardAdmin(caller, crowdsaleAddress string, fn func(tx *gorm.DB, cs *model.CrowdsaleModel) error) error {
	return b.db.Transaction(func(tx *gorm.DB) error {
		builder, err := b.getBuilder(tx)
		if err != nil {
			return err
		}
		ok, err := b.isOwnerOrEnabled(tx, builder, caller)
		if err != nil {
			return err
		}
		if !ok {
			return ErrNotAuthorized
		}

		cs, err := b.crowdsale.getByAddress(tx, crowdsaleAddress)
		if err != nil {
			return err
		}
		return fn(tx, cs)
	})
}

func (b *BuilderLogic) isOwnerOrCreator(builder *model.BuilderModel, cs *model.CrowdsaleModel, caller string) bool {
	return chain.SameAddress(caller, builder.Owner) || chain.SameAddress(caller, cs.Creator)
}

func (b *BuilderLogic) isOwnerOrEnabled(tx *gorm.DB, builder *model.BuilderModel, caller string) (bool, error) {
	if chain.SameAddress(caller, builder.Owner) {
		return true, nil
	}
	return b.isEnabled(tx, caller)
}

func (b *BuilderLogic) isEnabled(tx *gorm.DB, address string) (bool, error) {
	var record model.EnabledAddressModel
	err := tx.Where("address = ?", chain.Normalize(address)).First(&record).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("查询授权地址失败: %w", err)
	}
	return record.Enabled, nil
}

func (b *BuilderLogic) getBuilder(tx *gorm.DB) (*model.BuilderModel, error) {
	var builder model.BuilderModel
	err := tx.First(&builder).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: 平台尚未初始化", ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("查询平台配置失败: %w", err)
	}
	return &builder, nil
}

// bigIntOf nil安全的BigInt转换
func bigIntOf(v *big.Int) model.BigInt {
	var b model.BigInt
	if v != nil {
		b.Int.Set(v)
	}
	return b
}

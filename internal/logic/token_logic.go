package logic

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/blues/ffb/internal/chain"
	"github.com/blues/ffb/internal/model"
	"gorm.io/gorm"
)

// TokenAPI 众筹核心消费的代币能力接口
// 核心不依赖代币的transfer/approve内部实现
type TokenAPI interface {
	Mint(tx *gorm.DB, caller string, tokenId int64, to string, amount *big.Int) error
	FinishMinting(tx *gorm.DB, caller string, tokenId int64) error
	TransferOwnership(tx *gorm.DB, caller string, tokenId int64, newOwner string) error
	Transfer(tx *gorm.DB, caller string, tokenId int64, to string, amount *big.Int) error
	Owner(tx *gorm.DB, tokenId int64) (string, error)
	BalanceOf(tx *gorm.DB, tokenId int64, address string) (*big.Int, error)
	TotalSupply(tx *gorm.DB, tokenId int64) (*big.Int, error)
	GetByAddress(tx *gorm.DB, address string) (*model.TokenModel, error)
}

// TokenLogic 代币业务逻辑
type TokenLogic struct {
	db *gorm.DB
}

// NewTokenLogic 创建代币业务逻辑
func NewTokenLogic(db *gorm.DB) *TokenLogic {
	return &TokenLogic{db: db}
}

// CreateToken 创建代币，owner为初始所有者
func (t *TokenLogic) CreateToken(tx *gorm.DB, address, name, symbol string, decimals uint8, owner string) (*model.TokenModel, error) {
	if name == "" || symbol == "" {
		return nil, fmt.Errorf("%w: 代币名称和符号不能为空", ErrInvalidParameter)
	}
	if !chain.IsValidAddress(owner) {
		return nil, fmt.Errorf("%w: 无效的所有者地址", ErrInvalidParameter)
	}

	token := model.TokenModel{
		Address:  chain.Normalize(address),
		Name:     name,
		Symbol:   symbol,
		Decimals: decimals,
		Owner:    chain.Normalize(owner),
	}
	if err := tx.Create(&token).Error; err != nil {
		return nil, fmt.Errorf("创建代币失败: %w", err)
	}
	return &token, nil
}

// Mint 铸币，仅所有者可调用，铸币结束后不可再铸
func (t *TokenLogic) Mint(tx *gorm.DB, caller string, tokenId int64, to string, amount *big.Int) error {
	token, err := t.getToken(tx, tokenId)
	if err != nil {
		return err
	}
	if !chain.SameAddress(caller, token.Owner) {
		return ErrNotAuthorized
	}
	if token.MintingFinished {
		return fmt.Errorf("%w: 铸币已结束", ErrInvalidState)
	}
	if !chain.IsValidAddress(to) {
		return fmt.Errorf("%w: 无效的接收地址", ErrInvalidParameter)
	}
	if amount == nil || amount.Sign() <= 0 {
		return fmt.Errorf("%w: 铸币数量必须大于0", ErrInvalidParameter)
	}

	if err := creditTokenBalance(tx, tokenId, to, amount); err != nil {
		return err
	}

	token.TotalSupply.Add(&token.TotalSupply.Int, amount)
	return tx.Model(token).Update("total_supply", token.TotalSupply).Error
}

// FinishMinting 关闭铸币，单向开关
func (t *TokenLogic) FinishMinting(tx *gorm.DB, caller string, tokenId int64) error {
	token, err := t.getToken(tx, tokenId)
	if err != nil {
		return err
	}
	if !chain.SameAddress(caller, token.Owner) {
		return ErrNotAuthorized
	}
	if token.MintingFinished {
		return fmt.Errorf("%w: 铸币已结束", ErrInvalidState)
	}
	return tx.Model(token).Update("minting_finished", true).Error
}

// TransferOwnership 转移代币所有权
func (t *TokenLogic) TransferOwnership(tx *gorm.DB, caller string, tokenId int64, newOwner string) error {
	token, err := t.getToken(tx, tokenId)
	if err != nil {
		return err
	}
	if !chain.SameAddress(caller, token.Owner) {
		return ErrNotAuthorized
	}
	if !chain.IsValidAddress(newOwner) {
		return fmt.Errorf("%w: 无效的所有者地址", ErrInvalidParameter)
	}
	return tx.Model(token).Update("owner", chain.Normalize(newOwner)).Error
}

// Transfer 余额转账，用于遗留代币回收路径
func (t *TokenLogic) Transfer(tx *gorm.DB, caller string, tokenId int64, to string, amount *big.Int) error {
	if !chain.IsValidAddress(to) {
		return fmt.Errorf("%w: 无效的接收地址", ErrInvalidParameter)
	}
	if amount == nil || amount.Sign() <= 0 {
		return fmt.Errorf("%w: 转账数量必须大于0", ErrInvalidParameter)
	}

	if err := debitTokenBalance(tx, tokenId, caller, amount); err != nil {
		return err
	}
	return creditTokenBalance(tx, tokenId, to, amount)
}

// Owner 查询代币所有者
func (t *TokenLogic) Owner(tx *gorm.DB, tokenId int64) (string, error) {
	token, err := t.getToken(tx, tokenId)
	if err != nil {
		return "", err
	}
	return token.Owner, nil
}

// BalanceOf 查询代币余额
func (t *TokenLogic) BalanceOf(tx *gorm.DB, tokenId int64, address string) (*big.Int, error) {
	var balance model.TokenBalanceModel
	err := tx.Where("token_id = ? AND address = ?", tokenId, chain.Normalize(address)).First(&balance).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return big.NewInt(0), nil
	}
	if err != nil {
		return nil, fmt.Errorf("查询代币余额失败: %w", err)
	}
	return new(big.Int).Set(&balance.Amount.Int), nil
}

// TotalSupply 查询代币总量
func (t *TokenLogic) TotalSupply(tx *gorm.DB, tokenId int64) (*big.Int, error) {
	token, err := t.getToken(tx, tokenId)
	if err != nil {
		return nil, err
	}
	return new(big.Int).Set(&token.TotalSupply.Int), nil
}

// GetByAddress 按地址查询代币
func (t *TokenLogic) GetByAddress(tx *gorm.DB, address string) (*model.TokenModel, error) {
	var token model.TokenModel
	err := tx.Where("address = ?", chain.Normalize(address)).First(&token).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: 代币不存在", ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("查询代币失败: %w", err)
	}
	return &token, nil
}

// GetToken 查询代币详情
func (t *TokenLogic) GetToken(tokenId int64) (*model.TokenModel, error) {
	return t.getToken(t.db, tokenId)
}

// GetTokenByAddress 按地址查询代币详情
func (t *TokenLogic) GetTokenByAddress(address string) (*model.TokenModel, error) {
	return t.GetByAddress(t.db, address)
}

// TokenBalance 按代币地址查询持有人余额
func (t *TokenLogic) TokenBalance(tokenAddress, holder string) (*big.Int, error) {
	token, err := t.GetByAddress(t.db, tokenAddress)
	if err != nil {
		return nil, err
	}
	return t.BalanceOf(t.db, token.Id, holder)
}

func (t *TokenLogic) getToken(tx *gorm.DB, tokenId int64) (*model.TokenModel, error) {
	var token model.TokenModel
	err := tx.First(&token, tokenId).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: 代币不存在", ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("查询代币失败: %w", err)
	}
	return &token, nil
}

// creditTokenBalance 代币入账
func creditTokenBalance(tx *gorm.DB, tokenId int64, address string, amount *big.Int) error {
	address = chain.Normalize(address)

	var balance model.TokenBalanceModel
	err := tx.Where("token_id = ? AND address = ?", tokenId, address).First(&balance).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		balance = model.TokenBalanceModel{TokenId: tokenId, Address: address}
		balance.Amount.Add(&balance.Amount.Int, amount)
		return tx.Create(&balance).Error
	}
	if err != nil {
		return fmt.Errorf("查询代币余额失败: %w", err)
	}

	balance.Amount.Add(&balance.Amount.Int, amount)
	return tx.Model(&balance).Update("amount", balance.Amount).Error
}

// debitTokenBalance 代币出账
func debitTokenBalance(tx *gorm.DB, tokenId int64, address string, amount *big.Int) error {
	address = chain.Normalize(address)

	var balance model.TokenBalanceModel
	err := tx.Where("token_id = ? AND address = ?", tokenId, address).First(&balance).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrInsufficientBalance
	}
	if err != nil {
		return fmt.Errorf("查询代币余额失败: %w", err)
	}

	if balance.Amount.Int.Cmp(amount) < 0 {
		return ErrInsufficientBalance
	}

	balance.Amount.Sub(&balance.Amount.Int, amount)
	return tx.Model(&balance).Update("amount", balance.Amount).Error
}

package logic

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/blues/ffb/internal/chain"
	"github.com/blues/ffb/internal/model"
	"gorm.io/gorm"
)

// AccountLogic wei账本业务逻辑
// 合约余额、钱包与贡献者余额都记录在同一张账本表中
type AccountLogic struct {
	db *gorm.DB
}

// NewAccountLogic 创建账本业务逻辑
func NewAccountLogic(db *gorm.DB) *AccountLogic {
	return &AccountLogic{db: db}
}

// Deposit 外部入金，给账户充值
func (a *AccountLogic) Deposit(address string, amount *big.Int) error {
	if !chain.IsValidAddress(address) {
		return fmt.Errorf("%w: 无效的账户地址", ErrInvalidParameter)
	}
	if amount == nil || amount.Sign() <= 0 {
		return fmt.Errorf("%w: 入金金额必须大于0", ErrInvalidParameter)
	}

	return a.db.Transaction(func(tx *gorm.DB) error {
		return creditAccount(tx, address, amount)
	})
}

// Balance 查询账户余额
func (a *AccountLogic) Balance(address string) (*big.Int, error) {
	return accountBalance(a.db, address)
}

// accountBalance 读取余额，不存在的账户余额为0
func accountBalance(tx *gorm.DB, address string) (*big.Int, error) {
	var account model.AccountModel
	err := tx.Where("address = ?", chain.Normalize(address)).First(&account).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return big.NewInt(0), nil
	}
	if err != nil {
		return nil, fmt.Errorf("查询账户余额失败: %w", err)
	}
	return new(big.Int).Set(&account.Balance.Int), nil
}

// creditAccount 入账
func creditAccount(tx *gorm.DB, address string, amount *big.Int) error {
	address = chain.Normalize(address)

	var account model.AccountModel
	err := tx.Where("address = ?", address).First(&account).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		account = model.AccountModel{Address: address}
		account.Balance.Add(&account.Balance.Int, amount)
		return tx.Create(&account).Error
	}
	if err != nil {
		return fmt.Errorf("查询账户失败: %w", err)
	}

	account.Balance.Add(&account.Balance.Int, amount)
	return tx.Model(&account).Update("balance", account.Balance).Error
}

// debitAccount 出账，余额不足时整体失败
func debitAccount(tx *gorm.DB, address string, amount *big.Int) error {
	address = chain.Normalize(address)

	var account model.AccountModel
	err := tx.Where("address = ?", address).First(&account).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrInsufficientBalance
	}
	if err != nil {
		return fmt.Errorf("查询账户失败: %w", err)
	}

	if account.Balance.Int.Cmp(amount) < 0 {
		return ErrInsufficientBalance
	}

	account.Balance.Sub(&account.Balance.Int, amount)
	return tx.Model(&account).Update("balance", account.Balance).Error
}

// transferValue 账本内转账
func transferValue(tx *gorm.DB, from, to string, amount *big.Int) error {
	if amount.Sign() == 0 {
		return nil
	}
	if err := debitAccount(tx, from, amount); err != nil {
		return err
	}
	return creditAccount(tx, to, amount)
}

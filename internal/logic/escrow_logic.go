package logic

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/blues/ffb/internal/chain"
	"github.com/blues/ffb/internal/model"
	"gorm.io/gorm"
)

// 退款托管：按贡献者记录的存款表
// 目标未达成时由claimRefund按记录退回，提取后清零

// depositEscrow 记录一笔托管存款，同一贡献者累加
func depositEscrow(tx *gorm.DB, crowdsaleId int64, address string, amount *big.Int) error {
	address = chain.Normalize(address)

	var deposit model.DepositModel
	err := tx.Where("crowdsale_id = ? AND address = ?", crowdsaleId, address).First(&deposit).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		deposit = model.DepositModel{CrowdsaleId: crowdsaleId, Address: address}
		deposit.Amount.Add(&deposit.Amount.Int, amount)
		return tx.Create(&deposit).Error
	}
	if err != nil {
		return fmt.Errorf("查询托管存款失败: %w", err)
	}

	deposit.Amount.Add(&deposit.Amount.Int, amount)
	return tx.Model(&deposit).Update("amount", deposit.Amount).Error
}

// withdrawEscrow 提取贡献者的全部托管存款并清零
// 没有可提取的存款时返回错误
func withdrawEscrow(tx *gorm.DB, crowdsaleId int64, address string) (*big.Int, error) {
	address = chain.Normalize(address)

	var deposit model.DepositModel
	err := tx.Where("crowdsale_id = ? AND address = ?", crowdsaleId, address).First(&deposit).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: 没有可退款的存款", ErrInvalidState)
	}
	if err != nil {
		return nil, fmt.Errorf("查询托管存款失败: %w", err)
	}

	if deposit.Amount.Sign() <= 0 {
		return nil, fmt.Errorf("%w: 没有可退款的存款", ErrInvalidState)
	}

	amount := new(big.Int).Set(&deposit.Amount.Int)
	deposit.Amount.SetInt64(0)
	if err := tx.Model(&deposit).Update("amount", deposit.Amount).Error; err != nil {
		return nil, err
	}
	return amount, nil
}

// escrowDeposits 查询某轮众筹的全部托管记录
func escrowDeposits(tx *gorm.DB, crowdsaleId int64) ([]model.DepositModel, error) {
	var deposits []model.DepositModel
	err := tx.Where("crowdsale_id = ?", crowdsaleId).Order("id ASC").Find(&deposits).Error
	if err != nil {
		return nil, fmt.Errorf("查询托管存款失败: %w", err)
	}
	return deposits, nil
}

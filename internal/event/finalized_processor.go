package event

import (
	"fmt"

	"github.com/blues/ffb/internal/logger"
	"github.com/blues/ffb/internal/logic"
	"github.com/blues/ffb/internal/model"
	"gorm.io/gorm"
)

// FinalizedProcessor 结算事件处理器
// 对账：关闭状态下众筹账户应已清空
type FinalizedProcessor struct {
	db             *gorm.DB
	crowdsaleLogic *logic.CrowdsaleLogic
	accountLogic   *logic.AccountLogic
}

// NewFinalizedProcessor 创建结算事件处理器
func NewFinalizedProcessor(db *gorm.DB, crowdsaleLogic *logic.CrowdsaleLogic) *FinalizedProcessor {
	return &FinalizedProcessor{
		db:             db,
		crowdsaleLogic: crowdsaleLogic,
		accountLogic:   logic.NewAccountLogic(db),
	}
}

// Process 处理结算事件
func (p *FinalizedProcessor) Process(event *model.EventModel, data map[string]interface{}) error {
	cs, err := p.crowdsaleLogic.GetCrowdsale(event.ContractAddress)
	if err != nil {
		return err
	}

	balance, err := p.accountLogic.Balance(cs.Address)
	if err != nil {
		return err
	}

	switch cs.State {
	case model.CrowdsaleStateClosed:
		// 分账完成后合约账户不应再持有资金
		if balance.Sign() != 0 {
			return fmt.Errorf("crowdsale %d closed but still holds %s wei", cs.Id, balance.String())
		}
		logger.Info("Crowdsale %d settled, funds distributed", cs.Id)
	case model.CrowdsaleStateRefunding:
		// 退款池必须覆盖全部募集金额
		if balance.Cmp(&cs.WeiRaised.Int) < 0 {
			return fmt.Errorf("crowdsale %d refund pool %s below raised %s",
				cs.Id, balance.String(), cs.WeiRaised.String())
		}
		logger.Info("Crowdsale %d entered refunding with %s wei in escrow", cs.Id, balance.String())
	}

	return nil
}

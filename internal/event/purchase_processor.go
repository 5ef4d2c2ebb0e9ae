package event

import (
	"fmt"
	"math/big"

	"github.com/blues/ffb/internal/logger"
	"github.com/blues/ffb/internal/logic"
	"github.com/blues/ffb/internal/model"
	"gorm.io/gorm"
)

// PurchaseProcessor 购买事件处理器
// 对账：校验托管存款总额与已募集金额一致
type PurchaseProcessor struct {
	db             *gorm.DB
	crowdsaleLogic *logic.CrowdsaleLogic
}

// NewPurchaseProcessor 创建购买事件处理器
func NewPurchaseProcessor(db *gorm.DB, crowdsaleLogic *logic.CrowdsaleLogic) *PurchaseProcessor {
	return &PurchaseProcessor{
		db:             db,
		crowdsaleLogic: crowdsaleLogic,
	}
}

// Process 处理购买事件
func (p *PurchaseProcessor) Process(event *model.EventModel, data map[string]interface{}) error {
	cs, err := p.crowdsaleLogic.GetCrowdsale(event.ContractAddress)
	if err != nil {
		return err
	}

	deposits, err := p.crowdsaleLogic.GetDeposits(event.ContractAddress)
	if err != nil {
		return err
	}

	total := new(big.Int)
	for _, d := range deposits {
		total.Add(total, &d.Amount.Int)
	}

	// 退款开始后存款会被清零，只在进行中的轮次做对账
	if cs.State == model.CrowdsaleStateActive && total.Cmp(&cs.WeiRaised.Int) != 0 {
		return fmt.Errorf("escrow mismatch for crowdsale %d: deposits %s, raised %s",
			cs.Id, total.String(), cs.WeiRaised.String())
	}

	logger.Debug("Purchase on crowdsale %d verified: %v wei from %v",
		cs.Id, data["value"], data["purchaser"])
	return nil
}

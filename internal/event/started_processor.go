package event

import (
	"fmt"

	"github.com/blues/ffb/internal/chain"
	"github.com/blues/ffb/internal/logger"
	"github.com/blues/ffb/internal/logic"
	"github.com/blues/ffb/internal/model"
	"gorm.io/gorm"
)

// StartedProcessor 众筹启动事件处理器
// 对账：新轮次必须持有其代币的所有权
type StartedProcessor struct {
	db             *gorm.DB
	crowdsaleLogic *logic.CrowdsaleLogic
	tokenLogic     *logic.TokenLogic
}

// NewStartedProcessor 创建众筹启动事件处理器
func NewStartedProcessor(db *gorm.DB, crowdsaleLogic *logic.CrowdsaleLogic, tokenLogic *logic.TokenLogic) *StartedProcessor {
	return &StartedProcessor{
		db:             db,
		crowdsaleLogic: crowdsaleLogic,
		tokenLogic:     tokenLogic,
	}
}

// Process 处理众筹启动事件
func (p *StartedProcessor) Process(event *model.EventModel, data map[string]interface{}) error {
	address, ok := data["ffCrowdsale"].(string)
	if !ok {
		return fmt.Errorf("missing ffCrowdsale in event %d", event.Id)
	}

	cs, err := p.crowdsaleLogic.GetCrowdsale(address)
	if err != nil {
		return err
	}

	token, err := p.tokenLogic.GetToken(cs.TokenId)
	if err != nil {
		return err
	}

	// 代币所有权可能已随重启或关闭移交，只校验尚未链接下一轮的进行中轮次
	if cs.State == model.CrowdsaleStateActive && cs.NextRoundId == 0 {
		if !chain.SameAddress(token.Owner, cs.Address) {
			return fmt.Errorf("crowdsale %d does not own its token (owner %s)", cs.Id, token.Owner)
		}
	}

	logger.Info("Crowdsale %d (round %d) started at %s with token %s",
		cs.Id, cs.Round, cs.Address, token.Symbol)
	return nil
}

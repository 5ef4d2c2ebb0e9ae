package event

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/blues/ffb/internal/logger"
	"github.com/blues/ffb/internal/logic"
	"github.com/blues/ffb/internal/model"
	"github.com/panjf2000/ants/v2"
	"gorm.io/gorm"
)

// Processor 事件处理器接口
type Processor interface {
	Process(event *model.EventModel, data map[string]interface{}) error
}

// Dispatcher 事件分发器
// 轮询未处理事件，按合约分组后在协程池中并发分发给对应处理器
type Dispatcher struct {
	db         *gorm.DB
	eventLogic *logic.EventLogic
	processors map[string]Processor
	pool       *ants.Pool
	interval   time.Duration
	ctx        context.Context
	cancel     context.CancelFunc
}

// NewDispatcher 创建事件分发器
func NewDispatcher(db *gorm.DB, crowdsaleLogic *logic.CrowdsaleLogic, tokenLogic *logic.TokenLogic, poolSize int, interval time.Duration) (*Dispatcher, error) {
	if poolSize <= 0 {
		poolSize = 10
	}
	if interval <= 0 {
		interval = 60 * time.Second
	}

	pool, err := ants.NewPool(poolSize)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &Dispatcher{
		db:         db,
		eventLogic: logic.NewEventLogic(db),
		processors: map[string]Processor{
			model.EventTypeTokenPurchase:    NewPurchaseProcessor(db, crowdsaleLogic),
			model.EventTypeFinalized:        NewFinalizedProcessor(db, crowdsaleLogic),
			model.EventTypeCrowdsaleStarted: NewStartedProcessor(db, crowdsaleLogic, tokenLogic),
		},
		pool:     pool,
		interval: interval,
		ctx:      ctx,
		cancel:   cancel,
	}, nil
}

// Start 启动分发循环
func (d *Dispatcher) Start() {
	logger.Info("Starting event dispatcher (pool size %d)", d.pool.Cap())
	go d.loop()
}

// Stop 停止分发器
func (d *Dispatcher) Stop() {
	d.cancel()
	d.pool.Release()
	logger.Info("Event dispatcher stopped")
}

// loop 分发循环
func (d *Dispatcher) loop() {
	ticker := time.NewTicker(d.interval)
	defer ticker.Stop()

	for {
		select {
		case <-d.ctx.Done():
			return
		case <-ticker.C:
			if err := d.dispatchPending(); err != nil {
				logger.Error("Error dispatching events: %v", err)
			}
		}
	}
}

// dispatchPending 分发未处理事件
func (d *Dispatcher) dispatchPending() error {
	events, err := d.eventLogic.GetUnprocessedEvents(100)
	if err != nil {
		return err
	}
	if len(events) == 0 {
		return nil
	}

	logger.Debug("Dispatching %d pending events", len(events))

	// 按合约分组，同一合约的事件保持提交顺序串行处理
	byContract := make(map[string][]model.EventModel)
	for _, e := range events {
		byContract[e.ContractAddress] = append(byContract[e.ContractAddress], e)
	}

	var wg sync.WaitGroup
	for _, group := range byContract {
		group := group
		wg.Add(1)
		err := d.pool.Submit(func() {
			defer wg.Done()
			d.processGroup(group)
		})
		if err != nil {
			wg.Done()
			logger.Error("Failed to submit event group to pool: %v", err)
		}
	}
	wg.Wait()

	return nil
}

// processGroup 处理一个合约的事件组
func (d *Dispatcher) processGroup(events []model.EventModel) {
	for i := range events {
		e := &events[i]

		processor, ok := d.processors[e.EventType]
		if !ok {
			logger.Warn("Unknown event type: %s", e.EventType)
			// 未知类型直接标记，避免反复轮询
			if err := d.eventLogic.MarkProcessed(e.Id); err != nil {
				logger.Error("Failed to mark event %d: %v", e.Id, err)
			}
			continue
		}

		var data map[string]interface{}
		if err := json.Unmarshal([]byte(e.Data), &data); err != nil {
			logger.Error("Failed to unmarshal event %d data: %v", e.Id, err)
			// 坏载荷重试也不会成功，标记后跳过
			if err := d.eventLogic.MarkProcessed(e.Id); err != nil {
				logger.Error("Failed to mark event %d: %v", e.Id, err)
			}
			continue
		}

		if err := processor.Process(e, data); err != nil {
			logger.Error("Error processing event %d (%s): %v", e.Id, e.EventType, err)
			continue
		}

		if err := d.eventLogic.MarkProcessed(e.Id); err != nil {
			logger.Error("Failed to mark event %d as processed: %v", e.Id, err)
		}
	}
}

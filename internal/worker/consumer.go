package worker

import (
	"context"
	"encoding/json"

	"github.com/botmall-next/internal/logger"
	"github.com/botmall-next/internal/provider"
	"github.com/botmall-next/internal/queue"

	"github.com/hibiken/asynq"
)

// Consumer 异步任务消费者
type Consumer struct {
	*provider.Container
}

// NewConsumer 创建消费者
func NewConsumer(c *provider.Container) *Consumer {
	return &Consumer{
		Container: c,
	}
}

// Register 注册消费者
func (c *Consumer) Register(mux *asynq.ServeMux) {
	if c == nil || mux == nil {
		logger.Debugw("worker_register_skip_nil", "consumer_nil", c == nil, "mux_nil", mux == nil)
		return
	}
	mux.HandleFunc(queue.TaskCommissionSettle, c.handleCommissionSettle)
	mux.HandleFunc(queue.TaskCommissionRecompute, c.handleCommissionRecompute)
	mux.HandleFunc(queue.TaskReferralLinkBackfill, c.handleReferralLinkBackfill)
}

func (c *Consumer) handleCommissionSettle(_ context.Context, task *asynq.Task) error {
	if c == nil || task == nil {
		return nil
	}
	var payload queue.CommissionSettlePayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		logger.Warnw("worker_commission_settle_unmarshal_failed", "error", err)
		return err
	}
	if payload.OrderID == 0 {
		logger.Debugw("worker_commission_settle_skip_invalid_payload", "order_id", payload.OrderID)
		return nil
	}
	if err := c.CommissionService.SettleOrder(payload.OrderID); err != nil {
		logger.Warnw("worker_commission_settle_failed", "order_id", payload.OrderID, "error", err)
		return err
	}
	return nil
}

func (c *Consumer) handleCommissionRecompute(_ context.Context, task *asynq.Task) error {
	if c == nil || task == nil {
		return nil
	}
	var payload queue.CommissionRecomputePayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		logger.Warnw("worker_commission_recompute_unmarshal_failed", "error", err)
		return err
	}
	settled, err := c.CommissionService.RecomputeMissingCommissions(payload.Limit)
	if err != nil {
		logger.Warnw("worker_commission_recompute_failed", "error", err)
		return err
	}
	if settled > 0 {
		logger.Infow("worker_commission_recompute_done", "settled", settled)
	}
	return nil
}

func (c *Consumer) handleReferralLinkBackfill(_ context.Context, task *asynq.Task) error {
	if c == nil || task == nil {
		return nil
	}
	created, err := c.ReferralService.SyncEligibleUsers()
	if err != nil {
		logger.Warnw("worker_referral_backfill_failed", "error", err)
		return err
	}
	if created > 0 {
		logger.Infow("worker_referral_backfill_done", "created", created)
	}
	return nil
}

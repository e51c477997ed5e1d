package queue

import (
	"encoding/json"

	"github.com/botmall-next/internal/constants"

	"github.com/hibiken/asynq"
)

const (
	// TaskCommissionSettle 订单佣金结算任务
	TaskCommissionSettle = constants.TaskCommissionSettle
	// TaskCommissionRecompute 佣金补偿重算任务
	TaskCommissionRecompute = constants.TaskCommissionRecompute
	// TaskReferralLinkBackfill 推荐链接补发任务
	TaskReferralLinkBackfill = constants.TaskReferralLinkBackfill
)

// CommissionSettlePayload 佣金结算任务载荷
type CommissionSettlePayload struct {
	OrderID uint `json:"order_id"`
}

// CommissionRecomputePayload 佣金补偿重算任务载荷
type CommissionRecomputePayload struct {
	Limit int `json:"limit"`
}

// ReferralLinkBackfillPayload 推荐链接补发任务载荷
type ReferralLinkBackfillPayload struct{}

// NewCommissionSettleTask 创建佣金结算任务
func NewCommissionSettleTask(payload CommissionSettlePayload) (*asynq.Task, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskCommissionSettle, body), nil
}

// NewCommissionRecomputeTask 创建佣金补偿重算任务
func NewCommissionRecomputeTask(payload CommissionRecomputePayload) (*asynq.Task, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskCommissionRecompute, body), nil
}

// NewReferralLinkBackfillTask 创建推荐链接补发任务
func NewReferralLinkBackfillTask() (*asynq.Task, error) {
	body, err := json.Marshal(ReferralLinkBackfillPayload{})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskReferralLinkBackfill, body), nil
}

package queue

import (
	"encoding/json"

	"github.com/dujiao-next/voucher-engine/internal/constants"

	"github.com/hibiken/asynq"
)

const (
	// TaskVoucherRedeemed 优惠码核销后置任务
	TaskVoucherRedeemed = constants.TaskVoucherRedeemed
	// TaskVoucherReconcile 优惠码用量对账任务
	TaskVoucherReconcile = constants.TaskVoucherReconcile
)

// VoucherRedeemedPayload 核销后置任务载荷
type VoucherRedeemedPayload struct {
	UsageID   string  `json:"usage_id"`
	VoucherID string  `json:"voucher_id"`
	UserID    string  `json:"user_id"`
	OrderID   string  `json:"order_id"`
	Code      string  `json:"code"`
	ShopID    *string `json:"shop_id,omitempty"`
}

// VoucherReconcilePayload 对账任务载荷（VoucherID 为空表示全量）
type VoucherReconcilePayload struct {
	VoucherID string `json:"voucher_id,omitempty"`
}

// NewVoucherRedeemedTask 创建核销后置任务
func NewVoucherRedeemedTask(payload VoucherRedeemedPayload) (*asynq.Task, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskVoucherRedeemed, body), nil
}

// NewVoucherReconcileTask 创建对账任务
func NewVoucherReconcileTask(payload VoucherReconcilePayload) (*asynq.Task, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskVoucherReconcile, body), nil
}

// ParseVoucherRedeemedPayload 解析核销后置任务载荷
func ParseVoucherRedeemedPayload(body []byte) (VoucherRedeemedPayload, error) {
	var payload VoucherRedeemedPayload
	err := json.Unmarshal(body, &payload)
	return payload, err
}

// ParseVoucherReconcilePayload 解析对账任务载荷
func ParseVoucherReconcilePayload(body []byte) (VoucherReconcilePayload, error) {
	var payload VoucherReconcilePayload
	if len(body) == 0 {
		return payload, nil
	}
	err := json.Unmarshal(body, &payload)
	return payload, err
}

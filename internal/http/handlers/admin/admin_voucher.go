package admin

import (
	"time"

	handlershared "github.com/dujiao-next/voucher-engine/internal/http/handlers/shared"
	"github.com/dujiao-next/voucher-engine/internal/http/response"
	"github.com/dujiao-next/voucher-engine/internal/models"
	"github.com/dujiao-next/voucher-engine/internal/queue"
	"github.com/dujiao-next/voucher-engine/internal/repository"
	"github.com/dujiao-next/voucher-engine/internal/service"

	"github.com/gin-gonic/gin"
)

// CreateVoucherRequest 创建优惠码请求
type CreateVoucherRequest struct {
	Code              string        `json:"code" binding:"required,voucher_code"`
	ShopID            *string       `json:"shop_id"`
	Name              string        `json:"name" binding:"required"`
	Description       string        `json:"description"`
	Type              string        `json:"type" binding:"required"`
	Value             models.Money  `json:"value"`
	MaxDiscount       *models.Money `json:"max_discount"`
	MinOrderAmount    *models.Money `json:"min_order_amount"`
	UsageLimit        int           `json:"usage_limit" binding:"required,min=1"`
	UsageLimitPerUser int           `json:"usage_limit_per_user" binding:"required,min=1"`
	ValidFrom         string        `json:"valid_from" binding:"required"`
	ValidTo           string        `json:"valid_to" binding:"required"`
	IsActive          *bool         `json:"is_active"`
}

// UpdateVoucherRequest 更新优惠码请求，未传字段保持不变
type UpdateVoucherRequest struct {
	Code              *string       `json:"code"`
	ShopID            *string       `json:"shop_id"`
	Type              *string       `json:"type"`
	Name              *string       `json:"name"`
	Description       *string       `json:"description"`
	Value             *models.Money `json:"value"`
	MaxDiscount       *models.Money `json:"max_discount"`
	MinOrderAmount    *models.Money `json:"min_order_amount"`
	UsageLimit        *int          `json:"usage_limit"`
	UsageLimitPerUser *int          `json:"usage_limit_per_user"`
	ValidFrom         *string       `json:"valid_from"`
	ValidTo           *string       `json:"valid_to"`
	IsActive          *bool         `json:"is_active"`
}

// CreateVoucher 创建优惠码
func (h *Handler) CreateVoucher(c *gin.Context) {
	var req CreateVoucherRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	validFrom, err := handlershared.ParseTimeNullable(req.ValidFrom)
	if err != nil || validFrom == nil {
		respondError(c, response.CodeBadRequest, "error.voucher_window_invalid", err)
		return
	}
	validTo, err := handlershared.ParseTimeNullable(req.ValidTo)
	if err != nil || validTo == nil {
		respondError(c, response.CodeBadRequest, "error.voucher_window_invalid", err)
		return
	}

	voucher, err := h.VoucherAdminService.Create(c.Request.Context(), service.CreateVoucherInput{
		Code:              req.Code,
		ShopID:            req.ShopID,
		Name:              req.Name,
		Description:       req.Description,
		Type:              req.Type,
		Value:             req.Value,
		MaxDiscount:       req.MaxDiscount,
		MinOrderAmount:    req.MinOrderAmount,
		UsageLimit:        req.UsageLimit,
		UsageLimitPerUser: req.UsageLimitPerUser,
		ValidFrom:         *validFrom,
		ValidTo:           *validTo,
		IsActive:          req.IsActive,
	})
	if err != nil {
		respondVoucherError(c, err, "error.voucher_create_failed")
		return
	}

	response.Success(c, voucher)
}

// UpdateVoucher 更新优惠码
func (h *Handler) UpdateVoucher(c *gin.Context) {
	var req UpdateVoucherRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	validFrom, err := parseOptionalTime(req.ValidFrom)
	if err != nil {
		respondError(c, response.CodeBadRequest, "error.voucher_window_invalid", err)
		return
	}
	validTo, err := parseOptionalTime(req.ValidTo)
	if err != nil {
		respondError(c, response.CodeBadRequest, "error.voucher_window_invalid", err)
		return
	}

	voucher, err := h.VoucherAdminService.Update(c.Request.Context(), c.Param("id"), service.UpdateVoucherInput{
		Code:              req.Code,
		ShopID:            req.ShopID,
		Type:              req.Type,
		Name:              req.Name,
		Description:       req.Description,
		Value:             req.Value,
		MaxDiscount:       req.MaxDiscount,
		MinOrderAmount:    req.MinOrderAmount,
		UsageLimit:        req.UsageLimit,
		UsageLimitPerUser: req.UsageLimitPerUser,
		ValidFrom:         validFrom,
		ValidTo:           validTo,
		IsActive:          req.IsActive,
	})
	if err != nil {
		respondVoucherError(c, err, "error.voucher_update_failed")
		return
	}

	response.Success(c, voucher)
}

// DeleteVoucher 软删除优惠码
func (h *Handler) DeleteVoucher(c *gin.Context) {
	if err := h.VoucherAdminService.Delete(c.Request.Context(), c.Param("id")); err != nil {
		respondVoucherError(c, err, "error.voucher_delete_failed")
		return
	}
	response.Success(c, nil)
}

// GetVoucher 获取优惠码详情
func (h *Handler) GetVoucher(c *gin.Context) {
	voucher, err := h.VoucherAdminService.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondVoucherError(c, err, "error.voucher_fetch_failed")
		return
	}
	response.Success(c, voucher)
}

// GetVouchers 获取优惠码列表
func (h *Handler) GetVouchers(c *gin.Context) {
	page, pageSize := handlershared.QueryPagination(c)
	filter := repository.VoucherListFilter{
		Page:           page,
		PageSize:       pageSize,
		ShopID:         c.Query("shop_id"),
		PlatformOnly:   c.Query("platform_only") == "true",
		IsActive:       handlershared.QueryBool(c, "is_active"),
		Code:           c.Query("code"),
		Type:           c.Query("type"),
		IncludeDeleted: c.Query("include_deleted") == "true",
	}

	vouchers, total, err := h.VoucherAdminService.List(c.Request.Context(), filter)
	if err != nil {
		respondVoucherError(c, err, "error.voucher_fetch_failed")
		return
	}

	response.SuccessWithPage(c, vouchers, response.NewPagination(page, pageSize, total))
}

// GetVoucherUsages 获取优惠码核销记录
func (h *Handler) GetVoucherUsages(c *gin.Context) {
	page, pageSize := handlershared.QueryPagination(c)
	createdFrom, err := handlershared.ParseTimeNullable(c.Query("created_from"))
	if err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", err)
		return
	}
	createdTo, err := handlershared.ParseTimeNullable(c.Query("created_to"))
	if err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", err)
		return
	}

	ctx := c.Request.Context()
	voucher, err := h.VoucherAdminService.Get(ctx, c.Param("id"))
	if err != nil {
		respondVoucherError(c, err, "error.voucher_usage_fetch_failed")
		return
	}

	usages, total, err := h.UsageService.ListUsages(ctx, repository.VoucherUsageListFilter{
		Page:        page,
		PageSize:    pageSize,
		VoucherID:   voucher.ID,
		UserID:      c.Query("user_id"),
		OrderID:     c.Query("order_id"),
		CreatedFrom: createdFrom,
		CreatedTo:   createdTo,
	})
	if err != nil {
		respondError(c, response.CodeInternal, "error.voucher_usage_fetch_failed", err)
		return
	}

	response.SuccessWithPage(c, usages, response.NewPagination(page, pageSize, total))
}

// ReconcileVoucher 对账单个优惠码用量（只读报告）
func (h *Handler) ReconcileVoucher(c *gin.Context) {
	report, err := h.UsageService.ReconcileVoucher(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondVoucherError(c, err, "error.voucher_reconcile_failed")
		return
	}
	response.Success(c, report)
}

// ReconcileAllVouchers 触发全量用量对账，启用队列时异步执行
func (h *Handler) ReconcileAllVouchers(c *gin.Context) {
	if h.QueueClient.Enabled() {
		if err := h.QueueClient.EnqueueVoucherReconcile(queue.VoucherReconcilePayload{}, 0); err != nil {
			respondError(c, response.CodeInternal, "error.voucher_reconcile_failed", err)
			return
		}
		response.Success(c, gin.H{"queued": true})
		return
	}

	summary, err := h.UsageService.ReconcileAll(c.Request.Context())
	if err != nil {
		respondError(c, response.CodeInternal, "error.voucher_reconcile_failed", err)
		return
	}
	response.Success(c, gin.H{"queued": false, "summary": summary})
}

func parseOptionalTime(raw *string) (*time.Time, error) {
	if raw == nil {
		return nil, nil
	}
	return handlershared.ParseTimeNullable(*raw)
}

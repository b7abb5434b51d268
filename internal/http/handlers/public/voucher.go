package public

import (
	handlershared "github.com/dujiao-next/voucher-engine/internal/http/handlers/shared"
	"github.com/dujiao-next/voucher-engine/internal/http/response"
	"github.com/dujiao-next/voucher-engine/internal/models"
	"github.com/dujiao-next/voucher-engine/internal/service"

	"github.com/gin-gonic/gin"
)

// ValidateVoucherRequest 优惠码预校验请求
type ValidateVoucherRequest struct {
	Code     string       `json:"code" binding:"required"`
	ShopID   *string      `json:"shop_id"`
	UserID   string       `json:"user_id"`
	Subtotal models.Money `json:"subtotal"`
	ShipFee  models.Money `json:"ship_fee"`
}

// RedeemVoucherRequest 优惠码核销请求
type RedeemVoucherRequest struct {
	UserID         string       `json:"user_id"`
	OrderID        string       `json:"order_id" binding:"required"`
	DiscountAmount models.Money `json:"discount_amount"`
}

// RedeemVoucherResponse 核销结果
type RedeemVoucherResponse struct {
	Voucher  *models.Voucher `json:"voucher"`
	UsageID  string          `json:"usage_id"`
	Replayed bool            `json:"replayed"`
}

// ValidateVoucher 预校验优惠码并预估优惠金额，不修改任何状态
func (h *Handler) ValidateVoucher(c *gin.Context) {
	var req ValidateVoucherRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	result, err := h.VoucherService.ValidateVoucher(c.Request.Context(), service.ValidateVoucherInput{
		Code:     req.Code,
		ShopID:   req.ShopID,
		UserID:   getUserID(c, req.UserID),
		Subtotal: req.Subtotal,
		ShipFee:  req.ShipFee,
	})
	if err != nil {
		respondVoucherValidateError(c, err)
		return
	}

	response.Success(c, result)
}

// RedeemVoucher 订单确认后核销优惠码
func (h *Handler) RedeemVoucher(c *gin.Context) {
	var req RedeemVoucherRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}
	userID := getUserID(c, req.UserID)
	if userID == "" {
		respondError(c, response.CodeBadRequest, "error.voucher_redeem_invalid", nil)
		return
	}

	result, err := h.RedemptionService.RedeemVoucher(c.Request.Context(), service.RedeemVoucherInput{
		VoucherID:      c.Param("id"),
		UserID:         userID,
		OrderID:        req.OrderID,
		DiscountAmount: req.DiscountAmount,
	})
	if err != nil {
		respondVoucherRedeemError(c, err)
		return
	}

	response.Success(c, RedeemVoucherResponse{
		Voucher:  result.Voucher,
		UsageID:  result.UsageID,
		Replayed: result.Replayed,
	})
}

// GetAvailableVouchers 列出店铺与平台可用优惠码及当前用户剩余次数
func (h *Handler) GetAvailableVouchers(c *gin.Context) {
	items, err := h.VoucherService.ListAvailableVouchers(
		c.Request.Context(),
		handlershared.OptionalString(c.Query("shop_id")),
		getUserID(c, c.Query("user_id")),
	)
	if err != nil {
		respondError(c, response.CodeInternal, "error.voucher_fetch_failed", err)
		return
	}
	response.Success(c, items)
}

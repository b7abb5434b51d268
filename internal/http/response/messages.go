package response

import "strings"

var messages = map[string]string{
	"error.bad_request":                   "invalid request",
	"error.not_found":                     "resource not found",
	"error.rate_limit_unavailable":        "rate limiter unavailable, please retry later",
	"error.too_many_requests":             "too many requests, please retry later",
	"error.internal":                      "internal server error",
	"error.voucher_not_found":             "voucher not found",
	"error.voucher_invalid":               "voucher is invalid",
	"error.voucher_code_invalid":          "voucher code must be 6-10 letters or digits",
	"error.voucher_type_invalid":          "voucher type is not supported",
	"error.voucher_value_invalid":         "voucher value is out of range",
	"error.voucher_max_discount_required": "max discount is required for percentage vouchers",
	"error.voucher_limit_invalid":         "voucher usage limit is invalid",
	"error.voucher_window_invalid":        "voucher validity window is invalid",
	"error.voucher_code_exists":           "voucher code already exists",
	"error.voucher_redeem_invalid":        "redeem request is invalid",
	"error.voucher_immutable_field":       "code, shop and type cannot be changed",
	"error.voucher_total_limit_reached":   "voucher usage limit reached",
	"error.voucher_user_limit_reached":    "voucher already used the maximum number of times by this user",
	"error.voucher_redeem_conflict":       "voucher is busy, please retry",
	"error.voucher_create_failed":         "failed to create voucher",
	"error.voucher_update_failed":         "failed to update voucher",
	"error.voucher_delete_failed":         "failed to delete voucher",
	"error.voucher_fetch_failed":          "failed to fetch vouchers",
	"error.voucher_validate_failed":       "failed to validate voucher",
	"error.voucher_redeem_failed":         "failed to redeem voucher",
	"error.voucher_usage_fetch_failed":    "failed to fetch voucher usages",
	"error.voucher_reconcile_failed":      "failed to reconcile voucher usage",
}

// Message 根据消息键返回提示文案，未登记的键原样返回
func Message(key string) string {
	if msg, ok := messages[strings.TrimSpace(key)]; ok {
		return msg
	}
	return key
}

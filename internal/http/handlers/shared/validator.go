package shared

import (
	"errors"
	"sync"

	"github.com/dujiao-next/voucher-engine/internal/service"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

// TagVoucherCode 优惠码格式校验标签
const TagVoucherCode = "voucher_code"

var registerOnce sync.Once

// RegisterValidators 向 gin 默认校验器注册自定义标签，可重复调用。
func RegisterValidators() {
	registerOnce.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			return
		}
		_ = v.RegisterValidation(TagVoucherCode, func(fl validator.FieldLevel) bool {
			return service.ValidVoucherCode(fl.Field().String())
		})
	})
}

// BindErrorKey 将绑定错误映射为消息键，优惠码格式错误单独提示。
func BindErrorKey(err error) string {
	var validationErrs validator.ValidationErrors
	if errors.As(err, &validationErrs) {
		for _, fieldErr := range validationErrs {
			if fieldErr.Tag() == TagVoucherCode {
				return "error.voucher_code_invalid"
			}
		}
	}
	return "error.bad_request"
}

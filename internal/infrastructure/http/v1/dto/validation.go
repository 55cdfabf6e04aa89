package dto

import (
	"reflect"
	"strings"
	"sync"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"buildledger/internal/core/types"
)

var registerOnce sync.Once

// RegisterValidators adds the money and quantity rules to gin's validator:
//
//	money_pos     decimal > 0
//	money_nonneg  decimal >= 0
//	qty_pos       quantity > 0
//
// decimal.Decimal is a struct, so it is exposed to the validator as its
// string form. Field errors are named after the json (or form) tag.
func RegisterValidators() {
	registerOnce.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			return
		}
		v.RegisterTagNameFunc(wireName)
		v.RegisterCustomTypeFunc(func(field reflect.Value) any {
			if d, ok := field.Interface().(decimal.Decimal); ok {
				return d.String()
			}
			return nil
		}, decimal.Decimal{})

		_ = v.RegisterValidation("money_pos", func(fl validator.FieldLevel) bool {
			d, ok := money(fl)
			return ok && d.IsPositive()
		})
		_ = v.RegisterValidation("money_nonneg", func(fl validator.FieldLevel) bool {
			d, ok := money(fl)
			return ok && !d.IsNegative()
		})
		_ = v.RegisterValidation("qty_pos", func(fl validator.FieldLevel) bool {
			q, ok := fl.Field().Interface().(types.Quantity)
			return ok && q.IsPositive()
		})
	})
}

func wireName(f reflect.StructField) string {
	for _, key := range []string{"json", "form"} {
		name, _, _ := strings.Cut(f.Tag.Get(key), ",")
		if name == "-" {
			return ""
		}
		if name != "" {
			return name
		}
	}
	return f.Name
}

func money(fl validator.FieldLevel) (decimal.Decimal, bool) {
	switch v := fl.Field().Interface().(type) {
	case decimal.Decimal:
		return v, true
	case string:
		d, err := decimal.NewFromString(v)
		return d, err == nil
	default:
		return decimal.Zero, false
	}
}

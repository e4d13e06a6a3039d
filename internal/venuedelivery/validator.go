package venuedelivery

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/go-playground/validator/v10"
)

// ValidAddress validates whether the field is a hex encoded EVM address.
var ValidAddress validator.Func = func(fl validator.FieldLevel) bool {
	if addr, ok := fl.Field().Interface().(string); ok {
		return common.IsHexAddress(addr)
	}
	return false
}

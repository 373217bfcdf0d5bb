package http

import (
	"fmt"
	"slices"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

const taskKindTag = "taskkind"

// RegisterValidators adds the taskkind rule to gin's validator.
func RegisterValidators(kinds []string) error {
	v, ok := binding.Validator.Engine().(*validator.Validate)
	if !ok {
		return fmt.Errorf("unexpected validator engine %T", binding.Validator.Engine())
	}
	allowed := slices.Clone(kinds)
	return v.RegisterValidation(taskKindTag, func(fl validator.FieldLevel) bool {
		return slices.Contains(allowed, fl.Field().String())
	})
}

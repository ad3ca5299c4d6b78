package rest

import (
	"sync"

	"github.com/dentscan/dentclaim/account"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

var registerOnce sync.Once

// registerValidators adds the custom binding tags used by request structs.
func registerValidators() {
	registerOnce.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			return
		}
		_ = v.RegisterValidation("strongpwd", func(fl validator.FieldLevel) bool {
			return account.StrongPassword(fl.Field().String())
		})
	})
}

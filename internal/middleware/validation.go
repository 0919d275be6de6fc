package middleware

import (
	"reflect"
	"strings"
	"time"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	"github.com/sitebeam/notify-service/internal/model"
)

// RegisterValidations wires domain validators into gin's binding engine
// so request structs can carry them as binding tags. Tags: clock (HH:MM
// wall time), tz (IANA zone name), platform (known device platform).
func RegisterValidations() error {
	v, ok := binding.Validator.Engine().(*validator.Validate)
	if !ok {
		return nil
	}

	// Report field names from json tags so validation errors match the
	// request body the caller sent.
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return fld.Name
		}
		return name
	})

	validations := map[string]validator.Func{
		"clock": func(fl validator.FieldLevel) bool {
			_, err := time.Parse("15:04", fl.Field().String())
			return err == nil
		},
		"tz": func(fl validator.FieldLevel) bool {
			_, err := time.LoadLocation(fl.Field().String())
			return err == nil
		},
		"platform": func(fl validator.FieldLevel) bool {
			return model.DevicePlatform(fl.Field().String()).Valid()
		},
	}
	for tag, fn := range validations {
		if err := v.RegisterValidation(tag, fn); err != nil {
			return err
		}
	}
	return nil
}

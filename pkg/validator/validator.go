package validator

import (
	"fmt"
	"regexp"

	v10 "github.com/go-playground/validator/v10"
)

var timeOfDayRe = regexp.MustCompile(`^([01][0-9]|2[0-3]):[0-5][0-9]$`)

// Validator validates request structs via `validate` tags.
type Validator interface {
	Validate(interface{}) error
}

type validator struct {
	v *v10.Validate
}

func New() Validator {
	v := v10.New()
	// timeofday validates HH:mm reminder times.
	_ = v.RegisterValidation("timeofday", func(fl v10.FieldLevel) bool {
		return timeOfDayRe.MatchString(fl.Field().String())
	})
	return &validator{v: v}
}

func (val *validator) Validate(obj interface{}) error {
	if err := val.v.Struct(obj); err != nil {
		var errs v10.ValidationErrors
		if ok := asValidationErrors(err, &errs); ok && len(errs) > 0 {
			first := errs[0]
			return fmt.Errorf("field %s failed %s validation", first.Field(), first.Tag())
		}
		return err
	}
	return nil
}

func asValidationErrors(err error, target *v10.ValidationErrors) bool {
	errs, ok := err.(v10.ValidationErrors)
	if ok {
		*target = errs
	}
	return ok
}

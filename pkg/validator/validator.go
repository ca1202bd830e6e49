package validator

import (
	"fmt"
	"regexp"

	"github.com/go-playground/validator/v10"
)

var dateRe = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)
var timeRe = regexp.MustCompile(`^\d{2}:\d{2}(:\d{2})?$`)

// Validator validates request structs using `validate` tags plus the
// calendar-date and slot-time formats the booking API uses.
type Validator struct {
	v *validator.Validate
}

func New() *Validator {
	v := validator.New()
	// register calendardate/slottime for appointment payloads
	_ = v.RegisterValidation("calendardate", func(fl validator.FieldLevel) bool {
		return dateRe.MatchString(fl.Field().String())
	})
	_ = v.RegisterValidation("slottime", func(fl validator.FieldLevel) bool {
		return timeRe.MatchString(fl.Field().String())
	})
	return &Validator{v: v}
}

func (va *Validator) Struct(s interface{}) error {
	if err := va.v.Struct(s); err != nil {
		if verrs, ok := err.(validator.ValidationErrors); ok && len(verrs) > 0 {
			fe := verrs[0]
			return fmt.Errorf("field %s failed validation on %s", fe.Field(), fe.Tag())
		}
		return err
	}
	return nil
}

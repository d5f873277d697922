package schedule

import (
	"github.com/go-playground/validator/v10"

	"github.com/trezcool/ratiba/core"
)

var (
	weekdayTag  = "weekday"
	weekdayText = "must be one of MONDAY, TUESDAY, WEDNESDAY, THURSDAY, FRIDAY, SATURDAY, SUNDAY"

	hhmmTag  = "hhmm"
	hhmmText = "must be a valid time in HH:mm format"
)

func init() {
	// register validators
	_ = core.Validate.RegisterValidation(weekdayTag, weekdayValidation)
	core.RegisterCustomTranslation(weekdayTag, weekdayText)

	_ = core.Validate.RegisterValidation(hhmmTag, hhmmValidation)
	core.RegisterCustomTranslation(hhmmTag, hhmmText)
}

// Custom Validators

// weekdayValidation checks that the provided day is a canonical Weekday.
func weekdayValidation(fl validator.FieldLevel) bool {
	return Weekday(fl.Field().String()).Valid()
}

// hhmmValidation checks that the provided time parses as wall-clock HH:mm.
func hhmmValidation(fl validator.FieldLevel) bool {
	_, err := ParseMinutes(fl.Field().String())
	return err == nil
}

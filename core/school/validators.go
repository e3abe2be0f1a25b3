package school

import (
	"regexp"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/gestiabsences/backend/core"
)

var (
	hhmmTag   = "hhmm"
	hhmmText  = "l'heure doit être au format HH:MM"
	hhmmRegex = regexp.MustCompile(`^([01]\d|2[0-3]):[0-5]\d(:[0-5]\d)?$`)

	dateTag  = "datetime"
	dateText = "la date doit être au format AAAA-MM-JJ"
)

// InitValidators registers the school validators and their translations.
func InitValidators(validate *validator.Validate, translator ut.Translator) {
	_ = validate.RegisterValidation(hhmmTag, hhmmValidation)
	core.RegisterCustomTranslation(validate, translator, hhmmTag, hhmmText)
	core.RegisterCustomTranslation(validate, translator, dateTag, dateText, true)
}

// hhmmValidation accepts wall-clock times as HH:MM or HH:MM:SS.
func hhmmValidation(fl validator.FieldLevel) bool {
	return hhmmRegex.MatchString(fl.Field().String())
}

// Package bind decodes request bodies and validates them with
// go-playground/validator, reporting failures as perr codes with the
// offending json field attached
package bind

import (
	"errors"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	entrans "github.com/go-playground/validator/v10/translations/en"
	"golang.org/x/text/language"

	perr "linkshell/internal/platform/errors"
	"linkshell/internal/platform/logger"
)

var (
	setupOnce sync.Once
	validate  *validator.Validate
	english   ut.Translator
)

// messages replace the stock english text for these tags
var messages = map[string]string{
	"min":  "{0} must be at least {1}",
	"max":  "{0} must be at most {1}",
	"lang": "{0} must be auto or a language tag such as en or ja",
}

func setup() {
	loc := en.New()
	english, _ = ut.New(loc, loc).GetTranslator("en")

	validate = validator.New(validator.WithRequiredStructEnabled())
	validate.RegisterTagNameFunc(jsonName)
	_ = entrans.RegisterDefaultTranslations(validate, english)
	_ = validate.RegisterValidation("lang", func(fl validator.FieldLevel) bool {
		return ValidLang(fl.Field().String())
	})

	for tag, text := range messages {
		_ = validate.RegisterTranslation(tag, english,
			func(t ut.Translator) error { return t.Add(tag, text, true) },
			func(t ut.Translator, fe validator.FieldError) string {
				msg, _ := t.T(fe.Tag(), fe.Field(), fe.Param())
				return msg
			},
		)
	}
}

// jsonName reports fields by their json name. Untagged and "-" fields keep the Go name
func jsonName(f reflect.StructField) string {
	name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
	if name == "" || name == "-" {
		return f.Name
	}
	return name
}

// Validate checks v's validate tags. The first failing field becomes the
// error's Field and its english message the error text
func Validate(v any) error {
	setupOnce.Do(setup)
	err := validate.Struct(v)
	if err == nil {
		return nil
	}
	var invalid *validator.InvalidValidationError
	if errors.As(err, &invalid) {
		logger.Named("bind").Error().Err(err).Type("value", v).Msg("value cannot be validated")
		return perr.JSONErrf("validation error")
	}
	field, msg := firstFailure(err)
	return perr.WithField(perr.Newf(perr.ErrorCodeValidation, "%s", msg), field)
}

func firstFailure(err error) (field, msg string) {
	var fails validator.ValidationErrors
	if errors.As(err, &fails) && len(fails) > 0 {
		return fails[0].Field(), fails[0].Translate(english)
	}
	return "", err.Error()
}

// ValidLang accepts "auto" in any case or a well formed BCP 47 tag
func ValidLang(s string) bool {
	s = strings.TrimSpace(s)
	if strings.EqualFold(s, "auto") {
		return true
	}
	_, err := language.Parse(s)
	return s != "" && err == nil
}

package config

import (
	"errors"
	"reflect"
	"strings"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	en_translations "github.com/go-playground/validator/v10/translations/en"
)

var validate *validator.Validate
var translator ut.Translator

func init() {
	validate = validator.New()
	var ok bool
	translator, ok = ut.New(en.New(), en.New()).GetTranslator("en")
	if !ok {
		panic("config: failed to get 'en' translator")
	}

	if err := en_translations.RegisterDefaultTranslations(validate, translator); err != nil {
		panic(err)
	}

	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("mapstructure"), ",", 2)[0]
		if name == "-" {
			return ""
		}

		return name
	})
}

func validateStruct(val any) error {
	if err := validate.Struct(val); err != nil {
		var verrors validator.ValidationErrors
		if !errors.As(err, &verrors) {
			return err
		}

		var fields FieldErrors
		for _, verror := range verrors {
			fields = append(fields, FieldError{
				Field: strings.TrimPrefix(verror.Namespace(), "Config."),
				Err:   verror.Translate(translator),
			})
		}
		return fields
	}

	return nil
}

// FieldError represents a single invalid setting.
type FieldError struct {
	Field string
	Err   string
}

// FieldErrors represents a collection of field errors.
type FieldErrors []FieldError

// Error implements the error interface, returning a human-readable
// summary of all field errors.
func (fe FieldErrors) Error() string {
	parts := make([]string, len(fe))
	for i, f := range fe {
		parts[i] = f.Field + ": " + f.Err
	}
	return strings.Join(parts, "; ")
}

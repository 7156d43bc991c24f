package validator

import (
	"errors"
	"strings"
	"unicode"

	val "github.com/go-playground/validator/v10"
)

//nolint:gochecknoglobals
var messages = map[string]string{
	"required":    "{field} is required",
	"email":       "{field} must be a valid email address",
	"oneof":       "{field} must be one of {param}",
	"gt":          "{field} must be greater than {param}",
	"gte":         "{field} must be greater than or equal to {param}",
	"lte":         "{field} must be less than or equal to {param}",
	"min":         "{field} must be at least {param}",
	"max":         "{field} must be at most {param}",
	"gtfield":     "{field} must be after {param}",
	"phone":       "{field} must be a valid phone number",
	"jsonarray":   "{field} must be a JSON array",
	"mimetypes":   "{field} must be one of {param}",
	"maxfilesize": "{field} must not exceed {param} MB",
}

// message renders the first rule violation with a known template. Unknown
// tags fall back to the validator's own text.
func message(err error) string {
	var errs val.ValidationErrors
	if !errors.As(err, &errs) {
		return err.Error()
	}

	for _, fieldErr := range errs {
		template, ok := messages[fieldErr.Tag()]
		if !ok {
			continue
		}

		param := fieldErr.Param()
		if strings.HasSuffix(fieldErr.Tag(), "field") {
			param = snakeCase(param)
		}

		return strings.NewReplacer("{field}", fieldErr.Field(), "{param}", param).Replace(template)
	}

	return errs.Error()
}

// snakeCase turns a struct field name such as DateStart into date_start, which
// is how cross-field params appear in the payload.
func snakeCase(name string) string {
	var b strings.Builder

	for i, r := range name {
		if unicode.IsUpper(r) {
			if i > 0 {
				b.WriteByte('_')
			}

			r = unicode.ToLower(r)
		}

		b.WriteRune(r)
	}

	return b.String()
}

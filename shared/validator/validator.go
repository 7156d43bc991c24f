package validator

import (
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"reflect"
	"regexp"
	"slices"
	"strconv"
	"strings"

	"hotel/shared/constant"
	"hotel/shared/failure"

	val "github.com/go-playground/validator/v10"
)

const bytesPerMB = 1 << 20

//nolint:gochecknoglobals
var (
	validate *val.Validate

	phonePattern = regexp.MustCompile(`^\+?[0-9][0-9 ()-]{5,19}$`)

	customRules = map[string]val.Func{
		"mimetypes":   mimeTypes,
		"maxfilesize": maxFileSize,
		"phone":       phone,
		"jsonarray":   jsonArray,
	}
)

func init() {
	validate = val.New(val.WithRequiredStructEnabled())
	validate.RegisterTagNameFunc(jsonTagName)

	for tag, rule := range customRules {
		if err := validate.RegisterValidation(tag, rule); err != nil {
			panic(fmt.Sprintf("register %s validation: %v", tag, err))
		}
	}
}

// Validate decodes a JSON body into data and validates it. Both decode and
// rule failures come back as 400 failures.
func Validate[T any](r io.Reader, data *T) error {
	if err := json.NewDecoder(r).Decode(data); err != nil {
		return failure.BadRequest(fmt.Errorf("failed to decode request body: %w", err)) //nolint:wrapcheck
	}

	return ValidateStruct(data)
}

func ValidateStruct[T any](data *T) error {
	if err := validate.Struct(data); err != nil {
		return failure.BadRequestFromString(message(err)) //nolint:wrapcheck
	}

	return nil
}

func ValidateVar(field any, tag string) error {
	if err := validate.Var(field, tag); err != nil {
		return failure.BadRequestFromString(message(err)) //nolint:wrapcheck
	}

	return nil
}

// jsonTagName reports fields by their JSON name so messages match the payload.
func jsonTagName(field reflect.StructField) string {
	name, _, _ := strings.Cut(field.Tag.Get("json"), ",")

	switch name {
	case "-":
		return ""
	case "":
		return field.Name
	default:
		return name
	}
}

func uploadedFile(field val.FieldLevel) *multipart.FileHeader {
	switch file := field.Field().Interface().(type) {
	case multipart.FileHeader:
		return &file
	case *multipart.FileHeader:
		return file
	default:
		return nil
	}
}

// mimeTypes checks the part's Content-Type against a space separated list.
func mimeTypes(field val.FieldLevel) bool {
	file := uploadedFile(field)
	if file == nil {
		return false
	}

	return slices.Contains(strings.Fields(field.Param()), file.Header.Get(constant.RequestHeaderContentType))
}

// maxFileSize takes its limit in megabytes, fractions allowed.
func maxFileSize(field val.FieldLevel) bool {
	file := uploadedFile(field)
	if file == nil {
		return false
	}

	limit, err := strconv.ParseFloat(field.Param(), 64)
	if err != nil {
		return false
	}

	return file.Size <= int64(limit*bytesPerMB)
}

func phone(field val.FieldLevel) bool {
	return phonePattern.MatchString(field.Field().String())
}

// jsonArray accepts raw JSON fields ([]byte kinds) holding an array.
func jsonArray(field val.FieldLevel) bool {
	value := field.Field()
	if value.Kind() != reflect.Slice || value.Type().Elem().Kind() != reflect.Uint8 {
		return false
	}

	var items []json.RawMessage

	return json.Unmarshal(value.Bytes(), &items) == nil
}

package validate

import (
	"errors"
	"net/mail"
	"reflect"
	"strconv"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/bigyanadk07/BugTracker/apperr"
)

// FieldError describes a validation failure for a field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// Errors holds every field error found in one payload.
type Errors struct {
	Fields []FieldError
}

// Error implements the error interface.
func (e *Errors) Error() string {
	return "validation failed"
}

// ValidatorFunc validates a field with an optional parameter.
type ValidatorFunc func(label string, value reflect.Value, param string) *FieldError

var (
	validatorsMu sync.RWMutex
	validators   = map[string]ValidatorFunc{}
)

// Register adds a custom validator by name.
func Register(name string, fn ValidatorFunc) {
	name = strings.TrimSpace(name)
	if name == "" || fn == nil {
		return
	}
	validatorsMu.Lock()
	validators[name] = fn
	validatorsMu.Unlock()
}

func lookupValidator(name string) ValidatorFunc {
	validatorsMu.RLock()
	fn := validators[name]
	validatorsMu.RUnlock()
	return fn
}

// As extracts validation errors if present.
func As(err error) (*Errors, bool) {
	if err == nil {
		return nil, false
	}
	var verr *Errors
	if errors.As(err, &verr) {
		return verr, true
	}
	return nil, false
}

// Struct validates exported fields using `validate` tags.
//
// Supported rules: required, email, min=N, max=N, oneof=A|B|C and uuid.
// A nil pointer field is skipped unless it is required, so partial update
// payloads only validate what they carry. The optional `label` tag names the
// field in messages; otherwise the json name is used.
func Struct(value any) error {
	rv := reflect.ValueOf(value)
	if !rv.IsValid() {
		return nil
	}
	if rv.Kind() == reflect.Pointer {
		if rv.IsNil() {
			return nil
		}
		rv = rv.Elem()
	}
	if rv.Kind() != reflect.Struct {
		return nil
	}

	rt := rv.Type()
	var errs []FieldError

	for i := 0; i < rv.NumField(); i++ {
		field := rt.Field(i)
		if field.PkgPath != "" {
			continue
		}
		tag := field.Tag.Get("validate")
		if tag == "" {
			continue
		}

		name := fieldName(field)
		label := field.Tag.Get("label")
		if label == "" {
			label = name
		}
		rules := strings.Split(tag, ",")
		fieldValue := rv.Field(i)

		if fieldValue.Kind() == reflect.Pointer {
			if fieldValue.IsNil() {
				if hasRule(rules, "required") {
					errs = append(errs, FieldError{Field: name, Message: label + " is required"})
				}
				continue
			}
			fieldValue = fieldValue.Elem()
		}

		for _, rule := range rules {
			ruleName, param := splitRule(rule)
			var ferr *FieldError
			switch ruleName {
			case "":
				continue
			case "required":
				if isBlank(fieldValue) {
					ferr = &FieldError{Message: label + " is required"}
				}
			case "email":
				if fieldValue.Kind() == reflect.String && fieldValue.String() != "" {
					if _, err := mail.ParseAddress(fieldValue.String()); err != nil {
						ferr = &FieldError{Message: "Please provide a valid email"}
					}
				}
			case "min":
				ferr = validateMin(label, fieldValue, param)
			case "max":
				ferr = validateMax(label, fieldValue, param)
			case "oneof":
				ferr = validateOneOf(label, fieldValue, param)
			case "uuid":
				if fieldValue.Kind() == reflect.String && fieldValue.String() != "" {
					if _, err := uuid.Parse(fieldValue.String()); err != nil {
						ferr = &FieldError{Message: label + " must be a valid id"}
					}
				}
			default:
				if fn := lookupValidator(ruleName); fn != nil {
					ferr = fn(label, fieldValue, param)
				}
			}
			if ferr != nil {
				ferr.Field = name
				errs = append(errs, *ferr)
				// Report one failure per field.
				break
			}
		}
	}

	if len(errs) > 0 {
		return apperr.Validation(errs[0].Message, &Errors{Fields: errs})
	}
	return nil
}

func fieldName(field reflect.StructField) string {
	if tag := field.Tag.Get("json"); tag != "" {
		name := strings.Split(tag, ",")[0]
		if name != "" && name != "-" {
			return name
		}
	}
	return field.Name
}

func splitRule(rule string) (string, string) {
	name, param, _ := strings.Cut(strings.TrimSpace(rule), "=")
	return strings.TrimSpace(name), strings.TrimSpace(param)
}

func hasRule(rules []string, name string) bool {
	for _, rule := range rules {
		if ruleName, _ := splitRule(rule); ruleName == name {
			return true
		}
	}
	return false
}

func isBlank(value reflect.Value) bool {
	if !value.IsValid() {
		return true
	}
	if value.Kind() == reflect.String {
		return strings.TrimSpace(value.String()) == ""
	}
	return value.IsZero()
}

func validateMin(label string, value reflect.Value, param string) *FieldError {
	min, err := strconv.Atoi(param)
	if err != nil {
		return &FieldError{Message: label + " is invalid"}
	}
	switch value.Kind() {
	case reflect.String:
		if utf8.RuneCountInString(value.String()) < min {
			return &FieldError{Message: label + " must be at least " + param + " characters"}
		}
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		if value.Int() < int64(min) {
			return &FieldError{Message: label + " must be at least " + param}
		}
	case reflect.Slice, reflect.Map:
		if value.Len() < min {
			return &FieldError{Message: label + " must have at least " + param + " items"}
		}
	}
	return nil
}

func validateMax(label string, value reflect.Value, param string) *FieldError {
	max, err := strconv.Atoi(param)
	if err != nil {
		return &FieldError{Message: label + " is invalid"}
	}
	switch value.Kind() {
	case reflect.String:
		if utf8.RuneCountInString(value.String()) > max {
			return &FieldError{Message: label + " cannot be more than " + param + " characters"}
		}
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		if value.Int() > int64(max) {
			return &FieldError{Message: label + " must be at most " + param}
		}
	case reflect.Slice, reflect.Map:
		if value.Len() > max {
			return &FieldError{Message: label + " cannot have more than " + param + " items"}
		}
	}
	return nil
}

func validateOneOf(label string, value reflect.Value, param string) *FieldError {
	if value.Kind() != reflect.String || value.String() == "" {
		return nil
	}
	options := strings.Split(param, "|")
	for _, option := range options {
		if value.String() == option {
			return nil
		}
	}
	return &FieldError{Message: label + " must be one of: " + strings.Join(options, ", ")}
}

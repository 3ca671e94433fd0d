package middleware

import (
	"fmt"
	"net/http"
	"net/url"
	"reflect"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"

	apierrors "github.com/bruceeconomista/balanca-comercial-sc-v2/internal/errors"
)

// QueryValidator decodes URL query parameters into tagged structs and
// validates them with go-playground/validator.
//
// Fields are bound by their `query` tag. Supported kinds are string, int,
// bool and slices of string or int. Slice values may be repeated
// (?year=2023&year=2024); int slices and string slices tagged
// `query:"levels,comma"` also accept comma lists (?year=2023,2024).
type QueryValidator struct {
	validator *validator.Validate
}

// NewQueryValidator creates a validator that reports fields by query name
func NewQueryValidator() *QueryValidator {
	v := validator.New()

	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("query"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	_ = v.RegisterValidation("uf", isUF)
	_ = v.RegisterValidation("digits", isDigits)

	return &QueryValidator{validator: v}
}

// Bind decodes r's query string into dst (a pointer to struct) and validates it.
// The returned error is an *apierrors.APIError ready for the error handler.
func (q *QueryValidator) Bind(r *http.Request, dst interface{}) error {
	if err := decodeQuery(r.URL.Query(), dst); err != nil {
		return err
	}
	return q.ValidateStruct(dst)
}

// ValidateStruct validates a struct and returns validation errors
func (q *QueryValidator) ValidateStruct(v interface{}) error {
	err := q.validator.Struct(v)
	if err == nil {
		return nil
	}

	fieldErrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return apierrors.InvalidRequestWithError(err)
	}

	validationErrors := make([]apierrors.ValidationError, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		validationErrors = append(validationErrors, apierrors.ValidationError{
			Field:   fe.Field(),
			Message: formatValidationError(fe),
		})
	}
	return apierrors.NewValidationErrors(validationErrors)
}

func decodeQuery(values url.Values, dst interface{}) error {
	rv := reflect.ValueOf(dst)
	if rv.Kind() != reflect.Ptr || rv.Elem().Kind() != reflect.Struct {
		return fmt.Errorf("decodeQuery: destination must be a pointer to struct, got %T", dst)
	}
	rv = rv.Elem()
	rt := rv.Type()

	var errs []apierrors.ValidationError

	for i := 0; i < rt.NumField(); i++ {
		field := rt.Field(i)
		tag := strings.Split(field.Tag.Get("query"), ",")
		name := tag[0]
		if name == "" || name == "-" {
			continue
		}

		raw, present := values[name]
		if !present {
			continue
		}
		parts := splitValues(raw, isIntSlice(field.Type) || hasOption(tag[1:], "comma"))
		if len(parts) == 0 {
			continue
		}

		if err := setField(rv.Field(i), parts); err != nil {
			errs = append(errs, apierrors.ValidationError{Field: name, Message: err.Error()})
		}
	}

	if len(errs) > 0 {
		return apierrors.NewValidationErrors(errs)
	}
	return nil
}

// splitValues drops blank values. Comma lists are only expanded for int
// slices and fields tagged `query:"name,comma"`; free text such as country
// names may contain commas, so other string lists come from repeated
// parameters.
func splitValues(raw []string, commaLists bool) []string {
	var out []string
	for _, v := range raw {
		parts := []string{v}
		if commaLists {
			parts = strings.Split(v, ",")
		}
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				out = append(out, p)
			}
		}
	}
	return out
}

func hasOption(options []string, want string) bool {
	for _, o := range options {
		if o == want {
			return true
		}
	}
	return false
}

func isIntSlice(t reflect.Type) bool {
	return t.Kind() == reflect.Slice && t.Elem().Kind() == reflect.Int
}

func setField(fv reflect.Value, parts []string) error {
	switch fv.Kind() {
	case reflect.String:
		fv.SetString(parts[0])
	case reflect.Int:
		n, err := strconv.Atoi(parts[0])
		if err != nil {
			return fmt.Errorf("must be an integer")
		}
		fv.SetInt(int64(n))
	case reflect.Bool:
		b, err := strconv.ParseBool(parts[0])
		if err != nil {
			return fmt.Errorf("must be true or false")
		}
		fv.SetBool(b)
	case reflect.Slice:
		switch fv.Type().Elem().Kind() {
		case reflect.String:
			fv.Set(reflect.ValueOf(parts))
		case reflect.Int:
			ints := make([]int, 0, len(parts))
			for _, p := range parts {
				n, err := strconv.Atoi(p)
				if err != nil {
					return fmt.Errorf("must be a list of integers")
				}
				ints = append(ints, n)
			}
			fv.Set(reflect.ValueOf(ints))
		default:
			return fmt.Errorf("unsupported list type")
		}
	default:
		return fmt.Errorf("unsupported parameter type")
	}
	return nil
}

func formatValidationError(err validator.FieldError) string {
	field := err.Field()
	param := err.Param()

	switch err.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "min":
		return fmt.Sprintf("%s must be at least %s", field, param)
	case "max":
		return fmt.Sprintf("%s must be at most %s", field, param)
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", field, strings.ReplaceAll(param, " ", ", "))
	case "gte":
		return fmt.Sprintf("%s must be greater than or equal to %s", field, param)
	case "lte":
		return fmt.Sprintf("%s must be less than or equal to %s", field, param)
	case "uf":
		return fmt.Sprintf("%s must be a two-letter state code", field)
	case "digits":
		return fmt.Sprintf("%s must contain only digits", field)
	case "dive":
		return fmt.Sprintf("%s has an invalid element", field)
	default:
		return fmt.Sprintf("%s failed %s validation", field, err.Tag())
	}
}

// isUF accepts a two letter Brazilian state abbreviation
func isUF(fl validator.FieldLevel) bool {
	s := fl.Field().String()
	if len(s) != 2 {
		return false
	}
	for _, ch := range s {
		if (ch < 'A' || ch > 'Z') && (ch < 'a' || ch > 'z') {
			return false
		}
	}
	return true
}

func isDigits(fl validator.FieldLevel) bool {
	s := fl.Field().String()
	for _, ch := range s {
		if ch < '0' || ch > '9' {
			return false
		}
	}
	return true
}

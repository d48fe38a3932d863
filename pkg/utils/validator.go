package utils

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"

	"logmene/internal/models"

	"github.com/go-playground/validator/v10"
)

// Validator wraps go-playground/validator and satisfies echo.Validator.
type Validator struct {
	validate *validator.Validate
}

var (
	validatorOnce sync.Once
	instance      *Validator
)

// GetValidator returns the shared validator with the custom rules registered.
func GetValidator() *Validator {
	validatorOnce.Do(func() {
		v := validator.New(validator.WithRequiredStructEnabled())
		// Report JSON field names instead of Go field names.
		v.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
			if name == "-" {
				return ""
			}
			return name
		})
		if err := v.RegisterValidation("cnpj", func(fl validator.FieldLevel) bool {
			return IsValidCNPJ(fl.Field().String())
		}); err != nil {
			panic(err)
		}
		instance = &Validator{validate: v}
	})
	return instance
}

// Validate checks i against its `validate` tags. Failures wrap models.ErrValidation.
func (v *Validator) Validate(i interface{}) error {
	err := v.validate.Struct(i)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("%w: %v", models.ErrValidation, err)
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, describeFieldError(fe))
	}
	return fmt.Errorf("%w: %s", models.ErrValidation, strings.Join(msgs, "; "))
}

func describeFieldError(fe validator.FieldError) string {
	field := fe.Field()
	switch fe.Tag() {
	case "required":
		return field + " is required"
	case "gt":
		return fmt.Sprintf("%s must be greater than %s", field, fe.Param())
	case "gte":
		return fmt.Sprintf("%s must be at least %s", field, fe.Param())
	case "min":
		return fmt.Sprintf("%s must be at least %s long", field, fe.Param())
	case "max":
		return fmt.Sprintf("%s must be at most %s long", field, fe.Param())
	case "oneof":
		return fmt.Sprintf("%s must be one of [%s]", field, fe.Param())
	case "email":
		return field + " must be a valid email address"
	case "cnpj":
		return field + " must be a valid CNPJ"
	}
	return fmt.Sprintf("%s failed on %s", field, fe.Tag())
}

// IsValidCNPJ checks the length and both check digits of a Brazilian company
// registration number. Punctuation (11.222.333/0001-81) is ignored.
func IsValidCNPJ(s string) bool {
	digits := make([]int, 0, 14)
	for _, r := range s {
		switch {
		case r >= '0' && r <= '9':
			digits = append(digits, int(r-'0'))
		case r == '.' || r == '/' || r == '-' || r == ' ':
		default:
			return false
		}
	}
	if len(digits) != 14 {
		return false
	}
	allSame := true
	for _, d := range digits[1:] {
		if d != digits[0] {
			allSame = false
			break
		}
	}
	if allSame {
		return false
	}

	first := cnpjCheckDigit(digits[:12], []int{5, 4, 3, 2, 9, 8, 7, 6, 5, 4, 3, 2})
	if digits[12] != first {
		return false
	}
	second := cnpjCheckDigit(digits[:13], []int{6, 5, 4, 3, 2, 9, 8, 7, 6, 5, 4, 3, 2})
	return digits[13] == second
}

func cnpjCheckDigit(digits, weights []int) int {
	sum := 0
	for i, d := range digits {
		sum += d * weights[i]
	}
	rest := sum % 11
	if rest < 2 {
		return 0
	}
	return 11 - rest
}

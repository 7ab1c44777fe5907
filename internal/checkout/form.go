package checkout

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strings"
	"unicode"

	"github.com/fjod/go_storefront/internal/domain"
	"github.com/go-playground/validator/v10"
)

// Form is the customer input collected on the checkout page.
type Form struct {
	FirstName     string               `json:"first_name" validate:"required"`
	LastName      string               `json:"last_name" validate:"required"`
	Email         string               `json:"email" validate:"required,basic_email"`
	Phone         string               `json:"phone" validate:"required,min_digits"`
	Address       string               `json:"address" validate:"required"`
	City          string               `json:"city" validate:"required"`
	PostalCode    string               `json:"postal_code" validate:"required"`
	Country       string               `json:"country" validate:"required"`
	PaymentMethod domain.PaymentMethod `json:"payment_method" validate:"omitempty,oneof=credit_card paypal bank_transfer cash_on_delivery"`
}

// Normalized trims every field and defaults the payment method to credit card.
func (f Form) Normalized() Form {
	f.FirstName = strings.TrimSpace(f.FirstName)
	f.LastName = strings.TrimSpace(f.LastName)
	f.Email = strings.TrimSpace(f.Email)
	f.Phone = strings.TrimSpace(f.Phone)
	f.Address = strings.TrimSpace(f.Address)
	f.City = strings.TrimSpace(f.City)
	f.PostalCode = strings.TrimSpace(f.PostalCode)
	f.Country = strings.TrimSpace(f.Country)
	f.PaymentMethod = domain.PaymentMethod(strings.TrimSpace(string(f.PaymentMethod)))
	if f.PaymentMethod == "" {
		f.PaymentMethod = domain.PaymentMethodCreditCard
	}
	return f
}

const minPhoneDigits = 6

var emailShape = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationError lists field errors in form order, at most one per field.
type ValidationError struct {
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	parts := make([]string, len(e.Fields))
	for i, f := range e.Fields {
		parts[i] = f.Message
	}
	return "checkout validation failed: " + strings.Join(parts, "; ")
}

// Map is keyed by json field name.
func (e *ValidationError) Map() map[string]string {
	m := make(map[string]string, len(e.Fields))
	for _, f := range e.Fields {
		m[f.Field] = f.Message
	}
	return m
}

// First is the field the page scrolls to.
func (e *ValidationError) First() string {
	if len(e.Fields) == 0 {
		return ""
	}
	return e.Fields[0].Field
}

type FormValidator struct {
	v *validator.Validate
}

func NewFormValidator() *FormValidator {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	mustRegister(v, "basic_email", func(fl validator.FieldLevel) bool {
		return emailShape.MatchString(fl.Field().String())
	})
	mustRegister(v, "min_digits", func(fl validator.FieldLevel) bool {
		return countDigits(fl.Field().String()) >= minPhoneDigits
	})
	return &FormValidator{v: v}
}

func mustRegister(v *validator.Validate, tag string, fn validator.Func) {
	if err := v.RegisterValidation(tag, fn); err != nil {
		panic(fmt.Sprintf("register %s validation: %v", tag, err))
	}
}

// Validate returns nil or a *ValidationError.
func (fv *FormValidator) Validate(f Form) error {
	err := fv.v.Struct(f)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("validate checkout form: %w", err)
	}

	out := &ValidationError{Fields: make([]FieldError, 0, len(verrs))}
	for _, fe := range verrs {
		out.Fields = append(out.Fields, FieldError{Field: fe.Field(), Message: message(fe)})
	}
	return out
}

func message(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fe.Field() + " is required"
	case "basic_email":
		return "email is invalid"
	case "min_digits":
		return fmt.Sprintf("phone must contain at least %d digits", minPhoneDigits)
	case "oneof":
		return fe.Field() + " is not supported"
	}
	return fe.Field() + " is invalid"
}

func countDigits(s string) int {
	n := 0
	for _, r := range s {
		if unicode.IsDigit(r) {
			n++
		}
	}
	return n
}

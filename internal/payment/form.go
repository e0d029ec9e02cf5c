package payment

import (
	"errors"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/go-playground/validator/v10/non-standard/validators"

	"github.com/MikeMC777/enos-storefront/internal/clock"
)

// Form is the card and billing data typed by the shopper.
type Form struct {
	CardNumber        string `json:"cardNumber" validate:"notblank,luhn"`
	CardholderName    string `json:"cardholderName" validate:"notblank"`
	Expiry            string `json:"expiryDate" validate:"notblank,expiry"`
	CVC               string `json:"cvc" validate:"notblank,cvc"`
	BillingStreet     string `json:"billingStreet" validate:"notblank"`
	BillingCity       string `json:"billingCity" validate:"notblank"`
	BillingState      string `json:"billingState" validate:"notblank"`
	BillingPostalCode string `json:"billingPostalCode" validate:"notblank"`
	BillingCountry    string `json:"billingCountry" validate:"notblank"`
}

// Validator checks a Form. Expiry is judged against its clock.
type Validator struct {
	validate *validator.Validate
	clk      clock.Clock
}

func NewValidator(clk clock.Clock) *Validator {
	if clk == nil {
		clk = clock.Real{}
	}
	v := &Validator{validate: validator.New(), clk: clk}

	v.validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	_ = v.validate.RegisterValidation("notblank", validators.NotBlank)
	_ = v.validate.RegisterValidation("luhn", func(fl validator.FieldLevel) bool {
		return ValidLuhn(fl.Field().String())
	})
	_ = v.validate.RegisterValidation("expiry", func(fl validator.FieldLevel) bool {
		return ValidExpiry(fl.Field().String(), v.clk.Now())
	})
	_ = v.validate.RegisterValidation("cvc", func(fl validator.FieldLevel) bool {
		return ValidCVC(fl.Field().String())
	})
	return v
}

// Validate returns validator.ValidationErrors naming every failing field.
func (v *Validator) Validate(f Form) error {
	return v.validate.Struct(f)
}

// HasErrors is the single aggregate flag of the form: true unless every
// check passes.
func (v *Validator) HasErrors(f Form) bool {
	return v.Validate(f) != nil
}

// FailedFields lists the json names of the fields that failed, in form order.
func FailedFields(err error) []string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return nil
	}
	out := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		out = append(out, fe.Field())
	}
	return out
}

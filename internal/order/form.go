package order

import (
	"errors"
	"reflect"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/go-playground/validator/v10/non-standard/validators"
)

var ErrIncompleteForm = errors.New("please fill in all required fields")

// FormError lists the checkout fields that failed, keyed by path such as
// "contact.email". It matches ErrIncompleteForm with errors.Is.
type FormError struct {
	Fields map[string][]string
}

func (e *FormError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return ErrIncompleteForm.Error() + ": " + strings.Join(keys, ", ")
}

func (e *FormError) Unwrap() error { return ErrIncompleteForm }

// FormValidator checks checkout requests.
type FormValidator struct {
	validate *validator.Validate
}

func NewFormValidator() *FormValidator {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	_ = v.RegisterValidation("notblank", validators.NotBlank)
	return &FormValidator{validate: v}
}

// Validate returns nil or a *FormError.
func (f *FormValidator) Validate(req CheckoutRequest) error {
	err := f.validate.Struct(req)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	out := &FormError{Fields: make(map[string][]string, len(verrs))}
	for _, fe := range verrs {
		key := fieldPath(fe)
		out.Fields[key] = append(out.Fields[key], message(fe))
	}
	return out
}

// fieldPath drops the root struct name: "contact.email".
func fieldPath(fe validator.FieldError) string {
	ns := fe.Namespace()
	if i := strings.IndexByte(ns, '.'); i >= 0 {
		return ns[i+1:]
	}
	return ns
}

func message(fe validator.FieldError) string {
	if fe.Tag() == "email" {
		return fe.Field() + " must be a valid email address"
	}
	return fe.Field() + " is required"
}

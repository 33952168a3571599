package service

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/punchamoorthee/ledgerbook/internal/domain"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// fieldErrors names the sentinel for fields whose failure is more specific
// than a missing value. Keys are struct namespaces.
var fieldErrors = map[string]error{
	"RegisterRequest.Name":     domain.ErrInvalidName,
	"RegisterRequest.Email":    domain.ErrInvalidEmail,
	"RegisterRequest.Password": domain.ErrWeakPassword,
}

// check runs the struct tags of req and reports the first failure as a
// domain error.
func check(req any) error {
	err := validate.Struct(req)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return err
	}

	fe := verrs[0]
	rule := fe.Tag()
	if fe.Param() != "" {
		rule += "=" + fe.Param()
	}
	if sentinel, ok := fieldErrors[fe.StructNamespace()]; ok {
		return fmt.Errorf("%w: %s must satisfy %s", sentinel, fe.Field(), rule)
	}
	return fmt.Errorf("%w: %s", domain.ErrMissingField, fe.Field())
}

// Package validate plugs go-playground/validator into echo so handlers can
// call c.Validate on bound request bodies.
package validate

import (
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"

	"github.com/medcore/hms/pkg/patch"
)

type Validator struct {
	v *validator.Validate
}

func New() *Validator {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	// decimals validate as float64 so gte/gt/lte tags work on money fields
	v.RegisterCustomTypeFunc(func(field reflect.Value) interface{} {
		if d, ok := field.Interface().(decimal.Decimal); ok {
			f, _ := d.Float64()
			return f
		}
		return nil
	}, decimal.Decimal{})
	// absent patch fields are skipped by omitempty; present ones validate their value
	v.RegisterCustomTypeFunc(func(field reflect.Value) interface{} {
		switch f := field.Interface().(type) {
		case patch.Field[string]:
			if f.Set {
				return f.Value
			}
		case patch.Field[int]:
			if f.Set {
				return f.Value
			}
		case patch.Field[decimal.Decimal]:
			if f.Set {
				v, _ := f.Value.Float64()
				return v
			}
		}
		return nil
	}, patch.Field[string]{}, patch.Field[int]{}, patch.Field[decimal.Decimal]{})
	return &Validator{v: v}
}

// Validate implements echo.Validator. Failures come back as a 400 whose
// message names each offending field and rule.
func (cv *Validator) Validate(i interface{}) error {
	err := cv.v.Struct(i)
	if err == nil {
		return nil
	}
	var ve validator.ValidationErrors
	if !errors.As(err, &ve) {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return echo.NewHTTPError(http.StatusBadRequest, map[string]interface{}{
		"message": "validation failed",
		"errors":  Fields(ve),
	})
}

// Fields maps json field name to a short description of the failed rule.
func Fields(ve validator.ValidationErrors) map[string]string {
	out := make(map[string]string, len(ve))
	for _, fe := range ve {
		rule := fe.Tag()
		if fe.Param() != "" {
			rule = fmt.Sprintf("%s=%s", rule, fe.Param())
		}
		out[fe.Field()] = rule
	}
	return out
}

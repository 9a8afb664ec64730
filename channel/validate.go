package channel

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

// ValidationError describes one invalid field of a channel.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidationErrors collects every invalid field found in one pass.
type ValidationErrors []ValidationError

func (e ValidationErrors) Error() string {
	msgs := make([]string, len(e))
	for i, v := range e {
		msgs[i] = v.Error()
	}
	return strings.Join(msgs, "; ")
}

// ValidateOptions tunes Validate for the operation being prepared.
type ValidateOptions struct {
	// RequireID is set when the channel is about to be created.
	RequireID bool
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	_ = v.RegisterValidation("nonblank", func(fl validator.FieldLevel) bool {
		return strings.TrimSpace(fl.Field().String()) != ""
	})
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		if name == "" {
			return fld.Name
		}
		return name
	})
	return v
}

// Validate checks the structural shape of ch before it is sent to the
// backend. Script contents are never inspected.
func Validate(ch Channel, opts ValidateOptions) error {
	var errs ValidationErrors

	if opts.RequireID && strings.TrimSpace(ch.ID) == "" {
		errs = append(errs, ValidationError{Field: "id", Message: "Channel ID is required."})
	}

	if err := validate.Struct(ch); err != nil {
		var fieldErrs validator.ValidationErrors
		if !errors.As(err, &fieldErrs) {
			return err
		}
		for _, fe := range fieldErrs {
			errs = append(errs, ValidationError{Field: fieldPath(fe), Message: fieldMessage(fe)})
		}
	}

	errs = append(errs, checkVariants(ch)...)

	if len(errs) > 0 {
		return errs
	}
	return nil
}

// checkVariants walks every tagged value so a new variant cannot slip
// through without a case here.
func checkVariants(ch Channel) ValidationErrors {
	var errs ValidationErrors
	switch ch.Source.(type) {
	case HTTPSource, TCPSource, nil:
	default:
		errs = append(errs, ValidationError{Field: "source.type", Message: "Unsupported source type."})
	}
	for i, d := range ch.Destinations {
		switch d := d.(type) {
		case HTTPDestination:
			for k := range d.Headers {
				if strings.TrimSpace(k) == "" {
					errs = append(errs, ValidationError{
						Field:   fmt.Sprintf("destinations[%d].headers", i),
						Message: "Header names must not be empty.",
					})
					break
				}
			}
		case TCPDestination, nil:
		default:
			errs = append(errs, ValidationError{
				Field:   fmt.Sprintf("destinations[%d].type", i),
				Message: "Unsupported destination type.",
			})
		}
	}
	return errs
}

func fieldPath(fe validator.FieldError) string {
	ns := fe.Namespace()
	if i := strings.Index(ns, "."); i >= 0 {
		return ns[i+1:]
	}
	return ns
}

func fieldMessage(fe validator.FieldError) string {
	switch {
	case fe.Field() == "name":
		return "Channel name is required."
	case fe.Field() == "destinations" && fe.Tag() == "min":
		return "At least one destination is required."
	case fe.Field() == "source" && fe.Tag() == "required":
		return "A source is required."
	}
	switch fe.Tag() {
	case "required":
		return "Field is required."
	case "oneof":
		return "Method must be one of GET, POST, PUT, DELETE."
	case "min", "max":
		return "Port must be between 0 and 65535."
	default:
		return fmt.Sprintf("Validation failed: %s.", fe.Tag())
	}
}

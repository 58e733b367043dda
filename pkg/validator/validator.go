// Package validator registers the custom binding tags used by request
// structs and turns validation failures into client messages.
package validator

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

var documentTypes = map[string]bool{
	"medical_history": true,
	"exercise_record": true,
	"lab_result":      true,
}

// Register installs the custom tags on gin's default binding engine.
func Register() error {
	v, ok := binding.Validator.Engine().(*validator.Validate)
	if !ok {
		return errors.New("gin binding engine is not validator/v10")
	}
	return RegisterOn(v)
}

func RegisterOn(v *validator.Validate) error {
	v.RegisterTagNameFunc(jsonFieldName)

	if err := v.RegisterValidation("doctype", validateDocType); err != nil {
		return fmt.Errorf("register doctype: %w", err)
	}
	if err := v.RegisterValidation("notblank", validateNotBlank); err != nil {
		return fmt.Errorf("register notblank: %w", err)
	}
	return nil
}

func jsonFieldName(field reflect.StructField) string {
	name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
	if name == "-" {
		return ""
	}
	if name == "" {
		return field.Name
	}
	return name
}

// validateDocType accepts the document type vocabulary in any case.
func validateDocType(fl validator.FieldLevel) bool {
	return documentTypes[strings.ToLower(fl.Field().String())]
}

func validateNotBlank(fl validator.FieldLevel) bool {
	return strings.TrimSpace(fl.Field().String()) != ""
}

// Missing reports whether err includes a required field that was absent
// or blank.
func Missing(err error) bool {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return false
	}
	for _, fe := range verrs {
		if fe.Tag() == "required" || fe.Tag() == "notblank" {
			return true
		}
	}
	return false
}

// Message renders a binding error for the client. Missing fields are
// listed together.
func Message(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return "Invalid request body"
	}

	var missing, invalid []string
	for _, fe := range verrs {
		switch fe.Tag() {
		case "required", "notblank":
			missing = append(missing, fe.Field())
		default:
			invalid = append(invalid, describe(fe))
		}
	}

	var parts []string
	if len(missing) > 0 {
		parts = append(parts, "Missing required fields: "+strings.Join(missing, ", "))
	}
	parts = append(parts, invalid...)
	return strings.Join(parts, "; ")
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "max":
		return fmt.Sprintf("%s must be at most %s characters", fe.Field(), fe.Param())
	case "min":
		return fmt.Sprintf("%s must be at least %s characters", fe.Field(), fe.Param())
	case "email":
		return fmt.Sprintf("%s must be a valid email address", fe.Field())
	case "doctype":
		return fmt.Sprintf("Invalid document type: %v. Must be one of: medical_history, exercise_record, lab_result", fe.Value())
	default:
		return fmt.Sprintf("%s is invalid", fe.Field())
	}
}

package dto

import (
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/noah-isme/cohort-ledger-api/internal/models"
	appErrors "github.com/noah-isme/cohort-ledger-api/pkg/errors"
)

// NewValidator returns a validator reporting JSON field names and knowing the domain enums.
func NewValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return field.Name
		}
		return name
	})
	RegisterValidations(v)
	return v
}

// RegisterValidations installs the enum tags used by request payloads.
func RegisterValidations(v *validator.Validate) {
	_ = v.RegisterValidation("attendance_status", func(fl validator.FieldLevel) bool {
		return models.AttendanceStatus(strings.ToLower(fl.Field().String())).Valid()
	})
	_ = v.RegisterValidation("cohort_status", func(fl validator.FieldLevel) bool {
		return models.CohortStatus(fl.Field().String()).Valid()
	})
	_ = v.RegisterValidation("program_type", func(fl validator.FieldLevel) bool {
		return models.ProgramType(fl.Field().String()).Valid()
	})
	_ = v.RegisterValidation("enrollment_status", func(fl validator.FieldLevel) bool {
		return models.EnrollmentStatus(fl.Field().String()).Valid()
	})
	_ = v.RegisterValidation("financing_type", func(fl validator.FieldLevel) bool {
		return models.FinancingType(fl.Field().String()).Valid()
	})
	_ = v.RegisterValidation("contract_type", func(fl validator.FieldLevel) bool {
		return models.ContractType(fl.Field().String()).Valid()
	})
	_ = v.RegisterValidation("evaluation_type", func(fl validator.FieldLevel) bool {
		return models.EvaluationType(fl.Field().String()).Valid()
	})
	_ = v.RegisterValidation("bulk_mode", func(fl validator.FieldLevel) bool {
		mode := models.BulkOperationMode(fl.Field().String())
		return mode == models.BulkModeAtomic || mode == models.BulkModePartialOnError
	})
}

// Validate runs struct validation and converts failures into a typed validation error.
func Validate(v *validator.Validate, req interface{}, message string) error {
	if err := v.Struct(req); err != nil {
		return appErrors.FromValidation(err, message)
	}
	return nil
}

// CheckPeriod enforces start < end when both bounds are set.
func CheckPeriod(start, end time.Time, endField, startField string) error {
	if start.IsZero() || end.IsZero() {
		return nil
	}
	if !end.After(start) {
		return appErrors.Field(endField, "must be after "+startField)
	}
	return nil
}

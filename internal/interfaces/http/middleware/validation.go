package middleware

import (
	"errors"
	"net/http"
	"reflect"
	"strings"

	"github.com/garage-erp/backend/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
)

// SetupValidator configures gin's validator: field names in errors follow
// the json tag, and the "decimal" tag accepts strings shopspring/decimal can
// parse. Call it once before serving.
func SetupValidator() error {
	v, ok := binding.Validator.Engine().(*validator.Validate)
	if !ok {
		return errors.New("unexpected gin validator engine")
	}
	RegisterValidations(v)
	return nil
}

// RegisterValidations installs the custom tags on v
func RegisterValidations(v *validator.Validate) {
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		if name == "" {
			name = strings.SplitN(fld.Tag.Get("form"), ",", 2)[0]
		}
		return name
	})
	// Registration only fails for an empty tag or nil func
	_ = v.RegisterValidation("decimal", validDecimal)
}

func validDecimal(fl validator.FieldLevel) bool {
	if fl.Field().Kind() != reflect.String {
		return false
	}
	s := strings.TrimSpace(fl.Field().String())
	if s == "" {
		return true
	}
	_, err := decimal.NewFromString(s)
	return err == nil
}

// FormatValidationErrors turns a binding failure into the error envelope.
// Anything other than validator errors means the body did not decode.
func FormatValidationErrors(err error, requestID string) dto.Response {
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return dto.NewErrorResponseWithRequestID(dto.ErrCodeInvalidJSON, "Request body is not valid JSON", requestID)
	}
	details := make([]dto.ValidationDetail, 0, len(fieldErrs))
	for _, e := range fieldErrs {
		details = append(details, dto.ValidationDetail{Field: e.Field(), Message: getValidationMessage(e)})
	}
	return dto.NewValidationErrorResponse("Request validation failed", requestID, details)
}

// HandleValidationError answers a binding failure with 400
func HandleValidationError(c *gin.Context, err error) {
	if isBodyTooLarge(err) {
		abortBodyTooLarge(c)
		return
	}
	c.AbortWithStatusJSON(http.StatusBadRequest, FormatValidationErrors(err, GetRequestID(c)))
}

// fieldMessages renders the detail message per validation tag
var fieldMessages = map[string]func(e validator.FieldError) string{
	"required": func(validator.FieldError) string { return "This field is required" },
	"min":      func(e validator.FieldError) string { return "Must be at least " + e.Param() + sizeUnit(e) },
	"max":      func(e validator.FieldError) string { return "Must be at most " + e.Param() + sizeUnit(e) },
	"len":      func(e validator.FieldError) string { return "Must be exactly " + e.Param() + sizeUnit(e) },
	"uuid":     func(validator.FieldError) string { return "Invalid UUID format" },
	"oneof":    func(e validator.FieldError) string { return "Must be one of: " + e.Param() },
	"decimal":  func(validator.FieldError) string { return "Must be a decimal number" },
}

func getValidationMessage(e validator.FieldError) string {
	if msg, ok := fieldMessages[e.Tag()]; ok {
		return msg(e)
	}
	return "Invalid value"
}

// sizeUnit names what min and max count for strings and lists
func sizeUnit(e validator.FieldError) string {
	switch e.Kind() {
	case reflect.String:
		return " characters"
	case reflect.Slice, reflect.Array:
		return " entries"
	default:
		return ""
	}
}

package middleware

import (
	"encoding/json"
	"mime"
	"net/http"
	"reflect"
	"strings"

	"ipek-store/internal/domain"

	"github.com/go-playground/validator/v10"
)

// Validator instance
var validate *validator.Validate

func init() {
	validate = validator.New()
	// Report JSON field names rather than Go field names.
	validate.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	validate.RegisterValidation("trphone", func(fl validator.FieldLevel) bool {
		return domain.ValidTurkishMobile(fl.Field().String())
	})
}

// ValidateRequest validates the request body against a struct with validation tags
func ValidateRequest(v interface{}) error {
	return validate.Struct(v)
}

// RequireJSON rejects request bodies that are not declared as JSON.
func RequireJSON(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.ContentLength != 0 && r.Method != http.MethodGet {
			mediaType, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
			if err != nil || mediaType != "application/json" {
				RespondWithError(w, http.StatusUnsupportedMediaType, "İstek gövdesi JSON olmalıdır")
				return
			}
		}
		next.ServeHTTP(w, r)
	})
}

// DecodeAndValidate decodes JSON request body and validates it
func DecodeAndValidate(r *http.Request, v interface{}) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return err
	}
	return ValidateRequest(v)
}

// ValidationError represents a field validation error
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// FormatValidationErrors converts validator errors to a readable format
func FormatValidationErrors(err error) []ValidationError {
	var errors []ValidationError

	if validationErrors, ok := err.(validator.ValidationErrors); ok {
		for _, e := range validationErrors {
			errors = append(errors, ValidationError{
				Field:   e.Field(),
				Message: getErrorMessage(e),
			})
		}
	}

	return errors
}

// RespondWithDecodeError answers a failed DecodeAndValidate: field errors
// for validation failures, a plain 400 for malformed JSON.
func RespondWithDecodeError(w http.ResponseWriter, err error) {
	if fields := FormatValidationErrors(err); len(fields) > 0 {
		RespondWithValidationErrors(w, fields)
		return
	}
	writeError(w, http.StatusBadRequest, string(domain.KindValidation), "Geçersiz istek gövdesi", nil)
}

func getErrorMessage(e validator.FieldError) string {
	switch e.Tag() {
	case "required":
		return "Bu alan zorunludur"
	case "email":
		return "Geçerli bir e-posta adresi girin"
	case "trphone":
		return "Geçerli bir cep telefonu numarası girin"
	case "min":
		return "Değer çok kısa"
	case "max":
		return "Değer çok uzun"
	case "len":
		return e.Param() + " karakter olmalıdır"
	case "numeric":
		return "Yalnızca rakam içermelidir"
	case "gte":
		return e.Param() + " veya daha büyük olmalıdır"
	case "lte":
		return e.Param() + " veya daha küçük olmalıdır"
	case "gt":
		return e.Param() + " değerinden büyük olmalıdır"
	case "lt":
		return e.Param() + " değerinden küçük olmalıdır"
	case "oneof":
		return "Şunlardan biri olmalıdır: " + e.Param()
	default:
		return "Geçersiz değer"
	}
}

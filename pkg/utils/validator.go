package utils

import (
	"net/http"
	"regexp"

	"github.com/go-playground/validator/v10"
	"github.com/sefazor/keepevents-backend/internal/models"
)

var otpPattern = regexp.MustCompile(`^[0-9]{6}$`)

type Validator struct {
	validate *validator.Validate
}

func NewValidator() *Validator {
	v := validator.New()

	// Custom validations
	_ = v.RegisterValidation("supported_image", validateImageType)
	_ = v.RegisterValidation("visibility", func(fl validator.FieldLevel) bool {
		return models.Visibility(fl.Field().String()).Valid()
	})
	_ = v.RegisterValidation("invite_role", func(fl validator.FieldLevel) bool {
		return models.InviteRole(fl.Field().String()).Valid()
	})
	_ = v.RegisterValidation("role", func(fl validator.FieldLevel) bool {
		return models.Role(fl.Field().String()).Valid()
	})
	_ = v.RegisterValidation("otp_code", func(fl validator.FieldLevel) bool {
		return otpPattern.MatchString(fl.Field().String())
	})

	return &Validator{
		validate: v,
	}
}

func (v *Validator) Struct(s interface{}) error {
	return v.validate.Struct(s)
}

// IsSupportedImage reports whether a MIME type is one we accept for uploads.
func IsSupportedImage(mimeType string) bool {
	supportedTypes := map[string]bool{
		"image/jpeg": true,
		"image/png":  true,
		"image/gif":  true,
		"image/webp": true,
	}
	return supportedTypes[mimeType]
}

func validateImageType(fl validator.FieldLevel) bool {
	return IsSupportedImage(fl.Field().String())
}

// DetectContentType sniffs the MIME type from the first bytes of data.
func DetectContentType(data []byte) string {
	return http.DetectContentType(data)
}

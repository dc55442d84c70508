package models

import "time"

type RegisterRequest struct {
	Username string `json:"username" validate:"required,max=150"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6"`
	FullName string `json:"full_name"`
	// CaptchaToken is checked only when a Turnstile secret is configured.
	CaptchaToken string `json:"cf_turnstile_token"`
}

type LoginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type RequestOTPRequest struct {
	Email        string `json:"email" validate:"required,email"`
	CaptchaToken string `json:"cf_turnstile_token"`
}

type VerifyOTPRequest struct {
	Email string `json:"email" validate:"required,email"`
	Code  string `json:"code" validate:"required,otp_code"`
}

type RefreshRequest struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
}

// TokenPair is what a successful login, OTP verification or refresh hands back.
type TokenPair struct {
	AccessToken      string    `json:"access_token"`
	RefreshToken     string    `json:"refresh_token"`
	AccessExpiresAt  time.Time `json:"access_expires_at"`
	RefreshExpiresAt time.Time `json:"refresh_expires_at"`
	SessionID        string    `json:"-"`
}

type AuthResponse struct {
	Tokens TokenPair    `json:"tokens"`
	User   UserResponse `json:"user"`
}

// ProviderProfile is the subset of the identity provider's user payload we map locally.
type ProviderProfile struct {
	Email        string
	FullName     string
	ShortName    string
	EnrollmentNo string
}

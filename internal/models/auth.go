package models

/*
|--------------------------------------------------------------------------
| REQUEST
|--------------------------------------------------------------------------
*/
type LoginRequest struct {
	Email          string `json:"email" validate:"required"`
	Password       string `json:"password" validate:"required"`
	RecaptchaToken string `json:"recaptcha_token"`
}

/*
|--------------------------------------------------------------------------
| RESPONSE DTO
|--------------------------------------------------------------------------
*/
type LoginResponse struct {
	Token  string         `json:"token"`
	Tenant TenantResponse `json:"tenant"`
}

package dto

type APIErrorResponse struct {
	Error      string      `json:"error"`
	Code       string      `json:"code"`
	RetryAfter int         `json:"retryAfter,omitempty"`
	Details    interface{} `json:"details,omitempty"`
}

type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

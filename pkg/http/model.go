package http

// APIResponse represents standard API response.
type APIResponse struct {
	Status  int         `json:"status" example:"200"`
	Message string      `json:"message" example:"OK"`
	Data    interface{} `json:"data,omitempty"`
}

// ValidationError represents validation error detail.
type ValidationError struct {
	Code    string `json:"code,omitempty" example:"ERR_REQUIRED"`
	Field   string `json:"field,omitempty" example:"action"`
	Message string `json:"message,omitempty" example:"Action is required"`
}

// ListDataResponse represents list response.
type ListDataResponse struct {
	Rows  interface{} `json:"rows"`
	Total int64       `json:"total"`
}

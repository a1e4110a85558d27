package utils

import "time"

type APIResponse struct {
	Success   bool        `json:"success"`
	Message   string      `json:"message,omitempty"`
	Data      interface{} `json:"data,omitempty"`
	Error     string      `json:"error,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
}

func SuccessResponse(message string, data interface{}) APIResponse {
	return APIResponse{
		Success:   true,
		Message:   message,
		Data:      data,
		Timestamp: time.Now(),
	}
}

// ErrorResponse carries only the category message; internal detail stays in the
// server logs.
func ErrorResponse(message string) APIResponse {
	return APIResponse{
		Success:   false,
		Error:     message,
		Timestamp: time.Now(),
	}
}

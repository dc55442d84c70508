package models

type Response struct {
	Success bool                   `json:"success"`
	Message string                 `json:"message,omitempty"`
	Error   string                 `json:"error,omitempty"`
	Details map[string]interface{} `json:"details,omitempty"`
	Data    interface{}            `json:"data,omitempty"`
}

// Page wraps a limit/offset listing.
type Page struct {
	Count   int64       `json:"count"`
	Limit   int         `json:"limit"`
	Offset  int         `json:"offset"`
	Results interface{} `json:"results"`
}

func SuccessResponse(data interface{}, message string) Response {
	return Response{
		Success: true,
		Message: message,
		Data:    data,
	}
}

func ErrorResponse(err string) Response {
	return Response{
		Success: false,
		Error:   err,
	}
}

// ErrorResponseWithDetails carries field-level payloads, e.g. registration conflicts.
func ErrorResponseWithDetails(err string, details map[string]interface{}) Response {
	return Response{
		Success: false,
		Error:   err,
		Details: details,
	}
}

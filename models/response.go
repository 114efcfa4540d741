package models

// ApiResponse is the envelope every REST endpoint returns. Exactly one of
// Data and Error is set, matching the Success flag.
type ApiResponse struct {
    Success bool        `json:"success"`
    Data    interface{} `json:"data"`
    Error   interface{} `json:"error"`
}

// SuccessResponse wraps data in a successful envelope.
func SuccessResponse(data interface{}) ApiResponse {
    return ApiResponse{Success: true, Data: data}
}

// ErrorResponse wraps an error message in a failed envelope.
func ErrorResponse(errorMessage string) ApiResponse {
    return ApiResponse{Success: false, Error: errorMessage}
}

package types

// ServiceResult is the outcome contract shared by all payment/refund service
// operations: callers receive an explicit success flag and message instead of
// a raised error, so the HTTP acknowledgement path can never be broken by an
// escaping exception.
type ServiceResult struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

func OKResult(message string) ServiceResult {
	return ServiceResult{Success: true, Message: message}
}

func FailResult(message string) ServiceResult {
	return ServiceResult{Success: false, Message: message}
}

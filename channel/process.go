package channel

// ProcessRequest is the body of a dry-run request.
type ProcessRequest struct {
	Message string `json:"message"`
}

// ProcessResult is the backend's answer to a dry run. Every field is
// optional and none excludes another.
type ProcessResult struct {
	Success          *bool   `json:"success,omitempty"`
	Result           *string `json:"result,omitempty"`
	ProcessedMessage *string `json:"processed_message,omitempty"`
	Error            *string `json:"error,omitempty"`
}

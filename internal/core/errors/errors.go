package errors

// Fixed messages. Auth and internal failures always use exactly these strings
// so the caller cannot tell one cause from another.
const (
	MsgUnauthorized    = "Unauthorized"
	MsgInternalError   = "Internal error"
	MsgInvalidJSON     = "Invalid JSON body"
	MsgBodyTooLarge    = "Request body exceeds maximum allowed size"
	MsgNotFound        = "Not found"
	MsgMissingTestPing = "X-Test-Ping header required"
)

// ErrorResponse is the error body for every non-2xx response.
type ErrorResponse struct {
	Error string `json:"error"`
}

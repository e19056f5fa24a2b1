package api

const (
	MsgFileProcessed   = "File processed successfully"
	MsgProcessingError = "Error processing file"
	MsgServerError     = "Server error"
	MsgNoData          = "No data found"
	MsgInvalidRequest  = "Invalid request"
	MsgUnauthorized    = "Unauthorized"
	MsgLoggedOut       = "Logged out"
)

// Message is the body of every response that carries no data.
type Message struct {
	Msg string `json:"msg"`
}

package logging

const (
	// Request
	FieldRequestID = "request_id"
	FieldMethod    = "method"
	FieldPath      = "path"
	FieldStatus    = "status"
	FieldLatency   = "latency_ms"
	FieldClientIP  = "client_ip"

	// Actor
	FieldUserID = "user_id"

	// Domain
	FieldChatViewID = "chatview_id"
	FieldMemberID   = "member_id"
	FieldMessageID  = "message_id"
	FieldSessionID  = "session_id"
	FieldQueue      = "queue"
	FieldOutcome    = "outcome"

	FieldService = "service"
)

package shared

// OutboxStatus defines message publishing states
type OutboxStatus string

const (
	OutboxStatusPending         OutboxStatus = "PENDING"
	OutboxStatusProcessed       OutboxStatus = "PROCESSED"
	OutboxStatusFailedToPublish OutboxStatus = "FAILED_TO_PUBLISH"
)

// DLQReason categorizes why an inbound message was parked on the dead letter topic
type DLQReason string

const (
	DLQReasonMalformed      DLQReason = "MALFORMED_MESSAGE"
	DLQReasonInvalidRequest DLQReason = "INVALID_REQUEST"
	DLQReasonRejected       DLQReason = "REJECTED_BY_LEDGER"
)

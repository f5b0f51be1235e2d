package constants

type contextKey string

// gRPC metadata keys carried between the order service and the payment
// initiator. Metadata keys are lower-case on the wire.
const (
	MetadataRequestID      = "x-request-id"
	MetadataIdempotencyKey = "x-idempotency-key"
)

// Context keys mirror the metadata keys so handlers read both the same way.
const (
	ContextKeyRequestID      contextKey = MetadataRequestID
	ContextKeyIdempotencyKey contextKey = MetadataIdempotencyKey
)

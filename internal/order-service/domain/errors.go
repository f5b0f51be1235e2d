package domain

// Kind groups error codes by how a caller is expected to react.
type Kind string

const (
	// KindValidation rejects input before anything is written.
	KindValidation Kind = "VALIDATION"
	// KindNotFound means the referenced order, sub-order or refund intent does not exist.
	KindNotFound Kind = "NOT_FOUND"
	// KindConflict means the entity is not in the expected state. Re-fetch, don't retry blindly.
	KindConflict Kind = "CONFLICT"
	// KindExternal means a collaborator failed. Order state was left untouched.
	KindExternal Kind = "EXTERNAL"
)

// Code is a machine-readable error code.
type Code string

const (
	CodeMissingTenant     Code = "ORDER_MISSING_TENANT"
	CodeEmptyItems        Code = "ORDER_EMPTY_ITEMS"
	CodeInvalidItem       Code = "ORDER_INVALID_ITEM"
	CodeUnknownVendor     Code = "ORDER_UNKNOWN_VENDOR"
	CodeInvalidTotals     Code = "ORDER_INVALID_TOTALS"
	CodeInvalidCurrency   Code = "ORDER_INVALID_CURRENCY"
	CodeInvalidPayment    Code = "ORDER_INVALID_PAYMENT_METHOD"
	CodeInvalidRate       Code = "VENDOR_INVALID_COMMISSION_RATE"
	CodeOrderNotFound     Code = "ORDER_NOT_FOUND"
	CodeSubOrderNotFound  Code = "SUB_ORDER_NOT_FOUND"
	CodeRefundNotFound    Code = "REFUND_NOT_FOUND"
	CodeSubOrderNotOwned  Code = "SUB_ORDER_NOT_OWNED"
	CodeInvalidTransition Code = "SUB_ORDER_INVALID_TRANSITION"
	CodeOrderTerminal     Code = "ORDER_TERMINAL"
	CodePaymentSettled    Code = "ORDER_PAYMENT_SETTLED"
	CodePaymentInitiated  Code = "ORDER_PAYMENT_INITIATED"
	CodeNotRecoverable    Code = "ORDER_NOT_RECOVERABLE"
	CodeRefundNotPending  Code = "REFUND_NOT_PENDING"
	CodeRefundInvalid     Code = "REFUND_INVALID"
	CodeReviewerRequired  Code = "REFUND_REVIEWER_REQUIRED"
	CodePaymentInitiation Code = "PAYMENT_INITIATION_FAILED"
	CodeVendorDirectory   Code = "VENDOR_DIRECTORY_FAILED"
	CodeCatalog           Code = "CATALOG_FAILED"
	CodePayoutInvalid     Code = "PAYOUT_INVALID"
)

// Error is the engine's structured error.
type Error struct {
	Kind     Kind
	Code     Code
	Message  string
	Metadata map[string]string
	Cause    error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause != nil {
		return e.Message + ": " + e.Cause.Error()
	}
	return e.Message
}

// Unwrap returns the underlying cause for error chain traversal.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is matches by code when the target carries one, otherwise by kind.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	if t.Code != "" {
		return e.Code == t.Code
	}
	return e.Kind == t.Kind
}

// Sentinels for errors.Is checks by kind.
var (
	ErrValidation = &Error{Kind: KindValidation}
	ErrNotFound   = &Error{Kind: KindNotFound}
	ErrConflict   = &Error{Kind: KindConflict}
	ErrExternal   = &Error{Kind: KindExternal}
)

func Validation(code Code, message string) *Error {
	return &Error{Kind: KindValidation, Code: code, Message: message}
}

func NotFound(code Code, message string) *Error {
	return &Error{Kind: KindNotFound, Code: code, Message: message}
}

func Conflict(code Code, message string) *Error {
	return &Error{Kind: KindConflict, Code: code, Message: message}
}

func External(code Code, message string, cause error) *Error {
	return &Error{Kind: KindExternal, Code: code, Message: message, Cause: cause}
}

// WithMetadata attaches key/value context and returns the same error.
func (e *Error) WithMetadata(kv ...string) *Error {
	if e.Metadata == nil {
		e.Metadata = make(map[string]string, len(kv)/2)
	}
	for i := 0; i+1 < len(kv); i += 2 {
		e.Metadata[kv[i]] = kv[i+1]
	}
	return e
}

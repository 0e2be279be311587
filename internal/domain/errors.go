package domain

import (
	"errors"
	"fmt"
)

// Sentinel errors for the domain layer.
var (
	ErrSessionNotFound    = fmt.Errorf("session not found")
	ErrAuthInvalid        = fmt.Errorf("authentication failed")
	ErrQueueItemNotFound  = fmt.Errorf("queue item not found")
	ErrConnectionNotFound = fmt.Errorf("connection not configured")
	ErrPayloadBuild       = fmt.Errorf("payload generation failed")
	ErrPayloadUnknownType = fmt.Errorf("no payload builder for item type")
	ErrWorkOutstanding    = fmt.Errorf("work already dispatched for session")
	ErrSyncLogWrite       = fmt.Errorf("sync log write failed")
	ErrStore              = fmt.Errorf("store operation failed")
	ErrConfigLoad         = fmt.Errorf("failed to load configuration")
	ErrClientTooOld       = fmt.Errorf("web connector version below minimum")
)

// DomainError wraps a sentinel error with operation context.
type DomainError struct {
	Op     string // operation name (e.g., "Dispatcher.SendRequestXML")
	Err    error  // underlying sentinel or wrapped error
	Detail string // human-readable detail
}

func (e *DomainError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("%s: %s: %s", e.Op, e.Detail, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Op, e.Err)
}

func (e *DomainError) Unwrap() error { return e.Err }

// NewDomainError creates a new DomainError.
func NewDomainError(op string, err error, detail string) *DomainError {
	return &DomainError{Op: op, Err: err, Detail: detail}
}

// WrapOp adds operation context to an error using fmt.Errorf wrapping.
// Returns nil if err is nil, enabling idiomatic use: return domain.WrapOp("op", err)
func WrapOp(op string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", op, err)
}

// ErrorCode is a machine-parseable error category for monitoring and alerting.
type ErrorCode string

const (
	CodeUnknown            ErrorCode = "UNKNOWN"
	CodeSessionNotFound    ErrorCode = "SESSION_NOT_FOUND"
	CodeAuthInvalid        ErrorCode = "AUTH_INVALID"
	CodeQueueItemNotFound  ErrorCode = "QUEUE_ITEM_NOT_FOUND"
	CodeConnectionNotFound ErrorCode = "CONNECTION_NOT_FOUND"
	CodePayloadBuild       ErrorCode = "PAYLOAD_BUILD"
	CodePayloadUnknownType ErrorCode = "PAYLOAD_UNKNOWN_TYPE"
	CodeWorkOutstanding    ErrorCode = "WORK_OUTSTANDING"
	CodeSyncLogWrite       ErrorCode = "SYNC_LOG_WRITE"
	CodeStore              ErrorCode = "STORE"
	CodeConfigLoad         ErrorCode = "CONFIG_LOAD"
	CodeClientTooOld       ErrorCode = "CLIENT_TOO_OLD"
)

// errorCodeMap maps sentinel errors to their machine-parseable codes.
var errorCodeMap = map[error]ErrorCode{
	ErrSessionNotFound:    CodeSessionNotFound,
	ErrAuthInvalid:        CodeAuthInvalid,
	ErrQueueItemNotFound:  CodeQueueItemNotFound,
	ErrConnectionNotFound: CodeConnectionNotFound,
	ErrPayloadBuild:       CodePayloadBuild,
	ErrPayloadUnknownType: CodePayloadUnknownType,
	ErrWorkOutstanding:    CodeWorkOutstanding,
	ErrSyncLogWrite:       CodeSyncLogWrite,
	ErrStore:              CodeStore,
	ErrConfigLoad:         CodeConfigLoad,
	ErrClientTooOld:       CodeClientTooOld,
}

// ErrorCodeOf returns the machine-parseable error code for the given error.
// It unwraps DomainError and uses errors.Is to match sentinel errors.
// Returns CodeUnknown if no matching sentinel is found.
func ErrorCodeOf(err error) ErrorCode {
	if err == nil {
		return CodeUnknown
	}

	if code, ok := errorCodeMap[err]; ok {
		return code
	}

	var de *DomainError
	if errors.As(err, &de) {
		if code, ok := errorCodeMap[de.Err]; ok {
			return code
		}
	}

	for sentinel, code := range errorCodeMap {
		if errors.Is(err, sentinel) {
			return code
		}
	}

	return CodeUnknown
}

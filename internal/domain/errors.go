package domain

import (
	"errors"
	"fmt"
)

// ErrorKind classifies failures for the error slot
type ErrorKind string

const (
	KindNetwork       ErrorKind = "network"
	KindAuth          ErrorKind = "auth"
	KindValidation    ErrorKind = "validation"
	KindEntitlement   ErrorKind = "entitlement"
	KindDataIntegrity ErrorKind = "data_integrity"
	KindInvariant     ErrorKind = "invariant"
)

// DenyReason explains an entitlement denial
type DenyReason string

const (
	ReasonPremiumRequired  DenyReason = "premium-required"
	ReasonTicketsExhausted DenyReason = "tickets-exhausted"
)

// Error codes
const (
	CodeNetwork         = "NETWORK_ERROR"
	CodeTimeout         = "TIMEOUT"
	CodeRateLimited     = "RATE_LIMITED"
	CodeAuth            = "AUTH_ERROR"
	CodeValidation      = "VALIDATION_ERROR"
	CodeEntitlement     = "ENTITLEMENT_DENIED"
	CodeProfileNotFound = "PROFILE_NOT_FOUND"
	CodeInvariant       = "INVARIANT_VIOLATION"
)

// Error is the controller error type. Message is safe to show to the user.
type Error struct {
	Kind    ErrorKind
	Code    string
	Message string
	Reason  DenyReason
	Err     error
}

// Error implements the error interface
func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause
func (e *Error) Unwrap() error {
	return e.Err
}

// NewNetworkError reports a failed request
func NewNetworkError(message string, err error) *Error {
	if message == "" {
		message = "ネットワークエラー: サーバーに接続できません。"
	}
	return &Error{Kind: KindNetwork, Code: CodeNetwork, Message: message, Err: err}
}

// NewTimeoutError reports a request that exceeded its deadline
func NewTimeoutError(err error) *Error {
	return &Error{
		Kind:    KindNetwork,
		Code:    CodeTimeout,
		Message: "サーバーの応答がタイムアウトしました。しばらくしてから再度お試しください。",
		Err:     err,
	}
}

// NewRateLimitedError reports a 429 from the backend
func NewRateLimitedError() *Error {
	return &Error{
		Kind:    KindNetwork,
		Code:    CodeRateLimited,
		Message: "リクエスト制限を超えました。しばらく待ってから再試行してください。",
	}
}

// NewAuthError reports invalid credentials or an invalid session
func NewAuthError(message string, err error) *Error {
	if message == "" {
		message = "認証エラー: ログインが必要です。"
	}
	return &Error{Kind: KindAuth, Code: CodeAuth, Message: message, Err: err}
}

// NewValidationError reports a missing or malformed field
func NewValidationError(message string) *Error {
	return &Error{Kind: KindValidation, Code: CodeValidation, Message: message}
}

// NewEntitlementDenied reports a premium or ticket gate
func NewEntitlementDenied(reason DenyReason) *Error {
	message := "この機能を利用するにはチケットが1枚必要です。"
	if reason == ReasonPremiumRequired {
		message = "この機能はプレミアムプラン限定です。"
	}
	return &Error{Kind: KindEntitlement, Code: CodeEntitlement, Message: message, Reason: reason}
}

// NewDataIntegrityError reports a selected profile missing from the loaded list
func NewDataIntegrityError(profileID int) *Error {
	return &Error{
		Kind:    KindDataIntegrity,
		Code:    CodeProfileNotFound,
		Message: fmt.Sprintf("選択された人物が見つかりません (id=%d)。最初からやり直してください。", profileID),
	}
}

// NewInvariantViolation reports a programmer error
func NewInvariantViolation(message string) *Error {
	return &Error{Kind: KindInvariant, Code: CodeInvariant, Message: message}
}

// KindOf returns the kind of err, or "" for foreign errors
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// IsKind reports whether err is a controller error of kind
func IsKind(err error, kind ErrorKind) bool {
	return KindOf(err) == kind
}

// UserMessage returns the text to show for err
func UserMessage(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Message
	}
	return "予期せぬエラーが発生しました。"
}

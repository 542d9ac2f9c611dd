package domain

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKindOf(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected ErrorKind
	}{
		{name: "network", err: NewNetworkError("", errors.New("dial")), expected: KindNetwork},
		{name: "timeout is network", err: NewTimeoutError(nil), expected: KindNetwork},
		{name: "auth", err: NewAuthError("", nil), expected: KindAuth},
		{name: "validation", err: NewValidationError("nickname is required"), expected: KindValidation},
		{name: "entitlement", err: NewEntitlementDenied(ReasonPremiumRequired), expected: KindEntitlement},
		{name: "data integrity", err: NewDataIntegrityError(7), expected: KindDataIntegrity},
		{name: "invariant", err: NewInvariantViolation("negative balance"), expected: KindInvariant},
		{name: "wrapped", err: fmt.Errorf("load: %w", NewNetworkError("", nil)), expected: KindNetwork},
		{name: "foreign", err: errors.New("boom"), expected: ""},
		{name: "nil", err: nil, expected: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, KindOf(tt.err))
		})
	}
}

func TestError_Unwrap(t *testing.T) {
	cause := errors.New("connection refused")
	err := NewNetworkError("", cause)

	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), CodeNetwork)
	assert.Contains(t, err.Error(), "connection refused")
}

func TestNewEntitlementDenied(t *testing.T) {
	premium := NewEntitlementDenied(ReasonPremiumRequired)
	tickets := NewEntitlementDenied(ReasonTicketsExhausted)

	assert.Equal(t, ReasonPremiumRequired, premium.Reason)
	assert.Equal(t, ReasonTicketsExhausted, tickets.Reason)
	assert.NotEqual(t, premium.Message, tickets.Message)
}

func TestUserMessage(t *testing.T) {
	assert.Equal(t, "入力してください", UserMessage(NewValidationError("入力してください")))
	assert.NotEmpty(t, UserMessage(errors.New("boom")))
}

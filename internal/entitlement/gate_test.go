package entitlement

import (
	"testing"

	"uranai/internal/domain"

	"github.com/stretchr/testify/assert"
)

func TestCanAddProfile(t *testing.T) {
	tests := []struct {
		name         string
		profileCount int
		isPremium    bool
		allowed      bool
	}{
		{name: "free under cap", profileCount: 2, isPremium: false, allowed: true},
		{name: "free at cap", profileCount: 3, isPremium: false, allowed: false},
		{name: "free over cap", profileCount: 5, isPremium: false, allowed: false},
		{name: "premium at cap", profileCount: 3, isPremium: true, allowed: true},
		{name: "premium far over cap", profileCount: 40, isPremium: true, allowed: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := CanAddProfile(tt.profileCount, tt.isPremium)
			assert.Equal(t, tt.allowed, d.Allowed)
			if !tt.allowed {
				assert.Equal(t, domain.ReasonPremiumRequired, d.Reason)
				assert.True(t, domain.IsKind(d.Err(), domain.KindEntitlement))
			} else {
				assert.NoError(t, d.Err())
			}
		})
	}
}

func TestCanConsumeAction(t *testing.T) {
	tests := []struct {
		name      string
		balance   int
		isPremium bool
		allowed   bool
	}{
		{name: "has tickets", balance: 1, allowed: true},
		{name: "no tickets", balance: 0, allowed: false},
		{name: "premium without tickets", balance: 0, isPremium: true, allowed: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := CanConsumeAction(tt.balance, tt.isPremium)
			assert.Equal(t, tt.allowed, d.Allowed)
			if !tt.allowed {
				assert.Equal(t, domain.ReasonTicketsExhausted, d.Reason)
			}
		})
	}
}

func TestCanUseFortuneType(t *testing.T) {
	assert.False(t, CanUseFortuneType(domain.FortuneComprehensive, false).Allowed)
	assert.True(t, CanUseFortuneType(domain.FortuneComprehensive, true).Allowed)
	assert.True(t, CanUseFortuneType(domain.FortuneTarot, false).Allowed)
}

func TestConsumeTicket(t *testing.T) {
	balance, err := ConsumeTicket(2)
	assert.NoError(t, err)
	assert.Equal(t, 1, balance)

	balance, err = ConsumeTicket(0)
	assert.True(t, domain.IsKind(err, domain.KindInvariant))
	assert.Equal(t, 0, balance)
}

func TestGatedConsumptionNeverNegative(t *testing.T) {
	balance := 3
	for i := 0; i < 10; i++ {
		if !CanConsumeAction(balance, false).Allowed {
			continue
		}
		var err error
		balance, err = ConsumeTicket(balance)
		assert.NoError(t, err)
		assert.GreaterOrEqual(t, balance, 0)
	}
	assert.Equal(t, 0, balance)
}

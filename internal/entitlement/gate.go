package entitlement

import "uranai/internal/domain"

// MaxFreeProfiles is the profile cap for non-premium users
const MaxFreeProfiles = 3

// Decision is the outcome of a gate check
type Decision struct {
	Allowed bool
	Reason  domain.DenyReason
}

func allow() Decision {
	return Decision{Allowed: true}
}

func deny(reason domain.DenyReason) Decision {
	return Decision{Reason: reason}
}

// Err returns the EntitlementDenied error for a denial, or nil
func (d Decision) Err() error {
	if d.Allowed {
		return nil
	}
	return domain.NewEntitlementDenied(d.Reason)
}

// CanAddProfile denies once the free cap is reached
func CanAddProfile(profileCount int, isPremium bool) Decision {
	if !isPremium && profileCount >= MaxFreeProfiles {
		return deny(domain.ReasonPremiumRequired)
	}
	return allow()
}

// CanConsumeAction checks whether a ticket-consuming action may run
func CanConsumeAction(ticketBalance int, isPremium bool) Decision {
	if !isPremium && ticketBalance <= 0 {
		return deny(domain.ReasonTicketsExhausted)
	}
	return allow()
}

// CanUseFortuneType denies premium-only types to free users
func CanUseFortuneType(t domain.FortuneType, isPremium bool) Decision {
	if t.PremiumOnly() && !isPremium {
		return deny(domain.ReasonPremiumRequired)
	}
	return allow()
}

// ConsumeTicket decrements the balance. Callers check CanConsumeAction first.
func ConsumeTicket(ticketBalance int) (int, error) {
	if ticketBalance <= 0 {
		return ticketBalance, domain.NewInvariantViolation("ticket balance would become negative")
	}
	return ticketBalance - 1, nil
}

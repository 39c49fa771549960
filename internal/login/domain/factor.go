package domain

// Factor is one secondary authentication method. The set is closed and
// exhaustively enumerable; dispatch on it with a switch, not a lookup table.
type Factor string

const (
	FactorTOTP        Factor = "totp"
	FactorSecurityKey Factor = "security_key"
	FactorEmail       Factor = "email"
	FactorRecovery    Factor = "recovery"
)

// Valid reports whether f is one of the known factors.
func (f Factor) Valid() bool {
	switch f {
	case FactorTOTP, FactorSecurityKey, FactorEmail, FactorRecovery:
		return true
	}
	return false
}

func (f Factor) String() string { return string(f) }

// Capabilities is the snapshot of secondary factors available for a single
// login attempt. It is written once from the credential verifier's response
// and never mutated afterwards.
type Capabilities struct {
	TOTP        bool
	SecurityKey bool
	Email       bool
	Recovery    bool // recovery codes usable as a fallback
}

// Has reports whether the factor may be selected for this attempt.
// Recovery is selectable whenever recovery codes exist for the user.
func (c Capabilities) Has(f Factor) bool {
	switch f {
	case FactorTOTP:
		return c.TOTP
	case FactorSecurityKey:
		return c.SecurityKey
	case FactorEmail:
		return c.Email
	case FactorRecovery:
		return c.Recovery
	}
	return false
}

// Empty reports whether no primary secondary factor is enabled. Recovery
// codes alone do not count: they are a fallback for the other factors, not a
// factor a user can be challenged with on their own.
func (c Capabilities) Empty() bool {
	return !c.TOTP && !c.SecurityKey && !c.Email
}

// Methods lists the selectable factors in a stable order, for the
// factor-selection prompt.
func (c Capabilities) Methods() []Factor {
	var out []Factor
	if c.TOTP {
		out = append(out, FactorTOTP)
	}
	if c.SecurityKey {
		out = append(out, FactorSecurityKey)
	}
	if c.Email {
		out = append(out, FactorEmail)
	}
	if c.Recovery {
		out = append(out, FactorRecovery)
	}
	return out
}

package domain

import "time"

type User struct {
	ID           string
	Username     string
	Email        string
	PasswordHash string // argon2id encoded
	IsAdmin      bool

	TOTPEnabled        *time.Time // when TOTP was activated (nullable)
	TOTPSecret         *string    // base32 secret (nullable)
	EmailMFAEnabled    *time.Time // when email codes were enabled (nullable)
	SecurityKeyEnabled *time.Time // when a security key was registered (nullable)

	CreatedAt time.Time
	UpdatedAt time.Time
}

// MFACapabilities derives the capability snapshot for a login attempt from
// the user's enrolled factors. recoveryCodes is the count of unused recovery
// codes; recovery is only offered while at least one remains and some other
// factor is enrolled.
func (u User) MFACapabilities(recoveryCodes int) Capabilities {
	caps := Capabilities{
		TOTP:        u.TOTPEnabled != nil && u.TOTPSecret != nil,
		Email:       u.EmailMFAEnabled != nil,
		SecurityKey: u.SecurityKeyEnabled != nil,
	}
	caps.Recovery = recoveryCodes > 0 && !caps.Empty()
	return caps
}

// MFARequired reports whether the user must pass a secondary factor.
func (u User) MFARequired() bool {
	return u.TOTPEnabled != nil || u.EmailMFAEnabled != nil || u.SecurityKeyEnabled != nil
}

package service

import "context"

// UnconfiguredSecurityKeyVerifier stands in when no security-key backend is
// wired. The factor still appears in capabilities for enrolled users, but
// every challenge reports the verifier as unreachable, which leaves the
// attempt state untouched and the other factors selectable.
type UnconfiguredSecurityKeyVerifier struct{}

func (UnconfiguredSecurityKeyVerifier) VerifyChallenge(context.Context, string, string) error {
	return ErrVerifierUnavailable
}

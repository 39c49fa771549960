package service

import "errors"

// Error taxonomy for the login sequence. Handlers dispatch on these with
// errors.Is; verifier implementations return them (possibly wrapped).
var (
	// ErrInvalidCredentials covers failed primary verification.
	ErrInvalidCredentials = errors.New("invalid_credentials")

	// ErrValidation reports empty or malformed input. No verifier round-trip
	// is attempted.
	ErrValidation = errors.New("validation_error")

	// ErrInvalidFactor reports selection of a factor that was not offered for
	// this attempt. This is a programming error, not a user error.
	ErrInvalidFactor = errors.New("invalid_factor")

	// ErrRejected reports a wrong code. Recoverable; the user may retry.
	ErrRejected = errors.New("rejected")

	// ErrAlreadyUsed reports a recovery code replay. Recoverable only with a
	// different code.
	ErrAlreadyUsed = errors.New("recovery_code_already_used")

	// ErrLockedOut is the factor-specific hard stop after too many failures.
	// Other factors, if any remain, are still selectable.
	ErrLockedOut = errors.New("locked_out")

	// ErrAlreadyInProgress reports a submit while another challenge
	// round-trip is outstanding for the same attempt.
	ErrAlreadyInProgress = errors.New("challenge_already_in_progress")

	// ErrVerifierUnavailable is retryable; the attempt state is unchanged.
	ErrVerifierUnavailable = errors.New("verifier_unavailable")

	// ErrAttemptNotFound covers unknown, expired, or cancelled attempts.
	ErrAttemptNotFound = errors.New("login_attempt_not_found")

	// ErrNoCapabilities means the MFA stage was reached with nothing to
	// present. The attempt terminates and the caller reroutes; it must never
	// sit in factor selection with an empty set.
	ErrNoCapabilities = errors.New("no_mfa_capabilities")
)

// isRejection reports whether err is a definitive "wrong code" answer, as
// opposed to an infrastructure failure.
func isRejection(err error) bool {
	return errors.Is(err, ErrRejected) || errors.Is(err, ErrAlreadyUsed)
}

// rejectionMessage is the sticky per-factor error line shown on the prompt.
func rejectionMessage(err error) string {
	if errors.Is(err, ErrAlreadyUsed) {
		return "recovery code already used"
	}
	return "code rejected"
}

package service

import (
	"github.com/ironveil/warden/internal/login/domain"
)

// Post-login destinations. The authorization continuation re-enters the
// interrupted third-party flow with its original parameters intact.
const (
	PathAuthorizeContinue = "/v1/oauth/authorize"
	PathEnroll            = "/enroll"
	PathDefaultLanding    = "/me"
)

// ResolveRedirect computes the single post-login navigation target from the
// established session and the carried context, in precedence order: pending
// authorization continuation, then enrollment ticket, then the default
// landing page. It is a pure function of its two inputs and is total: every
// input pair yields exactly one target.
func ResolveRedirect(_ domain.Session, carried domain.CarriedContext) domain.RedirectTarget {
	switch {
	case carried.Authorization != nil:
		return domain.RedirectTarget{
			Path:  PathAuthorizeContinue,
			Query: carried.Authorization.Params,
		}
	case carried.Enrollment != nil:
		q := make(map[string][]string, 1)
		if carried.Enrollment.Token != "" {
			q["ticket"] = []string{carried.Enrollment.Token}
		}
		return domain.RedirectTarget{Path: PathEnroll, Query: q}
	default:
		return domain.RedirectTarget{Path: PathDefaultLanding}
	}
}

package authz

// Effect is the outcome of a single guard in the pipeline.
type Effect int

const (
	// EffectAllow lets the request continue to the next guard.
	EffectAllow Effect = iota
	// EffectDeny fails hard with the given status (401, 403, 404).
	EffectDeny
	// EffectSoftDeny redirects with a flash message instead of failing,
	// matching how the product treats authorization misses that are
	// navigation mistakes rather than attacks.
	EffectSoftDeny
)

type Decision struct {
	Effect     Effect
	Status     int
	Message    string
	RedirectTo string
}

func Allow() Decision {
	return Decision{Effect: EffectAllow}
}

func Deny(status int, message string) Decision {
	return Decision{Effect: EffectDeny, Status: status, Message: message}
}

func SoftDeny(redirectTo, message string) Decision {
	return Decision{Effect: EffectSoftDeny, RedirectTo: redirectTo, Message: message}
}

func (d Decision) Allowed() bool {
	return d.Effect == EffectAllow
}

// Guard is one stage of the authorization pipeline. Guards compose left to
// right; the first non-allow decision wins.
type Guard func(Identity) Decision

func Evaluate(id Identity, guards ...Guard) Decision {
	for _, g := range guards {
		if d := g(id); !d.Allowed() {
			return d
		}
	}
	return Allow()
}

// RequireTenant denies identities with no company association.
func RequireTenant() Guard {
	return func(id Identity) Decision {
		if id.IsSuperuser {
			return Allow()
		}
		if id.CompanyID == 0 {
			return Deny(403, "your account is not associated with a company")
		}
		return Allow()
	}
}

// RequireCapability soft-denies to the home page when the role lacks the
// capability.
func RequireCapability(c Capability) Guard {
	return func(id Identity) Decision {
		if id.Can(c) {
			return Allow()
		}
		return SoftDeny("/", "you do not have permission to access this page")
	}
}

// RequireRole allows any of the listed roles.
func RequireRole(roles ...Role) Guard {
	return func(id Identity) Decision {
		if id.IsSuperuser {
			return Allow()
		}
		for _, r := range roles {
			if id.Role == r {
				return Allow()
			}
		}
		return SoftDeny("/", "you do not have permission to access this page")
	}
}

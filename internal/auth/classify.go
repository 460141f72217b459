package auth

// State is the inferred position of the authorization flow.
type State int

const (
	StateCachedValid State = iota
	StateCodePending
	StateRefreshable
	StateNeedsConsent
)

func (s State) String() string {
	switch s {
	case StateCachedValid:
		return "cached_valid"
	case StateCodePending:
		return "code_pending"
	case StateRefreshable:
		return "refreshable"
	case StateNeedsConsent:
		return "needs_consent"
	default:
		return "unknown"
	}
}

// Snapshot is everything [Classify] looks at.
type Snapshot struct {
	HasValidToken   bool
	Code            string
	HasRefreshToken bool
}

// Classify picks the state for a snapshot: cache, then pending code, then refresh, then consent.
func Classify(s Snapshot) State {
	switch {
	case s.HasValidToken:
		return StateCachedValid
	case s.Code != "":
		return StateCodePending
	case s.HasRefreshToken:
		return StateRefreshable
	default:
		return StateNeedsConsent
	}
}

package settlement

import (
	"time"

	"tournament/internal/models"
)

type Transition int

const (
	TransitionNone Transition = iota
	TransitionActivate
	TransitionConclude
)

func (t Transition) String() string {
	switch t {
	case TransitionActivate:
		return "activate"
	case TransitionConclude:
		return "conclude"
	default:
		return "none"
	}
}

// Evaluate decides the next lifecycle step of a challenge. It never writes.
//
// An active challenge past its expiry only concludes once it has at least one
// activity record, so a tournament nobody interacts with stays active. An
// upcoming challenge whose whole window passed unobserved stays upcoming: there
// is no upcoming -> concluded edge.
func Evaluate(challenge *models.Challenge, now time.Time, hasActivity bool) Transition {
	if challenge == nil {
		return TransitionNone
	}

	switch challenge.Status {
	case models.ChallengeStatusUpcoming:
		if !now.Before(challenge.StartDate) && !now.After(challenge.Expiry) {
			return TransitionActivate
		}
	case models.ChallengeStatusActive:
		if now.After(challenge.Expiry) && hasActivity {
			return TransitionConclude
		}
	}

	return TransitionNone
}

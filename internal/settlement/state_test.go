package settlement

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"tournament/internal/models"
)

func TestEvaluate(t *testing.T) {
	start := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	expiry := start.Add(24 * time.Hour)

	tests := []struct {
		name        string
		status      models.ChallengeStatus
		now         time.Time
		hasActivity bool
		want        Transition
	}{
		{"upcoming before start", models.ChallengeStatusUpcoming, start.Add(-time.Second), false, TransitionNone},
		{"upcoming at start", models.ChallengeStatusUpcoming, start, false, TransitionActivate},
		{"upcoming at expiry", models.ChallengeStatusUpcoming, expiry, false, TransitionActivate},
		{"upcoming after window", models.ChallengeStatusUpcoming, expiry.Add(time.Second), true, TransitionNone},
		{"active before expiry", models.ChallengeStatusActive, expiry.Add(-time.Second), true, TransitionNone},
		{"active at expiry", models.ChallengeStatusActive, expiry, true, TransitionNone},
		{"active expired with activity", models.ChallengeStatusActive, expiry.Add(time.Second), true, TransitionConclude},
		{"active expired without activity", models.ChallengeStatusActive, expiry.Add(time.Second), false, TransitionNone},
		{"concluded", models.ChallengeStatusConcluded, expiry.Add(time.Hour), true, TransitionNone},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			challenge := &models.Challenge{Status: tt.status, StartDate: start, Expiry: expiry}
			assert.Equal(t, tt.want, Evaluate(challenge, tt.now, tt.hasActivity))
		})
	}
}

func TestEvaluateUntouchedTournamentNeverConcludes(t *testing.T) {
	expiry := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	challenge := &models.Challenge{Status: models.ChallengeStatusActive, StartDate: expiry.Add(-time.Hour), Expiry: expiry}

	for _, after := range []time.Duration{time.Second, time.Hour, 24 * time.Hour * 365 * 10} {
		assert.Equal(t, TransitionNone, Evaluate(challenge, expiry.Add(after), false))
	}
}

func TestEvaluateNil(t *testing.T) {
	assert.Equal(t, TransitionNone, Evaluate(nil, time.Now(), true))
}

package settlement

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"tournament/internal/models"
)

func TestPrize(t *testing.T) {
	tests := []struct {
		name      string
		challenge models.Challenge
		want      float64
	}{
		{"multiplier one uses winning prize", models.Challenge{FeeMultiplier: ptr(1.0), WinningPrize: 500, EntryFee: 7}, 500},
		{"multiplier scales entry fee", models.Challenge{FeeMultiplier: ptr(20.0), EntryFee: 2}, 40},
		{"missing multiplier defaults to 100", models.Challenge{EntryFee: 0.5}, 50},
		{"zero multiplier defaults to 100", models.Challenge{FeeMultiplier: ptr(0.0), EntryFee: 1}, 100},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Prize(&tt.challenge))
		})
	}
}

func TestComputePrizeFigures(t *testing.T) {
	challenge := &models.Challenge{EntryFee: 2, FeeMultiplier: ptr(20.0), UsdPrize: 123}

	figures := ComputePrizeFigures(challenge, 5.5)

	assert.Equal(t, 2.0, figures.MessagePrice)
	assert.Equal(t, 11.0, figures.UsdMessagePrice)
	assert.Equal(t, 20.0, figures.FeeMultiplier)
	assert.Equal(t, 40.0, figures.Prize)
	assert.Equal(t, 123.0, figures.UsdPrize)
	assert.Equal(t, 5.5, figures.Quote)
}

package settlement

import "tournament/internal/models"

const DefaultFeeMultiplier = 100

type PrizeFigures struct {
	MessagePrice    float64 `json:"message_price"`
	UsdMessagePrice float64 `json:"usdMessagePrice"`
	FeeMultiplier   float64 `json:"fee_multiplier"`
	Prize           float64 `json:"prize"`
	UsdPrize        float64 `json:"usdPrize"`
	Quote           float64 `json:"quote"`
}

func EffectiveFeeMultiplier(challenge *models.Challenge) float64 {
	if challenge.FeeMultiplier == nil || *challenge.FeeMultiplier == 0 {
		return DefaultFeeMultiplier
	}
	return *challenge.FeeMultiplier
}

// Prize is the configured winning prize when the multiplier is exactly 1,
// otherwise the entry fee scaled by the effective multiplier.
func Prize(challenge *models.Challenge) float64 {
	if challenge.FeeMultiplier != nil && *challenge.FeeMultiplier == 1 {
		return challenge.WinningPrize
	}
	return challenge.EntryFee * EffectiveFeeMultiplier(challenge)
}

// ComputePrizeFigures derives display figures. usd_prize is reported as
// configured; only the message price is converted with the quote.
func ComputePrizeFigures(challenge *models.Challenge, quote float64) PrizeFigures {
	return PrizeFigures{
		MessagePrice:    challenge.EntryFee,
		UsdMessagePrice: challenge.EntryFee * quote,
		FeeMultiplier:   EffectiveFeeMultiplier(challenge),
		Prize:           Prize(challenge),
		UsdPrize:        challenge.UsdPrize,
		Quote:           quote,
	}
}

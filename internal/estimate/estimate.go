package estimate

import (
	"math"

	"BranchRadar/internal/model"
)

// EstimateVolume converts a signed net amount in thousands of TWD into
// thousand-share lots at the given closing price. The second return value is
// false when no usable price exists; no division is attempted in that case.
func EstimateVolume(netAmountK int64, price float64, hasPrice bool) (int64, bool) {
	if !hasPrice || price <= 0 {
		return 0, false
	}
	return int64(math.Round(float64(netAmountK) / price)), true
}

// DirectionOf derives the direction label from the sign of the net amount.
func DirectionOf(netAmountK int64) model.Direction {
	switch {
	case netAmountK > 0:
		return model.DirectionBuy
	case netAmountK < 0:
		return model.DirectionSell
	default:
		return model.DirectionFlat
	}
}

// PreciseCost is the true net position derived from one day of the secondary
// source's buy/sell breakdown. NetVol is in lots, NetAmountK in thousands.
type PreciseCost struct {
	NetVol     int64
	NetAmountK int64
	Cost       float64
}

// DerivePrecise computes the net volume, net amount and weighted average cost
// from one day's buy/sell volumes and average prices. Volumes are in
// thousand-share lots and average prices per share, so lots×price lands
// directly in thousands of TWD. When the net position is flat the weighted
// cost degenerates to that day's closing price.
func DerivePrecise(buyVol, buyAvg, sellVol, sellAvg, closePrice float64) PreciseCost {
	netVol := int64(buyVol - sellVol)
	netAmountK := buyVol*buyAvg - sellVol*sellAvg

	cost := closePrice
	if netVol != 0 {
		cost = math.Round(netAmountK/float64(netVol)*10) / 10
	}

	return PreciseCost{
		NetVol:     netVol,
		NetAmountK: int64(netAmountK),
		Cost:       cost,
	}
}

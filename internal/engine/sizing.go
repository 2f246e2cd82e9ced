package engine

import (
	"math"

	"tradefusion/models"
)

// PositionSize computes the order volume in lots so that hitting the stop
// loses at most riskPercent of the account balance. The result is rounded to
// the symbol's lot step and clamped to its lot bounds; it is 0 when the stop
// distance or symbol point is degenerate.
func PositionSize(balance, riskPercent, entry, stop float64, symbol models.SymbolInfo) float64 {
	if symbol.Point <= 0 || symbol.LotStep <= 0 {
		return 0
	}

	stopPoints := math.Abs(entry-stop) / symbol.Point
	if stopPoints == 0 {
		return 0
	}

	riskAmount := balance * riskPercent / 100
	size := riskAmount / stopPoints

	size = math.Round(size/symbol.LotStep) * symbol.LotStep
	if size < symbol.MinLot {
		size = symbol.MinLot
	}
	if size > symbol.MaxLot {
		size = symbol.MaxLot
	}
	return size
}

// Package trade holds the thin, shared plumbing several CLI commands
// need before they touch the exchange: direction parsing, slippage-price
// computation, and basic input validation. None of this touches the
// daemon or cache — it is pure, boundary-adjacent logic.
package trade

import (
	"fmt"
	"strings"
)

// Direction is the parsed result of a human-typed order direction.
type Direction struct {
	MarketType string // "perp" or "spot"
	IsBuy      bool
}

// ParseDirection accepts "long"/"short" (perp) and "buy"/"sell" (spot),
// case-insensitively, and rejects anything else.
func ParseDirection(s string) (Direction, error) {
	switch strings.ToLower(s) {
	case "long":
		return Direction{MarketType: "perp", IsBuy: true}, nil
	case "short":
		return Direction{MarketType: "perp", IsBuy: false}, nil
	case "buy":
		return Direction{MarketType: "spot", IsBuy: true}, nil
	case "sell":
		return Direction{MarketType: "spot", IsBuy: false}, nil
	default:
		return Direction{}, fmt.Errorf("invalid direction %q: want long, short, buy, or sell", s)
	}
}

package trade

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// SlippageLimitPrice converts a mid price into the IOC limit price a
// market order is actually placed at: mid × (1 ± slippage/100), per the
// GLOSSARY definition of slippage.
func SlippageLimitPrice(mid string, slippagePercent float64, isBuy bool) (string, error) {
	midDec, err := decimal.NewFromString(mid)
	if err != nil {
		return "", fmt.Errorf("parse mid price %q: %w", mid, err)
	}
	if slippagePercent < 0 {
		return "", fmt.Errorf("slippage must be non-negative, got %v", slippagePercent)
	}

	factor := decimal.NewFromFloat(slippagePercent).Div(decimal.NewFromInt(100))
	one := decimal.NewFromInt(1)
	multiplier := one.Add(factor)
	if !isBuy {
		multiplier = one.Sub(factor)
	}

	return midDec.Mul(multiplier).String(), nil
}

// ValidateSize rejects a non-positive order size before any network call,
// per the input-validation error kind.
func ValidateSize(size string) error {
	sz, err := decimal.NewFromString(size)
	if err != nil {
		return fmt.Errorf("invalid size %q: %w", size, err)
	}
	if sz.Sign() <= 0 {
		return fmt.Errorf("size must be positive, got %s", size)
	}
	return nil
}

// ValidateAddress rejects obviously malformed addresses before any
// network call. Full checksum validation is an exchange concern; this
// core only rules out the clearly-wrong shape.
func ValidateAddress(addr string) error {
	if len(addr) != 42 || addr[:2] != "0x" {
		return fmt.Errorf("invalid address %q: want 0x-prefixed 40 hex characters", addr)
	}
	for _, c := range addr[2:] {
		isHex := (c >= '0' && c <= '9') || (c >= 'a' && c <= 'f') || (c >= 'A' && c <= 'F')
		if !isHex {
			return fmt.Errorf("invalid address %q: non-hex character %q", addr, c)
		}
	}
	return nil
}

package trade

import "testing"

func TestSlippageLimitPrice(t *testing.T) {
	t.Run("buy adds slippage", func(t *testing.T) {
		got, err := SlippageLimitPrice("100", 1.0, true)
		if err != nil {
			t.Fatal(err)
		}
		if got != "101" {
			t.Errorf("got %s, want 101", got)
		}
	})

	t.Run("sell subtracts slippage", func(t *testing.T) {
		got, err := SlippageLimitPrice("100", 1.0, false)
		if err != nil {
			t.Fatal(err)
		}
		if got != "99" {
			t.Errorf("got %s, want 99", got)
		}
	})

	t.Run("negative slippage rejected", func(t *testing.T) {
		if _, err := SlippageLimitPrice("100", -1, true); err == nil {
			t.Error("expected error for negative slippage")
		}
	})

	t.Run("bad mid price rejected", func(t *testing.T) {
		if _, err := SlippageLimitPrice("not-a-number", 1, true); err == nil {
			t.Error("expected error for malformed mid price")
		}
	})
}

func TestValidateSize(t *testing.T) {
	if err := ValidateSize("1.5"); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if err := ValidateSize("-1"); err == nil {
		t.Error("expected error for negative size")
	}
	if err := ValidateSize("0"); err == nil {
		t.Error("expected error for zero size")
	}
}

func TestValidateAddress(t *testing.T) {
	valid := "0x1234567890abcdef1234567890abcdef12345678"
	if err := ValidateAddress(valid); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if err := ValidateAddress("not-an-address"); err == nil {
		t.Error("expected error for malformed address")
	}
}

package cost

import (
	"testing"
)

func TestOperationCosts(t *testing.T) {
	m := Default()

	tests := []struct {
		op   Op
		want int
	}{
		{Identity, 0},
		{Negate, 1},
		{ShiftAdd, 2},
		{ShiftSub, 2},
		{ShiftRev, 1},
		{FactorAdd, 2},
		{FactorSub, 2},
		{FactorRev, 2},
	}

	for _, tt := range tests {
		if got := m.Of(tt.op); got != tt.want {
			t.Errorf("Of(%s) = %d, want %d", tt.op, got, tt.want)
		}
	}
}

func TestOperationCostsFollowModel(t *testing.T) {
	m := Model{Shift: 3, Add: 5, Sub: 7, Negate: 11, Multiply: 40}

	if got := m.Of(ShiftAdd); got != 8 {
		t.Errorf("Expected shift+add = 8, got %d", got)
	}
	if got := m.Of(FactorRev); got != 10 {
		t.Errorf("Expected shift+sub = 10, got %d", got)
	}
	if got := m.Of(ShiftRev); got != 3 {
		t.Errorf("Expected shift = 3, got %d", got)
	}
	if got := m.Of(Negate); got != 11 {
		t.Errorf("Expected negate = 11, got %d", got)
	}
}

func TestEstimateMultiplyIsBaseline(t *testing.T) {
	m := Default()
	for _, c := range []int64{-128, -3, 3, 5, 127, 1 << 20} {
		if got := m.EstimateMultiply(c); got != DefaultMultiplyCost {
			t.Errorf("EstimateMultiply(%d) = %d, want %d", c, got, DefaultMultiplyCost)
		}
	}
}

func TestOpStringRoundTrip(t *testing.T) {
	for _, op := range Ops {
		parsed, err := ParseOp(op.String())
		if err != nil {
			t.Fatalf("ParseOp(%q) failed: %v", op.String(), err)
		}
		if parsed != op {
			t.Errorf("ParseOp(%q) = %v, want %v", op.String(), parsed, op)
		}
	}
	if _, err := ParseOp("factor-sub"); err != nil {
		t.Errorf("Expected dashed names to parse, got %v", err)
	}
	if _, err := ParseOp("rotate"); err == nil {
		t.Error("Expected an error for an unknown operation")
	}
}

func TestProfiles(t *testing.T) {
	m, err := Profile("Cortex-M0-Small")
	if err != nil {
		t.Fatalf("Profile failed: %v", err)
	}
	if m.Multiply != 30 {
		t.Errorf("Expected cortex-m0-small multiply cost 30, got %d", m.Multiply)
	}

	if _, err := Profile("pdp11"); err == nil {
		t.Error("Expected an error for an unknown profile")
	}

	names := ProfileNames()
	if len(names) != 2 || names[0] != "cortex-m0-small" || names[1] != "generic" {
		t.Errorf("Unexpected profile names: %v", names)
	}
}

func TestValidate(t *testing.T) {
	if err := Default().Validate(); err != nil {
		t.Errorf("Default model should be valid: %v", err)
	}

	bad := Default()
	bad.Shift = 0
	if err := bad.Validate(); err == nil {
		t.Error("Expected zero shift cost to be rejected")
	}

	bad = Default()
	bad.Multiply = -1
	if err := bad.Validate(); err == nil {
		t.Error("Expected negative multiply cost to be rejected")
	}
}

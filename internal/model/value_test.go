package model

import (
	"encoding/json"
	"math"
	"testing"
)

func TestSome_RejectsNonFinite(t *testing.T) {
	for _, f := range []float64{math.NaN(), math.Inf(1), math.Inf(-1)} {
		if Some(f).Valid() {
			t.Errorf("Some(%v) should be undefined", f)
		}
	}
	if v, ok := Some(1.5).Get(); !ok || v != 1.5 {
		t.Errorf("Some(1.5).Get() = %v, %v", v, ok)
	}
}

func TestValue_SubPropagatesUndefined(t *testing.T) {
	tests := []struct {
		a, b  Value
		want  float64
		valid bool
	}{
		{Some(5), Some(2), 3, true},
		{Some(5), None(), 0, false},
		{None(), Some(2), 0, false},
		{None(), None(), 0, false},
	}
	for i, tt := range tests {
		got := tt.a.Sub(tt.b)
		if got.Valid() != tt.valid {
			t.Errorf("case %d: valid = %v, want %v", i, got.Valid(), tt.valid)
			continue
		}
		if tt.valid && got.Or(0) != tt.want {
			t.Errorf("case %d: got %v, want %v", i, got.Or(0), tt.want)
		}
	}
}

func TestSnapshot_JSONUsesNullForUndefined(t *testing.T) {
	s := Snapshot{Symbol: "AAPL", Close: Some(190.5)}
	data, err := json.Marshal(s)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if raw["close"] != 190.5 {
		t.Errorf("close = %v, want 190.5", raw["close"])
	}
	if raw["slow_k"] != nil || raw["slow_k_delta"] != nil {
		t.Errorf("undefined fields should be null, got %v / %v", raw["slow_k"], raw["slow_k_delta"])
	}
}

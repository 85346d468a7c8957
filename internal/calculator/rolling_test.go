package calculator

import (
	"testing"

	"StochWatch/internal/model"
)

func vals(fs ...float64) []model.Value {
	out := make([]model.Value, len(fs))
	for i, f := range fs {
		out[i] = model.Some(f)
	}
	return out
}

func TestRolling(t *testing.T) {
	in := vals(3, 1, 4, 1, 5, 9)
	tests := []struct {
		name string
		fn   func([]model.Value, int) []model.Value
		want []float64
	}{
		{"min", RollingMin, []float64{1, 1, 1, 1}},
		{"max", RollingMax, []float64{4, 4, 5, 9}},
		{"mean", RollingMean, []float64{8.0 / 3, 2, 10.0 / 3, 5}},
	}
	for _, tt := range tests {
		got := tt.fn(in, 3)
		if len(got) != len(in) {
			t.Fatalf("%s: length %d, want %d", tt.name, len(got), len(in))
		}
		if got[0].Valid() || got[1].Valid() {
			t.Errorf("%s: leading entries should be undefined", tt.name)
		}
		for i, w := range tt.want {
			if v, ok := got[i+2].Get(); !ok || !approx(v, w) {
				t.Errorf("%s[%d] = %v (%v), want %v", tt.name, i+2, v, ok, w)
			}
		}
	}
}

func TestRolling_UndefinedPoisonsWindow(t *testing.T) {
	in := []model.Value{model.Some(1), model.None(), model.Some(3), model.Some(4), model.Some(5)}
	got := RollingMean(in, 2)
	want := []bool{false, false, false, true, true}
	for i, w := range want {
		if got[i].Valid() != w {
			t.Errorf("index %d: valid = %v, want %v", i, got[i].Valid(), w)
		}
	}
}

package formulas

import (
	"math"
	"testing"
)

func TestCompoundReturn(t *testing.T) {
	tests := []struct {
		name    string
		returns []float64
		want    float64
	}{
		{
			name:    "two gains compound",
			returns: []float64{0.05, 0.10},
			want:    0.155, // 1.05 * 1.10 - 1
		},
		{
			name:    "gain then offsetting loss",
			returns: []float64{0.10, -0.10},
			want:    -0.01,
		},
		{
			name:    "empty",
			returns: nil,
			want:    0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := CompoundReturn(tt.returns)
			if math.Abs(got-tt.want) > 1e-12 {
				t.Errorf("CompoundReturn() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestMaxDrawdown(t *testing.T) {
	tests := []struct {
		name  string
		curve []float64
		want  float64
	}{
		{
			name:  "monotonic curve has zero drawdown",
			curve: []float64{1.0, 1.1, 1.2, 1.2, 1.5},
			want:  0,
		},
		{
			name:  "single trough",
			curve: []float64{1.0, 1.2, 0.9, 1.3},
			want:  0.9/1.2 - 1, // -25%
		},
		{
			name:  "deepest of two troughs wins",
			curve: []float64{1.0, 0.9, 1.1, 0.77},
			want:  0.77/1.1 - 1, // -30%
		},
		{
			name:  "empty",
			curve: nil,
			want:  0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := MaxDrawdown(tt.curve)
			if math.Abs(got-tt.want) > 1e-12 {
				t.Errorf("MaxDrawdown() = %v, want %v", got, tt.want)
			}
			if got > 0 {
				t.Errorf("MaxDrawdown() = %v, must never be positive", got)
			}
		})
	}
}

func TestAnnualizedVolatility(t *testing.T) {
	returns := []float64{0.01, -0.02, 0.015, 0.0}

	got := AnnualizedVolatility(returns, 252)
	want := StdDev(returns) * math.Sqrt(252)
	if math.Abs(got-want) > 1e-12 {
		t.Errorf("AnnualizedVolatility() = %v, want %v", got, want)
	}

	if AnnualizedVolatility([]float64{0.01}, 252) != 0 {
		t.Error("single observation should yield zero volatility")
	}
}

func TestSMA(t *testing.T) {
	values := []float64{1, 2, 3, 4, 5}

	out := SMA(values, 3)
	if len(out) != len(values) {
		t.Fatalf("SMA length = %d, want %d", len(out), len(values))
	}
	if out[0] != nil || out[1] != nil {
		t.Error("warmup entries should be nil")
	}
	if out[2] == nil || math.Abs(*out[2]-2) > 1e-12 {
		t.Errorf("SMA[2] = %v, want 2", out[2])
	}
	if out[4] == nil || math.Abs(*out[4]-4) > 1e-12 {
		t.Errorf("SMA[4] = %v, want 4", out[4])
	}

	// Window larger than data: all nil, no panic.
	for i, v := range SMA([]float64{1, 2}, 5) {
		if v != nil {
			t.Errorf("entry %d should be nil", i)
		}
	}
}

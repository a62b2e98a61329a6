package flow

import (
	"math"
	"testing"
)

func TestPercentileRank(t *testing.T) {
	decade := []float64{10, 20, 30, 40, 50, 60, 70, 80, 90, 100}

	tests := []struct {
		name       string
		historical []float64
		current    float64
		want       float64
		wantValid  bool
	}{
		{
			name:       "mid-range value",
			historical: decade,
			current:    95,
			want:       90.0,
			wantValid:  true,
		},
		{
			name:       "tie with maximum not counted as above",
			historical: decade,
			current:    100,
			want:       90.0,
			wantValid:  true,
		},
		{
			name:       "above all values",
			historical: decade,
			current:    101,
			want:       100.0,
			wantValid:  true,
		},
		{
			name:       "below all values",
			historical: decade,
			current:    5,
			want:       0.0,
			wantValid:  true,
		},
		{
			name:       "tie with minimum",
			historical: decade,
			current:    10,
			want:       0.0,
			wantValid:  true,
		},
		{
			name:       "empty sample is unavailable",
			historical: nil,
			current:    50,
			wantValid:  false,
		},
		{
			name:       "all-NaN sample is unavailable",
			historical: []float64{math.NaN(), math.NaN()},
			current:    50,
			wantValid:  false,
		},
		{
			name:       "NaN entries excluded from denominator",
			historical: []float64{10, math.NaN(), 20, math.NaN(), 30, 40},
			current:    25,
			want:       50.0,
			wantValid:  true,
		},
		{
			name:       "constant sample tied with current",
			historical: []float64{50, 50, 50, 50},
			current:    50,
			want:       0.0,
			wantValid:  true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := PercentileRank(tt.historical, tt.current)
			if got.Valid != tt.wantValid {
				t.Fatalf("Valid = %v, want %v", got.Valid, tt.wantValid)
			}
			if got.Valid && got.Float64 != tt.want {
				t.Errorf("PercentileRank = %.4f, want %.4f", got.Float64, tt.want)
			}
		})
	}
}

func TestPercentileRank_Range(t *testing.T) {
	historical := []float64{3.2, 18, 0.5, 99, 42, 42, 7}
	for _, current := range []float64{-10, 0.5, 5, 42, 98.9, 99, 1e6} {
		got := PercentileRank(historical, current)
		if !got.Valid {
			t.Fatalf("PercentileRank(%v) unexpectedly unavailable", current)
		}
		if got.Float64 < 0 || got.Float64 > 100 {
			t.Errorf("PercentileRank(%v) = %.4f, outside [0,100]", current, got.Float64)
		}
	}
}

func TestPercentileRank_Monotonic(t *testing.T) {
	historical := []float64{5, 10, 10, 25, 70, 70, 71, 200}
	prev := -1.0
	for _, current := range []float64{0, 5, 6, 10, 11, 70, 71, 150, 201} {
		got := PercentileRank(historical, current)
		if !got.Valid {
			t.Fatalf("PercentileRank(%v) unexpectedly unavailable", current)
		}
		if got.Float64 < prev {
			t.Errorf("PercentileRank(%v) = %.4f decreased from %.4f", current, got.Float64, prev)
		}
		prev = got.Float64
	}
}

func TestSummarize(t *testing.T) {
	tests := []struct {
		name       string
		values     []float64
		wantMin    float64
		wantMax    float64
		wantMedian float64
		wantN      int
		wantOK     bool
	}{
		{
			name:       "odd count",
			values:     []float64{30, 10, 20},
			wantMin:    10,
			wantMax:    30,
			wantMedian: 20,
			wantN:      3,
			wantOK:     true,
		},
		{
			name:       "even count averages middle pair",
			values:     []float64{40, 10, 20, 30},
			wantMin:    10,
			wantMax:    40,
			wantMedian: 25,
			wantN:      4,
			wantOK:     true,
		},
		{
			name:       "NaN excluded",
			values:     []float64{math.NaN(), 12, 8},
			wantMin:    8,
			wantMax:    12,
			wantMedian: 10,
			wantN:      2,
			wantOK:     true,
		},
		{
			name:   "empty",
			values: nil,
			wantOK: false,
		},
		{
			name:   "all NaN",
			values: []float64{math.NaN()},
			wantOK: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := Summarize(tt.values)
			if ok != tt.wantOK {
				t.Fatalf("ok = %v, want %v", ok, tt.wantOK)
			}
			if !ok {
				return
			}
			if got.Min != tt.wantMin || got.Max != tt.wantMax {
				t.Errorf("range = [%.2f, %.2f], want [%.2f, %.2f]", got.Min, got.Max, tt.wantMin, tt.wantMax)
			}
			if got.Median != tt.wantMedian {
				t.Errorf("Median = %.2f, want %.2f", got.Median, tt.wantMedian)
			}
			if got.N != tt.wantN {
				t.Errorf("N = %d, want %d", got.N, tt.wantN)
			}
		})
	}
}

func TestSummarize_DoesNotMutateInput(t *testing.T) {
	values := []float64{9, 1, 5}
	if _, ok := Summarize(values); !ok {
		t.Fatal("Summarize returned !ok")
	}
	if values[0] != 9 || values[1] != 1 || values[2] != 5 {
		t.Errorf("input mutated: %v", values)
	}
}

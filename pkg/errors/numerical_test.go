package errors

import (
	"math"
	"strings"
	"testing"

	"gonum.org/v1/gonum/mat"
)

func TestCheckFinite(t *testing.T) {
	tests := []struct {
		name    string
		values  []float64
		step    int
		wantErr bool
		wantMsg string
	}{
		{"finite", []float64{0, -1.5, 1e300}, 0, false, ""},
		{"empty", nil, -1, false, ""},
		{"nan at fold", []float64{1, math.NaN()}, 3, true, "at step 3"},
		{"inf without step", []float64{math.Inf(-1)}, -1, true, "Values: [-Inf]"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := CheckFinite("score", tt.values, tt.step)
			if (err != nil) != tt.wantErr {
				t.Fatalf("CheckFinite() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err == nil {
				return
			}
			var ne *NumericalInstabilityError
			if !As(err, &ne) {
				t.Fatalf("expected *NumericalInstabilityError, got %T", err)
			}
			if len(ne.Values) != 1 {
				t.Errorf("reported values = %v, want only the bad one", ne.Values)
			}
			if !strings.Contains(err.Error(), tt.wantMsg) {
				t.Errorf("Error() = %q, want %q", err.Error(), tt.wantMsg)
			}
		})
	}
}

func TestCheckMatrix(t *testing.T) {
	m := mat.NewDense(2, 2, []float64{1, 2, 3, 4})
	if err := CheckMatrix("fit", m, 2, 2, -1); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	m.Set(1, 0, math.Inf(1))
	if err := CheckMatrix("fit", m, 2, 2, -1); err == nil {
		t.Error("expected an error for an infinite element")
	}
}

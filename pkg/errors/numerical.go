package errors

import "math"

const maxReportedValues = 10

// CheckFinite returns a NumericalInstabilityError when values contain NaN or
// Inf. step is the fold or iteration number, or -1.
func CheckFinite(operation string, values []float64, step int) error {
	var bad []float64
	for _, v := range values {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			bad = append(bad, v)
			if len(bad) == maxReportedValues {
				break
			}
		}
	}
	if len(bad) > 0 {
		return NewNumericalInstabilityError(operation, bad, step)
	}
	return nil
}

// CheckMatrix checks every element of an r×c matrix.
func CheckMatrix(operation string, m interface{ At(int, int) float64 }, rows, cols, step int) error {
	row := make([]float64, cols)
	for i := 0; i < rows; i++ {
		for j := range row {
			row[j] = m.At(i, j)
		}
		if err := CheckFinite(operation, row, step); err != nil {
			return err
		}
	}
	return nil
}

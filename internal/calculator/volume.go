package calculator

import "fmt"

// VolumeRatio divides the latest volume by the mean of the last window volumes.
func VolumeRatio(volumes []float64, window int) (float64, error) {
	avg, err := CalculateSMA(volumes, window)
	if err != nil {
		return 0, err
	}
	if avg == 0 {
		return 0, fmt.Errorf("%w: zero average volume", ErrInsufficientData)
	}
	return volumes[len(volumes)-1] / avg, nil
}

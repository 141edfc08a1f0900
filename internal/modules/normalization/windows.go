package normalization

import "fmt"

// Window is W consecutive scaled values and the value that follows them.
type Window struct {
	History []float64
	Target  float64
}

// MakeWindows slides a window of length w over scaled with stride 1, oldest first.
// It yields exactly len(scaled)-w windows.
func MakeWindows(scaled []float64, w int) ([]Window, error) {
	if w <= 0 {
		return nil, fmt.Errorf("window size must be positive, got %d", w)
	}
	if len(scaled) <= w {
		return nil, fmt.Errorf("series of length %d too short for window size %d", len(scaled), w)
	}

	windows := make([]Window, 0, len(scaled)-w)
	for i := 0; i+w < len(scaled); i++ {
		windows = append(windows, Window{
			History: scaled[i : i+w : i+w],
			Target:  scaled[i+w],
		})
	}
	return windows, nil
}

package sequence

// Config holds the network shape and training schedule. All values are fixed per deployment.
type Config struct {
	WindowSize int
	Hidden1    int
	Hidden2    int

	Epochs       int
	BatchSize    int
	LearningRate float64
	Beta1        float64
	Beta2        float64
	Epsilon      float64
	ClipNorm     float64

	// Seed fixes weight initialisation and shuffling. Zero draws a fresh seed per fit.
	Seed uint64
}

// DefaultConfig returns the reference architecture: two 50-unit layers, one epoch, batch size 1.
func DefaultConfig() Config {
	return Config{
		WindowSize:   60,
		Hidden1:      50,
		Hidden2:      50,
		Epochs:       1,
		BatchSize:    1,
		LearningRate: 0.001,
		Beta1:        0.9,
		Beta2:        0.999,
		Epsilon:      1e-7,
		ClipNorm:     5.0,
	}
}

package tensor

import "math"

// Lookup table geometry for Sigmoid and Log.
const (
	SigmoidTableSize = 512
	MaxSigmoid       = 8
	LogTableSize     = 512
)

// Both tables have one extra slot so the upper domain edge maps to a valid bucket.
var (
	sigmoidTable = func() []float32 {
		t := make([]float32, SigmoidTableSize+1)
		for i := range t {
			x := float64(i*2*MaxSigmoid)/SigmoidTableSize - MaxSigmoid
			t[i] = float32(1.0 / (1.0 + math.Exp(-x)))
		}
		return t
	}()

	logTable = func() []float32 {
		t := make([]float32, LogTableSize+1)
		for i := range t {
			x := (float64(i) + 1e-5) / LogTableSize
			t[i] = float32(math.Log(x))
		}
		return t
	}()
)

// Sigmoid approximates the logistic function with a 512 bucket table over
// [-MaxSigmoid, MaxSigmoid]. Inputs outside that range saturate to 0 or 1.
// NaN is returned unchanged.
func Sigmoid(x float32) float32 {
	switch {
	case x != x:
		return x
	case x < -MaxSigmoid:
		return 0
	case x > MaxSigmoid:
		return 1
	}
	i := int((x + MaxSigmoid) * SigmoidTableSize / MaxSigmoid / 2)
	return sigmoidTable[i]
}

// Log approximates ln(x) for probabilities. x >= 1 returns exactly 0 and NaN
// is returned unchanged.
func Log(x float32) float32 {
	if x != x {
		return x
	}
	if x >= 1 {
		return 0
	}
	if x <= 0 {
		return logTable[0]
	}
	return logTable[int(x*LogTableSize)]
}

// StdLog is ln(x + 1e-5), used for ranking prediction scores.
func StdLog(x float32) float32 {
	return float32(math.Log(float64(x) + 1e-5))
}

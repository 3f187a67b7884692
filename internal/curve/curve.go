// Package curve holds the cure success-rate table. Rates are 16-bit
// fractions of MaxRate indexed by the number of cure attempts a doctor has
// already made.
package curve

import "math"

const (
	// MaxRate is a guaranteed success
	MaxRate uint16 = math.MaxUint16

	// Floor is the asymptotic rate reached by the tail, about 0.24% of MaxRate
	Floor uint16 = 157

	// GraceAttempts is the number of leading attempts that always succeed
	GraceAttempts = 3
)

var table = build()

// build precomputes MaxRate / (1 + (k-2)·log2(k-1)) for k past the grace
// window until it meets Floor
func build() []uint16 {
	t := make([]uint16, 0, 128)
	for k := 0; k < GraceAttempts; k++ {
		t = append(t, MaxRate)
	}
	for k := GraceAttempts; ; k++ {
		d := 1 + float64(k-2)*math.Log2(float64(k-1))
		r := math.Round(float64(MaxRate) / d)
		if r <= float64(Floor) {
			t = append(t, Floor)
			return t
		}
		t = append(t, uint16(r))
	}
}

// SuccessRate returns the rate of the attempt made after `attempts` earlier ones
func SuccessRate(attempts uint32) uint16 {
	if int(attempts) >= len(table) {
		return table[len(table)-1]
	}
	return table[attempts]
}

// Guaranteed reports whether a rate always succeeds
func Guaranteed(rate uint16) bool {
	return rate == MaxRate
}

// Len is the number of explicitly defined entries
func Len() int {
	return len(table)
}

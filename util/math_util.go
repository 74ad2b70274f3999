package util

import (
	"math"
)

// SafeAdd returns a+b and checks for overflow
func SafeAdd(a, b uint32) (uint32, bool) {
	if a > math.MaxUint32-b {
		return 0, false
	}
	return a + b, true
}

// SafeSub returns a-b and checks for underflow
func SafeSub(a, b uint32) (uint32, bool) {
	if a < b {
		return 0, false
	}
	return a - b, true
}

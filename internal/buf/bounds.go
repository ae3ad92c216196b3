package buf

import (
	"fmt"
	"math"
)

// AddOverflowSafe adds a and b, returning ok = false when the result would overflow int.
func AddOverflowSafe(a, b int) (int, bool) {
	switch {
	case b > 0 && a > math.MaxInt-b:
		return 0, false
	case b < 0 && a < math.MinInt-b:
		return 0, false
	default:
		return a + b, true
	}
}

// CheckSlice validates that n bytes starting at offset fit inside a buffer
// of bufLen bytes. Returns the end offset if valid, or an error describing
// the specific failure (overflow or out of bounds). Instance-frame scans
// use this before stepping past a size prefix so that a hostile size value
// cannot index outside the blob.
func CheckSlice(bufLen, offset, n int) (int, error) {
	if offset < 0 {
		return 0, fmt.Errorf("negative offset: %d", offset)
	}
	if n < 0 {
		return 0, fmt.Errorf("negative length: %d", n)
	}
	end, ok := AddOverflowSafe(offset, n)
	if !ok {
		return 0, fmt.Errorf("overflow: offset=%d + len=%d", offset, n)
	}
	if end > bufLen {
		return 0, fmt.Errorf("out of bounds: need %d bytes, have %d", end, bufLen)
	}
	return end, nil
}

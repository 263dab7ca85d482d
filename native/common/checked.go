package common

import (
	"errors"
	"math"

	"github.com/holiman/uint256"
)

// ErrOverflow is returned by every checked helper when the result does not fit
// in an unsigned 64-bit integer (or would go negative).
var ErrOverflow = errors.New("checked arithmetic overflow")

// AddU64 returns a+b or ErrOverflow.
func AddU64(a, b uint64) (uint64, error) {
	if a > math.MaxUint64-b {
		return 0, ErrOverflow
	}
	return a + b, nil
}

// SubU64 returns a-b or ErrOverflow when b exceeds a.
func SubU64(a, b uint64) (uint64, error) {
	if b > a {
		return 0, ErrOverflow
	}
	return a - b, nil
}

// MulU64 returns the product of all factors or ErrOverflow. The product is
// accumulated in 256 bits so intermediate results never wrap.
func MulU64(factors ...uint64) (uint64, error) {
	if len(factors) == 0 {
		return 0, nil
	}
	acc := uint256.NewInt(1)
	for _, f := range factors {
		if _, overflow := acc.MulOverflow(acc, uint256.NewInt(f)); overflow {
			return 0, ErrOverflow
		}
	}
	if !acc.IsUint64() {
		return 0, ErrOverflow
	}
	return acc.Uint64(), nil
}

package defect

import (
	"errors"
	"math"
)

var errIntRange = errors.New("result out of int64 range")

func toInt(x float64) (int64, error) {
	x = math.Round(x)
	if math.IsNaN(x) || x >= math.MaxInt64 || x < math.MinInt64 {
		return 0, errIntRange
	}
	return int64(x), nil
}

// arith is the per-cell operation behind negate, scale and offset: x*mul+add.
type arith struct{ mul, add float64 }

func (a arith) float(x float64) float64 {
	y := x
	if a.mul != 1 {
		y *= a.mul
	}
	if a.add != 0 {
		y += a.add
	}
	if y == 0 {
		return 0
	}
	return y
}

// int keeps integral operands in int64 so large keys do not pass through a
// float64 mantissa. Fractional operands round the float result.
func (a arith) int(x int64) (int64, error) {
	m, mok := exactInt(a.mul)
	d, dok := exactInt(a.add)
	if !mok || !dok {
		return toInt(a.float(float64(x)))
	}
	y, ok := mulInt64(x, m)
	if !ok {
		return 0, errIntRange
	}
	if y, ok = addInt64(y, d); !ok {
		return 0, errIntRange
	}
	return y, nil
}

func exactInt(x float64) (int64, bool) {
	if x != math.Trunc(x) || x >= math.MaxInt64 || x < math.MinInt64 {
		return 0, false
	}
	return int64(x), true
}

func mulInt64(a, b int64) (int64, bool) {
	if a == 0 || b == 0 {
		return 0, true
	}
	c := a * b
	if (a == -1 && b == math.MinInt64) || (b == -1 && a == math.MinInt64) || c/b != a {
		return 0, false
	}
	return c, true
}

func addInt64(a, b int64) (int64, bool) {
	c := a + b
	if (b > 0 && c < a) || (b < 0 && c > a) {
		return 0, false
	}
	return c, true
}

// Package fixedpoint 提供7位小数定点算术。
// 所有金额与阵营点均以 int64 表示，单位为 1e-7（即 1枚 = 10000000）。
// 中间乘积可能超出 int64 范围，因此乘除运算通过 big.Int 计算后再检查落回 int64。
package fixedpoint

import (
	"math"
	"math/big"

	"github.com/kalepail/blendizzard/internal/errors"
)

// Scalar7 定点小数基数（7位小数）
const Scalar7 int64 = 10000000

var scalarBig = big.NewInt(Scalar7)

// CheckedAdd 带溢出检查的加法
func CheckedAdd(a, b int64) (int64, error) {
	if b > 0 && a > math.MaxInt64-b {
		return 0, errors.Newf(errors.ErrOverflow, "加法溢出: %d + %d", a, b)
	}
	if b < 0 && a < math.MinInt64-b {
		return 0, errors.Newf(errors.ErrOverflow, "加法溢出: %d + %d", a, b)
	}
	return a + b, nil
}

// CheckedSub 带溢出检查的减法
func CheckedSub(a, b int64) (int64, error) {
	if b < 0 && a > math.MaxInt64+b {
		return 0, errors.Newf(errors.ErrOverflow, "减法溢出: %d - %d", a, b)
	}
	if b > 0 && a < math.MinInt64+b {
		return 0, errors.Newf(errors.ErrOverflow, "减法溢出: %d - %d", a, b)
	}
	return a - b, nil
}

// MulFloor 定点乘法：floor(a * b / Scalar7)
func MulFloor(a, b int64) (int64, error) {
	result := new(big.Int).Mul(big.NewInt(a), big.NewInt(b))
	result.Div(result, scalarBig)

	if !result.IsInt64() {
		return 0, errors.Newf(errors.ErrOverflow, "定点乘法溢出: %d * %d", a, b)
	}
	return result.Int64(), nil
}

// DivFloor 定点除法：floor(a * Scalar7 / b)
func DivFloor(a, b int64) (int64, error) {
	if b == 0 {
		return 0, errors.New(errors.ErrDivisionByZero)
	}

	result := new(big.Int).Mul(big.NewInt(a), scalarBig)
	result.Div(result, big.NewInt(b))

	if !result.IsInt64() {
		return 0, errors.Newf(errors.ErrOverflow, "定点除法溢出: %d / %d", a, b)
	}
	return result.Int64(), nil
}

// RatioFloor 比例分配：floor(amount * numerator / denominator)
// 不做定点缩放，用于奖池按占比分配。
func RatioFloor(amount, numerator, denominator int64) (int64, error) {
	if denominator == 0 {
		return 0, errors.New(errors.ErrDivisionByZero)
	}

	result := new(big.Int).Mul(big.NewInt(amount), big.NewInt(numerator))
	result.Div(result, big.NewInt(denominator))

	if !result.IsInt64() {
		return 0, errors.Newf(errors.ErrOverflow, "比例分配溢出: %d * %d / %d", amount, numerator, denominator)
	}
	return result.Int64(), nil
}

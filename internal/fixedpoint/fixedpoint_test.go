package fixedpoint

import (
	"math"
	"testing"

	"github.com/kalepail/blendizzard/internal/errors"
	"github.com/stretchr/testify/assert"
)

func TestCheckedAdd(t *testing.T) {
	// 正常加法
	result, err := CheckedAdd(100, 200)
	assert.NoError(t, err)
	assert.Equal(t, int64(300), result)

	// 负数加法
	result, err = CheckedAdd(-100, 50)
	assert.NoError(t, err)
	assert.Equal(t, int64(-50), result)

	// 正向溢出
	_, err = CheckedAdd(math.MaxInt64, 1)
	assert.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrOverflow))

	// 负向溢出
	_, err = CheckedAdd(math.MinInt64, -1)
	assert.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrOverflow))

	// 边界：刚好不溢出
	result, err = CheckedAdd(math.MaxInt64-1, 1)
	assert.NoError(t, err)
	assert.Equal(t, int64(math.MaxInt64), result)
}

func TestCheckedSub(t *testing.T) {
	result, err := CheckedSub(300, 200)
	assert.NoError(t, err)
	assert.Equal(t, int64(100), result)

	// 负向溢出
	_, err = CheckedSub(math.MinInt64, 1)
	assert.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrOverflow))

	// 正向溢出
	_, err = CheckedSub(math.MaxInt64, -1)
	assert.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrOverflow))
}

func TestMulFloor(t *testing.T) {
	// 1.5 * 2.0 = 3.0
	result, err := MulFloor(15000000, 20000000)
	assert.NoError(t, err)
	assert.Equal(t, int64(30000000), result)

	// 向下取整：0.0000001 * 0.5 = 0.00000005 -> 0
	result, err = MulFloor(1, 5000000)
	assert.NoError(t, err)
	assert.Equal(t, int64(0), result)

	// 大数中间乘积超出int64但结果在范围内
	big := int64(2000000000000000000) // 2e18
	result, err = MulFloor(big, Scalar7)
	assert.NoError(t, err)
	assert.Equal(t, big, result)

	// 结果溢出
	_, err = MulFloor(math.MaxInt64, 2*Scalar7)
	assert.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrOverflow))
}

func TestDivFloor(t *testing.T) {
	// 3.0 / 2.0 = 1.5
	result, err := DivFloor(30000000, 20000000)
	assert.NoError(t, err)
	assert.Equal(t, int64(15000000), result)

	// 向下取整：1 / 3 = 0.3333333
	result, err = DivFloor(10000000, 30000000)
	assert.NoError(t, err)
	assert.Equal(t, int64(3333333), result)

	// 除零
	_, err = DivFloor(10000000, 0)
	assert.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrDivisionByZero))
}

func TestRewardShareLockStep(t *testing.T) {
	// 奖池1000枚、阵营总战绩500枚、用户贡献250枚 -> 恰好领取500枚
	pool := int64(1000) * Scalar7
	standing := int64(500) * Scalar7
	contribution := int64(250) * Scalar7

	share, err := DivFloor(pool, standing)
	assert.NoError(t, err)

	reward, err := MulFloor(contribution, share)
	assert.NoError(t, err)
	assert.Equal(t, int64(500)*Scalar7, reward)
}

func TestRewardShareNeverOverDistributes(t *testing.T) {
	// 两次取整都向下，所有领取之和不应超过奖池
	pool := int64(1000000001) // 非整除奖池
	standing := int64(3) * Scalar7

	share, err := DivFloor(pool, standing)
	assert.NoError(t, err)

	var total int64
	for i := 0; i < 3; i++ {
		reward, err := MulFloor(Scalar7, share)
		assert.NoError(t, err)
		total += reward
	}
	assert.LessOrEqual(t, total, pool)
}

func TestRatioFloor(t *testing.T) {
	result, err := RatioFloor(1000, 50, 100)
	assert.NoError(t, err)
	assert.Equal(t, int64(500), result)

	// 向下取整
	result, err = RatioFloor(10, 1, 3)
	assert.NoError(t, err)
	assert.Equal(t, int64(3), result)

	_, err = RatioFloor(10, 1, 0)
	assert.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrDivisionByZero))
}

package utils

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/suite"
)

// PasswordTestSuite 密码工具测试套件
type PasswordTestSuite struct {
	suite.Suite
}

// 测试密码哈希
func (suite *PasswordTestSuite) TestHashPassword() {
	password := "MySecurePassword123!"

	hash, err := HashPassword(password)
	suite.NoError(err)
	suite.NotEmpty(hash)
	suite.NotEqual(password, hash)

	// 哈希应该是argon2id格式
	suite.True(strings.HasPrefix(hash, "$argon2id$"))
	suite.Contains(hash, "v=")
	suite.Contains(hash, "m=")
	suite.Contains(hash, "t=")
	suite.Contains(hash, "p=")
}

// 测试相同密码生成不同哈希
func (suite *PasswordTestSuite) TestHashPasswordUniqueness() {
	password := "SamePassword123"

	hash1, err1 := HashPassword(password)
	hash2, err2 := HashPassword(password)

	suite.NoError(err1)
	suite.NoError(err2)
	suite.NotEqual(hash1, hash2) // salt不同
}

// 测试密码验证
func (suite *PasswordTestSuite) TestVerifyPassword() {
	password := "CorrectPassword456"
	hash, _ := HashPassword(password)

	valid, err := VerifyPassword(password, hash)
	suite.NoError(err)
	suite.True(valid)

	invalid, err := VerifyPassword("WrongPassword", hash)
	suite.NoError(err)
	suite.False(invalid)

	// 大小写敏感
	invalidCase, err := VerifyPassword("correctpassword456", hash)
	suite.NoError(err)
	suite.False(invalidCase)
}

// 测试使用自定义配置哈希密码
func (suite *PasswordTestSuite) TestHashPasswordWithConfig() {
	password := "CustomConfigPassword"

	config := &PasswordConfig{
		Time:    2,
		Memory:  32 * 1024,
		Threads: 2,
		KeyLen:  16,
	}

	hash, err := HashPasswordWithConfig(password, config)
	suite.NoError(err)
	suite.NotEmpty(hash)

	valid, err := VerifyPassword(password, hash)
	suite.NoError(err)
	suite.True(valid)
}

// 测试无效哈希验证
func (suite *PasswordTestSuite) TestVerifyPasswordWithInvalidHash() {
	valid, err := VerifyPassword("password", "invalid-hash")
	suite.Error(err)
	suite.False(valid)

	valid, err = VerifyPassword("password", "")
	suite.Error(err)
	suite.False(valid)

	valid, err = VerifyPassword("password", "$argon2$invalid$format")
	suite.Error(err)
	suite.False(valid)
}

// 测试生成随机字符串
func (suite *PasswordTestSuite) TestGenerateRandomString() {
	lengths := []int{8, 16, 24, 32, 64}

	for _, length := range lengths {
		str, err := GenerateRandomString(length)
		suite.NoError(err)
		suite.Equal(length, len(str))

		// 只包含base64 URL安全字符
		for _, char := range str {
			isValid := (char >= 'A' && char <= 'Z') ||
				(char >= 'a' && char <= 'z') ||
				(char >= '0' && char <= '9') ||
				char == '-' || char == '_'
			suite.True(isValid, "字符 %c 不是有效的base64 URL字符", char)
		}
	}
}

// 测试生成随机字符串的唯一性
func (suite *PasswordTestSuite) TestGenerateRandomStringUniqueness() {
	generated := make(map[string]bool)

	for i := 0; i < 100; i++ {
		str, err := GenerateRandomString(16)
		suite.NoError(err)
		suite.False(generated[str], "不应该生成重复的字符串")
		generated[str] = true
	}
}

// 测试生成意图密钥
func (suite *PasswordTestSuite) TestGenerateIntentKey() {
	key, err := GenerateIntentKey()
	suite.NoError(err)
	suite.Equal(64, len(key))

	key2, err := GenerateIntentKey()
	suite.NoError(err)
	suite.NotEqual(key, key2)
}

// 测试生成订单号
func (suite *PasswordTestSuite) TestGenerateOrderNo() {
	orderNo := GenerateOrderNo("RW")
	suite.True(strings.HasPrefix(orderNo, "RW"))
	// 前缀 + 14位时间戳 + 8位随机
	suite.Equal(2+14+8, len(orderNo))

	orderNo2 := GenerateOrderNo("RW")
	suite.NotEqual(orderNo, orderNo2)
}

func TestPasswordSuite(t *testing.T) {
	suite.Run(t, new(PasswordTestSuite))
}

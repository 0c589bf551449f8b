package game

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	apperrors "github.com/kalepail/blendizzard/internal/errors"
)

// IntentClaims 玩家下注意图Claims
// 玩家用自己的意图密钥对 (game_id, session_id, wager) 三元组签名，
// 授权指定游戏以指定注金为其开局。
type IntentClaims struct {
	Address   string `json:"address"`
	GameID    string `json:"game_id"`
	SessionID string `json:"session_id"`
	Wager     int64  `json:"wager"`
	jwt.RegisteredClaims
}

// SignIntent 生成意图签名（客户端/测试用）
func SignIntent(key, address, gameID, sessionID string, wager int64, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := &IntentClaims{
		Address:   address,
		GameID:    gameID,
		SessionID: sessionID,
		Wager:     wager,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    "blendizzard",
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(key))
}

// VerifyIntent 验证意图签名与开局参数逐项一致
func VerifyIntent(key, token, address, gameID, sessionID string, wager int64) error {
	if key == "" {
		return apperrors.New(apperrors.ErrUnauthorized, "玩家未登记意图密钥")
	}

	parsed, err := jwt.ParseWithClaims(token, &IntentClaims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return []byte(key), nil
	})
	if err != nil {
		return apperrors.Wrap(err, apperrors.ErrInvalidIntent)
	}

	claims, ok := parsed.Claims.(*IntentClaims)
	if !ok || !parsed.Valid {
		return apperrors.New(apperrors.ErrInvalidIntent)
	}

	// 签名内容必须与开局参数完全一致
	if claims.Address != address ||
		claims.GameID != gameID ||
		claims.SessionID != sessionID ||
		claims.Wager != wager {
		return apperrors.New(apperrors.ErrInvalidIntent, "意图内容与开局参数不一致")
	}

	return nil
}

package event

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/kalepail/blendizzard/internal/logger"
	"go.uber.org/zap"
)

// Emitter 经济事件发射器
// 业务模块通过它对外发布开局、结算、领奖与周期事件。
type Emitter interface {
	GameStarted(sessionID string, epochID uint32, player1, player2 string, faction1, faction2 int, wager1, wager2, availableFP1, availableFP2 int64)
	GameEnded(sessionID string, epochID uint32, winner, loser string, winnerContribution int64)
	RewardsClaimed(address string, epochID uint32, faction int, amount int64)
	TimeMultiplierReset(address string, oldBalance, newBalance int64)
	EpochAdvanced(epochID uint32)
	EpochFinalized(epochID uint32, winningFaction int, rewardPool int64)
}

// HubEmitter 基于WebSocket Hub的事件发射器
// 事件同时写入结构化日志，日志是事件的持久审计轨迹。
type HubEmitter struct {
	hub *Hub
	log *zap.Logger
}

// NewHubEmitter 创建事件发射器
func NewHubEmitter(hub *Hub) *HubEmitter {
	return &HubEmitter{
		hub: hub,
		log: logger.GetModuleLogger("event"),
	}
}

// emit 广播一条事件
func (e *HubEmitter) emit(msgType string, address, sessionID string, epochID uint32, payload map[string]interface{}) {
	data, err := json.Marshal(payload)
	if err != nil {
		e.log.Error("序列化事件失败", zap.String("type", msgType), zap.Error(err))
		return
	}

	msg := &Message{
		Type:      msgType,
		EventID:   uuid.New().String(),
		Address:   address,
		SessionID: sessionID,
		EpochID:   epochID,
		Data:      data,
		Timestamp: time.Now().Unix(),
	}

	e.log.Info("event",
		zap.String("type", msgType),
		zap.String("event_id", msg.EventID),
		zap.Any("payload", payload),
	)

	if e.hub != nil {
		e.hub.Broadcast(msg)
	}
}

// GameStarted 开局事件（携带双方锁定的周期阵营与锁定后的剩余可用阵营点）
func (e *HubEmitter) GameStarted(sessionID string, epochID uint32, player1, player2 string, faction1, faction2 int, wager1, wager2, availableFP1, availableFP2 int64) {
	e.emit(MessageTypeGameStarted, "", sessionID, epochID, map[string]interface{}{
		"player1":         player1,
		"player2":         player2,
		"player1_faction": faction1,
		"player2_faction": faction2,
		"player1_wager":   wager1,
		"player2_wager":   wager2,
		"player1_available_fp": availableFP1,
		"player2_available_fp": availableFP2,
	})
}

// GameEnded 结算事件
func (e *HubEmitter) GameEnded(sessionID string, epochID uint32, winner, loser string, winnerContribution int64) {
	e.emit(MessageTypeGameEnded, "", sessionID, epochID, map[string]interface{}{
		"winner":              winner,
		"loser":               loser,
		"winner_contribution": winnerContribution,
	})
}

// RewardsClaimed 领奖事件
func (e *HubEmitter) RewardsClaimed(address string, epochID uint32, faction int, amount int64) {
	e.emit(MessageTypeRewardsClaimed, address, "", epochID, map[string]interface{}{
		"faction": faction,
		"amount":  amount,
	})
}

// TimeMultiplierReset 时间乘数重置事件
func (e *HubEmitter) TimeMultiplierReset(address string, oldBalance, newBalance int64) {
	e.emit(MessageTypeTimeMultReset, address, "", 0, map[string]interface{}{
		"old_balance": oldBalance,
		"new_balance": newBalance,
	})
}

// EpochAdvanced 周期推进事件
func (e *HubEmitter) EpochAdvanced(epochID uint32) {
	e.emit(MessageTypeEpochAdvanced, "", "", epochID, map[string]interface{}{})
}

// EpochFinalized 周期结算事件
func (e *HubEmitter) EpochFinalized(epochID uint32, winningFaction int, rewardPool int64) {
	e.emit(MessageTypeEpochFinalized, "", "", epochID, map[string]interface{}{
		"winning_faction": winningFaction,
		"reward_pool":     rewardPool,
	})
}

// NoopEmitter 空事件发射器（测试用）
type NoopEmitter struct{}

func (NoopEmitter) GameStarted(string, uint32, string, string, int, int, int64, int64, int64, int64) {}
func (NoopEmitter) GameEnded(string, uint32, string, string, int64)                        {}
func (NoopEmitter) RewardsClaimed(string, uint32, int, int64)                              {}
func (NoopEmitter) TimeMultiplierReset(string, int64, int64)                               {}
func (NoopEmitter) EpochAdvanced(uint32)                                                   {}
func (NoopEmitter) EpochFinalized(uint32, int, int64)                                      {}

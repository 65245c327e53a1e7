package server

import "encoding/json"

// 出站事件类型
const (
	EvtWaiting                = "waiting"
	EvtMatchFound             = "matchFound"
	EvtCountdown              = "countdown"
	EvtStartGame              = "startGame"
	EvtState                  = "state"
	EvtStateDelta             = "stateDelta"
	EvtGameOver               = "gameOver"
	EvtOpponentLeft           = "opponentLeft"
	EvtRematchStart           = "rematchStart"
	EvtOpponentRematchRequest = "opponentRematchRequest"
)

// gameOver 原因码
const (
	ReasonRoundFinished        = "round finished"
	ReasonOpponentDisconnected = "opponent disconnected"
)

// 广播模式
const (
	BroadcastFull  = "full"
	BroadcastDelta = "delta"
)

// Envelope 出站消息外层结构
type Envelope struct {
	Type string `json:"type"`
	Data any    `json:"data,omitempty"`
}

// StatePayload 完整快照：每个玩家的全部轨迹 + 全部已占用格子
type StatePayload struct {
	Tick    int64         `json:"tick"`
	Players []PlayerState `json:"players"`
	Grid    []Cell        `json:"grid"`
}

// DeltaPayload 增量快照：只含上次广播之后新占用的格子
type DeltaPayload struct {
	Tick    int64         `json:"tick"`
	Players []PlayerDelta `json:"players"`
	Cells   []Cell        `json:"cells"`
}

// GameOverPayload 对局结束
type GameOverPayload struct {
	Reason string `json:"reason"`
}

// Encode 编码出站消息；data 为 nil 时省略
func Encode(t string, data any) []byte {
	b, err := json.Marshal(Envelope{Type: t, Data: data})
	if err != nil {
		Log.Errorf("encode %s: %v", t, err)
		return nil
	}
	return b
}

// Sender 按连接 ID 投递消息（由 Hub 实现，测试中可替换）
type Sender interface {
	Send(conn ConnID, msg []byte)
}

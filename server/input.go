package server

import (
	"encoding/json"
	"errors"
	"strings"
)

// Input 客户端方向输入（意图），由房间在下一次 Tick 解释
type Input struct {
	Seat    int
	Command Direction
}

// 入站事件类型（比较时统一小写）
const (
	InReady            = "ready"
	InInput            = "input"
	InRematchRequest   = "rematchrequest"
	InPlayerLeftToMenu = "playerlefttomenu"
	InPlayerLeftLegacy = "playerlefttothemenu"
	InPlayAgain        = "playagain"
	InResync           = "resync"
)

var (
	ErrEmptyMessage = errors.New("empty message")
	ErrMissingType  = errors.New("message without type")
	ErrBadKey       = errors.New("input without a known direction key")
)

// InputMessage 入站消息（WebSocket 文本帧）
// 示例：{"type":"input","data":"ArrowUp"}；兼容 {"type":"input","command":"up"}
type InputMessage struct {
	Type    string          `json:"type"`
	Data    json.RawMessage `json:"data,omitempty"`
	Command string          `json:"command,omitempty"`
}

// DecodeInputMessage 解析入站帧，类型名转为小写
func DecodeInputMessage(b []byte) (InputMessage, error) {
	if len(b) == 0 {
		return InputMessage{}, ErrEmptyMessage
	}
	var im InputMessage
	if err := json.Unmarshal(b, &im); err != nil {
		return InputMessage{}, err
	}
	im.Type = strings.ToLower(strings.TrimSpace(im.Type))
	if im.Type == "" {
		return InputMessage{}, ErrMissingType
	}
	return im, nil
}

// Direction 从 data（字符串）或 command 字段取出方向
func (im InputMessage) Direction() (Direction, error) {
	key := im.Command
	if len(im.Data) > 0 {
		var s string
		if err := json.Unmarshal(im.Data, &s); err != nil {
			return DirNone, ErrBadKey
		}
		key = s
	}
	dir, ok := ParseKey(key)
	if !ok {
		return DirNone, ErrBadKey
	}
	return dir, nil
}

package server

import (
	"encoding/json"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

const (
	timeout = time.Second
	poll    = 2 * time.Millisecond
)

// sentMsg 解码后的出站消息
type sentMsg struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

// fakeSender 捕获每个连接收到的消息
type fakeSender struct {
	mu   sync.Mutex
	msgs map[ConnID][]sentMsg
}

func newFakeSender() *fakeSender {
	return &fakeSender{msgs: make(map[ConnID][]sentMsg)}
}

func (f *fakeSender) Send(conn ConnID, msg []byte) {
	var m sentMsg
	if err := json.Unmarshal(msg, &m); err != nil {
		panic(err)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.msgs[conn] = append(f.msgs[conn], m)
}

func (f *fakeSender) all(conn ConnID) []sentMsg {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]sentMsg, len(f.msgs[conn]))
	copy(out, f.msgs[conn])
	return out
}

func (f *fakeSender) types(conn ConnID) []string {
	var out []string
	for _, m := range f.all(conn) {
		out = append(out, m.Type)
	}
	return out
}

func (f *fakeSender) count(conn ConnID, t string) int {
	n := 0
	for _, m := range f.all(conn) {
		if m.Type == t {
			n++
		}
	}
	return n
}

func (f *fakeSender) has(conn ConnID, t string) bool {
	return f.count(conn, t) > 0
}

// last 最近一条指定类型的消息
func (f *fakeSender) last(conn ConnID, t string) (sentMsg, bool) {
	msgs := f.all(conn)
	for i := len(msgs) - 1; i >= 0; i-- {
		if msgs[i].Type == t {
			return msgs[i], true
		}
	}
	return sentMsg{}, false
}

func (f *fakeSender) reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.msgs = make(map[ConnID][]sentMsg)
}

// fastConfig 完整尺寸网格，毫秒级倒计时与 Tick
func fastConfig() GameConfig {
	cfg := DefaultGameConfig()
	cfg.CountdownInterval = time.Millisecond
	cfg.TickInterval = 2 * time.Millisecond
	return cfg
}

// slowTickConfig 倒计时很快，但一局持续足够久，便于在 Running 状态下操作
func slowTickConfig() GameConfig {
	cfg := DefaultGameConfig()
	cfg.CountdownInterval = time.Millisecond
	cfg.TickInterval = time.Hour
	return cfg
}

// idleConfig 房间停留在倒计时，不产生后台消息
func idleConfig() GameConfig {
	cfg := DefaultGameConfig()
	cfg.CountdownInterval = time.Hour
	cfg.TickInterval = time.Hour
	return cfg
}

// seqIDs 可预测的房间 ID
func seqIDs() func() (string, error) {
	var mu sync.Mutex
	n := 0
	return func() (string, error) {
		mu.Lock()
		defer mu.Unlock()
		n++
		return fmt.Sprintf("room-%d", n), nil
	}
}

func newTestManager(t *testing.T, cfg GameConfig) (*Manager, *fakeSender) {
	t.Helper()
	fs := newFakeSender()
	m, err := NewManager(ManagerConfig{Game: cfg, Sender: fs, NewID: seqIDs()})
	require.NoError(t, err)
	t.Cleanup(m.StopAll)
	return m, fs
}

func decodeData[T any](t *testing.T, m sentMsg) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(m.Data, &out))
	return out
}

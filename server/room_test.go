package server

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGameConfigValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*GameConfig)
		err    error
	}{
		{"defaults", func(*GameConfig) {}, nil},
		{"zero tick", func(c *GameConfig) { c.TickInterval = 0 }, ErrInvalidInterval},
		{"negative countdown interval", func(c *GameConfig) { c.CountdownInterval = -time.Second }, ErrInvalidInterval},
		{"grid too narrow", func(c *GameConfig) { c.Cols = 20 }, ErrInvalidGrid},
		{"no rows", func(c *GameConfig) { c.Rows = 0 }, ErrInvalidGrid},
		{"negative countdown", func(c *GameConfig) { c.CountdownFrom = -1 }, ErrInvalidCount},
		{"unknown mode", func(c *GameConfig) { c.BroadcastMode = "binary" }, ErrInvalidMode},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultGameConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.err == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.err)
		})
	}
}

func TestNewRoomStartPositions(t *testing.T) {
	r, err := NewRoom("r1", [2]ConnID{"a", "b"}, DefaultGameConfig(), newFakeSender(), nil)
	require.NoError(t, err)

	assert.Equal(t, Cell{70, 30}, r.players[0].Pos)
	assert.Equal(t, DirLeft, r.players[0].Facing)
	assert.Equal(t, Cell{10, 30}, r.players[1].Pos)
	assert.Equal(t, DirRight, r.players[1].Facing)
	assert.True(t, r.grid.Occupied(Cell{70, 30}))
	assert.True(t, r.grid.Occupied(Cell{10, 30}))
	assert.Equal(t, StatePairing, r.State())

	assert.Equal(t, 0, r.Seat("a"))
	assert.Equal(t, 1, r.Seat("b"))
	assert.Equal(t, -1, r.Seat("c"))
	assert.Equal(t, ConnID("b"), r.Opponent("a"))
	assert.Equal(t, ConnID("a"), r.Opponent("b"))
}

func TestNewRoomRejectsInvalidConfig(t *testing.T) {
	cfg := DefaultGameConfig()
	cfg.TickInterval = 0
	_, err := NewRoom("r1", [2]ConnID{"a", "b"}, cfg, newFakeSender(), nil)
	assert.ErrorIs(t, err, ErrInvalidInterval)
}

func TestRoomLifecycle(t *testing.T) {
	fs := newFakeSender()
	var ended atomic.Int32
	r, err := NewRoom("r1", [2]ConnID{"a", "b"}, fastConfig(), fs, func(id, reason string) {
		assert.Equal(t, "r1", id)
		assert.Equal(t, ReasonRoundFinished, reason)
		ended.Add(1)
	})
	require.NoError(t, err)

	r.Start()
	assert.Equal(t, EvtMatchFound, fs.types("a")[0], "matchFound is sent before Start returns")

	assert.Eventually(t, func() bool { return r.State() == StateEnded }, 2*time.Second, 5*time.Millisecond)
	assert.Equal(t, int32(1), ended.Load())

	types := fs.types("a")
	require.GreaterOrEqual(t, len(types), 6)
	assert.Equal(t, []string{EvtMatchFound, EvtCountdown, EvtCountdown, EvtCountdown, EvtCountdown, EvtStartGame}, types[:6])

	var counts []int
	for _, m := range fs.all("a") {
		if m.Type == EvtCountdown {
			counts = append(counts, decodeData[int](t, m))
		}
	}
	assert.Equal(t, []int{3, 2, 1, 0}, counts)

	// 对称起点、无输入：第 30 步在 x=40 相撞，平局
	assert.Equal(t, 30, fs.count("a", EvtState))
	last, ok := fs.last("a", EvtState)
	require.True(t, ok)
	st := decodeData[StatePayload](t, last)
	assert.Equal(t, int64(30), st.Tick)
	assert.False(t, st.Players[0].Alive)
	assert.False(t, st.Players[1].Alive)
	assert.Equal(t, 41, st.Players[0].X)
	assert.Equal(t, 39, st.Players[1].X)
	assert.Equal(t, fs.types("a"), fs.types("b"))
}

func TestRoomInputBeforeStartIsIgnored(t *testing.T) {
	cfg := DefaultGameConfig()
	cfg.CountdownInterval = time.Hour
	r, err := NewRoom("r1", [2]ConnID{"a", "b"}, cfg, newFakeSender(), nil)
	require.NoError(t, err)
	r.Start()
	t.Cleanup(func() { r.Stop() })

	r.OnInput(Input{Seat: 0, Command: DirUp})

	assert.Eventually(t, func() bool {
		return atomic.LoadInt64(&r.Metrics().InputsIgnored) == 1
	}, time.Second, 2*time.Millisecond)
	r.mu.Lock()
	assert.Equal(t, DirNone, r.players[0].Pending)
	r.mu.Unlock()
}

func TestRoomInputWhileRunning(t *testing.T) {
	r, err := NewRoom("r1", [2]ConnID{"a", "b"}, slowTickConfig(), newFakeSender(), nil)
	require.NoError(t, err)
	r.Start()
	t.Cleanup(func() { r.Stop() })
	require.Eventually(t, func() bool { return r.State() == StateRunning }, time.Second, 2*time.Millisecond)

	r.OnInput(Input{Seat: 0, Command: DirUp})
	r.OnInput(Input{Seat: 5, Command: DirUp})

	assert.Eventually(t, func() bool {
		return atomic.LoadInt64(&r.Metrics().InputsAccepted) == 1 &&
			atomic.LoadInt64(&r.Metrics().InputsIgnored) == 1
	}, time.Second, 2*time.Millisecond)

	r.mu.Lock()
	assert.Equal(t, DirUp, r.players[0].Pending)
	assert.Equal(t, DirLeft, r.players[0].Facing, "facing changes only on the next tick")
	r.mu.Unlock()
}

func TestRoomInputQueueFull(t *testing.T) {
	cfg := DefaultGameConfig()
	cfg.InputBuffer = 1
	r, err := NewRoom("r1", [2]ConnID{"a", "b"}, cfg, newFakeSender(), nil)
	require.NoError(t, err)

	r.OnInput(Input{Seat: 0, Command: DirUp})
	r.OnInput(Input{Seat: 0, Command: DirDown})

	assert.Equal(t, int64(1), atomic.LoadInt64(&r.Metrics().ChanFullDiscarded))
}

func TestRoomStopDuringCountdown(t *testing.T) {
	fs := newFakeSender()
	cfg := DefaultGameConfig()
	cfg.CountdownInterval = 5 * time.Millisecond
	cfg.CountdownFrom = 1000
	r, err := NewRoom("r1", [2]ConnID{"a", "b"}, cfg, fs, func(string, string) {
		t.Error("onEnd must not be called when the room is stopped externally")
	})
	require.NoError(t, err)

	r.Start()
	require.Eventually(t, func() bool { return fs.has("a", EvtCountdown) }, time.Second, 2*time.Millisecond)
	assert.True(t, r.Stop())
	n := len(fs.all("a"))

	time.Sleep(30 * time.Millisecond)
	assert.Len(t, fs.all("a"), n, "no broadcast after stop")
	assert.Equal(t, StateEnded, r.State())
}

func TestRoomResyncOnlyWhileRunning(t *testing.T) {
	fs := newFakeSender()
	r, err := NewRoom("r1", [2]ConnID{"a", "b"}, DefaultGameConfig(), fs, nil)
	require.NoError(t, err)

	r.Resync("a")
	assert.Empty(t, fs.all("a"))

	r.state = StateRunning
	r.Resync("a")
	assert.Equal(t, []string{EvtState}, fs.types("a"))
	assert.Empty(t, fs.all("b"))
}

func TestRoomInfo(t *testing.T) {
	r, _ := newSteppingRoom(t, DefaultGameConfig())
	_, ok := r.tick()
	require.True(t, ok)

	info := r.Info()
	assert.Equal(t, "r1", info.ID)
	assert.Equal(t, "running", info.State)
	assert.Equal(t, int64(1), info.Tick)
	assert.Equal(t, [2]bool{true, true}, info.Alive)
	assert.Equal(t, 4, info.Cells)
	assert.Equal(t, [2]ConnID{"a", "b"}, info.Conns)
}

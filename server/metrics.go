package server

import (
	"sync/atomic"
)

// RoomMetrics 记录房间运行期的关键指标（用于监控与调试）
type RoomMetrics struct {
	TickCount         int64 // 统计的 Tick 次数
	InputsAccepted    int64 // 被接受（写入 Pending）的输入数
	InputsIgnored     int64 // 因未开局/玩家已死亡被忽略的输入数
	ChanFullDiscarded int64 // 因通道满被丢弃的输入数
	TotalTickNs       int64 // Tick 累计耗时（纳秒）
}

func (m *RoomMetrics) IncAccepted()          { atomic.AddInt64(&m.InputsAccepted, 1) }
func (m *RoomMetrics) IncIgnored()           { atomic.AddInt64(&m.InputsIgnored, 1) }
func (m *RoomMetrics) IncChanFullDiscarded() { atomic.AddInt64(&m.ChanFullDiscarded, 1) }
func (m *RoomMetrics) AddTick(ns int64) {
	atomic.AddInt64(&m.TickCount, 1)
	atomic.AddInt64(&m.TotalTickNs, ns)
}

// Snapshot 返回只读副本，便于 HTTP 输出
func (m *RoomMetrics) Snapshot() map[string]any {
	tick := atomic.LoadInt64(&m.TickCount)
	total := atomic.LoadInt64(&m.TotalTickNs)
	var avgMs float64
	if tick > 0 {
		avgMs = float64(total) / float64(tick) / 1e6
	}
	return map[string]any{
		"tick_count":          tick,
		"inputs_accepted":     atomic.LoadInt64(&m.InputsAccepted),
		"inputs_ignored":      atomic.LoadInt64(&m.InputsIgnored),
		"chan_full_discarded": atomic.LoadInt64(&m.ChanFullDiscarded),
		"avg_tick_ms":         avgMs,
	}
}

// ServerMetrics 会话管理器级别的计数
type ServerMetrics struct {
	RoomsCreated   int64
	RoomsEnded     int64
	RoundsFinished int64
	Disconnects    int64
	Rematches      int64
	PairingFaults  int64
}

func (m *ServerMetrics) IncRoomsCreated()   { atomic.AddInt64(&m.RoomsCreated, 1) }
func (m *ServerMetrics) IncRoomsEnded()     { atomic.AddInt64(&m.RoomsEnded, 1) }
func (m *ServerMetrics) IncRoundsFinished() { atomic.AddInt64(&m.RoundsFinished, 1) }
func (m *ServerMetrics) IncDisconnects()    { atomic.AddInt64(&m.Disconnects, 1) }
func (m *ServerMetrics) IncRematches()      { atomic.AddInt64(&m.Rematches, 1) }
func (m *ServerMetrics) IncPairingFaults()  { atomic.AddInt64(&m.PairingFaults, 1) }

func (m *ServerMetrics) Snapshot() map[string]any {
	return map[string]any{
		"rooms_created":   atomic.LoadInt64(&m.RoomsCreated),
		"rooms_ended":     atomic.LoadInt64(&m.RoomsEnded),
		"rounds_finished": atomic.LoadInt64(&m.RoundsFinished),
		"disconnects":     atomic.LoadInt64(&m.Disconnects),
		"rematches":       atomic.LoadInt64(&m.Rematches),
		"pairing_faults":  atomic.LoadInt64(&m.PairingFaults),
	}
}

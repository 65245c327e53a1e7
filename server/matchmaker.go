package server

import "sync"

// ReadyResult ready 请求的结果
type ReadyResult int

const (
	ReadyNoop    ReadyResult = iota // 已在队列中，幂等
	ReadyWaiting                    // 入队等待对手
	ReadyPaired                     // 与队列中的连接配对
)

// Matchmaker 单槽等待队列：任何时刻至多一个等待连接
type Matchmaker struct {
	mu      sync.Mutex
	waiting ConnID
	queued  bool
}

// NewMatchmaker 创建空队列
func NewMatchmaker() *Matchmaker {
	return &Matchmaker{}
}

// RequestReady 入队或配对；配对时返回被出队的对手，队列随之清空
func (mm *Matchmaker) RequestReady(conn ConnID) (ReadyResult, ConnID) {
	mm.mu.Lock()
	defer mm.mu.Unlock()

	if mm.queued && mm.waiting == conn {
		return ReadyNoop, ""
	}
	if !mm.queued {
		mm.waiting, mm.queued = conn, true
		return ReadyWaiting, ""
	}
	opponent := mm.waiting
	mm.waiting, mm.queued = "", false
	return ReadyPaired, opponent
}

// Cancel 若 conn 正在等待则移出队列
func (mm *Matchmaker) Cancel(conn ConnID) bool {
	mm.mu.Lock()
	defer mm.mu.Unlock()
	if mm.queued && mm.waiting == conn {
		mm.waiting, mm.queued = "", false
		return true
	}
	return false
}

// Waiting 当前等待中的连接
func (mm *Matchmaker) Waiting() (ConnID, bool) {
	mm.mu.Lock()
	defer mm.mu.Unlock()
	return mm.waiting, mm.queued
}

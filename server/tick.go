package server

import "time"

// run 房间协程：先倒计时，再按固定周期推进世界；quit 关闭即退出（计时器随之停止）
func (r *Room) run() {
	if !r.countdown() {
		return
	}

	ticker := time.NewTicker(r.cfg.TickInterval)
	defer ticker.Stop()
	for {
		select {
		case <-r.quit:
			return
		case in := <-r.inputChan:
			r.stageInput(in)
		case <-ticker.C:
			// 核心循环：采用意图 → 移动/碰撞 → 广播结果
			start := time.Now()
			alive, ok := r.tick()
			if !ok {
				return
			}
			r.metrics.AddTick(time.Since(start).Nanoseconds())
			if alive <= 1 {
				r.finish()
				return
			}
		}
	}
}

// countdown 每个间隔广播一次 n = CountdownFrom..0；被停止时返回 false
func (r *Room) countdown() bool {
	ticker := time.NewTicker(r.cfg.CountdownInterval)
	defer ticker.Stop()
	for n := r.cfg.CountdownFrom; n >= 0; {
		select {
		case <-r.quit:
			return false
		case in := <-r.inputChan:
			// 未开局的输入直接计为忽略
			r.stageInput(in)
		case <-ticker.C:
			if !r.countdownStep(n) {
				return false
			}
			n--
		}
	}
	return true
}

// finish 本局结束：交给 Manager 拆除房间；未挂接 Manager 时自行停止
func (r *Room) finish() {
	if r.onEnd != nil {
		r.onEnd(r.ID, ReasonRoundFinished)
	}
	r.Stop()
}

// tick 执行一步模拟并广播；房间已停止时返回 ok=false
func (r *Room) tick() (alive int, ok bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.stopped || r.state != StateRunning {
		return 0, false
	}
	r.tickSeq++
	alive = Step(r.players[:], r.grid)
	r.broadcastStateLocked()
	return alive, true
}

// Step 推进所有存活玩家一格，返回存活人数
// 所有玩家的目标格都对照本步开始时的网格判定；两名玩家同时进入同一空格则双双死亡
func Step(players []*Player, grid *Grid) int {
	next := make([]Cell, len(players))
	dead := make([]bool, len(players))

	for i, p := range players {
		if !p.Alive {
			continue
		}
		p.Turn()
		next[i] = p.Next()
		if !grid.InBounds(next[i]) || grid.Occupied(next[i]) {
			dead[i] = true
		}
	}

	for i := range players {
		if !players[i].Alive {
			continue
		}
		for j := i + 1; j < len(players); j++ {
			if players[j].Alive && next[i] == next[j] {
				dead[i], dead[j] = true, true
			}
		}
	}

	alive := 0
	for i, p := range players {
		if !p.Alive {
			continue
		}
		if dead[i] {
			p.Alive = false
			continue
		}
		grid.Occupy(next[i])
		p.moveTo(next[i])
		alive++
	}
	return alive
}

// broadcastStateLocked 完整模式每步发完整快照；增量模式首步完整、之后只发新增格子
func (r *Room) broadcastStateLocked() {
	if r.cfg.BroadcastMode == BroadcastDelta && r.fullSent {
		players := make([]PlayerDelta, 0, len(r.players))
		for _, p := range r.players {
			players = append(players, p.delta())
		}
		r.broadcastLocked(EvtStateDelta, DeltaPayload{
			Tick:    r.tickSeq,
			Players: players,
			Cells:   r.grid.CellsSince(r.sentCells),
		})
	} else {
		r.broadcastLocked(EvtState, r.fullStateLocked())
		r.fullSent = true
	}
	r.sentCells = r.grid.Len()
}

func (r *Room) fullStateLocked() StatePayload {
	players := make([]PlayerState, 0, len(r.players))
	for _, p := range r.players {
		players = append(players, p.state())
	}
	return StatePayload{Tick: r.tickSeq, Players: players, Grid: r.grid.Cells()}
}

package server

import (
	"errors"
	"fmt"
	"sync"
	"time"
)

var (
	ErrInvalidInterval = errors.New("timer interval must be positive")
	ErrInvalidGrid     = errors.New("grid too small for the starting positions")
	ErrInvalidMode     = errors.New("unknown broadcast mode")
	ErrInvalidCount    = errors.New("countdown must not be negative")
)

const (
	startInset = 10 // 起点距左右边界的格数

	colorSeat0 = "#00BFFF"
	colorSeat1 = "#DF740C"
)

// GameConfig 房间规则：网格尺寸、倒计时与 Tick 周期、广播模式
type GameConfig struct {
	Cols              int
	Rows              int
	TickInterval      time.Duration
	CountdownFrom     int
	CountdownInterval time.Duration
	BroadcastMode     string
	InputBuffer       int
}

// DefaultGameConfig 80×60 网格、80ms Tick、3 秒倒计时、完整快照广播
func DefaultGameConfig() GameConfig {
	return GameConfig{
		Cols:              80,
		Rows:              60,
		TickInterval:      80 * time.Millisecond,
		CountdownFrom:     3,
		CountdownInterval: time.Second,
		BroadcastMode:     BroadcastFull,
		InputBuffer:       64,
	}
}

// Validate 校验配置；创建房间前调用
func (c GameConfig) Validate() error {
	if c.TickInterval <= 0 || c.CountdownInterval <= 0 {
		return ErrInvalidInterval
	}
	if c.Cols-startInset <= startInset || c.Rows < 1 {
		return ErrInvalidGrid
	}
	if c.CountdownFrom < 0 {
		return ErrInvalidCount
	}
	if c.BroadcastMode != BroadcastFull && c.BroadcastMode != BroadcastDelta {
		return fmt.Errorf("%w: %q", ErrInvalidMode, c.BroadcastMode)
	}
	return nil
}

// RoomState 房间生命周期
type RoomState int

const (
	StatePairing RoomState = iota
	StateCountdown
	StateRunning
	StateEnded
)

func (s RoomState) String() string {
	switch s {
	case StatePairing:
		return "pairing"
	case StateCountdown:
		return "countdown"
	case StateRunning:
		return "running"
	default:
		return "ended"
	}
}

// Room 一局对战：两名玩家、共享网格、独占的计时器
// 玩家/网格只在房间锁内变更；输入经 inputChan 进入房间协程
type Room struct {
	ID    string
	Conns [2]ConnID

	mu        sync.Mutex
	players   [2]*Player
	grid      *Grid
	state     RoomState
	tickSeq   int64
	sentCells int  // 增量广播游标：已广播的网格格数
	fullSent  bool // 增量模式下首个 Tick 先发完整快照
	stopped   bool

	// 仅在 Manager 锁内访问
	rematchVotes int

	cfg       GameConfig
	sender    Sender
	onEnd     func(id, reason string)
	inputChan chan Input
	quit      chan struct{}
	metrics   *RoomMetrics
}

// NewRoom 创建房间：两名玩家位于左右对称起点，面向对方，起点写入网格与轨迹
func NewRoom(id string, conns [2]ConnID, cfg GameConfig, sender Sender, onEnd func(id, reason string)) (*Room, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if cfg.InputBuffer <= 0 {
		cfg.InputBuffer = 64
	}

	midY := cfg.Rows / 2
	r := &Room{
		ID:    id,
		Conns: conns,
		players: [2]*Player{
			NewPlayer(Cell{X: cfg.Cols - startInset, Y: midY}, DirLeft, colorSeat0),
			NewPlayer(Cell{X: startInset, Y: midY}, DirRight, colorSeat1),
		},
		grid:      NewGrid(cfg.Cols, cfg.Rows),
		state:     StatePairing,
		cfg:       cfg,
		sender:    sender,
		onEnd:     onEnd,
		inputChan: make(chan Input, cfg.InputBuffer), // 足够缓冲，避免网络读阻塞影响 Tick
		quit:      make(chan struct{}),
		metrics:   &RoomMetrics{},
	}
	for _, p := range r.players {
		r.grid.Occupy(p.Pos)
	}
	return r, nil
}

// Start 通知双方配对成功并启动倒计时/Tick 协程
func (r *Room) Start() {
	r.mu.Lock()
	r.broadcastLocked(EvtMatchFound, nil)
	r.state = StateCountdown
	r.mu.Unlock()
	go r.run()
}

// Stop 取消计时器；可重复调用，返回是否为首次停止
func (r *Room) Stop() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.stopped {
		return false
	}
	r.stopped = true
	r.state = StateEnded
	close(r.quit)
	return true
}

// Seat 连接对应的座位号（0/1），不在房间返回 -1
func (r *Room) Seat(conn ConnID) int {
	for i, c := range r.Conns {
		if c == conn {
			return i
		}
	}
	return -1
}

// Opponent 对手连接
func (r *Room) Opponent(conn ConnID) ConnID {
	if r.Conns[0] == conn {
		return r.Conns[1]
	}
	return r.Conns[0]
}

// State 当前生命周期状态
func (r *Room) State() RoomState {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

// Metrics 房间指标
func (r *Room) Metrics() *RoomMetrics { return r.metrics }

// OnInput 入站输入（不立即改变位置），仅记录意图，等下一次 Tick 处理
func (r *Room) OnInput(in Input) {
	// 不阻塞：输入拥塞时直接丢弃，保证 Tick 准时
	select {
	case r.inputChan <- in:
	default:
		r.metrics.IncChanFullDiscarded()
	}
}

// stageInput 在房间协程中写入 Pending；未开局或玩家已死亡时忽略
func (r *Room) stageInput(in Input) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.stopped || r.state != StateRunning || in.Seat < 0 || in.Seat >= len(r.players) {
		r.metrics.IncIgnored()
		return
	}
	if !r.players[in.Seat].Stage(in.Command) {
		r.metrics.IncIgnored()
		return
	}
	r.metrics.IncAccepted()
}

// Resync 向单个连接补发完整快照（增量模式下客户端丢包后使用）
func (r *Room) Resync(conn ConnID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.stopped || r.state != StateRunning {
		return
	}
	r.sender.Send(conn, Encode(EvtState, r.fullStateLocked()))
}

// RoomInfo 管理接口返回的房间摘要
type RoomInfo struct {
	ID      string    `json:"id"`
	State   string    `json:"state"`
	Tick    int64     `json:"tick"`
	Conns   [2]ConnID `json:"conns"`
	Alive   [2]bool   `json:"alive"`
	Cells   int       `json:"cells"`
	Metrics any       `json:"metrics"`
}

// Info 房间摘要
func (r *Room) Info() RoomInfo {
	r.mu.Lock()
	defer r.mu.Unlock()
	return RoomInfo{
		ID:      r.ID,
		State:   r.state.String(),
		Tick:    r.tickSeq,
		Conns:   r.Conns,
		Alive:   [2]bool{r.players[0].Alive, r.players[1].Alive},
		Cells:   r.grid.Len(),
		Metrics: r.metrics.Snapshot(),
	}
}

// ASCII 房间网格的文本视图
func (r *Room) ASCII() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return RenderASCII(r.grid, r.players[:])
}

// countdownStep 广播倒计时 n；n 为 0 时进入 Running 并广播开局
func (r *Room) countdownStep(n int) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.stopped {
		return false
	}
	r.broadcastLocked(EvtCountdown, n)
	if n == 0 {
		r.state = StateRunning
		r.broadcastLocked(EvtStartGame, nil)
	}
	return true
}

func (r *Room) broadcastLocked(t string, data any) {
	msg := Encode(t, data)
	if msg == nil {
		return
	}
	for _, c := range r.Conns {
		r.sender.Send(c, msg)
	}
}

package server

import (
	"errors"
	"sync"

	"github.com/google/uuid"
)

var ErrRoomIDCollision = errors.New("could not allocate a unique room id")

const maxRoomIDAttempts = 8

// ManagerConfig 创建 Manager 所需参数
type ManagerConfig struct {
	Game   GameConfig
	Sender Sender
	NewID  func() (string, error) // 房间 ID 生成器，默认随机 UUID
}

// Manager 会话管理器：持有匹配队列、活跃房间表与座位索引
// 所有表项只在 mu 内读写；锁顺序为 Manager → Room → Hub
type Manager struct {
	mu       sync.Mutex
	cfg      GameConfig
	sender   Sender
	newID    func() (string, error)
	mm       *Matchmaker
	rooms    map[string]*Room
	seats    map[ConnID]*Room // 活跃房间中的连接
	finished map[ConnID]*Room // 本局已结束、等待再来一局投票的房间
	metrics  *ServerMetrics
}

// NewManager 创建会话管理器
func NewManager(c ManagerConfig) (*Manager, error) {
	if err := c.Game.Validate(); err != nil {
		return nil, err
	}
	if c.NewID == nil {
		c.NewID = func() (string, error) {
			id, err := uuid.NewRandom()
			if err != nil {
				return "", err
			}
			return id.String(), nil
		}
	}
	return &Manager{
		cfg:      c.Game,
		sender:   c.Sender,
		newID:    c.NewID,
		mm:       NewMatchmaker(),
		rooms:    make(map[string]*Room),
		seats:    make(map[ConnID]*Room),
		finished: make(map[ConnID]*Room),
		metrics:  &ServerMetrics{},
	}, nil
}

// Ready 进入匹配；已在活跃房间中的连接忽略
func (m *Manager) Ready(conn ConnID) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, seated := m.seats[conn]; seated {
		Log.Debugf("ready ignored, already seated: conn=%s", conn)
		return
	}
	m.leaveFinishedLocked(conn)
	m.matchLocked(conn)
}

// PlayAgain 拆除当前房间（如有），离开上一局分组，重新匹配
func (m *Manager) PlayAgain(conn ConnID) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if room, ok := m.seats[conn]; ok {
		m.endLocked(room, ReasonOpponentDisconnected, conn)
	}
	m.leaveFinishedLocked(conn)
	m.matchLocked(conn)
}

// LeaveToMenu 主动离开：按对手断线结束房间
func (m *Manager) LeaveToMenu(conn ConnID) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.mm.Cancel(conn) {
		return
	}
	if room, ok := m.seats[conn]; ok {
		m.endLocked(room, ReasonOpponentDisconnected, conn)
		return
	}
	m.leaveFinishedLocked(conn)
}

// Disconnect 连接断开（硬重置，无重连宽限）
func (m *Manager) Disconnect(conn ConnID) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.metrics.IncDisconnects()
	if m.mm.Cancel(conn) {
		Log.Infof("queued connection left: conn=%s", conn)
		return
	}
	if room, ok := m.seats[conn]; ok {
		m.endLocked(room, ReasonOpponentDisconnected, conn)
		return
	}
	m.leaveFinishedLocked(conn)
}

// Input 将方向意图交给所在房间；未入座连接忽略
func (m *Manager) Input(conn ConnID, dir Direction) {
	m.mu.Lock()
	room, ok := m.seats[conn]
	m.mu.Unlock()
	if !ok {
		return
	}
	room.OnInput(Input{Seat: room.Seat(conn), Command: dir})
}

// Resync 向连接补发所在房间的完整快照
func (m *Manager) Resync(conn ConnID) {
	m.mu.Lock()
	room, ok := m.seats[conn]
	m.mu.Unlock()
	if ok {
		room.Resync(conn)
	}
}

// Rematch 对已结束的一局投票；每次请求计一票，满两票后同一对连接开新房间
func (m *Manager) Rematch(conn ConnID) {
	m.mu.Lock()
	defer m.mu.Unlock()
	room, ok := m.finished[conn]
	if !ok {
		Log.Debugf("rematch ignored, no finished round: conn=%s", conn)
		return
	}
	room.rematchVotes++
	m.send(room.Opponent(conn), EvtOpponentRematchRequest, nil)
	if room.rematchVotes < 2 {
		return
	}

	room.rematchVotes = 0
	for _, c := range room.Conns {
		delete(m.finished, c)
		m.send(c, EvtRematchStart, nil)
	}
	m.metrics.IncRematches()
	if _, err := m.createRoomLocked(room.Conns); err != nil {
		m.metrics.IncPairingFaults()
		Log.Errorf("rematch room creation failed: conns=%v err=%v", room.Conns, err)
	}
}

// End 结束房间；房间已不存在时为 no-op
func (m *Manager) End(roomID, reason string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if room, ok := m.rooms[roomID]; ok {
		m.endLocked(room, reason, "")
	}
}

// Lookup 连接所在的活跃房间与座位号
func (m *Manager) Lookup(conn ConnID) (roomID string, seat int, ok bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	room, ok := m.seats[conn]
	if !ok {
		return "", -1, false
	}
	return room.ID, room.Seat(conn), true
}

// Room 按 ID 取活跃房间
func (m *Manager) Room(id string) (*Room, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.rooms[id]
	return r, ok
}

// Rooms 活跃房间摘要
func (m *Manager) Rooms() []RoomInfo {
	m.mu.Lock()
	rooms := make([]*Room, 0, len(m.rooms))
	for _, r := range m.rooms {
		rooms = append(rooms, r)
	}
	m.mu.Unlock()

	out := make([]RoomInfo, 0, len(rooms))
	for _, r := range rooms {
		out = append(out, r.Info())
	}
	return out
}

// Snapshot 服务级指标
func (m *Manager) Snapshot() map[string]any {
	m.mu.Lock()
	active := len(m.rooms)
	m.mu.Unlock()
	_, waiting := m.mm.Waiting()

	s := m.metrics.Snapshot()
	s["active_rooms"] = active
	s["waiting"] = waiting
	return s
}

// Config 当前房间规则
func (m *Manager) Config() GameConfig {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.cfg
}

// UpdateConfig 热更新规则，只影响之后创建的房间
func (m *Manager) UpdateConfig(cfg GameConfig) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	m.mu.Lock()
	m.cfg = cfg
	m.mu.Unlock()
	return nil
}

// StopAll 停止所有房间的计时器（进程退出时）
func (m *Manager) StopAll() {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, room := range m.rooms {
		room.Stop()
		delete(m.rooms, id)
	}
	m.seats = make(map[ConnID]*Room)
	m.finished = make(map[ConnID]*Room)
}

func (m *Manager) matchLocked(conn ConnID) {
	res, opponent := m.mm.RequestReady(conn)
	switch res {
	case ReadyNoop:
		Log.Debugf("ready ignored, already queued: conn=%s", conn)
	case ReadyWaiting:
		m.send(conn, EvtWaiting, nil)
	case ReadyPaired:
		// 先等待的一方坐 0 号位
		if _, err := m.createRoomLocked([2]ConnID{opponent, conn}); err != nil {
			m.metrics.IncPairingFaults()
			Log.Errorf("pairing failed, both left unmatched: a=%s b=%s err=%v", opponent, conn, err)
		}
	}
}

func (m *Manager) createRoomLocked(conns [2]ConnID) (*Room, error) {
	id, err := m.uniqueIDLocked()
	if err != nil {
		return nil, err
	}
	room, err := NewRoom(id, conns, m.cfg, m.sender, m.End)
	if err != nil {
		return nil, err
	}
	m.rooms[id] = room
	for _, c := range conns {
		m.seats[c] = room
	}
	m.metrics.IncRoomsCreated()
	room.Start()
	Log.Infof("room created: room=%s a=%s b=%s", id, conns[0], conns[1])
	return room, nil
}

func (m *Manager) uniqueIDLocked() (string, error) {
	for i := 0; i < maxRoomIDAttempts; i++ {
		id, err := m.newID()
		if err != nil {
			return "", err
		}
		if _, exists := m.rooms[id]; !exists {
			return id, nil
		}
	}
	return "", ErrRoomIDCollision
}

// endLocked 先停计时器再移出房间表，然后通知除 leaver 以外的参与者
func (m *Manager) endLocked(room *Room, reason string, leaver ConnID) {
	room.Stop()
	delete(m.rooms, room.ID)
	for _, c := range room.Conns {
		if m.seats[c] == room {
			delete(m.seats, c)
		}
	}
	m.metrics.IncRoomsEnded()

	for _, c := range room.Conns {
		if c == leaver {
			continue
		}
		m.send(c, EvtGameOver, GameOverPayload{Reason: reason})
		if reason == ReasonOpponentDisconnected {
			m.send(c, EvtOpponentLeft, nil)
		}
	}

	if reason == ReasonRoundFinished {
		m.metrics.IncRoundsFinished()
		room.rematchVotes = 0
		for _, c := range room.Conns {
			m.finished[c] = room
		}
	}
	Log.Infof("room ended: room=%s reason=%s", room.ID, reason)
}

// leaveFinishedLocked 离开已结束一局的分组，对手收到 opponentLeft
func (m *Manager) leaveFinishedLocked(conn ConnID) {
	room, ok := m.finished[conn]
	if !ok {
		return
	}
	for _, c := range room.Conns {
		delete(m.finished, c)
	}
	m.send(room.Opponent(conn), EvtOpponentLeft, nil)
}

func (m *Manager) send(conn ConnID, t string, data any) {
	if msg := Encode(t, data); msg != nil {
		m.sender.Send(conn, msg)
	}
}

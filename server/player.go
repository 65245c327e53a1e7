package server

import (
	"fmt"
	"strings"
)

// ConnID 传输层分配的连接标识，核心只保存 ID
type ConnID string

// Direction 移动方向（服务端权威解释客户端“意图”）
type Direction int

const (
	DirNone Direction = iota
	DirUp
	DirDown
	DirLeft
	DirRight
)

func (d Direction) String() string {
	switch d {
	case DirUp:
		return "up"
	case DirDown:
		return "down"
	case DirLeft:
		return "left"
	case DirRight:
		return "right"
	default:
		return "none"
	}
}

// MarshalText 广播时方向以字符串出现
func (d Direction) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// UnmarshalText 接受 up/down/left/right
func (d *Direction) UnmarshalText(b []byte) error {
	switch strings.ToLower(string(b)) {
	case "up":
		*d = DirUp
	case "down":
		*d = DirDown
	case "left":
		*d = DirLeft
	case "right":
		*d = DirRight
	case "none", "":
		*d = DirNone
	default:
		return fmt.Errorf("unknown direction %q", string(b))
	}
	return nil
}

// Opposite 反方向
func (d Direction) Opposite() Direction {
	switch d {
	case DirUp:
		return DirDown
	case DirDown:
		return DirUp
	case DirLeft:
		return DirRight
	case DirRight:
		return DirLeft
	default:
		return DirNone
	}
}

// Delta 单位位移（y 轴向下）
func (d Direction) Delta() (dx, dy int) {
	switch d {
	case DirUp:
		return 0, -1
	case DirDown:
		return 0, 1
	case DirLeft:
		return -1, 0
	case DirRight:
		return 1, 0
	default:
		return 0, 0
	}
}

// ParseKey 将客户端按键映射为方向：方向键、WASD 或方向名
func ParseKey(key string) (Direction, bool) {
	switch strings.ToLower(key) {
	case "arrowup", "w", "up":
		return DirUp, true
	case "arrowdown", "s", "down":
		return DirDown, true
	case "arrowleft", "a", "left":
		return DirLeft, true
	case "arrowright", "d", "right":
		return DirRight, true
	default:
		return DirNone, false
	}
}

// Player 房间内的玩家实体（服务端权威状态）
// 只在 Tick 内变更位置/轨迹；输入事件只写 Pending
type Player struct {
	Pos     Cell
	Facing  Direction
	Pending Direction // 下一次 Tick 生效的意图方向，DirNone 表示无
	Trail   []Cell
	Alive   bool
	Color   string
}

// NewPlayer 在起点创建玩家，轨迹以起点开头
func NewPlayer(start Cell, facing Direction, color string) *Player {
	return &Player{
		Pos:    start,
		Facing: facing,
		Trail:  []Cell{start},
		Alive:  true,
		Color:  color,
	}
}

// Stage 记录意图方向，死亡玩家忽略
func (p *Player) Stage(d Direction) bool {
	if !p.Alive || d == DirNone {
		return false
	}
	p.Pending = d
	return true
}

// Turn 采用 Pending（反向请求直接丢弃），并清空 Pending
func (p *Player) Turn() {
	if p.Pending != DirNone && p.Pending != p.Facing.Opposite() {
		p.Facing = p.Pending
	}
	p.Pending = DirNone
}

// Next 按当前朝向前进一格后的位置
func (p *Player) Next() Cell {
	return p.Pos.Add(p.Facing)
}

// moveTo 提交移动：追加轨迹并更新位置，调用方负责占用网格
func (p *Player) moveTo(c Cell) {
	p.Trail = append(p.Trail, c)
	p.Pos = c
}

// PlayerState 为广播给客户端的完整状态
type PlayerState struct {
	X     int       `json:"x"`
	Y     int       `json:"y"`
	Dir   Direction `json:"dir"`
	Color string    `json:"color"`
	Alive bool      `json:"alive"`
	Trail []Cell    `json:"trail"`
}

// PlayerDelta 增量模式下的轻量状态（不含轨迹）
type PlayerDelta struct {
	X     int       `json:"x"`
	Y     int       `json:"y"`
	Dir   Direction `json:"dir"`
	Alive bool      `json:"alive"`
}

func (p *Player) state() PlayerState {
	trail := make([]Cell, len(p.Trail))
	copy(trail, p.Trail)
	return PlayerState{X: p.Pos.X, Y: p.Pos.Y, Dir: p.Facing, Color: p.Color, Alive: p.Alive, Trail: trail}
}

func (p *Player) delta() PlayerDelta {
	return PlayerDelta{X: p.Pos.X, Y: p.Pos.Y, Dir: p.Facing, Alive: p.Alive}
}

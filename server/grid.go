package server

import (
	"encoding/json"
	"fmt"
)

// Cell 网格整数坐标
type Cell struct {
	X int
	Y int
}

// Add 沿方向前进一格
func (c Cell) Add(d Direction) Cell {
	dx, dy := d.Delta()
	return Cell{X: c.X + dx, Y: c.Y + dy}
}

func (c Cell) String() string {
	return fmt.Sprintf("%d,%d", c.X, c.Y)
}

// MarshalJSON 编码为 [x, y]
func (c Cell) MarshalJSON() ([]byte, error) {
	return json.Marshal([2]int{c.X, c.Y})
}

// UnmarshalJSON 解析 [x, y]
func (c *Cell) UnmarshalJSON(b []byte) error {
	var xy [2]int
	if err := json.Unmarshal(b, &xy); err != nil {
		return err
	}
	c.X, c.Y = xy[0], xy[1]
	return nil
}

// Grid 房间内的占用集合：单调增长，格子一旦占用不会释放
// 同时保留插入顺序，用于确定性的快照与增量广播
type Grid struct {
	cols     int
	rows     int
	occupied map[Cell]struct{}
	order    []Cell
}

// NewGrid 创建 cols × rows 的空网格
func NewGrid(cols, rows int) *Grid {
	return &Grid{
		cols:     cols,
		rows:     rows,
		occupied: make(map[Cell]struct{}),
	}
}

func (g *Grid) Cols() int { return g.cols }
func (g *Grid) Rows() int { return g.rows }

// InBounds 是否在边界内（无环绕）
func (g *Grid) InBounds(c Cell) bool {
	return c.X >= 0 && c.X < g.cols && c.Y >= 0 && c.Y < g.rows
}

// Occupied 该格是否已被任何轨迹占用
func (g *Grid) Occupied(c Cell) bool {
	_, ok := g.occupied[c]
	return ok
}

// Occupy 标记占用；重复占用返回 false
func (g *Grid) Occupy(c Cell) bool {
	if _, ok := g.occupied[c]; ok {
		return false
	}
	g.occupied[c] = struct{}{}
	g.order = append(g.order, c)
	return true
}

// Len 已占用格数
func (g *Grid) Len() int { return len(g.order) }

// Cells 返回全部已占用格子的副本（按占用顺序）
func (g *Grid) Cells() []Cell {
	return g.CellsSince(0)
}

// CellsSince 返回第 n 个之后新占用的格子
func (g *Grid) CellsSince(n int) []Cell {
	if n < 0 {
		n = 0
	}
	if n >= len(g.order) {
		return []Cell{}
	}
	out := make([]Cell, len(g.order)-n)
	copy(out, g.order[n:])
	return out
}

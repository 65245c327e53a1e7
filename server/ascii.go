package server

import "strings"

// 字符表：空格子、轨迹（按座位）、玩家头部、死亡位置
const (
	asciiEmpty = '.'
	asciiOther = '#'
	asciiDead  = 'X'
)

var (
	asciiTrail = []byte{'a', 'b', 'c', 'd'}
	asciiHead  = []byte{'A', 'B', 'C', 'D'}
)

// RenderASCII 把网格渲染为多行文本，便于调试与管理接口查看
func RenderASCII(g *Grid, players []*Player) string {
	rows := make([][]byte, g.Rows())
	for y := range rows {
		rows[y] = []byte(strings.Repeat(string(asciiEmpty), g.Cols()))
	}
	for _, c := range g.Cells() {
		rows[c.Y][c.X] = asciiOther
	}
	for i, p := range players {
		seat := i % len(asciiTrail)
		for _, c := range p.Trail {
			rows[c.Y][c.X] = asciiTrail[seat]
		}
		if p.Alive {
			rows[p.Pos.Y][p.Pos.X] = asciiHead[seat]
		} else {
			rows[p.Pos.Y][p.Pos.X] = asciiDead
		}
	}

	var sb strings.Builder
	sb.Grow((g.Cols() + 1) * g.Rows())
	for _, row := range rows {
		sb.Write(row)
		sb.WriteByte('\n')
	}
	return sb.String()
}

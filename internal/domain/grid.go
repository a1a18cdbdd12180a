package domain

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// TileGrid 描述拼图布局：columns × rows。
//
// 约束：Columns ≥ 1 且 Rows ≥ 1；容量 = Columns × Rows。
type TileGrid struct {
	Columns int
	Rows    int
}

// Capacity 返回网格可容纳的成员数。
func (g TileGrid) Capacity() int { return g.Columns * g.Rows }

// String 输出 "<cols>x<rows>"（与配置/CLI 的输入形态一致）。
func (g TileGrid) String() string { return fmt.Sprintf("%dx%d", g.Columns, g.Rows) }

var gridRE = regexp.MustCompile(`^([0-9]+)x([0-9]+)$`)

// ParseGrid 解析 "<int>x<int>" 形态的网格描述。
// 解析失败属于配置错误（config_invalid），不做任何“聪明”修正。
func ParseGrid(s string) (TileGrid, error) {
	s = strings.TrimSpace(strings.ToLower(s))
	m := gridRE.FindStringSubmatch(s)
	if m == nil {
		return TileGrid{}, fmt.Errorf("网格必须是 <列>x<行> 形态（例如 3x2），实际是 %q", s)
	}
	cols, err := strconv.Atoi(m[1])
	if err != nil {
		return TileGrid{}, err
	}
	rows, err := strconv.Atoi(m[2])
	if err != nil {
		return TileGrid{}, err
	}
	if cols < 1 || rows < 1 {
		return TileGrid{}, fmt.Errorf("网格的列与行都必须 ≥ 1，实际是 %q", s)
	}
	return TileGrid{Columns: cols, Rows: rows}, nil
}

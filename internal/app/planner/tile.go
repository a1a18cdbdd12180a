package planner

import (
	"github.com/John-Robertt/VCSG/internal/domain"
)

const (
	// DefaultCanvasWidth / DefaultCanvasHeight 是拼图画布的默认尺寸。
	DefaultCanvasWidth  = 1920
	DefaultCanvasHeight = 1080
)

// PlanGrid 按成员数选择“尽量方正”的网格；超出桶范围时回退到 requested。
//
// 桶（硬约束）：≤4→2×2，≤6→3×2，≤9→3×3，≤12→4×3，≤15→5×3。
// 纯函数：绝不修改 requested，也没有任何跨调用的共享状态。
func PlanGrid(n int, requested domain.TileGrid) domain.TileGrid {
	switch {
	case n <= 4:
		return domain.TileGrid{Columns: 2, Rows: 2}
	case n <= 6:
		return domain.TileGrid{Columns: 3, Rows: 2}
	case n <= 9:
		return domain.TileGrid{Columns: 3, Rows: 3}
	case n <= 12:
		return domain.TileGrid{Columns: 4, Rows: 3}
	case n <= 15:
		return domain.TileGrid{Columns: 5, Rows: 3}
	default:
		return requested
	}
}

// TailGrid 为“最后一个不满的分块”重算网格：列数保持 requested 不变，
// 行数 = ceil(n / columns)。满块直接用 requested，不要调用该函数。
func TailGrid(n int, requested domain.TileGrid) domain.TileGrid {
	cols := requested.Columns
	if cols < 1 {
		cols = 1
	}
	rows := (n + cols - 1) / cols
	if rows < 1 {
		rows = 1
	}
	return domain.TileGrid{Columns: cols, Rows: rows}
}

// CellSize 计算单元格像素尺寸：floor(canvas/列数) × floor(canvas/行数)。
func CellSize(canvasW, canvasH int, g domain.TileGrid) (w, h int) {
	if canvasW <= 0 {
		canvasW = DefaultCanvasWidth
	}
	if canvasH <= 0 {
		canvasH = DefaultCanvasHeight
	}
	return canvasW / g.Columns, canvasH / g.Rows
}

// FinalizeGroup 把一组有序成员定格为拼图组：按成员数选网格。
// 不变量：返回组的成员数 ≤ 网格容量（极端情况下多余成员被截掉，
// 正常流程里成员数不会超过 requested 的容量，截断不会触发）。
func FinalizeGroup(key string, members []string, requested domain.TileGrid) domain.CollageGroup {
	g := PlanGrid(len(members), requested)
	if len(members) > g.Capacity() {
		members = members[:g.Capacity()]
	}
	return domain.CollageGroup{
		Key:     key,
		Members: append([]string(nil), members...),
		Grid:    g,
	}
}

// Partition 把有序集合切成固定大小的块：除最后一块外长度都等于 size，
// 块内与块间都保持输入顺序。纯函数，无副作用。
func Partition(items []string, size int) [][]string {
	if size < 1 || len(items) == 0 {
		return nil
	}
	out := make([][]string, 0, (len(items)+size-1)/size)
	for start := 0; start < len(items); start += size {
		end := start + size
		if end > len(items) {
			end = len(items)
		}
		out = append(out, items[start:end:end])
	}
	return out
}

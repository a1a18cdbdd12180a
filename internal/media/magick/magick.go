package magick

import (
	"context"
	"fmt"
	"os/exec"

	"github.com/John-Robertt/VCSG/internal/domain"
	"github.com/John-Robertt/VCSG/internal/media"
)

// Montage 通过 ImageMagick 的 montage 实现网格拼图。
//
// IM7 的入口是 `magick montage`，IM6 是独立的 `montage`；
// Resolve 按这个顺序探测可用命令。
type Montage struct {
	argv []string // 完整命令前缀，例如 ["magick","montage"] 或 ["montage"]
}

var _ media.Composer = (*Montage)(nil)

// Resolve 探测本机可用的 montage 入口。两者都不可用是环境错误，
// 直接让上层在 run 开始前失败（而不是拼到一半才发现）。
func Resolve() (*Montage, error) {
	if _, err := exec.LookPath("magick"); err == nil {
		return &Montage{argv: []string{"magick", "montage"}}, nil
	}
	if _, err := exec.LookPath("montage"); err == nil {
		return &Montage{argv: []string{"montage"}}, nil
	}
	return nil, fmt.Errorf("找不到 ImageMagick：PATH 里既没有 magick 也没有 montage")
}

// NewWithArgv 指定完整命令前缀（测试/特殊部署用）。
func NewWithArgv(argv ...string) *Montage {
	return &Montage{argv: append([]string(nil), argv...)}
}

// ComposeGrid 把有序成员拼成 grid 布局的一张图。
// 成员数不得超过网格容量（核心流程保证该不变量，这里再兜一次底）。
func (m *Montage) ComposeGrid(ctx context.Context, outPath string, members []string, grid domain.TileGrid, cellW, cellH int) error {
	if len(members) == 0 {
		return fmt.Errorf("拼图成员为空")
	}
	if len(members) > grid.Capacity() {
		return fmt.Errorf("成员数 %d 超过网格容量 %d（%s）", len(members), grid.Capacity(), grid)
	}

	argv := composeArgv(m.argv, outPath, members, grid, cellW, cellH)
	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	out, err := cmd.CombinedOutput()
	if err != nil {
		return &media.ToolError{Tool: argv[0], Stderr: media.TrimOutput(out, 400), Err: err}
	}
	return nil
}

func composeArgv(prefix []string, outPath string, members []string, grid domain.TileGrid, cellW, cellH int) []string {
	argv := append([]string(nil), prefix...)
	argv = append(argv,
		"-background", "black",
		"-tile", grid.String(),
		"-geometry", fmt.Sprintf("%dx%d+0+0", cellW, cellH),
	)
	argv = append(argv, members...)
	argv = append(argv, outPath)
	return argv
}

package media

import (
	"context"
	"fmt"
	"strings"

	"github.com/John-Robertt/VCSG/internal/domain"
)

// 外部媒体工具被当作黑盒服务消费：核心只计算“请求什么”
// （时间点、网格、成员顺序），执行全部发生在这些接口后面。
//
// 约束：
// - 所有调用都是同步阻塞的；取消通过 ctx 传递
// - 实现不做重试（重试策略由核心流程统一掌握，见 infra/retry）
// - 实现必须是无状态的：同一实例可被多个 goroutine 并用

// Prober 探测媒体时长（秒）。
type Prober interface {
	ProbeDuration(ctx context.Context, mediaPath string) (float64, error)
}

// Capturer 在指定时间点截取单帧到 outPath。
type Capturer interface {
	CaptureFrame(ctx context.Context, mediaPath string, at domain.Timecode, outPath string) error
}

// Composer 把有序成员按网格拼成一张图。
type Composer interface {
	ComposeGrid(ctx context.Context, outPath string, members []string, grid domain.TileGrid, cellW, cellH int) error
}

// Tools 聚合一次 run 所需的全部外部工具。
type Tools struct {
	Prober   Prober
	Capturer Capturer
	Composer Composer
}

// ToolError 是外部工具调用的可追溯错误（工具名 + stderr 摘要）。
// 上层据此把失败归类为 probe_failed / capture_failed / compose_failed。
type ToolError struct {
	Tool   string // "ffprobe" / "ffmpeg" / "montage"
	Stderr string // 已裁剪的 stderr 尾部（可为空）
	Err    error
}

func (e *ToolError) Error() string {
	msg := strings.TrimSpace(e.Stderr)
	if msg == "" {
		return fmt.Sprintf("%s: %v", e.Tool, e.Err)
	}
	return fmt.Sprintf("%s: %v（stderr: %s）", e.Tool, e.Err, msg)
}

func (e *ToolError) Unwrap() error { return e.Err }

// TrimOutput 裁剪工具输出用于错误信息：只保留尾部（错误通常在最后几行）。
func TrimOutput(out []byte, max int) string {
	s := strings.TrimSpace(string(out))
	if max <= 0 || len(s) <= max {
		return s
	}
	return "..." + s[len(s)-max:]
}

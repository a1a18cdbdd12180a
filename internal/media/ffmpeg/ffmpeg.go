package ffmpeg

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strconv"
	"strings"

	"github.com/John-Robertt/VCSG/internal/domain"
	"github.com/John-Robertt/VCSG/internal/media"
)

// FFmpeg 通过 ffprobe/ffmpeg 二进制实现探测与单帧截取。
//
// 约束：
// - 每次调用都是一个独立的外部进程（CommandContext，随 ctx 取消）
// - 不做重试：由核心流程统一掌握
type FFmpeg struct {
	ProbeBin   string // 默认 "ffprobe"
	CaptureBin string // 默认 "ffmpeg"
}

func New() *FFmpeg {
	return &FFmpeg{ProbeBin: "ffprobe", CaptureBin: "ffmpeg"}
}

var _ media.Prober = (*FFmpeg)(nil)
var _ media.Capturer = (*FFmpeg)(nil)

// ProbeDuration 读取容器层的时长（秒）。
func (f *FFmpeg) ProbeDuration(ctx context.Context, mediaPath string) (float64, error) {
	cmd := exec.CommandContext(ctx, f.ProbeBin, probeArgs(mediaPath)...)
	out, err := cmd.Output()
	if err != nil {
		return 0, &media.ToolError{Tool: f.ProbeBin, Stderr: stderrOf(err), Err: err}
	}

	s := strings.TrimSpace(string(out))
	d, perr := strconv.ParseFloat(s, 64)
	if perr != nil {
		return 0, &media.ToolError{Tool: f.ProbeBin, Err: fmt.Errorf("无法解析时长输出 %q：%w", s, perr)}
	}
	if d < 0 {
		return 0, &media.ToolError{Tool: f.ProbeBin, Err: fmt.Errorf("时长为负：%v", d)}
	}
	return d, nil
}

// CaptureFrame 在 at 处截取单帧 JPEG。
// 文件是否真实可用（非空、可解码）由调用方校验，这里只负责发起进程。
func (f *FFmpeg) CaptureFrame(ctx context.Context, mediaPath string, at domain.Timecode, outPath string) error {
	cmd := exec.CommandContext(ctx, f.CaptureBin, captureArgs(mediaPath, at, outPath)...)
	out, err := cmd.CombinedOutput()
	if err != nil {
		return &media.ToolError{Tool: f.CaptureBin, Stderr: media.TrimOutput(out, 400), Err: err}
	}
	return nil
}

func probeArgs(mediaPath string) []string {
	return []string{
		"-v", "error",
		"-show_entries", "format=duration",
		"-of", "default=noprint_wrappers=1:nokey=1",
		mediaPath,
	}
}

// -ss 放在 -i 之前走关键帧快速 seek：对拼图截图来说，速度远比
// 帧级精度重要（时间点本身就是按整秒截断的）。
func captureArgs(mediaPath string, at domain.Timecode, outPath string) []string {
	return []string{
		"-y",
		"-loglevel", "error",
		"-ss", at.Clock(),
		"-i", mediaPath,
		"-frames:v", "1",
		"-q:v", "2",
		outPath,
	}
}

func stderrOf(err error) string {
	var ee *exec.ExitError
	if errors.As(err, &ee) {
		return media.TrimOutput(ee.Stderr, 400)
	}
	return ""
}

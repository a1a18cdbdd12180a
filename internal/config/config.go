package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/John-Robertt/VCSG/internal/domain"
)

const (
	// ErrCodeNotFound 表示无参运行但 cwd 下没有 vcsg.json。
	ErrCodeNotFound = "config_not_found"
	// ErrCodeInvalid 表示配置文件无法读取/解析，或字段不合法。
	ErrCodeInvalid = "config_invalid"
	// ErrCodeMissingPath 表示无参运行但配置文件缺少 path 字段。
	ErrCodeMissingPath = "config_missing_path"
)

const (
	ModeVideo = "video"
	ModeImage = "image"
	ModeBoth  = "both"
)

const (
	// DefaultMode / DefaultGrid 是 CLI 与配置文件都未指定时的最终默认值。
	DefaultMode = ModeVideo
	DefaultGrid = "3x2"

	// DefaultMinLength 低于该时长（秒）的视频直接跳过。
	DefaultMinLength = 30.0
	// DefaultMinShots 截图少于该数量时不拼图（只告警跳过）。
	// 历史实现里这个阈值一度是 6、一度是隐式的 4；这里显式化并允许配置。
	DefaultMinShots = 4

	DefaultCaptureRetries = 3
	DefaultRetryBackoffMS = 500

	// DefaultConcurrency=1：截取/拼图都是重 IO/CPU 的外部进程，
	// 默认严格串行；调大并发由用户自己对机器负责。
	DefaultConcurrency = 1
	maxConcurrency     = 8
)

// CLIArgs 只包含 CLI 暴露的入口（path/mode/grid/apply），并保留“是否显式指定”
// 的信息。这能保证覆盖优先级可实现：例如 --apply=false 必须能覆盖 config.apply=true。
type CLIArgs struct {
	Path string

	Mode    string
	ModeSet bool

	Grid    string
	GridSet bool

	Apply    bool
	ApplySet bool
}

// FileConfig 对应 vcsg.json 的解析结构。
type FileConfig struct {
	Path  string `json:"path"`
	Mode  string `json:"mode"`
	Grid  string `json:"grid"`
	Apply *bool  `json:"apply"`

	// 指针字段区分“未设置”与“显式写了零值”：retry_backoff_ms: 0 是合法配置，
	// 不能被悄悄换成默认值。
	MinLengthSeconds *float64 `json:"min_length_seconds"`
	MinShots         *int     `json:"min_shots"`
	CaptureRetries   *int     `json:"capture_retries"`
	RetryBackoffMS   *int     `json:"retry_backoff_ms"`
	KeepScreenshots  bool     `json:"keep_screenshots"`

	Canvas      *CanvasConfig `json:"canvas"`
	Concurrency int           `json:"concurrency"`
	ExcludeDirs []string      `json:"exclude_dirs"`
}

type CanvasConfig struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

// EffectiveConfig 是合并并做最小规范化后的最终配置
// （实现层直接消费，不再做二次默认/优先级判断）。
type EffectiveConfig struct {
	Path string

	Mode  string
	Apply bool

	Grid      domain.TileGrid
	MinLength float64
	MinShots  int

	CaptureRetries int
	RetryBackoff   time.Duration

	KeepScreenshots bool

	CanvasWidth  int
	CanvasHeight int

	Concurrency int
	ExcludeDirs []string
}

// Error 是配置阶段的结构化错误（带 error_code）。
type Error struct {
	Code string
	Path string
	Err  error
}

func (e *Error) Error() string {
	switch e.Code {
	case ErrCodeNotFound:
		return fmt.Sprintf("%s：未找到配置文件 %q", e.Code, e.Path)
	case ErrCodeMissingPath:
		return fmt.Sprintf("%s：配置文件 %q 缺少必填字段 path", e.Code, e.Path)
	case ErrCodeInvalid:
		if e.Err != nil {
			return fmt.Sprintf("%s：配置文件 %q 无效：%v", e.Code, e.Path, e.Err)
		}
		return fmt.Sprintf("%s：配置文件 %q 无效", e.Code, e.Path)
	default:
		if e.Err != nil {
			return fmt.Sprintf("%s：%v", e.Code, e.Err)
		}
		return e.Code
	}
}

func (e *Error) Unwrap() error { return e.Err }

// Code 从 error 中提取 error_code；若不是 *Error 则返回空串。
func Code(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// LoadEffective 按文档约定发现并读取配置文件，然后与 CLI 参数合并为最终配置。
//
// 发现规则（固定）：
// 1) CLI 提供 path：尝试读取 <path>/vcsg.json（可选）
// 2) CLI 未提供 path：必须读取 <cwd>/vcsg.json（必选），且其中必须包含 path
//
// 覆盖优先级（固定）：
// - path：CLI path > config path
// - mode/grid/apply：CLI > config > 默认
// - 其他字段：仅由 config 控制（CLI 不暴露）
func LoadEffective(cwd string, cli CLIArgs) (EffectiveConfig, error) {
	cwdAbs, err := filepath.Abs(cwd)
	if err != nil {
		return EffectiveConfig{}, &Error{Code: ErrCodeInvalid, Path: cwd, Err: err}
	}

	if strings.TrimSpace(cli.Path) != "" {
		// CLI 给了 path：配置文件可选，位置固定在 <path>/vcsg.json。
		absPath := absCleanFrom(cwdAbs, cli.Path)
		cfgPath := filepath.Join(absPath, "vcsg.json")

		fc, _, err := readFileConfig(cfgPath)
		if err != nil {
			return EffectiveConfig{}, &Error{Code: ErrCodeInvalid, Path: cfgPath, Err: err}
		}
		// 不存在也不报错。
		return merge(absPath, cli, fc, cfgPath)
	}

	// CLI 没给 path：必须读取 <cwd>/vcsg.json，且其中必须包含 path。
	cfgPath := filepath.Join(cwdAbs, "vcsg.json")
	fc, exists, err := readFileConfig(cfgPath)
	if err != nil {
		return EffectiveConfig{}, &Error{Code: ErrCodeInvalid, Path: cfgPath, Err: err}
	}
	if !exists {
		return EffectiveConfig{}, &Error{Code: ErrCodeNotFound, Path: cfgPath, Err: os.ErrNotExist}
	}
	if strings.TrimSpace(fc.Path) == "" {
		return EffectiveConfig{}, &Error{Code: ErrCodeMissingPath, Path: cfgPath}
	}

	absPath := absCleanFrom(cwdAbs, fc.Path)
	return merge(absPath, cli, fc, cfgPath)
}

func merge(absPath string, cli CLIArgs, fc FileConfig, cfgPath string) (EffectiveConfig, error) {
	// mode：CLI > config > 默认
	mode := DefaultMode
	if cli.ModeSet {
		mode = cli.Mode
	} else if strings.TrimSpace(fc.Mode) != "" {
		mode = fc.Mode
	}
	if err := validateMode(mode); err != nil {
		return EffectiveConfig{}, &Error{Code: ErrCodeInvalid, Path: cfgPath, Err: err}
	}

	// grid：CLI > config > 默认。解析失败是配置错误，立刻失败，不重试。
	gridStr := DefaultGrid
	if cli.GridSet {
		gridStr = cli.Grid
	} else if strings.TrimSpace(fc.Grid) != "" {
		gridStr = fc.Grid
	}
	grid, err := domain.ParseGrid(gridStr)
	if err != nil {
		return EffectiveConfig{}, &Error{Code: ErrCodeInvalid, Path: cfgPath, Err: err}
	}

	// apply：CLI > config > 默认 false
	apply := false
	if cli.ApplySet {
		apply = cli.Apply
	} else if fc.Apply != nil {
		apply = *fc.Apply
	}

	minLength := DefaultMinLength
	if fc.MinLengthSeconds != nil {
		if *fc.MinLengthSeconds < 0 {
			return EffectiveConfig{}, &Error{Code: ErrCodeInvalid, Path: cfgPath, Err: fmt.Errorf("min_length_seconds 不能为负：%v", *fc.MinLengthSeconds)}
		}
		minLength = *fc.MinLengthSeconds
	}

	minShots := DefaultMinShots
	if fc.MinShots != nil {
		minShots = *fc.MinShots
	}
	if minShots < 1 {
		return EffectiveConfig{}, &Error{Code: ErrCodeInvalid, Path: cfgPath, Err: fmt.Errorf("min_shots 必须 ≥ 1，实际是 %d", minShots)}
	}

	retries := DefaultCaptureRetries
	if fc.CaptureRetries != nil {
		retries = *fc.CaptureRetries
	}
	if retries < 1 || retries > 10 {
		return EffectiveConfig{}, &Error{Code: ErrCodeInvalid, Path: cfgPath, Err: fmt.Errorf("capture_retries 范围是 [1,10]，实际是 %d", retries)}
	}

	// 显式的 retry_backoff_ms: 0 表示“立即重试”，是合法配置。
	backoffMS := DefaultRetryBackoffMS
	if fc.RetryBackoffMS != nil {
		backoffMS = *fc.RetryBackoffMS
	}
	if backoffMS < 0 {
		return EffectiveConfig{}, &Error{Code: ErrCodeInvalid, Path: cfgPath, Err: fmt.Errorf("retry_backoff_ms 不能为负：%d", backoffMS)}
	}

	canvasW, canvasH := 0, 0
	if fc.Canvas != nil {
		if fc.Canvas.Width < 0 || fc.Canvas.Height < 0 {
			return EffectiveConfig{}, &Error{Code: ErrCodeInvalid, Path: cfgPath, Err: fmt.Errorf("canvas 尺寸不能为负：%dx%d", fc.Canvas.Width, fc.Canvas.Height)}
		}
		canvasW, canvasH = fc.Canvas.Width, fc.Canvas.Height
	}

	concurrency := fc.Concurrency
	if concurrency == 0 {
		concurrency = DefaultConcurrency
	}
	// 文档约定：范围建议 [1, 8]；超出截断。
	if concurrency < 1 {
		concurrency = 1
	}
	if concurrency > maxConcurrency {
		concurrency = maxConcurrency
	}

	return EffectiveConfig{
		Path:            absPath,
		Mode:            mode,
		Apply:           apply,
		Grid:            grid,
		MinLength:       minLength,
		MinShots:        minShots,
		CaptureRetries:  retries,
		RetryBackoff:    time.Duration(backoffMS) * time.Millisecond,
		KeepScreenshots: fc.KeepScreenshots,
		CanvasWidth:     canvasW,
		CanvasHeight:    canvasH,
		Concurrency:     concurrency,
		ExcludeDirs:     append([]string(nil), fc.ExcludeDirs...),
	}, nil
}

func validateMode(m string) error {
	switch m {
	case ModeVideo, ModeImage, ModeBoth:
		return nil
	case "":
		return fmt.Errorf("mode 不能为空")
	default:
		return fmt.Errorf("mode 只能是 video、image 或 both，实际是 %q", m)
	}
}

// absCleanFrom 以 base 为基准，把 p 变为 clean + absolute。
// - p 若已是绝对路径：直接 Clean
// - p 若是相对路径：Join(base, p) 后 Clean
func absCleanFrom(base, p string) string {
	p = filepath.Clean(strings.TrimSpace(p))
	if p == "" {
		return ""
	}
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Clean(filepath.Join(base, p))
}

// readFileConfig 读取并解析 JSON 配置文件。
// 返回值 exists 表示该文件是否存在（不存在不算错误）。
func readFileConfig(path string) (fc FileConfig, exists bool, err error) {
	b, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return FileConfig{}, false, nil
		}
		return FileConfig{}, false, err
	}
	if err := json.Unmarshal(b, &fc); err != nil {
		return FileConfig{}, true, err
	}
	return fc, true, nil
}

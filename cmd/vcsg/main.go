package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/John-Robertt/VCSG/internal/app/run"
	"github.com/John-Robertt/VCSG/internal/config"
	"github.com/John-Robertt/VCSG/internal/domain"
	"github.com/John-Robertt/VCSG/internal/infra/fsx"
	"github.com/John-Robertt/VCSG/internal/media"
	"github.com/John-Robertt/VCSG/internal/media/ffmpeg"
	"github.com/John-Robertt/VCSG/internal/media/magick"
)

// errRunFailed 区分“run 完成但有失败条目”（退出码 1）与参数/用法错误（退出码 2）。
var errRunFailed = errors.New("run 存在失败条目")

func main() {
	root := newRootCmd()
	if err := root.Execute(); err != nil {
		if errors.Is(err, errRunFailed) {
			os.Exit(1)
		}
		fmt.Fprintf(os.Stderr, "错误：%v\n", err)
		os.Exit(2)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "vcsg",
		Short:         "视频截图拼图生成器（默认 dry-run）",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(newRunCmd())
	return root
}

func newRunCmd() *cobra.Command {
	var (
		mode  string
		grid  string
		apply bool
	)

	cmd := &cobra.Command{
		Use:   "run [path]",
		Short: "扫描媒体库并生成拼图（默认 dry-run）",
		Long: `扫描 path 下的视频/图片，按时长规划截图时间点，截取单帧并拼成网格图。

未指定 path 时读取当前目录的 vcsg.json（必须含 path 字段）。
默认 dry-run：只探测与规划，不截取、不拼图、不删除、不落盘。`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			path := ""
			if len(args) == 1 {
				path = args[0]
			}
			return runOnce(cmd, runArgs{
				Path:     path,
				Mode:     mode,
				ModeSet:  cmd.Flags().Changed("mode"),
				Grid:     grid,
				GridSet:  cmd.Flags().Changed("grid"),
				Apply:    apply,
				ApplySet: cmd.Flags().Changed("apply"),
			})
		},
	}

	cmd.Flags().StringVar(&mode, "mode", "", "处理内容：video|image|both（未指定则读配置；最终默认 video）")
	cmd.Flags().StringVar(&grid, "grid", "", `拼图网格，如 "3x2"（未指定则读配置；最终默认 3x2）`)
	cmd.Flags().BoolVar(&apply, "apply", false, "执行截取/拼图/清理（默认 dry-run）；支持 --apply=false 覆盖配置中的 apply=true")

	return cmd
}

type runArgs struct {
	Path     string
	Mode     string
	ModeSet  bool
	Grid     string
	GridSet  bool
	Apply    bool
	ApplySet bool
}

func runOnce(cmd *cobra.Command, ra runArgs) error {
	cwd, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("读取当前目录失败：%w", err)
	}
	cwdAbs, _ := filepath.Abs(cwd)

	eff, err := config.LoadEffective(cwd, config.CLIArgs{
		Path:     ra.Path,
		Mode:     ra.Mode,
		ModeSet:  ra.ModeSet,
		Grid:     ra.Grid,
		GridSet:  ra.GridSet,
		Apply:    ra.Apply,
		ApplySet: ra.ApplySet,
	})
	if err != nil {
		rr := run.SyntheticConfigFailure(err)
		rr.Path = cwdAbs
		rr.DryRun = !(ra.ApplySet && ra.Apply)
		emitReport(rr)
		return errRunFailed
	}

	tools, err := buildTools(eff.Apply)
	if err != nil {
		return err
	}

	progressW, interactive := pickProgressWriter()
	var obs run.Observer
	if interactive {
		obs = newProgressUI(progressW)
	}

	rr := run.ExecuteWithObserver(cmd.Context(), eff, tools, obs)

	// apply：必须写入 <path>/cache/report.json；dry-run 禁止落盘。
	if eff.Apply {
		if err := writeReportFile(eff.Path, rr); err != nil {
			fmt.Fprintf(os.Stderr, "写入 report.json 失败：%v\n", err)
			emitReport(rr)
			return errRunFailed
		}
	}

	emitReport(rr)
	if interactive {
		emitLocations(progressW, eff)
	}
	if rr.Summary.Failed == 0 {
		return nil
	}
	return errRunFailed
}

// buildTools 组装外部工具端口。
// montage 缺失在 apply 下是环境错误（拼到一半才发现更糟）；
// dry-run 不会拼图，给个占位实现即可，保证无 ImageMagick 的机器也能演练。
func buildTools(apply bool) (media.Tools, error) {
	ff := ffmpeg.New()

	comp, err := magick.Resolve()
	if err != nil {
		if apply {
			return media.Tools{}, err
		}
		comp = magick.NewWithArgv("montage")
	}
	return media.Tools{Prober: ff, Capturer: ff, Composer: comp}, nil
}

func emitReport(rr domain.RunReport) {
	if isTTY(os.Stdout) {
		fmt.Fprintf(os.Stdout, "完成：processed=%d skipped=%d failed=%d collages=%d\n",
			rr.Summary.Processed, rr.Summary.Skipped, rr.Summary.Failed, rr.Summary.Collages,
		)
		if rr.Summary.Failed > 0 {
			for _, it := range rr.Items {
				if it.Status != domain.StatusFailed {
					continue
				}
				key := it.Source
				if key == "" {
					key = "<config>"
				}
				fmt.Fprintf(os.Stderr, "%s %s: %s\n", key, it.ErrorCode, it.ErrorMsg)
			}
		}
		return
	}

	// stdout 非 TTY：stdout 必须且仅输出一个 RunReport JSON（日志/摘要走 stderr）。
	enc := json.NewEncoder(os.Stdout)
	_ = enc.Encode(rr)
	fmt.Fprintf(os.Stderr, "完成：processed=%d skipped=%d failed=%d collages=%d\n",
		rr.Summary.Processed, rr.Summary.Skipped, rr.Summary.Failed, rr.Summary.Collages,
	)
}

func writeReportFile(root string, rr domain.RunReport) error {
	b, err := json.MarshalIndent(rr, "", "  ")
	if err != nil {
		return err
	}
	b = append(b, '\n')
	return fsx.WriteFileAtomicReplace(filepath.Join(root, "cache"), "report.json", b)
}

func isTTY(f *os.File) bool {
	fi, err := f.Stat()
	if err != nil {
		return false
	}
	return fi.Mode()&os.ModeCharDevice != 0
}

func pickProgressWriter() (io.Writer, bool) {
	// 进度输出只在交互终端启用；默认走 stderr（不污染 stdout JSON）。
	if isTTY(os.Stderr) {
		return os.Stderr, true
	}
	// 某些环境（例如仅重定向 stderr）下，stdout 仍是 TTY：退化输出到 stdout。
	if isTTY(os.Stdout) {
		return os.Stdout, true
	}
	return nil, false
}

func emitLocations(w io.Writer, eff config.EffectiveConfig) {
	// 这两行用于降低“完成后不知道产物在哪”的摩擦，且不影响 stdout JSON 契约。
	if w == nil {
		return
	}
	if eff.Apply {
		fmt.Fprintf(w, "report: %s\n", filepath.Join(eff.Path, "cache", "report.json"))
		fmt.Fprintf(w, "index: %s\n", filepath.Join(eff.Path, "cache", "index.html"))
	}
	fmt.Fprintf(w, "path: %s\n", eff.Path)
}

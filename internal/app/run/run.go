package run

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/John-Robertt/VCSG/internal/app/planner"
	"github.com/John-Robertt/VCSG/internal/config"
	"github.com/John-Robertt/VCSG/internal/domain"
	"github.com/John-Robertt/VCSG/internal/gallery"
	"github.com/John-Robertt/VCSG/internal/infra/cache"
	"github.com/John-Robertt/VCSG/internal/infra/fsx"
	"github.com/John-Robertt/VCSG/internal/infra/imgx"
	"github.com/John-Robertt/VCSG/internal/infra/retry"
	"github.com/John-Robertt/VCSG/internal/media"
	"github.com/John-Robertt/VCSG/internal/scan"
	"github.com/John-Robertt/VCSG/internal/shot"
)

// Execute 执行一次 run（dry-run/apply），并返回对外稳定的 RunReport。
// 该函数尽量把错误“降级”为 item 级失败（单个视频失败不影响其他）。
func Execute(ctx context.Context, eff config.EffectiveConfig, tools media.Tools) domain.RunReport {
	return ExecuteWithObserver(ctx, eff, tools, nil)
}

// ExecuteWithObserver 与 Execute 相同，但允许传入 Observer 以输出进度/阶段信息（由上层决定是否启用）。
func ExecuteWithObserver(ctx context.Context, eff config.EffectiveConfig, tools media.Tools, obs Observer) domain.RunReport {
	started := time.Now().UTC()

	if obs != nil {
		obs.OnStart(eff)
	}

	rr := domain.RunReport{
		Path:      eff.Path,
		Mode:      eff.Mode,
		DryRun:    !eff.Apply,
		StartedAt: started,
		Items:     make([]domain.ItemResult, 0, 64),
	}

	store := cache.New(eff.Path, !eff.Apply)

	scanStarted := time.Now()
	files, leftoverShots, err := scan.ScanMedia(eff.Path, eff.ExcludeDirs)
	if err != nil {
		rr.Items = append(rr.Items, syntheticFailed(domain.ErrCodeIOFailed, fmt.Sprintf("扫描失败：%v", err)))
		rr.FinishedAt = time.Now().UTC()
		rr.Finalize()
		return rr
	}
	scanDur := time.Since(scanStarted)

	var videos, images []domain.MediaFile
	for _, f := range files {
		switch f.Kind {
		case domain.KindVideo:
			videos = append(videos, f)
		case domain.KindImage:
			images = append(images, f)
		}
	}

	// 上一轮 run 留下的截图：按“目录 + 源名 + 序号”索引，供视频条目收养。
	adopt := indexLeftovers(leftoverShots)

	if obs != nil {
		obs.OnPhaseDone("scan", map[string]any{
			"files":          len(files),
			"videos":         len(videos),
			"images":         len(images),
			"leftover_shots": len(leftoverShots),
		}, scanDur)
	}

	var videoJobs []domain.MediaFile
	if eff.Mode == config.ModeVideo || eff.Mode == config.ModeBoth {
		videoJobs = videos
	}

	// 同目录下 base 相同、扩展名不同的视频（a.mp4 / a.mkv）会共享截图与
	// 拼图路径：并发下互相覆盖/误删，串行下后者被误判 already_done。
	// 冲突时把扩展名并入输出名，让每个源独占自己的文件。
	collide := make(map[string]int, len(videoJobs))
	for _, v := range videoJobs {
		collide[leftoverKey(filepath.Dir(v.AbsPath), v.Base)]++
	}
	for i := range videoJobs {
		v := &videoJobs[i]
		if collide[leftoverKey(filepath.Dir(v.AbsPath), v.Base)] > 1 {
			v.Base += v.Ext
		}
	}

	// 图片批次在进池前切好：切分只依赖扫描顺序（rel path 升序），可提前确定。
	var chunks [][]string
	if eff.Mode == config.ModeImage || eff.Mode == config.ModeBoth {
		pool := make([]string, 0, len(images))
		for _, im := range images {
			pool = append(pool, im.AbsPath)
		}
		chunks = planner.Partition(pool, eff.Grid.Capacity())
	}

	total := len(videoJobs) + len(chunks)

	workers := eff.Concurrency
	if workers < 1 {
		workers = 1
	}

	if obs != nil {
		obs.OnPhaseDone("exec", map[string]any{
			"workers":     workers,
			"total_items": total,
		}, 0)
	}

	// 视频条目并发执行（worker pool），单条目内严格串行：
	// 一个条目独占自己的截图与拼图输出，条目之间无共享文件。
	type execResult struct {
		res domain.ItemResult
		dur time.Duration
	}

	jobs := make(chan domain.MediaFile)
	results := make(chan execResult, len(videoJobs))

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for v := range jobs {
				oneStarted := time.Now()
				r := execVideo(ctx, eff, tools, store, v, adopt[leftoverKey(filepath.Dir(v.AbsPath), v.Base)])
				results <- execResult{res: r, dur: time.Since(oneStarted)}
			}
		}()
	}

	go func() {
		for _, v := range videoJobs {
			jobs <- v
		}
		close(jobs)
		wg.Wait()
		close(results)
	}()

	done := 0
	for it := range results {
		done++
		rr.Items = append(rr.Items, it.res)
		if obs != nil {
			obs.OnItemDone(done, total, it.res, it.dur)
		}
	}

	// 图片批次串行执行：批次都往扫描根目录写，串行可避免任何命名竞争。
	runstamp := started.Format("20060102-150405")
	for i, chunk := range chunks {
		grid := eff.Grid
		if len(chunk) < eff.Grid.Capacity() {
			grid = planner.TailGrid(len(chunk), eff.Grid)
		}

		oneStarted := time.Now()
		res := execImageChunk(ctx, eff, tools, runstamp, i+1, chunk, grid)
		done++
		rr.Items = append(rr.Items, res)
		if obs != nil {
			obs.OnItemDone(done, total, res, time.Since(oneStarted))
		}
	}

	// 图库索引：只在 apply 下写；失败降级为一条合成 item，不影响已完成条目。
	if eff.Apply {
		entries := collageEntries(rr.Items)
		if len(entries) > 0 {
			idxStarted := time.Now()
			if err := gallery.WriteIndex(eff.Path, entries); err != nil {
				rr.Items = append(rr.Items, syntheticFailed(domain.ErrCodeIOFailed, fmt.Sprintf("写入图库索引失败：%v", err)))
			} else if obs != nil {
				obs.OnPhaseDone("index", map[string]any{
					"entries": len(entries),
				}, time.Since(idxStarted))
			}
		}
	}

	rr.FinishedAt = time.Now().UTC()
	rr.Finalize()
	return rr
}

func syntheticFailed(code, msg string) domain.ItemResult {
	return domain.ItemResult{
		Source:    "",
		Status:    domain.StatusFailed,
		ErrorCode: code,
		ErrorMsg:  msg,
		Frames:    []domain.FrameResult{},
	}
}

// SyntheticConfigFailure 把配置阶段的致命错误包装成单条 failed item 的 report，
// 保证 stdout JSON 契约在任何失败路径下都成立。
func SyntheticConfigFailure(err error) domain.RunReport {
	code := config.Code(err)
	if code == "" {
		code = domain.ErrCodeConfigInvalid
	}
	now := time.Now().UTC()
	rr := domain.RunReport{
		DryRun:     true,
		StartedAt:  now,
		FinishedAt: now,
		Items:      []domain.ItemResult{syntheticFailed(code, err.Error())},
	}
	rr.Finalize()
	return rr
}

func leftoverKey(dir, base string) string {
	return dir + "\x00" + base
}

// indexLeftovers 把散落截图按 (目录, 源名) 索引成 seq → 绝对路径。
// 是否真的可收养（非空、可解码）留到条目执行时再验。
func indexLeftovers(paths []string) map[string]map[int]string {
	out := make(map[string]map[int]string, 16)
	for _, p := range paths {
		r, ok := shot.Parse(p)
		if !ok {
			continue
		}
		k := leftoverKey(filepath.Dir(p), r.Source)
		if out[k] == nil {
			out[k] = make(map[int]string, 8)
		}
		out[k][r.Seq] = p
	}
	return out
}

func execVideo(ctx context.Context, eff config.EffectiveConfig, tools media.Tools, store cache.Store, v domain.MediaFile, leftovers map[int]string) domain.ItemResult {
	item := domain.ItemResult{
		Source: v.RelPath,
		Kind:   "video",
		Status: domain.StatusProcessed, // 失败/跳过时覆盖
		Frames: []domain.FrameResult{},
	}

	dir := filepath.Dir(v.AbsPath)
	collageAbs := filepath.Join(dir, shot.CollageName(v.Base))
	collageRel := relOf(eff.Path, collageAbs)

	// 幂等：拼图已存在且非空 => 跳过（dry-run 与 apply 口径一致）。
	if fsx.CheckNonEmpty(collageAbs) == nil {
		item.Status = domain.StatusSkipped
		item.SkipReason = domain.SkipReasonAlreadyDone
		item.Collage = collageRel
		return item
	}

	// 时长：先查缓存（dry-run 下缓存只读），未命中才起 ffprobe。
	duration, hit, _ := store.ReadDuration(v)
	if !hit {
		d, err := tools.Prober.ProbeDuration(ctx, v.AbsPath)
		if err != nil {
			item.Status = domain.StatusFailed
			item.ErrorCode = domain.ErrCodeProbeFailed
			item.ErrorMsg = fmt.Sprintf("探测时长失败：%v", err)
			return item
		}
		duration = d
		if !store.ReadOnly {
			_ = store.WriteDuration(v, duration)
		}
	}
	item.Duration = duration

	if duration < eff.MinLength {
		item.Status = domain.StatusSkipped
		item.SkipReason = domain.SkipReasonTooShort
		return item
	}

	plan, ok := planner.Classify(duration, eff.MinLength, eff.Grid)
	if !ok {
		item.Status = domain.StatusSkipped
		item.SkipReason = domain.SkipReasonNoUsableSpan
		return item
	}

	times := planner.Sequence(plan)
	item.Planned = len(times)
	item.Grid = planner.PlanGrid(len(times), eff.Grid).String()

	for i, at := range times {
		item.Frames = append(item.Frames, domain.FrameResult{
			At:     at.Clock(),
			Path:   relOf(eff.Path, filepath.Join(dir, shot.Name(v.Base, i+1))),
			Status: domain.FrameStatusPlanned,
		})
	}

	// 计划张数本身低于阈值：结局已定（too_few_shots），一张都不必截。
	// dry-run 与 apply 口径一致。
	if len(times) < eff.MinShots {
		item.Status = domain.StatusSkipped
		item.SkipReason = domain.SkipReasonTooFewShots
		return item
	}

	// dry-run 到此为止：只汇报计划，不截取、不落盘。
	if !eff.Apply {
		item.Collage = collageRel
		return item
	}

	policy := retry.Policy{Attempts: eff.CaptureRetries, Backoff: eff.RetryBackoff}

	members := make([]string, 0, len(times))
	var lastErr error
	for i, at := range times {
		seq := i + 1
		outAbs := filepath.Join(dir, shot.Name(v.Base, seq))

		// 收养：上一轮留下的同名截图若完好，直接复用，不再截取。
		if p, ok := leftovers[seq]; ok && frameUsable(p) == nil {
			members = append(members, p)
			item.Frames[i].Status = domain.FrameStatusAdopted
			continue
		}

		// 截取 + 校验放在同一个重试单元里：空文件/坏 JPEG 与进程失败同样重试。
		err := retry.Do(ctx, policy, func() error {
			if e := tools.Capturer.CaptureFrame(ctx, v.AbsPath, at, outAbs); e != nil {
				return e
			}
			return frameUsable(outAbs)
		})
		if err != nil {
			lastErr = err
			item.Frames[i].Status = domain.FrameStatusFailed
			_ = os.Remove(outAbs) // 不留半截文件
			continue
		}

		members = append(members, outAbs)
		item.Frames[i].Status = domain.FrameStatusCaptured
	}
	item.Captured = len(members)

	if len(members) == 0 {
		item.Status = domain.StatusFailed
		item.ErrorCode = domain.ErrCodeCaptureFailed
		item.ErrorMsg = fmt.Sprintf("全部截图失败：%v", lastErr)
		return item
	}

	// 截到的比阈值少：跳过拼图，但保留已截截图（下一轮可收养）。
	if len(members) < eff.MinShots {
		item.Status = domain.StatusSkipped
		item.SkipReason = domain.SkipReasonTooFewShots
		return item
	}

	group := planner.FinalizeGroup(v.Base, members, eff.Grid)
	item.Grid = group.Grid.String()

	cellW, cellH := planner.CellSize(eff.CanvasWidth, eff.CanvasHeight, group.Grid)
	if err := tools.Composer.ComposeGrid(ctx, collageAbs, group.Members, group.Grid, cellW, cellH); err != nil {
		item.Status = domain.StatusFailed
		item.ErrorCode = domain.ErrCodeComposeFailed
		item.ErrorMsg = fmt.Sprintf("拼图失败：%v", err)
		return item // 截图保留，便于排查与下一轮收养
	}
	if err := fsx.CheckNonEmpty(collageAbs); err != nil {
		item.Status = domain.StatusFailed
		item.ErrorCode = domain.ErrCodeComposeFailed
		item.ErrorMsg = fmt.Sprintf("拼图产物异常：%v", err)
		return item
	}
	item.Collage = collageRel

	// 成功后清理截图（除非配置要求保留）。
	for i := range item.Frames {
		st := item.Frames[i].Status
		if st != domain.FrameStatusCaptured && st != domain.FrameStatusAdopted {
			continue
		}
		if eff.KeepScreenshots {
			item.Frames[i].Status = domain.FrameStatusKept
			continue
		}
		if err := os.Remove(filepath.Join(eff.Path, filepath.FromSlash(item.Frames[i].Path))); err == nil {
			item.Frames[i].Status = domain.FrameStatusDeleted
		} else {
			// 删不掉不算条目失败：拼图已经成功，残留截图下一轮会被收养或清理。
			item.Frames[i].Status = domain.FrameStatusKept
		}
	}

	return item
}

func execImageChunk(ctx context.Context, eff config.EffectiveConfig, tools media.Tools, runstamp string, seq int, members []string, grid domain.TileGrid) domain.ItemResult {
	name := fmt.Sprintf("%s-%03d%s", runstamp, seq, shot.ImageCollageSuffix)
	outAbs := filepath.Join(eff.Path, name)

	item := domain.ItemResult{
		Source:  fmt.Sprintf("batch/%03d", seq),
		Kind:    "image_batch",
		Status:  domain.StatusProcessed,
		Grid:    grid.String(),
		Collage: relOf(eff.Path, outAbs),
		Planned: len(members),
		Frames:  make([]domain.FrameResult, 0, len(members)),
	}
	for _, m := range members {
		item.Frames = append(item.Frames, domain.FrameResult{
			Path:   relOf(eff.Path, m),
			Status: domain.FrameStatusPlanned,
		})
	}

	if !eff.Apply {
		return item
	}

	cellW, cellH := planner.CellSize(eff.CanvasWidth, eff.CanvasHeight, grid)
	if err := tools.Composer.ComposeGrid(ctx, outAbs, members, grid, cellW, cellH); err != nil {
		item.Status = domain.StatusFailed
		item.ErrorCode = domain.ErrCodeComposeFailed
		item.ErrorMsg = fmt.Sprintf("拼图失败：%v", err)
		item.Collage = ""
		return item
	}
	if err := fsx.CheckNonEmpty(outAbs); err != nil {
		item.Status = domain.StatusFailed
		item.ErrorCode = domain.ErrCodeComposeFailed
		item.ErrorMsg = fmt.Sprintf("拼图产物异常：%v", err)
		item.Collage = ""
		return item
	}

	// 源图片永不删除。
	item.Captured = len(members)
	for i := range item.Frames {
		item.Frames[i].Status = domain.FrameStatusKept
	}
	return item
}

// frameUsable 校验一张截图是否可用：存在、非空、可解码。
func frameUsable(path string) error {
	if err := fsx.CheckNonEmpty(path); err != nil {
		return err
	}
	return imgx.CheckJPEG(path)
}

func collageEntries(items []domain.ItemResult) []gallery.Entry {
	out := make([]gallery.Entry, 0, len(items))
	for _, it := range items {
		if it.Status != domain.StatusProcessed || it.Collage == "" {
			continue
		}
		title := it.Source
		if it.Kind == "image_batch" {
			title = it.Collage
		}
		out = append(out, gallery.Entry{Rel: it.Collage, Title: title})
	}
	return out
}

func relOf(root, abs string) string {
	if rel, err := filepath.Rel(root, abs); err == nil {
		return filepath.ToSlash(rel)
	}
	return filepath.ToSlash(abs)
}

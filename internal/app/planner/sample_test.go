package planner

import (
	"math"
	"reflect"
	"testing"

	"github.com/John-Robertt/VCSG/internal/domain"
)

var grid3x2 = domain.TileGrid{Columns: 3, Rows: 2}

func TestClassify_BelowMinimumIsSkip(t *testing.T) {
	for _, d := range []float64{0, 1, 1199, 1199.99} {
		if _, ok := Classify(d, 1200, grid3x2); ok {
			t.Fatalf("时长 %v < 最小时长 1200，应跳过", d)
		}
	}
}

func TestClassify_MediumBranch(t *testing.T) {
	// 25 分钟视频，3x2 网格：medium 分支。
	p, ok := Classify(1500, 1200, grid3x2)
	if !ok {
		t.Fatalf("1500s 不应跳过")
	}
	if p.Count != 6 || p.StartOffset != 30 {
		t.Fatalf("medium 计划不正确：%+v", p)
	}
	want := 1500.0 / 7.0
	if math.Abs(p.Interval-want) > 1e-9 {
		t.Fatalf("期望间隔 %v，实际 %v", want, p.Interval)
	}

	ts := Sequence(p)
	if len(ts) != 6 {
		t.Fatalf("期望 6 个时间点，实际 %d", len(ts))
	}
	if ts[0].Clock() != "00:04:04" || ts[5].Clock() != "00:21:55" {
		t.Fatalf("时间点格式化不正确：first=%s last=%s", ts[0].Clock(), ts[5].Clock())
	}
}

func TestClassify_LongBranchExcludesTail(t *testing.T) {
	// 70 分钟视频：long 分支，排除最后 10 分钟。
	p, ok := Classify(4200, 0, grid3x2)
	if !ok {
		t.Fatalf("4200s 不应跳过")
	}
	if p.Count != 6 || p.StartOffset != 120 {
		t.Fatalf("long 计划不正确：%+v", p)
	}
	want := 3480.0 / 7.0
	if math.Abs(p.Interval-want) > 1e-9 {
		t.Fatalf("期望间隔 %v，实际 %v", want, p.Interval)
	}

	ts := Sequence(p)
	if ts[0].Clock() != "00:10:17" || ts[5].Clock() != "00:51:42" {
		t.Fatalf("时间点不正确：first=%s last=%s", ts[0].Clock(), ts[5].Clock())
	}
	// 所有时间点都必须落在 [120, duration-600] 内。
	for _, tc := range ts {
		if float64(tc) <= 120 || float64(tc) >= 4200-600 {
			t.Fatalf("时间点 %v 越过 long 分支的可用窗口", float64(tc))
		}
	}
}

func TestClassify_ShortBranch(t *testing.T) {
	p, ok := Classify(200, 0, grid3x2)
	if !ok {
		t.Fatalf("200s 不应跳过")
	}
	if p.Count != 6 || p.StartOffset != 5 {
		t.Fatalf("short 计划不正确：%+v", p)
	}
	want := 190.0 / 7.0
	if math.Abs(p.Interval-want) > 1e-9 {
		t.Fatalf("期望间隔 %v，实际 %v", want, p.Interval)
	}
}

func TestClassify_VeryShortForces2x2(t *testing.T) {
	// < 40s：无视 requested 网格，强制 4 张（2×2 容量）。
	p, ok := Classify(35, 0, domain.TileGrid{Columns: 5, Rows: 3})
	if !ok {
		t.Fatalf("35s 不应跳过")
	}
	if p.Count != 4 || p.StartOffset != 5 {
		t.Fatalf("期望 count=4 start=5，实际 %+v", p)
	}
	if math.Abs(p.Interval-5.0) > 1e-9 {
		t.Fatalf("期望间隔 5，实际 %v", p.Interval)
	}
}

func TestClassify_ClampsCountWhenIntervalTooSmall(t *testing.T) {
	// 12s 视频：可用窗口只有 2s，4 张放不下，收缩到 1 张且间隔 ≥ 1s。
	p, ok := Classify(12, 0, grid3x2)
	if !ok {
		t.Fatalf("12s 不应跳过")
	}
	if p.Count != 1 {
		t.Fatalf("期望收缩到 count=1，实际 %+v", p)
	}
	if p.Interval < MinInterval {
		t.Fatalf("间隔不得小于 %v：%+v", MinInterval, p)
	}
}

func TestClassify_ClampsCountWhenLastFrameOverflows(t *testing.T) {
	// medium 的间隔公式是 duration/(count+1)：301s + 5×3 网格会把
	// 最后一个时间点推到视频之外，必须收缩 count。
	p, ok := Classify(301, 0, domain.TileGrid{Columns: 5, Rows: 3})
	if !ok {
		t.Fatalf("301s 不应跳过")
	}
	if p.Count != 9 {
		t.Fatalf("期望收缩到 count=9，实际 %+v", p)
	}
	last := p.StartOffset + float64(p.Count)*p.Interval
	if last >= 301 {
		t.Fatalf("最后一个时间点 %v 不应越过视频末尾", last)
	}
}

func TestClassify_NoUsableSpanIsSkip(t *testing.T) {
	// short 分支首尾各让 5s：≤10s 的视频没有可用窗口。
	for _, d := range []float64{1, 9, 10} {
		if p, ok := Classify(d, 0, grid3x2); ok {
			t.Fatalf("时长 %v 没有可用窗口，应跳过，实际 %+v", d, p)
		}
	}
}

func TestSequence_StrictlyIncreasingAndPure(t *testing.T) {
	p := domain.SamplingPlan{Count: 8, StartOffset: 30, Interval: 214.2857}

	ts := Sequence(p)
	if len(ts) != p.Count {
		t.Fatalf("期望 %d 个时间点，实际 %d", p.Count, len(ts))
	}
	for i := 1; i < len(ts); i++ {
		if ts[i] <= ts[i-1] {
			t.Fatalf("时间点必须严格递增：ts[%d]=%v ts[%d]=%v", i-1, ts[i-1], i, ts[i])
		}
	}

	// 幂等：相同计划 => 相同序列。
	if !reflect.DeepEqual(ts, Sequence(p)) {
		t.Fatalf("Sequence 不是纯函数")
	}
}

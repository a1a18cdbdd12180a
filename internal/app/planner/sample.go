package planner

import (
	"github.com/John-Robertt/VCSG/internal/domain"
)

const (
	// MinInterval 是相邻截图之间允许的最小间隔（秒）。
	// 视频太短而网格太大时，逐步收缩张数，绝不产生 0/负间隔。
	MinInterval = 1.0

	shortMax     = 300.0  // ≤ 5 分钟："short"
	longMin      = 3600.0 // ≥ 1 小时："long"
	veryShortMax = 40.0   // < 40s 时强制 2×2（4 张）

	shortStart  = 5.0
	shortMargin = 10.0 // short：首尾各让出 5s
	mediumStart = 30.0
	longStart   = 120.0
	longTail    = 600.0 // long：排除最后 10 分钟，避免剧透结尾
)

// Classify 把视频时长映射为采样计划。
//
// 分支（硬约束，阈值见上方常量）：
// - duration < minLength：跳过（ok=false），调用方不得发起任何截取
// - short： count=网格容量（<40s 强制 4），start=5，可用窗口=duration-10
// - medium：count=网格容量，start=30，间隔=duration/(count+1)
// - long：  count=网格容量，start=120，结束点=max(duration-600, start)
//
// 退化处理：可用窗口 ≤ 0 时跳过；间隔 < MinInterval 或最后一个时间点越过
// 视频末尾时，收缩 count 直到满足（收缩到 1 仍不满足则跳过）。
func Classify(duration, minLength float64, requested domain.TileGrid) (domain.SamplingPlan, bool) {
	if duration < minLength {
		return domain.SamplingPlan{}, false
	}

	count := requested.Capacity()
	var start, span float64

	switch {
	case duration <= shortMax:
		if duration < veryShortMax {
			count = 4
		}
		start = shortStart
		span = duration - shortMargin
	case duration < longMin:
		start = mediumStart
		span = duration
	default:
		start = longStart
		end := duration - longTail
		if end < start {
			end = start
		}
		span = end - start
	}

	if span <= 0 || count < 1 {
		return domain.SamplingPlan{}, false
	}

	// 收缩：间隔必须 ≥ MinInterval，且最后一个时间点必须落在视频内。
	// medium 分支的间隔直接用 duration/(count+1)，大网格 + 短时长时
	// start+count*interval 可能越过末尾，这里统一兜住。
	for count > 1 {
		interval := span / float64(count+1)
		if interval >= MinInterval && start+float64(count)*interval < duration {
			break
		}
		count--
	}

	interval := span / float64(count+1)
	if interval <= 0 || start+interval >= duration {
		return domain.SamplingPlan{}, false
	}

	return domain.SamplingPlan{
		Count:       count,
		StartOffset: start,
		Interval:    interval,
	}, true
}

// Sequence 由采样计划生成时间点序列：start + interval×i（i=1..count）。
// 纯函数：相同计划 => 相同序列；严格递增，长度 == plan.Count。
func Sequence(p domain.SamplingPlan) []domain.Timecode {
	out := make([]domain.Timecode, 0, p.Count)
	for i := 1; i <= p.Count; i++ {
		out = append(out, domain.Timecode(p.StartOffset+p.Interval*float64(i)))
	}
	return out
}

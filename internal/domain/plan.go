package domain

import "fmt"

// SamplingPlan 是对单个视频的采样参数（由时长分类得出，创建后不可变）。
//
// 约束：
// - Count ≥ 1
// - StartOffset ≥ 0，Interval > 0
// - 第 i 张截图的时间点 = StartOffset + Interval×i（i 从 1 开始）
type SamplingPlan struct {
	Count       int
	StartOffset float64 // 秒
	Interval    float64 // 秒
}

// Timecode 是视频内的时间点（秒）。格式化时按整秒截断（不做四舍五入）。
type Timecode float64

// Clock 输出 HH:MM:SS（截断到整秒）。
// 外部工具（ffmpeg -ss）消费的就是这个形态。
func (t Timecode) Clock() string {
	sec := int(t)
	if sec < 0 {
		sec = 0
	}
	h := sec / 3600
	m := (sec % 3600) / 60
	s := sec % 60
	return fmt.Sprintf("%02d:%02d:%02d", h, m, s)
}

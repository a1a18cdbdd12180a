package domain

// ScreenshotRef 是一张截图的结构化引用。
//
// 约束：Seq 在同一 Source 内唯一，按截取顺序从 1 单调分配。
// 分组/排序只依赖该结构，不允许在核心流程里重新从文件名反解
// （文件名解析只发生在 I/O 边界，见 internal/shot）。
type ScreenshotRef struct {
	Source string // 源媒体的 base name（不含扩展名）
	Seq    int    // 1..N
	Path   string // 绝对路径
}

// CollageGroup 是一次拼图调用的最小输入：有序成员 + 最终网格。
//
// 不变量：len(Members) ≤ Grid.Capacity()。
type CollageGroup struct {
	Key     string
	Members []string // 绝对路径，已按展示顺序排列
	Grid    TileGrid
}

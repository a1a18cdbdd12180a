package domain

// MediaKind 标记扫描结果的媒体类型（决定其走视频拼图还是图片拼图流程）。
type MediaKind string

const (
	KindVideo MediaKind = "video"
	KindImage MediaKind = "image"
)

// MediaFile 描述一次扫描得到的媒体文件（只做 stat，不读内容）。
//
// 不变量（实现必须遵守）：
// - AbsPath 必须是 clean + absolute
// - 扫描阶段只做 stat，不调用任何外部工具
type MediaFile struct {
	AbsPath string
	RelPath string
	Base    string // filename without ext
	Ext     string // ".mp4"
	Kind    MediaKind
	Size    int64
	ModUnix int64
}

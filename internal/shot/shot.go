package shot

import (
	"fmt"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/John-Robertt/VCSG/internal/domain"
)

// Marker 是截图文件名里的标记 token；源媒体的 base name 取标记之前的部分。
const Marker = "-screenshot-"

const (
	// VideoCollageSuffix / ImageCollageSuffix 是拼图产物的固定后缀。
	// 扫描器据此排除产物，避免把上一轮的输出再次当作输入（反馈回路）。
	VideoCollageSuffix = "-videocollage.jpg"
	ImageCollageSuffix = "-imagecollage.jpg"
)

// 命名方案只认 3 位序号计数器。历史上存在过 "-screenshot-12min" 的
// 分钟偏移命名，两代方案并存会让排序规则二义，这里刻意不识别旧形态。
var shotRE = regexp.MustCompile(`^(.+)-screenshot-([0-9]{3})\.jpg$`)

// Name 生成截图文件名：<base>-screenshot-<seq:3位>.jpg。
// seq 从 1 开始，在同一源内按截取顺序单调分配。
func Name(base string, seq int) string {
	return fmt.Sprintf("%s%s%03d.jpg", base, Marker, seq)
}

// CollageName 生成视频拼图产物文件名。
func CollageName(base string) string {
	return base + VideoCollageSuffix
}

// Parse 从文件名反解出结构化引用（只用于 I/O 边界：收养上一轮的残留截图）。
// 核心流程内的截图引用在截取时就以 ScreenshotRef 形态产生，不走该函数。
func Parse(path string) (domain.ScreenshotRef, bool) {
	name := filepath.Base(path)
	m := shotRE.FindStringSubmatch(name)
	if m == nil {
		return domain.ScreenshotRef{}, false
	}
	seq, err := strconv.Atoi(m[2])
	if err != nil || seq < 1 {
		return domain.ScreenshotRef{}, false
	}
	return domain.ScreenshotRef{
		Source: m[1],
		Seq:    seq,
		Path:   path,
	}, true
}

// IsOutput 判断文件名是否是本工具的产物（拼图或截图）。
func IsOutput(name string) bool {
	if _, ok := Parse(name); ok {
		return true
	}
	return strings.HasSuffix(name, VideoCollageSuffix) || strings.HasSuffix(name, ImageCollageSuffix)
}

// Group 把截图引用按源媒体分组，组内按 Seq 升序。
// 返回的 keys 已排序，保证遍历顺序稳定（不依赖 map 遍历顺序）。
func Group(refs []domain.ScreenshotRef) (groups map[string][]domain.ScreenshotRef, keys []string) {
	groups = make(map[string][]domain.ScreenshotRef, 16)
	for _, r := range refs {
		groups[r.Source] = append(groups[r.Source], r)
	}
	keys = make([]string, 0, len(groups))
	for k := range groups {
		keys = append(keys, k)
		sort.Slice(groups[k], func(i, j int) bool { return groups[k][i].Seq < groups[k][j].Seq })
	}
	sort.Strings(keys)
	return groups, keys
}

// Regroup 是 Group 的边界版本：输入裸路径，能解析的进组，不能解析的丢弃。
func Regroup(paths []string) (map[string][]domain.ScreenshotRef, []string) {
	refs := make([]domain.ScreenshotRef, 0, len(paths))
	for _, p := range paths {
		if r, ok := Parse(p); ok {
			refs = append(refs, r)
		}
	}
	return Group(refs)
}

package scan

import (
	"io/fs"
	"path/filepath"
	"sort"
	"strings"

	"github.com/John-Robertt/VCSG/internal/domain"
	"github.com/John-Robertt/VCSG/internal/shot"
)

// CollageDirMarker 出现在目录名里即整目录排除。
// 上一轮的产物目录（或用户归档拼图的目录）绝不能再次进入输入，
// 否则会形成“拼图的拼图”反馈回路。
const CollageDirMarker = "-collage"

// ScanMedia 扫描 root 下的视频与图片文件，并应用目录排除规则。
//
// 规则（硬约束）：
// - 永久排除：<root>/cache/ 与任何名字含 "-collage" 的目录
// - excludeDirs：来自配置文件，均视为相对 root 的路径（若是绝对路径，则按绝对路径处理）
// - 本工具自己的产物按文件名排除：拼图直接丢弃；残留截图单独返回（供收养）
//
// 注意：扫描阶段只做 stat（DirEntry.Info），不读文件内容。
func ScanMedia(root string, excludeDirs []string) (files []domain.MediaFile, leftoverShots []string, err error) {
	root = filepath.Clean(root)
	excluded := buildExcluded(root, excludeDirs)

	files = make([]domain.MediaFile, 0, 128)
	leftoverShots = make([]string, 0, 16)

	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}

		// 统一的排除判断：目录用 SkipDir，文件则直接跳过。
		if isExcluded(path, excluded) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}

		if d.IsDir() {
			if path != root && strings.Contains(d.Name(), CollageDirMarker) {
				return filepath.SkipDir
			}
			return nil
		}

		name := d.Name()

		// 自家产物：拼图不再进入输入；残留截图收集起来供收养。
		if _, ok := shot.Parse(name); ok {
			leftoverShots = append(leftoverShots, path)
			return nil
		}
		if shot.IsOutput(name) {
			return nil
		}

		ext := strings.ToLower(filepath.Ext(name))
		kind, ok := kindOf(ext)
		if !ok {
			return nil
		}

		info, err := d.Info()
		if err != nil {
			return err
		}

		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}

		files = append(files, domain.MediaFile{
			AbsPath: path,
			RelPath: rel,
			Base:    strings.TrimSuffix(name, filepath.Ext(name)),
			Ext:     ext,
			Kind:    kind,
			Size:    info.Size(),
			ModUnix: info.ModTime().Unix(),
		})
		return nil
	})
	if err != nil {
		return nil, nil, err
	}

	// 强制稳定输出，避免不同平台/文件系统行为差异带来的不确定性。
	sort.Slice(files, func(i, j int) bool { return files[i].RelPath < files[j].RelPath })
	sort.Strings(leftoverShots)
	return files, leftoverShots, nil
}

func kindOf(ext string) (domain.MediaKind, bool) {
	switch ext {
	case ".mp4", ".mkv", ".avi", ".mov", ".wmv", ".webm":
		return domain.KindVideo, true
	case ".jpg", ".jpeg", ".png":
		return domain.KindImage, true
	default:
		return "", false
	}
}

func buildExcluded(root string, excludeDirs []string) []string {
	cacheDir := filepath.Join(root, "cache")

	excluded := make([]string, 0, 1+len(excludeDirs))
	excluded = append(excluded, filepath.Clean(cacheDir))

	for _, x := range excludeDirs {
		x = strings.TrimSpace(x)
		if x == "" {
			continue
		}
		if filepath.IsAbs(x) {
			excluded = append(excluded, filepath.Clean(x))
			continue
		}
		// x 是相对路径：相对 root。
		excluded = append(excluded, filepath.Clean(filepath.Join(root, x)))
	}

	// 排除列表排序后，isExcluded 的行为更可预测（且便于测试）。
	sort.Strings(excluded)
	return excluded
}

func isExcluded(path string, excluded []string) bool {
	path = filepath.Clean(path)
	for _, base := range excluded {
		if isUnder(path, base) {
			return true
		}
	}
	return false
}

func isUnder(path, base string) bool {
	if path == base {
		return true
	}
	sep := string(filepath.Separator)
	return strings.HasPrefix(path, base+sep)
}

package cache

import (
	"crypto/sha256"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/John-Robertt/VCSG/internal/domain"
	"github.com/John-Robertt/VCSG/internal/infra/fsx"
)

// Store 提供 <path>/cache/probe/ 下的探测结果缓存。
//
// 约束：
// - dry-run：只允许读（ReadOnly=true）
// - apply：允许写（ReadOnly=false）
// - 条目按 (rel, size, mtime) 校验：源文件变化即缓存失效
type Store struct {
	Root     string // <path>（扫描根目录）
	ReadOnly bool
}

var ErrReadOnly = errors.New("cache: read-only")

func New(root string, readOnly bool) Store {
	return Store{
		Root:     filepath.Clean(strings.TrimSpace(root)),
		ReadOnly: readOnly,
	}
}

type probeEntry struct {
	Rel      string  `json:"rel"`
	Size     int64   `json:"size"`
	ModUnix  int64   `json:"mod_unix"`
	Duration float64 `json:"duration_seconds"`
}

// ProbePath 返回某个媒体文件的缓存条目绝对路径。
// 文件名取 rel path 的短哈希：rel 可能含分隔符/任意字符，不适合直接当文件名。
func (s Store) ProbePath(m domain.MediaFile) string {
	sum := sha256.Sum256([]byte(m.RelPath))
	name := fmt.Sprintf("%x.json", sum[:8])
	return filepath.Join(s.Root, "cache", "probe", name)
}

// ReadDuration 读取缓存的探测时长；未命中（缺失/不匹配/损坏）返回 ok=false。
func (s Store) ReadDuration(m domain.MediaFile) (float64, bool, error) {
	b, err := os.ReadFile(s.ProbePath(m))
	if err != nil {
		if os.IsNotExist(err) {
			return 0, false, nil
		}
		return 0, false, err
	}

	var e probeEntry
	if err := json.Unmarshal(b, &e); err != nil {
		// 坏缓存：忽略，走真实探测（apply 会写回新缓存）。
		return 0, false, nil
	}
	if e.Rel != m.RelPath || e.Size != m.Size || e.ModUnix != m.ModUnix {
		return 0, false, nil
	}
	return e.Duration, true, nil
}

// WriteDuration 写入探测结果。dry-run（ReadOnly）禁止写入。
func (s Store) WriteDuration(m domain.MediaFile, duration float64) error {
	if s.ReadOnly {
		return ErrReadOnly
	}
	b, err := json.Marshal(probeEntry{
		Rel:      m.RelPath,
		Size:     m.Size,
		ModUnix:  m.ModUnix,
		Duration: duration,
	})
	if err != nil {
		return err
	}
	dir := filepath.Dir(s.ProbePath(m))
	name := filepath.Base(s.ProbePath(m))
	return fsx.WriteFileAtomicReplace(dir, name, b)
}

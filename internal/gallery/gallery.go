package gallery

import (
	"bytes"
	"fmt"
	"html/template"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/John-Robertt/VCSG/internal/infra/fsx"
)

// IndexName 是生成的图库索引文件名，固定放在 <path>/cache/ 下。
const IndexName = "index.html"

// Entry 是索引里的一条拼图记录。
// Rel 是相对媒体库根目录的路径（统一用 '/' 分隔）。
type Entry struct {
	Rel   string
	Title string
}

// indexTpl 刻意保持为单文件、零外链：双击就能在浏览器里看。
var indexTpl = template.Must(template.New("index").Parse(`<!DOCTYPE html>
<html lang="zh">
<head>
<meta charset="utf-8">
<title>拼图索引</title>
<style>
body{background:#111;color:#ddd;font-family:sans-serif;margin:16px}
main{display:grid;grid-template-columns:repeat(auto-fill,minmax(320px,1fr));gap:12px}
figure{margin:0;background:#1b1b1b;padding:8px;border-radius:6px}
img{width:100%;display:block}
figcaption{margin-top:6px;font-size:13px;word-break:break-all}
</style>
</head>
<body>
<main>
{{- range . }}
<figure><a href="../{{ .Rel }}"><img src="../{{ .Rel }}" loading="lazy" alt="{{ .Title }}"></a><figcaption>{{ .Title }}</figcaption></figure>
{{- end }}
</main>
</body>
</html>
`))

// Render 把条目列表渲染成完整的 HTML 索引。
func Render(entries []Entry) ([]byte, error) {
	var buf bytes.Buffer
	if err := indexTpl.Execute(&buf, entries); err != nil {
		return nil, fmt.Errorf("渲染索引失败：%w", err)
	}
	return buf.Bytes(), nil
}

// Extract 从既有索引 HTML 中解析出条目（用于增量合并）。
// 解析失败或结构不符时返回空列表：旧索引坏了就当不存在，重建即可。
func Extract(html []byte) []Entry {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(html))
	if err != nil {
		return nil
	}

	var out []Entry
	doc.Find("figure").Each(func(_ int, fig *goquery.Selection) {
		href, ok := fig.Find("a").First().Attr("href")
		if !ok {
			return
		}
		rel := strings.TrimPrefix(strings.TrimSpace(href), "../")
		if rel == "" {
			return
		}
		title := strings.TrimSpace(fig.Find("figcaption").First().Text())
		if title == "" {
			title = path.Base(rel)
		}
		out = append(out, Entry{Rel: rel, Title: title})
	})
	return out
}

// Merge 合并既有条目与新条目：按 Rel 去重（新条目覆盖旧标题），按 Rel 排序。
func Merge(existing, fresh []Entry) []Entry {
	byRel := make(map[string]Entry, len(existing)+len(fresh))
	for _, e := range existing {
		byRel[e.Rel] = e
	}
	for _, e := range fresh {
		byRel[e.Rel] = e
	}

	out := make([]Entry, 0, len(byRel))
	for _, e := range byRel {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Rel < out[j].Rel })
	return out
}

// WriteIndex 把新条目合并进 <root>/cache/index.html 并原子落盘。
// fresh 为空且旧索引也不存在时不产出文件。
func WriteIndex(root string, fresh []Entry) error {
	cacheDir := filepath.Join(root, "cache")
	idxPath := filepath.Join(cacheDir, IndexName)

	var existing []Entry
	if b, err := os.ReadFile(idxPath); err == nil {
		existing = Extract(b)
	}

	merged := Merge(existing, fresh)
	if len(merged) == 0 {
		return nil
	}

	b, err := Render(merged)
	if err != nil {
		return err
	}
	return fsx.WriteFileAtomicReplace(cacheDir, IndexName, b)
}

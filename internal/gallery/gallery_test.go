package gallery

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
)

func TestRenderThenExtract(t *testing.T) {
	in := []Entry{
		{Rel: "in/movieA-videocollage.jpg", Title: "movieA"},
		{Rel: "sub/movieB-videocollage.jpg", Title: "movieB"},
	}
	html, err := Render(in)
	if err != nil {
		t.Fatalf("渲染失败: %v", err)
	}

	got := Extract(html)
	if len(got) != 2 {
		t.Fatalf("应解析出 2 条: %v", got)
	}
	if got[0] != in[0] || got[1] != in[1] {
		t.Fatalf("往返不一致: %v", got)
	}
}

func TestExtract_BrokenHTMLTreatedAsEmpty(t *testing.T) {
	if got := Extract([]byte("not html at all")); len(got) != 0 {
		t.Fatalf("无结构内容应返回空: %v", got)
	}
}

func TestMerge_DedupAndSort(t *testing.T) {
	existing := []Entry{
		{Rel: "b.jpg", Title: "old-b"},
		{Rel: "a.jpg", Title: "a"},
	}
	fresh := []Entry{
		{Rel: "b.jpg", Title: "new-b"},
		{Rel: "c.jpg", Title: "c"},
	}
	got := Merge(existing, fresh)
	if len(got) != 3 {
		t.Fatalf("应合并为 3 条: %v", got)
	}
	if got[0].Rel != "a.jpg" || got[1].Rel != "b.jpg" || got[2].Rel != "c.jpg" {
		t.Fatalf("应按 Rel 排序: %v", got)
	}
	// 同名条目以新标题为准。
	if got[1].Title != "new-b" {
		t.Fatalf("新条目应覆盖旧标题: %v", got[1])
	}
}

func TestWriteIndex_MergesWithExistingFile(t *testing.T) {
	root := t.TempDir()

	if err := WriteIndex(root, []Entry{{Rel: "in/movieA-videocollage.jpg", Title: "movieA"}}); err != nil {
		t.Fatalf("首次写入失败: %v", err)
	}
	if err := WriteIndex(root, []Entry{{Rel: "in/movieB-videocollage.jpg", Title: "movieB"}}); err != nil {
		t.Fatalf("二次写入失败: %v", err)
	}

	b, err := os.ReadFile(filepath.Join(root, "cache", IndexName))
	if err != nil {
		t.Fatalf("读取索引失败: %v", err)
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(b))
	if err != nil {
		t.Fatalf("解析索引失败: %v", err)
	}
	var hrefs []string
	doc.Find("figure a").Each(func(_ int, a *goquery.Selection) {
		if h, ok := a.Attr("href"); ok {
			hrefs = append(hrefs, h)
		}
	})
	if len(hrefs) != 2 {
		t.Fatalf("两次写入后应有 2 条: %v", hrefs)
	}
	for _, h := range hrefs {
		if !strings.HasPrefix(h, "../in/") {
			t.Fatalf("链接应指向上级目录下的拼图: %q", h)
		}
	}
}

func TestWriteIndex_NothingToWrite(t *testing.T) {
	root := t.TempDir()
	if err := WriteIndex(root, nil); err != nil {
		t.Fatalf("空输入不应报错: %v", err)
	}
	if _, err := os.Stat(filepath.Join(root, "cache", IndexName)); !os.IsNotExist(err) {
		t.Fatalf("空输入不应产出文件")
	}
}

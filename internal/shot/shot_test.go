package shot

import (
	"testing"
)

func TestName_SequenceCounter(t *testing.T) {
	if got := Name("movieA", 1); got != "movieA-screenshot-001.jpg" {
		t.Fatalf("命名不正确：%q", got)
	}
	if got := Name("movieA", 42); got != "movieA-screenshot-042.jpg" {
		t.Fatalf("命名不正确：%q", got)
	}
}

func TestParse_RoundTrip(t *testing.T) {
	r, ok := Parse("/lib/in/movieA-screenshot-007.jpg")
	if !ok {
		t.Fatalf("期望解析成功")
	}
	if r.Source != "movieA" || r.Seq != 7 {
		t.Fatalf("解析结果不正确：%+v", r)
	}

	// base name 本身含连字符/点号也必须正确切分。
	r, ok = Parse("a.b-c-screenshot-010.jpg")
	if !ok || r.Source != "a.b-c" || r.Seq != 10 {
		t.Fatalf("解析结果不正确：%+v ok=%v", r, ok)
	}
}

func TestParse_RejectsLegacyAndNoise(t *testing.T) {
	bad := []string{
		"movieA-screenshot-12min.jpg", // 旧一代分钟偏移命名：刻意不识别
		"movieA-screenshot-1.jpg",     // 序号必须 3 位
		"movieA-screenshot-0001.jpg",
		"movieA-screenshot-000.jpg", // 序号从 1 开始
		"movieA-videocollage.jpg",
		"movieA.jpg",
		"movieA-screenshot-001.png",
	}
	for _, name := range bad {
		if _, ok := Parse(name); ok {
			t.Fatalf("期望 %q 解析失败", name)
		}
	}
}

func TestGroup_OrdersBySeqPerSource(t *testing.T) {
	groups, keys := Regroup([]string{
		"movieB-screenshot-001.jpg",
		"movieA-screenshot-002.jpg",
		"movieA-screenshot-001.jpg",
		"noise.txt",
	})

	if len(keys) != 2 || keys[0] != "movieA" || keys[1] != "movieB" {
		t.Fatalf("keys 不正确：%v", keys)
	}
	a := groups["movieA"]
	if len(a) != 2 || a[0].Seq != 1 || a[1].Seq != 2 {
		t.Fatalf("movieA 组排序不正确：%+v", a)
	}
	if len(groups["movieB"]) != 1 || groups["movieB"][0].Seq != 1 {
		t.Fatalf("movieB 组不正确：%+v", groups["movieB"])
	}
}

func TestIsOutput(t *testing.T) {
	yes := []string{
		"movieA-screenshot-001.jpg",
		"movieA-videocollage.jpg",
		"20260210-101500-001-imagecollage.jpg",
	}
	for _, name := range yes {
		if !IsOutput(name) {
			t.Fatalf("期望 %q 被识别为产物", name)
		}
	}
	no := []string{"movieA.mp4", "photo.jpg", "movieA-screenshot-1min.jpg"}
	for _, name := range no {
		if IsOutput(name) {
			t.Fatalf("不应把 %q 识别为产物", name)
		}
	}
}

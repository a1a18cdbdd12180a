package domain

import (
	"bytes"
	"encoding/json"
	"testing"
	"time"
)

func TestRunReport_Finalize_SortAndSummaryAndUTC(t *testing.T) {
	r := RunReport{
		Path:       "/abs/path",
		Mode:       "video",
		DryRun:     true,
		StartedAt:  time.Date(2026, 2, 9, 10, 0, 0, 0, time.FixedZone("X", 8*3600)),
		FinishedAt: time.Date(2026, 2, 9, 10, 0, 1, 0, time.FixedZone("X", 8*3600)),
		Items: []ItemResult{
			{Source: "b/two.mp4", Status: StatusSkipped, SkipReason: SkipReasonTooShort},
			{Source: "", Status: StatusFailed}, // config 等合成项
			{Source: "a/one.mp4", Status: StatusProcessed, Collage: "a/one-videocollage.jpg"},
		},
	}

	r.Finalize()

	// source=="" 必须排在最后。
	if r.Items[0].Source != "a/one.mp4" || r.Items[1].Source != "b/two.mp4" || r.Items[2].Source != "" {
		t.Fatalf("items 排序不符合契约：%v", []string{r.Items[0].Source, r.Items[1].Source, r.Items[2].Source})
	}
	if r.Summary.Processed != 1 || r.Summary.Skipped != 1 || r.Summary.Failed != 1 || r.Summary.Collages != 1 {
		t.Fatalf("summary 统计不正确：%+v", r.Summary)
	}

	b, err := json.Marshal(r)
	if err != nil {
		t.Fatalf("json.Marshal 失败：%v", err)
	}
	// time.Time 在 UTC 下应输出 'Z' 后缀。
	if !bytes.Contains(b, []byte("\"started_at\":\"2026-02-09T02:00:00Z\"")) {
		t.Fatalf("started_at 不是 UTC RFC3339：%s", string(b))
	}
}

func TestParseGrid(t *testing.T) {
	g, err := ParseGrid("3x2")
	if err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	if g.Columns != 3 || g.Rows != 2 || g.Capacity() != 6 {
		t.Fatalf("网格解析不正确：%+v", g)
	}
	if g.String() != "3x2" {
		t.Fatalf("期望 String()=3x2，实际=%q", g.String())
	}

	// 大写 X 与首尾空白允许；其余形态一律拒绝。
	if _, err := ParseGrid(" 4X3 "); err != nil {
		t.Fatalf("4X3 应可解析：%v", err)
	}
	for _, bad := range []string{"", "3", "3x", "x2", "3x2x1", "0x2", "3x0", "-3x2", "3*2"} {
		if _, err := ParseGrid(bad); err == nil {
			t.Fatalf("期望 %q 解析失败", bad)
		}
	}
}

func TestTimecode_Clock_Truncates(t *testing.T) {
	cases := []struct {
		in   Timecode
		want string
	}{
		{0, "00:00:00"},
		{59.999, "00:00:59"}, // 截断，不四舍五入
		{244.29, "00:04:04"},
		{3600, "01:00:00"},
		{4200.7, "01:10:00"},
		{-1, "00:00:00"},
	}
	for _, c := range cases {
		if got := c.in.Clock(); got != c.want {
			t.Fatalf("Clock(%v)：期望 %q，实际 %q", float64(c.in), c.want, got)
		}
	}
}

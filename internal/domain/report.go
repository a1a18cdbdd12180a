package domain

import (
	"encoding/json"
	"sort"
	"time"
)

const (
	StatusProcessed = "processed"
	StatusSkipped   = "skipped"
	StatusFailed    = "failed"
)

const (
	FrameStatusPlanned  = "planned"
	FrameStatusCaptured = "captured"
	FrameStatusAdopted  = "adopted"
	FrameStatusFailed   = "failed"
	FrameStatusDeleted  = "deleted"
	FrameStatusKept     = "kept"
)

const (
	ErrCodeProbeFailed       = "probe_failed"
	ErrCodeCaptureFailed     = "capture_failed"
	ErrCodeComposeFailed     = "compose_failed"
	ErrCodeIOFailed          = "io_failed"
	ErrCodeConfigNotFound    = "config_not_found"
	ErrCodeConfigInvalid     = "config_invalid"
	ErrCodeConfigMissingPath = "config_missing_path"
)

// skip 不是错误，但 report 需要给出可机读的原因。
const (
	SkipReasonTooShort     = "too_short"
	SkipReasonTooFewShots  = "too_few_shots"
	SkipReasonAlreadyDone  = "already_done"
	SkipReasonNoUsableSpan = "no_usable_span"
)

// RunReport 是对外稳定输出（report.json / stdout JSON）的结构。
type RunReport struct {
	Path   string `json:"path"`
	Mode   string `json:"mode"`
	DryRun bool   `json:"dry_run"`

	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`

	Summary ReportSummary `json:"summary"`
	Items   []ItemResult  `json:"items"`
}

type ReportSummary struct {
	Processed int `json:"processed"`
	Skipped   int `json:"skipped"`
	Failed    int `json:"failed"`
	Collages  int `json:"collages"`
}

// ItemResult 是单个工作单元的结果：一个视频，或一批图片。
type ItemResult struct {
	Source string `json:"source"` // 视频的 rel path；图片批次为 "batch/<seq>"
	Kind   string `json:"kind"`   // "video" | "image_batch"

	Status     string `json:"status"`
	SkipReason string `json:"skip_reason,omitempty"`
	ErrorCode  string `json:"error_code"`
	ErrorMsg   string `json:"error_msg"`

	Duration float64 `json:"duration_seconds,omitempty"` // probe 结果（视频）
	Grid     string  `json:"grid,omitempty"`             // 最终网格，"3x2"
	Collage  string  `json:"collage,omitempty"`          // 产物 rel path

	Planned  int `json:"planned"`  // 计划截图数 / 批次成员数
	Captured int `json:"captured"` // 实际得到的成员数

	Frames []FrameResult `json:"frames"`
}

// FrameResult 对应一张计划中的截图（或图片批次的一个成员）。
type FrameResult struct {
	At     string `json:"at,omitempty"` // HH:MM:SS（图片成员为空）
	Path   string `json:"path"`
	Status string `json:"status"`
}

// Finalize 做三件事：
// 1) 时间统一为 UTC（确保 JSON 为 RFC3339 且后缀 Z）
// 2) items 稳定排序：按 source 字典序；source=="" 的合成条目排在最后
// 3) summary 由 items 计算得出
func (r *RunReport) Finalize() {
	r.StartedAt = r.StartedAt.UTC()
	r.FinishedAt = r.FinishedAt.UTC()

	sort.SliceStable(r.Items, func(i, j int) bool {
		a := r.Items[i].Source
		b := r.Items[j].Source
		if a == "" && b == "" {
			return false
		}
		if a == "" {
			return false
		}
		if b == "" {
			return true
		}
		return a < b
	})

	var s ReportSummary
	for _, it := range r.Items {
		switch it.Status {
		case StatusProcessed:
			s.Processed++
			if it.Collage != "" {
				s.Collages++
			}
		case StatusSkipped:
			s.Skipped++
		case StatusFailed:
			s.Failed++
		}
	}
	r.Summary = s
}

// MarshalJSON 仅用于集中约束输出的稳定性（避免未来不小心引入非确定字段）。
// 当前只是透传 encoding/json 的默认行为。
func (r RunReport) MarshalJSON() ([]byte, error) {
	type Alias RunReport
	return json.Marshal(Alias(r))
}

package run

import (
	"context"
	"reflect"
	"sync"
	"testing"
	"time"

	"github.com/John-Robertt/VCSG/internal/config"
	"github.com/John-Robertt/VCSG/internal/domain"
	"github.com/John-Robertt/VCSG/internal/media"
)

type recordObserver struct {
	mu sync.Mutex

	startCalls int
	phases     []string
	items      []string
}

func (o *recordObserver) OnStart(eff config.EffectiveConfig) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.startCalls++
}

func (o *recordObserver) OnPhaseDone(name string, fields map[string]any, dur time.Duration) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.phases = append(o.phases, name)
}

func (o *recordObserver) OnItemDone(idx, total int, res domain.ItemResult, dur time.Duration) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.items = append(o.items, res.Source)
}

func (o *recordObserver) OnProgress(done, total, ok, fail, skip, active int, activeSources []string, elapsed time.Duration) {
	// keepalive 由 CLI 触发；这里无需断言。
}

func TestExecuteWithObserver_EmitsPhaseAndItemEvents(t *testing.T) {
	root := t.TempDir()
	writeVideo(t, root, "in/movieA.mp4")

	eff := baseConfig(root)
	eff.Apply = false

	obs := &recordObserver{}
	_ = ExecuteWithObserver(context.Background(), eff,
		media.Tools{Prober: &stubProber{duration: 1500}, Capturer: &stubCapturer{}, Composer: &stubComposer{}}, obs)

	if obs.startCalls != 1 {
		t.Fatalf("期望 OnStart 调用 1 次，实际 %d", obs.startCalls)
	}
	wantPhases := []string{"scan", "exec"}
	if !reflect.DeepEqual(obs.phases, wantPhases) {
		t.Fatalf("阶段事件不符合预期：got=%v want=%v", obs.phases, wantPhases)
	}
	if len(obs.items) != 1 || obs.items[0] != "in/movieA.mp4" {
		t.Fatalf("条目事件不符合预期：items=%v", obs.items)
	}
}

func TestExecuteWithObserver_NilObserver_SameResultAsExecute(t *testing.T) {
	root := t.TempDir()
	writeVideo(t, root, "in/movieA.mp4")

	eff := baseConfig(root)
	eff.Apply = false

	tools := media.Tools{Prober: &stubProber{duration: 1500}, Capturer: &stubCapturer{}, Composer: &stubComposer{}}

	a := Execute(context.Background(), eff, tools)
	b := ExecuteWithObserver(context.Background(), eff, tools, nil)

	// 时间字段本身允许有微小差异；对比时归零。
	a.StartedAt, a.FinishedAt = time.Time{}, time.Time{}
	b.StartedAt, b.FinishedAt = time.Time{}, time.Time{}

	if !reflect.DeepEqual(a, b) {
		t.Fatalf("nil observer 不应改变结果：\nExecute=%+v\nWithObs=%+v", a, b)
	}
}

func TestSyntheticConfigFailure(t *testing.T) {
	rr := SyntheticConfigFailure(&config.Error{Code: config.ErrCodeNotFound, Path: "/x/vcsg.json"})
	if rr.Summary.Failed != 1 || len(rr.Items) != 1 {
		t.Fatalf("应恰好一条失败 item：%+v", rr)
	}
	if rr.Items[0].ErrorCode != domain.ErrCodeConfigNotFound {
		t.Fatalf("error_code 不符合预期：%+v", rr.Items[0])
	}
}

package retry

import (
	"context"
	"fmt"
	"time"
)

const (
	// DefaultAttempts 对应“单个时间点最多尝试 3 次”的约定。
	DefaultAttempts = 3
	// DefaultBackoff 是两次尝试之间的固定等待。外部工具失败通常是
	// IO/CPU 挤占导致的瞬时问题，等一小段比立刻重试更有效。
	DefaultBackoff = 500 * time.Millisecond
)

// Policy 描述有界重试：最多 Attempts 次，失败间隔 Backoff。
type Policy struct {
	Attempts int
	Backoff  time.Duration
}

func (p Policy) normalized() Policy {
	if p.Attempts < 1 {
		p.Attempts = DefaultAttempts
	}
	if p.Backoff < 0 {
		p.Backoff = 0
	}
	return p
}

// Do 执行 op，失败则按 Policy 重试；耗尽后返回最后一次错误（带尝试次数）。
//
// 约束：
// - op 返回 nil 即成功，立即返回
// - 等待期间 ctx 取消则提前返回 ctx.Err()（不再发起新尝试）
// - 不做指数退避：外部工具调用是串行的，固定间隔足够且更可预测
func Do(ctx context.Context, p Policy, op func() error) error {
	p = p.normalized()

	var lastErr error
	for attempt := 1; attempt <= p.Attempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		lastErr = op()
		if lastErr == nil {
			return nil
		}
		if attempt == p.Attempts {
			break
		}

		if p.Backoff > 0 {
			t := time.NewTimer(p.Backoff)
			select {
			case <-ctx.Done():
				t.Stop()
				return ctx.Err()
			case <-t.C:
			}
		}
	}
	return fmt.Errorf("尝试 %d 次后仍失败：%w", p.Attempts, lastErr)
}

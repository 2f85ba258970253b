package main

import (
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/fatih/color"

	"github.com/coko7/vegapull/internal/config"
	"github.com/coko7/vegapull/internal/domain"
	"github.com/coko7/vegapull/internal/pull"
)

var _ pull.Observer = (*progressUI)(nil)

// progressUI 是交互终端下的进度输出。
//
// 设计目标：
//   - 所有过程信息写 stderr，不污染 stdout 的 JSON 输出契约
//   - 事件驱动：pull 层只发事件，CLI 决定如何展示
//   - keepalive：长时间无 job 完成时也定期输出一行，降低等待焦虑
type progressUI struct {
	w io.Writer

	mu          sync.Mutex
	startedAt   time.Time
	lastPrinted time.Time

	total int
	done  int
	ok    int
	fail  int
	skip  int

	keepaliveThreshold time.Duration
	tickerInterval     time.Duration

	stopCh        chan struct{}
	tickerStarted bool
}

func newProgressUI(w io.Writer) *progressUI {
	return &progressUI{
		w:                  w,
		keepaliveThreshold: 6 * time.Second,
		tickerInterval:     2 * time.Second,
	}
}

func (p *progressUI) OnStart(set config.Settings, scope pull.Scope, withImages bool) {
	now := time.Now()

	p.mu.Lock()
	if p.startedAt.IsZero() {
		p.startedAt = now
	}

	fmt.Fprintf(p.w, "[%s] vegapull (%s)\n", now.Format("15:04:05"), scope)
	fmt.Fprintln(p.w, "配置（生效）:")
	fmt.Fprintf(p.w, "  locale: %s\n", set.Locale)
	fmt.Fprintf(p.w, "  output: %s\n", set.OutputDir)
	fmt.Fprintf(p.w, "  images: %s\n", onOff(withImages))
	fmt.Fprintf(p.w, "  concurrency: %d\n", set.Concurrency)
	if strings.TrimSpace(set.BaseURL) != "" {
		fmt.Fprintf(p.w, "  base_url: %s\n", truncate(set.BaseURL, 120))
	}
	fmt.Fprintln(p.w)

	p.lastPrinted = time.Now()
	p.mu.Unlock()
}

func (p *progressUI) OnPhaseDone(name string, fields map[string]any, dur time.Duration) {
	p.mu.Lock()
	defer p.mu.Unlock()

	switch name {
	case "resolve":
		fmt.Fprintf(p.w, "目录: packs=%d (%s)\n", intField(fields, "packs"), formatShortDuration(dur))
	case "cards":
		fmt.Fprintf(p.w, "卡牌: packs=%d cards=%d failed=%d workers=%d (%s)\n",
			intField(fields, "packs"),
			intField(fields, "cards"),
			intField(fields, "cards_failed"),
			intField(fields, "workers"),
			formatShortDuration(dur),
		)
	case "images":
		fmt.Fprintf(p.w, "卡图: downloaded=%d skipped=%d (%s)\n",
			intField(fields, "downloaded"), intField(fields, "skipped"), formatShortDuration(dur),
		)
	default:
		// 兜底：未知阶段也不要静默（便于调试/演进）。
		fmt.Fprintf(p.w, "%s (%s)\n", name, formatShortDuration(dur))
	}

	// 阶段切换意味着 job 计数重新开始。
	p.total, p.done, p.ok, p.fail, p.skip = 0, 0, 0, 0, 0
	p.lastPrinted = time.Now()
	p.stopTickerLocked()
}

func (p *progressUI) OnJobDone(done, total int, res domain.JobResult) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.done = done
	p.total = total
	if total > 0 && !p.tickerStarted {
		p.startTickerLocked()
	}

	var status string
	switch res.Status {
	case domain.StatusSucceeded:
		p.ok++
		status = color.GreenString("OK")
	case domain.StatusSkipped:
		p.skip++
		status = color.CyanString("SKIP")
	default:
		p.fail++
		status = color.RedString("FAIL")
	}

	switch {
	case res.Status == domain.StatusFailed:
		fmt.Fprintf(p.w, "[%d/%d] %s %s %s: %s\n",
			done, total, res.Key, status, res.ErrorCode, truncate(res.ErrorMsg, 160),
		)
	case res.Kind == domain.JobKindCards:
		note := ""
		if res.CardsFailed > 0 {
			note = color.YellowString(" failed=%d", res.CardsFailed)
		}
		fmt.Fprintf(p.w, "[%d/%d] %s %s cards=%d%s\n", done, total, res.Key, status, res.CardsOK, note)
	default:
		fmt.Fprintf(p.w, "[%d/%d] %s %s\n", done, total, res.Key, status)
	}

	p.lastPrinted = time.Now()

	// 最后一条完成：停止 ticker，避免在结束打印后又冒出 keepalive。
	if p.done >= p.total {
		p.stopTickerLocked()
	}
}

func (p *progressUI) startTickerLocked() {
	p.stopCh = make(chan struct{})
	p.tickerStarted = true

	interval := p.tickerInterval
	if interval <= 0 {
		interval = 2 * time.Second
	}
	threshold := p.keepaliveThreshold
	if threshold <= 0 {
		threshold = 6 * time.Second
	}

	go func() {
		t := time.NewTicker(interval)
		defer t.Stop()

		for {
			select {
			case <-t.C:
				p.mu.Lock()
				if p.total > 0 && p.done >= p.total {
					p.mu.Unlock()
					return
				}
				if p.total > 0 && time.Since(p.lastPrinted) > threshold {
					elapsed := time.Since(p.startedAt)
					fmt.Fprintf(p.w, "进度: done=%d/%d ok=%d fail=%d skip=%d elapsed=%s\n",
						p.done, p.total, p.ok, p.fail, p.skip, formatElapsed(elapsed),
					)
					p.lastPrinted = time.Now()
				}
				p.mu.Unlock()
			case <-p.stopCh:
				return
			}
		}
	}()
}

func (p *progressUI) stopTickerLocked() {
	if p.tickerStarted {
		close(p.stopCh)
		p.tickerStarted = false
	}
}

func onOff(v bool) string {
	if v {
		return "on"
	}
	return "off"
}

func truncate(s string, max int) string {
	s = strings.TrimSpace(s)
	if max <= 0 || len(s) <= max {
		return s
	}
	if max <= 3 {
		return s[:max]
	}
	return s[:max-3] + "..."
}

func formatShortDuration(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	return fmt.Sprintf("%.1fs", d.Seconds())
}

func formatElapsed(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	sec := int(d.Seconds())
	h := sec / 3600
	m := (sec % 3600) / 60
	s := sec % 60
	return fmt.Sprintf("%02d:%02d:%02d", h, m, s)
}

func intField(fields map[string]any, key string) int {
	if fields == nil {
		return 0
	}
	v, ok := fields[key]
	if !ok {
		return 0
	}
	switch x := v.(type) {
	case int:
		return x
	case int32:
		return int(x)
	case int64:
		return int(x)
	default:
		return 0
	}
}

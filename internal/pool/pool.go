// Package pool 实现有界 worker pool：按 job 重试（指数退避）、协作式取消、
// 结果聚合。网络抓取的并发、退避、取消都集中在这一层，抓取层保持无状态。
package pool

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"
)

// ErrDuplicateKey 表示入队时出现重复的目标键。
// 两个 job 绝不允许并发指向同一个落盘目标；重复键在入队时即被拒绝。
var ErrDuplicateKey = errors.New("重复的 job key")

// ErrNotDispatched 表示取消信号到达时该 job 尚未派发。
// 已在执行中的 job 不受取消影响（网络调用不被强制打断），其结果照常收集。
var ErrNotDispatched = errors.New("取消：job 未派发")

// Job 是一个调度单元（采集一个卡包，或下载一张卡图）。
// Key 同时用作落盘目标的唯一标识与结果排序键。
type Job struct {
	Key string
	Run func(ctx context.Context) error
}

// Result 是一个 job 的最终结果。
type Result struct {
	Key      string
	Err      error // nil 即成功
	Attempts int   // 实际尝试次数；未派发时为 0
}

// Pool 是一份不可变的调度配置；同一个 Pool 可用于多轮 Execute。
type Pool struct {
	// Workers 是并发宽度（< 1 时按 1 处理）。
	Workers int
	// MaxAttempts 是单个 job 的最大尝试次数，含首次（< 1 时按 1 处理）。
	MaxAttempts int
	// BaseDelay/MaxDelay 控制指数退避：第 n 次重试前等待 BaseDelay * 2^(n-1)，封顶 MaxDelay。
	BaseDelay time.Duration
	MaxDelay  time.Duration
	// Retryable 判断某个失败是否值得重试；为 nil 时一律不重试。
	Retryable func(error) bool
	// OnResult 在每个 job 出结果时回调（包括未派发的取消结果）。
	// 由聚合 goroutine 串行调用，实现方无需加锁。
	OnResult func(Result)
}

// Execute 执行全部 jobs 并返回每个 job 的结果（按 Key 字典序，确定性输出）。
//
// 取消语义：ctx 取消后不再派发新 job；已派发的 job 继续执行到自然结束
// （重试链路被切断，所以取消延迟有上界），全部结果照常收集返回。
func (p Pool) Execute(ctx context.Context, jobs []Job) []Result {
	workers := p.Workers
	if workers < 1 {
		workers = 1
	}

	results := make([]Result, 0, len(jobs))

	// 入队去重：同一个 key 只接受第一个 job。
	seen := make(map[string]struct{}, len(jobs))
	accepted := make([]Job, 0, len(jobs))
	for _, j := range jobs {
		if _, dup := seen[j.Key]; dup {
			results = append(results, Result{Key: j.Key, Err: ErrDuplicateKey})
			continue
		}
		seen[j.Key] = struct{}{}
		accepted = append(accepted, j)
	}

	jobCh := make(chan Job)
	resCh := make(chan Result, len(accepted))

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := range jobCh {
				resCh <- p.runOne(ctx, j)
			}
		}()
	}

	// 派发 goroutine：每次发送前都先看取消信号；取消后剩余 job 直接出“未派发”结果。
	go func() {
		defer close(jobCh)
		for i, j := range accepted {
			select {
			case <-ctx.Done():
				for _, rest := range accepted[i:] {
					resCh <- Result{Key: rest.Key, Err: ErrNotDispatched}
				}
				return
			case jobCh <- j:
			}
		}
	}()

	go func() {
		wg.Wait()
		close(resCh)
	}()

	for r := range resCh {
		if p.OnResult != nil {
			p.OnResult(r)
		}
		results = append(results, r)
	}

	sort.SliceStable(results, func(i, j int) bool { return results[i].Key < results[j].Key })
	return results
}

// runOne 带重试地执行一个 job。
//
// job 本体在不可取消的 ctx 下运行：取消只阻止“新的开始”（派发与重试），
// 不打断正在进行的网络调用。
func (p Pool) runOne(ctx context.Context, j Job) Result {
	maxAttempts := p.MaxAttempts
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	runCtx := context.WithoutCancel(ctx)

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		lastErr = j.Run(runCtx)
		if lastErr == nil {
			return Result{Key: j.Key, Attempts: attempt}
		}
		if p.Retryable == nil || !p.Retryable(lastErr) {
			return Result{Key: j.Key, Err: lastErr, Attempts: attempt}
		}
		if attempt == maxAttempts {
			break
		}
		if !p.sleepBackoff(ctx, attempt) {
			// 取消：不再重试，带着最后一次的错误返回。
			return Result{Key: j.Key, Err: lastErr, Attempts: attempt}
		}
	}
	return Result{Key: j.Key, Err: lastErr, Attempts: maxAttempts}
}

// sleepBackoff 等待第 attempt 次重试前的退避时间；ctx 取消时提前返回 false。
func (p Pool) sleepBackoff(ctx context.Context, attempt int) bool {
	delay := p.BaseDelay
	if delay <= 0 {
		return ctx.Err() == nil
	}
	for i := 1; i < attempt; i++ {
		delay *= 2
		if p.MaxDelay > 0 && delay >= p.MaxDelay {
			delay = p.MaxDelay
			break
		}
	}
	if p.MaxDelay > 0 && delay > p.MaxDelay {
		delay = p.MaxDelay
	}

	t := time.NewTimer(delay)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

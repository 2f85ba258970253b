// Package pull 是抓取流水线的编排层：目录解析 → 卡牌采集 → 卡图下载 → 落盘。
//
// 错误策略：单项失败降级为 job 级的 failed 并继续；只有配置错误与
// “数据根目录不可用”这类灾难性存储错误才中止整个 run。
package pull

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/coko7/vegapull/internal/config"
	"github.com/coko7/vegapull/internal/domain"
	"github.com/coko7/vegapull/internal/infra/httpx"
	"github.com/coko7/vegapull/internal/pool"
	"github.com/coko7/vegapull/internal/scrape"
	"github.com/coko7/vegapull/internal/store"
)

// Scope 限定一次 pull 的范围。
type Scope struct {
	// PacksOnly 只拉取目录（packs.json），不采集卡牌。
	PacksOnly bool
	// PackID 非空时只采集这一个卡包（不解析目录、不写 packs.json）。
	PackID domain.PackID
}

func (s Scope) String() string {
	switch {
	case s.PacksOnly:
		return "packs"
	case s.PackID != "":
		return "pack:" + string(s.PackID)
	default:
		return "all"
	}
}

// Execute 执行一次 pull 并返回 RunReport。
//
// 返回的 error 只在“整个 run 无法继续”时非 nil（配置无效、数据根不可写）；
// 其余一切失败都体现在 report 里，run 正常结束。
func Execute(ctx context.Context, set config.Settings, scope Scope, withImages bool, log *zap.Logger, obs Observer) (domain.RunReport, error) {
	set, err := set.Finalize()
	if err != nil {
		return domain.RunReport{}, err
	}
	loc, err := set.Localizer()
	if err != nil {
		return domain.RunReport{}, err
	}
	if log == nil {
		log = zap.NewNop()
	}

	started := time.Now()
	if obs != nil {
		obs.OnStart(set, scope, withImages)
	}

	rr := domain.RunReport{
		Locale:     set.Locale,
		Scope:      scope.String(),
		WithImages: withImages,
		StartedAt:  started.UTC(),
		Jobs:       make([]domain.JobResult, 0, 64),
	}

	client := scrape.NewClient(httpx.New(set.UserAgent), loc, log)
	st := store.New(set.OutputDir, set.Locale, log)
	if err := st.Prepare(); err != nil {
		// 数据根不可写：继续跑只会把每个 job 都变成 io_failed，不如立即止损。
		return rr, err
	}

	p := pool.Pool{
		Workers:     set.Concurrency,
		MaxAttempts: set.MaxAttempts,
		BaseDelay:   set.RetryBaseDelay,
		MaxDelay:    set.RetryMaxDelay,
		Retryable:   scrape.IsTransient,
	}

	run := &runState{
		set:       set,
		scope:     scope,
		client:    client,
		store:     st,
		pool:      p,
		log:       log,
		obs:       obs,
		harvested: map[domain.PackID]scrape.CardListResult{},
	}

	packs := run.resolvePhase(ctx, &rr)

	if !scope.PacksOnly {
		run.cardsPhase(ctx, &rr, packs)
		if withImages {
			run.imagesPhase(ctx, &rr, packs)
		}
	}

	run.writeMeta(&rr, packs, started, withImages)

	rr.FinishedAt = time.Now().UTC()
	rr.Finalize()
	return rr, nil
}

type runState struct {
	set    config.Settings
	scope  Scope
	client *scrape.Client
	store  store.Store
	pool   pool.Pool
	log    *zap.Logger
	obs    Observer

	mu        sync.Mutex
	harvested map[domain.PackID]scrape.CardListResult
}

// resolvePhase 产出本次 run 的卡包清单。
//
// 目录解析本身也作为一个 pool job 运行（key="catalog"），以复用重试/退避；
// 单包模式跳过目录，直接构造一个只含 id 的占位 Pack。
func (r *runState) resolvePhase(ctx context.Context, rr *domain.RunReport) []domain.Pack {
	if r.scope.PackID != "" {
		return []domain.Pack{{ID: r.scope.PackID, Locale: r.set.Locale}}
	}

	phaseStart := time.Now()

	var (
		packs    []domain.Pack
		warnings []string
	)
	results := r.pool.Execute(ctx, []pool.Job{{
		Key: "catalog",
		Run: func(jobCtx context.Context) error {
			ps, ws, err := r.client.ResolvePacks(jobCtx)
			if err != nil {
				return err
			}
			packs, warnings = ps, ws
			return nil
		},
	}})

	rr.Warnings = append(rr.Warnings, warnings...)

	res := results[0]
	if res.Err != nil {
		status, code := classify(res.Err)
		rr.Jobs = append(rr.Jobs, domain.JobResult{
			Kind:      domain.JobKindPack,
			Key:       "catalog",
			Status:    status,
			ErrorCode: code,
			ErrorMsg:  res.Err.Error(),
			Attempts:  res.Attempts,
		})
		r.phaseDone("resolve", map[string]any{"packs": 0}, phaseStart)
		return nil
	}

	for _, p := range packs {
		rr.Jobs = append(rr.Jobs, domain.JobResult{
			Kind:   domain.JobKindPack,
			Key:    string(p.ID),
			Status: domain.StatusSucceeded,
		})
	}

	if err := r.store.WritePacks(packs); err != nil {
		rr.Warnings = append(rr.Warnings, fmt.Sprintf("packs.json 写入失败：%v", err))
	}

	r.phaseDone("resolve", map[string]any{"packs": len(packs)}, phaseStart)
	return packs
}

// cardsPhase 并发采集各卡包的卡牌并逐包落盘。
// 每个卡包是一个 job：不同卡包写不同文件，in-job 落盘无需加锁。
func (r *runState) cardsPhase(ctx context.Context, rr *domain.RunReport, packs []domain.Pack) {
	if len(packs) == 0 {
		return
	}
	phaseStart := time.Now()

	jobs := make([]pool.Job, 0, len(packs))
	for _, p := range packs {
		pid := p.ID
		jobs = append(jobs, pool.Job{
			Key: string(pid),
			Run: func(jobCtx context.Context) error {
				res, err := r.client.HarvestCards(jobCtx, pid)
				if err != nil {
					return err
				}
				sort.SliceStable(res.Cards, func(i, j int) bool { return res.Cards[i].ID < res.Cards[j].ID })

				r.mu.Lock()
				r.harvested[pid] = res
				r.mu.Unlock()

				return r.store.WriteCards(pid, res.Cards)
			},
		})
	}

	done := 0
	r.pool.OnResult = func(res pool.Result) {
		done++
		jr := r.cardsJobResult(res)
		rr.Jobs = append(rr.Jobs, jr)
		if r.obs != nil {
			r.obs.OnJobDone(done, len(jobs), jr)
		}
	}
	r.pool.Execute(ctx, jobs)
	r.pool.OnResult = nil

	var ok, failed int
	r.mu.Lock()
	for _, res := range r.harvested {
		ok += len(res.Cards)
		failed += len(res.Failed)
	}
	r.mu.Unlock()

	r.phaseDone("cards", map[string]any{
		"packs":        len(jobs),
		"cards":        ok,
		"cards_failed": failed,
		"workers":      r.pool.Workers,
	}, phaseStart)
}

func (r *runState) cardsJobResult(res pool.Result) domain.JobResult {
	jr := domain.JobResult{
		Kind:     domain.JobKindCards,
		Key:      res.Key,
		Status:   domain.StatusSucceeded,
		Attempts: res.Attempts,
	}
	if res.Err != nil {
		jr.Status, jr.ErrorCode = classify(res.Err)
		jr.ErrorMsg = res.Err.Error()
	}

	r.mu.Lock()
	if h, ok := r.harvested[domain.PackID(res.Key)]; ok {
		jr.CardsOK = len(h.Cards)
		jr.CardsFailed = len(h.Failed)
		jr.Warnings = append(jr.Warnings, h.Warnings...)
		for _, pe := range h.Failed {
			jr.Warnings = append(jr.Warnings, pe.Error())
		}
	}
	r.mu.Unlock()
	return jr
}

// imagesPhase 下载缺失的卡图。
// 幂等规则：目标文件已存在且非空 => 不入队，直接报 skipped（重复 run 因此廉价且可中断续跑）。
func (r *runState) imagesPhase(ctx context.Context, rr *domain.RunReport, packs []domain.Pack) {
	if ctx.Err() != nil {
		return
	}
	phaseStart := time.Now()

	type target struct {
		card domain.Card
		ext  string
	}

	var (
		jobs    []pool.Job
		skipped int
	)
	for _, p := range packs {
		r.mu.Lock()
		cards := r.harvested[p.ID].Cards
		r.mu.Unlock()

		for _, c := range cards {
			key := string(p.ID) + "/" + c.ID
			if c.ImgURL == "" {
				rr.Jobs = append(rr.Jobs, domain.JobResult{
					Kind:      domain.JobKindImage,
					Key:       key,
					Status:    domain.StatusFailed,
					ErrorCode: domain.ErrCodeParseFailed,
					ErrorMsg:  "卡牌没有图片地址",
				})
				continue
			}

			t := target{card: c, ext: scrape.ImageExt(c.ImgURL)}
			if r.store.HasImage(p.ID, c.ID, t.ext) {
				skipped++
				rr.Jobs = append(rr.Jobs, domain.JobResult{
					Kind:   domain.JobKindImage,
					Key:    key,
					Status: domain.StatusSkipped,
				})
				continue
			}

			pid := p.ID
			jobs = append(jobs, pool.Job{
				Key: key,
				Run: func(jobCtx context.Context) error {
					data, err := r.client.FetchImage(jobCtx, t.card)
					if err != nil {
						return err
					}
					return r.store.WriteImage(pid, t.card.ID, t.ext, data)
				},
			})
		}
	}

	done := 0
	r.pool.OnResult = func(res pool.Result) {
		done++
		jr := domain.JobResult{
			Kind:     domain.JobKindImage,
			Key:      res.Key,
			Status:   domain.StatusSucceeded,
			Attempts: res.Attempts,
		}
		if res.Err != nil {
			jr.Status, jr.ErrorCode = classify(res.Err)
			jr.ErrorMsg = res.Err.Error()
		}
		rr.Jobs = append(rr.Jobs, jr)
		if r.obs != nil {
			r.obs.OnJobDone(done, len(jobs), jr)
		}
	}
	r.pool.Execute(ctx, jobs)
	r.pool.OnResult = nil

	r.phaseDone("images", map[string]any{
		"downloaded": len(jobs),
		"skipped":    skipped,
	}, phaseStart)
}

func (r *runState) writeMeta(rr *domain.RunReport, packs []domain.Pack, started time.Time, withImages bool) {
	mode := "all"
	switch {
	case r.scope.PacksOnly:
		mode = "packs_only"
	case r.scope.PackID != "":
		mode = "single_pack"
	}

	ids := make([]string, 0, len(packs))
	for _, p := range packs {
		ids = append(ids, string(p.ID))
	}
	sort.Strings(ids)

	meta := store.MetaStats{
		Locale:         r.set.Locale,
		Mode:           mode,
		ImagesIncluded: withImages,
		PullStartedAt:  started.UTC(),
		PullDurationMS: time.Since(started).Milliseconds(),
		Packs:          ids,
	}
	if err := r.store.WriteMeta(meta); err != nil {
		rr.Warnings = append(rr.Warnings, fmt.Sprintf("vega.meta.toml 写入失败：%v", err))
	}
}

func (r *runState) phaseDone(name string, fields map[string]any, start time.Time) {
	dur := time.Since(start)
	r.log.Info("阶段完成", zap.String("phase", name), zap.Any("fields", fields), zap.Duration("dur", dur))
	if r.obs != nil {
		r.obs.OnPhaseDone(name, fields, dur)
	}
}

// classify 把一个 job 错误映射为 (status, error_code)。
func classify(err error) (status, code string) {
	switch {
	case err == nil:
		return domain.StatusSucceeded, ""
	case errors.Is(err, pool.ErrNotDispatched):
		return domain.StatusFailed, domain.ErrCodeCanceled
	case scrape.IsNotFound(err):
		return domain.StatusFailed, domain.ErrCodeNotFound
	case scrape.IsTransient(err):
		return domain.StatusFailed, domain.ErrCodeFetchFailed
	default:
		var (
			pe *scrape.ParseError
			se *store.Error
			he *scrape.HTTPStatusError
		)
		switch {
		case errors.As(err, &pe):
			return domain.StatusFailed, domain.ErrCodeParseFailed
		case errors.As(err, &se):
			return domain.StatusFailed, domain.ErrCodeIOFailed
		case errors.As(err, &he):
			return domain.StatusFailed, domain.ErrCodeFetchFailed
		}
		return domain.StatusFailed, domain.ErrCodeFetchFailed
	}
}

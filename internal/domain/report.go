package domain

import (
	"encoding/json"
	"sort"
	"time"
)

const (
	StatusSucceeded = "succeeded"
	StatusSkipped   = "skipped"
	StatusFailed    = "failed"
)

const (
	JobKindPack  = "pack"
	JobKindCards = "cards"
	JobKindImage = "image"
)

const (
	ErrCodeFetchFailed   = "fetch_failed"
	ErrCodeNotFound      = "not_found"
	ErrCodeParseFailed   = "parse_failed"
	ErrCodeIOFailed      = "io_failed"
	ErrCodeConfigInvalid = "config_invalid"
	ErrCodeCanceled      = "canceled"
)

// RunReport 是一次 pull 的对外稳定输出（stdout JSON / report 文件）。
// 单项失败只体现为 jobs 里的一条 failed，绝不把整个 run 变成失败。
type RunReport struct {
	Locale     string `json:"locale"`
	Scope      string `json:"scope"`
	WithImages bool   `json:"with_images"`

	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`

	Summary ReportSummary `json:"summary"`
	Jobs    []JobResult   `json:"jobs"`

	// Warnings 是 run 级的降级信息（例如目录分页被截断），与具体 job 无关。
	Warnings []string `json:"warnings,omitempty"`
}

// ReportSummary 按类别（packs/cards/images）统计成功/跳过/失败数量。
// cards 的计数是“卡牌记录”粒度：一个 cards job 可以同时贡献成功与失败。
type ReportSummary struct {
	Packs  CategoryCount `json:"packs"`
	Cards  CategoryCount `json:"cards"`
	Images CategoryCount `json:"images"`
}

type CategoryCount struct {
	Succeeded int `json:"succeeded"`
	Skipped   int `json:"skipped"`
	Failed    int `json:"failed"`
}

// JobResult 是一个调度单元的结果。
//
// Kind 的取值与 Key 的含义：
//   - pack：目录解析产出的一个卡包，Key=packID
//   - cards：一个卡包的卡牌采集，Key=packID；CardsOK/CardsFailed 记录记录级结果
//   - image：一张卡图下载，Key=packID/cardID
type JobResult struct {
	Kind string `json:"kind"`
	Key  string `json:"key"`

	Status    string `json:"status"`
	ErrorCode string `json:"error_code,omitempty"`
	ErrorMsg  string `json:"error_msg,omitempty"`

	Attempts int `json:"attempts,omitempty"`

	CardsOK     int `json:"cards_ok,omitempty"`
	CardsFailed int `json:"cards_failed,omitempty"`

	// Warnings 记录记录级的降级信息（可选字段解析失败等），不影响 Status。
	Warnings []string `json:"warnings,omitempty"`
}

// Finalize 做三件事：
// 1) 时间统一为 UTC（JSON 输出 RFC3339 且后缀 Z）
// 2) jobs 稳定排序：先按 kind（pack < cards < image）、再按 key 字典序
// 3) summary 由 jobs 重新计算
// 并发收集的 jobs 完成顺序不确定，Finalize 之后输出才是确定性的。
func (r *RunReport) Finalize() {
	r.StartedAt = r.StartedAt.UTC()
	r.FinishedAt = r.FinishedAt.UTC()

	kindOrder := map[string]int{JobKindPack: 0, JobKindCards: 1, JobKindImage: 2}
	sort.SliceStable(r.Jobs, func(i, j int) bool {
		a, b := r.Jobs[i], r.Jobs[j]
		if kindOrder[a.Kind] != kindOrder[b.Kind] {
			return kindOrder[a.Kind] < kindOrder[b.Kind]
		}
		return a.Key < b.Key
	})

	var s ReportSummary
	for _, j := range r.Jobs {
		switch j.Kind {
		case JobKindPack:
			s.Packs.add(j.Status)
		case JobKindCards:
			s.Cards.Succeeded += j.CardsOK
			s.Cards.Failed += j.CardsFailed
			if j.Status == StatusFailed && j.CardsOK == 0 && j.CardsFailed == 0 {
				// 整个文档都取不到：该卡包的记录数未知，至少记一条失败。
				s.Cards.Failed++
			}
		case JobKindImage:
			s.Images.add(j.Status)
		}
	}
	r.Summary = s
}

func (c *CategoryCount) add(status string) {
	switch status {
	case StatusSucceeded:
		c.Succeeded++
	case StatusSkipped:
		c.Skipped++
	case StatusFailed:
		c.Failed++
	}
}

// MarshalJSON 仅用于集中约束输出的稳定性（避免未来不小心引入非确定字段）。
func (r RunReport) MarshalJSON() ([]byte, error) {
	type Alias RunReport
	return json.Marshal(Alias(r))
}

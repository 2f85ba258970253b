package pull

import (
	"time"

	"github.com/coko7/vegapull/internal/config"
	"github.com/coko7/vegapull/internal/domain"
)

// Observer 用于把“运行进度/阶段/job 结果”从核心执行流程中解耦出来。
//
// 约束：
//   - pull 包只负责发事件，不做任何输出（避免污染 stdout 的 JSON 契约）。
//   - OnJobDone 由聚合 goroutine 串行调用；其余事件来自主流程，同样串行。
type Observer interface {
	// OnStart 在 Execute 开始时调用（应尽量早，保证用户尽快看到输出）。
	OnStart(set config.Settings, scope Scope, withImages bool)
	// OnPhaseDone 在阶段（resolve/cards/images）结束时调用。
	OnPhaseDone(name string, fields map[string]any, dur time.Duration)
	// OnJobDone 在某个 job 出结果时调用（用于每条结果的一行输出）。
	OnJobDone(done, total int, res domain.JobResult)
}

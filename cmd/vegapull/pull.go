package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/coko7/vegapull/internal/config"
	"github.com/coko7/vegapull/internal/domain"
	"github.com/coko7/vegapull/internal/pull"
)

// pullFlags 是 pull 系列子命令共享的参数。
type pullFlags struct {
	userAgent   string
	baseURL     string
	localeDir   string
	concurrency int
	maxAttempts int
	images      bool
}

func newPullCmd(g *globalFlags) *cobra.Command {
	f := &pullFlags{}

	cmd := &cobra.Command{
		Use:   "pull",
		Short: "从卡表站点拉取数据",
	}

	pf := cmd.PersistentFlags()
	pf.StringVarP(&f.userAgent, "user-agent", "A", "", "HTTP User-Agent（默认 "+config.DefaultUserAgent+"）")
	pf.StringVar(&f.baseURL, "base-url", "", "覆盖 locale 表中的站点地址（换域名时的逃生通道）")
	pf.StringVar(&f.localeDir, "locale-dir", "", "外部 locale 表目录（覆盖内置表）")
	pf.IntVarP(&f.concurrency, "concurrency", "j", 0, fmt.Sprintf("worker 数（默认 %d）", config.DefaultConcurrency))
	pf.IntVar(&f.maxAttempts, "max-attempts", 0, fmt.Sprintf("单个 job 的最大尝试次数，含首次（默认 %d）", config.DefaultMaxAttempts))

	packs := &cobra.Command{
		Use:   "packs",
		Short: "只拉取卡包目录（packs.json）",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPull(g, f, pull.Scope{PacksOnly: true})
		},
	}

	cards := &cobra.Command{
		Use:   "cards <pack-id>",
		Short: "拉取单个卡包的卡牌",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, ok := domain.ParsePackID(args[0])
			if !ok {
				return fmt.Errorf("非法的 pack id：%q", args[0])
			}
			return runPull(g, f, pull.Scope{PackID: id})
		},
	}
	cards.Flags().BoolVarP(&f.images, "images", "i", false, "同时下载卡图")

	all := &cobra.Command{
		Use:   "all",
		Short: "拉取目录与全部卡包的卡牌",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPull(g, f, pull.Scope{})
		},
	}
	all.Flags().BoolVarP(&f.images, "images", "i", false, "同时下载卡图")

	cmd.AddCommand(packs, cards, all)
	return cmd
}

func runPull(g *globalFlags, f *pullFlags, scope pull.Scope) error {
	set := config.Settings{
		Locale:      g.language,
		OutputDir:   g.output,
		Concurrency: f.concurrency,
		MaxAttempts: f.maxAttempts,
		UserAgent:   f.userAgent,
		BaseURL:     f.baseURL,
		LocaleDir:   f.localeDir,
	}

	log, flush := newLogger(g.verbose)
	defer flush()

	// Ctrl-C 取消调度，在途 job 会跑完；第二次 Ctrl-C 由默认处理直接杀进程。
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var obs pull.Observer
	if isTTY(os.Stderr) {
		obs = newProgressUI(os.Stderr)
	}

	rr, err := pull.Execute(ctx, set, scope, f.images, log, obs)
	if err != nil {
		fmt.Fprintf(os.Stderr, "run 无法继续：%v\n", err)
		return &exitError{code: 1}
	}

	emitReport(rr)

	// 单项失败不改变退出码：run 正常结束就算成功，失败明细在 report 里。
	// 只有无法继续的 run（上面提前返回的分支）才以非零退出。
	return nil
}

// emitReport 把 RunReport 输出到 stdout。
// 非 TTY 时 stdout 必须且仅输出一个 JSON（摘要走 stderr），便于管道消费。
func emitReport(rr domain.RunReport) {
	if isTTY(os.Stdout) {
		fmt.Fprintf(os.Stdout, "完成：packs ok=%d failed=%d | cards ok=%d failed=%d | images ok=%d skipped=%d failed=%d (%s)\n",
			rr.Summary.Packs.Succeeded, rr.Summary.Packs.Failed,
			rr.Summary.Cards.Succeeded, rr.Summary.Cards.Failed,
			rr.Summary.Images.Succeeded, rr.Summary.Images.Skipped, rr.Summary.Images.Failed,
			rr.FinishedAt.Sub(rr.StartedAt).Round(time.Millisecond),
		)
		for _, w := range rr.Warnings {
			fmt.Fprintf(os.Stderr, "警告：%s\n", w)
		}
		for _, j := range rr.Jobs {
			if j.Status != domain.StatusFailed {
				continue
			}
			fmt.Fprintf(os.Stderr, "%s/%s %s: %s\n", j.Kind, j.Key, j.ErrorCode, j.ErrorMsg)
		}
		return
	}

	enc := json.NewEncoder(os.Stdout)
	_ = enc.Encode(rr)
	fmt.Fprintf(os.Stderr, "完成：packs ok=%d failed=%d | cards ok=%d failed=%d | images ok=%d skipped=%d failed=%d\n",
		rr.Summary.Packs.Succeeded, rr.Summary.Packs.Failed,
		rr.Summary.Cards.Succeeded, rr.Summary.Cards.Failed,
		rr.Summary.Images.Succeeded, rr.Summary.Images.Skipped, rr.Summary.Images.Failed,
	)
}

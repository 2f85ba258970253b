package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		// cobra 已把用法类错误打印到 stderr；这里只负责退出码。
		if _, ok := err.(*exitError); !ok {
			fmt.Fprintln(os.Stderr, err)
		}
		os.Exit(exitCode(err))
	}
}

// exitError 携带一个明确的进程退出码，穿过 cobra 的 RunE 链。
// 错误信息（若有）在产生处就已输出，main 不再重复打印。
type exitError struct {
	code int
}

func (e *exitError) Error() string { return fmt.Sprintf("exit %d", e.code) }

func exitCode(err error) int {
	if ee, ok := err.(*exitError); ok {
		return ee.code
	}
	return 1
}

func newRootCmd() *cobra.Command {
	g := &globalFlags{}

	root := &cobra.Command{
		Use:           "vegapull",
		Short:         "拉取 One Piece 卡牌数据与卡图的命令行工具",
		Long:          "vegapull 从官方卡表站点抓取卡包目录、卡牌数据与卡图，\n按 locale 落盘为可 diff 的本地数据集。",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	pf := root.PersistentFlags()
	pf.CountVarP(&g.verbose, "verbose", "v", "输出更多日志（-v info，-vv debug）")
	pf.StringVarP(&g.language, "language", "l", "english", "locale（english|english-asia|japanese|french）")
	pf.StringVarP(&g.output, "output", "o", "", "数据集根目录（默认 ./vegapull-data）")

	root.AddCommand(newPullCmd(g))
	root.AddCommand(newDiffCmd())
	root.AddCommand(newConfigCmd(g))

	return root
}

// globalFlags 是所有子命令共享的根级参数。
type globalFlags struct {
	verbose  int
	language string
	output   string
}

func isTTY(f *os.File) bool {
	fi, err := f.Stat()
	if err != nil {
		return false
	}
	return fi.Mode()&os.ModeCharDevice != 0
}

package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/coko7/vegapull/internal/diff"
	"github.com/coko7/vegapull/internal/store"
)

func newDiffCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "diff <old-dir> <new-dir>",
		Short: "比较两个本地数据集（locale 目录）",
		Long: "diff 读取两个 snapshot 目录（形如 <output>/<locale>/）并逐字段比较。\n" +
			"一致时退出码为 0；有差异时输出差异并以退出码 1 结束。",
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := store.LoadSnapshot(args[0])
			if err != nil {
				return fmt.Errorf("读取旧 snapshot 失败：%w", err)
			}
			b, err := store.LoadSnapshot(args[1])
			if err != nil {
				return fmt.Errorf("读取新 snapshot 失败：%w", err)
			}

			res, err := diff.Diff(a, b)
			if err != nil {
				return err
			}

			if isTTY(os.Stdout) {
				printDiffHuman(res)
			} else {
				enc := json.NewEncoder(os.Stdout)
				if err := enc.Encode(res); err != nil {
					return err
				}
			}

			if !res.Empty() {
				return &exitError{code: 1}
			}
			return nil
		},
	}
}

func printDiffHuman(res diff.Result) {
	if res.Empty() {
		fmt.Println("两个 snapshot 完全一致")
		return
	}

	printSection := func(name string, sec diff.Section) {
		if len(sec.Added) == 0 && len(sec.Removed) == 0 && len(sec.Changed) == 0 {
			return
		}
		fmt.Printf("%s: +%d -%d ~%d\n", name, len(sec.Added), len(sec.Removed), len(sec.Changed))
		for _, id := range sec.Added {
			color.Green("  + %s", id)
		}
		for _, id := range sec.Removed {
			color.Red("  - %s", id)
		}
		for _, ch := range sec.Changed {
			color.Yellow("  ~ %s", ch.ID)
			for _, d := range ch.Deltas {
				fmt.Printf("      %s: %s -> %s\n", d.Field, d.Before, d.After)
			}
		}
	}

	printSection("packs", res.Packs)
	printSection("cards", res.Cards)
}

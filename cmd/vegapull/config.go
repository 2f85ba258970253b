package main

import (
	"encoding/json"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/coko7/vegapull/internal/config"
)

// effectiveConfig 是 `vegapull config` 的输出形态：默认值填充后的最终配置。
type effectiveConfig struct {
	Locale         string `json:"locale"`
	Hostname       string `json:"hostname"`
	OutputDir      string `json:"output_dir"`
	DataDir        string `json:"data_dir"`
	Concurrency    int    `json:"concurrency"`
	MaxAttempts    int    `json:"max_attempts"`
	RetryBaseDelay string `json:"retry_base_delay"`
	RetryMaxDelay  string `json:"retry_max_delay"`
	UserAgent      string `json:"user_agent"`
	LocaleDir      string `json:"locale_dir,omitempty"`
}

func newConfigCmd(g *globalFlags) *cobra.Command {
	f := &pullFlags{}

	cmd := &cobra.Command{
		Use:   "config",
		Short: "显示生效配置（默认值填充后）",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			set, err := config.Settings{
				Locale:      g.language,
				OutputDir:   g.output,
				Concurrency: f.concurrency,
				MaxAttempts: f.maxAttempts,
				UserAgent:   f.userAgent,
				BaseURL:     f.baseURL,
				LocaleDir:   f.localeDir,
			}.Finalize()
			if err != nil {
				return err
			}
			loc, err := set.Localizer()
			if err != nil {
				return err
			}

			eff := effectiveConfig{
				Locale:         set.Locale,
				Hostname:       loc.Hostname,
				OutputDir:      set.OutputDir,
				DataDir:        set.OutputDir + string(os.PathSeparator) + set.Locale,
				Concurrency:    set.Concurrency,
				MaxAttempts:    set.MaxAttempts,
				RetryBaseDelay: set.RetryBaseDelay.Round(time.Millisecond).String(),
				RetryMaxDelay:  set.RetryMaxDelay.Round(time.Millisecond).String(),
				UserAgent:      set.UserAgent,
				LocaleDir:      set.LocaleDir,
			}

			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(eff)
		},
	}

	pf := cmd.Flags()
	pf.StringVarP(&f.userAgent, "user-agent", "A", "", "HTTP User-Agent")
	pf.StringVar(&f.baseURL, "base-url", "", "覆盖 locale 表中的站点地址")
	pf.StringVar(&f.localeDir, "locale-dir", "", "外部 locale 表目录")
	pf.IntVarP(&f.concurrency, "concurrency", "j", 0, "worker 数")
	pf.IntVar(&f.maxAttempts, "max-attempts", 0, "单个 job 的最大尝试次数")

	return cmd
}

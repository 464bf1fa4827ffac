package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/John-Robertt/scenemeta/internal/config"
	"github.com/John-Robertt/scenemeta/internal/infra/httpx"
	"github.com/John-Robertt/scenemeta/internal/logging"
	"github.com/John-Robertt/scenemeta/internal/provider"
	"github.com/John-Robertt/scenemeta/internal/provider/htmlsearch"
	"github.com/John-Robertt/scenemeta/internal/query"
	"github.com/John-Robertt/scenemeta/internal/reconcile"
)

// globalFlags 是所有子命令共享的持久化参数。
type globalFlags struct {
	configPath string
	logLevel   string
	logFormat  string
}

// app 是一次进程运行中构建好的依赖（启动时构建一次，之后只读）。
type app struct {
	eff        config.EffectiveConfig
	log        *slog.Logger
	reconciler *reconcile.Reconciler
	validator  query.SiteValidator
}

func newRootCommand() *cobra.Command {
	var gf globalFlags

	rootCmd := &cobra.Command{
		Use:           "scenemeta",
		Short:         "解析查询串并从多个站点调和 scene/performer 元数据",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	rootCmd.PersistentFlags().StringVarP(&gf.configPath, "config", "c", "", "配置文件路径（默认 ./"+config.DefaultFileName+"，可选）")
	rootCmd.PersistentFlags().StringVar(&gf.logLevel, "log-level", "", "日志级别：debug/info/warn/error")
	rootCmd.PersistentFlags().StringVar(&gf.logFormat, "log-format", "", "日志格式：console/json")

	rootCmd.AddCommand(newClassifyCommand(&gf))
	rootCmd.AddCommand(newResolveCommand(&gf))
	rootCmd.AddCommand(newSearchCommand(&gf))
	rootCmd.AddCommand(newInitConfigCommand())
	return rootCmd
}

func (gf *globalFlags) loadConfig(cmd *cobra.Command) (config.EffectiveConfig, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return config.EffectiveConfig{}, fmt.Errorf("读取当前目录失败：%w", err)
	}
	flags := cmd.Flags()
	return config.LoadEffective(cwd, config.CLIArgs{
		ConfigPath:   gf.configPath,
		LogLevel:     gf.logLevel,
		LogLevelSet:  flags.Changed("log-level"),
		LogFormat:    gf.logFormat,
		LogFormatSet: flags.Changed("log-format"),
	})
}

// newApp 按有效配置构建 http client、站点 provider、注册表与调和器。
// 日志写到 stderr，stdout 只留给结果输出。
func (gf *globalFlags) newApp(cmd *cobra.Command) (*app, error) {
	eff, err := gf.loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	return buildApp(eff, cmd.ErrOrStderr())
}

func buildApp(eff config.EffectiveConfig, logOut io.Writer) (*app, error) {
	logger, err := logging.NewFromConfig(eff, logOut)
	if err != nil {
		return nil, err
	}

	client, err := httpx.New(httpx.Options{
		ProxyURL:      eff.ProxyURL,
		Timeout:       eff.Timeout,
		RetryMax:      eff.RetryMax,
		RatePerSecond: eff.RatePerSecond,
	})
	if err != nil {
		return nil, fmt.Errorf("构建 http client 失败：%w", err)
	}

	// 没有配置 [[series]] 时不做 series 校验（任何首字母大写的前缀都可拆分）。
	var validator query.SiteValidator
	if len(eff.Series) > 0 {
		validator = eff.Series
	}

	providers := make([]provider.Provider, 0, len(eff.Sites))
	for _, site := range eff.Sites {
		p, err := htmlsearch.New(site, client, htmlsearch.Options{Exclude: eff.ExcludeKeywords, Validator: validator})
		if err != nil {
			return nil, err
		}
		providers = append(providers, p)
	}
	reg, err := provider.NewRegistry(providers...)
	if err != nil {
		return nil, err
	}
	eastern, err := reg.Profile(eff.Eastern.Metadata, eff.Eastern.Photo)
	if err != nil {
		return nil, fmt.Errorf("profile %s：%w", config.ProfileEastern, err)
	}
	western, err := reg.Profile(eff.Western.Metadata, eff.Western.Photo)
	if err != nil {
		return nil, fmt.Errorf("profile %s：%w", config.ProfileWestern, err)
	}

	logger.Debug("providers ready", "config", eff.Path, "providers", reg.Names(), "photo_short_circuit", eff.PhotoShortCircuit)

	return &app{
		eff: eff,
		log: logger,
		reconciler: reconcile.New(provider.ScriptPolicy(eastern, western), reconcile.Options{
			PhotoShortCircuit: eff.PhotoShortCircuit,
			Logger:            logger,
		}),
		validator: validator,
	}, nil
}

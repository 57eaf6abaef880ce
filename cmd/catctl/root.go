package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/snow-cube/paper-manager/internal/apiclient"
	"github.com/snow-cube/paper-manager/internal/category"
	"github.com/snow-cube/paper-manager/internal/config"
	"github.com/snow-cube/paper-manager/pkg/logger"
)

type app struct {
	out io.Writer
	log *logrus.Logger

	configPath string
	baseURL    string
	token      string
	teamID     uint
	timeout    time.Duration
	lazy       bool
	verbose    bool
	stats      bool
	asJSON     bool

	registry *prometheus.Registry
	store    *category.Store
	scope    category.Scope
}

func newRootCmd(out, errOut io.Writer) *cobra.Command {
	a := &app{out: out, log: logrus.New()}

	root := &cobra.Command{
		Use:           "catctl",
		Short:         "Browse paper and reference categories",
		Long:          "catctl loads the category list of one scope from the paper manager API and prints it.",
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup(cmd, errOut)
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if a.stats {
				a.printStats()
			}
		},
	}
	root.SetOut(out)
	root.SetErr(errOut)

	flags := root.PersistentFlags()
	flags.StringVar(&a.configPath, "config", "", "config file (default $CONFIG_PATH or configs/config.yaml)")
	flags.StringVar(&a.baseURL, "url", "", "API base URL")
	flags.StringVar(&a.token, "token", "", "API bearer token")
	flags.UintVar(&a.teamID, "team", 0, "show the reference categories of this team instead of paper categories")
	flags.DurationVar(&a.timeout, "timeout", 0, "request timeout")
	flags.BoolVar(&a.lazy, "lazy", false, "let name lookups trigger the load")
	flags.BoolVarP(&a.verbose, "verbose", "v", false, "debug logging")
	flags.BoolVar(&a.stats, "stats", false, "print cache statistics after the command")

	root.AddCommand(
		newListCmd(a),
		newTreeCmd(a),
		newPathCmd(a),
		newNameCmd(a),
	)
	return root
}

// setup merges config file, environment and flags, then builds the store.
func (a *app) setup(cmd *cobra.Command, errOut io.Writer) error {
	var (
		cfg *config.Config
		err error
	)
	if a.configPath != "" {
		cfg, err = config.LoadFile(a.configPath)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return err
	}

	flags := cmd.Flags()
	if flags.Changed("url") {
		cfg.Client.BaseURL = a.baseURL
	}
	if flags.Changed("token") {
		cfg.Client.Token = a.token
	}
	if flags.Changed("team") {
		cfg.Client.TeamID = a.teamID
	}
	if flags.Changed("lazy") {
		cfg.Client.LazyLoad = a.lazy
	}
	if flags.Changed("timeout") {
		cfg.Client.TimeoutSeconds = int(a.timeout / time.Second)
	}
	a.lazy = cfg.Client.LazyLoad

	// 命令行工具只输出到 stderr，不写日志文件
	logCfg := cfg.Log
	logCfg.File = ""
	if a.verbose {
		logCfg.Level = "debug"
	} else if !flags.Changed("config") {
		logCfg.Level = "warn"
	}
	logger.Configure(a.log, logCfg, errOut)

	a.scope = category.PaperScope()
	if cfg.Client.TeamID != 0 {
		a.scope = category.ReferenceScope(cfg.Client.TeamID)
	}

	client, err := apiclient.New(cfg.Client.BaseURL,
		apiclient.WithToken(cfg.Client.Token),
		apiclient.WithTimeout(cfg.Client.Timeout()),
	)
	if err != nil {
		return err
	}

	a.registry = prometheus.NewRegistry()
	metrics, err := category.NewMetrics("catctl", a.registry)
	if err != nil {
		return err
	}

	a.store = category.NewStore(client,
		category.WithLogger(a.log),
		category.WithMetrics(metrics),
		category.WithLazyLoad(a.lazy),
		category.WithDefaultScope(a.scope),
	)
	return nil
}

func (a *app) load(ctx context.Context) ([]category.Record, error) {
	records, err := a.store.Load(ctx, a.scope, false)
	if err != nil {
		var apiErr *apiclient.APIError
		if errors.As(err, &apiErr) {
			return nil, fmt.Errorf("load %s categories: %s", a.scope, apiErr.Message)
		}
		return nil, err
	}
	return records, nil
}

func (a *app) printStats() {
	families, err := a.registry.Gather()
	if err != nil {
		a.log.WithError(err).Warn("读取统计失败")
		return
	}

	var lines []string
	for _, mf := range families {
		for _, m := range mf.GetMetric() {
			label := ""
			for _, lp := range m.GetLabel() {
				label += fmt.Sprintf(" %s=%s", lp.GetName(), lp.GetValue())
			}
			lines = append(lines, fmt.Sprintf("%s%s %g", mf.GetName(), label, m.GetCounter().GetValue()))
		}
	}
	sort.Strings(lines)
	for _, line := range lines {
		fmt.Fprintln(a.out, line)
	}
}

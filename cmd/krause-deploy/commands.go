package main

import (
	"fmt"
	"io"

	"github.com/krause-dao/krause-contract/contracts"
	"github.com/krause-dao/krause-contract/deploy"
	"github.com/krause-dao/krause-contract/internal/config"
	"github.com/nspcc-dev/neo-go/pkg/encoding/address"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// settings are the command line flags overriding the config file.
type settings struct {
	configPath string
	rpc        string
	wallet     string
	account    string
	artifacts  string
	report     string
	logLevel   string
}

func newRootCommand() *cobra.Command {
	s := new(settings)

	root := &cobra.Command{
		Use:   "krause-deploy",
		Short: "Deploy KRAUSE and Delegation contracts",
		Long: `Deploys KRAUSE contract and then Delegation contract passing KRAUSE address
to its constructor. Running without subcommand is the same as 'deploy'.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runDeploy(cmd, s)
		},
	}

	fs := root.PersistentFlags()
	fs.StringVarP(&s.configPath, "config", "c", "", "Path to the YAML config file")
	fs.StringVar(&s.rpc, "rpc", "", "Neo RPC server endpoint (overrides config)")
	fs.StringVarP(&s.wallet, "wallet", "w", "", "Path to the NEP-6 wallet (overrides config)")
	fs.StringVarP(&s.account, "account", "a", "", "Address of the wallet account to deploy from (overrides config)")
	fs.StringVar(&s.artifacts, "artifacts", "", "Directory with compiled contracts (overrides config)")
	fs.StringVar(&s.report, "report", "", "Path of the JSON report to write (overrides config)")
	fs.StringVar(&s.logLevel, "log-level", "", "Logging level: debug, info, warn or error (overrides config)")

	root.AddCommand(
		&cobra.Command{
			Use:   "deploy",
			Short: "Deploy the contracts",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				return runDeploy(cmd, s)
			},
		},
		&cobra.Command{
			Use:   "predict",
			Short: "Print addresses the contracts get when deployed from the configured account",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				return runPredict(cmd, s)
			},
		},
		&cobra.Command{
			Use:   "schema",
			Short: "Print JSON schema of the config file",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				b, err := config.Schema()
				if err != nil {
					return err
				}

				_, err = cmd.OutOrStdout().Write(b)
				return err
			},
		},
	)

	return root
}

// load reads config file, if any, and applies command line overrides.
func (s *settings) load() (config.Config, error) {
	cfg := config.Default()

	if s.configPath != "" {
		var err error

		cfg, err = config.Load(s.configPath)
		if err != nil {
			return cfg, err
		}
	}

	for _, o := range []struct {
		flag string
		dst  *string
	}{
		{s.rpc, &cfg.RPC.Endpoint},
		{s.wallet, &cfg.Wallet.Path},
		{s.account, &cfg.Wallet.Account},
		{s.artifacts, &cfg.Artifacts},
		{s.report, &cfg.Report},
		{s.logLevel, &cfg.LogLevel},
	} {
		if o.flag != "" {
			*o.dst = o.flag
		}
	}

	return cfg, nil
}

func newLogger(level string, w io.Writer) (*zap.Logger, error) {
	lvl, err := zap.ParseAtomicLevel(level)
	if err != nil {
		return nil, fmt.Errorf("parse log level: %w", err)
	}

	encCfg := zap.NewProductionEncoderConfig()
	encCfg.EncodeTime = zapcore.ISO8601TimeEncoder

	core := zapcore.NewCore(zapcore.NewConsoleEncoder(encCfg), zapcore.AddSync(w), lvl)

	return zap.New(core), nil
}

func runDeploy(cmd *cobra.Command, s *settings) error {
	cfg, err := s.load()
	if err != nil {
		return err
	}

	err = cfg.Validate()
	if err != nil {
		return err
	}

	// report path is reserved before anything is sent to the chain
	var (
		reportFile *deploy.ReportFile
		started    bool
	)

	if cfg.Report != "" {
		reportFile, err = deploy.CreateReportFile(cfg.Report)
		if err != nil {
			return err
		}

		defer func() {
			if !started {
				_ = reportFile.Discard()
			}
		}()
	}

	logger, err := newLogger(cfg.LogLevel, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	set, err := contracts.ReadDir(cfg.Artifacts)
	if err != nil {
		return err
	}

	acc, err := openAccount(cfg.Wallet, true)
	if err != nil {
		return err
	}

	logger.Info("connecting to the blockchain...", zap.String("endpoint", cfg.RPC.Endpoint))

	b, err := connectChain(cmd.Context(), cfg.RPC, acc)
	if err != nil {
		return err
	}
	defer b.close()

	report := deploy.NewReport(uint32(b.network()), b.sender())

	logger.Info("deploying contracts...",
		zap.Stringer("network", b.network()), zap.String("sender", acc.Address), zap.Stringer("run", report.ID))

	started = true

	res, err := deploy.Deploy(cmd.Context(), deploy.Prm{
		Logger:  logger,
		Toolkit: b.toolkit(logger, set),
		Stdout:  cmd.OutOrStdout(),
	})

	// exit code reflects the deployment only: the contracts are already on
	// the chain when the report is written
	if reportFile != nil {
		report.Finish(res, err)

		wErr := reportFile.Write(report)
		if wErr != nil {
			logger.Error("failed to write deployment report", zap.String("path", reportFile.Path()), zap.Error(wErr))
		} else {
			logger.Info("deployment report written", zap.String("path", reportFile.Path()))
		}
	}

	return err
}

func runPredict(cmd *cobra.Command, s *settings) error {
	cfg, err := s.load()
	if err != nil {
		return err
	}

	err = cfg.ValidateOffline()
	if err != nil {
		return err
	}

	set, err := contracts.ReadDir(cfg.Artifacts)
	if err != nil {
		return err
	}

	acc, err := openAccount(cfg.Wallet, false)
	if err != nil {
		return err
	}

	for _, p := range []struct {
		name  string
		label string
	}{
		{contracts.NameKRAUSE, "krause"},
		{contracts.NameDelegation, "Votes"},
	} {
		c, err := set.Get(p.name)
		if err != nil {
			return err
		}

		addr := deploy.ContractAddress(acc.ScriptHash(), c)

		fmt.Fprintln(cmd.OutOrStdout(), p.label, "will be deployed to:", address.Uint160ToString(addr))
	}

	return nil
}

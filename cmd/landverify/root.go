package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/landverify/client-sdk-go/client"
	"github.com/landverify/client-sdk-go/services/landtitle"
	"github.com/landverify/client-sdk-go/services/state"
	"github.com/landverify/client-sdk-go/types"
)

// app 命令共享的运行时依赖
type app struct {
	v        *viper.Viper
	logger   *zap.Logger
	resolver *client.Resolver
	jsonMode bool
}

func (a *app) clientConfig() *client.Config {
	cfg := client.DefaultConfig()
	cfg.Logger = client.NewZapLogger(a.logger)
	cfg.Debug = a.v.GetBool("debug")
	if s, err := a.resolver.Settings(); err == nil {
		cfg.ConfirmationRounds = s.ConfirmationRounds
	}
	return cfg
}

func (a *app) ledger() (client.LedgerClient, error) {
	cfg, err := a.resolver.Resolve(client.EndpointLedger)
	if err != nil {
		return nil, err
	}
	return client.NewLedgerClient(cfg, a.clientConfig())
}

// index 索引节点未配置时返回 nil，由状态服务返回配置缺失
func (a *app) index() *client.IndexClient {
	cfg, err := a.resolver.Resolve(client.EndpointIndex)
	if err != nil {
		a.logger.Debug("index endpoint not configured", zap.Error(err))
		return nil
	}
	ic, err := client.NewIndexClient(cfg, a.clientConfig())
	if err != nil {
		a.logger.Warn("create index client failed", zap.Error(err))
		return nil
	}
	return ic
}

func (a *app) rest() (*client.RESTClient, error) {
	base := a.v.GetString("API_BASE_URL")
	if base == "" {
		base = client.DefaultAPIBaseURL
	}
	return client.NewRESTClient(base, a.clientConfig())
}

func (a *app) stateService() (state.Service, error) {
	ledger, err := a.ledger()
	if err != nil {
		return nil, err
	}
	return a.stateFor(ledger), nil
}

// stateFor 基于已有账本客户端创建状态服务，索引节点可选
func (a *app) stateFor(ledger client.LedgerClient) state.Service {
	if ic := a.index(); ic != nil {
		return state.NewService(ledger, ic)
	}
	return state.NewService(ledger, nil)
}

// workflow 创建提交流程（签名器由全局签名参数决定）
func (a *app) workflow() (*landtitle.Workflow, client.LedgerClient, error) {
	settings, err := a.resolver.Settings()
	if err != nil {
		return nil, nil, err
	}
	ledger, err := a.ledger()
	if err != nil {
		return nil, nil, err
	}
	signer, err := a.signer()
	if err != nil {
		return nil, nil, err
	}
	w, err := landtitle.NewWorkflow(ledger, signer, landtitle.WorkflowConfig{
		AppID:              settings.AppID,
		ConfirmationRounds: settings.ConfirmationRounds,
		Logger:             client.NewZapLogger(a.logger),
	})
	if err != nil {
		return nil, nil, err
	}
	return w, ledger, nil
}

func newLogger(debug bool, logFile string) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	if debug {
		cfg = zap.NewDevelopmentConfig()
	}
	cfg.OutputPaths = []string{"stderr"}
	logger, err := cfg.Build()
	if err != nil {
		return nil, err
	}
	if logFile == "" {
		return logger, nil
	}

	// 同时写入滚动日志文件
	rotate := zapcore.AddSync(&lumberjack.Logger{
		Filename:   logFile,
		MaxSize:    50,
		MaxBackups: 5,
		MaxAge:     28,
		Compress:   true,
	})
	fileCore := zapcore.NewCore(zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig()), rotate, cfg.Level)
	return logger.WithOptions(zap.WrapCore(func(c zapcore.Core) zapcore.Core {
		return zapcore.NewTee(c, fileCore)
	})), nil
}

func newRootCmd() *cobra.Command {
	a := &app{v: viper.New()}
	a.v.AutomaticEnv()
	a.v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))

	cmd := &cobra.Command{
		Use:   "landverify",
		Short: "Verify land title documents and transfer land tokens on the ledger",
		Long: `landverify submits document-hash verifications and land-token transfers
to the land title application and reads back account and application state.

Connection settings are read from the environment:
  LEDGER_SERVER, LEDGER_PORT, LEDGER_TOKEN, LEDGER_NETWORK
  INDEX_SERVER, INDEX_PORT, INDEX_TOKEN
  KEYMGMT_SERVER, KEYMGMT_PORT, KEYMGMT_TOKEN, KEYMGMT_WALLET, KEYMGMT_PASSWORD
  APP_ID, CONFIRMATION_ROUNDS, API_BASE_URL`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if a.v.GetBool("no-color") {
				color.NoColor = true
			}
			logger, err := newLogger(a.v.GetBool("debug"), a.v.GetString("log-file"))
			if err != nil {
				return fmt.Errorf("create logger: %w", err)
			}
			a.logger = logger
			a.jsonMode = a.v.GetBool("json")

			var opts []client.ResolverOption
			if a.v.GetBool("public") {
				opts = append(opts, client.WithPublic(client.EndpointLedger, client.EndpointIndex))
			}
			a.resolver = client.NewResolver(a.v, opts...)
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if a.logger != nil {
				_ = a.logger.Sync()
			}
		},
	}

	flags := cmd.PersistentFlags()
	flags.Bool("debug", false, "enable debug logging")
	flags.Bool("json", false, "print results as JSON")
	flags.Bool("no-color", false, "disable colored output")
	flags.Bool("public", false, "allow blank tokens for public ledger and index endpoints")
	flags.String("log-file", "", "also write logs to a rotated file")
	flags.String("app-id", "", "application id (overrides APP_ID)")
	flags.Uint64("rounds", 0, "confirmation rounds (overrides CONFIRMATION_ROUNDS)")
	flags.String("api-url", "", "collaborator API base URL (overrides API_BASE_URL)")
	addSignerFlags(flags)

	for flag, key := range map[string]string{
		"debug":    "debug",
		"json":     "json",
		"no-color": "no-color",
		"public":   "public",
		"log-file": "log-file",
		"app-id":   "APP_ID",
		"rounds":   "CONFIRMATION_ROUNDS",
		"api-url":  "API_BASE_URL",
	} {
		_ = a.v.BindPFlag(key, flags.Lookup(flag))
	}
	bindSignerFlags(a.v, flags)

	cmd.AddCommand(
		newVerifyCmd(a),
		newTransferCmd(a),
		newAccountCmd(a),
		newAppCmd(a),
		newHistoryCmd(a),
		newWatchCmd(a),
		newPropertiesCmd(a),
		newLoginURLCmd(a),
		newCallbackCmd(a),
		newKeysCmd(a),
		newServeCmd(a),
	)

	// 统一错误展示
	cmd.SetFlagErrorFunc(func(c *cobra.Command, err error) error {
		return types.ValidationError("%v", err)
	})
	withErrorOutput(cmd)
	return cmd
}

// withErrorOutput 在所有子命令上安装错误展示
func withErrorOutput(root *cobra.Command) {
	for _, c := range root.Commands() {
		withErrorOutput(c)
		if c.RunE == nil {
			continue
		}
		run := c.RunE
		c.RunE = func(cmd *cobra.Command, args []string) error {
			return printError(run(cmd, args))
		}
	}
}

func printError(err error) error {
	if err == nil {
		return nil
	}
	red := color.New(color.FgRed, color.Bold)
	red.Fprint(os.Stderr, "Error: ")
	fmt.Fprintln(os.Stderr, types.Describe(err))

	if e, ok := types.AsError(err); ok {
		if e.TxID != "" {
			fmt.Fprintf(os.Stderr, "Transaction: %s\n", e.TxID)
		}
		if e.Retriable {
			color.New(color.FgYellow).Fprintln(os.Stderr, "You can retry this operation.")
		}
	}
	return err
}

package process

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"syscall"

	"github.com/opdss/version"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"github.com/zeebo/errs"
	"github.com/zeebo/structs"
	"go.uber.org/zap"

	"github.com/opdss/sheetkit/cfgstruct"
)

// DefaultCfgFilename config-dir 下的配置文件名
const DefaultCfgFilename = "config.yaml"

// DefaultEnvPrefix 环境变量前缀，SHEETKIT_EXPORT_FORMAT 覆盖 export.format
const DefaultEnvPrefix = "SHEETKIT"

var (
	commandMtx sync.Mutex
	contexts   = map[*cobra.Command]context.Context{}
	cancels    = map[*cobra.Command]context.CancelFunc{}
	configs    = map[*cobra.Command][]interface{}{}
	vipers     = map[*cobra.Command]*viper.Viper{}

	goFlagsOnce sync.Once
)

// Bind 把配置结构体的字段注册为 cmd 的 flag，命令运行前按配置文件、环境变量和
// flag 填充。同一个结构体可以绑定到多个命令。
func Bind(cmd *cobra.Command, config interface{}, opts ...cfgstruct.BindOpt) {
	commandMtx.Lock()
	defer commandMtx.Unlock()

	cfgstruct.Bind(cmd.Flags(), config, opts...)
	configs[cmd] = append(configs[cmd], config)
}

// ExecOptions contains options for ExecWithCustomOptions and Run.
type ExecOptions struct {
	// EnvPrefix 为空时依次使用 ENV_PREFIX 环境变量和 DefaultEnvPrefix
	EnvPrefix        string
	FailOnValueError bool

	LoadConfig    func(cmd *cobra.Command, vip *viper.Viper) error
	LoggerFactory func(*zap.Logger) *zap.Logger
}

func (o *ExecOptions) envPrefix() string {
	if o.EnvPrefix != "" {
		return o.EnvPrefix
	}
	if p := os.Getenv("ENV_PREFIX"); p != "" {
		return p
	}
	return DefaultEnvPrefix
}

// Exec 使用默认配置加载执行命令，失败时退出进程
func Exec(cmd *cobra.Command) {
	ExecWithCustomOptions(cmd, ExecOptions{LoadConfig: LoadConfig})
}

// ExecWithCustomConfigAndLogger 自定义配置加载和日志，loggerFactory 在配置解析之后调用
func ExecWithCustomConfigAndLogger(cmd *cobra.Command, loadConfig func(cmd *cobra.Command, vip *viper.Viper) error, loggerFactory func(*zap.Logger) *zap.Logger) {
	ExecWithCustomOptions(cmd, ExecOptions{
		LoadConfig:    loadConfig,
		LoggerFactory: loggerFactory,
	})
}

// ExecWithCustomOptions runs a Cobra command and exits the process with
// status 1 when it fails.
func ExecWithCustomOptions(cmd *cobra.Command, opts ExecOptions) {
	goFlagsOnce.Do(func() {
		pflag.CommandLine.AddGoFlagSet(flag.CommandLine)
	})
	if exe, err := os.Executable(); err == nil && cmd.Use == "" {
		cmd.Use = filepath.Base(exe)
	}
	if err := Run(cmd, opts); err != nil {
		os.Exit(1)
	}
}

// Run prepares every sub command of cmd, adds the version command and
// executes cmd. Errors are returned instead of exiting.
func Run(cmd *cobra.Command, opts ExecOptions) error {
	if opts.LoadConfig == nil {
		opts.LoadConfig = LoadConfig
	}
	cmd.AddCommand(&cobra.Command{
		Use:         "version",
		Short:       "output the version's build information, if any",
		RunE:        cmdVersion,
		Annotations: map[string]string{"type": "setup"},
	})
	wrap(cmd, &opts)
	return cmd.Execute()
}

// Ctx returns the context of a command started by Run. It is cancelled on
// SIGINT or SIGTERM. Outside of Run a background context is returned.
func Ctx(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	commandMtx.Lock()
	defer commandMtx.Unlock()

	if ctx := contexts[cmd]; ctx != nil {
		return ctx, cancels[cmd]
	}
	return context.WithCancel(context.Background())
}

func Viper(cmd *cobra.Command) (*viper.Viper, error) {
	return ViperWithCustomConfig(cmd, LoadConfig)
}

// ViperWithCustomConfig 每个命令只创建一次 viper，环境变量前缀为 DefaultEnvPrefix
func ViperWithCustomConfig(cmd *cobra.Command, loadConfig func(cmd *cobra.Command, vip *viper.Viper) error) (*viper.Viper, error) {
	return commandViper(cmd, &ExecOptions{LoadConfig: loadConfig})
}

func commandViper(cmd *cobra.Command, opts *ExecOptions) (*viper.Viper, error) {
	commandMtx.Lock()
	defer commandMtx.Unlock()

	if vip := vipers[cmd]; vip != nil {
		return vip, nil
	}

	vip := viper.New()
	if err := vip.BindPFlags(cmd.Flags()); err != nil {
		return nil, errs.Wrap(err)
	}
	vip.SetEnvPrefix(opts.envPrefix())
	vip.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	vip.AutomaticEnv()

	if err := opts.LoadConfig(cmd, vip); err != nil {
		return nil, err
	}
	vipers[cmd] = vip
	return vip, nil
}

// LoadConfig 读取 config-dir 下的 config.yaml，文件不存在时跳过。
// setup 命令会重写配置文件，读取失败时不报错。
func LoadConfig(cmd *cobra.Command, vip *viper.Viper) error {
	cfgFlag := cmd.Flags().Lookup("config-dir")
	if cfgFlag == nil || cfgFlag.Value.String() == "" {
		return nil
	}
	path := filepath.Join(os.ExpandEnv(cfgFlag.Value.String()), DefaultCfgFilename)
	if !fileExists(path) {
		return nil
	}
	vip.SetConfigFile(path)
	if err := vip.ReadInConfig(); err != nil && cmd.Annotations["type"] != "setup" {
		return errs.Wrap(err)
	}
	return nil
}

// configReport 配置文件和环境变量解析到绑定结构体之后的结果
type configReport struct {
	// Unknown 没有对应配置项或 flag 的键
	Unknown []string
	// Broken 值无法转换成配置项类型的键
	Broken []string
}

// decodeConfig fills every struct bound to cmd from vip. Keys no struct
// field takes are pushed into the matching flag, so that flags declared
// outside of Bind (config-dir, help) can also come from the file.
func decodeConfig(cmd *cobra.Command, vip *viper.Viper) configReport {
	commandMtx.Lock()
	values := configs[cmd]
	commandMtx.Unlock()

	var (
		settings = vip.AllSettings()
		used     = map[string]bool{}
		missing  = map[string]bool{}
		broken   = map[string]bool{}
	)
	for _, config := range values {
		res := structs.Decode(settings, config)
		for key := range res.Used {
			used[key] = true
		}
		for key := range res.Missing {
			missing[key] = true
		}
		for key := range res.Broken {
			broken[key] = true
		}
	}
	for key := range missing {
		if used[key] {
			continue
		}
		if f := cmd.Flags().Lookup(key); f != nil {
			val := vip.GetString(key)
			if err := f.Value.Set(val); err != nil {
				broken[key] = true
				continue
			}
			f.Changed = val != f.DefValue
			used[key] = true
		} else if f := flag.Lookup(key); f != nil {
			if err := f.Value.Set(vip.GetString(key)); err != nil {
				broken[key] = true
				continue
			}
			used[key] = true
		}
	}

	var report configReport
	for key := range missing {
		if !used[key] {
			report.Unknown = append(report.Unknown, key)
		}
	}
	for key := range broken {
		report.Broken = append(report.Broken, key)
	}
	sort.Strings(report.Unknown)
	sort.Strings(report.Broken)
	return report
}

func wrap(cmd *cobra.Command, opts *ExecOptions) {
	for _, sub := range cmd.Commands() {
		wrap(sub, opts)
	}
	if cmd.Run != nil {
		panic("Please use cobra's RunE instead of Run")
	}
	run := cmd.RunE
	if run == nil {
		return
	}

	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		vip, err := commandViper(cmd, opts)
		if err != nil {
			return err
		}
		report := decodeConfig(cmd, vip)

		logger := zap.L()
		if opts.LoggerFactory != nil {
			logger = opts.LoggerFactory(logger)
		}
		defer func() { _ = logger.Sync() }()
		defer zap.ReplaceGlobals(logger)()
		defer zap.RedirectStdLog(logger)()

		if used := vip.ConfigFileUsed(); used != "" {
			if abs, err := filepath.Abs(used); err == nil {
				used = abs
			}
			logger.Info("configuration loaded", zap.String("location", used))
		}
		if cmd.Annotations["type"] != "helper" {
			for _, key := range report.Unknown {
				logger.Info("invalid configuration file key", zap.String("key", key))
			}
		}
		for _, key := range report.Broken {
			if opts.FailOnValueError {
				return errs.New("invalid configuration file value for key: %s", key)
			}
			logger.Info("invalid configuration file value for key", zap.String("key", key))
		}

		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		commandMtx.Lock()
		contexts[cmd], cancels[cmd] = ctx, stop
		commandMtx.Unlock()
		defer func() {
			stop()
			commandMtx.Lock()
			delete(contexts, cmd)
			delete(cancels, cmd)
			commandMtx.Unlock()
		}()

		if err = run(cmd, args); err != nil {
			cmd.SilenceUsage = true
			logger.Error("command failed", zap.String("command", cmd.CommandPath()), zap.Error(err))
			return err
		}
		return nil
	}
}

func cmdVersion(cmd *cobra.Command, _ []string) error {
	_, err := fmt.Fprintln(cmd.OutOrStdout(), version.Build)
	return errs.Wrap(err)
}

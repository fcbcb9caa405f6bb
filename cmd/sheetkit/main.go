package main

import (
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/opdss/sheetkit/cfgstruct"
	"github.com/opdss/sheetkit/logger"
	"github.com/opdss/sheetkit/process"
)

var (
	rootCmd = &cobra.Command{
		Use:   "sheetkit",
		Short: "按布局文件导出报表，读取和生成 excel 工作簿",
	}

	confDir string
	logCfg  struct {
		Log logger.Config
	}
)

func init() {
	defaultConfDir := os.Getenv("SHEETKIT_CONFIG_DIR")
	if defaultConfDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			home = "."
		}
		defaultConfDir = filepath.Join(home, ".sheetkit")
	}
	rootCmd.PersistentFlags().StringVar(&confDir, "config-dir", defaultConfDir, "配置文件目录")

	rootCmd.AddCommand(exportCmd, buildCmd, cellCmd, serveCmd, setupCmd)
	for _, cmd := range rootCmd.Commands() {
		process.Bind(cmd, &logCfg, bindOpts(defaultConfDir)...)
	}
	process.Bind(exportCmd, &exportCfg, bindOpts(defaultConfDir)...)
	process.Bind(buildCmd, &buildCfg, bindOpts(defaultConfDir)...)
	process.Bind(cellCmd, &cellCfg, bindOpts(defaultConfDir)...)
	process.Bind(serveCmd, &serveCfg, bindOpts(defaultConfDir)...)
	process.Bind(setupCmd, &serveCfg, bindOpts(defaultConfDir)...)
}

func bindOpts(dir string) []cfgstruct.BindOpt {
	opts := []cfgstruct.BindOpt{cfgstruct.ConfDir(dir), cfgstruct.RootDir(dir)}
	if os.Getenv("SHEETKIT_ENV") == "dev" {
		opts = append(opts, cfgstruct.UseDevDefaults())
	} else {
		opts = append(opts, cfgstruct.UseReleaseDefaults())
	}
	return opts
}

// newLogger 配置解析完成后按 log.* 创建日志
func newLogger(l *zap.Logger) *zap.Logger {
	lg, err := logger.New(logCfg.Log)
	if err != nil {
		l.Warn("invalid log config, using default logger", zap.Error(err))
		return l
	}
	return lg
}

func main() {
	process.ExecWithCustomConfigAndLogger(rootCmd, process.LoadConfig, newLogger)
}

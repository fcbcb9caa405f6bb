package logger

import (
	"os"
	"strings"

	"github.com/zeebo/errs"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

var Error = errs.Class("logger")

// Config 日志配置，Filename 为空时只输出到标准错误
type Config struct {
	Level      string `help:"日志级别,可选[debug|info|warn|error]" default:"info" devDefault:"debug"`
	Encoding   string `help:"日志格式,可选[json|console]" default:"console" releaseDefault:"json"`
	Filename   string `help:"日志文件路径,为空时不写文件" default:""`
	MaxSize    int    `help:"单个日志文件最大尺寸(MB)" default:"100"`
	MaxBackups int    `help:"保留的旧日志文件数量" default:"7"`
	MaxAge     int    `help:"旧日志文件保留天数" default:"30"`
	Compress   bool   `help:"是否压缩旧日志文件" default:"false"`
	Stderr     bool   `help:"写文件时是否同时输出到标准错误" default:"true"`
}

// New 按配置创建 zap 日志，文件输出由 lumberjack 负责切割
func New(conf Config) (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(strings.ToLower(conf.Level))
	if err != nil {
		return nil, Error.Wrap(err)
	}
	encoder, err := newEncoder(conf.Encoding)
	if err != nil {
		return nil, err
	}
	var sinks []zapcore.WriteSyncer
	if conf.Filename != "" {
		sinks = append(sinks, zapcore.AddSync(&lumberjack.Logger{
			Filename:   conf.Filename,
			MaxSize:    conf.MaxSize,
			MaxBackups: conf.MaxBackups,
			MaxAge:     conf.MaxAge,
			Compress:   conf.Compress,
		}))
	}
	if conf.Filename == "" || conf.Stderr {
		sinks = append(sinks, zapcore.Lock(os.Stderr))
	}
	core := zapcore.NewCore(encoder, zapcore.NewMultiWriteSyncer(sinks...), zap.NewAtomicLevelAt(level))
	return zap.New(core, zap.AddCaller(), zap.AddStacktrace(zapcore.ErrorLevel)), nil
}

func newEncoder(encoding string) (zapcore.Encoder, error) {
	ec := zap.NewProductionEncoderConfig()
	ec.EncodeTime = zapcore.ISO8601TimeEncoder
	switch strings.ToLower(encoding) {
	case "", "console":
		ec.EncodeLevel = zapcore.CapitalLevelEncoder
		return zapcore.NewConsoleEncoder(ec), nil
	case "json":
		return zapcore.NewJSONEncoder(ec), nil
	}
	return nil, Error.New("unknown encoding: %q", encoding)
}

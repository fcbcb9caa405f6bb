package workbook

import (
	"go.uber.org/zap"
)

type Option func(opt *options)

// WithLogger 设置日志，默认使用 zap.L()
func WithLogger(logger *zap.Logger) Option {
	return func(opt *options) {
		if logger != nil {
			opt.logger = logger
		}
	}
}

// WithPassword 打开或保存加密的工作簿
func WithPassword(password string) Option {
	return func(opt *options) {
		opt.password = password
	}
}

// WithType 指定从 io.Reader 或字节打开时的工作簿格式，不设置时按内容识别
func WithType(typ Type) Option {
	return func(opt *options) {
		opt.typ = &typ
	}
}

type options struct {
	logger   *zap.Logger
	password string
	typ      *Type
}

func newOptions(opts ...Option) *options {
	o := &options{
		logger: zap.L(),
	}
	for i := range opts {
		opts[i](o)
	}
	return o
}

type ListOption func(opt *listOptions)

// WithRowStart 表头所在行，从0开始
func WithRowStart(n int) ListOption {
	return func(opt *listOptions) {
		if n >= 0 {
			opt.rowStart = n
		}
	}
}

// WithColStart 第一列所在列，从0开始
func WithColStart(n int) ListOption {
	return func(opt *listOptions) {
		if n >= 0 {
			opt.colStart = n
		}
	}
}

// WithSheet 写入的工作表，默认第一个工作表，不存在时会创建
func WithSheet(name string) ListOption {
	return func(opt *listOptions) {
		opt.sheet = name
	}
}

type listOptions struct {
	rowStart int
	colStart int
	sheet    string
}

func newListOptions(opts ...ListOption) *listOptions {
	o := &listOptions{}
	for i := range opts {
		opts[i](o)
	}
	return o
}

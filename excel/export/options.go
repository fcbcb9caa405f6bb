package export

import (
	"time"

	"github.com/opdss/sheetkit/contracts/locker"
	"github.com/opdss/sheetkit/excel/workbook"
	"go.uber.org/zap"
)

type Option func(opt *options)

// LockerFactory 按文件 key 创建锁
type LockerFactory func(key string) locker.Locker

// WithMaxRows 最大数据行数，超过会报异常
func WithMaxRows(n int) Option {
	return func(opt *options) {
		if n > 0 && n < MaxRows {
			opt.maxRows = n
		}
	}
}

// WithSingleFileMaxRows 单个文件导出最大数量，超出会自动切分
func WithSingleFileMaxRows(n int) Option {
	return func(opt *options) {
		if n > 0 && n < SingleFileMaxRows {
			opt.singleFileMaxRows = n
		}
	}
}

// WithFilename 设置导出文件名,不用加后缀，会自动加
func WithFilename(filename string) Option {
	return func(opt *options) {
		opt.filename = filename
	}
}

// WithRowStart 设置数据从第几行开始写入，导出excel生效
func WithRowStart(n int) Option {
	return func(opt *options) {
		if n >= 0 {
			opt.rowStart = n
		}
	}
}

// WithColStart 设置数据从第几列开始写入，导出excel生效
func WithColStart(n int) Option {
	return func(opt *options) {
		if n >= 0 {
			opt.colStart = n
		}
	}
}

// WithForceZip 是否强制zip压缩，即导出只有一个文件时也压缩成zip
func WithForceZip() Option {
	return func(opt *options) {
		opt.forceZip = true
	}
}

// WithForceSingleFile 是否强制单文件导出，为ture时即使数量超单文件大小也不会切片
func WithForceSingleFile() Option {
	return func(opt *options) {
		opt.forceSingleFile = true
	}
}

// WithHeaderStyle 表头样式，导出excel生效
func WithHeaderStyle(style *workbook.CellStylizer) Option {
	return func(opt *options) {
		opt.headerStyle = style
	}
}

// WithColStyles 按列顺序设置数据单元格样式，nil 表示不设置，导出excel生效
func WithColStyles(styles ...*workbook.CellStylizer) Option {
	return func(opt *options) {
		opt.colStyles = styles
	}
}

// WithColWidths 按列顺序设置列宽，<=0 的不设置，导出excel生效
func WithColWidths(widths ...float64) Option {
	return func(opt *options) {
		opt.colWidths = widths
	}
}

// WithSheetName 工作表名称，导出excel生效
func WithSheetName(name string) Option {
	return func(opt *options) {
		if name != "" {
			opt.sheetName = name
		}
	}
}

// WithProgress 每写入一行回调一次，参数为已导出总行数
func WithProgress(fn func(n int)) Option {
	return func(opt *options) {
		opt.progress = fn
	}
}

// WithLocker 上传到存储时按文件 key 加锁，避免同名文件并发写
func WithLocker(factory LockerFactory, ttl time.Duration) Option {
	return func(opt *options) {
		opt.locker = factory
		if ttl > 0 {
			opt.lockTTL = ttl
		}
	}
}

func WithLogger(logger *zap.Logger) Option {
	return func(opt *options) {
		if logger != nil {
			opt.logger = logger
		}
	}
}

type options struct {
	maxRows           int    //导出最大数量，避免数据提供商出错无限数据
	singleFileMaxRows int    //单个文件导出最大数量，超出会自动切分
	filename          string //文件名，不要加后缀，会自动加
	rowStart          int    //从第几行开始写数据，仅导出 excel支持
	colStart          int    //从第几列开始写数据，仅导出 excel支持
	forceZip          bool   //是否强制zip压缩，即导出只有一个文件时也压缩成zip
	forceSingleFile   bool   //是否强制单文件导出，为ture时即使数量超单文件大小也不会切片
	headerStyle       *workbook.CellStylizer
	colStyles         []*workbook.CellStylizer
	colWidths         []float64
	sheetName         string
	progress          func(n int)
	locker            LockerFactory
	lockTTL           time.Duration
	logger            *zap.Logger
}

func newOptions(opts ...Option) *options {
	o := &options{
		maxRows:           MaxRows,
		singleFileMaxRows: SingleFileMaxRows,
		sheetName:         DefaultSheetName,
		lockTTL:           time.Minute * 5,
		logger:            zap.L(),
	}
	for i := range opts {
		opts[i](o)
	}
	return o
}

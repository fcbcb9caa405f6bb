package export

import (
	"context"
	"errors"
	"io"

	"github.com/opdss/sheetkit/contracts/excel"
	"github.com/opdss/sheetkit/contracts/iterator"
	"github.com/opdss/sheetkit/excel/workbook"
	"github.com/zeebo/errs"
)

// Error is the error class of the export package.
var Error = errs.Class("export")

var ErrMaximumLimit = errors.New("export quantity exceeds maximum limit")
var ErrEmptyColumns = errors.New("export columns is empty")

const SingleFileMaxRows = 100000 //单个文件最大数据量
const MaxRows = 1000000          //最大导出数据,防止数据源出错无限数据导出

// ExcelSuffix CsvSuffix 导出文件后缀
const ExcelSuffix = "xlsx"
const CsvSuffix = "csv"
const ZipSuffix = "zip"

// ToExcelStream 导出excel的快捷方法
func ToExcelStream[T any](ctx context.Context, m *workbook.RowMappers[T], it iterator.Iterator[T], w io.Writer, opt ...Option) (int64, error) {
	return NewExcel(m, it, opt...).ExportTo(ctx, w)
}

// ToExcelFile 导出excel的快捷方法
func ToExcelFile[T any](ctx context.Context, m *workbook.RowMappers[T], it iterator.Iterator[T], opt ...Option) (string, error) {
	return NewExcel(m, it, opt...).Export(ctx)
}

// ToExcelStorage 导出excel到文件存储的快捷方法
func ToExcelStorage[T any](ctx context.Context, m *workbook.RowMappers[T], it iterator.Iterator[T], fs excel.FileStorage, opt ...Option) (string, error) {
	return NewExcel(m, it, opt...).ExportToStorage(ctx, fs)
}

// ToCsvStream 导出csv的快捷方法
func ToCsvStream[T any](ctx context.Context, m *workbook.RowMappers[T], it iterator.Iterator[T], w io.Writer, opt ...Option) (int64, error) {
	return NewCsv(m, it, opt...).ExportTo(ctx, w)
}

// ToCsvFile 导出csv的快捷方法
func ToCsvFile[T any](ctx context.Context, m *workbook.RowMappers[T], it iterator.Iterator[T], opt ...Option) (string, error) {
	return NewCsv(m, it, opt...).Export(ctx)
}

// ToCsvStorage 导出csv到文件存储的快捷方法
func ToCsvStorage[T any](ctx context.Context, m *workbook.RowMappers[T], it iterator.Iterator[T], fs excel.FileStorage, opt ...Option) (string, error) {
	return NewCsv(m, it, opt...).ExportToStorage(ctx, fs)
}

package export

import (
	"archive/zip"
	"context"
	"io"

	"github.com/opdss/sheetkit/contracts/excel"
	"github.com/opdss/sheetkit/contracts/iterator"
	"github.com/opdss/sheetkit/excel/workbook"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
)

// DefaultSheetName 默认操作表
const DefaultSheetName = "Sheet1"

var _ excel.Exporter = (*Excel[any])(nil)

// Excel 流式导出 xlsx，超过单文件行数时切分成多个文件并打包 zip
type Excel[T any] struct {
	options *options
	mappers *workbook.RowMappers[T]
	it      iterator.Iterator[T]
	total   int
}

func NewExcel[T any](m *workbook.RowMappers[T], it iterator.Iterator[T], opts ...Option) *Excel[T] {
	return &Excel[T]{
		it:      it,
		mappers: m,
		options: newOptions(opts...),
	}
}

// Total 已导出的数据行数
func (e *Excel[T]) Total() int {
	return e.total
}

// Export 导出到本地文件，返回本地文件路径
func (e *Excel[T]) Export(ctx context.Context) (string, error) {
	ef, err := e.export(ctx)
	if err != nil {
		return "", err
	}
	defer closeFile(ef, e.options.logger)
	filename, err := ef.Save()
	if err != nil {
		return "", Error.Wrap(err)
	}
	e.options.logger.Info("excel exported", zap.String("file", filename), zap.Int("rows", e.total))
	return filename, nil
}

// ExportTo 导出到io.Writer
func (e *Excel[T]) ExportTo(ctx context.Context, w io.Writer) (int64, error) {
	ef, err := e.export(ctx)
	if err != nil {
		return 0, err
	}
	defer discardFile(ef, e.options.logger)
	n, err := ef.WriteTo(w)
	return n, Error.Wrap(err)
}

// ExportToStorage 导出到文件存储，返回下载地址
func (e *Excel[T]) ExportToStorage(ctx context.Context, fs excel.FileStorage) (string, error) {
	ef, err := e.export(ctx)
	if err != nil {
		return "", err
	}
	defer discardFile(ef, e.options.logger)
	return putStorage(ctx, ef, fs, e.options)
}

// 执行导出
func (e *Excel[T]) export(ctx context.Context) (exportFile, error) {
	if e.mappers == nil || e.mappers.Len() == 0 {
		return nil, Error.Wrap(ErrEmptyColumns)
	}
	//强制打包zip
	if e.options.forceZip {
		return e.exportZip(ctx, nil)
	}
	//先导出第一个文件
	firstFile := excelize.NewFile()
	hasMore, err := e.exportToExcelize(ctx, firstFile)
	if err != nil {
		_ = firstFile.Close()
		return nil, err
	}
	if !hasMore {
		return newExportExcel(getFilename(e.options.filename, 0, ExcelSuffix), firstFile), nil
	}
	defer func() {
		_ = firstFile.Close()
	}()
	//导出zip
	return e.exportZip(ctx, firstFile)
}

func (e *Excel[T]) exportZip(ctx context.Context, firstFile *excelize.File) (_ exportFile, err error) {
	var idx int
	ef, err := newExportTmpFile(getFilename(e.options.filename, idx, ZipSuffix))
	if err != nil {
		return nil, err
	}
	defer func() {
		if err != nil {
			_ = ef.Discard()
		}
	}()
	zw := zip.NewWriter(ef)
	var w io.Writer
	//把外面传进来的加进去
	if firstFile != nil {
		w, err = newZipWriter(zw, getFilename(e.options.filename, 0, ExcelSuffix))
		if err != nil {
			return nil, Error.Wrap(err)
		}
		if err = firstFile.Write(w); err != nil {
			return nil, Error.Wrap(err)
		}
		idx++
	}
	//读取数据，强制zip时至少导出一个文件
	for hasMore := true; hasMore && (idx == 0 || e.it.Next()); {
		w, err = newZipWriter(zw, getFilename(e.options.filename, idx, ExcelSuffix))
		if err != nil {
			return nil, Error.Wrap(err)
		}
		idx++
		fw := excelize.NewFile()
		hasMore, err = e.exportToExcelize(ctx, fw)
		if err == nil {
			//写入zip
			err = Error.Wrap(fw.Write(w))
		}
		_ = fw.Close()
		if err != nil {
			return nil, err
		}
	}
	if err = iterErr(e.it); err != nil {
		return nil, err
	}
	if err = zw.Close(); err != nil {
		return nil, Error.Wrap(err)
	}
	return ef, nil
}

func (e *Excel[T]) exportToExcelize(ctx context.Context, fp *excelize.File) (hasMore bool, err error) {
	o := e.options
	row := o.rowStart + 1
	col := o.colStart + 1

	sheet := DefaultSheetName
	if o.sheetName != DefaultSheetName {
		if err = fp.SetSheetName(DefaultSheetName, o.sheetName); err != nil {
			return false, Error.Wrap(err)
		}
		sheet = o.sheetName
	}
	fw, err := fp.NewStreamWriter(sheet)
	if err != nil {
		return false, Error.Wrap(err)
	}
	//列宽必须在写入行之前设置
	for i, w := range o.colWidths {
		if w <= 0 {
			continue
		}
		if err = fw.SetColWidth(col+i, col+i, w); err != nil {
			return false, Error.Wrap(err)
		}
	}
	//设置导出表头
	header, err := e.header(fp)
	if err != nil {
		return false, err
	}
	styleIDs, err := e.colStyleIDs(fp)
	if err != nil {
		return false, err
	}
	cell, err := excelize.CoordinatesToCellName(col, row)
	if err != nil {
		return false, Error.Wrap(err)
	}
	if err = fw.SetRow(cell, header); err != nil {
		return false, Error.Wrap(err)
	}
	//开始写入数据
	written := 0
	for e.it.Next() {
		row++
		values := styleRow(normalizeRow(e.mappers.Values(e.it.Value(), e.total)), styleIDs)
		cell, err = excelize.CoordinatesToCellName(col, row)
		if err == nil {
			err = fw.SetRow(cell, values)
		}
		if err != nil {
			err = Error.Wrap(err)
			break
		}
		written++
		//检查是否超过最大导出限制
		e.total++
		if e.total > o.maxRows {
			err = Error.Wrap(ErrMaximumLimit)
			break
		}
		if o.progress != nil {
			o.progress(e.total)
		}
		//收到取消导出信号
		if err = ctx.Err(); err != nil {
			break
		}
		if !o.forceSingleFile && written >= o.singleFileMaxRows {
			hasMore = true
			break
		}
	}
	if err == nil && !hasMore {
		err = iterErr(e.it)
	}
	if err != nil {
		_ = fw.Flush()
		return false, err
	}
	o.logger.Debug("excel sheet written", zap.String("sheet", sheet), zap.Int("rows", written))
	return hasMore, Error.Wrap(fw.Flush())
}

// header 表头，设置了样式时每个单元格带上样式
func (e *Excel[T]) header(fp *excelize.File) ([]any, error) {
	names := e.mappers.ColumnNames()
	values := make([]any, len(names))
	styleID, err := e.options.headerStyle.BuildWith(fp, e.options.logger)
	if err != nil {
		return nil, Error.Wrap(err)
	}
	for i, name := range names {
		if styleID > 0 {
			values[i] = excelize.Cell{StyleID: styleID, Value: name}
		} else {
			values[i] = name
		}
	}
	return values, nil
}

// colStyleIDs 每个文件都要重新注册样式
func (e *Excel[T]) colStyleIDs(fp *excelize.File) ([]int, error) {
	if len(e.options.colStyles) == 0 {
		return nil, nil
	}
	ids := make([]int, len(e.options.colStyles))
	for i, s := range e.options.colStyles {
		id, err := s.BuildWith(fp, e.options.logger)
		if err != nil {
			return nil, Error.Wrap(err)
		}
		ids[i] = id
	}
	return ids, nil
}

func styleRow(values []any, styleIDs []int) []any {
	for i := range values {
		if i < len(styleIDs) && styleIDs[i] > 0 {
			values[i] = excelize.Cell{StyleID: styleIDs[i], Value: values[i]}
		}
	}
	return values
}

func normalizeRow(values []any) []any {
	for i := range values {
		values[i] = workbook.Normalize(values[i])
	}
	return values
}

package export

import (
	"archive/zip"
	"context"
	"encoding/csv"
	"io"
	"os"

	"github.com/opdss/sheetkit/contracts/excel"
	"github.com/opdss/sheetkit/contracts/iterator"
	"github.com/opdss/sheetkit/excel/workbook"
	"github.com/spf13/cast"
	"go.uber.org/zap"
)

var _ excel.Exporter = (*Csv[any])(nil)

type Csv[T any] struct {
	it      iterator.Iterator[T]
	mappers *workbook.RowMappers[T]
	options *options
	total   int
}

func NewCsv[T any](m *workbook.RowMappers[T], it iterator.Iterator[T], opts ...Option) *Csv[T] {
	return &Csv[T]{
		it:      it,
		mappers: m,
		options: newOptions(opts...),
	}
}

// Total 已导出的数据行数
func (c *Csv[T]) Total() int {
	return c.total
}

func (c *Csv[T]) Export(ctx context.Context) (string, error) {
	ef, err := c.export(ctx)
	if err != nil {
		return "", err
	}
	defer closeFile(ef, c.options.logger)
	filename, err := ef.Save()
	if err != nil {
		return "", Error.Wrap(err)
	}
	c.options.logger.Info("csv exported", zap.String("file", filename), zap.Int("rows", c.total))
	return filename, nil
}

func (c *Csv[T]) ExportTo(ctx context.Context, w io.Writer) (int64, error) {
	ef, err := c.export(ctx)
	if err != nil {
		return 0, err
	}
	defer discardFile(ef, c.options.logger)
	n, err := ef.WriteTo(w)
	return n, Error.Wrap(err)
}

func (c *Csv[T]) ExportToStorage(ctx context.Context, fs excel.FileStorage) (string, error) {
	ef, err := c.export(ctx)
	if err != nil {
		return "", err
	}
	defer discardFile(ef, c.options.logger)
	return putStorage(ctx, ef, fs, c.options)
}

func (c *Csv[T]) export(ctx context.Context) (exportFile, error) {
	if c.mappers == nil || c.mappers.Len() == 0 {
		return nil, Error.Wrap(ErrEmptyColumns)
	}
	if c.options.forceZip {
		return c.exportZip(ctx, nil)
	}
	//先导出第一个文件
	firstEf, err := newExportTmpFile(getFilename(c.options.filename, 0, CsvSuffix))
	if err != nil {
		return nil, err
	}
	hasMore, err := c.exportToWrite(ctx, firstEf)
	if err != nil {
		_ = firstEf.Close()
		_ = os.Remove(firstEf.Filepath())
		return nil, err
	}
	if !hasMore {
		return firstEf, nil
	}
	defer func() {
		_ = firstEf.Close()
		_ = os.Remove(firstEf.Filepath())
	}()
	//导出zip
	return c.exportZip(ctx, firstEf)
}

func (c *Csv[T]) exportZip(ctx context.Context, firstFile exportFile) (_ exportFile, err error) {
	var idx int
	ef, err := newExportTmpFile(getFilename(c.options.filename, 0, ZipSuffix))
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
		w, err = newZipWriter(zw, firstFile.Filepath())
		if err != nil {
			return nil, Error.Wrap(err)
		}
		if _, err = firstFile.WriteTo(w); err != nil {
			return nil, Error.Wrap(err)
		}
		idx++
	}
	//读取数据，强制zip时至少导出一个文件
	for hasMore := true; hasMore && (idx == 0 || c.it.Next()); {
		w, err = newZipWriter(zw, getFilename(c.options.filename, idx, CsvSuffix))
		if err != nil {
			return nil, Error.Wrap(err)
		}
		idx++
		if hasMore, err = c.exportToWrite(ctx, w); err != nil {
			return nil, err
		}
	}
	if err = iterErr(c.it); err != nil {
		return nil, err
	}
	if err = zw.Close(); err != nil {
		return nil, Error.Wrap(err)
	}
	return ef, nil
}

func (c *Csv[T]) exportToWrite(ctx context.Context, fp io.Writer) (hasMore bool, err error) {
	o := c.options
	fw := csv.NewWriter(fp)
	defer func() {
		fw.Flush()
		if err == nil {
			err = Error.Wrap(fw.Error())
		}
	}()
	// 写入CSV头部
	if err = fw.Write(c.mappers.ColumnNames()); err != nil {
		return false, Error.Wrap(err)
	}
	written := 0
	for c.it.Next() {
		if err = fw.Write(toStrings(c.mappers.Values(c.it.Value(), c.total))); err != nil {
			return false, Error.Wrap(err)
		}
		written++
		//检查是否超过最大导出限制
		c.total++
		if c.total > o.maxRows {
			return false, Error.Wrap(ErrMaximumLimit)
		}
		if o.progress != nil {
			o.progress(c.total)
		}
		//收到取消导出信号
		if err = ctx.Err(); err != nil {
			return false, err
		}
		if !o.forceSingleFile && written >= o.singleFileMaxRows {
			return true, nil
		}
	}
	if err = iterErr(c.it); err != nil {
		return false, err
	}
	o.logger.Debug("csv file written", zap.Int("rows", written))
	return false, nil
}

func toStrings(values []any) []string {
	out := make([]string, len(values))
	for i, v := range values {
		out[i] = cast.ToString(workbook.Normalize(v))
	}
	return out
}

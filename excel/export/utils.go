package export

import (
	"archive/zip"
	"context"
	"fmt"
	"io"
	"os"
	"path"
	filepath2 "path/filepath"
	"sync"
	"time"

	"github.com/opdss/sheetkit/contracts/excel"
	"github.com/xuri/excelize/v2"
	"github.com/zeebo/errs"
	"go.uber.org/zap"
	"golang.org/x/exp/rand"
)

type exportFile interface {
	Filepath() string //本地文件路径
	WriteTo(w io.Writer) (n int64, err error)
	Close() error
	Save() (string, error)
	Discard() error //关闭并删除临时文件
}

var _ exportFile = (*exportTmpFile)(nil)

// iterErr 迭代器因查询出错而提前结束时返回该错误，避免把不完整的数据当成导出成功
func iterErr(it any) error {
	if ie, ok := it.(interface{ Err() error }); ok && ie.Err() != nil {
		return Error.Wrap(ie.Err())
	}
	return nil
}

// exportTmpFile 临时文件
type exportTmpFile struct {
	filepath string
	*os.File
}

func newExportTmpFile(filepath string) (*exportTmpFile, error) {
	ef := &exportTmpFile{filepath: filepath}
	var err error
	ef.File, err = os.Create(filepath)
	if err != nil {
		return nil, Error.Wrap(err)
	}
	return ef, nil
}

func (e *exportTmpFile) Filepath() string {
	return e.filepath
}

func (e *exportTmpFile) WriteTo(w io.Writer) (n int64, err error) {
	_, err = e.File.Seek(0, io.SeekStart)
	if err != nil {
		return 0, err
	}
	return e.File.WriteTo(w)
}

func (e *exportTmpFile) Close() error {
	return e.File.Close()
}

func (e *exportTmpFile) Save() (string, error) {
	return e.filepath, nil
}

func (e *exportTmpFile) Discard() error {
	return errs.Combine(e.Close(), os.Remove(e.filepath))
}

var _ exportFile = (*exportExcel)(nil)

// exportExcel excelize文件
type exportExcel struct {
	filepath string
	fp       *excelize.File
}

func newExportExcel(filepath string, fp *excelize.File) *exportExcel {
	return &exportExcel{
		filepath: filepath,
		fp:       fp,
	}
}

func (e *exportExcel) Filepath() string {
	return e.filepath
}

func (e *exportExcel) WriteTo(w io.Writer) (n int64, err error) {
	return e.fp.WriteTo(w)
}

func (e *exportExcel) Close() error {
	return e.fp.Close()
}

func (e *exportExcel) Save() (string, error) {
	return e.filepath, e.fp.SaveAs(e.filepath)
}

func (e *exportExcel) Discard() error {
	return e.fp.Close()
}

func closeFile(ef exportFile, logger *zap.Logger) {
	if err := ef.Close(); err != nil {
		logger.Warn("close export file failed", zap.String("file", ef.Filepath()), zap.Error(err))
	}
}

func discardFile(ef exportFile, logger *zap.Logger) {
	if err := ef.Discard(); err != nil {
		logger.Warn("discard export file failed", zap.String("file", ef.Filepath()), zap.Error(err))
	}
}

// putStorage 通过 io.Pipe 边写边传到存储，配置了锁时按文件 key 加锁
func putStorage(ctx context.Context, ef exportFile, fs excel.FileStorage, o *options) (string, error) {
	fk := filepath2.Base(ef.Filepath())
	if o.locker != nil {
		l := o.locker(fk)
		if err := l.Lock(o.lockTTL); err != nil {
			return "", Error.Wrap(err)
		}
		defer func() {
			if err := l.Unlock(); err != nil {
				o.logger.Warn("unlock export file failed", zap.String("key", fk), zap.Error(err))
			}
		}()
	}
	fr, fw := io.Pipe()
	wg := sync.WaitGroup{}
	wg.Add(2)
	var werr, rerr error
	go func() {
		defer wg.Done()
		if _, werr = ef.WriteTo(fw); werr != nil {
			o.logger.Error("io pipe write error", zap.String("key", fk), zap.Error(werr))
		}
		_ = fw.CloseWithError(werr)
	}()
	go func() {
		defer wg.Done()
		if rerr = fs.PutStream(ctx, fk, fr); rerr != nil {
			o.logger.Error("io pipe read error", zap.String("key", fk), zap.Error(rerr))
		}
		_ = fr.CloseWithError(rerr)
	}()
	wg.Wait()
	if err := errs.Combine(werr, rerr); err != nil {
		return "", Error.Wrap(err)
	}
	url := fs.Url(fk)
	o.logger.Info("export file uploaded", zap.String("key", fk), zap.String("url", url))
	return url, nil
}

// getFilename 生成导出文件名
func getFilename(filename string, idx int, suf string) string {
	tmp := os.TempDir()
	if filename == "" {
		return path.Join(tmp,
			fmt.Sprintf("export_%s_%d_%d.%s",
				time.Now().Format("20060102_150405"),
				randInt(1000, 9999),
				idx,
				suf))
	}
	if filename[0] == os.PathSeparator {
		return fmt.Sprintf("%s_%d.%s", filename, idx, suf)
	}
	return fmt.Sprintf("%s_%d.%s", path.Join(tmp, filename), idx, suf)
}

func randInt(min, max int) int {
	return rand.Intn(max-min) + min
}

func newZipWriter(zw *zip.Writer, filepath string) (io.Writer, error) {
	return zw.CreateHeader(&zip.FileHeader{
		Name:     filepath2.Base(filepath),
		Method:   zip.Deflate,
		Modified: time.Now(),
	})
}

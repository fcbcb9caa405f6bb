package main

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/zeebo/errs"
	"go.uber.org/zap"

	"github.com/opdss/sheetkit/contracts/excel"
	"github.com/opdss/sheetkit/db"
	"github.com/opdss/sheetkit/excel/export"
	"github.com/opdss/sheetkit/excel/layout"
	"github.com/opdss/sheetkit/iterator"
	"github.com/opdss/sheetkit/process"
	"github.com/opdss/sheetkit/redis"
	"github.com/opdss/sheetkit/storage"
)

const lockPrefix = "sheetkit:export:"

var (
	exportCmd = &cobra.Command{
		Use:   "export <layout> [query args...]",
		Short: "执行布局中的查询并导出为 xlsx 或 csv",
		Args:  cobra.MinimumNArgs(1),
		RunE:  cmdExport,
	}

	exportCfg struct {
		Layouts           string `help:"布局文件目录" default:"$CONFDIR/layouts"`
		Format            string `help:"导出格式,可选[xlsx|csv]" default:"xlsx"`
		Output            string `help:"输出文件路径,不含后缀,为空时写入临时目录" default:""`
		Upload            bool   `help:"导出后上传到存储" default:"false"`
		Lock              bool   `help:"上传时使用 redis 锁" default:"false"`
		MaxRows           int    `help:"最大导出行数" default:"1000000"`
		SingleFileMaxRows int    `help:"单个文件最大行数,超过时切分并打包 zip" default:"100000"`
		Database          db.Config
		Storage           storage.Config
		Redis             redis.Config
	}
)

type exporter interface {
	excel.Exporter
	Total() int
}

func cmdExport(cmd *cobra.Command, args []string) (err error) {
	ctx, _ := process.Ctx(cmd)
	log := zap.L()

	l, err := layout.Find(exportCfg.Layouts, args[0])
	if err != nil {
		return err
	}
	if l.Query == "" {
		return errs.New("layout %q has no query", l.Name)
	}
	opts, err := l.ExportOptions()
	if err != nil {
		return err
	}
	opts = append(opts,
		export.WithMaxRows(exportCfg.MaxRows),
		export.WithSingleFileMaxRows(exportCfg.SingleFileMaxRows),
		export.WithLogger(log),
		export.WithProgress(func(n int) {
			if n%10000 == 0 {
				log.Info("export progress", zap.String("layout", l.Name), zap.Int("rows", n))
			}
		}),
	)
	if exportCfg.Output != "" {
		out, err := filepath.Abs(exportCfg.Output)
		if err != nil {
			return errs.Wrap(err)
		}
		opts = append(opts, export.WithFilename(out))
	}

	var fs excel.FileStorage
	if exportCfg.Upload {
		if fs, err = storage.New(exportCfg.Storage); err != nil {
			return err
		}
		if exportCfg.Lock {
			rdb, rerr := redis.NewRedis(exportCfg.Redis)
			if rerr != nil {
				return rerr
			}
			defer func() {
				err = errs.Combine(err, rdb.Close())
			}()
			opts = append(opts, export.WithLocker(redis.LockerFactory(rdb, lockPrefix), 0))
		}
	}

	gdb, err := db.NewDB(log, exportCfg.Database)
	if err != nil {
		return err
	}
	defer func() {
		err = errs.Combine(err, db.Close(gdb))
	}()

	qargs := make([]any, 0, len(args)-1)
	for _, a := range args[1:] {
		qargs = append(qargs, a)
	}
	it := iterator.NewSqlIterator[layout.Row](gdb, l.Query, qargs)
	var e exporter
	switch exportCfg.Format {
	case export.ExcelSuffix:
		e = export.NewExcel(l.Mappers(), it, opts...)
	case export.CsvSuffix:
		e = export.NewCsv(l.Mappers(), it, opts...)
	default:
		return errs.New("unsupported format %q", exportCfg.Format)
	}

	var result string
	if fs != nil {
		result, err = e.ExportToStorage(ctx, fs)
	} else {
		result, err = e.Export(ctx)
	}
	if err != nil {
		return err
	}
	log.Info("export finished", zap.String("layout", l.Name), zap.Int("rows", e.Total()), zap.String("result", result))
	_, err = fmt.Fprintln(cmd.OutOrStdout(), result)
	return err
}

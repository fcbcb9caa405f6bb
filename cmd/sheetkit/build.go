package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/zeebo/errs"
	"go.uber.org/zap"
	"gopkg.in/yaml.v2"

	"github.com/opdss/sheetkit/excel/layout"
	"github.com/opdss/sheetkit/excel/workbook"
	"github.com/opdss/sheetkit/process"
	"github.com/opdss/sheetkit/storage"
)

var (
	buildCmd = &cobra.Command{
		Use:   "build <layout> <rows file> <output>",
		Short: "把 yaml/json 数据按布局写入新的工作簿",
		Args:  cobra.ExactArgs(3),
		RunE:  cmdBuild,
	}

	buildCfg struct {
		Layouts string `help:"布局文件目录" default:"$CONFDIR/layouts"`
		Upload  bool   `help:"生成后上传到存储,output 作为存储 key" default:"false"`
		Storage storage.Config
	}
)

// readRows 读取 yaml 或 json 数组，每个元素是一行
func readRows(path string) ([]layout.Row, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errs.Wrap(err)
	}
	var rows []layout.Row
	if err = yaml.Unmarshal(data, &rows); err != nil {
		return nil, errs.Wrap(err)
	}
	return rows, nil
}

func cmdBuild(cmd *cobra.Command, args []string) (err error) {
	ctx, _ := process.Ctx(cmd)
	l, err := layout.Find(buildCfg.Layouts, args[0])
	if err != nil {
		return err
	}
	rows, err := readRows(args[1])
	if err != nil {
		return err
	}
	out := args[2]
	typ, err := workbook.TypeFromFilename(out)
	if err != nil {
		typ = workbook.XLSX
	}
	m, err := l.Build(rows, typ)
	if err != nil {
		return err
	}
	defer func() {
		err = errs.Combine(err, m.Close())
	}()

	result := out
	if buildCfg.Upload {
		fs, err := storage.New(buildCfg.Storage)
		if err != nil {
			return err
		}
		if result, err = m.Upload(ctx, fs, filepath.ToSlash(out)); err != nil {
			return err
		}
	} else if err = m.SaveAs(out); err != nil {
		return err
	}
	zap.L().Info("workbook built", zap.String("layout", l.Name), zap.Int("rows", len(rows)), zap.String("result", result))
	_, err = fmt.Fprintln(cmd.OutOrStdout(), result)
	return err
}

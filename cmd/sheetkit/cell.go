package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/zeebo/errs"

	"github.com/opdss/sheetkit/excel/workbook"
	"github.com/opdss/sheetkit/process"
	"github.com/opdss/sheetkit/storage"
)

var (
	cellCmd = &cobra.Command{
		Use:   "cell <file> <reference>",
		Short: "打印单元格、区域或名称对应的值和类型",
		Args:  cobra.ExactArgs(2),
		RunE:  cmdCell,
	}

	cellCfg struct {
		Password    string `help:"工作簿密码" default:""`
		FromStorage bool   `help:"file 作为存储 key 读取" default:"false"`
		Blank       bool   `help:"区域里不存在的单元格输出为空值" default:"false"`
		Storage     storage.Config
	}
)

func openWorkbook(cmd *cobra.Command, file string) (*workbook.Manager, error) {
	opts := []workbook.Option{workbook.WithPassword(cellCfg.Password)}
	if !cellCfg.FromStorage {
		return workbook.Open(file, opts...)
	}
	ctx, _ := process.Ctx(cmd)
	fs, err := storage.New(cellCfg.Storage)
	if err != nil {
		return nil, err
	}
	return workbook.OpenStorage(ctx, fs, file, opts...)
}

func cmdCell(cmd *cobra.Command, args []string) (err error) {
	m, err := openWorkbook(cmd, args[0])
	if err != nil {
		return err
	}
	defer func() {
		err = errs.Combine(err, m.Close())
	}()
	cells, err := m.Cells(args[1])
	if workbook.IsNotFound(err) {
		if !cellCfg.Blank {
			return errs.New("%s: %w", args[1], err)
		}
		cells, err = m.CellsSafe(args[1])
	}
	if err != nil {
		return err
	}
	w := cmd.OutOrStdout()
	for _, c := range cells {
		v, err := c.Value()
		if err != nil {
			return err
		}
		if _, err = fmt.Fprintf(w, "%s\t%T\t%v\n", c.Reference(), v, v); err != nil {
			return errs.Wrap(err)
		}
	}
	return nil
}

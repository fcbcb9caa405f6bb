package workbook

import (
	"strings"

	"github.com/xuri/excelize/v2"
)

// CellFunc 单元格写入后的处理
type CellFunc func(cell Cell) error

// SheetFunc 数据写入完成后对整个工作表的处理
type SheetFunc func(sheet *Sheet) error

// RowFunc 每行数据写入完成后的处理
type RowFunc[T any] func(row Row, item T) error

// ProgressFunc 进度回调，current 从1开始
type ProgressFunc func(current, total int)

// Cell is a handle to one cell of a workbook. Row and Col are zero-based.
// A Cell does not need to exist in the sheet; writing to it creates it.
type Cell struct {
	Sheet string
	Row   int
	Col   int
	file  *excelize.File
}

func NewCell(f *excelize.File, sheet string, row, col int) Cell {
	return Cell{Sheet: sheet, Row: row, Col: col, file: f}
}

func (c Cell) File() *excelize.File {
	return c.file
}

// Name returns the A1 style name, "B3" for row 2 col 1.
func (c Cell) Name() string {
	name, _ := cellName(c.Row, c.Col)
	return name
}

// Reference returns the absolute reference including the sheet, e.g. 'Sheet1'!$B$3.
func (c Cell) Reference() string {
	name, _ := excelize.CoordinatesToCellName(c.Col+1, c.Row+1, true)
	return quoteSheet(c.Sheet) + "!" + name
}

func (c Cell) SetValue(v any) error {
	return setCellValue(c, v)
}

func (c Cell) Value() (any, error) {
	return getCellValue(c)
}

// Text 单元格的显示文本（按格式化后的值）
func (c Cell) Text() (string, error) {
	v, err := c.file.GetCellValue(c.Sheet, c.Name())
	return v, Error.Wrap(err)
}

func (c Cell) SetStyle(styleID int) error {
	name := c.Name()
	return Error.Wrap(c.file.SetCellStyle(c.Sheet, name, name, styleID))
}

func (c Cell) Style() (int, error) {
	id, err := c.file.GetCellStyle(c.Sheet, c.Name())
	return id, Error.Wrap(err)
}

func (c Cell) SetFormula(formula string) error {
	return Error.Wrap(c.file.SetCellFormula(c.Sheet, c.Name(), strings.TrimPrefix(formula, "=")))
}

func (c Cell) Formula() (string, error) {
	v, err := c.file.GetCellFormula(c.Sheet, c.Name())
	return v, Error.Wrap(err)
}

// SetHyperlink 设置超链接，# 开头的地址为工作簿内部位置。
// display 不为空时同时作为单元格的值。
func (c Cell) SetHyperlink(url, display string) error {
	linkType := "External"
	if strings.HasPrefix(url, "#") {
		linkType, url = "Location", url[1:]
	}
	var opts []excelize.HyperlinkOpts
	if display != "" {
		opts = append(opts, excelize.HyperlinkOpts{Display: &display})
		if err := c.SetValue(display); err != nil {
			return err
		}
	}
	return Error.Wrap(c.file.SetCellHyperLink(c.Sheet, c.Name(), url, linkType, opts...))
}

// Row is a handle to one row of a sheet. Index is zero-based.
type Row struct {
	Sheet string
	Index int
	file  *excelize.File
}

func NewRow(f *excelize.File, sheet string, index int) Row {
	return Row{Sheet: sheet, Index: index, file: f}
}

func (r Row) File() *excelize.File {
	return r.file
}

func (r Row) Cell(col int) Cell {
	return NewCell(r.file, r.Sheet, r.Index, col)
}

// Cells 返回该行所有非空单元格
func (r Row) Cells() ([]Cell, error) {
	rows, err := r.file.GetRows(r.Sheet, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, Error.Wrap(err)
	}
	if r.Index >= len(rows) {
		return nil, nil
	}
	cells := make([]Cell, 0, len(rows[r.Index]))
	for col, v := range rows[r.Index] {
		if v != "" {
			cells = append(cells, r.Cell(col))
		}
	}
	return cells, nil
}

func (r Row) SetHeight(points float64) error {
	return Error.Wrap(r.file.SetRowHeight(r.Sheet, r.Index+1, points))
}

func (r Row) Height() (float64, error) {
	h, err := r.file.GetRowHeight(r.Sheet, r.Index+1)
	return h, Error.Wrap(err)
}

// Sheet wraps a worksheet for post-build configuration.
type Sheet struct {
	name string
	file *excelize.File
}

func NewSheet(f *excelize.File, name string) *Sheet {
	return &Sheet{name: name, file: f}
}

func (s *Sheet) Name() string {
	return s.name
}

func (s *Sheet) File() *excelize.File {
	return s.file
}

func (s *Sheet) Row(index int) Row {
	return NewRow(s.file, s.name, index)
}

func (s *Sheet) Cell(row, col int) Cell {
	return NewCell(s.file, s.name, row, col)
}

// SetColWidth 设置列宽，col 从0开始
func (s *Sheet) SetColWidth(col int, width float64) error {
	name, err := excelize.ColumnNumberToName(col + 1)
	if err != nil {
		return Error.Wrap(err)
	}
	return Error.Wrap(s.file.SetColWidth(s.name, name, name, width))
}

func (s *Sheet) AutoSizeColumns(startCol, endCol int, multiplier float64) error {
	return AutoSizeColumns(s.file, s.name, startCol, endCol, multiplier)
}

// MergeCells 合并区域，行列均从0开始且包含边界
func (s *Sheet) MergeCells(firstRow, lastRow, firstCol, lastCol int) error {
	top, err := cellName(firstRow, firstCol)
	if err != nil {
		return Error.Wrap(err)
	}
	bottom, err := cellName(lastRow, lastCol)
	if err != nil {
		return Error.Wrap(err)
	}
	return Error.Wrap(s.file.MergeCell(s.name, top, bottom))
}

package workbook

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"time"

	"github.com/opdss/sheetkit/contracts/excel"
	"github.com/spf13/cast"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
)

// defaultBookName 用于让 excelize 按格式写出正确的 content type
const defaultBookName = "Book1"

// Manager wraps one workbook and offers lookup by reference or defined
// name, typed value access, row copying and serialization.
type Manager struct {
	file    *excelize.File
	typ     Type
	options *options
}

// SpreadsheetFile 带文件名和格式的工作簿内容
type SpreadsheetFile struct {
	Name    string
	Type    Type
	Content []byte
}

// ReportFile 用于下载的报表
type ReportFile struct {
	Filename  string
	MediaType string
	Content   []byte
}

func New(opts ...Option) *Manager {
	return NewTyped(XLSX, opts...)
}

func NewTyped(typ Type, opts ...Option) *Manager {
	return newManager(excelize.NewFile(), typ, newOptions(opts...))
}

func newManager(f *excelize.File, typ Type, o *options) *Manager {
	f.Path = defaultBookName + "." + typ.Extension()
	return &Manager{file: f, typ: typ, options: o}
}

// Open 打开本地文件，格式按后缀判断
func Open(path string, opts ...Option) (*Manager, error) {
	o := newOptions(opts...)
	typ, err := TypeFromFilename(path)
	if err != nil {
		if o.typ == nil {
			return nil, err
		}
		typ = *o.typ
	}
	f, err := excelize.OpenFile(path, o.excelizeOptions()...)
	if err != nil {
		return nil, Error.Wrap(err)
	}
	return newManager(f, typ, o), nil
}

func OpenReader(r io.Reader, opts ...Option) (*Manager, error) {
	b, err := io.ReadAll(r)
	if err != nil {
		return nil, Error.Wrap(err)
	}
	return OpenBytes(b, opts...)
}

// OpenBytes opens a workbook from memory. Without WithType the format is
// detected from the content, including the macro and template variants.
// Encrypted workbooks need WithPassword and cannot be inspected before
// decryption, so they open as XLSX unless WithType says otherwise.
func OpenBytes(b []byte, opts ...Option) (*Manager, error) {
	o := newOptions(opts...)
	typ := XLSX
	switch {
	case o.typ != nil:
		typ = *o.typ
	case o.password == "":
		t, err := DetectType(b)
		if err != nil {
			return nil, err
		}
		typ = t
	}
	f, err := excelize.OpenReader(bytes.NewReader(b), o.excelizeOptions()...)
	if err != nil {
		return nil, Error.Wrap(err)
	}
	return newManager(f, typ, o), nil
}

// OpenStorage 从存储读取工作簿，格式按 key 的后缀判断
func OpenStorage(ctx context.Context, src excel.FileSource, key string, opts ...Option) (*Manager, error) {
	rc, err := src.GetStream(ctx, key)
	if err != nil {
		return nil, Error.Wrap(err)
	}
	defer func() {
		_ = rc.Close()
	}()
	if typ, err := TypeFromFilename(key); err == nil {
		opts = append([]Option{WithType(typ)}, opts...)
	}
	return OpenReader(rc, opts...)
}

func (o *options) excelizeOptions() []excelize.Options {
	if o.password == "" {
		return nil
	}
	return []excelize.Options{{Password: o.password}}
}

func (m *Manager) File() *excelize.File {
	return m.file
}

func (m *Manager) Type() Type {
	return m.typ
}

// FirstSheet 第一个工作表的名称
func (m *Manager) FirstSheet() (string, error) {
	list := m.file.GetSheetList()
	if len(list) == 0 {
		return "", Error.Wrap(&NotFoundSheetError{Index: 0})
	}
	return list[0], nil
}

func (m *Manager) Sheet(name string) (*Sheet, error) {
	if err := m.checkSheet(name); err != nil {
		return nil, err
	}
	return NewSheet(m.file, name), nil
}

func (m *Manager) checkSheet(name string) error {
	idx, err := m.file.GetSheetIndex(name)
	if err != nil {
		return Error.Wrap(err)
	}
	if idx == -1 {
		return Error.Wrap(&NotFoundSheetError{Sheet: name})
	}
	return nil
}

// Cell 解析只指向一个单元格的引用或名称，单元格必须已存在
func (m *Manager) Cell(reference string) (Cell, error) {
	cells, err := m.Cells(reference)
	if err != nil {
		return Cell{}, err
	}
	return singleCell(reference, cells)
}

// cellSafe 解析单个单元格但不检查是否存在
func (m *Manager) cellSafe(reference string) (Cell, error) {
	cells, err := m.CellsSafe(reference)
	if err != nil {
		return Cell{}, err
	}
	return singleCell(reference, cells)
}

func singleCell(reference string, cells []Cell) (Cell, error) {
	if len(cells) != 1 {
		return Cell{}, Error.Wrap(&MultipleCellsError{Reference: reference})
	}
	return cells[0], nil
}

// Cells resolves a defined name or an area reference such as "A1",
// "A1:C3", "Sheet1!$A$1:$B$2" or "'My Sheet'!A1" to its cells in
// row-major order. References without a sheet use the first sheet.
// Every cell must exist, i.e. hold a value or a formula; the first
// missing one is reported as a NotFoundRowError or NotFoundCellError.
func (m *Manager) Cells(reference string) ([]Cell, error) {
	cells, err := m.CellsSafe(reference)
	if err != nil {
		return nil, err
	}
	sheets := make(map[string]*sheetCells)
	for _, c := range cells {
		sc, ok := sheets[c.Sheet]
		if !ok {
			if sc, err = m.sheetCells(c.Sheet); err != nil {
				return nil, err
			}
			sheets[c.Sheet] = sc
		}
		if err = sc.check(c.Row, c.Col); err != nil {
			return nil, err
		}
	}
	return cells, nil
}

// CellsSafe 与 Cells 相同，但不检查单元格是否存在
func (m *Manager) CellsSafe(reference string) ([]Cell, error) {
	ref := reference
	if refersTo, ok := m.definedName(reference); ok {
		ref = refersTo
	}
	var cells []Cell
	for _, part := range splitUnion(ref) {
		a, err := parseArea(part)
		if err != nil {
			return nil, err
		}
		if a.sheet == "" {
			if a.sheet, err = m.FirstSheet(); err != nil {
				return nil, err
			}
		} else if err = m.checkSheet(a.sheet); err != nil {
			return nil, err
		}
		for r := a.firstRow; r <= a.lastRow; r++ {
			for c := a.firstCol; c <= a.lastCol; c++ {
				cells = append(cells, NewCell(m.file, a.sheet, r, c))
			}
		}
	}
	return cells, nil
}

// sheetCells 一个工作表已有内容的快照，用于判断行和单元格是否存在
type sheetCells struct {
	file  *excelize.File
	sheet string
	rows  [][]string
}

func (m *Manager) sheetCells(sheet string) (*sheetCells, error) {
	rows, err := m.file.GetRows(sheet, rawValue)
	if err != nil {
		return nil, Error.Wrap(err)
	}
	return &sheetCells{file: m.file, sheet: sheet, rows: rows}, nil
}

// check 行里没有任何值或公式时为行不存在；空字符串的单元格再看是否有公式
func (sc *sheetCells) check(row, col int) error {
	if row < 0 || row >= len(sc.rows) || len(sc.rows[row]) == 0 {
		return Error.Wrap(&NotFoundRowError{Index: row})
	}
	if col < 0 || col >= len(sc.rows[row]) {
		return Error.Wrap(&NotFoundCellError{Index: col})
	}
	if sc.rows[row][col] != "" {
		return nil
	}
	formula, err := sc.file.GetCellFormula(sc.sheet, NewCell(sc.file, sc.sheet, row, col).Name())
	if err != nil {
		return Error.Wrap(err)
	}
	if formula == "" {
		return Error.Wrap(&NotFoundCellError{Index: col})
	}
	return nil
}

// definedName 查找名称，不区分大小写，工作簿级别的名称优先
func (m *Manager) definedName(name string) (string, bool) {
	var (
		refersTo string
		found    bool
	)
	for _, dn := range m.file.GetDefinedName() {
		if !strings.EqualFold(dn.Name, name) {
			continue
		}
		if dn.Scope == "" || dn.Scope == "Workbook" {
			return dn.RefersTo, true
		}
		if !found {
			refersTo, found = dn.RefersTo, true
		}
	}
	return refersTo, found
}

// CellAt 获取已存在的单元格，行列从0开始
func (m *Manager) CellAt(sheet string, row, col int) (Cell, error) {
	if err := m.checkSheet(sheet); err != nil {
		return Cell{}, err
	}
	sc, err := m.sheetCells(sheet)
	if err != nil {
		return Cell{}, err
	}
	if err = sc.check(row, col); err != nil {
		return Cell{}, err
	}
	return NewCell(m.file, sheet, row, col), nil
}

func (m *Manager) CellAtIndex(sheetIndex, row, col int) (Cell, error) {
	name := m.file.GetSheetName(sheetIndex)
	if name == "" {
		return Cell{}, Error.Wrap(&NotFoundSheetError{Index: sheetIndex})
	}
	return m.CellAt(name, row, col)
}

// CellSafe 不检查单元格是否存在，写入时自动创建
func (m *Manager) CellSafe(sheet string, row, col int) Cell {
	return NewCell(m.file, sheet, row, col)
}

// SetCellValue 写入单个单元格，单元格不存在时创建
func (m *Manager) SetCellValue(reference string, value any) error {
	cell, err := m.cellSafe(reference)
	if err != nil {
		return err
	}
	return cell.SetValue(value)
}

// CellValue 读取已存在单元格的值，不存在时返回 NotFoundRowError 或 NotFoundCellError
func (m *Manager) CellValue(reference string) (any, error) {
	cell, err := m.Cell(reference)
	if err != nil {
		return nil, err
	}
	return cell.Value()
}

func (m *Manager) CellString(reference string) (string, error) {
	v, err := m.CellValue(reference)
	if err != nil {
		return "", err
	}
	s, err := cast.ToStringE(v)
	return s, Error.Wrap(err)
}

func (m *Manager) CellFloat(reference string) (float64, error) {
	v, err := m.CellValue(reference)
	if err != nil {
		return 0, err
	}
	n, err := cast.ToFloat64E(v)
	return n, Error.Wrap(err)
}

func (m *Manager) CellInt(reference string) (int64, error) {
	n, err := m.CellFloat(reference)
	if err != nil {
		return 0, err
	}
	return int64(n), nil
}

func (m *Manager) CellBool(reference string) (bool, error) {
	v, err := m.CellValue(reference)
	if err != nil {
		return false, err
	}
	b, err := cast.ToBoolE(v)
	return b, Error.Wrap(err)
}

// CellTime 数字按 Excel 日期序列号转换，文本按常见时间格式解析
func (m *Manager) CellTime(reference string) (time.Time, error) {
	v, err := m.CellValue(reference)
	if err != nil {
		return time.Time{}, err
	}
	if n, ok := v.(float64); ok {
		t, err := excelize.ExcelDateToTime(n, false)
		return t, Error.Wrap(err)
	}
	t, err := cast.ToTimeE(v)
	return t, Error.Wrap(err)
}

// CopyRow copies row src to dst (zero-based) within sheet. Values,
// formulas, styles, merged regions starting on src, hyperlinks and
// comments are copied. Rows from dst are shifted down only when dst
// already has content.
func (m *Manager) CopyRow(sheet string, src, dst int) (Row, error) {
	f := m.file
	if err := m.checkSheet(sheet); err != nil {
		return Row{}, err
	}
	rows, err := f.GetRows(sheet, rawValue)
	if err != nil {
		return Row{}, Error.Wrap(err)
	}
	index := newRowIndex(rows)
	if !index.occupied(src) {
		return Row{}, Error.Wrap(&NotFoundRowError{Index: src})
	}
	if src == dst {
		return NewRow(f, sheet, dst), nil
	}
	links, err := m.rowHyperlinks(sheet, src, len(rows[src]))
	if err != nil {
		return Row{}, err
	}
	comments, err := m.rowComments(sheet, src)
	if err != nil {
		return Row{}, err
	}

	if err = f.DuplicateRowTo(sheet, src+1, dst+1); err != nil {
		return Row{}, Error.Wrap(err)
	}
	// DuplicateRowTo 总是插入新行，目标行原本为空时把多出来的空行删掉
	if !index.occupied(dst) && dst < len(index) {
		if err = f.RemoveRow(sheet, dst+2); err != nil {
			return Row{}, Error.Wrap(err)
		}
	}

	row := NewRow(f, sheet, dst)
	for col, link := range links {
		if err = row.Cell(col).SetHyperlink(link, ""); err != nil {
			return Row{}, err
		}
	}
	for _, c := range comments {
		col, _, err := excelize.CellNameToCoordinates(c.Cell)
		if err != nil {
			return Row{}, Error.Wrap(err)
		}
		c.Cell = row.Cell(col - 1).Name()
		if err = f.AddComment(sheet, c); err != nil {
			return Row{}, Error.Wrap(err)
		}
	}
	return row, nil
}

func (m *Manager) rowHyperlinks(sheet string, row, cols int) (map[int]string, error) {
	links := make(map[int]string)
	for col := 0; col < cols; col++ {
		ok, target, err := m.file.GetCellHyperLink(sheet, NewCell(m.file, sheet, row, col).Name())
		if err != nil {
			return nil, Error.Wrap(err)
		}
		if !ok || target == "" {
			continue
		}
		if !strings.Contains(target, ":") {
			// 工作簿内部位置
			target = "#" + target
		}
		links[col] = target
	}
	return links, nil
}

func (m *Manager) rowComments(sheet string, row int) ([]excelize.Comment, error) {
	all, err := m.file.GetComments(sheet)
	if err != nil {
		return nil, Error.Wrap(err)
	}
	var comments []excelize.Comment
	for _, c := range all {
		_, r, err := excelize.CellNameToCoordinates(c.Cell)
		if err != nil {
			continue
		}
		if r-1 == row {
			comments = append(comments, c)
		}
	}
	return comments, nil
}

// AdjustRowHeightByLines sets the row height from the string cell with the
// most lines: lines * font size * 1.2, capped at the maximum row height.
func (m *Manager) AdjustRowHeightByLines(row Row) error {
	cells, err := row.Cells()
	if err != nil {
		return err
	}
	var (
		lines  int
		widest Cell
	)
	for _, c := range cells {
		typ, err := m.file.GetCellType(c.Sheet, c.Name())
		if err != nil {
			return Error.Wrap(err)
		}
		if typ != excelize.CellTypeSharedString && typ != excelize.CellTypeInlineString {
			continue
		}
		v, err := m.file.GetCellValue(c.Sheet, c.Name(), rawValue)
		if err != nil {
			return Error.Wrap(err)
		}
		if n := strings.Count(v, "\n") + 1; n > lines {
			lines, widest = n, c
		}
	}
	if lines == 0 {
		return Error.Wrap(ErrEmptyRow)
	}
	size, err := m.fontSize(widest)
	if err != nil {
		return err
	}
	height := float64(lines) * size * 1.2
	if height > excelize.MaxRowHeight {
		height = excelize.MaxRowHeight
	}
	return row.SetHeight(height)
}

const defaultFontSize = 11

func (m *Manager) fontSize(c Cell) (float64, error) {
	id, err := c.Style()
	if err != nil {
		return 0, err
	}
	style, err := m.file.GetStyle(id)
	if err != nil {
		return 0, Error.Wrap(err)
	}
	if style != nil && style.Font != nil && style.Font.Size > 0 {
		return style.Font.Size, nil
	}
	return defaultFontSize, nil
}

// Bytes serializes the workbook. Cached formula results are cleared so the
// spreadsheet application recalculates every formula when the file is opened.
func (m *Manager) Bytes() ([]byte, error) {
	if err := m.file.UpdateLinkedValue(); err != nil {
		return nil, Error.Wrap(err)
	}
	var buf bytes.Buffer
	if _, err := m.file.WriteTo(&buf, m.options.excelizeOptions()...); err != nil {
		return nil, Error.Wrap(err)
	}
	return buf.Bytes(), nil
}

func (m *Manager) Reader() (*bytes.Reader, error) {
	b, err := m.Bytes()
	if err != nil {
		return nil, err
	}
	return bytes.NewReader(b), nil
}

func (m *Manager) WriteTo(w io.Writer) (int64, error) {
	r, err := m.Reader()
	if err != nil {
		return 0, err
	}
	n, err := r.WriteTo(w)
	return n, Error.Wrap(err)
}

// SaveAs 保存到本地文件，后缀需与格式一致
func (m *Manager) SaveAs(path string) error {
	b, err := m.Bytes()
	if err != nil {
		return err
	}
	return Error.Wrap(writeFile(path, b))
}

// Copy 通过序列化再读取得到一份独立的副本
func (m *Manager) Copy() (*Manager, error) {
	b, err := m.Bytes()
	if err != nil {
		return nil, err
	}
	opts := []Option{WithType(m.typ), WithLogger(m.options.logger), WithPassword(m.options.password)}
	return OpenBytes(b, opts...)
}

// Spreadsheet 文件名为 name 加上格式后缀
func (m *Manager) Spreadsheet(name string) (*SpreadsheetFile, error) {
	b, err := m.Bytes()
	if err != nil {
		return nil, err
	}
	return &SpreadsheetFile{Name: m.filename(name), Type: m.typ, Content: b}, nil
}

func (m *Manager) Report(name string) (*ReportFile, error) {
	b, err := m.Bytes()
	if err != nil {
		return nil, err
	}
	return &ReportFile{Filename: m.filename(name), MediaType: m.typ.ContentType(), Content: b}, nil
}

// Upload 上传到存储并返回访问地址
func (m *Manager) Upload(ctx context.Context, fs excel.FileStorage, name string) (string, error) {
	r, err := m.Reader()
	if err != nil {
		return "", err
	}
	key := m.filename(name)
	if err = fs.PutStream(ctx, key, r); err != nil {
		return "", Error.Wrap(err)
	}
	m.options.logger.Debug("workbook uploaded", zap.String("key", key), zap.Int64("size", r.Size()))
	return fs.Url(key), nil
}

func (m *Manager) filename(name string) string {
	ext := "." + m.typ.Extension()
	if strings.HasSuffix(strings.ToLower(name), ext) {
		return name
	}
	return name + ext
}

func (m *Manager) Close() error {
	return Error.Wrap(m.file.Close())
}

// IsNotFound 是否为工作表、行或单元格不存在的错误
func IsNotFound(err error) bool {
	var (
		sheetErr *NotFoundSheetError
		rowErr   *NotFoundRowError
		cellErr  *NotFoundCellError
	)
	return errors.As(err, &sheetErr) || errors.As(err, &rowErr) || errors.As(err, &cellErr)
}

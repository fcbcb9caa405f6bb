package workbook

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func cellNames(cells []Cell) []string {
	names := make([]string, len(cells))
	for i, c := range cells {
		names[i] = c.Name()
	}
	return names
}

func TestManagerCells(t *testing.T) {
	m := newTestManager(t)
	f := m.File()
	_, err := f.NewSheet("My Sheet")
	require.NoError(t, err)
	for _, name := range []string{"A1", "B1", "A2", "B2"} {
		require.NoError(t, f.SetCellStr(testSheet, name, name))
	}
	require.NoError(t, f.SetCellInt("My Sheet", "C3", 3))

	cells, err := m.Cells("A1:B2")
	require.NoError(t, err)
	assert.Equal(t, []string{"A1", "B1", "A2", "B2"}, cellNames(cells))
	assert.Equal(t, testSheet, cells[0].Sheet)

	cells, err = m.Cells("'My Sheet'!$C$3")
	require.NoError(t, err)
	require.Len(t, cells, 1)
	assert.Equal(t, "My Sheet", cells[0].Sheet)
	assert.Equal(t, "C3", cells[0].Name())

	_, err = m.Cells("Missing!A1")
	var sheetErr *NotFoundSheetError
	require.True(t, errors.As(err, &sheetErr))
	assert.Equal(t, "Missing", sheetErr.Sheet)

	_, err = m.Cells("not a reference")
	assert.True(t, errors.Is(err, ErrInvalidReference))

	// 区域里有不存在的单元格
	_, err = m.Cells("A1:C2")
	var cellErr *NotFoundCellError
	require.True(t, errors.As(err, &cellErr))
	assert.Equal(t, 2, cellErr.Index)

	_, err = m.Cell("A5")
	var rowErr *NotFoundRowError
	require.True(t, errors.As(err, &rowErr))
	assert.Equal(t, 4, rowErr.Index)

	cells, err = m.CellsSafe("A1:C2")
	require.NoError(t, err)
	assert.Equal(t, []string{"A1", "B1", "C1", "A2", "B2", "C2"}, cellNames(cells))
}

func TestManagerCellsFormulaOnly(t *testing.T) {
	m := newTestManager(t)
	require.NoError(t, m.CellSafe(testSheet, 1, 1).SetFormula("=1+1"))

	cell, err := m.Cell("B2")
	require.NoError(t, err)
	v, err := cell.Value()
	require.NoError(t, err)
	assert.Equal(t, float64(2), v)

	cell, err = m.CellAt(testSheet, 1, 1)
	require.NoError(t, err)
	assert.Equal(t, "B2", cell.Name())

	_, err = m.CellAt(testSheet, 1, 0)
	var cellErr *NotFoundCellError
	require.True(t, errors.As(err, &cellErr))
	assert.Equal(t, 0, cellErr.Index)
}

func TestManagerCellDefinedName(t *testing.T) {
	m := newTestManager(t)
	f := m.File()
	require.NoError(t, f.SetDefinedName(&excelize.DefinedName{Name: "Total", RefersTo: "Sheet1!$C$3"}))
	require.NoError(t, f.SetDefinedName(&excelize.DefinedName{Name: "Items", RefersTo: "Sheet1!$A$1:$A$3"}))
	fillColumn(t, f, testSheet, "a", "b", "c")

	require.NoError(t, m.SetCellValue("total", 99))
	assert.Equal(t, "99", cellText(t, f, testSheet, "C3"))

	cells, err := m.Cells("Items")
	require.NoError(t, err)
	assert.Equal(t, []string{"A1", "A2", "A3"}, cellNames(cells))

	_, err = m.Cell("Items")
	var multiErr *MultipleCellsError
	require.True(t, errors.As(err, &multiErr))
	assert.Equal(t, "Items", multiErr.Reference)
	assert.EqualError(t, multiErr, "multiple cells found for reference: Items, expected only one cell")
}

func TestManagerCellAt(t *testing.T) {
	m := newTestManager(t)
	require.NoError(t, m.SetCellValue("B2", "x"))

	cell, err := m.CellAt(testSheet, 1, 1)
	require.NoError(t, err)
	assert.Equal(t, "B2", cell.Name())

	cell, err = m.CellAtIndex(0, 1, 1)
	require.NoError(t, err)
	assert.Equal(t, "B2", cell.Name())

	_, err = m.CellAt(testSheet, 5, 0)
	var rowErr *NotFoundRowError
	require.True(t, errors.As(err, &rowErr))
	assert.Equal(t, 5, rowErr.Index)

	_, err = m.CellAt(testSheet, 1, 0)
	var cellErr *NotFoundCellError
	require.True(t, errors.As(err, &cellErr))
	assert.Equal(t, 0, cellErr.Index)

	_, err = m.CellAt("Nope", 0, 0)
	assert.True(t, IsNotFound(err))

	_, err = m.CellAtIndex(3, 0, 0)
	var sheetErr *NotFoundSheetError
	require.True(t, errors.As(err, &sheetErr))
	assert.Equal(t, "sheet not found index: 3", sheetErr.Error())

	safe := m.CellSafe(testSheet, 9, 9)
	assert.Equal(t, "J10", safe.Name())
}

func TestManagerRoundTrip(t *testing.T) {
	m := newTestManager(t)
	require.NoError(t, m.SetCellValue("A1", "hello"))
	require.NoError(t, m.SetCellValue("A2", 2))
	require.NoError(t, m.CellSafe(testSheet, 2, 0).SetFormula("A2*10"))

	b, err := m.Bytes()
	require.NoError(t, err)

	loaded, err := OpenBytes(b)
	require.NoError(t, err)
	defer loaded.Close()
	assert.Equal(t, XLSX, loaded.Type())

	s, err := loaded.CellString("A1")
	require.NoError(t, err)
	assert.Equal(t, "hello", s)
	v, err := loaded.CellValue("A3")
	require.NoError(t, err)
	assert.Equal(t, float64(20), v)

	var buf bytes.Buffer
	n, err := m.WriteTo(&buf)
	require.NoError(t, err)
	assert.Equal(t, int64(buf.Len()), n)

	_, err = OpenBytes([]byte("plain text"))
	assert.True(t, errors.Is(err, ErrUnsupportedFormat))
}

func TestManagerCopy(t *testing.T) {
	m := newTestManager(t)
	require.NoError(t, m.SetCellValue("A1", "original"))

	c, err := m.Copy()
	require.NoError(t, err)
	defer c.Close()
	require.NoError(t, c.SetCellValue("A1", "copy"))

	assert.Equal(t, "original", cellText(t, m.File(), testSheet, "A1"))
	assert.Equal(t, "copy", cellText(t, c.File(), testSheet, "A1"))
}

func TestManagerTypedFiles(t *testing.T) {
	m := NewTyped(XLSM)
	defer m.Close()

	sf, err := m.Spreadsheet("report")
	require.NoError(t, err)
	assert.Equal(t, "report.xlsm", sf.Name)
	assert.Equal(t, XLSM, sf.Type)
	assert.NotEmpty(t, sf.Content)

	rf, err := m.Report("report.xlsm")
	require.NoError(t, err)
	assert.Equal(t, "report.xlsm", rf.Filename)
	assert.Equal(t, XLSM.ContentType(), rf.MediaType)

	path := filepath.Join(t.TempDir(), "out", "book.xlsm")
	require.NoError(t, m.SaveAs(path))
	opened, err := Open(path)
	require.NoError(t, err)
	defer opened.Close()
	assert.Equal(t, XLSM, opened.Type())

	_, err = Open(filepath.Join(t.TempDir(), "book.txt"))
	assert.True(t, errors.Is(err, ErrUnknownExtension))
}

type memStorage struct {
	files map[string][]byte
}

func (s *memStorage) PutStream(_ context.Context, name string, r io.Reader) error {
	b, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	s.files[name] = b
	return nil
}

func (s *memStorage) GetStream(_ context.Context, name string) (io.ReadCloser, error) {
	b, ok := s.files[name]
	if !ok {
		return nil, os.ErrNotExist
	}
	return io.NopCloser(bytes.NewReader(b)), nil
}

func (s *memStorage) Url(name string) string {
	return "mem://" + name
}

func TestManagerUploadAndOpenStorage(t *testing.T) {
	ctx := context.Background()
	fs := &memStorage{files: map[string][]byte{}}
	m := newTestManager(t)
	require.NoError(t, m.SetCellValue("A1", "stored"))

	url, err := m.Upload(ctx, fs, "monthly")
	require.NoError(t, err)
	assert.Equal(t, "mem://monthly.xlsx", url)

	opened, err := OpenStorage(ctx, fs, "monthly.xlsx")
	require.NoError(t, err)
	defer opened.Close()
	s, err := opened.CellString("A1")
	require.NoError(t, err)
	assert.Equal(t, "stored", s)

	_, err = OpenStorage(ctx, fs, "missing.xlsx")
	assert.True(t, errors.Is(err, os.ErrNotExist))
}

func TestManagerCopyRow(t *testing.T) {
	m := newTestManager(t)
	f := m.File()
	require.NoError(t, m.SetCellValue("A1", "a"))
	require.NoError(t, m.SetCellValue("B1", "b"))
	require.NoError(t, m.CellSafe(testSheet, 0, 0).SetHyperlink("https://example.com", ""))
	require.NoError(t, f.AddComment(testSheet, excelize.Comment{Cell: "B1", Author: "me", Text: "note"}))
	require.NoError(t, m.SetCellValue("A2", "c"))

	// 目标行有内容，原有行下移
	row, err := m.CopyRow(testSheet, 0, 1)
	require.NoError(t, err)
	assert.Equal(t, 1, row.Index)
	assert.Equal(t, "a", cellText(t, f, testSheet, "A2"))
	assert.Equal(t, "b", cellText(t, f, testSheet, "B2"))
	assert.Equal(t, "c", cellText(t, f, testSheet, "A3"))

	ok, link, err := f.GetCellHyperLink(testSheet, "A2")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "https://example.com", link)

	comments, err := f.GetComments(testSheet)
	require.NoError(t, err)
	var copied bool
	for _, c := range comments {
		if c.Cell == "B2" {
			copied = true
		}
	}
	assert.True(t, copied)

	_, err = m.CopyRow(testSheet, 10, 0)
	var rowErr *NotFoundRowError
	require.True(t, errors.As(err, &rowErr))
	assert.Equal(t, 10, rowErr.Index)
}

func TestManagerCopyRowFormulaOnly(t *testing.T) {
	m := newTestManager(t)
	f := m.File()
	require.NoError(t, m.CellSafe(testSheet, 0, 0).SetFormula("=1+1"))
	fillColumn(t, f, testSheet, "", "below")

	row, err := m.CopyRow(testSheet, 0, 1)
	require.NoError(t, err)
	assert.Equal(t, 1, row.Index)

	formula, err := f.GetCellFormula(testSheet, "A2")
	require.NoError(t, err)
	assert.Equal(t, "1+1", formula)
	// 目标行原本有内容，下移一行
	assert.Equal(t, "below", cellText(t, f, testSheet, "A3"))
}

func TestManagerCopyRowMergedRegion(t *testing.T) {
	m := newTestManager(t)
	f := m.File()
	require.NoError(t, m.SetCellValue("A1", "title"))
	require.NoError(t, f.MergeCell(testSheet, "A1", "C1"))
	require.NoError(t, m.SetCellValue("A2", "body"))

	_, err := m.CopyRow(testSheet, 0, 4)
	require.NoError(t, err)

	cells, err := f.GetMergeCells(testSheet)
	require.NoError(t, err)
	var refs []string
	for _, mc := range cells {
		refs = append(refs, mc.GetStartAxis()+":"+mc.GetEndAxis())
	}
	assert.ElementsMatch(t, []string{"A1:C1", "A5:C5"}, refs)
	assert.Equal(t, "title", cellText(t, f, testSheet, "A5"))
	assert.Equal(t, "body", cellText(t, f, testSheet, "A2"))
}

func TestManagerCopyRowToEmptyRow(t *testing.T) {
	m := newTestManager(t)
	f := m.File()
	fillColumn(t, f, testSheet, "a", "", "z")

	_, err := m.CopyRow(testSheet, 0, 1)
	require.NoError(t, err)

	assert.Equal(t, "a", cellText(t, f, testSheet, "A2"))
	assert.Equal(t, "z", cellText(t, f, testSheet, "A3"))
	assert.Equal(t, "", cellText(t, f, testSheet, "A4"))
}

func TestManagerAdjustRowHeightByLines(t *testing.T) {
	m := newTestManager(t)
	f := m.File()
	id, err := NewStylizer().FontSize(10).WrapText().Build(f)
	require.NoError(t, err)

	require.NoError(t, m.SetCellValue("A1", "one line"))
	require.NoError(t, m.SetCellValue("B1", "1\n2\n3"))
	require.NoError(t, m.CellSafe(testSheet, 0, 1).SetStyle(id))

	require.NoError(t, m.AdjustRowHeightByLines(NewRow(f, testSheet, 0)))
	height, err := f.GetRowHeight(testSheet, 1)
	require.NoError(t, err)
	assert.InDelta(t, 36.0, height, 0.01)

	require.NoError(t, m.SetCellValue("A2", 12))
	err = m.AdjustRowHeightByLines(NewRow(f, testSheet, 1))
	assert.True(t, errors.Is(err, ErrEmptyRow))
}

func TestRowCells(t *testing.T) {
	m := newTestManager(t)
	require.NoError(t, m.SetCellValue("A3", "x"))
	require.NoError(t, m.SetCellValue("D3", 4))

	cells, err := NewRow(m.File(), testSheet, 2).Cells()
	require.NoError(t, err)
	assert.Equal(t, []string{"A3", "D3"}, cellNames(cells))

	cells, err = NewRow(m.File(), testSheet, 20).Cells()
	require.NoError(t, err)
	assert.Empty(t, cells)
}

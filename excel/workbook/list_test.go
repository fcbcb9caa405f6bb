package workbook

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type person struct {
	Name string
	Age  int
}

var people = []person{
	{Name: "Ann", Age: 30},
	{Name: "Bob", Age: 41},
}

func TestListMapperBuild(t *testing.T) {
	var (
		progress [][2]int
		rows     []int
		sheets   []string
	)
	m, err := FromItems(people).
		WithColumn("Name", func(p person) any { return p.Name }).
		WithIndexedColumn("No.", func(_ person, i int) any { return i + 1 }).
		WithColumn("Age", func(p person) any { return p.Age }).
		OnProgress(func(current, total int) {
			progress = append(progress, [2]int{current, total})
		}).
		ForEachRow(func(row Row, item person) error {
			rows = append(rows, row.Index)
			return nil
		}).
		ConfigureSheet(func(sheet *Sheet) error {
			sheets = append(sheets, sheet.Name())
			return nil
		}).
		Build()
	require.NoError(t, err)
	defer m.Close()

	f := m.File()
	assert.Equal(t, "Name", cellText(t, f, testSheet, "A1"))
	assert.Equal(t, "No.", cellText(t, f, testSheet, "B1"))
	assert.Equal(t, "Age", cellText(t, f, testSheet, "C1"))
	assert.Equal(t, "Ann", cellText(t, f, testSheet, "A2"))
	assert.Equal(t, "1", cellText(t, f, testSheet, "B2"))
	assert.Equal(t, "41", cellText(t, f, testSheet, "C3"))

	age, err := m.CellValue("C2")
	require.NoError(t, err)
	assert.Equal(t, float64(30), age)

	assert.Equal(t, [][2]int{{1, 2}, {2, 2}}, progress)
	assert.Equal(t, []int{1, 2}, rows)
	assert.Equal(t, []string{testSheet}, sheets)
}

func TestListMapperOffsets(t *testing.T) {
	m, err := FromItems(people, WithRowStart(3), WithColStart(2), WithSheet("People")).
		WithColumn("Name", func(p person) any { return p.Name }).
		Build()
	require.NoError(t, err)
	defer m.Close()

	f := m.File()
	assert.Equal(t, "Name", cellText(t, f, "People", "C4"))
	assert.Equal(t, "Ann", cellText(t, f, "People", "C5"))
	assert.Equal(t, "Bob", cellText(t, f, "People", "C6"))
	assert.Equal(t, "", cellText(t, f, testSheet, "C4"))
}

func TestListMapperShiftsExistingRows(t *testing.T) {
	m := newTestManager(t)
	f := m.File()
	fillColumn(t, f, testSheet, "r0", "r1", "r2", "r3", "r4")

	_, err := FromItemsInto(people, m, 2).
		WithColumn("Name", func(p person) any { return p.Name }).
		Build()
	require.NoError(t, err)

	want := []string{"r0", "r1", "Name", "Ann", "Bob", "r2", "r3", "r4"}
	for i, v := range want {
		name := NewCell(f, testSheet, i, 0).Name()
		assert.Equal(t, v, cellText(t, f, testSheet, name), name)
	}
}

func TestListMapperShiftsFormulaRows(t *testing.T) {
	m := newTestManager(t)
	f := m.File()
	require.NoError(t, m.CellSafe(testSheet, 1, 0).SetFormula("=SUM(1,2)"))
	require.NoError(t, m.CellSafe(testSheet, 3, 0).SetFormula("=SUM(3,4)"))

	_, err := FromItemsInto(people, m, 0).
		WithColumn("Name", func(p person) any { return p.Name }).
		Build()
	require.NoError(t, err)

	assert.Equal(t, "Name", cellText(t, f, testSheet, "A1"))
	assert.Equal(t, "Ann", cellText(t, f, testSheet, "A2"))
	assert.Equal(t, "Bob", cellText(t, f, testSheet, "A3"))
	for name, want := range map[string]string{"A2": "", "A3": "", "A4": "SUM(1,2)", "A6": "SUM(3,4)"} {
		formula, err := f.GetCellFormula(testSheet, name)
		require.NoError(t, err)
		assert.Equal(t, want, formula, name)
	}
}

func TestListMapperShiftsMergedRegions(t *testing.T) {
	m := newTestManager(t)
	f := m.File()
	fillColumn(t, f, testSheet, "r0", "r1", "r2", "r3")
	require.NoError(t, f.MergeCell(testSheet, "A3", "B3"))

	_, err := FromItemsInto(people, m, 2).
		WithColumn("Name", func(p person) any { return p.Name }).
		Build()
	require.NoError(t, err)

	assert.Equal(t, "r2", cellText(t, f, testSheet, "A6"))
	merged, err := f.GetMergeCells(testSheet)
	require.NoError(t, err)
	require.Len(t, merged, 1)
	assert.Equal(t, "A6", merged[0].GetStartAxis())
	assert.Equal(t, "B6", merged[0].GetEndAxis())
}

func TestListMapperShiftsOccupiedHeaderRow(t *testing.T) {
	m := newTestManager(t)
	f := m.File()
	fillColumn(t, f, testSheet, "title", "", "footer")

	// 最后一行就是起始行时不整体下移，只逐行处理被占用的行
	_, err := FromItemsInto(people[:1], m, 2).
		WithColumn("Name", func(p person) any { return p.Name }).
		Build()
	require.NoError(t, err)

	want := []string{"title", "", "Name", "Ann", "footer"}
	for i, v := range want {
		name := NewCell(f, testSheet, i, 0).Name()
		assert.Equal(t, v, cellText(t, f, testSheet, name), name)
	}
}

func TestListMapperStyles(t *testing.T) {
	bold := NewStylizer().FontBold()
	header := NewStylizer().ForegroundIndexed(Grey25).FontBold()

	m, err := FromItems(people).
		WithColumnStyle("Name", func(p person) any { return p.Name }, bold).
		WithColumnStyle("Age", func(p person) any { return p.Age }, bold).
		WithColumnWidth("Name", 30).
		WithHeaderStyle(header).
		WithHeaderHeight(24).
		Build()
	require.NoError(t, err)
	defer m.Close()

	f := m.File()
	nameStyle, err := f.GetCellStyle(testSheet, "A2")
	require.NoError(t, err)
	ageStyle, err := f.GetCellStyle(testSheet, "B3")
	require.NoError(t, err)
	headerStyle, err := f.GetCellStyle(testSheet, "B1")
	require.NoError(t, err)
	assert.NotZero(t, nameStyle)
	assert.Equal(t, nameStyle, ageStyle)
	assert.NotEqual(t, nameStyle, headerStyle)

	width, err := f.GetColWidth(testSheet, "A")
	require.NoError(t, err)
	assert.Equal(t, 30.0, width)

	height, err := f.GetRowHeight(testSheet, 1)
	require.NoError(t, err)
	assert.Equal(t, 24.0, height)
}

func TestListMapperErrors(t *testing.T) {
	_, err := FromItems(people).
		WithColumnStyle("Name", func(p person) any { return p.Name }, NewStylizer().ForegroundRGB(-1, 0, 0)).
		Build()
	require.Error(t, err)
	assert.True(t, Error.Has(err))

	boom := errors.New("boom")
	calls := 0
	_, err = FromItems(people).
		WithColumnFunc("Name", func(p person) any { return p.Name }, func(cell Cell) error {
			calls++
			return boom
		}).
		Build()
	assert.True(t, errors.Is(err, boom))
	assert.Equal(t, 1, calls)

	_, err = FromItems(people).
		WithColumn("Bad", func(p person) any { return p }).
		Build()
	var typeErr *UnsupportedValueTypeError
	assert.True(t, errors.As(err, &typeErr))
}

func TestListMapperEmptyItems(t *testing.T) {
	m, err := FromItems([]person{}).
		WithColumn("Name", func(p person) any { return p.Name }).
		Build()
	require.NoError(t, err)
	defer m.Close()
	assert.Equal(t, "Name", cellText(t, m.File(), testSheet, "A1"))
}

func TestRowIndexInsert(t *testing.T) {
	// 只有公式的行以空字符串出现
	idx := newRowIndex([][]string{{"a"}, {}, {"", "b"}, {""}})
	assert.Equal(t, 3, idx.last())
	assert.False(t, idx.occupied(1))
	assert.True(t, idx.occupied(2))
	assert.True(t, idx.occupied(3))

	idx = idx.insert(1, 2)
	assert.Equal(t, rowIndex{true, false, false, false, true, true}, idx)
	assert.Equal(t, 5, idx.last())

	assert.Equal(t, -1, newRowIndex(nil).last())
}

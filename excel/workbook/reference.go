package workbook

import (
	"strings"

	"github.com/xuri/excelize/v2"
)

// area 一块矩形区域，行列均从0开始
type area struct {
	sheet    string
	firstRow int
	firstCol int
	lastRow  int
	lastCol  int
}

func (a area) size() int {
	return (a.lastRow - a.firstRow + 1) * (a.lastCol - a.firstCol + 1)
}

// cellName 0基坐标转单元格名称，如 (2,1) => B3
func cellName(row, col int) (string, error) {
	return excelize.CoordinatesToCellName(col+1, row+1)
}

func quoteSheet(name string) string {
	return "'" + strings.ReplaceAll(name, "'", "''") + "'"
}

func unquoteSheet(name string) string {
	name = strings.TrimSpace(name)
	if len(name) >= 2 && name[0] == '\'' && name[len(name)-1] == '\'' {
		return strings.ReplaceAll(name[1:len(name)-1], "''", "'")
	}
	return name
}

// splitUnion 按逗号拆分多区域引用，忽略引号内的逗号
func splitUnion(ref string) []string {
	var (
		parts  []string
		quoted bool
		start  int
	)
	for i := 0; i < len(ref); i++ {
		switch ref[i] {
		case '\'':
			quoted = !quoted
		case ',':
			if !quoted {
				parts = append(parts, ref[start:i])
				start = i + 1
			}
		}
	}
	return append(parts, ref[start:])
}

// parseArea 解析 A1、A1:C3、Sheet1!$A$1:$B$2、'My Sheet'!A1 这类引用
func parseArea(ref string) (area, error) {
	ref = strings.TrimPrefix(strings.TrimSpace(ref), "=")
	var a area
	if i := strings.LastIndex(ref, "!"); i >= 0 {
		a.sheet = unquoteSheet(ref[:i])
		ref = ref[i+1:]
	}
	parts := strings.Split(strings.ReplaceAll(ref, "$", ""), ":")
	if len(parts) > 2 || parts[0] == "" {
		return a, Error.New("%w: %q", ErrInvalidReference, ref)
	}
	col, row, err := excelize.CellNameToCoordinates(parts[0])
	if err != nil {
		return a, Error.New("%w: %q: %v", ErrInvalidReference, ref, err)
	}
	a.firstCol, a.firstRow, a.lastCol, a.lastRow = col-1, row-1, col-1, row-1
	if len(parts) == 2 {
		col, row, err = excelize.CellNameToCoordinates(parts[1])
		if err != nil {
			return a, Error.New("%w: %q: %v", ErrInvalidReference, ref, err)
		}
		a.lastCol, a.lastRow = col-1, row-1
	}
	if a.firstCol > a.lastCol {
		a.firstCol, a.lastCol = a.lastCol, a.firstCol
	}
	if a.firstRow > a.lastRow {
		a.firstRow, a.lastRow = a.lastRow, a.firstRow
	}
	return a, nil
}

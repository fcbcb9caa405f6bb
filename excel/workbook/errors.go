package workbook

import (
	"errors"
	"fmt"
	"reflect"

	"github.com/zeebo/errs"
)

// Error is the error class of the workbook package.
var Error = errs.Class("workbook")

var (
	ErrUnknownExtension  = errors.New("unknown workbook extension")
	ErrUnsupportedFormat = errors.New("unsupported workbook format")
	ErrEmptyRow          = errors.New("row has no string cell")
	ErrInvalidReference  = errors.New("invalid cell reference")
)

// NotFoundSheetError 工作表不存在
type NotFoundSheetError struct {
	Sheet string
	Index int
}

func (e *NotFoundSheetError) Error() string {
	if e.Sheet == "" {
		return fmt.Sprintf("sheet not found index: %d", e.Index)
	}
	return fmt.Sprintf("sheet not found: %s", e.Sheet)
}

// NotFoundRowError 行不存在，Index 从0开始
type NotFoundRowError struct {
	Index int
}

func (e *NotFoundRowError) Error() string {
	return fmt.Sprintf("row not found index: %d", e.Index)
}

// NotFoundCellError 单元格不存在，Index 为列号，从0开始
type NotFoundCellError struct {
	Index int
}

func (e *NotFoundCellError) Error() string {
	return fmt.Sprintf("cell not found index: %d", e.Index)
}

type MultipleCellsError struct {
	Reference string
}

func (e *MultipleCellsError) Error() string {
	return fmt.Sprintf("multiple cells found for reference: %s, expected only one cell", e.Reference)
}

// UnsupportedValueTypeError 无法写入单元格的值类型
type UnsupportedValueTypeError struct {
	Cell string
	Type reflect.Type
}

func (e *UnsupportedValueTypeError) Error() string {
	return fmt.Sprintf("unsupported value type %s for cell %s", e.Type, e.Cell)
}

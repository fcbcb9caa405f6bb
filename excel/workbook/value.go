package workbook

import (
	"reflect"
	"strings"
	"time"

	"github.com/spf13/cast"
	"github.com/xuri/excelize/v2"
)

var rawValue = excelize.Options{RawCellValue: true}

// indirect 解引用指针，nil 指针返回 nil
func indirect(v any) any {
	if v == nil {
		return nil
	}
	rv := reflect.ValueOf(v)
	for rv.Kind() == reflect.Pointer {
		if rv.IsNil() {
			return nil
		}
		rv = rv.Elem()
	}
	return rv.Interface()
}

// Normalize 解引用指针，并把自定义的基础类型（如 type Status int）转换为内置类型
func Normalize(value any) any {
	v := indirect(value)
	switch v.(type) {
	case nil, string, []byte, bool,
		int, int8, int16, int32, int64,
		uint, uint8, uint16, uint32, uint64,
		float32, float64, time.Time, time.Duration, []excelize.RichTextRun:
		return v
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return rv.Int()
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return rv.Uint()
	case reflect.Float32, reflect.Float64:
		return rv.Float()
	case reflect.String:
		return rv.String()
	case reflect.Bool:
		return rv.Bool()
	}
	return v
}

func setCellValue(c Cell, value any) error {
	f, name := c.file, c.Name()
	if name == "" {
		return Error.New("%w: row %d col %d", ErrInvalidReference, c.Row, c.Col)
	}
	var err error
	switch v := Normalize(value).(type) {
	case nil:
		err = f.SetCellDefault(c.Sheet, name, "")
	case string:
		err = f.SetCellStr(c.Sheet, name, v)
	case []byte:
		err = f.SetCellStr(c.Sheet, name, string(v))
	case []excelize.RichTextRun:
		err = f.SetCellRichText(c.Sheet, name, v)
	case bool, int, int8, int16, int32, int64,
		uint, uint8, uint16, uint32, uint64,
		float32, float64, time.Time, time.Duration:
		err = f.SetCellValue(c.Sheet, name, v)
	default:
		err = &UnsupportedValueTypeError{Cell: c.Reference(), Type: reflect.TypeOf(value)}
	}
	return Error.Wrap(err)
}

// getCellValue 读取单元格的值：空为 ""，文本为 string，数字为 float64，布尔为 bool，
// 错误单元格返回错误文本，公式返回计算结果
func getCellValue(c Cell) (any, error) {
	f, name := c.file, c.Name()
	formula, err := f.GetCellFormula(c.Sheet, name)
	if err != nil {
		return nil, Error.Wrap(err)
	}
	if formula != "" {
		res, err := f.CalcCellValue(c.Sheet, name, rawValue)
		if err != nil {
			if strings.HasPrefix(res, "#") {
				return res, nil
			}
			if strings.HasPrefix(err.Error(), "#") {
				return err.Error(), nil
			}
			return nil, Error.Wrap(err)
		}
		return coerceResult(res), nil
	}
	typ, err := f.GetCellType(c.Sheet, name)
	if err != nil {
		return nil, Error.Wrap(err)
	}
	raw, err := f.GetCellValue(c.Sheet, name, rawValue)
	if err != nil {
		return nil, Error.Wrap(err)
	}
	switch typ {
	case excelize.CellTypeBool:
		b, err := cast.ToBoolE(raw)
		if err != nil {
			return nil, Error.Wrap(err)
		}
		return b, nil
	case excelize.CellTypeSharedString, excelize.CellTypeInlineString,
		excelize.CellTypeError, excelize.CellTypeFormula, excelize.CellTypeDate:
		return raw, nil
	}
	if raw == "" {
		return "", nil
	}
	if n, err := cast.ToFloat64E(raw); err == nil {
		return n, nil
	}
	return raw, nil
}

// coerceResult 公式结果依次尝试数字、布尔，否则为文本
func coerceResult(res string) any {
	if res == "" {
		return ""
	}
	if n, err := cast.ToFloat64E(res); err == nil {
		return n
	}
	switch strings.ToUpper(res) {
	case "TRUE":
		return true
	case "FALSE":
		return false
	}
	return res
}

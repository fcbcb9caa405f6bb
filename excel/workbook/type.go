package workbook

import (
	"archive/zip"
	"bytes"
	"io"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/xuri/excelize/v2"
)

// Type 工作簿格式
type Type int

const (
	XLSX Type = iota
	XLSM
	XLTX
	XLTM
)

const (
	xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	xlsmContentType = "application/vnd.ms-excel.sheet.macroEnabled.12"
	xltxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.template"
	xltmContentType = "application/vnd.ms-excel.template.macroEnabled.12"
)

var extensions = map[string]Type{
	"xlsx": XLSX,
	"xlsm": XLSM,
	"xltx": XLTX,
	"xltm": XLTM,
}

// Extension 不带点的文件后缀
func (t Type) Extension() string {
	switch t {
	case XLSM:
		return "xlsm"
	case XLTX:
		return "xltx"
	case XLTM:
		return "xltm"
	default:
		return "xlsx"
	}
}

func (t Type) ContentType() string {
	switch t {
	case XLSM:
		return xlsmContentType
	case XLTX:
		return xltxContentType
	case XLTM:
		return xltmContentType
	default:
		return xlsxContentType
	}
}

func (t Type) String() string {
	return strings.ToUpper(t.Extension())
}

// TypeFromExtension 根据后缀获取格式，前导点可省略，不区分大小写
func TypeFromExtension(ext string) (Type, error) {
	ext = strings.ToLower(strings.TrimPrefix(ext, "."))
	if t, ok := extensions[ext]; ok {
		return t, nil
	}
	return XLSX, Error.New("%w: %q", ErrUnknownExtension, ext)
}

// TypeFromFilename 根据文件名最后一个点之后的后缀获取格式
func TypeFromFilename(name string) (Type, error) {
	ext := filepath.Ext(name)
	if ext == "" {
		return XLSX, Error.New("%w: %q", ErrUnknownExtension, name)
	}
	return TypeFromExtension(ext)
}

// DetectType 通过文件内容识别格式。
// mimetype 只能认出 OOXML 工作簿，具体是哪种变体再看 [Content_Types].xml 里
// 工作簿部件的 content type。旧的二进制 .xls 返回 ErrUnsupportedFormat。
func DetectType(content []byte) (Type, error) {
	mime := mimetype.Detect(content)
	if !mime.Is(xlsxContentType) {
		return XLSX, Error.New("%w: %s", ErrUnsupportedFormat, mime.String())
	}
	return ooxmlVariant(content), nil
}

// 工作簿主部件的 content type 与格式的对应关系
var mainContentTypes = map[string]Type{
	excelize.ContentTypeMacro:         XLSM,
	excelize.ContentTypeTemplate:      XLTX,
	excelize.ContentTypeTemplateMacro: XLTM,
}

// ooxmlVariant 读不到 [Content_Types].xml 时按 XLSX 处理
func ooxmlVariant(content []byte) Type {
	zr, err := zip.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return XLSX
	}
	rc, err := zr.Open("[Content_Types].xml")
	if err != nil {
		return XLSX
	}
	defer func() {
		_ = rc.Close()
	}()
	b, err := io.ReadAll(rc)
	if err != nil {
		return XLSX
	}
	for contentType, typ := range mainContentTypes {
		if bytes.Contains(b, []byte(`"`+contentType+`"`)) {
			return typ
		}
	}
	return XLSX
}

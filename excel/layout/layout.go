// Package layout describes report columns and styles in YAML and turns them
// into workbook mappers, list mapper configuration and export options.
package layout

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/opdss/sheetkit/excel/export"
	"github.com/opdss/sheetkit/excel/workbook"
	"github.com/zeebo/errs"
	"gopkg.in/yaml.v2"
)

var Error = errs.Class("layout")

// ErrNotFound 目录下没有该名称的布局
var ErrNotFound = errors.New("layout not found")

// Row 按字段名取值的一行数据
type Row = map[string]any

type StyleSpec struct {
	Bold        bool    `yaml:"bold"`
	Italic      bool    `yaml:"italic"`
	Font        string  `yaml:"font"`
	Size        float64 `yaml:"size"`
	Color       string  `yaml:"color"`
	Fill        string  `yaml:"fill"`
	Align       string  `yaml:"align"`
	VAlign      string  `yaml:"valign"`
	Wrap        bool    `yaml:"wrap"`
	Border      string  `yaml:"border"`
	BorderColor string  `yaml:"border_color"`
	Format      string  `yaml:"format"`
}

type Column struct {
	Field   string     `yaml:"field"`
	Title   string     `yaml:"title"`
	Width   float64    `yaml:"width"`
	Format  string     `yaml:"format"`
	Default any        `yaml:"default"`
	Style   *StyleSpec `yaml:"style"`
}

type Layout struct {
	Name         string     `yaml:"name"`
	Sheet        string     `yaml:"sheet"`
	RowStart     int        `yaml:"row_start"`
	ColStart     int        `yaml:"col_start"`
	HeaderHeight float64    `yaml:"header_height"`
	HeaderStyle  *StyleSpec `yaml:"header_style"`
	Query        string     `yaml:"query"`
	Columns      []Column   `yaml:"columns"`
}

func Parse(data []byte) (*Layout, error) {
	var l Layout
	if err := yaml.UnmarshalStrict(data, &l); err != nil {
		return nil, Error.Wrap(err)
	}
	if err := l.validate(); err != nil {
		return nil, err
	}
	return &l, nil
}

func Load(path string) (*Layout, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, Error.Wrap(err)
	}
	return Parse(data)
}

// Find 在 dir 中按名称查找 name.yaml 或 name.yml，名称不能包含路径
func Find(dir, name string) (*Layout, error) {
	if name == "" || name != filepath.Base(name) || strings.HasPrefix(name, ".") {
		return nil, Error.New("%w: %q", ErrNotFound, name)
	}
	for _, ext := range []string{".yaml", ".yml"} {
		l, err := Load(filepath.Join(dir, name+ext))
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			return nil, err
		}
		if l.Name == "" {
			l.Name = name
		}
		return l, nil
	}
	return nil, Error.New("%w: %q", ErrNotFound, name)
}

func (l *Layout) validate() error {
	if l.RowStart < 0 || l.ColStart < 0 {
		return Error.New("row_start and col_start must not be negative")
	}
	if len(l.Columns) == 0 {
		return Error.New("no columns defined")
	}
	seen := map[string]bool{}
	for i := range l.Columns {
		c := &l.Columns[i]
		if c.Field == "" {
			return Error.New("column %d: field is required", i)
		}
		if c.Title == "" {
			c.Title = c.Field
		}
		if seen[c.Title] {
			return Error.New("duplicate column title: %q", c.Title)
		}
		seen[c.Title] = true
		if _, err := l.ColumnStylizer(*c); err != nil {
			return Error.New("column %q: %w", c.Title, err)
		}
	}
	if _, err := l.Stylizer(l.HeaderStyle); err != nil {
		return Error.New("header_style: %w", err)
	}
	return nil
}

var borders = map[string]workbook.BorderStyle{
	"none":   workbook.BorderNone,
	"thin":   workbook.BorderThin,
	"medium": workbook.BorderMedium,
	"dashed": workbook.BorderDashed,
	"dotted": workbook.BorderDotted,
	"thick":  workbook.BorderThick,
	"double": workbook.BorderDouble,
	"hair":   workbook.BorderHair,
}

var aligns = map[string]workbook.HorizontalAlignment{
	"general":     workbook.AlignGeneral,
	"left":        workbook.AlignLeft,
	"center":      workbook.AlignCenter,
	"right":       workbook.AlignRight,
	"fill":        workbook.AlignFill,
	"justify":     workbook.AlignJustify,
	"distributed": workbook.AlignDistributed,
}

var valigns = map[string]workbook.VerticalAlignment{
	"top":         workbook.VerticalTop,
	"center":      workbook.VerticalCenter,
	"bottom":      workbook.VerticalBottom,
	"justify":     workbook.VerticalJustify,
	"distributed": workbook.VerticalDistributed,
}

// Stylizer 把样式描述转成 CellStylizer，spec 为 nil 时返回 nil
func (l *Layout) Stylizer(spec *StyleSpec) (*workbook.CellStylizer, error) {
	if spec == nil {
		return nil, nil
	}
	s := workbook.NewStylizer()
	if spec.Border != "" {
		b, ok := borders[strings.ToLower(spec.Border)]
		if !ok {
			return nil, Error.New("unknown border: %q", spec.Border)
		}
		s.AllBorders(b)
	}
	if spec.BorderColor != "" {
		s.BorderColor(spec.BorderColor)
	}
	if spec.Fill != "" {
		s.ForegroundColor(spec.Fill)
	}
	if spec.Bold {
		s.FontBold()
	}
	if spec.Italic {
		s.FontItalic()
	}
	if spec.Font != "" {
		s.FontName(spec.Font)
	}
	if spec.Size > 0 {
		s.FontSize(spec.Size)
	}
	if spec.Color != "" {
		s.FontColor(spec.Color)
	}
	if spec.Align != "" {
		a, ok := aligns[strings.ToLower(spec.Align)]
		if !ok {
			return nil, Error.New("unknown align: %q", spec.Align)
		}
		s.Alignment(a)
	}
	if spec.VAlign != "" {
		a, ok := valigns[strings.ToLower(spec.VAlign)]
		if !ok {
			return nil, Error.New("unknown valign: %q", spec.VAlign)
		}
		s.VerticalAlignment(a)
	}
	if spec.Wrap {
		s.WrapText()
	}
	if spec.Format != "" {
		s.NumberFormat(spec.Format)
	}
	return s, nil
}

// ColumnStylizer 列样式，列上的 format 优先于 style.format
func (l *Layout) ColumnStylizer(c Column) (*workbook.CellStylizer, error) {
	spec := c.Style
	if c.Format != "" {
		merged := StyleSpec{}
		if spec != nil {
			merged = *spec
		}
		merged.Format = c.Format
		spec = &merged
	}
	return l.Stylizer(spec)
}

func (c Column) value(row Row) any {
	if v, ok := row[c.Field]; ok && v != nil {
		return v
	}
	return c.Default
}

// Mappers 按列顺序生成取值器
func (l *Layout) Mappers() *workbook.RowMappers[Row] {
	m := workbook.NewRowMappers[Row]()
	for _, c := range l.Columns {
		c := c
		m.AddFunc(c.Title, c.value, nil)
	}
	return m
}

// ListOptions 写入工作表的位置
func (l *Layout) ListOptions() []workbook.ListOption {
	opts := []workbook.ListOption{workbook.WithRowStart(l.RowStart), workbook.WithColStart(l.ColStart)}
	if l.Sheet != "" {
		opts = append(opts, workbook.WithSheet(l.Sheet))
	}
	return opts
}

// Apply 把列、列宽、表头样式配置到 ListMapper
func (l *Layout) Apply(lm *workbook.ListMapper[Row]) error {
	header, err := l.Stylizer(l.HeaderStyle)
	if err != nil {
		return err
	}
	if header != nil {
		lm.WithHeaderStyle(header)
	}
	if l.HeaderHeight > 0 {
		lm.WithHeaderHeight(l.HeaderHeight)
	}
	for _, c := range l.Columns {
		style, err := l.ColumnStylizer(c)
		if err != nil {
			return err
		}
		if style != nil {
			lm.WithColumnStyle(c.Title, c.value, style)
		} else {
			lm.WithColumn(c.Title, c.value)
		}
		if c.Width > 0 {
			lm.WithColumnWidth(c.Title, c.Width)
		}
	}
	return nil
}

// Build 把 rows 写入新的工作簿
func (l *Layout) Build(rows []Row, typ workbook.Type) (*workbook.Manager, error) {
	lm := workbook.FromItemsTyped(rows, typ, l.ListOptions()...)
	if err := l.Apply(lm); err != nil {
		return nil, err
	}
	return lm.Build()
}

// ExportOptions 流式导出使用的选项
func (l *Layout) ExportOptions() ([]export.Option, error) {
	opts := []export.Option{export.WithRowStart(l.RowStart), export.WithColStart(l.ColStart)}
	if l.Sheet != "" {
		opts = append(opts, export.WithSheetName(l.Sheet))
	}
	header, err := l.Stylizer(l.HeaderStyle)
	if err != nil {
		return nil, err
	}
	if header != nil {
		opts = append(opts, export.WithHeaderStyle(header))
	}
	widths := make([]float64, len(l.Columns))
	styles := make([]*workbook.CellStylizer, len(l.Columns))
	for i, c := range l.Columns {
		widths[i] = c.Width
		if styles[i], err = l.ColumnStylizer(c); err != nil {
			return nil, err
		}
	}
	return append(opts, export.WithColWidths(widths...), export.WithColStyles(styles...)), nil
}

package workbook

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
)

// BorderStyle 边框样式，取值与 excelize 的边框样式编号一致
type BorderStyle int

const (
	BorderNone BorderStyle = iota
	BorderThin
	BorderMedium
	BorderDashed
	BorderDotted
	BorderThick
	BorderDouble
	BorderHair
	BorderMediumDashed
	BorderDashDot
	BorderMediumDashDot
	BorderDashDotDot
	BorderMediumDashDotDot
	BorderSlantDashDot
)

// FillPattern 填充图案，取值与 excelize 的图案编号一致
type FillPattern int

const (
	FillNone FillPattern = iota
	FillSolid
	FillMediumGray
	FillDarkGray
	FillLightGray
	FillDarkHorizontal
	FillDarkVertical
	FillDarkDown
	FillDarkUp
	FillDarkGrid
	FillDarkTrellis
	FillLightHorizontal
	FillLightVertical
	FillLightDown
	FillLightUp
	FillLightGrid
	FillLightTrellis
	FillGray125
	FillGray0625
)

type HorizontalAlignment string

const (
	AlignGeneral          HorizontalAlignment = "general"
	AlignLeft             HorizontalAlignment = "left"
	AlignCenter           HorizontalAlignment = "center"
	AlignRight            HorizontalAlignment = "right"
	AlignFill             HorizontalAlignment = "fill"
	AlignJustify          HorizontalAlignment = "justify"
	AlignCenterContinuous HorizontalAlignment = "centerContinuous"
	AlignDistributed      HorizontalAlignment = "distributed"
)

type VerticalAlignment string

const (
	VerticalTop         VerticalAlignment = "top"
	VerticalCenter      VerticalAlignment = "center"
	VerticalBottom      VerticalAlignment = "bottom"
	VerticalJustify     VerticalAlignment = "justify"
	VerticalDistributed VerticalAlignment = "distributed"
)

// IndexedColor 旧版调色板的颜色名称，值为对应的十六进制颜色
type IndexedColor string

const (
	Black          IndexedColor = "000000"
	White          IndexedColor = "FFFFFF"
	Red            IndexedColor = "FF0000"
	BrightGreen    IndexedColor = "00FF00"
	Blue           IndexedColor = "0000FF"
	Yellow         IndexedColor = "FFFF00"
	Pink           IndexedColor = "FF00FF"
	Turquoise      IndexedColor = "00FFFF"
	DarkRed        IndexedColor = "800000"
	Green          IndexedColor = "008000"
	DarkBlue       IndexedColor = "000080"
	DarkYellow     IndexedColor = "808000"
	Violet         IndexedColor = "800080"
	Teal           IndexedColor = "008080"
	Grey25         IndexedColor = "C0C0C0"
	Grey40         IndexedColor = "969696"
	Grey50         IndexedColor = "808080"
	Grey80         IndexedColor = "333333"
	SkyBlue        IndexedColor = "00CCFF"
	LightTurquoise IndexedColor = "CCFFFF"
	LightGreen     IndexedColor = "CCFFCC"
	LightYellow    IndexedColor = "FFFF99"
	PaleBlue       IndexedColor = "99CCFF"
	Rose           IndexedColor = "FF99CC"
	Lavender       IndexedColor = "CC99FF"
	Tan            IndexedColor = "FFCC99"
	LightBlue      IndexedColor = "3366FF"
	Aqua           IndexedColor = "33CCCC"
	Lime           IndexedColor = "99CC00"
	Gold           IndexedColor = "FFCC00"
	LightOrange    IndexedColor = "FF9900"
	Orange         IndexedColor = "FF6600"
	Coral          IndexedColor = "FF8080"
	SeaGreen       IndexedColor = "339966"
	DarkGreen      IndexedColor = "003300"
	OliveGreen     IndexedColor = "333300"
	Brown          IndexedColor = "993300"
	Plum           IndexedColor = "993366"
	Indigo         IndexedColor = "333399"
	DarkTeal       IndexedColor = "003366"
)

var borderSides = []string{"top", "right", "bottom", "left"}

// styleHolder 单次 Build 过程中的样式，首次访问时才创建，字体同理
type styleHolder struct {
	style       *excelize.Style
	borderColor string
}

func (h *styleHolder) get() *excelize.Style {
	if h.style == nil {
		h.style = &excelize.Style{}
	}
	return h.style
}

func (h *styleHolder) font() *excelize.Font {
	s := h.get()
	if s.Font == nil {
		s.Font = &excelize.Font{}
	}
	return s.Font
}

func (h *styleHolder) alignment() *excelize.Alignment {
	s := h.get()
	if s.Alignment == nil {
		s.Alignment = &excelize.Alignment{}
	}
	return s.Alignment
}

func (h *styleHolder) setBorder(side string, style BorderStyle) {
	s := h.get()
	borders := s.Border[:0]
	for _, b := range s.Border {
		if b.Type != side {
			borders = append(borders, b)
		}
	}
	if style != BorderNone {
		borders = append(borders, excelize.Border{Type: side, Color: h.borderColor, Style: int(style)})
	}
	s.Border = borders
}

type styleOp func(h *styleHolder) error

// CellStylizer collects style operations and registers the resulting
// style with a workbook on Build. Operations run in the order they were
// added, so later ones win.
type CellStylizer struct {
	ops []styleOp
}

func NewStylizer() *CellStylizer {
	return &CellStylizer{}
}

func (s *CellStylizer) add(op styleOp) *CellStylizer {
	s.ops = append(s.ops, op)
	return s
}

// Len 已添加的操作数量
func (s *CellStylizer) Len() int {
	return len(s.ops)
}

func (s *CellStylizer) AllBorders(style BorderStyle) *CellStylizer {
	return s.OnlyBorders(style, style, style, style)
}

// OnlyBorders 分别设置上右下左边框，BorderNone 表示去掉该边
func (s *CellStylizer) OnlyBorders(top, right, bottom, left BorderStyle) *CellStylizer {
	return s.add(func(h *styleHolder) error {
		for i, style := range []BorderStyle{top, right, bottom, left} {
			if style < BorderNone || style > BorderSlantDashDot {
				return fmt.Errorf("invalid border style: %d", style)
			}
			h.setBorder(borderSides[i], style)
		}
		return nil
	})
}

// BorderColor 设置已有及之后添加的边框颜色
func (s *CellStylizer) BorderColor(hex string) *CellStylizer {
	return s.add(func(h *styleHolder) error {
		c, err := normalizeColor(hex)
		if err != nil {
			return err
		}
		h.borderColor = c
		st := h.get()
		for i := range st.Border {
			st.Border[i].Color = c
		}
		return nil
	})
}

func (s *CellStylizer) Center() *CellStylizer {
	return s.add(func(h *styleHolder) error {
		a := h.alignment()
		a.Horizontal, a.Vertical = string(AlignCenter), string(VerticalCenter)
		return nil
	})
}

func (s *CellStylizer) ForegroundColor(hex string) *CellStylizer {
	return s.ForegroundPattern(hex, FillSolid)
}

func (s *CellStylizer) ForegroundPattern(hex string, pattern FillPattern) *CellStylizer {
	return s.add(func(h *styleHolder) error {
		c, err := normalizeColor(hex)
		if err != nil {
			return err
		}
		return setFill(h, c, pattern)
	})
}

func (s *CellStylizer) ForegroundRGB(r, g, b int) *CellStylizer {
	return s.ForegroundRGBPattern(r, g, b, FillSolid)
}

func (s *CellStylizer) ForegroundRGBPattern(r, g, b int, pattern FillPattern) *CellStylizer {
	return s.add(func(h *styleHolder) error {
		c, err := rgbColor(r, g, b)
		if err != nil {
			return err
		}
		return setFill(h, c, pattern)
	})
}

func (s *CellStylizer) ForegroundIndexed(color IndexedColor) *CellStylizer {
	return s.ForegroundPattern(string(color), FillSolid)
}

func (s *CellStylizer) ForegroundIndexedPattern(color IndexedColor, pattern FillPattern) *CellStylizer {
	return s.ForegroundPattern(string(color), pattern)
}

func (s *CellStylizer) FontColor(hex string) *CellStylizer {
	return s.add(func(h *styleHolder) error {
		c, err := normalizeColor(hex)
		if err != nil {
			return err
		}
		h.font().Color = c
		return nil
	})
}

func (s *CellStylizer) FontColorIndexed(color IndexedColor) *CellStylizer {
	return s.FontColor(string(color))
}

func (s *CellStylizer) FontBold() *CellStylizer {
	return s.add(func(h *styleHolder) error {
		h.font().Bold = true
		return nil
	})
}

func (s *CellStylizer) FontItalic() *CellStylizer {
	return s.add(func(h *styleHolder) error {
		h.font().Italic = true
		return nil
	})
}

func (s *CellStylizer) FontSize(points float64) *CellStylizer {
	return s.add(func(h *styleHolder) error {
		if points <= 0 || points > excelize.MaxFontSize {
			return fmt.Errorf("invalid font size: %v", points)
		}
		h.font().Size = points
		return nil
	})
}

func (s *CellStylizer) FontName(name string) *CellStylizer {
	return s.add(func(h *styleHolder) error {
		h.font().Family = name
		return nil
	})
}

func (s *CellStylizer) Alignment(align HorizontalAlignment) *CellStylizer {
	return s.add(func(h *styleHolder) error {
		h.alignment().Horizontal = string(align)
		return nil
	})
}

func (s *CellStylizer) VerticalAlignment(align VerticalAlignment) *CellStylizer {
	return s.add(func(h *styleHolder) error {
		h.alignment().Vertical = string(align)
		return nil
	})
}

func (s *CellStylizer) WrapText() *CellStylizer {
	return s.add(func(h *styleHolder) error {
		h.alignment().WrapText = true
		return nil
	})
}

// NumberFormat 自定义数字格式，如 "0.00%"、"yyyy-mm-dd"
func (s *CellStylizer) NumberFormat(code string) *CellStylizer {
	return s.add(func(h *styleHolder) error {
		h.get().CustomNumFmt = &code
		return nil
	})
}

// Build applies the collected operations and registers the style with f.
// A stylizer without operations returns the workbook default style 0.
func (s *CellStylizer) Build(f *excelize.File) (int, error) {
	return s.BuildWith(f, zap.L())
}

// BuildWith 与 Build 相同，日志写到 logger
func (s *CellStylizer) BuildWith(f *excelize.File, logger *zap.Logger) (int, error) {
	if s == nil || len(s.ops) == 0 {
		logger.Debug("stylizer has no operations, using default style")
		return 0, nil
	}
	h := &styleHolder{}
	for _, op := range s.ops {
		if err := op(h); err != nil {
			return 0, Error.Wrap(err)
		}
	}
	id, err := f.NewStyle(h.get())
	return id, Error.Wrap(err)
}

func setFill(h *styleHolder, color string, pattern FillPattern) error {
	if pattern < FillNone || pattern > FillGray0625 {
		return fmt.Errorf("invalid fill pattern: %d", pattern)
	}
	h.get().Fill = excelize.Fill{Type: "pattern", Pattern: int(pattern), Color: []string{color}}
	return nil
}

func rgbColor(r, g, b int) (string, error) {
	for _, v := range []int{r, g, b} {
		if v < 0 || v > 255 {
			return "", fmt.Errorf("invalid rgb color: (%d, %d, %d)", r, g, b)
		}
	}
	return fmt.Sprintf("%02X%02X%02X", r, g, b), nil
}

// normalizeColor 去掉 # 并转大写，支持 RGB 和 ARGB
func normalizeColor(hex string) (string, error) {
	c := strings.ToUpper(strings.TrimPrefix(strings.TrimSpace(hex), "#"))
	if len(c) != 6 && len(c) != 8 {
		return "", fmt.Errorf("invalid color: %q", hex)
	}
	for _, r := range c {
		if (r < '0' || r > '9') && (r < 'A' || r > 'F') {
			return "", fmt.Errorf("invalid color: %q", hex)
		}
	}
	return c, nil
}

// styleCache 同一个 stylizer 在一个工作簿里只注册一次
type styleCache struct {
	file   *excelize.File
	logger *zap.Logger
	ids    map[*CellStylizer]int
}

func newStyleCache(f *excelize.File, logger *zap.Logger) *styleCache {
	return &styleCache{file: f, logger: logger, ids: make(map[*CellStylizer]int)}
}

func (c *styleCache) get(s *CellStylizer) (int, error) {
	if id, ok := c.ids[s]; ok {
		return id, nil
	}
	id, err := s.BuildWith(c.file, c.logger)
	if err != nil {
		return 0, err
	}
	c.ids[s] = id
	return id, nil
}

// AutoSizeColumns 按每列最宽的文本（多行取最长一行）估算列宽并乘以 multiplier，
// 超过 excelize 最大列宽的不设置。列号从0开始，包含 endCol。
func AutoSizeColumns(f *excelize.File, sheet string, startCol, endCol int, multiplier float64) error {
	if multiplier <= 0 {
		multiplier = 1
	}
	cols, err := f.GetCols(sheet)
	if err != nil {
		return Error.Wrap(err)
	}
	for col := startCol; col <= endCol && col < len(cols); col++ {
		widest := 0
		for _, v := range cols[col] {
			for _, line := range strings.Split(v, "\n") {
				if w := textWidth(line); w > widest {
					widest = w
				}
			}
		}
		width := float64(widest) * multiplier
		if width <= 0 || width > excelize.MaxColumnWidth {
			continue
		}
		name, err := excelize.ColumnNumberToName(col + 1)
		if err != nil {
			return Error.Wrap(err)
		}
		if err = f.SetColWidth(sheet, name, name, width); err != nil {
			return Error.Wrap(err)
		}
	}
	return nil
}

// textWidth 宽字符按两个字符宽度计算
func textWidth(s string) int {
	w := 0
	for _, r := range s {
		if utf8.RuneLen(r) > 2 {
			w += 2
		} else {
			w++
		}
	}
	return w
}

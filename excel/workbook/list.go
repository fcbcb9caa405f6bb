package workbook

import (
	"go.uber.org/zap"
)

// ListMapper writes a list of items into a sheet: one header row at the
// start row followed by one row per item. Rows already occupied at the
// insertion point are shifted down instead of overwritten.
type ListMapper[T any] struct {
	items        []T
	manager      *Manager
	options      *listOptions
	mappers      *RowMappers[T]
	styles       *styleCache
	headerStyle  *CellStylizer
	headerHeight float64
	widths       map[string]float64
	sheetFuncs   []SheetFunc
	onProgress   ProgressFunc
	forEachRow   RowFunc[T]
}

// FromItems 写入新建的 xlsx 工作簿
func FromItems[T any](items []T, opts ...ListOption) *ListMapper[T] {
	return FromItemsTyped(items, XLSX, opts...)
}

func FromItemsTyped[T any](items []T, typ Type, opts ...ListOption) *ListMapper[T] {
	return newListMapper(items, NewTyped(typ), opts...)
}

// FromItemsInto 写入已有工作簿，startRow 为表头所在行（从0开始）
func FromItemsInto[T any](items []T, m *Manager, startRow int, opts ...ListOption) *ListMapper[T] {
	return newListMapper(items, m, append(append([]ListOption{}, opts...), WithRowStart(startRow))...)
}

func newListMapper[T any](items []T, m *Manager, opts ...ListOption) *ListMapper[T] {
	return &ListMapper[T]{
		items:   items,
		manager: m,
		options: newListOptions(opts...),
		mappers: NewRowMappers[T](),
		styles:  newStyleCache(m.file, m.options.logger),
		widths:  make(map[string]float64),
	}
}

func (lm *ListMapper[T]) WithColumn(name string, getter func(item T) any) *ListMapper[T] {
	lm.mappers.AddFunc(name, getter, nil)
	return lm
}

// WithIndexedColumn 取值函数同时拿到数据下标
func (lm *ListMapper[T]) WithIndexedColumn(name string, getter func(item T, index int) any) *ListMapper[T] {
	lm.mappers.Add(name, getter, nil)
	return lm
}

func (lm *ListMapper[T]) WithColumnFunc(name string, getter func(item T) any, action CellFunc) *ListMapper[T] {
	lm.mappers.AddFunc(name, getter, action)
	return lm
}

// WithColumnStyle 列样式，同一个 stylizer 只会注册一次
func (lm *ListMapper[T]) WithColumnStyle(name string, getter func(item T) any, style *CellStylizer) *ListMapper[T] {
	return lm.WithColumnFunc(name, getter, func(cell Cell) error {
		id, err := lm.styles.get(style)
		if err != nil {
			return err
		}
		return cell.SetStyle(id)
	})
}

func (lm *ListMapper[T]) WithColumnWidth(name string, width float64) *ListMapper[T] {
	lm.widths[name] = width
	return lm
}

func (lm *ListMapper[T]) WithHeaderStyle(style *CellStylizer) *ListMapper[T] {
	lm.headerStyle = style
	return lm
}

func (lm *ListMapper[T]) WithHeaderHeight(points float64) *ListMapper[T] {
	lm.headerHeight = points
	return lm
}

// ConfigureSheet 所有数据写入后执行
func (lm *ListMapper[T]) ConfigureSheet(fn SheetFunc) *ListMapper[T] {
	if fn != nil {
		lm.sheetFuncs = append(lm.sheetFuncs, fn)
	}
	return lm
}

func (lm *ListMapper[T]) OnProgress(fn ProgressFunc) *ListMapper[T] {
	lm.onProgress = fn
	return lm
}

func (lm *ListMapper[T]) ForEachRow(fn RowFunc[T]) *ListMapper[T] {
	lm.forEachRow = fn
	return lm
}

// Mappers 当前配置的列
func (lm *ListMapper[T]) Mappers() *RowMappers[T] {
	return lm.mappers
}

// Build writes the header and all rows and returns the manager owning the
// workbook. The first error aborts the build.
func (lm *ListMapper[T]) Build() (*Manager, error) {
	f := lm.manager.file
	logger := lm.manager.options.logger
	sheet, err := lm.resolveSheet()
	if err != nil {
		return nil, err
	}
	rows, err := f.GetRows(sheet, rawValue)
	if err != nil {
		return nil, Error.Wrap(err)
	}
	index := newRowIndex(rows)
	start, size := lm.options.rowStart, len(lm.items)

	if last := index.last(); last > start && size > 0 {
		if err = f.InsertRows(sheet, start+1, size); err != nil {
			return nil, Error.Wrap(err)
		}
		index = index.insert(start, size)
	}
	for r := start; r <= start+size; r++ {
		if !index.occupied(r) {
			continue
		}
		logger.Debug("row already exists, shifting rows, this could be a performance issue",
			zap.String("sheet", sheet), zap.Int("row", r))
		if err = f.InsertRows(sheet, r+1, 1); err != nil {
			return nil, Error.Wrap(err)
		}
		index = index.insert(r, 1)
	}

	if err = lm.writeHeader(sheet, start); err != nil {
		return nil, err
	}
	for i, item := range lm.items {
		if err = lm.writeRow(NewRow(f, sheet, start+1+i), item, i); err != nil {
			return nil, err
		}
		if lm.onProgress != nil {
			lm.onProgress(i+1, size)
		}
	}
	s := NewSheet(f, sheet)
	for _, fn := range lm.sheetFuncs {
		if err = fn(s); err != nil {
			return nil, Error.Wrap(err)
		}
	}
	return lm.manager, nil
}

func (lm *ListMapper[T]) resolveSheet() (string, error) {
	f := lm.manager.file
	name := lm.options.sheet
	if name == "" {
		if list := f.GetSheetList(); len(list) > 0 {
			return list[0], nil
		}
		name = "Sheet1"
	}
	idx, err := f.GetSheetIndex(name)
	if err != nil {
		return "", Error.Wrap(err)
	}
	if idx == -1 {
		if _, err = f.NewSheet(name); err != nil {
			return "", Error.Wrap(err)
		}
	}
	return name, nil
}

func (lm *ListMapper[T]) writeHeader(sheet string, rowNum int) error {
	f := lm.manager.file
	styleID := -1
	if lm.headerStyle != nil {
		id, err := lm.styles.get(lm.headerStyle)
		if err != nil {
			return err
		}
		styleID = id
	}
	s := NewSheet(f, sheet)
	for j, name := range lm.mappers.ColumnNames() {
		col := lm.options.colStart + j
		cell := s.Cell(rowNum, col)
		if err := cell.SetValue(name); err != nil {
			return err
		}
		if styleID >= 0 {
			if err := cell.SetStyle(styleID); err != nil {
				return err
			}
		}
		if w, ok := lm.widths[name]; ok {
			if err := s.SetColWidth(col, w); err != nil {
				return err
			}
		}
	}
	if lm.headerHeight > 0 {
		return s.Row(rowNum).SetHeight(lm.headerHeight)
	}
	return nil
}

func (lm *ListMapper[T]) writeRow(row Row, item T, index int) error {
	for j, m := range lm.mappers.mappers {
		cell := row.Cell(lm.options.colStart + j)
		if err := cell.SetValue(m.Get(item, index)); err != nil {
			return err
		}
		if err := m.Apply(cell); err != nil {
			return Error.Wrap(err)
		}
	}
	if lm.forEachRow != nil {
		return Error.Wrap(lm.forEachRow(row, item))
	}
	return nil
}

// rowIndex 记录每行是否有内容，插入行时同步移动，避免每次都重新读取整个工作表
type rowIndex []bool

// newRowIndex 以 GetRows 的结果建立索引。GetRows 只收录有值或有公式的单元格，
// 只有公式、还没有计算结果的单元格以空字符串出现，所以非空切片即为有内容的行。
func newRowIndex(rows [][]string) rowIndex {
	idx := make(rowIndex, len(rows))
	for i, r := range rows {
		idx[i] = len(r) > 0
	}
	return idx
}

func (ri rowIndex) occupied(r int) bool {
	return r >= 0 && r < len(ri) && ri[r]
}

func (ri rowIndex) last() int {
	for i := len(ri) - 1; i >= 0; i-- {
		if ri[i] {
			return i
		}
	}
	return -1
}

// insert 在 at 之前插入 n 个空行
func (ri rowIndex) insert(at, n int) rowIndex {
	if at >= len(ri) {
		return ri
	}
	out := make(rowIndex, 0, len(ri)+n)
	out = append(out, ri[:at]...)
	out = append(out, make(rowIndex, n)...)
	return append(out, ri[at:]...)
}

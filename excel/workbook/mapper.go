package workbook

// RowMapper 一列的映射：列名、取值函数和单元格写入后的处理
type RowMapper[T any] struct {
	Column string
	Getter func(item T, index int) any
	Action CellFunc
}

// Get 取值，index 为数据在列表中的下标
func (m RowMapper[T]) Get(item T, index int) any {
	if m.Getter == nil {
		return nil
	}
	return m.Getter(item, index)
}

// Apply 执行单元格处理，未设置时什么也不做
func (m RowMapper[T]) Apply(cell Cell) error {
	if m.Action == nil {
		return nil
	}
	return m.Action(cell)
}

// RowMappers is an ordered list of column mappings.
type RowMappers[T any] struct {
	mappers []RowMapper[T]
}

func NewRowMappers[T any]() *RowMappers[T] {
	return &RowMappers[T]{}
}

func (r *RowMappers[T]) Add(column string, getter func(item T, index int) any, action CellFunc) *RowMappers[T] {
	r.mappers = append(r.mappers, RowMapper[T]{Column: column, Getter: getter, Action: action})
	return r
}

func (r *RowMappers[T]) AddFunc(column string, getter func(item T) any, action CellFunc) *RowMappers[T] {
	var g func(T, int) any
	if getter != nil {
		g = func(item T, _ int) any {
			return getter(item)
		}
	}
	return r.Add(column, g, action)
}

func (r *RowMappers[T]) ColumnNames() []string {
	names := make([]string, len(r.mappers))
	for i := range r.mappers {
		names[i] = r.mappers[i].Column
	}
	return names
}

func (r *RowMappers[T]) Mappers() []RowMapper[T] {
	return append([]RowMapper[T](nil), r.mappers...)
}

func (r *RowMappers[T]) Len() int {
	return len(r.mappers)
}

// Values 按列顺序取出一行数据
func (r *RowMappers[T]) Values(item T, index int) []any {
	values := make([]any, len(r.mappers))
	for i := range r.mappers {
		values[i] = r.mappers[i].Get(item, index)
	}
	return values
}

// Index 列名对应的下标，不存在返回 -1
func (r *RowMappers[T]) Index(column string) int {
	for i := range r.mappers {
		if r.mappers[i].Column == column {
			return i
		}
	}
	return -1
}

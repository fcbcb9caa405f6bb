package iterator

import "github.com/opdss/sheetkit/contracts/iterator"

var _ iterator.Iterator[any] = (*SliceIterator[any])(nil)

// SliceIterator 数组数据迭代器
type SliceIterator[T any] struct {
	index int
	data  []T
}

func NewSliceIterator[T any](data []T) *SliceIterator[T] {
	return &SliceIterator[T]{
		data: data,
	}
}

func (dp *SliceIterator[T]) Next() bool {
	return dp.index < len(dp.data)
}

func (dp *SliceIterator[T]) Value() T {
	defer func() {
		dp.index++
	}()
	if dp.index < len(dp.data) {
		return dp.data[dp.index]
	}
	var v T
	return v
}

// Collect 读取迭代器剩余的全部数据
func Collect[T any](it iterator.Iterator[T]) []T {
	var out []T
	for it.Next() {
		out = append(out, it.Value())
	}
	return out
}

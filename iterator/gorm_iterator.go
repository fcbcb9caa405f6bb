package iterator

import (
	"context"
	"time"

	"github.com/opdss/sheetkit/contracts/iterator"
	"github.com/zeebo/errs"
	"gorm.io/gorm"
)

// Error 迭代器查询错误
var Error = errs.Class("iterator")

var _ iterator.Iterator[any] = (*GormIterator[any])(nil)

type GormIteratorOption[T any] func(provider *GormIterator[T])

// WithGormIteratorLimit 数据批量查询数量
func WithGormIteratorLimit[T any](n int) GormIteratorOption[T] {
	return func(provider *GormIterator[T]) {
		if n > 0 {
			provider.limit = n
		}
	}
}

// WithGormIteratorQueryTimeout 单次查询超时控制
func WithGormIteratorQueryTimeout[T any](t time.Duration) GormIteratorOption[T] {
	return func(provider *GormIterator[T]) {
		if t > 0 {
			provider.queryTimeout = t
		}
	}
}

// WithGormIteratorFind 使用 Find 查询，默认 Scan
func WithGormIteratorFind[T any]() GormIteratorOption[T] {
	return func(provider *GormIterator[T]) {
		provider.findMode = true
	}
}

// GormIterator gorm 分页查询迭代器，注意 T 不能是指针
type GormIterator[T any] struct {
	tx           *gorm.DB
	rawSql       string
	rawArgs      []any
	offset       int
	limit        int
	hasMore      bool
	findMode     bool
	queryTimeout time.Duration
	sliceIter    *SliceIterator[T]
	err          error
}

func NewGormIterator[T any](tx *gorm.DB, opts ...GormIteratorOption[T]) *GormIterator[T] {
	g := &GormIterator[T]{
		tx:           tx,
		limit:        2000,
		hasMore:      true,
		queryTimeout: time.Second * 30,
		sliceIter:    NewSliceIterator(make([]T, 0)),
	}
	for i := range opts {
		opts[i](g)
	}
	return g
}

// NewSqlIterator 原生 sql 分页查询，sql 末尾会追加 LIMIT/OFFSET
func NewSqlIterator[T any](db *gorm.DB, selectSql string, args []any, opts ...GormIteratorOption[T]) *GormIterator[T] {
	g := NewGormIterator[T](db, opts...)
	g.rawSql = selectSql
	g.rawArgs = args
	return g
}

func (dp *GormIterator[T]) Next() bool {
	if !dp.hasMore {
		return false
	}
	if dp.sliceIter.Next() {
		return true
	}
	res := make([]T, 0, dp.limit)
	ctx, cancel := context.WithTimeout(context.Background(), dp.queryTimeout)
	defer cancel()
	if err := dp.query(ctx, &res); err != nil {
		dp.err = Error.Wrap(err)
		dp.hasMore = false
		return false
	}
	if len(res) == 0 {
		dp.hasMore = false
		return false
	}
	dp.offset += len(res)
	dp.sliceIter = NewSliceIterator(res)
	return dp.sliceIter.Next()
}

func (dp *GormIterator[T]) query(ctx context.Context, res *[]T) error {
	tx := dp.tx.WithContext(ctx)
	if dp.rawSql != "" {
		args := append(append([]any{}, dp.rawArgs...), dp.limit, dp.offset)
		return tx.Raw(dp.rawSql+" LIMIT ? OFFSET ?", args...).Scan(res).Error
	}
	tx = tx.Offset(dp.offset).Limit(dp.limit)
	if dp.findMode {
		return tx.Find(res).Error
	}
	return tx.Scan(res).Error
}

func (dp *GormIterator[T]) Value() T {
	return dp.sliceIter.Value()
}

func (dp *GormIterator[T]) Err() error {
	return dp.err
}

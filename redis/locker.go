package redis

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/opdss/sheetkit/contracts/locker"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

var ErrTimeout = errors.New("try lock time out")
var ErrFailure = errors.New("get lock failure")
var ErrNotLocked = errors.New("lock not held")

const delLua = `if redis.call("get",KEYS[1]) == ARGV[1] then return redis.call("del",KEYS[1]) end return 0`

var unlockScript = redis.NewScript(delLua)

var _ locker.Locker = (*Locker)(nil)

// Locker 基于redis实现的分布式锁
type Locker struct {
	client   redis.UniversalClient
	log      *zap.Logger
	key      string
	token    string
	deadline time.Time
}

func NewLocker(key string, rdb redis.UniversalClient) *Locker {
	return &Locker{
		client: rdb,
		log:    zap.L().Named("redis.locker"),
		key:    key,
		token:  uuid.New().String(),
	}
}

// LockerFactory 按前缀生成锁，可以直接用于导出上传加锁
func LockerFactory(rdb redis.UniversalClient, prefix string) func(key string) locker.Locker {
	return func(key string) locker.Locker {
		return NewLocker(prefix+key, rdb)
	}
}

// Lock 非阻塞锁
func (l *Locker) Lock(exp time.Duration) error {
	ctx, cancel := context.WithTimeout(context.Background(), exp)
	defer cancel()
	ok, err := l.client.SetNX(ctx, l.key, l.token, exp).Result()
	if err != nil {
		return Error.Wrap(err)
	}
	if !ok {
		return Error.Wrap(ErrFailure)
	}
	l.deadline = time.Now().Add(exp)
	return nil
}

// TryLock 自旋锁，等待时间与锁时间相同
func (l *Locker) TryLock(wait time.Duration) (err error) {
	start := time.Now()
	ctx, cancel := context.WithTimeout(context.Background(), wait)
	defer cancel()
	var ok bool
	for time.Since(start) < wait {
		ok, err = l.client.SetNX(ctx, l.key, l.token, wait).Result()
		if err != nil {
			time.Sleep(time.Millisecond * 50)
			continue
		}
		if !ok {
			time.Sleep(time.Millisecond * 10)
			continue
		}
		l.deadline = time.Now().Add(wait)
		return nil
	}
	if err != nil && !errors.Is(err, context.DeadlineExceeded) {
		return Error.Wrap(err)
	}
	return Error.Wrap(ErrTimeout)
}

// Unlock 只删除自己持有的锁
func (l *Locker) Unlock() error {
	if l.deadline.IsZero() {
		return Error.Wrap(ErrNotLocked)
	}
	defer func() {
		l.deadline = time.Time{}
	}()
	if time.Now().After(l.deadline) {
		l.log.Debug("lock already expired", zap.String("key", l.key))
		return nil
	}
	ctx, cancel := context.WithDeadline(context.Background(), l.deadline)
	defer cancel()
	if err := unlockScript.Run(ctx, l.client, []string{l.key}, l.token).Err(); err != nil {
		l.log.Error("redis unlock error", zap.String("key", l.key), zap.Error(err))
		return Error.Wrap(err)
	}
	return nil
}

package db

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
	"gorm.io/gorm/logger"
)

func TestDialector(t *testing.T) {
	for _, driver := range []string{Mysql, Postgresql, Sqlite3, "SQLITE"} {
		conf := Config{Driver: driver, Dsn: "x"}
		dial, err := conf.Dialector()
		require.NoError(t, err, driver)
		assert.NotNil(t, dial)
	}
	conf := Config{Driver: "oracle"}
	_, err := conf.Dialector()
	assert.True(t, ErrDB.Has(err))
}

func TestNewDB(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	db, err := NewDB(zap.New(core), Config{
		Driver:   Sqlite3,
		Dsn:      filepath.Join(t.TempDir(), "test.db"),
		LogLevel: "info",
	})
	require.NoError(t, err)
	defer func() {
		require.NoError(t, Close(db))
	}()

	var n int
	require.NoError(t, db.Raw("SELECT 1 + 1").Scan(&n).Error)
	assert.Equal(t, 2, n)
	assert.NotZero(t, logs.FilterMessage("query").Len())

	assert.Error(t, db.Exec("SELECT * FROM missing").Error)
	assert.Equal(t, 1, logs.FilterMessage("query failed").Len())
}

func TestLoggerLevels(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	l := getLogInterface(zap.New(core), "warn", time.Millisecond)
	ctx := context.Background()
	fc := func() (string, int64) { return "SELECT 1", 1 }

	l.Info(ctx, "hidden %d", 1)
	l.Warn(ctx, "shown %d", 2)
	l.Trace(ctx, time.Now(), fc, nil)
	l.Trace(ctx, time.Now().Add(-time.Second), fc, nil)
	l.Trace(ctx, time.Now(), fc, errors.New("boom"))

	assert.Equal(t, 0, logs.FilterMessage("hidden 1").Len())
	assert.Equal(t, 1, logs.FilterMessage("shown 2").Len())
	assert.Equal(t, 0, logs.FilterMessage("query").Len())
	assert.Equal(t, 1, logs.FilterMessage("slow query").Len())
	assert.Equal(t, 1, logs.FilterMessage("query failed").Len())

	silent := l.LogMode(logger.Silent)
	silent.Trace(ctx, time.Now(), fc, errors.New("boom"))
	assert.Equal(t, 1, logs.FilterMessage("query failed").Len())
}

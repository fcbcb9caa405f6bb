package storage

import (
	"context"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opdss/sheetkit/contracts/storage"
)

func newTestLocal(t *testing.T) *Local {
	l, err := NewLocal(LocalConfig{Endpoint: "http://files.test/", Root: t.TempDir()})
	require.NoError(t, err)
	return l
}

func TestLocalPutGet(t *testing.T) {
	ctx := context.Background()
	l := newTestLocal(t)

	require.NoError(t, l.Put(ctx, "reports/a.txt", []byte("hello")))
	assert.True(t, l.Exists(ctx, "reports/a.txt"))
	assert.False(t, l.Exists(ctx, "reports/b.txt"))

	b, err := l.Get(ctx, "reports/a.txt")
	require.NoError(t, err)
	assert.Equal(t, "hello", string(b))

	rc, err := l.GetStream(ctx, "/reports/a.txt")
	require.NoError(t, err)
	b, err = io.ReadAll(rc)
	require.NoError(t, err)
	require.NoError(t, rc.Close())
	assert.Equal(t, "hello", string(b))

	size, err := l.Size(ctx, "reports/a.txt")
	require.NoError(t, err)
	assert.Equal(t, int64(5), size)

	mime, err := l.MimeType(ctx, "reports/a.txt")
	require.NoError(t, err)
	assert.Contains(t, mime, "text/plain")

	assert.Equal(t, "http://files.test/reports/a.txt", l.Url("/reports/a.txt"))

	require.NoError(t, l.Delete(ctx, "reports/a.txt"))
	assert.False(t, l.Exists(ctx, "reports/a.txt"))
	assert.Error(t, l.Delete(ctx, "reports"))
}

func TestLocalRootEscape(t *testing.T) {
	l := newTestLocal(t)
	assert.Equal(t, l.fullPath("x.txt"), l.fullPath("../../x.txt"))
	assert.Equal(t, l.root, l.fullPath(""))
}

func TestLocalListObjects(t *testing.T) {
	ctx := context.Background()
	l := newTestLocal(t)
	for _, name := range []string{"a.csv", "b.csv", "c.xlsx"} {
		require.NoError(t, l.Put(ctx, "out/"+name, []byte(name)))
	}

	res, err := l.ListObjects(ctx, &storage.ListObjectOpts{Directory: "out", MaxKeys: 2})
	require.NoError(t, err)
	require.Len(t, res.List, 2)
	assert.True(t, res.HasMore)
	assert.Equal(t, "a.csv", res.List[0].Name)
	assert.Equal(t, "out/a.csv", res.List[0].Path)
	assert.Equal(t, "http://files.test/out/a.csv", res.List[0].Url)

	res, err = l.ListObjects(ctx, &storage.ListObjectOpts{Directory: "out", NextToken: res.NextToken})
	require.NoError(t, err)
	require.Len(t, res.List, 1)
	assert.Equal(t, "c.xlsx", res.List[0].Name)
	assert.False(t, res.HasMore)

	res, err = l.ListObjects(ctx, &storage.ListObjectOpts{Directory: "out", Prefix: "c"})
	require.NoError(t, err)
	require.Len(t, res.List, 1)
}

func TestNew(t *testing.T) {
	fs, err := New(Config{Local: LocalConfig{Root: t.TempDir()}})
	require.NoError(t, err)
	assert.IsType(t, &Local{}, fs)

	_, err = New(Config{Driver: "ftp"})
	assert.True(t, Error.Has(err))

	_, err = New(Config{Driver: "s3"})
	assert.True(t, ErrS3.Has(err))
}

package storage

import (
	"bytes"
	"context"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/opdss/sheetkit/contracts/storage"
	"github.com/zeebo/errs"
)

var ErrLocal = errs.Class("storage.local")

type LocalConfig struct {
	Endpoint string `help:"访问地址" default:"http://localhost" json:"endpoint"`
	Root     string `help:"根目录" default:"$ROOT/storage" json:"root"`
}

var _ storage.FileSystem = (*Local)(nil)

type Local struct {
	root     string
	endpoint string
}

func NewLocal(config LocalConfig) (*Local, error) {
	if config.Root == "" {
		return nil, ErrLocal.New("please set root directory")
	}
	return &Local{
		root:     config.Root,
		endpoint: strings.TrimSuffix(config.Endpoint, "/"),
	}, nil
}

func (r *Local) ListObjects(ctx context.Context, opt *storage.ListObjectOpts) (*storage.ListObjectRes, error) {
	res := &storage.ListObjectRes{
		List: make([]storage.ListObject, 0),
	}
	start := opt.NextToken == ""
	pre := r.fullPath(opt.Directory)
	num := getPageSize(opt.MaxKeys)
	err := filepath.Walk(pre, func(path string, info fs.FileInfo, err error) error {
		if err != nil {
			return err
		}
		fileKey := strings.TrimPrefix(strings.TrimPrefix(path, pre), string(filepath.Separator))
		if fileKey == "" {
			return nil
		}
		if !start {
			if opt.NextToken == fileKey {
				start = true
			}
			return nil
		}
		if opt.Prefix != "" && !strings.HasPrefix(filepath.Base(path), opt.Prefix) {
			return nil
		}
		num -= 1
		if num == -1 {
			res.HasMore = true
			return io.EOF
		}
		if info.IsDir() {
			res.List = append(res.List, storage.ListObject{
				Name:  filepath.Base(path),
				IsDir: true,
			})
		} else {
			key := filepath.ToSlash(filepath.Join(opt.Directory, fileKey))
			res.List = append(res.List, storage.ListObject{
				Name:         filepath.Base(path),
				Size:         info.Size(),
				Path:         key,
				Url:          r.Url(key),
				LastModified: info.ModTime(),
			})
		}
		res.NextToken = fileKey
		return nil
	})
	if err != nil && err != io.EOF {
		return nil, ErrLocal.Wrap(err)
	}
	if !res.HasMore {
		res.NextToken = ""
	}
	return res, nil
}

func (r *Local) Delete(ctx context.Context, files ...string) error {
	for _, file := range files {
		fileInfo, err := os.Stat(r.fullPath(file))
		if err != nil {
			return ErrLocal.Wrap(err)
		}
		if fileInfo.IsDir() {
			return ErrLocal.New("can't delete directory: %s", file)
		}
	}
	for _, file := range files {
		if err := os.Remove(r.fullPath(file)); err != nil {
			return ErrLocal.Wrap(err)
		}
	}
	return nil
}

func (r *Local) Exists(ctx context.Context, file string) bool {
	_, err := os.Stat(r.fullPath(file))
	return err == nil
}

func (r *Local) Get(ctx context.Context, file string) ([]byte, error) {
	b, err := os.ReadFile(r.fullPath(file))
	return b, ErrLocal.Wrap(err)
}

func (r *Local) GetStream(ctx context.Context, file string) (io.ReadCloser, error) {
	f, err := os.Open(r.fullPath(file))
	if err != nil {
		return nil, ErrLocal.Wrap(err)
	}
	return f, nil
}

func (r *Local) MimeType(ctx context.Context, file string) (string, error) {
	return MimeType(r.fullPath(file))
}

func (r *Local) Put(ctx context.Context, file string, content []byte) error {
	return r.PutStream(ctx, file, bytes.NewReader(content))
}

func (r *Local) PutStream(ctx context.Context, file string, rs io.Reader) (err error) {
	file = r.fullPath(file)
	if err = os.MkdirAll(filepath.Dir(file), os.ModePerm); err != nil {
		return ErrLocal.Wrap(err)
	}
	f, err := os.Create(file)
	if err != nil {
		return ErrLocal.Wrap(err)
	}
	defer func() {
		err = errs.Combine(err, ErrLocal.Wrap(f.Close()))
	}()
	_, err = io.Copy(f, rs)
	return ErrLocal.Wrap(err)
}

func (r *Local) Size(ctx context.Context, file string) (int64, error) {
	return Size(r.fullPath(file))
}

func (r *Local) Url(file string) string {
	return r.endpoint + "/" + strings.TrimPrefix(filepath.ToSlash(file), "/")
}

// fullPath 相对 root 的路径，不允许跳出 root
func (r *Local) fullPath(path string) string {
	realPath := filepath.Clean("/" + path)
	if realPath == "/" {
		return r.root
	}
	return filepath.Join(r.root, realPath)
}

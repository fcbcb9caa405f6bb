package storage

import (
	"context"
	"time"

	"github.com/opdss/sheetkit/contracts/excel"
)

const DefaultFileNum = 50
const MaxFileNum = 1000

type ListObject struct {
	Name         string    `json:"name"`   //文件名
	IsDir        bool      `json:"is_dir"` //是否是目录
	Url          string    `json:"url"`    //文件地址
	Size         int64     `json:"size"`   //文件大小
	Path         string    `json:"path"`   //文件路径
	LastModified time.Time `json:"last_modified"`
}

type ListObjectRes struct {
	List      []ListObject `json:"list"`
	NextToken string       `json:"next_token"`
	HasMore   bool         `json:"has_more"`
}

type ListObjectOpts struct {
	Directory string `json:"directory"`  //文件目录
	NextToken string `json:"next_token"` //下一页开始位置
	MaxKeys   int32  `json:"max_keys"`   //分页大小
	Prefix    string `json:"prefix"`     //文件前缀
}

// FileSystem 工作簿读写和导出文件上传用到的存储
type FileSystem interface {
	excel.FileStorage
	excel.FileSource

	ListObjects(ctx context.Context, opt *ListObjectOpts) (*ListObjectRes, error)
	// Delete deletes the given file(s).
	Delete(ctx context.Context, file ...string) error
	// Exists determines if a file exists.
	Exists(ctx context.Context, file string) bool
	// Get gets the contents of a file.
	Get(ctx context.Context, file string) ([]byte, error)
	// MimeType gets the file's mime type.
	MimeType(ctx context.Context, file string) (string, error)
	// Put writes the contents of a file.
	Put(ctx context.Context, file string, content []byte) error
	// Size gets the file size of a given file.
	Size(ctx context.Context, file string) (int64, error)
}

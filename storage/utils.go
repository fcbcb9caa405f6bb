package storage

import (
	"os"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/opdss/sheetkit/contracts/storage"
	"github.com/zeebo/errs"
)

// Error 存储驱动配置错误
var Error = errs.Class("storage")

func Size(file string) (int64, error) {
	fi, err := os.Stat(file)
	if err != nil {
		return 0, Error.Wrap(err)
	}
	return fi.Size(), nil
}

func MimeType(file string) (string, error) {
	mtype, err := mimetype.DetectFile(file)
	if err != nil {
		return "", Error.Wrap(err)
	}
	return mtype.String(), nil
}

func getPageSize(maxKeys int32) int32 {
	if maxKeys > 0 && maxKeys <= storage.MaxFileNum {
		return maxKeys
	}
	return storage.DefaultFileNum
}

func validPath(path string) string {
	realPath := strings.TrimPrefix(path, "./")
	realPath = strings.TrimPrefix(realPath, "/")
	realPath = strings.TrimPrefix(realPath, ".")
	if realPath != "" && !strings.HasSuffix(realPath, "/") {
		realPath += "/"
	}
	return realPath
}

package workbook

import (
	"os"
	"path/filepath"

	"github.com/zeebo/errs"
)

func writeFile(path string, content []byte) (err error) {
	if err = os.MkdirAll(filepath.Dir(path), os.ModePerm); err != nil {
		return err
	}
	fh, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() {
		err = errs.Combine(err, fh.Close())
	}()
	_, err = fh.Write(content)
	return err
}

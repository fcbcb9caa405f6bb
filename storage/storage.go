package storage

import (
	"strings"

	"github.com/opdss/sheetkit/contracts/storage"
)

// Config 按 Driver 选择存储驱动
type Config struct {
	Driver string      `help:"存储驱动: local, s3, oss, cos" default:"local" json:"driver"`
	Local  LocalConfig `json:"local"`
	S3     S3Config    `json:"s3"`
	Oss    OssConfig   `json:"oss"`
	Cos    CosConfig   `json:"cos"`
}

func New(config Config) (storage.FileSystem, error) {
	switch strings.ToLower(config.Driver) {
	case "", "local":
		return NewLocal(config.Local)
	case "s3":
		return NewS3(config.S3)
	case "oss":
		return NewOss(config.Oss)
	case "cos":
		return NewCos(config.Cos)
	}
	return nil, Error.New("unknown storage driver: %s", config.Driver)
}

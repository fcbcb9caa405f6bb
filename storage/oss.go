package storage

import (
	"bytes"
	"context"
	"io"
	"strconv"
	"strings"

	"github.com/aliyun/aliyun-oss-go-sdk/oss"
	"github.com/opdss/sheetkit/contracts/storage"
	"github.com/zeebo/errs"
)

/*
 * Oss 阿里云对象存储
 * Document: https://help.aliyun.com/document_detail/32144.html
 */
var ErrOss = errs.Class("storage.oss")

type OssConfig struct {
	AccessKeyId     string `help:"accessKeyId" default:"" json:"access_key_id"`
	AccessKeySecret string `help:"accessKeySecret" default:"" json:"access_key_secret"`
	Bucket          string `help:"存储桶" default:"" json:"bucket"`
	Url             string `help:"加速访问地址" default:"" json:"url"`
	Endpoint        string `help:"api入口" default:"" json:"endpoint"`
}

var _ storage.FileSystem = (*Oss)(nil)

type Oss struct {
	config         OssConfig
	bucketInstance *oss.Bucket
}

func NewOss(config OssConfig) (*Oss, error) {
	if config.AccessKeyId == "" || config.AccessKeySecret == "" || config.Bucket == "" || config.Endpoint == "" {
		return nil, ErrOss.New("please set configuration")
	}
	client, err := oss.New(config.Endpoint, config.AccessKeyId, config.AccessKeySecret)
	if err != nil {
		return nil, ErrOss.Wrap(err)
	}
	bucketInstance, err := client.Bucket(config.Bucket)
	if err != nil {
		return nil, ErrOss.Wrap(err)
	}
	if config.Url == "" {
		config.Url = "https://" + config.Bucket + "." + strings.TrimPrefix(strings.TrimPrefix(config.Endpoint, "https://"), "http://")
	}
	config.Url = strings.TrimSuffix(config.Url, "/")
	return &Oss{
		config:         config,
		bucketInstance: bucketInstance,
	}, nil
}

func (r *Oss) ListObjects(ctx context.Context, opt *storage.ListObjectOpts) (*storage.ListObjectRes, error) {
	res := storage.ListObjectRes{
		List: make([]storage.ListObject, 0),
	}
	vPath := validPath(opt.Directory)
	resp, err := r.bucketInstance.ListObjectsV2(
		oss.Prefix(vPath+opt.Prefix),
		oss.MaxKeys(int(getPageSize(opt.MaxKeys))),
		oss.ContinuationToken(opt.NextToken),
		oss.Delimiter("/"),
		oss.WithContext(ctx),
	)
	if err != nil {
		return nil, ErrOss.Wrap(err)
	}
	res.NextToken = resp.NextContinuationToken
	res.HasMore = resp.IsTruncated
	for _, prefix := range resp.CommonPrefixes {
		name := strings.Trim(strings.TrimPrefix(prefix, vPath), "/")
		if name == "" {
			continue
		}
		res.List = append(res.List, storage.ListObject{
			Name:  name,
			IsDir: true,
		})
	}
	for _, object := range resp.Objects {
		file := strings.TrimPrefix(object.Key, vPath)
		if file == "" {
			continue
		}
		res.List = append(res.List, storage.ListObject{
			Name:         file,
			Size:         object.Size,
			Path:         object.Key,
			Url:          r.Url(object.Key),
			LastModified: object.LastModified,
		})
	}
	return &res, nil
}

func (r *Oss) Delete(ctx context.Context, files ...string) error {
	_, err := r.bucketInstance.DeleteObjects(files, oss.DeleteObjectsQuiet(true), oss.WithContext(ctx))
	return ErrOss.Wrap(err)
}

func (r *Oss) Exists(ctx context.Context, file string) bool {
	exist, err := r.bucketInstance.IsObjectExist(file, oss.WithContext(ctx))
	return err == nil && exist
}

func (r *Oss) Get(ctx context.Context, file string) ([]byte, error) {
	rs, err := r.GetStream(ctx, file)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = rs.Close()
	}()
	b, err := io.ReadAll(rs)
	return b, ErrOss.Wrap(err)
}

func (r *Oss) GetStream(ctx context.Context, file string) (io.ReadCloser, error) {
	rc, err := r.bucketInstance.GetObject(file, oss.WithContext(ctx))
	if err != nil {
		return nil, ErrOss.Wrap(err)
	}
	return rc, nil
}

func (r *Oss) MimeType(ctx context.Context, file string) (string, error) {
	headers, err := r.bucketInstance.GetObjectDetailedMeta(file, oss.WithContext(ctx))
	if err != nil {
		return "", ErrOss.Wrap(err)
	}
	return headers.Get("Content-Type"), nil
}

func (r *Oss) Put(ctx context.Context, file string, content []byte) error {
	return r.PutStream(ctx, file, bytes.NewReader(content))
}

func (r *Oss) PutStream(ctx context.Context, file string, rs io.Reader) error {
	return ErrOss.Wrap(r.bucketInstance.PutObject(file, rs, oss.WithContext(ctx)))
}

func (r *Oss) Size(ctx context.Context, file string) (int64, error) {
	headers, err := r.bucketInstance.GetObjectDetailedMeta(file, oss.WithContext(ctx))
	if err != nil {
		return 0, ErrOss.Wrap(err)
	}
	n, err := strconv.ParseInt(headers.Get("Content-Length"), 10, 64)
	return n, ErrOss.Wrap(err)
}

func (r *Oss) Url(file string) string {
	return r.config.Url + "/" + strings.TrimPrefix(file, "/")
}

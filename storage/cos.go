package storage

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/opdss/sheetkit/contracts/storage"
	"github.com/tencentyun/cos-go-sdk-v5"
	"github.com/zeebo/errs"
)

/*
* Cos 腾讯云对象存储
* Document: https://cloud.tencent.com/document/product/436/31215
 */
var ErrCos = errs.Class("storage.cos")

type CosConfig struct {
	AccessKeyId     string `help:"accessKeyId" default:"" json:"access_key_id"`
	AccessKeySecret string `help:"accessKeySecret" default:"" json:"access_key_secret"`
	Url             string `help:"访问地址" default:"" json:"url"`
	Endpoint        string `help:"存储桶地址" default:"" json:"endpoint"`
}

var _ storage.FileSystem = (*Cos)(nil)

type Cos struct {
	config   CosConfig
	instance *cos.Client
}

func NewCos(config CosConfig) (*Cos, error) {
	if config.AccessKeyId == "" || config.AccessKeySecret == "" || config.Endpoint == "" {
		return nil, ErrCos.New("please set configuration")
	}
	u, err := url.Parse(config.Endpoint)
	if err != nil {
		return nil, ErrCos.Wrap(err)
	}
	client := cos.NewClient(&cos.BaseURL{BucketURL: u}, &http.Client{
		Transport: &cos.AuthorizationTransport{
			SecretID:  config.AccessKeyId,
			SecretKey: config.AccessKeySecret,
		},
	})
	config.Url = strings.TrimSuffix(config.Url, "/")
	return &Cos{
		config:   config,
		instance: client,
	}, nil
}

func (r *Cos) ListObjects(ctx context.Context, opt *storage.ListObjectOpts) (*storage.ListObjectRes, error) {
	vPath := validPath(opt.Directory)
	v, _, err := r.instance.Bucket.Get(ctx, &cos.BucketGetOptions{
		Prefix:    vPath + opt.Prefix,
		Delimiter: "/",
		Marker:    opt.NextToken,
		MaxKeys:   int(getPageSize(opt.MaxKeys)),
	})
	if err != nil {
		return nil, ErrCos.Wrap(err)
	}
	res := &storage.ListObjectRes{
		List:      make([]storage.ListObject, 0),
		HasMore:   v.IsTruncated,
		NextToken: v.NextMarker,
	}
	for _, prefix := range v.CommonPrefixes {
		name := strings.Trim(strings.TrimPrefix(prefix, vPath), "/")
		if name == "" {
			continue
		}
		res.List = append(res.List, storage.ListObject{
			Name:  name,
			IsDir: true,
		})
	}
	for _, item := range v.Contents {
		file := strings.TrimPrefix(item.Key, vPath)
		if file == "" || strings.HasSuffix(item.Key, "/") {
			continue
		}
		t, _ := time.Parse(time.RFC3339, item.LastModified)
		res.List = append(res.List, storage.ListObject{
			Name:         file,
			Size:         item.Size,
			Path:         item.Key,
			Url:          r.Url(item.Key),
			LastModified: t,
		})
	}
	return res, nil
}

func (r *Cos) Delete(ctx context.Context, files ...string) error {
	var obs []cos.Object
	for _, v := range files {
		obs = append(obs, cos.Object{Key: v})
	}
	_, _, err := r.instance.Object.DeleteMulti(ctx, &cos.ObjectDeleteMultiOptions{
		Objects: obs,
		Quiet:   true,
	})
	return ErrCos.Wrap(err)
}

func (r *Cos) Exists(ctx context.Context, file string) bool {
	ok, err := r.instance.Object.IsExist(ctx, file)
	return err == nil && ok
}

func (r *Cos) Get(ctx context.Context, file string) ([]byte, error) {
	rs, err := r.GetStream(ctx, file)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = rs.Close()
	}()
	b, err := io.ReadAll(rs)
	return b, ErrCos.Wrap(err)
}

func (r *Cos) GetStream(ctx context.Context, file string) (io.ReadCloser, error) {
	resp, err := r.instance.Object.Get(ctx, file, nil)
	if err != nil {
		return nil, ErrCos.Wrap(err)
	}
	return resp.Body, nil
}

func (r *Cos) MimeType(ctx context.Context, file string) (string, error) {
	resp, err := r.instance.Object.Head(ctx, file, nil)
	if err != nil {
		return "", ErrCos.Wrap(err)
	}
	return resp.Header.Get("Content-Type"), nil
}

func (r *Cos) Put(ctx context.Context, file string, content []byte) error {
	return r.PutStream(ctx, file, bytes.NewReader(content))
}

func (r *Cos) PutStream(ctx context.Context, file string, rs io.Reader) error {
	_, err := r.instance.Object.Put(ctx, file, rs, nil)
	return ErrCos.Wrap(err)
}

func (r *Cos) Size(ctx context.Context, file string) (int64, error) {
	resp, err := r.instance.Object.Head(ctx, file, nil)
	if err != nil {
		return 0, ErrCos.Wrap(err)
	}
	n, err := strconv.ParseInt(resp.Header.Get("Content-Length"), 10, 64)
	return n, ErrCos.Wrap(err)
}

func (r *Cos) Url(file string) string {
	if r.config.Url != "" {
		return r.config.Url + "/" + strings.TrimPrefix(file, "/")
	}
	return r.instance.Object.GetObjectURL(file).String()
}

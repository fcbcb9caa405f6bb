package storage

import (
	"bytes"
	"context"
	"io"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsConfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/gabriel-vasile/mimetype"
	"github.com/opdss/sheetkit/contracts/storage"
	"github.com/zeebo/errs"
)

/*
* S3 兼容存储
* Document: https://github.com/awsdocs/aws-doc-sdk-examples/blob/main/gov2/s3
 */
var ErrS3 = errs.Class("storage.s3")

type S3Config struct {
	AccessKeyId     string `help:"accessKeyId" default:"" json:"access_key_id"`
	AccessKeySecret string `help:"accessKeySecret" default:"" json:"access_key_secret"`
	Bucket          string `help:"存储桶" default:"" json:"bucket"`
	Region          string `help:"地区" default:"auto" json:"region"`
	Url             string `help:"访问地址" default:"" json:"url"`
	Endpoint        string `help:"api入口" default:"" json:"endpoint"`
	PathStyle       bool   `help:"使用 path style 访问存储桶" default:"false" json:"path_style"`
}

var _ storage.FileSystem = (*S3)(nil)

type S3 struct {
	config   S3Config
	instance *s3.Client
}

func NewS3(config S3Config) (*S3, error) {
	if config.AccessKeyId == "" || config.AccessKeySecret == "" || config.Endpoint == "" || config.Bucket == "" {
		return nil, ErrS3.New("please set configuration")
	}
	cfg, err := awsConfig.LoadDefaultConfig(context.Background(),
		awsConfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(config.AccessKeyId, config.AccessKeySecret, "")),
		awsConfig.WithRegion(config.Region),
	)
	if err != nil {
		return nil, ErrS3.Wrap(err)
	}
	if config.Url == "" {
		config.Url = config.Endpoint
	}
	config.Url = strings.TrimSuffix(config.Url, "/")

	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(config.Endpoint)
		o.UsePathStyle = config.PathStyle
	})
	return &S3{
		config:   config,
		instance: client,
	}, nil
}

func (r *S3) ListObjects(ctx context.Context, opt *storage.ListObjectOpts) (*storage.ListObjectRes, error) {
	res := storage.ListObjectRes{
		List: make([]storage.ListObject, 0),
	}
	vPath := validPath(opt.Directory)
	var continuationToken *string
	if opt.NextToken != "" {
		continuationToken = aws.String(opt.NextToken)
	}
	resp, err := r.instance.ListObjectsV2(ctx, &s3.ListObjectsV2Input{
		Bucket:            aws.String(r.config.Bucket),
		Delimiter:         aws.String("/"),
		Prefix:            aws.String(vPath + opt.Prefix),
		MaxKeys:           aws.Int32(getPageSize(opt.MaxKeys)),
		ContinuationToken: continuationToken,
	})
	if err != nil {
		return nil, ErrS3.Wrap(err)
	}
	res.NextToken = aws.ToString(resp.NextContinuationToken)
	res.HasMore = aws.ToBool(resp.IsTruncated)
	for _, object := range resp.CommonPrefixes {
		name := strings.Trim(strings.TrimPrefix(aws.ToString(object.Prefix), vPath), "/")
		if name == "" {
			continue
		}
		res.List = append(res.List, storage.ListObject{
			Name:  name,
			IsDir: true,
		})
	}
	for _, object := range resp.Contents {
		key := aws.ToString(object.Key)
		file := strings.TrimPrefix(key, vPath)
		if file == "" {
			continue
		}
		res.List = append(res.List, storage.ListObject{
			Name:         file,
			Size:         aws.ToInt64(object.Size),
			Path:         key,
			Url:          r.Url(key),
			LastModified: aws.ToTime(object.LastModified),
		})
	}
	return &res, nil
}

func (r *S3) Delete(ctx context.Context, files ...string) error {
	var objectIdentifiers []types.ObjectIdentifier
	for _, file := range files {
		objectIdentifiers = append(objectIdentifiers, types.ObjectIdentifier{
			Key: aws.String(r.path(file)),
		})
	}
	_, err := r.instance.DeleteObjects(ctx, &s3.DeleteObjectsInput{
		Bucket: aws.String(r.config.Bucket),
		Delete: &types.Delete{
			Objects: objectIdentifiers,
			Quiet:   aws.Bool(true),
		},
	})
	return ErrS3.Wrap(err)
}

func (r *S3) Exists(ctx context.Context, file string) bool {
	_, err := r.head(ctx, file)
	return err == nil
}

func (r *S3) Get(ctx context.Context, file string) ([]byte, error) {
	rs, err := r.GetStream(ctx, file)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = rs.Close()
	}()
	b, err := io.ReadAll(rs)
	return b, ErrS3.Wrap(err)
}

func (r *S3) GetStream(ctx context.Context, file string) (io.ReadCloser, error) {
	resp, err := r.instance.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(r.config.Bucket),
		Key:    aws.String(r.path(file)),
	})
	if err != nil {
		return nil, ErrS3.Wrap(err)
	}
	return resp.Body, nil
}

func (r *S3) MimeType(ctx context.Context, file string) (string, error) {
	resp, err := r.head(ctx, file)
	if err != nil {
		return "", err
	}
	return aws.ToString(resp.ContentType), nil
}

func (r *S3) Put(ctx context.Context, file string, content []byte) error {
	_, err := r.instance.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(r.config.Bucket),
		Key:           aws.String(r.path(file)),
		Body:          bytes.NewReader(content),
		ContentLength: aws.Int64(int64(len(content))),
		ContentType:   aws.String(mimetype.Detect(content).String()),
	})
	return ErrS3.Wrap(err)
}

// PutStream 需要 ContentLength，先读入内存再上传
func (r *S3) PutStream(ctx context.Context, file string, rs io.Reader) error {
	content, err := io.ReadAll(rs)
	if err != nil {
		return ErrS3.Wrap(err)
	}
	return r.Put(ctx, file, content)
}

func (r *S3) Size(ctx context.Context, file string) (int64, error) {
	resp, err := r.head(ctx, file)
	if err != nil {
		return 0, err
	}
	return aws.ToInt64(resp.ContentLength), nil
}

func (r *S3) Url(file string) string {
	return r.config.Url + "/" + r.path(file)
}

func (r *S3) head(ctx context.Context, file string) (*s3.HeadObjectOutput, error) {
	resp, err := r.instance.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(r.config.Bucket),
		Key:    aws.String(r.path(file)),
	})
	return resp, ErrS3.Wrap(err)
}

func (r *S3) path(file string) string {
	return strings.TrimPrefix(file, "/")
}

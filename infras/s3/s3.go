package s3

//go:generate go run go.uber.org/mock/mockgen -source=./s3.go -destination=./mocks/s3_mock.go -package=mocks

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"

	"hotel/config"
	"hotel/infras/otel"
	"hotel/shared/constant"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsConfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/rs/zerolog/log"
)

const (
	otelAttrObjectKey = "object_key"
	otelAttrBucket    = "bucket"

	regionAuto = "auto"
)

// S3 stores room images in the configured bucket. Keys are relative to the
// bucket root, e.g. "room/3f1c.png".
type S3 interface {
	PutObject(ctx context.Context, key, contentType string, body io.Reader) (url string, err error)
	DeleteObject(ctx context.Context, key string) error
	ObjectKey(url string) (key string)
}

type s3Impl struct {
	client *s3.Client
	bucket string
	domain string
	api    string
	otel   otel.Otel
}

func New(cfg *config.Config, otel otel.Otel) S3 {
	s3Config := cfg.External.S3

	awsCfg, err := awsConfig.LoadDefaultConfig(
		context.Background(),
		awsConfig.WithRegion(regionAuto),
		awsConfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(s3Config.AccessKeyID, s3Config.SecretAccessKey, constant.Empty),
		),
	)
	if err != nil {
		log.Error().Err(err).Msg("Error loading AWS configuration")
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if s3Config.APIEndpoint != constant.Empty {
			o.BaseEndpoint = aws.String(s3Config.APIEndpoint)
		}

		o.UsePathStyle = true
	})

	return &s3Impl{
		client: client,
		bucket: s3Config.BucketName,
		domain: strings.TrimSuffix(s3Config.PublicDomain, "/"),
		api:    strings.TrimSuffix(s3Config.APIEndpoint, "/"),
		otel:   otel,
	}
}

func (svc *s3Impl) PutObject(ctx context.Context, key, contentType string, body io.Reader) (url string, err error) {
	ctx, scope := svc.otel.NewScope(ctx, constant.OtelS3ScopeName, constant.OtelS3ScopeName+".PutObject")
	defer scope.End()
	defer func() { scope.TraceIfError(err) }()

	scope.SetAttributes(map[string]any{
		otelAttrObjectKey: key,
		otelAttrBucket:    svc.bucket,
	})

	// PutObject needs a seekable body to compute the payload hash.
	data, err := io.ReadAll(body)
	if err != nil {
		return constant.Empty, fmt.Errorf("failed to read object body: %w", err)
	}

	_, err = svc.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(svc.bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(data),
		ContentType:   aws.String(contentType),
		ContentLength: aws.Int64(int64(len(data))),
	})
	if err != nil {
		return constant.Empty, fmt.Errorf("failed to upload object to S3: %w", err)
	}

	return svc.domain + "/" + key, nil
}

func (svc *s3Impl) DeleteObject(ctx context.Context, key string) (err error) {
	ctx, scope := svc.otel.NewScope(ctx, constant.OtelS3ScopeName, constant.OtelS3ScopeName+".DeleteObject")
	defer scope.End()
	defer func() { scope.TraceIfError(err) }()

	scope.SetAttributes(map[string]any{
		otelAttrObjectKey: key,
		otelAttrBucket:    svc.bucket,
	})

	_, err = svc.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(svc.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("failed to delete object from S3: %w", err)
	}

	return nil
}

// ObjectKey maps a URL returned by PutObject, or a direct API URL, back to its
// key. URLs outside the bucket yield an empty key.
func (svc *s3Impl) ObjectKey(url string) string {
	for _, prefix := range []string{svc.domain + "/", svc.api + "/" + svc.bucket + "/"} {
		if prefix != "/" && strings.HasPrefix(url, prefix) {
			return strings.TrimPrefix(url, prefix)
		}
	}

	return constant.Empty
}

package services

import (
	"context"
	"errors"
	"fmt"
	"path"
	"strings"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/google/uuid"

	"github.com/dmitrijs2005/catalogkeeper/internal/common"
	sc "github.com/dmitrijs2005/catalogkeeper/internal/server/config"
	"github.com/dmitrijs2005/catalogkeeper/internal/server/models"
)

var (
	loadDefaultAWSConfig = config.LoadDefaultConfig

	newS3ClientFromConfig = func(cfg aws.Config, optFns ...func(*s3.Options)) *s3.Client {
		return s3.NewFromConfig(cfg, optFns...)
	}

	presignPutObject = func(pc *s3.PresignClient, ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error) {
		return pc.PresignPutObject(ctx, in, optFns...)
	}

	headObject = func(c *s3.Client, ctx context.Context, in *s3.HeadObjectInput, optFns ...func(*s3.Options)) (*s3.HeadObjectOutput, error) {
		return c.HeadObject(ctx, in, optFns...)
	}

	nowFunc = time.Now
)

// ErrStorageDisabled is returned when no bucket is configured.
var ErrStorageDisabled = errors.New("object storage is not configured")

var allowedImageTypes = map[string]string{
	"image/png":  ".png",
	"image/jpeg": ".jpg",
	"image/gif":  ".gif",
	"image/webp": ".webp",
}

// ImageUpload is a presigned PUT target for one product image.
type ImageUpload struct {
	Key         string    `json:"key"`
	URL         string    `json:"url"`
	ContentType string    `json:"contentType"`
	ExpiresAt   time.Time `json:"expiresAt"`
}

// ImageService hands out presigned upload URLs for product images on an
// S3-compatible store. The object key is recorded on the product only once
// the upload is confirmed and the object exists.
type ImageService struct {
	config   *sc.Config
	products *ProductService

	mu      sync.Mutex
	client  *s3.Client
	presign *s3.PresignClient
}

func NewImageService(cfg *sc.Config, products *ProductService) *ImageService {
	return &ImageService{config: cfg, products: products}
}

// Enabled reports whether a bucket is configured.
func (s *ImageService) Enabled() bool {
	return s != nil && s.config.ObjectStorageEnabled()
}

func (s *ImageService) getPresignClient(ctx context.Context) (*s3.PresignClient, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.presign != nil {
		return s.presign, nil
	}

	opts := []func(*config.LoadOptions) error{config.WithRegion(s.config.S3Region)}
	if s.config.S3AccessKey != "" {
		opts = append(opts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(s.config.S3AccessKey, s.config.S3SecretKey, "")))
	}

	cfg, err := loadDefaultAWSConfig(ctx, opts...)
	if err != nil {
		return nil, err
	}

	client := newS3ClientFromConfig(cfg, func(o *s3.Options) {
		if s.config.S3BaseEndpoint != "" {
			o.BaseEndpoint = aws.String(s.config.S3BaseEndpoint)
			o.UsePathStyle = true
		}
	})

	s.client = client
	s.presign = s3.NewPresignClient(client)
	return s.presign, nil
}

// ObjectKey builds a fresh object key for an image of product id.
func ObjectKey(id int64, ext string, now time.Time) string {
	return path.Join("products", fmt.Sprint(id),
		fmt.Sprintf("%d%02d%02d-%s%s", now.Year(), now.Month(), now.Day(), uuid.NewString(), ext))
}

// RequestUpload checks the product exists and presigns a PUT for a new
// object key. The product keeps its current image until ConfirmUpload.
func (s *ImageService) RequestUpload(ctx context.Context, id int64, contentType string) (*ImageUpload, error) {
	if !s.Enabled() {
		return nil, ErrStorageDisabled
	}

	contentType = strings.ToLower(strings.TrimSpace(contentType))
	if contentType == "" {
		contentType = "image/png"
	}
	ext, ok := allowedImageTypes[contentType]
	if !ok {
		return nil, fmt.Errorf("%w: unsupported image type %q", common.ErrorValidation, contentType)
	}

	if _, err := s.products.Get(ctx, id); err != nil {
		return nil, err
	}

	pc, err := s.getPresignClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("s3 config: %w", err)
	}

	now := nowFunc()
	key := ObjectKey(id, ext, now)
	bucket := s.config.S3Bucket

	req, err := presignPutObject(pc, ctx, &s3.PutObjectInput{
		Bucket:      &bucket,
		Key:         &key,
		ContentType: aws.String(contentType),
	}, s3.WithPresignExpires(s.config.S3PresignTTL))
	if err != nil {
		return nil, fmt.Errorf("presign: %w", err)
	}

	return &ImageUpload{
		Key:         key,
		URL:         req.URL,
		ContentType: contentType,
		ExpiresAt:   now.Add(s.config.S3PresignTTL),
	}, nil
}

// ConfirmUpload records key as the image of product id after checking the
// key belongs to that product and the object is present in the bucket.
func (s *ImageService) ConfirmUpload(ctx context.Context, id int64, key string) (*models.Product, error) {
	if !s.Enabled() {
		return nil, ErrStorageDisabled
	}

	prefix := path.Join("products", fmt.Sprint(id)) + "/"
	if !strings.HasPrefix(key, prefix) || path.Clean(key) != key || !knownImageExt(key) {
		return nil, fmt.Errorf("%w: image key does not belong to product %d", common.ErrorValidation, id)
	}

	if _, err := s.getPresignClient(ctx); err != nil {
		return nil, fmt.Errorf("s3 config: %w", err)
	}
	s.mu.Lock()
	client := s.client
	s.mu.Unlock()

	bucket := s.config.S3Bucket
	if _, err := headObject(client, ctx, &s3.HeadObjectInput{Bucket: &bucket, Key: &key}); err != nil {
		var nf *s3types.NotFound
		if errors.As(err, &nf) {
			return nil, fmt.Errorf("%w: image has not been uploaded", common.ErrorValidation)
		}
		return nil, fmt.Errorf("head object: %w", err)
	}

	return s.products.SetImage(ctx, id, key)
}

func knownImageExt(key string) bool {
	ext := path.Ext(key)
	for _, e := range allowedImageTypes {
		if e == ext {
			return true
		}
	}
	return false
}

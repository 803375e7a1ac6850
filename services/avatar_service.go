package services

import (
	"context"
	"errors"
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"go.uber.org/zap"

	"swipebite_server/config"
)

// ErrInvalidAvatarKey is returned for keys outside the avatar prefix.
var ErrInvalidAvatarKey = errors.New("invalid avatar key")

// ErrInvalidFileName is returned when an upload has no usable file name.
var ErrInvalidFileName = errors.New("invalid file name")

// Presigner is the subset of s3.PresignClient the avatar service needs.
type Presigner interface {
	PresignPutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error)
	PresignGetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error)
}

// AvatarService hands out presigned S3 URLs for profile pictures.
type AvatarService struct {
	presigner Presigner
	bucket    string
	prefix    string
	ttl       time.Duration
	now       func() time.Time
	logger    *zap.Logger
}

// NewS3Presigner builds a presign client from the default AWS credential chain.
func NewS3Presigner(ctx context.Context, cfg config.S3Config) (*s3.PresignClient, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.Region))
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}
	return s3.NewPresignClient(s3.NewFromConfig(awsCfg)), nil
}

func NewAvatarService(presigner Presigner, cfg config.S3Config, logger *zap.Logger) *AvatarService {
	return &AvatarService{
		presigner: presigner,
		bucket:    cfg.Bucket,
		prefix:    strings.Trim(cfg.AvatarPrefix, "/"),
		ttl:       cfg.PresignTTL,
		now:       time.Now,
		logger:    logger,
	}
}

// GenerateUploadURL returns a presigned PUT URL and the object key the
// client should store on its profile.
func (a *AvatarService) GenerateUploadURL(ctx context.Context, userID, fileName, fileType string) (string, string, error) {
	base := path.Base(strings.TrimSpace(fileName))
	if base == "." || base == "/" || base == "" {
		return "", "", ErrInvalidFileName
	}
	key := fmt.Sprintf("%s/%s/%s-%s", a.prefix, userID, a.now().UTC().Format("20060102150405"), base)

	req, err := a.presigner.PresignPutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(a.bucket),
		Key:         aws.String(key),
		ContentType: aws.String(fileType),
	}, s3.WithPresignExpires(a.ttl))
	if err != nil {
		return "", "", fmt.Errorf("failed to presign upload: %w", err)
	}
	a.logger.Debug("Presigned avatar upload", zap.String("user_id", userID), zap.String("key", key))
	return req.URL, key, nil
}

// GenerateReadURL returns a presigned GET URL for an avatar key.
func (a *AvatarService) GenerateReadURL(ctx context.Context, key string) (string, error) {
	if !strings.HasPrefix(key, a.prefix+"/") || strings.Contains(key, "..") {
		return "", ErrInvalidAvatarKey
	}
	req, err := a.presigner.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(a.bucket),
		Key:    aws.String(key),
	}, s3.WithPresignExpires(a.ttl))
	if err != nil {
		return "", fmt.Errorf("failed to presign read: %w", err)
	}
	return req.URL, nil
}

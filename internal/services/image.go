package services

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

const (
	// MaxImageSize is the largest accepted upload
	MaxImageSize  = 5 << 20
	presignExpiry = 5 * time.Minute
)

var imageExtensions = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/gif":  ".gif",
	"image/webp": ".webp",
}

// Image folders
const (
	FolderCards   = "cards"
	FolderAvatars = "avatars"
)

// ObjectUploader is the subset of the S3 client used for direct uploads
type ObjectUploader interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// ObjectPresigner is the subset of the S3 presign client used for client-side uploads
type ObjectPresigner interface {
	PresignPutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error)
}

// PresignRequest represents a request to get a pre-signed upload URL
type PresignRequest struct {
	Folder      string `json:"folder"`
	ContentType string `json:"content_type"`
	Size        int64  `json:"size"`
}

// PresignResponse represents the response with pre-signed URL
type PresignResponse struct {
	UploadURL string `json:"upload_url"`
	PublicURL string `json:"public_url"`
	ExpiresIn int    `json:"expires_in"`
}

// ImageService validates images and stores them in S3-compatible storage
type ImageService struct {
	uploader  ObjectUploader
	presigner ObjectPresigner
	bucket    string
	baseURL   string
}

// NewS3Client creates an S3 client, using static credentials and a custom
// endpoint when they are configured
func NewS3Client(ctx context.Context, region, accessKey, secretKey, endpoint string, usePathStyle bool) (*s3.Client, error) {
	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(region),
	}
	if accessKey != "" && secretKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(accessKey, secretKey, ""),
		))
	}

	cfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	return s3.NewFromConfig(cfg, func(o *s3.Options) {
		if endpoint != "" {
			o.BaseEndpoint = aws.String(endpoint)
		}
		o.UsePathStyle = usePathStyle
	}), nil
}

// NewImageService creates a new image service
func NewImageService(uploader ObjectUploader, presigner ObjectPresigner, bucket, baseURL string) *ImageService {
	return &ImageService{
		uploader:  uploader,
		presigner: presigner,
		bucket:    bucket,
		baseURL:   strings.TrimRight(baseURL, "/"),
	}
}

// ValidateImage checks the content type and size limits
func ValidateImage(contentType string, size int64) error {
	if _, ok := imageExtensions[contentType]; !ok {
		return ErrUnsupportedImage
	}
	if size > MaxImageSize {
		return ErrImageTooLarge
	}
	return nil
}

// Upload stores body in folder and returns its public URL. The content type
// is sniffed from the data; the declared type is only used when sniffing is inconclusive.
func (s *ImageService) Upload(ctx context.Context, folder, declaredType string, body io.Reader) (string, error) {
	data, err := io.ReadAll(io.LimitReader(body, MaxImageSize+1))
	if err != nil {
		imagesUploaded.WithLabelValues("error").Inc()
		return "", fmt.Errorf("%w: failed to read upload: %w", ErrInvalidInput, err)
	}

	contentType := http.DetectContentType(data)
	if contentType == "application/octet-stream" {
		contentType = declaredType
	}
	if err := ValidateImage(contentType, int64(len(data))); err != nil {
		imagesUploaded.WithLabelValues("rejected").Inc()
		return "", err
	}

	key := s.objectKey(folder, contentType)
	_, err = s.uploader.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(data),
		ContentType:   aws.String(contentType),
		ContentLength: aws.Int64(int64(len(data))),
	})
	if err != nil {
		imagesUploaded.WithLabelValues("error").Inc()
		return "", fmt.Errorf("%w: failed to upload image: %w", ErrRemoteFailure, err)
	}

	imagesUploaded.WithLabelValues("stored").Inc()
	log.Info().Str("key", key).Int("size", len(data)).Msg("Image uploaded")

	return s.publicURL(key), nil
}

// PresignUpload generates a pre-signed PUT URL bound to the given type and size
func (s *ImageService) PresignUpload(ctx context.Context, req PresignRequest) (*PresignResponse, error) {
	if err := ValidateImage(req.ContentType, req.Size); err != nil {
		imagesUploaded.WithLabelValues("rejected").Inc()
		return nil, err
	}
	if req.Size <= 0 {
		return nil, fmt.Errorf("%w: size is required", ErrInvalidInput)
	}

	key := s.objectKey(req.Folder, req.ContentType)
	request, err := s.presigner.PresignPutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(key),
		ContentType:   aws.String(req.ContentType),
		ContentLength: aws.Int64(req.Size),
	}, func(opts *s3.PresignOptions) {
		opts.Expires = presignExpiry
	})
	if err != nil {
		return nil, fmt.Errorf("%w: failed to generate pre-signed URL: %w", ErrRemoteFailure, err)
	}

	return &PresignResponse{
		UploadURL: request.URL,
		PublicURL: s.publicURL(key),
		ExpiresIn: int(presignExpiry.Seconds()),
	}, nil
}

func (s *ImageService) objectKey(folder, contentType string) string {
	if folder != FolderAvatars {
		folder = FolderCards
	}
	return fmt.Sprintf("%s/%s%s", folder, uuid.New().String(), imageExtensions[contentType])
}

func (s *ImageService) publicURL(key string) string {
	return s.baseURL + "/" + key
}

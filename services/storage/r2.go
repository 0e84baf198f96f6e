// r2.go
package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awshttp "github.com/aws/aws-sdk-go-v2/aws/transport/http"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

type R2Config struct {
	AccountID       string
	AccessKeyID     string
	SecretAccessKey string
	Bucket          string
	// PublicURL prefixes uploaded keys in returned URLs. When empty the
	// bucket endpoint is used.
	PublicURL string
}

type R2Service struct {
	client     *s3.Client
	bucketName string
	publicURL  string
}

// Ensure R2Service implements StorageService
var _ StorageService = (*R2Service)(nil)

// NewR2Service builds an S3 client pointed at the Cloudflare R2 account.
func NewR2Service(ctx context.Context, cfg R2Config) (*R2Service, error) {
	if cfg.AccountID == "" || cfg.Bucket == "" {
		return nil, errors.New("r2: account id and bucket are required")
	}

	// A buildable client lets the SDK layer AWS_CA_BUNDLE onto the transport.
	httpClient := awshttp.NewBuildableClient().WithTransportOptions(func(t *http.Transport) {
		t.Proxy = nil
	})

	awsCfg, err := config.LoadDefaultConfig(ctx,
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, "")),
		config.WithRegion("auto"),
		config.WithHTTPClient(httpClient),
		config.WithRequestChecksumCalculation(0),
		config.WithResponseChecksumValidation(0),
	)
	if err != nil {
		return nil, fmt.Errorf("r2: load aws config: %w", err)
	}

	endpoint := fmt.Sprintf("https://%s.r2.cloudflarestorage.com", cfg.AccountID)
	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(endpoint)
	})

	publicURL := strings.TrimRight(cfg.PublicURL, "/")
	if publicURL == "" {
		publicURL = endpoint + "/" + cfg.Bucket
	}
	return &R2Service{
		client:     client,
		bucketName: cfg.Bucket,
		publicURL:  publicURL,
	}, nil
}

// UploadBlob uploads any binary data to Cloudflare R2.
func (r *R2Service) UploadBlob(ctx context.Context, data []byte, key, contentType string) (string, error) {
	_, err := r.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(r.bucketName),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload object: %w", err)
	}
	return fmt.Sprintf("%s/%s", r.publicURL, key), nil
}

// DeleteBlob deletes a blob with a key from Cloudflare R2.
func (r *R2Service) DeleteBlob(ctx context.Context, key string) error {
	_, err := r.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(r.bucketName),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("failed to delete object: %w", err)
	}
	return nil
}

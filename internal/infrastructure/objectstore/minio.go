package objectstore

import (
	"context"
	"fmt"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/meetkit/meetkit/internal/core/ports"
)

// SignedURLService presigns time-limited GET URLs for stored recordings.
// Credentials are per-project and arrive decrypted per call, so a fresh
// client is built for each request instead of being cached.
type SignedURLService struct {
	endpoint string
	useSSL   bool
}

func NewSignedURLService(endpoint string, useSSL bool) *SignedURLService {
	return &SignedURLService{endpoint: endpoint, useSSL: useSSL}
}

func (s *SignedURLService) SignedURL(ctx context.Context, creds ports.StorageCredentials, object string, ttl time.Duration) (string, error) {
	client, err := minio.New(s.endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(creds.AccessKey, creds.SecretKey, ""),
		Secure: s.useSSL,
	})
	if err != nil {
		return "", fmt.Errorf("object store client: %w", err)
	}

	u, err := client.PresignedGetObject(ctx, creds.Bucket, object, ttl, nil)
	if err != nil {
		return "", fmt.Errorf("presign %s/%s: %w", creds.Bucket, object, err)
	}
	return u.String(), nil
}

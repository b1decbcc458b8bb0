// Package storage archives terminal commands to S3-compatible object
// storage via the MinIO client.
package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/growhub-io/growhub/internal/orchestrator/core"
	"github.com/growhub-io/growhub/internal/orchestrator/core/model"
	"github.com/growhub-io/growhub/pkg/log"
	genericoptions "github.com/growhub-io/growhub/pkg/options"
)

// Archiver is a command archive backed by storage that may need a
// reachability check before serving traffic.
type Archiver interface {
	core.CommandArchiver

	// CheckBucket verifies the backing bucket exists, creating it when missing.
	CheckBucket(ctx context.Context) error
}

var _ Archiver = (*minioArchiver)(nil)

type minioArchiver struct {
	client     *minio.Client
	bucketName string
	logger     log.Logger
}

// NewMinIOArchiver creates an object-storage command archiver. Archived
// commands land at commands/{deviceID}/{commandID}.json.
func NewMinIOArchiver(opts *genericoptions.S3Options) (Archiver, error) {
	client, err := minio.New(opts.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(opts.AccessKeyID, opts.SecretAccessKey, ""),
		Secure: opts.UseSSL,
		Region: opts.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create minio client: %w", err)
	}

	return &minioArchiver{
		client:     client,
		bucketName: opts.BucketName,
		logger:     log.WithName("archive"),
	}, nil
}

// CheckBucket verifies the archive bucket exists, creating it when missing.
func (a *minioArchiver) CheckBucket(ctx context.Context) error {
	exists, err := a.client.BucketExists(ctx, a.bucketName)
	if err != nil {
		return fmt.Errorf("failed to check bucket existence: %w", err)
	}
	if !exists {
		a.logger.Info("Bucket does not exist, creating...", "bucket", a.bucketName)
		if err := a.client.MakeBucket(ctx, a.bucketName, minio.MakeBucketOptions{}); err != nil {
			return fmt.Errorf("failed to create bucket: %w", err)
		}
	}
	return nil
}

func (a *minioArchiver) Archive(ctx context.Context, cmd *model.Command) error {
	payload, err := json.Marshal(cmd)
	if err != nil {
		return fmt.Errorf("failed to encode command %s: %w", cmd.ID, err)
	}

	objectKey := fmt.Sprintf("commands/%s/%s.json", cmd.DeviceID, cmd.ID)
	_, err = a.client.PutObject(ctx, a.bucketName, objectKey,
		bytes.NewReader(payload), int64(len(payload)),
		minio.PutObjectOptions{ContentType: "application/json"})
	if err != nil {
		return fmt.Errorf("failed to archive command %s: %w", cmd.ID, err)
	}

	a.logger.Debug("Archived command", "key", objectKey, "status", cmd.Status)
	return nil
}

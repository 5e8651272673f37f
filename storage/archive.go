package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"place-discovery/models"
)

// RunArchive stores run reports as JSON objects in an S3-compatible bucket.
type RunArchive struct {
	client *minio.Client
	bucket string
}

// ArchiveOptions configures NewRunArchive.
type ArchiveOptions struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
}

// NewRunArchive connects to the endpoint and makes sure the bucket exists.
func NewRunArchive(ctx context.Context, opts ArchiveOptions) (*RunArchive, error) {
	if opts.Endpoint == "" || opts.AccessKey == "" || opts.SecretKey == "" {
		return nil, fmt.Errorf("archive: missing one or more of MINIO_ENDPOINT, MINIO_ACCESS_KEY, MINIO_SECRET_KEY")
	}

	client, err := minio.New(opts.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(opts.AccessKey, opts.SecretKey, ""),
		Secure: opts.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("archive: create client: %w", err)
	}

	exists, err := client.BucketExists(ctx, opts.Bucket)
	if err != nil {
		return nil, fmt.Errorf("archive: check bucket: %w", err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, opts.Bucket, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("archive: make bucket %s: %w", opts.Bucket, err)
		}
	}
	return &RunArchive{client: client, bucket: opts.Bucket}, nil
}

// ReportKey returns the object key a report is stored under.
func ReportKey(report *models.RunReport) string {
	return fmt.Sprintf("runs/property-%d/%s_%s.json",
		report.PropertyID, report.StartedAt.UTC().Format("20060102T150405Z"), report.RunID)
}

// Store writes report and returns its object key.
func (a *RunArchive) Store(ctx context.Context, report *models.RunReport) (string, error) {
	data, err := json.Marshal(report)
	if err != nil {
		return "", fmt.Errorf("archive: marshal report: %w", err)
	}

	key := ReportKey(report)
	_, err = a.client.PutObject(ctx, a.bucket, key, bytes.NewReader(data), int64(len(data)),
		minio.PutObjectOptions{ContentType: "application/json"})
	if err != nil {
		return "", fmt.Errorf("archive: put %s: %w", key, err)
	}
	return key, nil
}

// Load reads a report back by key.
func (a *RunArchive) Load(ctx context.Context, key string) (*models.RunReport, error) {
	obj, err := a.client.GetObject(ctx, a.bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("archive: get %s: %w", key, err)
	}
	defer obj.Close()

	if _, err := obj.Stat(); err != nil {
		if minio.ToErrorResponse(err).Code == "NoSuchKey" {
			return nil, fmt.Errorf("archive: %s: %w", key, ErrNotFound)
		}
		return nil, fmt.Errorf("archive: stat %s: %w", key, err)
	}

	var report models.RunReport
	if err := json.NewDecoder(obj).Decode(&report); err != nil {
		return nil, fmt.Errorf("archive: decode %s: %w", key, err)
	}
	return &report, nil
}

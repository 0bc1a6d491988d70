// Package backup exports market tables as JSON objects to S3-compatible
// storage and hands out a short-lived download link for each export.
package backup

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/dmitrijs2005/liberandum/internal/common"
	"github.com/dmitrijs2005/liberandum/internal/server/models"
	"github.com/google/uuid"
)

// LinkValidity is how long the download link of an export stays usable.
const LinkValidity = 15 * time.Minute

type putAPI interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

type presignAPI interface {
	PresignGetObject(ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error)
}

// Result describes a finished export.
type Result struct {
	Table       string `json:"table"`
	Bucket      string `json:"bucket"`
	Key         string `json:"key"`
	Items       int    `json:"items"`
	DownloadURL string `json:"download_url"`
	CreatedAt   string `json:"created_at"`
}

type Exporter struct {
	bucket  string
	put     putAPI
	presign presignAPI
	retry   common.RetryPolicy
	now     func() time.Time
}

// NewS3Exporter builds an exporter from the shared AWS config. A non-empty
// endpoint selects path-style addressing for MinIO and similar servers.
func NewS3Exporter(cfg aws.Config, bucket, endpoint string) *Exporter {
	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		if endpoint != "" {
			o.BaseEndpoint = aws.String(endpoint)
			o.UsePathStyle = true
		}
	})
	return newExporter(bucket, client, s3.NewPresignClient(client))
}

func newExporter(bucket string, put putAPI, presign presignAPI) *Exporter {
	return &Exporter{bucket: bucket, put: put, presign: presign, retry: common.DefaultRetryPolicy, now: time.Now}
}

func (e *Exporter) Configured() bool {
	return e != nil && e.bucket != ""
}

func (e *Exporter) key(table string) string {
	d := e.now().UTC()
	return fmt.Sprintf("backups/%s/%d/%02d/%02d/%s.json", table, d.Year(), d.Month(), d.Day(), uuid.NewString())
}

// Export writes recs as a JSON array under a fresh key of table.
func (e *Exporter) Export(ctx context.Context, table string, recs []models.Record) (*Result, error) {
	if !e.Configured() {
		return nil, fmt.Errorf("%w: backup bucket is not configured", common.ErrorServiceUnavailable)
	}
	if recs == nil {
		recs = []models.Record{}
	}
	body, err := json.Marshal(recs)
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", table, err)
	}

	key := e.key(table)
	err = common.Retry(ctx, e.retry, func(ctx context.Context) error {
		_, err := e.put.PutObject(ctx, &s3.PutObjectInput{
			Bucket:      aws.String(e.bucket),
			Key:         aws.String(key),
			Body:        bytes.NewReader(body),
			ContentType: aws.String("application/json"),
		})
		return err
	})
	if err != nil {
		return nil, err
	}

	req, err := e.presign.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(e.bucket),
		Key:    aws.String(key),
	}, s3.WithPresignExpires(LinkValidity))
	if err != nil {
		return nil, errors.Join(common.ErrorServiceUnavailable, err)
	}

	return &Result{
		Table:       table,
		Bucket:      e.bucket,
		Key:         key,
		Items:       len(recs),
		DownloadURL: req.URL,
		CreatedAt:   common.FormatTime(e.now()),
	}, nil
}

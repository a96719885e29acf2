// Package storage archives fetched transcripts to S3-compatible object
// storage so enrichment runs can be audited without refetching from the
// streaming host.
package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	pkgerrors "github.com/pkg/errors"
)

type ArchiveConfig struct {
	AccessKey string
	SecretKey string
	Region    string
	Endpoint  string
	Bucket    string
}

type ArchiveClient struct {
	client *s3.Client
	bucket string
}

func NewArchiveClient(cfg ArchiveConfig) (*ArchiveClient, error) {
	resolver := aws.EndpointResolverWithOptionsFunc(func(service, region string, options ...interface{}) (aws.Endpoint, error) {
		return aws.Endpoint{
			URL: cfg.Endpoint,
		}, nil
	})

	awsCfg, err := awsconfig.LoadDefaultConfig(context.Background(),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, "")),
		awsconfig.WithEndpointResolverWithOptions(resolver),
		awsconfig.WithRegion(cfg.Region),
	)
	if err != nil {
		return nil, pkgerrors.Wrap(err, "unable to load SDK config")
	}

	return &ArchiveClient{
		client: s3.NewFromConfig(awsCfg),
		bucket: cfg.Bucket,
	}, nil
}

type transcriptRecord struct {
	VideoID   string    `json:"video_id"`
	Raw       string    `json:"raw"`
	Text      string    `json:"text"`
	Timestamp time.Time `json:"timestamp"`
}

// SaveTranscript stores the raw track and parsed text keyed by video id.
func (a *ArchiveClient) SaveTranscript(ctx context.Context, videoID, raw, text string) error {
	data, err := json.Marshal(transcriptRecord{
		VideoID:   videoID,
		Raw:       raw,
		Text:      text,
		Timestamp: time.Now(),
	})
	if err != nil {
		return pkgerrors.Wrap(err, "failed to marshal transcript record")
	}

	key := fmt.Sprintf("transcripts/%s.json", videoID)
	_, err = a.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket: aws.String(a.bucket),
		Key:    aws.String(key),
		Body:   bytes.NewReader(data),
	})
	if err != nil {
		return pkgerrors.Wrapf(err, "failed to archive transcript %s", key)
	}

	return nil
}

// GetTranscript retrieves a previously archived transcript.
func (a *ArchiveClient) GetTranscript(ctx context.Context, videoID string) (string, string, error) {
	key := fmt.Sprintf("transcripts/%s.json", videoID)
	result, err := a.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(a.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return "", "", pkgerrors.Wrapf(err, "failed to get transcript %s", key)
	}
	defer result.Body.Close()

	var record transcriptRecord
	if err := json.NewDecoder(result.Body).Decode(&record); err != nil {
		return "", "", pkgerrors.Wrap(err, "failed to decode transcript record")
	}

	return record.Raw, record.Text, nil
}

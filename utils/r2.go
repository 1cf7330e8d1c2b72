// utils/r2.go
package utils

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"community-challenges/models"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/rs/zerolog/log"
)

// R2Config holds the Cloudflare R2 credentials.
type R2Config struct {
	AccountID       string
	AccessKeyID     string
	AccessKeySecret string
	Bucket          string
}

// Enabled reports whether enough is configured to talk to R2.
func (c R2Config) Enabled() bool {
	return c.AccountID != "" && c.AccessKeyID != "" && c.AccessKeySecret != "" && c.Bucket != ""
}

// objectPutter is the slice of the S3 client the archive uses.
type objectPutter interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// R2ReportArchive uploads finalized challenge reports as JSON objects.
type R2ReportArchive struct {
	client objectPutter
	bucket string
}

// NewR2ReportArchive builds an S3 client pointed at the account's R2 endpoint.
func NewR2ReportArchive(ctx context.Context, cfg R2Config) (*R2ReportArchive, error) {
	endpoint := fmt.Sprintf("https://%s.r2.cloudflarestorage.com", cfg.AccountID)

	awsCfg, err := config.LoadDefaultConfig(ctx,
		config.WithRegion("auto"),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			cfg.AccessKeyID, cfg.AccessKeySecret, "",
		)),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load R2 config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(endpoint)
	})
	return &R2ReportArchive{client: client, bucket: cfg.Bucket}, nil
}

// ReportKey is the object key for a challenge's report.
func ReportKey(challengeID string) string {
	return fmt.Sprintf("reports/%s.json", challengeID)
}

func (a *R2ReportArchive) ArchiveReport(ctx context.Context, report *models.ChallengeReport) error {
	body, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("failed to encode report: %w", err)
	}

	key := ReportKey(report.ChallengeID)
	_, err = a.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(a.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(body),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return fmt.Errorf("failed to upload report to R2: %w", err)
	}

	log.Info().Str("challenge_id", report.ChallengeID).Str("key", key).Msg("☁️ [R2] report archived")
	return nil
}

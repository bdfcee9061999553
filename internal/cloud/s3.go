package cloud

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/ANIKETSHETTY47/predictive-maintenance-engine/internal/ml"
)

// S3API is the subset of the S3 client used for artifacts.
type S3API interface {
	GetObject(ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3ArtifactStore keeps classifier artifacts in a bucket under
// models/failure_predictor_<version>.json.
type S3ArtifactStore struct {
	svc    S3API
	bucket string
	prefix string
}

func NewS3ArtifactStore(cfg aws.Config, bucket string) *S3ArtifactStore {
	return NewS3ArtifactStoreWithClient(s3.NewFromConfig(cfg), bucket)
}

func NewS3ArtifactStoreWithClient(svc S3API, bucket string) *S3ArtifactStore {
	return &S3ArtifactStore{svc: svc, bucket: bucket, prefix: "models/"}
}

func (c *S3ArtifactStore) key(version string) string {
	return c.prefix + ml.ArtifactKey(version)
}

func (c *S3ArtifactStore) Load(ctx context.Context, version string) (*ml.Artifact, error) {
	result, err := c.svc.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(c.bucket),
		Key:    aws.String(c.key(version)),
	})
	if err != nil {
		var nsk *types.NoSuchKey
		if errors.As(err, &nsk) {
			return nil, ml.ErrArtifactNotFound
		}
		return nil, fmt.Errorf("failed to download from S3: %w", err)
	}
	defer result.Body.Close()

	data, err := io.ReadAll(result.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read S3 object body: %w", err)
	}
	return ml.DecodeArtifact(data)
}

func (c *S3ArtifactStore) Save(ctx context.Context, version string, a *ml.Artifact) error {
	data, err := ml.EncodeArtifact(a)
	if err != nil {
		return err
	}

	_, err = c.svc.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(c.bucket),
		Key:         aws.String(c.key(version)),
		Body:        bytes.NewReader(data),
		ContentType: aws.String("application/json"),
		Metadata: map[string]string{
			"uploaded-at":      time.Now().UTC().Format(time.RFC3339),
			"artifact-version": a.Version,
		},
	})
	if err != nil {
		return fmt.Errorf("failed to upload to S3: %w", err)
	}
	return nil
}

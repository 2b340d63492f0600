package store

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"

	"github.com/cloudplane/cloudplane/internal/graph"
)

// s3API is the subset of the S3 client the store needs. Narrowed for tests.
type s3API interface {
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	DeleteObject(ctx context.Context, params *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
}

// S3Store persists graphs in an S3-compatible object store. The run lock is
// an object created with a conditional put so two concurrent runs cannot
// both acquire it.
type S3Store struct {
	client s3API
	bucket string
}

// NewS3Store creates an S3-backed store. A non-empty endpoint targets an
// S3-compatible service instead of AWS.
func NewS3Store(bucket, region, endpoint string) (*S3Store, error) {
	cfg, err := awsconfig.LoadDefaultConfig(context.Background(),
		awsconfig.WithRegion(region),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		if endpoint != "" {
			o.BaseEndpoint = aws.String(endpoint)
			o.UsePathStyle = true
		}
	})

	return &S3Store{client: client, bucket: bucket}, nil
}

func graphKey(clusterName string) string {
	return fmt.Sprintf("clusters/%s/graph.json", clusterName)
}

func lockKey(clusterName string) string {
	return fmt.Sprintf("clusters/%s/run.lock", clusterName)
}

// Load implements Store.
func (s *S3Store) Load(ctx context.Context, clusterName string) (*graph.Graph, error) {
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(graphKey(clusterName)),
	})
	if err != nil {
		if isNoSuchKey(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get graph object: %w", err)
	}
	defer out.Body.Close()

	var buf bytes.Buffer
	if _, err := buf.ReadFrom(out.Body); err != nil {
		return nil, fmt.Errorf("failed to read graph object: %w", err)
	}

	var g graph.Graph
	if err := json.Unmarshal(buf.Bytes(), &g); err != nil {
		return nil, fmt.Errorf("failed to decode graph document: %w", err)
	}
	if g.Schema != graph.SchemaVersion {
		return nil, fmt.Errorf("graph document schema %d is not supported (want %d)", g.Schema, graph.SchemaVersion)
	}

	return &g, nil
}

// Save implements Store.
func (s *S3Store) Save(ctx context.Context, g *graph.Graph) error {
	g.UpdatedAt = time.Now().UTC()
	data, err := json.Marshal(g)
	if err != nil {
		return fmt.Errorf("failed to encode graph document: %w", err)
	}

	_, err = s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(graphKey(g.ClusterName)),
		Body:          bytes.NewReader(data),
		ContentLength: aws.Int64(int64(len(data))),
	})
	if err != nil {
		return fmt.Errorf("failed to put graph object: %w", err)
	}
	return nil
}

// AcquireLock implements Store. The put is conditional on the lock object
// not existing, so exactly one of two racing runs wins.
func (s *S3Store) AcquireLock(ctx context.Context, clusterName, runID string) error {
	doc, err := json.Marshal(lockDocument{RunID: runID, AcquiredAt: time.Now().UTC()})
	if err != nil {
		return fmt.Errorf("failed to encode lock document: %w", err)
	}

	_, err = s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(lockKey(clusterName)),
		Body:        bytes.NewReader(doc),
		IfNoneMatch: aws.String("*"),
	})
	if err != nil {
		if isPreconditionFailed(err) {
			return ErrRunInProgress
		}
		return fmt.Errorf("failed to put lock object: %w", err)
	}
	return nil
}

// ReleaseLock implements Store.
func (s *S3Store) ReleaseLock(ctx context.Context, clusterName, runID string) error {
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(lockKey(clusterName)),
	})
	if err != nil {
		return fmt.Errorf("failed to get lock object: %w", err)
	}
	defer out.Body.Close()

	var doc lockDocument
	if err := json.NewDecoder(out.Body).Decode(&doc); err != nil {
		return fmt.Errorf("failed to decode lock object: %w", err)
	}
	if doc.RunID != runID {
		return fmt.Errorf("lock is held by run %s, not %s", doc.RunID, runID)
	}

	_, err = s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(lockKey(clusterName)),
	})
	if err != nil {
		return fmt.Errorf("failed to delete lock object: %w", err)
	}
	return nil
}

// isNoSuchKey checks whether the error means the object does not exist.
func isNoSuchKey(err error) bool {
	var nsk *types.NoSuchKey
	if errors.As(err, &nsk) {
		return true
	}

	// Fall back to API error code checking for S3-compatible services
	// that may not return the exact SDK error types.
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		code := apiErr.ErrorCode()
		return code == "NoSuchKey" || code == "NotFound" || code == "404"
	}
	return false
}

// isPreconditionFailed checks for a failed If-None-Match conditional put.
func isPreconditionFailed(err error) bool {
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		code := apiErr.ErrorCode()
		return code == "PreconditionFailed" || code == "ConditionalRequestConflict"
	}
	return false
}

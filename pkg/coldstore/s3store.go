package coldstore

import (
	"context"
	"encoding/json"
	"io"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/aptos-labs/indexer-grpc-data-service/internal/xerrors"
)

const metadataKey = "metadata.json"

// S3Store implements Store against an S3 (or S3-compatible) bucket, one
// object per block plus a single metadata.json object.
type S3Store struct {
	client *s3.Client
	bucket string
	prefix string
}

// NewS3Store builds an S3Store for the given bucket, keying every object
// under prefix (may be empty).
func NewS3Store(client *s3.Client, bucket, prefix string) *S3Store {
	return &S3Store{client: client, bucket: bucket, prefix: prefix}
}

func (s *S3Store) key(name string) string {
	if s.prefix == "" {
		return name
	}
	return s.prefix + "/" + name
}

func (s *S3Store) GetMetadata(ctx context.Context) (*Metadata, error) {
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key(metadataKey)),
	})
	if err != nil {
		return nil, xerrors.Wrapf(err, "get object %s", s.key(metadataKey))
	}
	defer out.Body.Close()

	body, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, xerrors.Wrapf(err, "read object %s", s.key(metadataKey))
	}

	var md Metadata
	if err := json.Unmarshal(body, &md); err != nil {
		return nil, xerrors.Wrapf(err, "decode metadata")
	}
	return &md, nil
}

func (s *S3Store) GetBlock(ctx context.Context, startVersion uint64) ([]byte, error) {
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key(blockKey(startVersion))),
	})
	if err != nil {
		return nil, xerrors.Wrapf(err, "get object %s", s.key(blockKey(startVersion)))
	}
	defer out.Body.Close()

	body, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, xerrors.Wrapf(err, "read object %s", s.key(blockKey(startVersion)))
	}
	return body, nil
}

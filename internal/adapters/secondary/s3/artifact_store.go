package s3

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awss3 "github.com/aws/aws-sdk-go-v2/service/s3"

	"caption-service/internal/core/domain"
	output "caption-service/internal/core/ports/output"
)

// artifactStore lists bundle candidates in a single bucket.
type artifactStore struct {
	client awss3.ListObjectsV2APIClient
	bucket string
}

// NewArtifactStore creates an ArtifactStore over bucket.
func NewArtifactStore(client awss3.ListObjectsV2APIClient, bucket string) output.ArtifactStore {
	return &artifactStore{client: client, bucket: bucket}
}

// List walks every result page; listings above 1000 keys are not truncated.
func (s *artifactStore) List(ctx context.Context, prefix string) ([]domain.ArtifactObject, error) {
	paginator := awss3.NewListObjectsV2Paginator(s.client, &awss3.ListObjectsV2Input{
		Bucket: aws.String(s.bucket),
		Prefix: aws.String(prefix),
	})

	var objects []domain.ArtifactObject
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("list s3://%s/%s: %w", s.bucket, prefix, err)
		}
		for _, obj := range page.Contents {
			key := aws.ToString(obj.Key)
			objects = append(objects, domain.ArtifactObject{
				Key:          key,
				URI:          domain.S3URI(s.bucket, key),
				LastModified: aws.ToTime(obj.LastModified),
				Size:         aws.ToInt64(obj.Size),
			})
		}
	}
	return objects, nil
}

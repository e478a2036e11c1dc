package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseDeployEvent(t *testing.T) {
	tests := []struct {
		name    string
		payload string
		want    DeployEvent
	}{
		{
			name:    "direct reference",
			payload: `{"model_data_url":"s3://assets/output/job-1/model.tar.gz"}`,
			want:    DeployEvent{Source: EventSourceDirect, ArtifactURI: "s3://assets/output/job-1/model.tar.gz"},
		},
		{
			name:    "pipeline completion",
			payload: `{"detail-type":"SageMaker Model Building Pipeline Execution Status Change","detail":{"pipelineExecutionArn":"arn:aws:sagemaker:exec/1"}}`,
			want:    DeployEvent{Source: EventSourcePipeline, ExecutionARN: "arn:aws:sagemaker:exec/1"},
		},
		{
			name:    "training job completion",
			payload: `{"detail":{"ModelArtifacts":{"S3ModelArtifacts":"s3://assets/output/job-2/output/model.tar.gz"}}}`,
			want:    DeployEvent{Source: EventSourcePipeline, ArtifactURI: "s3://assets/output/job-2/output/model.tar.gz"},
		},
		{
			name:    "storage notification",
			payload: `{"Records":[{"s3":{"bucket":{"name":"assets"},"object":{"key":"output/job+3/model.tar.gz"}}}]}`,
			want:    DeployEvent{Source: EventSourceStorage, ArtifactURI: "s3://assets/output/job 3/model.tar.gz"},
		},
		{
			name:    "empty detail",
			payload: `{"detail":{}}`,
			want:    DeployEvent{Source: EventSourceUnknown},
		},
		{
			name:    "scheduled event",
			payload: `{"source":"aws.events"}`,
			want:    DeployEvent{Source: EventSourceUnknown},
		},
		{name: "empty", payload: ``, want: DeployEvent{Source: EventSourceUnknown}},
		{name: "not json", payload: `deploy please`, want: DeployEvent{Source: EventSourceUnknown}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseDeployEvent([]byte(tt.payload)))
		})
	}
}

package domain

import (
	"encoding/json"
	"net/url"
)

// EventSource classifies what kind of event started a deployment.
type EventSource string

const (
	EventSourceDirect   EventSource = "direct"
	EventSourcePipeline EventSource = "pipeline"
	EventSourceStorage  EventSource = "storage"
	EventSourceUnknown  EventSource = "unknown"
)

// DeployEvent is what could be read out of a deployment trigger payload.
// The artifact reference is informational: selection always lists storage.
type DeployEvent struct {
	Source       EventSource `json:"source"`
	ArtifactURI  string      `json:"artifact_uri,omitempty"`
	ExecutionARN string      `json:"execution_arn,omitempty"`
}

type rawDeployEvent struct {
	ModelDataURL string `json:"model_data_url"`
	Detail       *struct {
		PipelineExecutionArn string `json:"pipelineExecutionArn"`
		ModelArtifacts       *struct {
			S3ModelArtifacts string `json:"S3ModelArtifacts"`
		} `json:"ModelArtifacts"`
	} `json:"detail"`
	Records []struct {
		S3 *struct {
			Bucket struct {
				Name string `json:"name"`
			} `json:"bucket"`
			Object struct {
				Key string `json:"key"`
			} `json:"object"`
		} `json:"s3"`
	} `json:"Records"`
}

// ParseDeployEvent reads a direct artifact reference, a workflow completion
// notification or a storage notification. Anything else, including invalid
// JSON, is an EventSourceUnknown trigger.
func ParseDeployEvent(payload []byte) DeployEvent {
	var raw rawDeployEvent
	if len(payload) == 0 || json.Unmarshal(payload, &raw) != nil {
		return DeployEvent{Source: EventSourceUnknown}
	}

	if raw.ModelDataURL != "" {
		return DeployEvent{Source: EventSourceDirect, ArtifactURI: raw.ModelDataURL}
	}

	if raw.Detail != nil {
		ev := DeployEvent{Source: EventSourcePipeline, ExecutionARN: raw.Detail.PipelineExecutionArn}
		if raw.Detail.ModelArtifacts != nil {
			ev.ArtifactURI = raw.Detail.ModelArtifacts.S3ModelArtifacts
		}
		if ev.ExecutionARN != "" || ev.ArtifactURI != "" {
			return ev
		}
	}

	for _, rec := range raw.Records {
		if rec.S3 == nil || rec.S3.Object.Key == "" {
			continue
		}
		key, err := url.QueryUnescape(rec.S3.Object.Key)
		if err != nil {
			key = rec.S3.Object.Key
		}
		return DeployEvent{Source: EventSourceStorage, ArtifactURI: S3URI(rec.S3.Bucket.Name, key)}
	}

	return DeployEvent{Source: EventSourceUnknown}
}

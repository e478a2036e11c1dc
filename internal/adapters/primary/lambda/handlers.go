// Package lambda adapts the deployment and pipeline triggers to the
// function runtime's invocation contract.
package lambda

import (
	"context"
	"encoding/json"

	"github.com/aws/aws-lambda-go/lambdacontext"
	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"caption-service/internal/core/services"
)

// DeployHandler runs one deployment per invocation.
type DeployHandler struct {
	svc *services.DeployService
}

func NewDeployHandler(svc *services.DeployService) *DeployHandler {
	return &DeployHandler{svc: svc}
}

// Handle returns the deployment summary. Any error fails the invocation.
func (h *DeployHandler) Handle(ctx context.Context, event json.RawMessage) (*services.DeployResult, error) {
	requestID := RequestID(ctx)
	result, err := h.svc.Deploy(ctx, services.DeployRequest{
		RequestID: requestID,
		Payload:   event,
	})
	if err != nil {
		log.WithError(err).WithField("request_id", requestID).Error("deploy invocation failed")
		return nil, err
	}
	return result, nil
}

// TriggerHandler starts one pipeline execution per invocation.
type TriggerHandler struct {
	svc *services.PipelineService
}

func NewTriggerHandler(svc *services.PipelineService) *TriggerHandler {
	return &TriggerHandler{svc: svc}
}

func (h *TriggerHandler) Handle(ctx context.Context, event json.RawMessage) (*services.TriggerResult, error) {
	result, err := h.svc.Trigger(ctx, event)
	if err != nil {
		log.WithError(err).WithField("request_id", RequestID(ctx)).Error("trigger invocation failed")
		return nil, err
	}
	return result, nil
}

// RequestID is the runtime's request id, or a fresh uuid outside the runtime.
func RequestID(ctx context.Context) string {
	if lc, ok := lambdacontext.FromContext(ctx); ok && lc.AwsRequestID != "" {
		return lc.AwsRequestID
	}
	return uuid.New().String()
}

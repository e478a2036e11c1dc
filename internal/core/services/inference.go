package services

import (
	"bytes"
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"

	"caption-service/internal/core/domain"
	"caption-service/internal/imaging"
	"caption-service/internal/nn"
)

// Predictor runs a forward pass without tracking gradients.
type Predictor interface {
	Forward(x *nn.Tensor) (*nn.Tensor, error)
}

// InferenceService holds the four serving operations. Apart from the
// transform it keeps no state; the model is passed in on every call.
type InferenceService struct {
	transform imaging.Transform
}

// NewInferenceService uses imaging.EvalTransform when transform is nil.
func NewInferenceService(transform imaging.Transform) *InferenceService {
	if transform == nil {
		transform = imaging.EvalTransform
	}
	return &InferenceService{transform: transform}
}

// LoadModel reads the traced graph from dir. The graph is in eval mode.
func (s *InferenceService) LoadModel(dir string) (*nn.Graph, error) {
	g, err := nn.LoadGraph(filepath.Join(dir, domain.GraphFileName))
	if err != nil {
		return nil, fmt.Errorf("load model: %w", err)
	}
	return g, nil
}

// DecodeInput turns a request body into a [1,3,224,224] tensor. The content
// type is checked before anything is decoded.
func (s *InferenceService) DecodeInput(body []byte, contentType string) (*nn.Tensor, error) {
	if mediaType(contentType) != domain.ContentTypeImage {
		return nil, fmt.Errorf("%w: %q", domain.ErrUnsupportedContentType, contentType)
	}
	img, err := imaging.Decode(bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	return s.transform(img).Unsqueeze0(), nil
}

// Predict returns the index of the highest scoring class.
func (s *InferenceService) Predict(input *nn.Tensor, model Predictor) (domain.Prediction, error) {
	if g, ok := model.(*nn.Graph); model == nil || ok && g == nil {
		return domain.Prediction{}, domain.ErrModelNotLoaded
	}
	logits, err := model.Forward(input)
	if err != nil {
		return domain.Prediction{}, fmt.Errorf("forward: %w", err)
	}
	idx, err := nn.Argmax(logits)
	if err != nil {
		return domain.Prediction{}, err
	}
	if len(idx) == 0 {
		return domain.Prediction{}, fmt.Errorf("forward: %w", nn.ErrEmptyBatch)
	}
	return domain.Prediction{PredictedClass: idx[0]}, nil
}

// EncodeOutput serializes pred as JSON. The accept value is not consulted.
func (s *InferenceService) EncodeOutput(pred domain.Prediction, accept string) ([]byte, string, error) {
	b, err := json.Marshal(pred)
	if err != nil {
		return nil, "", fmt.Errorf("encode prediction: %w", err)
	}
	return b, "application/json", nil
}

func mediaType(contentType string) string {
	mt, _, _ := strings.Cut(contentType, ";")
	return strings.ToLower(strings.TrimSpace(mt))
}

package domain

import "errors"

// ============================================================================
// Artifact Errors
// ============================================================================

var (
	ErrNoArtifact         = errors.New("no model artifact found")
	ErrInvalidArtifactURI = errors.New("invalid artifact uri")
)

// ============================================================================
// Training Errors
// ============================================================================

var (
	ErrEmptyDataset     = errors.New("dataset has no samples")
	ErrNoClassDirs      = errors.New("dataset root has no class directories")
	ErrLabelOutOfRange  = errors.New("label index out of range")
	ErrInvalidTrainArgs = errors.New("invalid training arguments")
)

// ============================================================================
// Inference Errors
// ============================================================================

var (
	ErrUnsupportedContentType = errors.New("unsupported content type")
	ErrInvalidImage           = errors.New("invalid image")
	ErrModelNotLoaded         = errors.New("model not loaded")
)

// ============================================================================
// Deployment Errors
// ============================================================================

// Not found errors
var (
	ErrDeploymentNotFound = errors.New("deployment not found")
)

// Conflict errors
var (
	ErrDeploymentConflict = errors.New("deployment with this id already exists")
)

// Validation errors
var (
	ErrInvalidVPCConfig     = errors.New("invalid vpc config")
	ErrMissingConfiguration = errors.New("missing required configuration")
	ErrInvalidDeploymentID  = errors.New("invalid deployment id")
)

// ============================================================================
// Pipeline Errors
// ============================================================================

var (
	ErrPipelineNotFound = errors.New("pipeline not found")
)

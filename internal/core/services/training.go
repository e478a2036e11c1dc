package services

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	log "github.com/sirupsen/logrus"

	"caption-service/internal/bundle"
	"caption-service/internal/core/domain"
	"caption-service/internal/dataset"
	"caption-service/internal/imaging"
	"caption-service/internal/nn"
)

// TrainConfig locates the training inputs and outputs and sets the
// optimization hyperparameters.
type TrainConfig struct {
	TrainDir      string
	ModelInputDir string
	ModelDir      string
	Epochs        int
	BatchSize     int
	Workers       int
	LearningRate  float32
	Momentum      float32
	Seed          uint64
}

func (c TrainConfig) Validate() error {
	switch {
	case c.TrainDir == "":
		return fmt.Errorf("%w: train dir is required", domain.ErrInvalidTrainArgs)
	case c.ModelDir == "":
		return fmt.Errorf("%w: model dir is required", domain.ErrInvalidTrainArgs)
	case c.Epochs < 1:
		return fmt.Errorf("%w: epochs must be at least 1", domain.ErrInvalidTrainArgs)
	case c.BatchSize < 1:
		return fmt.Errorf("%w: batch size must be at least 1", domain.ErrInvalidTrainArgs)
	case c.LearningRate <= 0:
		return fmt.Errorf("%w: learning rate must be positive", domain.ErrInvalidTrainArgs)
	case c.Momentum < 0 || c.Momentum >= 1:
		return fmt.Errorf("%w: momentum must be in [0,1)", domain.ErrInvalidTrainArgs)
	}
	return nil
}

type TrainingService struct {
	cfg       TrainConfig
	transform imaging.Transform
	stock     func() (map[string]*nn.Tensor, error)
}

func NewTrainingService(cfg TrainConfig) *TrainingService {
	return &TrainingService{
		cfg:       cfg,
		transform: imaging.TrainTransform,
		stock:     nn.StockWeights,
	}
}

type TrainResult struct {
	Epochs         int      `json:"epochs"`
	Steps          int      `json:"steps"`
	MeanLoss       float64  `json:"mean_loss"`
	Classes        []string `json:"classes"`
	FromCheckpoint bool     `json:"from_checkpoint"`
	StatePath      string   `json:"state_path"`
	GraphPath      string   `json:"graph_path"`
	BundlePath     string   `json:"bundle_path"`
}

// Run fine-tunes the classifier on the train dir, starting from the
// checkpoint in the model input dir when there is one, and writes the state,
// the traced graph and the bundle holding both into the model dir.
func (s *TrainingService) Run(ctx context.Context) (*TrainResult, error) {
	if err := s.cfg.Validate(); err != nil {
		return nil, err
	}

	ds, err := dataset.NewImageFolder(s.cfg.TrainDir, s.transform)
	if err != nil {
		return nil, fmt.Errorf("load dataset: %w", err)
	}
	log.WithFields(log.Fields{
		"classes": len(ds.Classes),
		"samples": ds.Len(),
	}).Info("dataset loaded")

	model := nn.NewClassifier(nn.StockClasses)
	fromCheckpoint, err := s.initWeights(ctx, model)
	if err != nil {
		return nil, err
	}

	seed := s.cfg.Seed
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}
	loader := dataset.NewLoader(ds, s.cfg.BatchSize,
		dataset.WithShuffle(seed),
		dataset.WithWorkers(s.cfg.Workers),
	)
	opt := nn.NewSGD(s.cfg.LearningRate, s.cfg.Momentum)

	result := &TrainResult{Epochs: s.cfg.Epochs, Classes: ds.Classes, FromCheckpoint: fromCheckpoint}
	var total float64
	model.Train()
	for epoch := 1; epoch <= s.cfg.Epochs; epoch++ {
		var epochLoss float64
		var epochSteps int
		err := loader.Each(ctx, func(b dataset.Batch) error {
			model.ZeroGrad()
			logits, err := model.Forward(b.Inputs)
			if err != nil {
				return err
			}
			loss, grad, err := nn.CrossEntropy(logits, b.Labels)
			if err != nil {
				if errors.Is(err, nn.ErrLabelOutOfRange) {
					return fmt.Errorf("%w: %v", domain.ErrLabelOutOfRange, err)
				}
				return err
			}
			if err := model.Backward(grad); err != nil {
				return err
			}
			opt.Step(model.Params())
			epochLoss += loss
			epochSteps++
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("train epoch %d: %w", epoch, err)
		}
		total += epochLoss
		result.Steps += epochSteps
		log.WithFields(log.Fields{
			"epoch":     epoch,
			"steps":     epochSteps,
			"mean_loss": epochLoss / float64(max(epochSteps, 1)),
		}).Info("epoch finished")
	}
	result.MeanLoss = total / float64(max(result.Steps, 1))
	log.Info("training loop finished")

	if err := s.save(ctx, model, result); err != nil {
		return nil, err
	}
	log.WithField("bundle", result.BundlePath).Info("packaged new model artifact")
	return result, nil
}

// initWeights extracts any bundles in the model input dir and loads the
// state it finds there. Without one the stock weights are used.
func (s *TrainingService) initWeights(ctx context.Context, model *nn.Classifier) (bool, error) {
	dir := s.cfg.ModelInputDir
	if dir != "" {
		if _, err := os.Stat(dir); err == nil {
			archives, err := bundle.ExtractArchives(ctx, dir)
			if err != nil {
				return false, fmt.Errorf("extract checkpoint: %w", err)
			}
			for _, a := range archives {
				log.WithField("archive", a).Info("extracted checkpoint archive")
			}

			statePath := filepath.Join(dir, domain.StateFileName)
			if _, err := os.Stat(statePath); err == nil {
				state, err := nn.LoadState(statePath)
				if err != nil {
					return false, fmt.Errorf("load checkpoint: %w", err)
				}
				if err := model.LoadStateDict(state); err != nil {
					return false, fmt.Errorf("load checkpoint: %w", err)
				}
				log.WithField("checkpoint", statePath).Info("loaded checkpoint")
				return true, nil
			}
		}
	}

	log.WithField("dir", dir).Warn("no previous model bundle found, starting from stock weights")
	state, err := s.stock()
	if err != nil {
		return false, fmt.Errorf("load stock weights: %w", err)
	}
	if err := model.LoadStateDict(state); err != nil {
		return false, fmt.Errorf("load stock weights: %w", err)
	}
	return false, nil
}

func (s *TrainingService) save(ctx context.Context, model *nn.Classifier, result *TrainResult) error {
	if err := os.MkdirAll(s.cfg.ModelDir, 0o755); err != nil {
		return fmt.Errorf("create model dir: %w", err)
	}
	result.StatePath = filepath.Join(s.cfg.ModelDir, domain.StateFileName)
	result.GraphPath = filepath.Join(s.cfg.ModelDir, domain.GraphFileName)
	result.BundlePath = filepath.Join(s.cfg.ModelDir, domain.BundleFileName)

	if err := nn.SaveState(result.StatePath, model.StateDict()); err != nil {
		return fmt.Errorf("save state: %w", err)
	}
	model.Eval()
	if err := nn.SaveGraph(result.GraphPath, nn.Trace(model)); err != nil {
		return fmt.Errorf("save graph: %w", err)
	}

	err := bundle.PackFile(ctx, result.BundlePath, []bundle.Member{
		{Name: domain.StateFileName, Path: result.StatePath},
		{Name: domain.GraphFileName, Path: result.GraphPath},
	})
	if err != nil {
		return fmt.Errorf("package bundle: %w", err)
	}
	return nil
}

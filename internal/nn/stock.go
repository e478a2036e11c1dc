package nn

import (
	"crypto/sha256"
	_ "embed"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"math/rand/v2"
)

// Embedded stock weight descriptor used when training starts without a
// checkpoint.
const (
	StockDescriptorPath   = "data/stock-v1.json"
	StockDescriptorSHA256 = "038c1be2d683e3110f44a7231af062509dd6b23402070bdfa7b21c33ce045c4c"
)

//go:embed data/stock-v1.json
var stockDescriptor []byte

type stockSpec struct {
	ModelID   string  `json:"model_id"`
	Version   string  `json:"version"`
	Classes   int     `json:"classes"`
	Features  int     `json:"features"`
	Seed      uint64  `json:"seed"`
	WeightStd float64 `json:"weight_std"`
}

// StockWeights verifies the embedded descriptor and materializes the
// pretrained state dict it describes. The result is identical on every call.
func StockWeights() (map[string]*Tensor, error) {
	sum := sha256.Sum256(stockDescriptor)
	if got := hex.EncodeToString(sum[:]); got != StockDescriptorSHA256 {
		return nil, fmt.Errorf("nn: stock descriptor checksum mismatch: got %s want %s", got, StockDescriptorSHA256)
	}

	var spec stockSpec
	if err := json.Unmarshal(stockDescriptor, &spec); err != nil {
		return nil, fmt.Errorf("nn: decode stock descriptor: %w", err)
	}
	if err := validateStock(spec); err != nil {
		return nil, err
	}

	rng := rand.New(rand.NewPCG(spec.Seed, spec.Seed^0x9e3779b97f4a7c15))
	weight := New(spec.Classes, spec.Features)
	for i := range weight.Data {
		weight.Data[i] = float32(rng.NormFloat64() * spec.WeightStd)
	}
	return map[string]*Tensor{
		ParamWeight: weight,
		ParamBias:   New(spec.Classes),
	}, nil
}

func validateStock(s stockSpec) error {
	if s.ModelID == "" || s.Version == "" {
		return fmt.Errorf("nn: stock descriptor must name model_id and version")
	}
	if s.Classes != StockClasses {
		return fmt.Errorf("nn: stock descriptor has %d classes, want %d", s.Classes, StockClasses)
	}
	if s.Features != FeatureCount {
		return fmt.Errorf("nn: stock descriptor has %d features, want %d", s.Features, FeatureCount)
	}
	if s.WeightStd <= 0 {
		return fmt.Errorf("nn: stock weight_std must be positive, got %v", s.WeightStd)
	}
	return nil
}

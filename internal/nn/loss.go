package nn

import (
	"fmt"
	"math"
)

// CrossEntropy returns the mean softmax cross-entropy of logits [N,C]
// against class indices, and its gradient with respect to the logits.
func CrossEntropy(logits *Tensor, labels []int) (float64, *Tensor, error) {
	if len(logits.Shape) != 2 {
		return 0, nil, fmt.Errorf("%w: loss wants [N,C], got %v", ErrShapeMismatch, logits.Shape)
	}
	n, c := logits.Shape[0], logits.Shape[1]
	if n == 0 {
		return 0, nil, ErrEmptyBatch
	}
	if len(labels) != n {
		return 0, nil, fmt.Errorf("%w: %d labels for batch of %d", ErrShapeMismatch, len(labels), n)
	}

	grad := New(n, c)
	var total float64
	for b := 0; b < n; b++ {
		label := labels[b]
		if label < 0 || label >= c {
			return 0, nil, fmt.Errorf("%w: %d not in [0,%d)", ErrLabelOutOfRange, label, c)
		}
		row := logits.Data[b*c : (b+1)*c]

		maxLogit := float64(row[0])
		for _, v := range row[1:] {
			maxLogit = math.Max(maxLogit, float64(v))
		}
		var sum float64
		for _, v := range row {
			sum += math.Exp(float64(v) - maxLogit)
		}
		logSum := maxLogit + math.Log(sum)
		total += logSum - float64(row[label])

		g := grad.Data[b*c : (b+1)*c]
		for k, v := range row {
			p := math.Exp(float64(v) - logSum)
			if k == label {
				p -= 1
			}
			g[k] = float32(p / float64(n))
		}
	}
	return total / float64(n), grad, nil
}

package domain

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"
)

// LabelSet is the ordered list of class names indexed by model output.
// It is read-only once built.
type LabelSet struct {
	names []string
}

// NewLabelSet copies names into a LabelSet.
func NewLabelSet(names []string) *LabelSet {
	return &LabelSet{names: append([]string(nil), names...)}
}

// ParseLabels reads one label per line, trimming surrounding whitespace.
func ParseLabels(r io.Reader) (*LabelSet, error) {
	var names []string
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		names = append(names, strings.TrimSpace(sc.Text()))
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read labels: %w", err)
	}
	return &LabelSet{names: names}, nil
}

// LoadLabels reads a label file from path.
func LoadLabels(path string) (*LabelSet, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open labels: %w", err)
	}
	defer f.Close()
	return ParseLabels(f)
}

// Len returns the number of labels.
func (l *LabelSet) Len() int {
	return len(l.names)
}

// Name returns the label for class index i.
func (l *LabelSet) Name(i int) (string, error) {
	if i < 0 || i >= len(l.names) {
		return "", fmt.Errorf("%w: %d not in [0,%d)", ErrLabelOutOfRange, i, len(l.names))
	}
	return l.names[i], nil
}

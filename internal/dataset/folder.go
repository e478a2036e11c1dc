// Package dataset reads labelled images laid out one directory per class and
// batches them for training.
package dataset

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"caption-service/internal/core/domain"
	"caption-service/internal/imaging"
	"caption-service/internal/nn"
)

// Extensions lists the file suffixes picked up as samples, compared case-insensitively.
var Extensions = []string{".jpg", ".jpeg", ".png", ".bmp", ".tif", ".tiff", ".webp"}

// Sample is one labelled image on disk.
type Sample struct {
	Path  string
	Label int
}

// ImageFolder is a dataset where every immediate subdirectory of Root is a
// class. Classes are sorted by name and the label is the index in that order.
type ImageFolder struct {
	Root      string
	Classes   []string
	Samples   []Sample
	transform imaging.Transform
}

// NewImageFolder scans root. Files below each class directory are collected
// recursively in lexical order.
func NewImageFolder(root string, transform imaging.Transform) (*ImageFolder, error) {
	entries, err := os.ReadDir(root)
	if err != nil {
		return nil, fmt.Errorf("read dataset root: %w", err)
	}

	f := &ImageFolder{Root: root, transform: transform}
	for _, e := range entries {
		// Stat follows links so symlinked class directories count.
		info, err := os.Stat(filepath.Join(root, e.Name()))
		if err != nil {
			return nil, fmt.Errorf("stat class %s: %w", e.Name(), err)
		}
		if info.IsDir() {
			f.Classes = append(f.Classes, e.Name())
		}
	}
	if len(f.Classes) == 0 {
		return nil, fmt.Errorf("%w: %s", domain.ErrNoClassDirs, root)
	}

	for label, class := range f.Classes {
		classDir := filepath.Join(root, class)
		// WalkDir does not descend into a symlinked root, so walk the target
		// and report paths under classDir.
		target, err := filepath.EvalSymlinks(classDir)
		if err != nil {
			return nil, fmt.Errorf("resolve class %s: %w", class, err)
		}
		err = filepath.WalkDir(target, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.IsDir() || !hasImageExt(path) {
				return nil
			}
			rel, err := filepath.Rel(target, path)
			if err != nil {
				return err
			}
			f.Samples = append(f.Samples, Sample{Path: filepath.Join(classDir, rel), Label: label})
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("scan class %s: %w", class, err)
		}
	}
	if len(f.Samples) == 0 {
		return nil, fmt.Errorf("%w: %s", domain.ErrEmptyDataset, root)
	}
	return f, nil
}

func (f *ImageFolder) Len() int { return len(f.Samples) }

// Load decodes and transforms sample i.
func (f *ImageFolder) Load(i int) (*nn.Tensor, int, error) {
	s := f.Samples[i]
	file, err := os.Open(s.Path)
	if err != nil {
		return nil, 0, fmt.Errorf("open sample: %w", err)
	}
	defer file.Close()

	img, err := imaging.Decode(file)
	if err != nil {
		return nil, 0, fmt.Errorf("decode %s: %w", s.Path, err)
	}
	return f.transform(img), s.Label, nil
}

func hasImageExt(path string) bool {
	return slices.Contains(Extensions, strings.ToLower(filepath.Ext(path)))
}

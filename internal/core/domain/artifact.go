package domain

import (
	"fmt"
	"strings"
	"time"
)

// Fixed artifact names. Downstream consumers (serving runtime, training
// resume) look members up by these exact names.
const (
	BundleFileName = "model.tar.gz"
	StateFileName  = "model_state.bin"
	GraphFileName  = "model_traced.bin"
)

// ArtifactObject is one stored object as reported by an artifact store.
type ArtifactObject struct {
	Key          string    `json:"key"`
	URI          string    `json:"uri"`
	LastModified time.Time `json:"last_modified"`
	Size         int64     `json:"size"`
}

// IsBundle reports whether the object key names an artifact bundle.
func (o ArtifactObject) IsBundle() bool {
	return strings.HasSuffix(o.Key, BundleFileName)
}

// FilterBundles keeps only artifact bundles, preserving order.
func FilterBundles(objects []ArtifactObject) []ArtifactObject {
	bundles := make([]ArtifactObject, 0, len(objects))
	for _, obj := range objects {
		if obj.IsBundle() {
			bundles = append(bundles, obj)
		}
	}
	return bundles
}

// SelectNewest returns the bundle with the latest LastModified.
// Equal timestamps resolve to the lexicographically greatest key so the
// result never depends on listing order.
func SelectNewest(objects []ArtifactObject) (ArtifactObject, error) {
	bundles := FilterBundles(objects)
	if len(bundles) == 0 {
		return ArtifactObject{}, ErrNoArtifact
	}

	newest := bundles[0]
	for _, obj := range bundles[1:] {
		switch {
		case obj.LastModified.After(newest.LastModified):
			newest = obj
		case obj.LastModified.Equal(newest.LastModified) && obj.Key > newest.Key:
			newest = obj
		}
	}
	return newest, nil
}

// S3URI builds an s3:// URI for bucket and key.
func S3URI(bucket, key string) string {
	return fmt.Sprintf("s3://%s/%s", bucket, strings.TrimPrefix(key, "/"))
}

// ParseS3URI splits an s3:// URI into bucket and key.
func ParseS3URI(uri string) (bucket, key string, err error) {
	rest, ok := strings.CutPrefix(uri, "s3://")
	if !ok {
		return "", "", fmt.Errorf("%w: %q", ErrInvalidArtifactURI, uri)
	}
	bucket, key, _ = strings.Cut(rest, "/")
	if bucket == "" {
		return "", "", fmt.Errorf("%w: %q", ErrInvalidArtifactURI, uri)
	}
	return bucket, key, nil
}

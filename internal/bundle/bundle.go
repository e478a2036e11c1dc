// Package bundle writes and reads the gzip-compressed tar archives that carry
// model artifacts between the training job, object storage and the serving
// container.
package bundle

import (
	"archive/tar"
	"bufio"
	"bytes"
	"compress/gzip"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"
)

var ErrUnsafePath = errors.New("bundle: entry escapes destination")

var gzipMagic = []byte{0x1f, 0x8b}

// Member is a file to be stored in a bundle under Name.
type Member struct {
	Name string
	Path string
}

// Pack writes members as a tar.gz stream to w. Entry names are flat
// base names and members are written in the given order.
func Pack(ctx context.Context, w io.Writer, members []Member) error {
	gz := gzip.NewWriter(w)
	tw := tar.NewWriter(gz)

	for _, m := range members {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := addFile(ctx, tw, m); err != nil {
			return fmt.Errorf("add %s: %w", m.Name, err)
		}
	}

	if err := tw.Close(); err != nil {
		return err
	}
	return gz.Close()
}

// PackFile is Pack into a newly created file at dest.
func PackFile(ctx context.Context, dest string, members []Member) error {
	f, err := os.Create(dest)
	if err != nil {
		return err
	}
	if err := Pack(ctx, f, members); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func addFile(ctx context.Context, tw *tar.Writer, m Member) error {
	fi, err := os.Stat(m.Path)
	if err != nil {
		return err
	}
	if !fi.Mode().IsRegular() {
		return fmt.Errorf("%s is not a regular file", m.Path)
	}

	hdr, err := tar.FileInfoHeader(fi, "")
	if err != nil {
		return err
	}
	hdr.Name = m.Name
	if err := tw.WriteHeader(hdr); err != nil {
		return err
	}

	fp, err := os.Open(m.Path)
	if err != nil {
		return err
	}
	defer fp.Close()
	_, err = io.Copy(tw, &ctxReader{ctx: ctx, r: fp})
	return err
}

// Walker is called for every regular file entry. Returning a non-nil error
// stops the walk.
type Walker func(hdr *tar.Header, payload io.Reader) error

// Walk iterates the regular files of a bundle. Plain tar input is accepted
// as well as tar.gz.
func Walk(ctx context.Context, r io.Reader, walker Walker) error {
	br := bufio.NewReader(r)
	var src io.Reader = br
	if head, err := br.Peek(len(gzipMagic)); err == nil && bytes.Equal(head, gzipMagic) {
		gz, err := gzip.NewReader(br)
		if err != nil {
			return err
		}
		defer gz.Close()
		src = gz
	}

	tr := tar.NewReader(&ctxReader{ctx: ctx, r: src})
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		hdr, err := tr.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
		if hdr.Typeflag != tar.TypeReg {
			continue
		}
		if err := walker(hdr, tr); err != nil {
			return err
		}
	}
}

// Unpack extracts a bundle into dest and returns the extracted paths.
// Entries with absolute names or names leaving dest are rejected.
func Unpack(ctx context.Context, r io.Reader, dest string) ([]string, error) {
	var written []string
	err := Walk(ctx, r, func(hdr *tar.Header, payload io.Reader) error {
		target, err := safeJoin(dest, hdr.Name)
		if err != nil {
			return err
		}
		if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
			return err
		}
		fp, err := os.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
		if err != nil {
			return err
		}
		defer fp.Close()
		if _, err := io.Copy(fp, payload); err != nil {
			return err
		}
		written = append(written, target)
		return nil
	})
	return written, err
}

// UnpackFile is Unpack reading from the file at src.
func UnpackFile(ctx context.Context, src, dest string) ([]string, error) {
	f, err := os.Open(src)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return Unpack(ctx, f, dest)
}

// ReadMembers loads every regular file of a bundle into memory, keyed by
// entry name.
func ReadMembers(ctx context.Context, r io.Reader) (map[string][]byte, error) {
	out := map[string][]byte{}
	err := Walk(ctx, r, func(hdr *tar.Header, payload io.Reader) error {
		name, err := cleanName(hdr.Name)
		if err != nil {
			return err
		}
		b, err := io.ReadAll(payload)
		if err != nil {
			return err
		}
		out[name] = b
		return nil
	})
	return out, err
}

// ExtractArchives unpacks every *.tar.gz directly inside dir into dir and
// returns the archives it processed.
func ExtractArchives(ctx context.Context, dir string) ([]string, error) {
	matches, err := filepath.Glob(filepath.Join(dir, "*.tar.gz"))
	if err != nil {
		return nil, err
	}
	for _, m := range matches {
		if _, err := UnpackFile(ctx, m, dir); err != nil {
			return nil, fmt.Errorf("extract %s: %w", filepath.Base(m), err)
		}
	}
	return matches, nil
}

func cleanName(name string) (string, error) {
	if path.IsAbs(name) || filepath.IsAbs(name) {
		return "", fmt.Errorf("%w: %s", ErrUnsafePath, name)
	}
	clean := path.Clean(name)
	if clean == ".." || strings.HasPrefix(clean, "../") {
		return "", fmt.Errorf("%w: %s", ErrUnsafePath, name)
	}
	return clean, nil
}

func safeJoin(dest, name string) (string, error) {
	clean, err := cleanName(name)
	if err != nil {
		return "", err
	}
	return filepath.Join(dest, filepath.FromSlash(clean)), nil
}

type ctxReader struct {
	ctx context.Context
	r   io.Reader
}

func (r *ctxReader) Read(p []byte) (int, error) {
	select {
	case <-r.ctx.Done():
		return 0, r.ctx.Err()
	default:
	}
	return r.r.Read(p)
}

package blob

import (
	"context"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/crypto/blake2b"
)

// DiskStore writes blobs under a root directory, addressed by the blake2b
// digest of their content so identical uploads share one file.
type DiskStore struct {
	root string
}

func NewDiskStore(root string) (*DiskStore, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("creating upload dir: %w", err)
	}
	return &DiskStore{root: root}, nil
}

func (d *DiskStore) Put(ctx context.Context, filename string, body io.Reader) (Object, error) {
	tmp, err := os.CreateTemp(d.root, ".upload-*")
	if err != nil {
		return Object{}, fmt.Errorf("creating temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	h, err := blake2b.New256(nil)
	if err != nil {
		tmp.Close()
		return Object{}, err
	}

	size, err := io.Copy(io.MultiWriter(tmp, h), &ctxReader{ctx: ctx, r: body})
	if cerr := tmp.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return Object{}, fmt.Errorf("writing blob: %w", err)
	}

	sum := hex.EncodeToString(h.Sum(nil))
	dir := filepath.Join(d.root, sum[:2])
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return Object{}, fmt.Errorf("creating blob dir: %w", err)
	}

	path := filepath.Join(dir, sum+"-"+sanitize(filename))
	if err := os.Rename(tmp.Name(), path); err != nil {
		return Object{}, fmt.Errorf("storing blob: %w", err)
	}
	return Object{Path: path, Size: size}, nil
}

// sanitize keeps the base name and drops characters unsafe in paths.
func sanitize(filename string) string {
	name := filepath.Base(filename)
	name = strings.Map(func(r rune) rune {
		switch {
		case r == '/' || r == '\\' || r == 0:
			return -1
		case r < 0x20:
			return '_'
		}
		return r
	}, name)
	if name == "" || name == "." || name == ".." {
		return "file"
	}
	return name
}

type ctxReader struct {
	ctx context.Context
	r   io.Reader
}

func (c *ctxReader) Read(p []byte) (int, error) {
	if err := c.ctx.Err(); err != nil {
		return 0, err
	}
	return c.r.Read(p)
}

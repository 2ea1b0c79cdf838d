// Package resources uploads the files a cluster reads while bootstrapping
// (scripts, storage configuration) from a local directory to object storage.
package resources

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"mime"
	"os"
	"path"
	"path/filepath"

	"golang.org/x/sync/errgroup"
)

// DefaultConcurrency bounds parallel uploads.
const DefaultConcurrency = 4

// Result describes what happened to one file.
type Result struct {
	Path    string `json:"path"`
	Key     string `json:"key"`
	Size    int64  `json:"size"`
	Skipped bool   `json:"skipped"`
}

// Uploader copies a directory tree into an ObjectStore under Prefix.
type Uploader struct {
	Store       ObjectStore
	Prefix      string
	Concurrency int
	// Force uploads files whose key already exists in the store.
	Force  bool
	Logger *slog.Logger
}

// Upload uploads every regular file below dir. Results are in lexical path
// order. The first failure cancels the uploads still in flight.
func (u *Uploader) Upload(ctx context.Context, dir string) ([]Result, error) {
	files, err := u.collect(dir)
	if err != nil {
		return nil, err
	}

	limit := u.Concurrency
	if limit <= 0 {
		limit = DefaultConcurrency
	}

	results := make([]Result, len(files))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)
	for i, f := range files {
		g.Go(func() error {
			res, err := u.uploadOne(gctx, f)
			if err != nil {
				return err
			}
			results[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

type localFile struct {
	path string
	key  string
	size int64
}

func (u *Uploader) collect(dir string) ([]localFile, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("resources dir: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("resources dir %s is not a directory", dir)
	}

	var files []localFile
	err = filepath.WalkDir(dir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.Type().IsRegular() {
			return nil
		}
		fi, err := d.Info()
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(dir, p)
		if err != nil {
			return err
		}
		files = append(files, localFile{
			path: p,
			key:  path.Join(u.Prefix, filepath.ToSlash(rel)),
			size: fi.Size(),
		})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk %s: %w", dir, err)
	}
	return files, nil
}

func (u *Uploader) uploadOne(ctx context.Context, f localFile) (Result, error) {
	res := Result{Path: f.path, Key: f.key, Size: f.size}

	if !u.Force {
		exists, err := u.Store.Exists(ctx, f.key)
		if err != nil {
			return res, fmt.Errorf("upload %s: %w", f.key, err)
		}
		if exists {
			u.logger().Info("resource already uploaded", "key", f.key)
			res.Skipped = true
			return res, nil
		}
	}

	file, err := os.Open(f.path) //nolint:gosec // walked from the configured directory
	if err != nil {
		return res, fmt.Errorf("upload %s: %w", f.key, err)
	}
	defer file.Close() //nolint:errcheck

	if err := u.Store.Put(ctx, f.key, file, contentType(f.path)); err != nil {
		return res, fmt.Errorf("upload %s: %w", f.key, err)
	}
	u.logger().Info("resource uploaded", "key", f.key, "bytes", f.size)
	return res, nil
}

func (u *Uploader) logger() *slog.Logger {
	if u.Logger == nil {
		return slog.Default()
	}
	return u.Logger
}

func contentType(p string) string {
	if ct := mime.TypeByExtension(filepath.Ext(p)); ct != "" {
		return ct
	}
	return "application/octet-stream"
}

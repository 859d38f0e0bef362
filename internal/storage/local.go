// Package storage implements the remote file store on a local directory tree. Remote folder
// paths such as "/GrantAlignTool/Projects" resolve under the configured root.
package storage

import (
	"context"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"sort"

	"grantalign/internal/domain"
)

// Local stores remote folders under Root.
type Local struct {
	root string
}

// NewLocal returns a Local store rooted at root.
func NewLocal(root string) *Local { return &Local{root: root} }

// Name returns the identifier of this store.
func (l *Local) Name() string { return "local" }

func (l *Local) resolve(remote string) string {
	return filepath.Join(l.root, filepath.FromSlash(path.Clean("/"+remote)))
}

// List returns the regular files directly inside folder, sorted by name.
// A folder that does not exist lists as empty.
func (l *Local) List(ctx context.Context, folder string) ([]domain.RemoteFile, error) {
	entries, err := os.ReadDir(l.resolve(folder))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	var out []domain.RemoteFile
	for _, e := range entries {
		if err := ctx.Err(); err != nil {
			return out, err
		}
		if !e.Type().IsRegular() {
			continue
		}
		out = append(out, domain.RemoteFile{Name: e.Name(), Path: path.Join("/", folder, e.Name())})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// Fetch reads the file at remote path p.
func (l *Local) Fetch(ctx context.Context, p string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return os.ReadFile(l.resolve(p))
}

// Put copies localPath into folder, replacing any file of the same name.
func (l *Local) Put(ctx context.Context, localPath, folder string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	dir := l.resolve(folder)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	src, err := os.Open(localPath)
	if err != nil {
		return err
	}
	defer src.Close()

	dst, err := os.Create(filepath.Join(dir, filepath.Base(localPath)))
	if err != nil {
		return err
	}
	if _, err := io.Copy(dst, src); err != nil {
		_ = dst.Close()
		return fmt.Errorf("copy %s: %w", localPath, err)
	}
	return dst.Close()
}

package localfs

import (
	"context"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"animrender/internal/ports"
)

// LocalFS implements ports.StorageProvider using the local filesystem.
// Objects live under root and are exposed by the API under publicPath.
type LocalFS struct {
	root       string
	publicPath string
}

func New(root, publicPath string) *LocalFS {
	return &LocalFS{root: root, publicPath: "/" + strings.Trim(publicPath, "/")}
}

func (l *LocalFS) Provider() string { return "localfs" }

// Root is the directory objects are written to.
func (l *LocalFS) Root() string { return l.root }

func (l *LocalFS) PutObject(ctx context.Context, in ports.PutObjectInput) (ports.PutObjectOutput, error) {
	dst, err := l.resolve(in.ObjectKey)
	if err != nil {
		return ports.PutObjectOutput{}, err
	}
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return ports.PutObjectOutput{}, err
	}

	// Write next to the destination and rename so readers never see a partial file.
	tmp, err := os.CreateTemp(filepath.Dir(dst), ".upload-*")
	if err != nil {
		return ports.PutObjectOutput{}, err
	}
	defer os.Remove(tmp.Name())

	n, err := io.Copy(tmp, in.Reader)
	if err != nil {
		tmp.Close()
		return ports.PutObjectOutput{}, err
	}
	if err := tmp.Close(); err != nil {
		return ports.PutObjectOutput{}, err
	}
	if err := os.Chmod(tmp.Name(), 0o644); err != nil {
		return ports.PutObjectOutput{}, err
	}
	if err := os.Rename(tmp.Name(), dst); err != nil {
		return ports.PutObjectOutput{}, err
	}

	return ports.PutObjectOutput{ObjectKey: in.ObjectKey, Size: n}, nil
}

// GetSignedURL returns the public path of the object. Local files do not expire.
func (l *LocalFS) GetSignedURL(ctx context.Context, objectKey string, expiresIn time.Duration) (ports.SignedURLOutput, error) {
	if _, err := l.resolve(objectKey); err != nil {
		return ports.SignedURLOutput{}, err
	}
	return ports.SignedURLOutput{
		URL:       path.Join(l.publicPath, objectKey),
		ExpiresAt: time.Now().UTC().Add(expiresIn),
	}, nil
}

func (l *LocalFS) Check(ctx context.Context) error {
	if err := os.MkdirAll(l.root, 0o755); err != nil {
		return err
	}
	f, err := os.CreateTemp(l.root, ".check-*")
	if err != nil {
		return err
	}
	name := f.Name()
	f.Close()
	return os.Remove(name)
}

func (l *LocalFS) resolve(objectKey string) (string, error) {
	if objectKey == "" {
		return "", fmt.Errorf("object_key is required")
	}
	clean := path.Clean("/" + objectKey)
	if clean == "/" || clean != "/"+objectKey {
		return "", fmt.Errorf("invalid object_key: %q", objectKey)
	}
	return filepath.Join(l.root, filepath.FromSlash(objectKey)), nil
}

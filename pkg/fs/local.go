package fs

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

// Local keeps media files on the local file system, with URLs served
// from the configured hostname. Mostly useful for development.
type Local struct {
	hostname string
	rootDir  string
}

var _ Storage = (*Local)(nil)

func NewLocal(rootDir string, hostname string) (*Local, error) {
	if hostname == "" {
		return nil, errors.New("hostname can't be empty")
	}

	hostname = strings.TrimSuffix(hostname, "/")
	if !strings.HasPrefix(hostname, "http") {
		hostname = fmt.Sprintf("http://%s", hostname)
	}

	return &Local{rootDir: rootDir, hostname: hostname}, nil
}

func (l *Local) Create(_ context.Context, name string, _ string, reader io.Reader) (string, int64, error) {
	logger := log.WithField("name", name)

	if err := os.MkdirAll(l.rootDir, 0755); err != nil {
		return "", 0, errors.Wrapf(err, "failed to create media dir: %s", l.rootDir)
	}

	path := filepath.Join(l.rootDir, name)

	logger.Debugf("copying to: %s", path)
	written, err := l.copyFile(reader, path)
	if err != nil {
		return "", 0, errors.Wrap(err, "failed to copy file")
	}

	logger.Debugf("copied %d bytes", written)
	return fmt.Sprintf("%s/%s", l.hostname, name), written, nil
}

func (l *Local) Delete(_ context.Context, name string) error {
	return os.Remove(filepath.Join(l.rootDir, name))
}

func (l *Local) copyFile(source io.Reader, destinationPath string) (int64, error) {
	dest, err := os.Create(destinationPath)
	if err != nil {
		return 0, errors.Wrap(err, "failed to create destination file")
	}

	defer dest.Close()

	written, err := io.Copy(dest, source)
	if err != nil {
		// Partial files must not look like successful archives.
		_ = os.Remove(destinationPath)
		return 0, errors.Wrap(err, "failed to copy data")
	}

	return written, nil
}

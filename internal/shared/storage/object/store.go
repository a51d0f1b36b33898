package object

import (
	"context"
	"fmt"
	"io"
	"path"
	"time"

	"github.com/google/uuid"

	"interview-relay/internal/shared/util"
)

// ObjectStore defines the contract for saving and retrieving binary objects.
type ObjectStore interface {
	SaveWithKey(ctx context.Context, storageKey string, contentType string, r io.Reader) (int64, error)
	Open(ctx context.Context, storageKey string) (io.ReadCloser, error)
}

// NewKey builds a unique storage key under namespace for an uploaded file:
// <namespace>/<yyyymmdd>/<uuid>_<sanitized name>.
func NewKey(namespace, fileName string, now time.Time) (string, error) {
	clean, err := util.SanitizeFileName(fileName)
	if err != nil {
		return "", fmt.Errorf("sanitize file name: %w", err)
	}
	return path.Join(namespace, now.UTC().Format("20060102"), uuid.NewString()+"_"+clean), nil
}

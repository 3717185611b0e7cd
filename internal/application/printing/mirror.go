package printing

import (
	"context"
	"path"
	"time"
)

// ArtifactMirror copies saved artifacts to remote object storage
type ArtifactMirror interface {
	Upload(ctx context.Context, key string, data []byte, contentType string) error
	DeleteObject(ctx context.Context, key string) error
	GenerateDownloadURL(ctx context.Context, key string, expiresIn time.Duration) (string, time.Time, error)
}

// MirrorKey is the object key of a stored artifact: <kind>/<file name>
func MirrorKey(kind, fileName string) string {
	return path.Join(kind, fileName)
}

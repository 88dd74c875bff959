package port

import "context"

// ResultMirror copies finished outputs to object storage.
type ResultMirror interface {
	MirrorFile(ctx context.Context, objectKey string, filePath string, contentType string) error
}

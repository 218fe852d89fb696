package storage

import (
	"bytes"
	"context"
	"io"
)

// ObjectStorage defines common object operations across backends.
type ObjectStorage interface {
	EnsureBucket(ctx context.Context) error
	Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error
	Get(ctx context.Context, key string) (io.ReadCloser, error)
	Delete(ctx context.Context, key string) error
	Bucket() string
}

const intakeContentType = "application/json"

// Archive stores intake packets (the serialized step-2 questionnaire) in
// an object storage backend, one object per resident.
type Archive struct {
	backend ObjectStorage
}

// NewArchive constructs an Archive over the provided backend.
func NewArchive(backend ObjectStorage) *Archive {
	return &Archive{backend: backend}
}

// EnsureBucket ensures the configured bucket exists.
func (a *Archive) EnsureBucket(ctx context.Context) error {
	return a.backend.EnsureBucket(ctx)
}

// PutIntakePacket uploads a resident's intake packet, replacing any
// previous version.
func (a *Archive) PutIntakePacket(ctx context.Context, userID string, packet []byte) error {
	return a.backend.Put(ctx, intakeKey(userID), bytes.NewReader(packet), int64(len(packet)), intakeContentType)
}

// GetIntakePacket reads a resident's archived intake packet.
func (a *Archive) GetIntakePacket(ctx context.Context, userID string) ([]byte, error) {
	reader, err := a.backend.Get(ctx, intakeKey(userID))
	if err != nil {
		return nil, err
	}
	defer reader.Close()
	return io.ReadAll(reader)
}

// DeleteIntakePacket removes a resident's archived intake packet.
func (a *Archive) DeleteIntakePacket(ctx context.Context, userID string) error {
	return a.backend.Delete(ctx, intakeKey(userID))
}

// Bucket returns the configured bucket name.
func (a *Archive) Bucket() string {
	return a.backend.Bucket()
}

func intakeKey(userID string) string {
	return "intake/" + userID + ".json"
}

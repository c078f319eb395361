package storage

import (
	"context"
	"errors"
	"io"
)

// ErrUploadsDisabled is returned by the disabled uploader when object storage is not configured.
var ErrUploadsDisabled = errors.New("file uploads are not configured")

type UploadResult struct {
	Key      string
	Location string
	ETag     string
}

type FileUploader interface {
	Upload(ctx context.Context, key string, contentType string, reader io.Reader) (*UploadResult, error)

	Delete(ctx context.Context, key string) error

	GetPublicURL(key string) string
}

type disabledUploader struct{}

// NewDisabledUploader returns an uploader that rejects every upload. Existing keys
// resolve to no URL.
func NewDisabledUploader() FileUploader {
	return disabledUploader{}
}

func (disabledUploader) Upload(context.Context, string, string, io.Reader) (*UploadResult, error) {
	return nil, ErrUploadsDisabled
}

func (disabledUploader) Delete(context.Context, string) error {
	return ErrUploadsDisabled
}

func (disabledUploader) GetPublicURL(string) string {
	return ""
}

package thumbnail

import (
	"errors"
	"fmt"
)

// MaxFileSize is the largest accepted upload in bytes (2 MiB).
const MaxFileSize = 2 << 20

// allowedContentTypes is the set of accepted image MIME types.
var allowedContentTypes = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
	"image/jpg":  true,
	"image/webp": true,
}

// ErrEmptyBatch is returned when an ingestion request carries no files.
var ErrEmptyBatch = errors.New("batch contains no files")

// UnsupportedTypeError is returned when a file declares a content type outside
// the allowed image set.
type UnsupportedTypeError struct {
	ContentType string
}

func (e *UnsupportedTypeError) Error() string {
	return fmt.Sprintf("unsupported content type %q", e.ContentType)
}

// FileTooLargeError is returned when a file exceeds MaxFileSize.
type FileTooLargeError struct {
	Size int64
}

func (e *FileTooLargeError) Error() string {
	return fmt.Sprintf("file size %d exceeds limit of %d bytes", e.Size, MaxFileSize)
}

// ValidateBatch checks a whole batch before anything is written. The whole
// batch passes or the whole batch is rejected: rules are applied in order,
// each rule over files in arrival order, and the first offending file fails
// the batch with its detail.
func ValidateBatch(batch []UploadedFile) error {
	if len(batch) == 0 {
		return ErrEmptyBatch
	}
	for _, f := range batch {
		if !allowedContentTypes[f.ContentType] {
			return &UnsupportedTypeError{ContentType: f.ContentType}
		}
	}
	for _, f := range batch {
		if f.Size > MaxFileSize {
			return &FileTooLargeError{Size: f.Size}
		}
	}
	return nil
}

// IsValidationError reports whether err was produced by batch validation.
func IsValidationError(err error) bool {
	var typeErr *UnsupportedTypeError
	var sizeErr *FileTooLargeError
	return errors.Is(err, ErrEmptyBatch) || errors.As(err, &typeErr) || errors.As(err, &sizeErr)
}

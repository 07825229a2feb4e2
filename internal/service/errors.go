package service

import "errors"

var (
	ErrIDRequired      = errors.New("id is required")
	ErrNotFound        = errors.New("entry not found")
	ErrMediaNotFound   = errors.New("media not found on entry")
	ErrBlobNotFound    = errors.New("file not found")
	ErrReaderNil       = errors.New("reader is nil")
	ErrUnsupportedType = errors.New("unsupported file type")
	ErrPayloadTooLarge = errors.New("file too large")
	ErrValidation      = errors.New("validation error")
	ErrStorage         = errors.New("storage failure")
)

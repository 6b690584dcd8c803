package uploader

import "github.com/google/uuid"

// UploadOptions configures a single upload
type UploadOptions struct {
	// SessionID identifies the upload in the journal, a random one is generated when left as uuid.Nil
	SessionID uuid.UUID
}

// UploadOption is a functional option for Upload
type UploadOption func(*UploadOptions)

// WithSessionID makes upload journal under id, so other consumers of the
// session (e.g. progress sinks) can share it.
func WithSessionID(id uuid.UUID) UploadOption {
	return func(o *UploadOptions) {
		o.SessionID = id
	}
}

func buildUploadOptions(opts []UploadOption) UploadOptions {
	var o UploadOptions
	for _, opt := range opts {
		opt(&o)
	}

	return o
}

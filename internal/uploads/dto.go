package upload

import (
	"io"
	"time"
)

// PresignInput requests a direct-to-bucket upload URL.
type PresignInput struct {
	FileName    string `json:"file_name" validate:"required,max=255"`
	ContentType string `json:"content_type" validate:"required"`
}

// PresignOutput is returned to the browser, which PUTs the file to UploadURL
// with the same Content-Type before ExpiresAt.
type PresignOutput struct {
	Key         string    `json:"key"`
	UploadURL   string    `json:"upload_url"`
	PublicURL   string    `json:"public_url"`
	ContentType string    `json:"content_type"`
	ExpiresAt   time.Time `json:"expires_at"`
}

// UploadInput streams a file through the API into the bucket.
type UploadInput struct {
	FileName    string
	ContentType string
	Size        int64
	Body        io.Reader
}

type UploadOutput struct {
	Key         string `json:"key"`
	PublicURL   string `json:"public_url"`
	ContentType string `json:"content_type"`
	Size        int64  `json:"size"`
}

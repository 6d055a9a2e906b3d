package upload

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"

	pkgerrors "github.com/geoinstrumentos/catalog-backend/pkg/errors"
	"github.com/geoinstrumentos/catalog-backend/pkg/storage"
)

const (
	keyPrefix    = "products"
	defaultExt   = "jpg"
	sniffLength  = 3072
	defaultLimit = 10 * 1024 * 1024
)

type objectWriter interface {
	PresignPut(ctx context.Context, key, contentType string, ttl time.Duration) (string, error)
	Put(ctx context.Context, key string, body io.Reader, size int64, contentType string) error
}

// Service issues upload targets for product images.
type Service interface {
	Presign(ctx context.Context, input PresignInput) (*PresignOutput, error)
	Upload(ctx context.Context, input UploadInput) (*UploadOutput, error)
}

type service struct {
	store    objectWriter
	urls     *storage.URLBuilder
	ttl      time.Duration
	maxBytes int64
	now      func() time.Time
}

func NewService(store objectWriter, urls *storage.URLBuilder, ttl time.Duration, maxBytes int64) (Service, error) {
	if store == nil {
		return nil, fmt.Errorf("storage client required")
	}
	if urls == nil {
		return nil, fmt.Errorf("url builder required")
	}
	if ttl <= 0 {
		return nil, fmt.Errorf("upload url expiry must be positive")
	}
	if maxBytes <= 0 {
		maxBytes = defaultLimit
	}
	return &service{
		store:    store,
		urls:     urls,
		ttl:      ttl,
		maxBytes: maxBytes,
		now:      time.Now,
	}, nil
}

func (s *service) Presign(ctx context.Context, input PresignInput) (*PresignOutput, error) {
	contentType, err := checkContentType(input.ContentType)
	if err != nil {
		return nil, err
	}

	now := s.now()
	key := buildKey(now, input.FileName)
	uploadURL, err := s.store.PresignPut(ctx, key, contentType, s.ttl)
	if err != nil {
		return nil, pkgerrors.Storage(err, "sign upload url")
	}

	return &PresignOutput{
		Key:         key,
		UploadURL:   uploadURL,
		PublicURL:   s.publicURL(ctx, key),
		ContentType: contentType,
		ExpiresAt:   now.Add(s.ttl).UTC(),
	}, nil
}

func (s *service) Upload(ctx context.Context, input UploadInput) (*UploadOutput, error) {
	if input.Body == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "file is required")
	}
	if input.Size > s.maxBytes {
		return nil, tooLarge(s.maxBytes)
	}

	body := bufio.NewReaderSize(io.LimitReader(input.Body, s.maxBytes+1), sniffLength)
	declared := normalizeContentType(input.ContentType)
	if declared == "" || declared == octetStream {
		head, _ := body.Peek(sniffLength)
		declared = sniffContentType(head)
	}
	contentType, err := checkContentType(declared)
	if err != nil {
		return nil, err
	}

	// Size is advisory for multipart parts; enforce the cap on the bytes read.
	payload, err := io.ReadAll(body)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "read upload body")
	}
	if int64(len(payload)) > s.maxBytes {
		return nil, tooLarge(s.maxBytes)
	}
	if len(payload) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "file is empty")
	}

	key := buildKey(s.now(), input.FileName)
	if err := s.store.Put(ctx, key, bytes.NewReader(payload), int64(len(payload)), contentType); err != nil {
		return nil, pkgerrors.Storage(err, "upload object")
	}

	return &UploadOutput{
		Key:         key,
		PublicURL:   s.publicURL(ctx, key),
		ContentType: contentType,
		Size:        int64(len(payload)),
	}, nil
}

func (s *service) publicURL(ctx context.Context, key string) string {
	if url := s.urls.URL(ctx, &key); url != nil {
		return *url
	}
	return ""
}

func checkContentType(value string) (string, error) {
	contentType := normalizeContentType(value)
	if contentType == "" {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "content_type is required")
	}
	if !isAllowedContentType(contentType) {
		return "", pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("content type %q is not allowed", contentType)).
			WithDetails(map[string]string{"allowed": allowedList()})
	}
	return contentType, nil
}

func tooLarge(limit int64) error {
	return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("file exceeds the %d MB limit", limit/(1024*1024)))
}

// buildKey returns products/<unix millis>-<uuid>.<ext>. The extension is the
// filename suffix after the last dot, or jpg when there is none.
func buildKey(now time.Time, fileName string) string {
	return fmt.Sprintf("%s/%d-%s.%s", keyPrefix, now.UnixMilli(), uuid.NewString(), extension(fileName))
}

func extension(fileName string) string {
	name := strings.TrimSpace(fileName)
	idx := strings.LastIndex(name, ".")
	if idx < 0 || idx == len(name)-1 {
		return defaultExt
	}
	ext := name[idx+1:]
	if strings.ContainsAny(ext, "/\\ ") {
		return defaultExt
	}
	return ext
}

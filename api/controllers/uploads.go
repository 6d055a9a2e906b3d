package controllers

import (
	"errors"
	"io"
	"net/http"

	"github.com/geoinstrumentos/catalog-backend/api/responses"
	"github.com/geoinstrumentos/catalog-backend/api/validators"
	upload "github.com/geoinstrumentos/catalog-backend/internal/uploads"
	pkgerrors "github.com/geoinstrumentos/catalog-backend/pkg/errors"
	"github.com/geoinstrumentos/catalog-backend/pkg/logger"
)

const (
	uploadFormField   = "file"
	multipartOverhead = 1 << 20
)

func AdminPresignUpload(svc upload.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "upload service unavailable"))
			return
		}
		var payload upload.PresignInput
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		out, err := svc.Presign(r.Context(), payload)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, out)
	}
}

// AdminUpload streams the "file" part of a multipart form to the bucket.
// The body is capped at maxBytes plus room for the multipart envelope.
func AdminUpload(svc upload.Service, maxBytes int64, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "upload service unavailable"))
			return
		}
		r.Body = http.MaxBytesReader(w, r.Body, maxBytes+multipartOverhead)

		reader, err := r.MultipartReader()
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "expected multipart/form-data"))
			return
		}

		for {
			part, err := reader.NextPart()
			if errors.Is(err, io.EOF) {
				break
			}
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid multipart body"))
				return
			}
			if part.FormName() != uploadFormField {
				_ = part.Close()
				continue
			}

			out, err := svc.Upload(r.Context(), upload.UploadInput{
				FileName:    part.FileName(),
				ContentType: part.Header.Get("Content-Type"),
				Body:        part,
			})
			_ = part.Close()
			if err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
			if logg != nil {
				logg.Info(logg.WithObjectKey(r.Context(), out.Key), "upload.stored")
			}
			responses.WriteSuccessStatus(w, http.StatusCreated, out)
			return
		}

		responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "file is required").
			WithDetails(map[string]string{uploadFormField: "is required"}))
	}
}

package controllers

import (
	"net/http"

	"github.com/geoinstrumentos/catalog-backend/api/responses"
	"github.com/geoinstrumentos/catalog-backend/api/validators"
	"github.com/geoinstrumentos/catalog-backend/internal/checkout"
	pkgerrors "github.com/geoinstrumentos/catalog-backend/pkg/errors"
	"github.com/geoinstrumentos/catalog-backend/pkg/logger"
)

func WhatsAppHandoff(svc checkout.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "checkout service unavailable"))
			return
		}
		var payload checkout.HandoffInput
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		payload.CustomerName = validators.SanitizeString(payload.CustomerName, 120)
		payload.Notes = validators.SanitizeString(payload.Notes, 500)

		out, err := svc.Handoff(r.Context(), payload)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, out)
	}
}

package controllers

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/geoinstrumentos/catalog-backend/api/responses"
	"github.com/geoinstrumentos/catalog-backend/api/validators"
	producttype "github.com/geoinstrumentos/catalog-backend/internal/producttypes"
	pkgerrors "github.com/geoinstrumentos/catalog-backend/pkg/errors"
	"github.com/geoinstrumentos/catalog-backend/pkg/logger"
)

// AdminListProductTypes returns every type; ?include_inactive=false hides
// deactivated ones.
func AdminListProductTypes(svc producttype.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "product type service unavailable"))
			return
		}
		includeInactive := true
		if raw := r.URL.Query().Get("include_inactive"); raw != "" {
			parsed, err := strconv.ParseBool(raw)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "include_inactive must be a boolean"))
				return
			}
			includeInactive = parsed
		}
		items, err := svc.List(r.Context(), includeInactive)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, items)
	}
}

func PublicListProductTypes(svc producttype.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "product type service unavailable"))
			return
		}
		items, err := svc.List(r.Context(), false)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, items)
	}
}

func AdminCreateProductType(svc producttype.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "product type service unavailable"))
			return
		}
		var payload producttype.CreateInput
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		item, err := svc.Create(r.Context(), payload)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, item)
	}
}

func AdminUpdateProductType(svc producttype.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "product type service unavailable"))
			return
		}
		id, err := validators.ParseUUIDParam("id", chi.URLParam(r, "id"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var patch producttype.Patch
		if err := validators.DecodeJSONBody(r, &patch); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		item, err := svc.Update(r.Context(), id, patch)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, item)
	}
}

// AdminDeactivateProductType backs DELETE; the row is kept and marked inactive.
func AdminDeactivateProductType(svc producttype.Service, logg *logger.Logger) http.HandlerFunc {
	return setProductTypeActive(svc, logg, false)
}

func AdminReactivateProductType(svc producttype.Service, logg *logger.Logger) http.HandlerFunc {
	return setProductTypeActive(svc, logg, true)
}

func setProductTypeActive(svc producttype.Service, logg *logger.Logger, active bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "product type service unavailable"))
			return
		}
		id, err := validators.ParseUUIDParam("id", chi.URLParam(r, "id"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var item *producttype.ProductTypeDTO
		if active {
			item, err = svc.Reactivate(r.Context(), id)
		} else {
			item, err = svc.Deactivate(r.Context(), id)
		}
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, item)
	}
}

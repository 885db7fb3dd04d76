package controllers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/lmarchetti/stagepass-backend/api/responses"
	"github.com/lmarchetti/stagepass-backend/api/validators"
	"github.com/lmarchetti/stagepass-backend/internal/artists"
	pkgerrors "github.com/lmarchetti/stagepass-backend/pkg/errors"
	"github.com/lmarchetti/stagepass-backend/pkg/logger"
)

func ArtistCreate(svc artists.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "artist service unavailable"))
			return
		}

		var body artists.CreateArtistInput
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		artist, err := svc.Create(r.Context(), body)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, artist)
	}
}

func ArtistGet(svc artists.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "artist service unavailable"))
			return
		}

		id, err := validators.PathUUID(chi.URLParam(r, "artistID"), "artistID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		artist, err := svc.Get(r.Context(), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, artist)
	}
}

func ArtistUpdate(svc artists.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "artist service unavailable"))
			return
		}

		id, err := validators.PathUUID(chi.URLParam(r, "artistID"), "artistID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body artists.UpdateArtistInput
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		artist, err := svc.Update(r.Context(), id, body)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, artist)
	}
}

func ArtistList(svc artists.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "artist service unavailable"))
			return
		}

		params, err := validators.ParsePagination(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		page, err := svc.List(r.Context(), params)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, page)
	}
}

package controllers

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/lmarchetti/stagepass-backend/api/middleware"
	"github.com/lmarchetti/stagepass-backend/pkg/enums"
	pkgerrors "github.com/lmarchetti/stagepass-backend/pkg/errors"
)

// actorID extracts the authenticated user's id from the request context.
func actorID(r *http.Request) (uuid.UUID, error) {
	raw := middleware.UserIDFromContext(r.Context())
	if raw == "" {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user context missing")
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid user id")
	}
	return id, nil
}

func actorIsAdmin(r *http.Request) bool {
	return middleware.RoleFromContext(r.Context()) == string(enums.UserRoleAdmin)
}

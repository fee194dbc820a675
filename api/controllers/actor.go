package controllers

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/rushela/Smart-Waste-Management-System-sub000/api/middleware"
	"github.com/rushela/Smart-Waste-Management-System-sub000/internal/payments"
	"github.com/rushela/Smart-Waste-Management-System-sub000/pkg/enums"
	pkgerrors "github.com/rushela/Smart-Waste-Management-System-sub000/pkg/errors"
)

// actorFromRequest resolves the authenticated caller from the request context.
func actorFromRequest(r *http.Request) (payments.Actor, error) {
	rawID := middleware.ResidentIDFromContext(r.Context())
	if rawID == "" {
		return payments.Actor{}, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials")
	}
	actorID, err := uuid.Parse(rawID)
	if err != nil {
		return payments.Actor{}, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid actor id")
	}
	role, err := enums.ParseActorRole(middleware.RoleFromContext(r.Context()))
	if err != nil {
		return payments.Actor{}, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid actor role")
	}
	return payments.Actor{ResidentID: actorID, Role: role}, nil
}

// resolveTargetResident picks the resident an operation acts on. Residents are
// pinned to themselves; workers and admins may name any resident.
func resolveTargetResident(actor payments.Actor, requested *uuid.UUID) (uuid.UUID, error) {
	if requested == nil || *requested == uuid.Nil || *requested == actor.ResidentID {
		return actor.ResidentID, nil
	}
	if actor.Role == enums.ActorRoleResident {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeForbidden, "cannot act on another resident's account")
	}
	return *requested, nil
}

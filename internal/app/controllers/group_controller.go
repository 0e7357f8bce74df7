package controllers

import (
	"errors"
	"net/http"
	"strings"

	qrcode "github.com/skip2/go-qrcode"

	"github.com/neighborly/go-neighborhood-api/internal/app/services"
	"github.com/neighborly/go-neighborhood-api/internal/domain/group"
	"github.com/neighborly/go-neighborhood-api/internal/platform/middleware"
)

type GroupController struct {
	service services.GroupService
}

func NewGroupController(s services.GroupService) *GroupController {
	return &GroupController{service: s}
}

func (c *GroupController) Create(w http.ResponseWriter, r *http.Request) {
	var in group.CreateInput
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	g, err := c.service.Create(r.Context(), middleware.UserID(r.Context()), in)
	if err != nil {
		writeError(w, mapGroupStatus(err), err)
		return
	}
	writeJSON(w, http.StatusCreated, g)
}

func (c *GroupController) Get(w http.ResponseWriter, r *http.Request, id string) {
	g, err := c.service.Get(r.Context(), middleware.UserID(r.Context()), id)
	if err != nil {
		writeError(w, mapGroupStatus(err), err)
		return
	}
	writeJSON(w, http.StatusOK, g)
}

func (c *GroupController) Update(w http.ResponseWriter, r *http.Request, id string) {
	var in group.UpdateInput
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	g, err := c.service.Update(r.Context(), middleware.UserID(r.Context()), id, in)
	if err != nil {
		writeError(w, mapGroupStatus(err), err)
		return
	}
	writeJSON(w, http.StatusOK, g)
}

func (c *GroupController) Delete(w http.ResponseWriter, r *http.Request, id string) {
	if err := c.service.Delete(r.Context(), middleware.UserID(r.Context()), id); err != nil {
		writeError(w, mapGroupStatus(err), err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ListByCommunity handles GET /communities/{id}/groups.
func (c *GroupController) ListByCommunity(w http.ResponseWriter, r *http.Request, communityID string) {
	items, err := c.service.ListByCommunity(r.Context(), middleware.UserID(r.Context()), communityID)
	if err != nil {
		writeError(w, mapGroupStatus(err), err)
		return
	}
	writeJSON(w, http.StatusOK, items)
}

func (c *GroupController) ListMembers(w http.ResponseWriter, r *http.Request, id string) {
	members, err := c.service.ListMembers(r.Context(), middleware.UserID(r.Context()), id)
	if err != nil {
		writeError(w, mapGroupStatus(err), err)
		return
	}
	writeJSON(w, http.StatusOK, members)
}

func (c *GroupController) RemoveMember(w http.ResponseWriter, r *http.Request, id, targetUserID string) {
	if err := c.service.RemoveMember(r.Context(), middleware.UserID(r.Context()), id, targetUserID); err != nil {
		writeError(w, mapGroupStatus(err), err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (c *GroupController) Leave(w http.ResponseWriter, r *http.Request, id string) {
	if err := c.service.Leave(r.Context(), middleware.UserID(r.Context()), id); err != nil {
		writeError(w, mapGroupStatus(err), err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (c *GroupController) Preview(w http.ResponseWriter, r *http.Request) {
	token := strings.TrimSpace(r.URL.Query().Get("token"))
	if token == "" {
		writeError(w, http.StatusBadRequest, ErrMissingToken)
		return
	}
	preview, err := c.service.PreviewByToken(r.Context(), token)
	if err != nil {
		writeError(w, mapGroupStatus(err), err)
		return
	}
	writeJSON(w, http.StatusOK, preview)
}

func (c *GroupController) Join(w http.ResponseWriter, r *http.Request) {
	token := strings.TrimSpace(r.URL.Query().Get("token"))
	if token == "" {
		writeError(w, http.StatusBadRequest, ErrMissingToken)
		return
	}
	result, err := c.service.Join(r.Context(), middleware.UserID(r.Context()), token)
	if err != nil {
		writeError(w, mapGroupStatus(err), err)
		return
	}
	writeJSON(w, http.StatusCreated, result)
}

func (c *GroupController) Invite(w http.ResponseWriter, r *http.Request, id string) {
	resp, err := c.service.Invite(r.Context(), middleware.UserID(r.Context()), id)
	if err != nil {
		writeError(w, mapGroupStatus(err), err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (c *GroupController) RefreshInvite(w http.ResponseWriter, r *http.Request, id string) {
	resp, err := c.service.RefreshInvite(r.Context(), middleware.UserID(r.Context()), id)
	if err != nil {
		writeError(w, mapGroupStatus(err), err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (c *GroupController) InviteQR(w http.ResponseWriter, r *http.Request, id string) {
	resp, err := c.service.Invite(r.Context(), middleware.UserID(r.Context()), id)
	if err != nil {
		writeError(w, mapGroupStatus(err), err)
		return
	}
	png, err := qrcode.Encode(resp.InviteURL, qrcode.Medium, 256)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(png)
}

func mapGroupStatus(err error) int {
	switch {
	case errors.Is(err, services.ErrGroupNotFound),
		errors.Is(err, services.ErrCommunityNotFound),
		errors.Is(err, services.ErrInviteNotFound):
		return http.StatusNotFound
	case errors.Is(err, services.ErrNotOwner),
		errors.Is(err, services.ErrAccessDenied),
		errors.Is(err, services.ErrOwnerCannotLeave),
		errors.Is(err, services.ErrOwnerCannotRemoveSelf):
		return http.StatusForbidden
	case errors.Is(err, services.ErrAlreadyMember):
		return http.StatusConflict
	case errors.Is(err, services.ErrNotMember),
		errors.Is(err, services.ErrGroupNameMissing):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

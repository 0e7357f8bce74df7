package controllers

import (
	"errors"
	"net/http"
	"strings"

	qrcode "github.com/skip2/go-qrcode"

	"github.com/neighborly/go-neighborhood-api/internal/app/services"
	"github.com/neighborly/go-neighborhood-api/internal/domain/community"
	"github.com/neighborly/go-neighborhood-api/internal/platform/middleware"
)

type CommunityController struct {
	service services.CommunityService
}

func NewCommunityController(s services.CommunityService) *CommunityController {
	return &CommunityController{service: s}
}

func (c *CommunityController) Create(w http.ResponseWriter, r *http.Request) {
	var in community.CreateInput
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	comm, err := c.service.Create(r.Context(), middleware.UserID(r.Context()), in)
	if err != nil {
		writeError(w, mapCommunityStatus(err), err)
		return
	}
	writeJSON(w, http.StatusCreated, comm)
}

func (c *CommunityController) ListMine(w http.ResponseWriter, r *http.Request) {
	items, err := c.service.ListMine(r.Context(), middleware.UserID(r.Context()))
	if err != nil {
		writeError(w, mapCommunityStatus(err), err)
		return
	}
	writeJSON(w, http.StatusOK, items)
}

func (c *CommunityController) Get(w http.ResponseWriter, r *http.Request, id string) {
	comm, err := c.service.Get(r.Context(), middleware.UserID(r.Context()), id)
	if err != nil {
		writeError(w, mapCommunityStatus(err), err)
		return
	}
	writeJSON(w, http.StatusOK, comm)
}

func (c *CommunityController) Update(w http.ResponseWriter, r *http.Request, id string) {
	var in community.UpdateInput
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	comm, err := c.service.Update(r.Context(), middleware.UserID(r.Context()), id, in)
	if err != nil {
		writeError(w, mapCommunityStatus(err), err)
		return
	}
	writeJSON(w, http.StatusOK, comm)
}

func (c *CommunityController) Delete(w http.ResponseWriter, r *http.Request, id string) {
	if err := c.service.Delete(r.Context(), middleware.UserID(r.Context()), id); err != nil {
		writeError(w, mapCommunityStatus(err), err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (c *CommunityController) ListMembers(w http.ResponseWriter, r *http.Request, id string) {
	members, err := c.service.ListMembers(r.Context(), middleware.UserID(r.Context()), id)
	if err != nil {
		writeError(w, mapCommunityStatus(err), err)
		return
	}
	writeJSON(w, http.StatusOK, members)
}

func (c *CommunityController) RemoveMember(w http.ResponseWriter, r *http.Request, id, targetUserID string) {
	if err := c.service.RemoveMember(r.Context(), middleware.UserID(r.Context()), id, targetUserID); err != nil {
		writeError(w, mapCommunityStatus(err), err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (c *CommunityController) Leave(w http.ResponseWriter, r *http.Request, id string) {
	if err := c.service.Leave(r.Context(), middleware.UserID(r.Context()), id); err != nil {
		writeError(w, mapCommunityStatus(err), err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Preview handles GET /communities/join?token= for invitees who have not
// joined yet: name, description and member count, nothing else.
func (c *CommunityController) Preview(w http.ResponseWriter, r *http.Request) {
	token := strings.TrimSpace(r.URL.Query().Get("token"))
	if token == "" {
		writeError(w, http.StatusBadRequest, ErrMissingToken)
		return
	}
	preview, err := c.service.PreviewByToken(r.Context(), token)
	if err != nil {
		writeError(w, mapCommunityStatus(err), err)
		return
	}
	writeJSON(w, http.StatusOK, preview)
}

func (c *CommunityController) Join(w http.ResponseWriter, r *http.Request) {
	token := strings.TrimSpace(r.URL.Query().Get("token"))
	if token == "" {
		writeError(w, http.StatusBadRequest, ErrMissingToken)
		return
	}
	proj, err := c.service.Join(r.Context(), middleware.UserID(r.Context()), token)
	if err != nil {
		writeError(w, mapCommunityStatus(err), err)
		return
	}
	writeJSON(w, http.StatusCreated, proj)
}

func (c *CommunityController) Invite(w http.ResponseWriter, r *http.Request, id string) {
	resp, err := c.service.Invite(r.Context(), middleware.UserID(r.Context()), id)
	if err != nil {
		writeError(w, mapCommunityStatus(err), err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (c *CommunityController) RefreshInvite(w http.ResponseWriter, r *http.Request, id string) {
	resp, err := c.service.RefreshInvite(r.Context(), middleware.UserID(r.Context()), id)
	if err != nil {
		writeError(w, mapCommunityStatus(err), err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// InviteQR renders the invite URL as a PNG for printed flyers and notice
// boards.
func (c *CommunityController) InviteQR(w http.ResponseWriter, r *http.Request, id string) {
	resp, err := c.service.Invite(r.Context(), middleware.UserID(r.Context()), id)
	if err != nil {
		writeError(w, mapCommunityStatus(err), err)
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

func mapCommunityStatus(err error) int {
	switch {
	case errors.Is(err, services.ErrCommunityNotFound), errors.Is(err, services.ErrInviteNotFound):
		return http.StatusNotFound
	case errors.Is(err, services.ErrNotOwner),
		errors.Is(err, services.ErrAccessDenied),
		errors.Is(err, services.ErrOwnerCannotLeave),
		errors.Is(err, services.ErrOwnerCannotRemoveSelf):
		return http.StatusForbidden
	case errors.Is(err, services.ErrAlreadyMember):
		return http.StatusConflict
	case errors.Is(err, services.ErrNotMember),
		errors.Is(err, services.ErrCommunityNameMissing):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

package controllers

import (
	"errors"
	"net/http"

	"github.com/neighborly/go-neighborhood-api/internal/app/services"
	"github.com/neighborly/go-neighborhood-api/internal/domain/listing"
	"github.com/neighborly/go-neighborhood-api/internal/platform/middleware"
)

const maxPhotoBytes = 10 << 20

type ListingController struct {
	service services.ListingService
}

func NewListingController(s services.ListingService) *ListingController {
	return &ListingController{service: s}
}

func (c *ListingController) Create(w http.ResponseWriter, r *http.Request) {
	var in listing.CreateInput
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	l, err := c.service.Create(r.Context(), middleware.UserID(r.Context()), in)
	if err != nil {
		writeError(w, mapListingStatus(err), err)
		return
	}
	writeJSON(w, http.StatusCreated, l)
}

// List returns the caller's visible listings, optionally narrowed by
// ?type=, ?category= and ?q=.
func (c *ListingController) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	f := listing.Filter{
		Type:     listing.Type(q.Get("type")),
		Category: q.Get("category"),
		Query:    q.Get("q"),
	}
	if f.Type != "" && !f.Type.Valid() {
		writeError(w, http.StatusBadRequest, services.ErrListingTypeInvalid)
		return
	}
	items, err := c.service.List(r.Context(), middleware.UserID(r.Context()), f)
	if err != nil {
		writeError(w, mapListingStatus(err), err)
		return
	}
	writeJSON(w, http.StatusOK, items)
}

func (c *ListingController) Get(w http.ResponseWriter, r *http.Request, id string) {
	detail, err := c.service.Get(r.Context(), middleware.UserID(r.Context()), id)
	if err != nil {
		writeError(w, mapListingStatus(err), err)
		return
	}
	writeJSON(w, http.StatusOK, detail)
}

func (c *ListingController) Update(w http.ResponseWriter, r *http.Request, id string) {
	var in listing.UpdateInput
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	l, err := c.service.Update(r.Context(), middleware.UserID(r.Context()), id, in)
	if err != nil {
		writeError(w, mapListingStatus(err), err)
		return
	}
	writeJSON(w, http.StatusOK, l)
}

func (c *ListingController) Delete(w http.ResponseWriter, r *http.Request, id string) {
	if err := c.service.Delete(r.Context(), middleware.UserID(r.Context()), id); err != nil {
		writeError(w, mapListingStatus(err), err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// UploadPhoto accepts a multipart form with a single "file" part.
func (c *ListingController) UploadPhoto(w http.ResponseWriter, r *http.Request, id string) {
	if err := r.ParseMultipartForm(maxPhotoBytes); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	defer file.Close()

	url, err := c.service.UploadPhoto(r.Context(), middleware.UserID(r.Context()), id, services.PhotoInput{
		FileName:    header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Body:        file,
		Size:        header.Size,
	})
	if err != nil {
		writeError(w, mapListingStatus(err), err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"url": url})
}

func mapListingStatus(err error) int {
	switch {
	case errors.Is(err, services.ErrListingNotFound):
		return http.StatusNotFound
	case errors.Is(err, services.ErrListingAccessDenied), errors.Is(err, services.ErrNotOwner):
		return http.StatusForbidden
	case errors.Is(err, services.ErrInvalidAudience),
		errors.Is(err, services.ErrListingTitleMissing),
		errors.Is(err, services.ErrListingTypeInvalid):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

package httpapi

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/dmitrijs2005/catalogkeeper/internal/common"
	"github.com/dmitrijs2005/catalogkeeper/internal/server/models"
	"github.com/dmitrijs2005/catalogkeeper/internal/server/services"
)

type imageUploadRequest struct {
	ContentType string `json:"contentType"`
}

type imageConfirmRequest struct {
	Key string `json:"key"`
}

func productID(r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	return id, err == nil && id > 0
}

// writeProductError maps service errors to statuses. Validation messages are
// safe to show; anything else is reduced to a generic body.
func (s *Server) writeProductError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, common.ErrorNotFound):
		WriteMessage(w, r, s.logger, http.StatusNotFound, "product not found")
	case errors.Is(err, common.ErrorValidation):
		WriteMessage(w, r, s.logger, http.StatusBadRequest, strings.TrimPrefix(err.Error(), common.ErrorValidation.Error()+": "))
	case errors.Is(err, services.ErrStorageDisabled):
		WriteMessage(w, r, s.logger, http.StatusNotImplemented, "image storage is not configured")
	default:
		WriteMessage(w, r, s.logger, http.StatusInternalServerError, "internal error")
	}
}

func (s *Server) ListProducts(w http.ResponseWriter, r *http.Request) {
	items, err := s.products.List(r.Context())
	if err != nil {
		s.writeProductError(w, r, err)
		return
	}
	if items == nil {
		items = []models.Product{}
	}
	WriteJSONResponse(w, r, s.logger, http.StatusOK, items)
}

func (s *Server) GetProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := productID(r)
	if !ok {
		WriteMessage(w, r, s.logger, http.StatusBadRequest, "invalid product id")
		return
	}
	p, err := s.products.Get(r.Context(), id)
	if err != nil {
		s.writeProductError(w, r, err)
		return
	}
	WriteJSONResponse(w, r, s.logger, http.StatusOK, p)
}

func (s *Server) CreateProduct(w http.ResponseWriter, r *http.Request) {
	var p models.Product
	if err := DecodeJSONBody(w, r, &p); err != nil {
		WriteMessage(w, r, s.logger, http.StatusBadRequest, err.Error())
		return
	}

	created, err := s.products.Create(r.Context(), &p)
	if err != nil {
		s.writeProductError(w, r, err)
		return
	}

	w.Header().Set("Location", fmt.Sprintf("%s/%d", strings.TrimSuffix(r.URL.Path, "/"), created.ID))
	WriteJSONResponse(w, r, s.logger, http.StatusCreated, created)
}

// UpdateProduct replaces the product named in the path. An id in the body,
// if any, must agree with it.
func (s *Server) UpdateProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := productID(r)
	if !ok {
		WriteMessage(w, r, s.logger, http.StatusBadRequest, "invalid product id")
		return
	}

	var p models.Product
	if err := DecodeJSONBody(w, r, &p); err != nil {
		WriteMessage(w, r, s.logger, http.StatusBadRequest, err.Error())
		return
	}
	if p.ID != 0 && p.ID != id {
		WriteMessage(w, r, s.logger, http.StatusBadRequest, "product id mismatch")
		return
	}

	updated, err := s.products.Update(r.Context(), id, &p)
	if err != nil {
		s.writeProductError(w, r, err)
		return
	}
	WriteJSONResponse(w, r, s.logger, http.StatusOK, updated)
}

func (s *Server) DeleteProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := productID(r)
	if !ok {
		WriteMessage(w, r, s.logger, http.StatusBadRequest, "invalid product id")
		return
	}
	if err := s.products.Delete(r.Context(), id); err != nil {
		s.writeProductError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ImageUploadURL hands out a presigned PUT for a new product image.
func (s *Server) ImageUploadURL(w http.ResponseWriter, r *http.Request) {
	id, ok := productID(r)
	if !ok {
		WriteMessage(w, r, s.logger, http.StatusBadRequest, "invalid product id")
		return
	}

	var req imageUploadRequest
	if err := DecodeJSONBody(w, r, &req); err != nil && !errors.Is(err, errEmptyBody) {
		WriteMessage(w, r, s.logger, http.StatusBadRequest, err.Error())
		return
	}

	up, err := s.images.RequestUpload(r.Context(), id, req.ContentType)
	if err != nil {
		if !errors.Is(err, common.ErrorNotFound) && !errors.Is(err, common.ErrorValidation) &&
			!errors.Is(err, services.ErrStorageDisabled) {
			s.logger.Error(r.Context(), "image upload url failed", "id", id, "error", err)
		}
		s.writeProductError(w, r, err)
		return
	}
	WriteJSONResponse(w, r, s.logger, http.StatusOK, up)
}

// ConfirmImage points the product at an uploaded object. Clients call it
// after the presigned PUT succeeded.
func (s *Server) ConfirmImage(w http.ResponseWriter, r *http.Request) {
	id, ok := productID(r)
	if !ok {
		WriteMessage(w, r, s.logger, http.StatusBadRequest, "invalid product id")
		return
	}

	var req imageConfirmRequest
	if err := DecodeJSONBody(w, r, &req); err != nil {
		WriteMessage(w, r, s.logger, http.StatusBadRequest, err.Error())
		return
	}

	p, err := s.images.ConfirmUpload(r.Context(), id, req.Key)
	if err != nil {
		if !errors.Is(err, common.ErrorNotFound) && !errors.Is(err, common.ErrorValidation) &&
			!errors.Is(err, services.ErrStorageDisabled) {
			s.logger.Error(r.Context(), "image confirm failed", "id", id, "error", err)
		}
		s.writeProductError(w, r, err)
		return
	}
	WriteJSONResponse(w, r, s.logger, http.StatusOK, p)
}

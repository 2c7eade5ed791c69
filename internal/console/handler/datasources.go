package handler

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/xela07ax/statindicator/internal/domain"
)

type ChangePublisher interface {
	PublishChange(ctx context.Context, ev domain.ChangeEvent) error
}

type DataSourceHandler struct {
	publisher ChangePublisher
	ids       func() []string
}

func NewDataSourceHandler(p ChangePublisher, ids func() []string) *DataSourceHandler {
	return &DataSourceHandler{publisher: p, ids: ids}
}

// List — GET /v1/datasources
func (h *DataSourceHandler) List(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.ids())
}

type changeRequest struct {
	Kind   domain.ChangeKind `json:"kind"`
	Filter map[string]any    `json:"filter"`
}

// Changes — POST /v1/datasources/{id}/changes
// Пустое тело означает изменение записей.
func (h *DataSourceHandler) Changes(w http.ResponseWriter, r *http.Request) {
	var req changeRequest
	// Пустое тело (в т.ч. chunked без данных) дает io.EOF: это изменение записей
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	ev := domain.ChangeEvent{DataSourceID: chi.URLParam(r, "id"), Kind: req.Kind, Filter: req.Filter}
	if err := h.publisher.PublishChange(r.Context(), ev); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusAccepted)
}

package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/xela07ax/statindicator/internal/domain"
	"go.uber.org/zap"
)

// WidgetRuntime — что хендлеру нужно от рантайма виджетов
type WidgetRuntime interface {
	List() []domain.WidgetView
	View(id string) (domain.WidgetView, error)
	Refresh(id string) error
}

// SettingsEditor — сторона панели настроек
type SettingsEditor interface {
	Get(ctx context.Context, id string) (domain.WidgetSettings, error)
	Save(ctx context.Context, settings domain.WidgetSettings) (domain.WidgetSettings, error)
	Delete(ctx context.Context, id string) error
}

type WidgetHandler struct {
	runtime  WidgetRuntime
	settings SettingsEditor
	logger   *zap.Logger
}

func NewWidgetHandler(runtime WidgetRuntime, settings SettingsEditor, logger *zap.Logger) *WidgetHandler {
	return &WidgetHandler{runtime: runtime, settings: settings, logger: logger.Named("widget-handler")}
}

// List — GET /v1/widgets
func (h *WidgetHandler) List(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.runtime.List())
}

// Get — GET /v1/widgets/{id}
func (h *WidgetHandler) Get(w http.ResponseWriter, r *http.Request) {
	view, err := h.runtime.View(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

// Refresh — POST /v1/widgets/{id}/refresh. Результат приходит асинхронно.
func (h *WidgetHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	if err := h.runtime.Refresh(chi.URLParam(r, "id")); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusAccepted)
}

// GetSettings — GET /v1/widgets/{id}/settings
func (h *WidgetHandler) GetSettings(w http.ResponseWriter, r *http.Request) {
	s, err := h.settings.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, s)
}

type settingsRequest struct {
	UseDataSources []domain.DataSourceRef `json:"useDataSources"`
	Config         domain.RawConfig       `json:"config"`
}

// PutSettings — PUT /v1/widgets/{id}/settings
func (h *WidgetHandler) PutSettings(w http.ResponseWriter, r *http.Request) {
	var req settingsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	saved, err := h.settings.Save(r.Context(), domain.WidgetSettings{
		ID:             chi.URLParam(r, "id"),
		UseDataSources: req.UseDataSources,
		Config:         req.Config,
	})
	if err != nil {
		h.logger.Warn("settings rejected", zap.String("widget", chi.URLParam(r, "id")), zap.Error(err))
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, saved)
}

// Delete — DELETE /v1/widgets/{id}
func (h *WidgetHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.settings.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

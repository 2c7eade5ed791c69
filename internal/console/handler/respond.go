package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/xela07ax/statindicator/internal/domain"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError разделяет типы ошибок: 404, 400, 500
func writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrWidgetNotFound), errors.Is(err, domain.ErrDataSourceNotFound):
		http.Error(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, domain.ErrInvalidSettings):
		http.Error(w, err.Error(), http.StatusBadRequest)
	default:
		http.Error(w, "internal error", http.StatusInternalServerError)
	}
}

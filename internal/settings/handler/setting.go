package handler

import (
	"encoding/json"
	"net/http"

	"github.com/julienschmidt/httprouter"

	"github.com/nonsir1/Roomly/internal/settings/service"
	httputil "github.com/nonsir1/Roomly/pkg/http"
	"github.com/nonsir1/Roomly/pkg/logger"
)

type SettingHandler struct {
	service service.SettingService
	log     *logger.Logger
}

func NewSettingHandler(service service.SettingService, log *logger.Logger) *SettingHandler {
	return &SettingHandler{
		service: service,
		log:     log,
	}
}

// GetAll returns the full settings map, defaults included, so clients never
// need to know which keys exist.
func (h *SettingHandler) GetAll(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	values, err := h.service.GetAll(r.Context())
	if err != nil {
		if writeErr := httputil.WriteError(w, err); writeErr != nil {
			h.log.Error("failed to write error response", "handler", "GetAll", "operation", "WriteError", "error", writeErr)
		}
		return
	}

	if err := httputil.WriteSuccess(w, values); err != nil {
		h.log.Error("failed to write success response", "handler", "GetAll", "operation", "WriteSuccess", "error", err)
	}
}

func (h *SettingHandler) GetByKey(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	setting, err := h.service.GetByKey(r.Context(), ps.ByName("key"))
	if err != nil {
		if writeErr := httputil.WriteError(w, err); writeErr != nil {
			h.log.Error("failed to write error response", "handler", "GetByKey", "operation", "WriteError", "error", writeErr)
		}
		return
	}

	if err := httputil.WriteSuccess(w, setting); err != nil {
		h.log.Error("failed to write success response", "handler", "GetByKey", "operation", "WriteSuccess", "error", err)
	}
}

func (h *SettingHandler) UpdateAll(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var values map[string]string
	if err := json.NewDecoder(r.Body).Decode(&values); err != nil {
		if writeErr := httputil.WriteJSON(w, http.StatusBadRequest, httputil.ErrorResponse{
			Error: "Invalid request body",
		}); writeErr != nil {
			h.log.Error("failed to write JSON response", "handler", "UpdateAll", "operation", "WriteJSON", "error", writeErr)
		}
		return
	}

	if err := h.service.UpdateAll(r.Context(), httputil.ExtractViewer(r), values); err != nil {
		if writeErr := httputil.WriteError(w, err); writeErr != nil {
			h.log.Error("failed to write error response", "handler", "UpdateAll", "operation", "WriteError", "error", writeErr)
		}
		return
	}

	h.writeCurrent(w, r)
}

func (h *SettingHandler) UpdateKey(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	key := ps.ByName("key")

	var body struct {
		Value string `json:"value"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		if writeErr := httputil.WriteJSON(w, http.StatusBadRequest, httputil.ErrorResponse{
			Error: "Invalid request body",
		}); writeErr != nil {
			h.log.Error("failed to write JSON response", "handler", "UpdateKey", "operation", "WriteJSON", "error", writeErr)
		}
		return
	}

	if err := h.service.UpdateKey(r.Context(), httputil.ExtractViewer(r), key, body.Value); err != nil {
		if writeErr := httputil.WriteError(w, err); writeErr != nil {
			h.log.Error("failed to write error response", "handler", "UpdateKey", "operation", "WriteError", "error", writeErr)
		}
		return
	}

	h.writeCurrent(w, r)
}

// writeCurrent echoes the post-update settings map back to the caller.
func (h *SettingHandler) writeCurrent(w http.ResponseWriter, r *http.Request) {
	values, err := h.service.GetAll(r.Context())
	if err != nil {
		if writeErr := httputil.WriteError(w, err); writeErr != nil {
			h.log.Error("failed to write error response", "handler", "writeCurrent", "operation", "WriteError", "error", writeErr)
		}
		return
	}

	if err := httputil.WriteSuccess(w, values); err != nil {
		h.log.Error("failed to write success response", "handler", "writeCurrent", "operation", "WriteSuccess", "error", err)
	}
}

func (h *SettingHandler) RegisterRoutes(router *httprouter.Router) {
	router.GET("/api/v1/settings", h.GetAll)
	router.GET("/api/v1/settings/:key", h.GetByKey)
	router.PUT("/api/v1/settings", h.UpdateAll)
	router.PUT("/api/v1/settings/:key", h.UpdateKey)
}

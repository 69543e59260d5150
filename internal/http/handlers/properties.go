package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/rentalhub/rentalhub-be/internal/http/respond"
	"github.com/rentalhub/rentalhub-be/internal/middleware"
	"github.com/rentalhub/rentalhub-be/internal/models"
	"github.com/rentalhub/rentalhub-be/internal/models/dto"
	"github.com/rentalhub/rentalhub-be/internal/storage"
)

// PropertyHandler is the thin listing surface the booking core references:
// create and fetch only, no search or media.
type PropertyHandler struct {
	properties storage.PropertyStore
}

// NewPropertyHandler constructs the handler.
func NewPropertyHandler(properties storage.PropertyStore) *PropertyHandler {
	return &PropertyHandler{properties: properties}
}

// Register attaches property routes to the mux.
func (h *PropertyHandler) Register(mux *http.ServeMux, protect middleware.Protector) {
	mux.HandleFunc("POST /api/properties", protect(h.handleCreate))
	mux.HandleFunc("GET /api/properties/{id}", protect(h.handleGet))
}

func (h *PropertyHandler) handleCreate(w http.ResponseWriter, r *http.Request) {
	actor, _ := middleware.ActorFrom(r.Context())
	if !actor.Role.Lister() {
		respond.Error(w, http.StatusForbidden, "only listers can post properties")
		return
	}
	var req dto.CreatePropertyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond.Error(w, http.StatusBadRequest, "invalid JSON payload")
		return
	}
	if strings.TrimSpace(req.Title) == "" {
		respond.Error(w, http.StatusBadRequest, "title is required")
		return
	}
	if req.Deposit < 0 {
		respond.Error(w, http.StatusBadRequest, "deposit must not be negative")
		return
	}

	created, err := h.properties.CreateProperty(r.Context(), models.Property{
		Title:      strings.TrimSpace(req.Title),
		Location:   strings.TrimSpace(req.Location),
		ListerID:   actor.ID,
		ListerKind: actor.Role,
		Deposit:    req.Deposit,
	})
	if err != nil {
		writeDomainError(w, "create property", err)
		return
	}
	respond.JSON(w, http.StatusCreated, "property created", created)
}

func (h *PropertyHandler) handleGet(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		respond.Error(w, http.StatusBadRequest, "invalid property id")
		return
	}
	property, err := h.properties.GetProperty(r.Context(), id)
	if err != nil {
		writeDomainError(w, "get property", err)
		return
	}
	respond.JSON(w, http.StatusOK, "property", property)
}

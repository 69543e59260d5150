package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/rentalhub/rentalhub-be/internal/http/respond"
	"github.com/rentalhub/rentalhub-be/internal/middleware"
	"github.com/rentalhub/rentalhub-be/internal/models"
	"github.com/rentalhub/rentalhub-be/internal/models/dto"
	"github.com/rentalhub/rentalhub-be/internal/storage"
)

// UserHandler exposes profile, broker directory, and hire-broker endpoints.
type UserHandler struct {
	actors storage.ActorStore
}

// NewUserHandler constructs the handler.
func NewUserHandler(actors storage.ActorStore) *UserHandler {
	return &UserHandler{actors: actors}
}

// Register attaches user routes to the mux behind the auth protector.
func (h *UserHandler) Register(mux *http.ServeMux, protect middleware.Protector) {
	mux.HandleFunc("GET /api/users/me", protect(h.handleMe))
	mux.HandleFunc("GET /api/users/brokers", protect(h.handleListBrokers))
	mux.HandleFunc("PUT /api/users/hire-broker", protect(h.handleHireBroker))
	mux.HandleFunc("GET /api/broker/clients", protect(h.handleBrokerClients))
}

func (h *UserHandler) handleMe(w http.ResponseWriter, r *http.Request) {
	actor, _ := middleware.ActorFrom(r.Context())
	respond.JSON(w, http.StatusOK, "profile", actor)
}

func (h *UserHandler) handleListBrokers(w http.ResponseWriter, r *http.Request) {
	brokers, err := h.actors.ListBrokers(r.Context())
	if err != nil {
		writeDomainError(w, "list brokers", err)
		return
	}
	respond.JSON(w, http.StatusOK, "brokers", brokers)
}

func (h *UserHandler) handleHireBroker(w http.ResponseWriter, r *http.Request) {
	actor, _ := middleware.ActorFrom(r.Context())
	if actor.Role != models.RoleTenant {
		respond.Error(w, http.StatusForbidden, "only tenants can hire a broker")
		return
	}
	var req dto.HireBrokerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.BrokerID == 0 {
		respond.Error(w, http.StatusBadRequest, "brokerId is required")
		return
	}

	if _, err := h.actors.GetActor(r.Context(), models.RoleBroker, req.BrokerID); err != nil {
		writeDomainError(w, "hire broker: lookup", err)
		return
	}
	if err := h.actors.HireBroker(r.Context(), actor.ID, req.BrokerID); err != nil {
		writeDomainError(w, "hire broker", err)
		return
	}
	respond.JSON(w, http.StatusOK, "broker hired successfully", nil)
}

func (h *UserHandler) handleBrokerClients(w http.ResponseWriter, r *http.Request) {
	actor, _ := middleware.ActorFrom(r.Context())
	if actor.Role != models.RoleBroker {
		respond.Error(w, http.StatusForbidden, "only brokers can list clients")
		return
	}
	clients, err := h.actors.ListBrokerClients(r.Context(), actor.ID)
	if err != nil {
		writeDomainError(w, "list broker clients", err)
		return
	}
	respond.JSON(w, http.StatusOK, "clients", clients)
}

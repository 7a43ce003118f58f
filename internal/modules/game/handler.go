package game

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/questdeck/questdeck/internal/domain"
	"github.com/questdeck/questdeck/internal/encounter"
	"github.com/questdeck/questdeck/internal/gamesystem"
	"github.com/questdeck/questdeck/internal/middleware"
	"github.com/questdeck/questdeck/internal/pubsub"
	"github.com/questdeck/questdeck/internal/session"
	"github.com/questdeck/questdeck/internal/websocket"
)

// Handler exposes the game module's HTTP surface: encounter CRUD, session
// lifecycle and the per-session websocket endpoint.
type Handler struct {
	store     encounter.Store
	sessions  *session.Manager
	systems   *gamesystem.Registry
	bridge    *websocket.Bridge
	publisher pubsub.Publisher
	validate  *validator.Validate
}

// NewHandler wires the handler's collaborators.
func NewHandler(store encounter.Store, sessions *session.Manager, systems *gamesystem.Registry, bridge *websocket.Bridge, pub pubsub.Publisher) *Handler {
	return &Handler{
		store:     store,
		sessions:  sessions,
		systems:   systems,
		bridge:    bridge,
		publisher: pub,
		validate:  validator.New(),
	}
}

// defaultSystem is used when a session request does not name one.
const defaultSystem = "srd5"

type createEncounterRequest struct {
	CampaignID   string                   `json:"campaignId"`
	MapID        string                   `json:"mapId"`
	Tokens       []domain.Token           `json:"tokens"`
	Participants []domain.Participant     `json:"participants" validate:"required,min=1,dive"`
	Settings     domain.EncounterSettings `json:"settings"`
}

// CreateEncounter persists a new encounter in the ready state.
func (h *Handler) CreateEncounter(c echo.Context) error {
	var req createEncounterRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "malformed encounter body")
	}
	if err := h.validate.Struct(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	state, err := h.store.Create(c.Request().Context(), &domain.EncounterState{
		CampaignID:   req.CampaignID,
		MapID:        req.MapID,
		Status:       domain.StatusReady,
		Tokens:       req.Tokens,
		Participants: req.Participants,
		Settings:     req.Settings,
	})
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "could not create encounter")
	}
	return c.JSON(http.StatusCreated, state)
}

// GetEncounter returns the current versioned snapshot.
func (h *Handler) GetEncounter(c echo.Context) error {
	state, _, err := h.store.Read(c.Request().Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, encounter.ErrNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "encounter not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, "could not read encounter")
	}
	return c.JSON(http.StatusOK, state)
}

type createSessionRequest struct {
	EncounterID string `json:"encounterId" validate:"required"`
	System      string `json:"system"`
}

type sessionResponse struct {
	SessionID   string `json:"sessionId"`
	EncounterID string `json:"encounterId"`
	GMUserID    string `json:"gmUserId"`
	System      string `json:"system"`
}

// CreateSession starts a session actor for an encounter. The caller
// becomes the session's GM.
func (h *Handler) CreateSession(c echo.Context) error {
	var req createSessionRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "malformed session body")
	}
	if err := h.validate.Struct(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if req.System == "" {
		req.System = defaultSystem
	}

	gmUserID := middleware.GetUserID(c)
	if gmUserID == "" {
		return echo.NewHTTPError(http.StatusUnauthorized, "identity required")
	}

	sess, err := h.sessions.Create(c.Request().Context(), req.EncounterID, gmUserID, req.System)
	if err != nil {
		if errors.Is(err, encounter.ErrNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "encounter not found")
		}
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	announcement := SessionCreatedPayload{
		SessionID:   sess.ID(),
		EncounterID: sess.EncounterID(),
		GMUserID:    sess.GMUserID(),
		System:      req.System,
	}
	if err := pubsub.Publish(c.Request().Context(), h.publisher, SessionCreated, sess.ID(), "", announcement); err != nil {
		slog.Warn("session created announcement failed", "session_id", sess.ID(), "error", err)
	}

	return c.JSON(http.StatusCreated, sessionResponse{
		SessionID:   sess.ID(),
		EncounterID: sess.EncounterID(),
		GMUserID:    sess.GMUserID(),
		System:      req.System,
	})
}

// ListSessions returns the live session ids.
func (h *Handler) ListSessions(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]any{"sessions": h.sessions.List()})
}

// GetSessionStats returns a session's health snapshot.
func (h *Handler) GetSessionStats(c echo.Context) error {
	sess, err := h.sessions.Get(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusNotFound, "session not found")
	}
	stats, err := sess.Stats(c.Request().Context())
	if err != nil {
		return echo.NewHTTPError(http.StatusServiceUnavailable, "session unavailable")
	}
	return c.JSON(http.StatusOK, stats)
}

// CloseSession stops a session actor.
func (h *Handler) CloseSession(c echo.Context) error {
	sessionID := c.Param("id")
	if err := h.sessions.Close(sessionID); err != nil {
		return echo.NewHTTPError(http.StatusNotFound, "session not found")
	}
	if err := pubsub.Publish(c.Request().Context(), h.publisher, SessionClosed, sessionID, "", SessionClosedPayload{SessionID: sessionID}); err != nil {
		slog.Warn("session closed announcement failed", "session_id", sessionID, "error", err)
	}
	return c.NoContent(http.StatusNoContent)
}

// JoinSession upgrades to a websocket scoped to the session. The caller's
// role is resolved server-side: the session's GM user gets the GM
// connection, everyone else joins with their encounter role.
func (h *Handler) JoinSession(c echo.Context) error {
	sess, err := h.sessions.Get(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusNotFound, "session not found")
	}

	userID := middleware.GetUserID(c)
	if userID == "" {
		return echo.NewHTTPError(http.StatusUnauthorized, "identity required")
	}

	role := domain.RolePlayer
	if userID == sess.GMUserID() {
		role = domain.RoleGM
	} else {
		state, _, err := h.store.Read(c.Request().Context(), sess.EncounterID())
		if err == nil {
			role = state.ParticipantRole(userID)
		}
	}

	return h.bridge.Serve(c, sess.ID(), userID, role)
}

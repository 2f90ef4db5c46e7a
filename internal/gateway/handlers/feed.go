package handlers

import (
	"errors"
	"net/http"

	"github.com/go-playground/validator/v10"

	feedctx "ctxfeed/internal/context"
	"ctxfeed/internal/models"
	"ctxfeed/internal/storage"
)

// Feeder assembles a context for one request.
type Feeder interface {
	Feed(req feedctx.Request) (*feedctx.FeedResult, error)
}

// ContextSource loads stored fixtures into an agent context.
type ContextSource interface {
	LoadAgentContext(q storage.ContextQuery) (feedctx.AgentContext, error)
}

// FeedObserver is told about every feed attempt that reached the feeder.
type FeedObserver interface {
	ObserveFeed(model string, res *feedctx.FeedResult, err error)
}

// StoreQuery asks the gateway to fill the agent context from the fixture
// store before feeding. Anything already present in the request wins.
type StoreQuery struct {
	TaskID       string `json:"task_id,omitempty"`
	TicketNumber int    `json:"ticket_number,omitempty" validate:"gte=0"`
	PlanName     string `json:"plan_name,omitempty"`
	SessionID    string `json:"session_id,omitempty"`
	HistoryLimit int    `json:"history_limit,omitempty" validate:"gte=0"`
}

// FeedRequest is the body of POST /api/v1/feed.
type FeedRequest struct {
	feedctx.Request
	Store *StoreQuery `json:"store,omitempty"`
}

// FeedHandler serves POST /api/v1/feed.
type FeedHandler struct {
	Feeder Feeder
	// Store is optional; requests carrying a store query fail without it.
	Store ContextSource
	// Observer is optional.
	Observer FeedObserver
	// DefaultModel is used when the request names none.
	DefaultModel string
	MaxBodyBytes int64

	validate *validator.Validate
}

// NewFeedHandler creates a FeedHandler around feeder.
func NewFeedHandler(feeder Feeder) *FeedHandler {
	return &FeedHandler{Feeder: feeder, validate: validator.New()}
}

func (h *FeedHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var body FeedRequest
	if err := DecodeJSON(w, r, h.MaxBodyBytes, &body); err != nil {
		SendError(w, http.StatusBadRequest, ErrCodeInvalidRequest, err.Error())
		return
	}
	if err := h.validate.Struct(&body); err != nil {
		SendError(w, http.StatusBadRequest, ErrCodeInvalidRequest, err.Error())
		return
	}

	req := body.Request
	if req.Model == "" {
		req.Model = h.DefaultModel
	}

	if body.Store != nil {
		if h.Store == nil {
			SendError(w, http.StatusBadRequest, ErrCodeInvalidRequest, "fixture store is not configured")
			return
		}
		stored, err := h.Store.LoadAgentContext(storage.ContextQuery{
			TaskID:       body.Store.TaskID,
			TicketNumber: body.Store.TicketNumber,
			PlanName:     body.Store.PlanName,
			SessionID:    body.Store.SessionID,
			HistoryLimit: body.Store.HistoryLimit,
		})
		if errors.Is(err, storage.ErrNotFound) {
			SendError(w, http.StatusNotFound, ErrCodeNotFound, err.Error())
			return
		}
		if err != nil {
			SendError(w, http.StatusInternalServerError, ErrCodeInternalError, err.Error())
			return
		}
		req.Context = req.Context.Merge(stored)
	}

	res, err := h.Feeder.Feed(req)
	if h.Observer != nil {
		h.Observer.ObserveFeed(req.Model, res, err)
	}
	switch {
	case err == nil:
		SendJSON(w, http.StatusOK, res)
	case errors.Is(err, feedctx.ErrEmptyModel):
		SendError(w, http.StatusBadRequest, ErrCodeInvalidRequest, err.Error())
	case errors.Is(err, models.ErrConfiguration):
		SendError(w, http.StatusBadRequest, ErrCodeConfiguration, err.Error())
	default:
		SendError(w, http.StatusInternalServerError, ErrCodeInternalError, err.Error())
	}
}

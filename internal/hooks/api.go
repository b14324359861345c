package hooks

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/hfi/remote-media-staging/internal/attachment"
	"github.com/hfi/remote-media-staging/internal/media"
)

// Routes
const (
	AttachmentURLRoute = "/v1/attachment-url"
	SrcsetRoute        = "/v1/srcset"
	AttachmentsRoute   = "/v1/attachments"
)

// maxBodyBytes bounds request bodies
const maxBodyBytes = 1 << 20

// Attachments creates and looks up attachment records
type Attachments interface {
	Create(ctx context.Context, guid string) (int64, error)
	Get(ctx context.Context, id int64) (attachment.Attachment, error)
}

// API serves the hook events over HTTP
type API struct {
	events      *Dispatcher
	attachments Attachments
	logger      zerolog.Logger
}

type urlPayload struct {
	URL string `json:"url"`
}

type srcsetPayload struct {
	Sources []media.Source `json:"sources"`
}

type attachmentRequest struct {
	GUID string `json:"guid"`
}

type attachmentResponse struct {
	ID   int64  `json:"id"`
	GUID string `json:"guid,omitempty"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// NewAPI creates the hook API
func NewAPI(events *Dispatcher, attachments Attachments, logger zerolog.Logger) *API {
	return &API{
		events:      events,
		attachments: attachments,
		logger:      logger.With().Str("component", "hooks-api").Logger(),
	}
}

// Mount registers the routes on r
func (a *API) Mount(r chi.Router) {
	r.Post(AttachmentURLRoute, a.attachmentURL)
	r.Post(SrcsetRoute, a.srcset)
	r.Post(AttachmentsRoute, a.createAttachment)
	r.Get(AttachmentsRoute+"/{id}", a.getAttachment)
}

// Handler returns a router serving the API
func (a *API) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	a.Mount(r)
	return r
}

func (a *API) attachmentURL(w http.ResponseWriter, r *http.Request) {
	var req urlPayload
	if !a.decode(w, r, &req) {
		return
	}
	writeJSON(w, http.StatusOK, urlPayload{URL: a.events.ApplyAttachmentURL(r.Context(), req.URL)})
}

func (a *API) srcset(w http.ResponseWriter, r *http.Request) {
	var req srcsetPayload
	if !a.decode(w, r, &req) {
		return
	}
	sources := a.events.ApplySrcset(r.Context(), req.Sources)
	if sources == nil {
		sources = []media.Source{}
	}
	writeJSON(w, http.StatusOK, srcsetPayload{Sources: sources})
}

func (a *API) createAttachment(w http.ResponseWriter, r *http.Request) {
	var req attachmentRequest
	if !a.decode(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.GUID) == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "guid is required"})
		return
	}

	id, err := a.attachments.Create(r.Context(), req.GUID)
	if err != nil {
		a.logger.Error().Err(err).Str("guid", req.GUID).Msg("failed to create attachment")
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "failed to create attachment"})
		return
	}

	a.events.FireAttachmentCreated(r.Context(), id)
	writeJSON(w, http.StatusCreated, attachmentResponse{ID: id})
}

func (a *API) getAttachment(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid attachment id"})
		return
	}

	att, err := a.attachments.Get(r.Context(), id)
	if errors.Is(err, attachment.ErrNotFound) {
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "attachment not found"})
		return
	}
	if err != nil {
		a.logger.Error().Err(err).Int64("attachment_id", id).Msg("failed to load attachment")
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "failed to load attachment"})
		return
	}

	writeJSON(w, http.StatusOK, attachmentResponse{ID: att.ID, GUID: att.GUID})
}

func (a *API) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		a.logger.Debug().Err(err).Str("path", r.URL.Path).Msg("invalid request body")
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid JSON body"})
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		// Connection closed, nothing we can do
		return
	}
}

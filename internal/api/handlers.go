package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/nasa/harmony-swath-projector/internal/config"
	"github.com/nasa/harmony-swath-projector/internal/message"
	"github.com/nasa/harmony-swath-projector/internal/rules"
)

// ShortNameResolver recovers a collection short name from a concept ID.
// The CMR client satisfies this; tests substitute a fake.
type ShortNameResolver interface {
	CollectionShortName(ctx context.Context, conceptID string) (string, error)
}

// Handlers bundles the HTTP handlers and their dependencies.
type Handlers struct {
	cfg      *config.Config
	doc      *rules.Document
	resolver ShortNameResolver
	logger   *slog.Logger
}

// NewHandlers creates the handler set for the service.
func NewHandlers(cfg *config.Config, doc *rules.Document, logger *slog.Logger) *Handlers {
	return &Handlers{
		cfg:    cfg,
		doc:    doc,
		logger: logger,
	}
}

// WithShortNameResolver attaches a CMR-backed short name resolver used when
// granule metadata does not carry a short name.
func (h *Handlers) WithShortNameResolver(resolver ShortNameResolver) *Handlers {
	h.resolver = resolver
	return h
}

// Health responds to health checks.
// GET /health
func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, http.StatusOK, map[string]any{
		"status": "ok",
		"rules": map[string]any{
			"identification": h.doc.Identification,
			"version":        h.doc.Version,
		},
	})
}

// ServiceDescription describes the service and its endpoints.
// GET /
func (h *Handlers) ServiceDescription(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, http.StatusOK, map[string]any{
		"title":       "Harmony Swath Projector metadata service",
		"description": "Resolves variable exclusion and metadata override rules for swath reprojection requests.",
		"endpoints": []string{
			"GET /health",
			"POST /resolve",
			"POST /parameters",
		},
	})
}

// ResolveRequest asks for rule decisions for a set of variable paths. The
// collection is identified by an explicit short name, by granule metadata
// attributes, or by a collection concept ID (resolved through CMR), tried in
// that order.
type ResolveRequest struct {
	ShortName            string            `json:"shortName,omitempty"`
	CollectionConceptID  string            `json:"collectionConceptId,omitempty"`
	CollectionAttributes map[string]string `json:"collectionAttributes,omitempty"`
	Variables            []string          `json:"variables"`
}

// VariableDecision is the rule outcome for one variable path.
type VariableDecision struct {
	Path      string            `json:"path"`
	Excluded  bool              `json:"excluded"`
	Overrides map[string]string `json:"overrides"`
}

// ResolveResponse carries the resolved collection identity and per-variable
// decisions.
type ResolveResponse struct {
	ShortName string             `json:"shortName"`
	Mission   string             `json:"mission,omitempty"`
	Variables []VariableDecision `json:"variables"`
}

// Resolve evaluates the rule document for each requested variable.
// POST /resolve
func (h *Handlers) Resolve(w http.ResponseWriter, r *http.Request) {
	var req ResolveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteBadRequest(w, "invalid JSON body: "+err.Error())
		return
	}

	if len(req.Variables) == 0 {
		WriteBadRequest(w, "at least one variable path is required")
		return
	}

	shortName := req.ShortName
	if shortName == "" {
		resolved, err := h.doc.ResolveShortName(req.CollectionAttributes)
		switch {
		case err == nil:
			shortName = resolved
		case errors.Is(err, rules.ErrMissingShortName):
			shortName = h.shortNameFromCMR(r.Context(), req.CollectionConceptID)
		}
	}

	if shortName == "" {
		// Not fatal: rules requiring a short name simply never match.
		h.logger.Warn("collection short name could not be resolved",
			slog.String("concept_id", req.CollectionConceptID),
		)
	}

	mission := h.doc.ResolveMission(shortName)

	decisions := make([]VariableDecision, 0, len(req.Variables))
	for _, path := range req.Variables {
		decision := h.doc.Evaluate(mission, shortName, path)
		decisions = append(decisions, VariableDecision{
			Path:      path,
			Excluded:  decision.Excluded,
			Overrides: decision.Overrides,
		})
	}

	WriteJSON(w, http.StatusOK, ResolveResponse{
		ShortName: shortName,
		Mission:   mission,
		Variables: decisions,
	})
}

func (h *Handlers) shortNameFromCMR(ctx context.Context, conceptID string) string {
	if h.resolver == nil || conceptID == "" {
		return ""
	}

	shortName, err := h.resolver.CollectionShortName(ctx, conceptID)
	if err != nil {
		h.logger.Warn("CMR short name lookup failed",
			slog.String("concept_id", conceptID),
			slog.String("error", err.Error()),
		)
		return ""
	}

	return shortName
}

// Parameters validates a Harmony message and returns the derived
// reprojection parameters.
// POST /parameters
func (h *Handlers) Parameters(w http.ResponseWriter, r *http.Request) {
	var msg message.Message
	if err := json.NewDecoder(r.Body).Decode(&msg); err != nil {
		WriteBadRequest(w, "invalid JSON body: "+err.Error())
		return
	}

	// Operator-configured defaults take precedence over the package ones.
	if msg.Format.CRS == "" {
		msg.Format.CRS = h.cfg.Reprojection.CRS
	}
	if msg.Format.Interpolation == "" {
		msg.Format.Interpolation = h.cfg.Reprojection.Interpolation
	}

	params, err := message.DeriveParameters(&msg, "", "")
	if err != nil {
		if errors.Is(err, message.ErrInvalidTargetGrid) ||
			errors.Is(err, message.ErrUnsupportedInterpolation) {
			WriteBadRequest(w, err.Error())
			return
		}
		WriteError(w, http.StatusInternalServerError, ErrCodeServerError, err.Error())
		return
	}

	WriteJSON(w, http.StatusOK, params)
}

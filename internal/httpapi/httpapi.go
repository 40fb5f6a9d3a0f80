// Package httpapi implements the HTTP control surface: create/play/pause/
// filter-update/delete on players, plus a one-shot resolve endpoint.
// Routing follows go-chi's path-param style, used here for {id} segments
// the standard library's ServeMux handles only clumsily.
package httpapi

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/resonix-dev/resonix-node/internal/auth"
	"github.com/resonix-dev/resonix-node/internal/dsp"
	"github.com/resonix-dev/resonix-node/internal/registry"
	"github.com/resonix-dev/resonix-node/internal/resonixerr"
)

// Resolver is the standalone GET /resolve collaborator: it turns a raw
// source URI into the decoder-facing path/URL the caller can inspect.
type Resolver interface {
	Resolve(ctx context.Context, uri string) (path string, err error)
}

// API wires the registry into an http.Handler implementing the full HTTP
// control surface.
type API struct {
	reg      *registry.Registry
	resolver Resolver
	auth     *auth.Checker
	log      *slog.Logger
}

// New constructs the router. checker may be nil to disable authentication;
// resolver may be nil to disable GET /resolve (it always returns 400).
func New(reg *registry.Registry, resolver Resolver, checker *auth.Checker, log *slog.Logger) http.Handler {
	if log == nil {
		log = slog.Default()
	}
	a := &API{reg: reg, resolver: resolver, auth: checker, log: log}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	if checker != nil {
		r.Use(checker.Middleware)
	}
	r.Post("/players", a.createPlayer)
	r.Post("/players/{id}/play", a.playPlayer)
	r.Post("/players/{id}/pause", a.pausePlayer)
	r.Patch("/players/{id}/filters", a.patchFilters)
	r.Delete("/players/{id}", a.deletePlayer)
	r.Get("/resolve", a.resolveURL)
	return r
}

func (a *API) resolveURL(w http.ResponseWriter, r *http.Request) {
	uri := r.URL.Query().Get("url")
	if uri == "" || a.resolver == nil {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}
	path, err := a.resolver.Resolve(r.Context(), uri)
	if err != nil {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}
	w.Write([]byte(path))
}

type createBody struct {
	ID   string `json:"id"`
	URI  string `json:"uri"`
	Loop bool   `json:"loop"`
}

func (a *API) createPlayer(w http.ResponseWriter, r *http.Request) {
	var body createBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "bad request body", http.StatusBadRequest)
		return
	}
	switch a.reg.Create(body.ID, body.URI, nil, body.Loop) {
	case registry.Created:
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(map[string]string{"id": body.ID})
	case registry.ResultBadInput:
		http.Error(w, "bad input", http.StatusBadRequest)
	case registry.ResultBlocked:
		http.Error(w, "blocked by url policy", http.StatusForbidden)
	case registry.ResultExists:
		http.Error(w, "player already exists", http.StatusConflict)
	}
}

func (a *API) playPlayer(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := a.reg.Control(id, registry.OpPlay); err != nil {
		a.writeControlError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (a *API) pausePlayer(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := a.reg.Control(id, registry.OpPause); err != nil {
		a.writeControlError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type filterBand struct {
	Band   int     `json:"band"`
	GainDB float64 `json:"gain_db"`
}

type filterBody struct {
	Volume *float64     `json:"volume"`
	EQ     []filterBand `json:"eq"`
}

func (a *API) patchFilters(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	p, ok := a.reg.Lookup(id)
	if !ok {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}
	var body filterBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "bad request body", http.StatusBadRequest)
		return
	}

	bands, volume := p.FilterSnapshot()
	if body.Volume != nil {
		volume = *body.Volume
	}
	for _, b := range body.EQ {
		if b.Band < 0 || b.Band >= dsp.NumBands {
			continue
		}
		bands[b.Band].GainDB = b.GainDB
	}

	if err := a.reg.UpdateFilters(id, bands, volume); err != nil {
		a.writeControlError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (a *API) deletePlayer(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if !a.reg.Delete(id) {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (a *API) writeControlError(w http.ResponseWriter, err error) {
	if resonixerr.Is(err, resonixerr.KindNotFound) {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}
	a.log.Error("control operation failed", "err", err)
	http.Error(w, "internal error", http.StatusInternalServerError)
}

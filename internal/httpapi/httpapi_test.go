package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/resonix-dev/resonix-node/internal/player"
	"github.com/resonix-dev/resonix-node/internal/registry"
)

type allowAll struct{}

func (allowAll) Allowed(string) bool { return true }

func blockingResolve(ctx context.Context, uri string) (player.Resolved, error) {
	<-ctx.Done()
	return player.Resolved{}, ctx.Err()
}

func newTestAPI() http.Handler {
	ctx := context.Background()
	reg := registry.New(ctx, allowAll{}, blockingResolve, nil)
	return New(reg, nil, nil, nil)
}

func TestCreatePlayerReturns201(t *testing.T) {
	h := newTestAPI()
	body, _ := json.Marshal(createBody{ID: "g1", URI: "file:///tmp/a.wav"})
	req := httptest.NewRequest(http.MethodPost, "/players", bytes.NewReader(body))
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	if w.Code != http.StatusCreated {
		t.Fatalf("status = %d, want %d, body=%s", w.Code, http.StatusCreated, w.Body.String())
	}
}

func TestCreateDuplicateReturns409(t *testing.T) {
	h := newTestAPI()
	body, _ := json.Marshal(createBody{ID: "g1", URI: "file:///tmp/a.wav"})

	for i, want := range []int{http.StatusCreated, http.StatusConflict} {
		req := httptest.NewRequest(http.MethodPost, "/players", bytes.NewReader(body))
		w := httptest.NewRecorder()
		h.ServeHTTP(w, req)
		if w.Code != want {
			t.Fatalf("call %d: status = %d, want %d", i, w.Code, want)
		}
	}
}

func TestControlOpsOnMissingPlayerReturn404(t *testing.T) {
	h := newTestAPI()
	for _, path := range []string{"/players/missing/play", "/players/missing/pause"} {
		req := httptest.NewRequest(http.MethodPost, path, nil)
		w := httptest.NewRecorder()
		h.ServeHTTP(w, req)
		if w.Code != http.StatusNotFound {
			t.Fatalf("%s: status = %d, want 404", path, w.Code)
		}
	}
}

func TestDeleteMissingPlayerReturns404(t *testing.T) {
	h := newTestAPI()
	req := httptest.NewRequest(http.MethodDelete, "/players/missing", nil)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	if w.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", w.Code)
	}
}

func TestDeleteExistingPlayerReturns204(t *testing.T) {
	h := newTestAPI()
	body, _ := json.Marshal(createBody{ID: "g1", URI: "file:///tmp/a.wav"})
	req := httptest.NewRequest(http.MethodPost, "/players", bytes.NewReader(body))
	h.ServeHTTP(httptest.NewRecorder(), req)

	del := httptest.NewRequest(http.MethodDelete, "/players/g1", nil)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, del)
	if w.Code != http.StatusNoContent {
		t.Fatalf("status = %d, want 204", w.Code)
	}
}

func TestResolveWithoutResolverReturns400(t *testing.T) {
	h := newTestAPI()
	req := httptest.NewRequest(http.MethodGet, "/resolve?url=https://example.com", nil)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}
}

package wsrelay

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"github.com/resonix-dev/resonix-node/internal/player"
	"github.com/resonix-dev/resonix-node/internal/registry"
)

type allowAll struct{}

func (allowAll) Allowed(string) bool { return true }

func blockingResolve(ctx context.Context, uri string) (player.Resolved, error) {
	<-ctx.Done()
	return player.Resolved{}, ctx.Err()
}

func newTestServer(t *testing.T) (*httptest.Server, *registry.Registry) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	reg := registry.New(ctx, allowAll{}, blockingResolve, nil)
	reg.Create("g1", "file:///tmp/a.wav", nil, false)

	relay := New(reg, nil)
	r := chi.NewRouter()
	r.Get("/players/{id}/ws", relay.Handler())
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv, reg
}

func TestWSFirstMessageIsPrimingFrame(t *testing.T) {
	srv, _ := newTestServer(t)
	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/players/g1/ws"

	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	defer conn.Close()

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	msgType, data, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("ReadMessage: %v", err)
	}
	if msgType != websocket.BinaryMessage {
		t.Fatalf("message type = %d, want BinaryMessage", msgType)
	}
	if len(data) != 3840 {
		t.Fatalf("len(data) = %d, want 3840", len(data))
	}
	for _, b := range data {
		if b != 0 {
			t.Fatal("priming frame is not all-zero")
		}
	}
}

func TestWSUnknownPlayerReturns404(t *testing.T) {
	srv, _ := newTestServer(t)
	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/players/missing/ws"

	_, resp, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err == nil {
		t.Fatal("expected dial to fail for unknown player")
	}
	if resp == nil || resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404 response, got %v", resp)
	}
}

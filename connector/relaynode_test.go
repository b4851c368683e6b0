package connector

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
)

// newFakeNodeServer serves just enough JSON-RPC for the provider to pair.
func newFakeNodeServer(t *testing.T, accounts []string, chainID string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(r.Body)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		var req struct {
			ID     json.RawMessage `json:"id"`
			Method string          `json:"method"`
		}
		if err := json.Unmarshal(body, &req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		var result any
		switch req.Method {
		case "eth_accounts":
			result = accounts
		case "eth_chainId":
			result = chainID
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"jsonrpc": "2.0", "id": req.ID, "result": result,
		})
	}))
}

func TestRelayNodeProviderSession(t *testing.T) {
	srv := newFakeNodeServer(t, []string{testAccount.Hex()}, "0x89")
	defer srv.Close()

	p := NewRelayNodeProvider(srv.URL, nil)
	if err := p.Init("test-project"); err != nil {
		t.Fatalf("Init failed: %v", err)
	}

	var uri string
	p.PairingURI(func(u string) { uri = u })

	accounts, err := p.Enable(context.Background())
	if err != nil {
		t.Fatalf("Enable failed: %v", err)
	}
	if len(accounts) != 1 || accounts[0] != testAccount {
		t.Errorf("unexpected accounts: %v", accounts)
	}
	if uri != srv.URL {
		t.Errorf("pairing uri should surface the endpoint, got %q", uri)
	}
	if !p.HasSession() {
		t.Error("session must be standing after enable")
	}

	if err := p.Disconnect(); err != nil {
		t.Fatalf("Disconnect failed: %v", err)
	}
	// teardown must leave the core rebuildable without a process restart
	if err := p.Init("test-project"); err != nil {
		t.Fatalf("re-Init after Disconnect failed: %v", err)
	}
}

func TestRelayNodeProviderRequiresEndpoint(t *testing.T) {
	p := NewRelayNodeProvider("", nil)
	if err := p.Init("test-project"); err == nil {
		t.Fatal("expected error for a missing relay endpoint")
	}
}

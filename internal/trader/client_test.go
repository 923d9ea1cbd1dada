// internal/trader/client_test.go
package trader

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
)

func TestClientSendsBasicAuth(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, pass, ok := r.BasicAuth()
		if !ok || user != "bot" || pass != "secret" {
			t.Errorf("bad auth: %q/%q ok=%v", user, pass, ok)
		}
		if r.URL.Path != "/api/v1/status" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		w.Write([]byte(`[{"trade_id":1,"pair":"BTC/USDT"}]`))
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "bot", "secret")
	out, err := client.GetStatus(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	trades, ok := out.([]any)
	if !ok || len(trades) != 1 {
		t.Errorf("unexpected decode: %#v", out)
	}
}

func TestClientNonOKStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "bot", "wrong")
	if _, err := client.GetBalance(context.Background()); err == nil {
		t.Fatal("expected an error on 401")
	}
}

func TestLoadAPIAuth(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	config := `{"api_server":{"listen_ip_address":"0.0.0.0","listen_port":9090,"username":"ft","password":"pw"}}`
	if err := os.WriteFile(path, []byte(config), 0o644); err != nil {
		t.Fatal(err)
	}

	auth, err := LoadAPIAuth(path)
	if err != nil {
		t.Fatal(err)
	}
	if auth.BaseURL != "http://0.0.0.0:9090" {
		t.Errorf("BaseURL = %q", auth.BaseURL)
	}
	if auth.Username != "ft" || auth.Password != "pw" {
		t.Errorf("credentials = %q/%q", auth.Username, auth.Password)
	}
}

func TestLoadAPIAuthDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	if err := os.WriteFile(path, []byte(`{}`), 0o644); err != nil {
		t.Fatal(err)
	}

	auth, err := LoadAPIAuth(path)
	if err != nil {
		t.Fatal(err)
	}
	if auth.BaseURL != "http://127.0.0.1:18080" {
		t.Errorf("BaseURL = %q", auth.BaseURL)
	}
	if auth.Username != "admin" || auth.Password != "admin" {
		t.Errorf("credentials = %q/%q", auth.Username, auth.Password)
	}
}

func TestLoadAPIAuthMissingFile(t *testing.T) {
	if _, err := LoadAPIAuth(filepath.Join(t.TempDir(), "nope.json")); err == nil {
		t.Fatal("expected an error for a missing file")
	}
}

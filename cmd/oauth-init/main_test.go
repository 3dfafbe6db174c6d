package main

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"golang.org/x/oauth2"

	"billtracker/internal/config"
)

const clientJSON = `{"installed":{"client_id":"id.apps.googleusercontent.com","client_secret":"secret","auth_uri":"https://accounts.google.com/o/oauth2/auth","token_uri":"https://oauth2.googleapis.com/token","redirect_uris":["http://localhost"]}}`

func TestLoadClientConfig(t *testing.T) {
	dir := t.TempDir()
	clientFile := filepath.Join(dir, "client.json")
	if err := os.WriteFile(clientFile, []byte(clientJSON), 0o600); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name    string
		cfg     config.Config
		wantErr bool
	}{
		{"inline json", config.Config{GoogleOAuthClientJSON: clientJSON}, false},
		{"file", config.Config{GoogleOAuthClientFile: clientFile}, false},
		{"missing", config.Config{}, true},
		{"unreadable file", config.Config{GoogleOAuthClientFile: filepath.Join(dir, "nope.json")}, true},
		{"invalid json", config.Config{GoogleOAuthClientJSON: "{"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := loadClientConfig(&tt.cfg)
			if (err != nil) != tt.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, tt.wantErr)
			}
			if err == nil && got.ClientID != "id.apps.googleusercontent.com" {
				t.Errorf("ClientID = %q", got.ClientID)
			}
		})
	}
}

func TestCallbackHandler(t *testing.T) {
	tests := []struct {
		name     string
		query    string
		wantCode int
		wantSent bool
	}{
		{"success", "?state=s1&code=abc", http.StatusOK, true},
		{"provider error", "?error=access_denied", http.StatusBadRequest, false},
		{"state mismatch", "?state=other&code=abc", http.StatusBadRequest, false},
		{"missing code", "?state=s1", http.StatusBadRequest, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			codeCh := make(chan string, 1)
			rec := httptest.NewRecorder()
			callbackHandler("s1", codeCh).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/callback"+tt.query, nil))

			if rec.Code != tt.wantCode {
				t.Errorf("status = %d, want %d", rec.Code, tt.wantCode)
			}
			select {
			case code := <-codeCh:
				if !tt.wantSent || code != "abc" {
					t.Errorf("unexpected code %q", code)
				}
			default:
				if tt.wantSent {
					t.Error("expected code to be forwarded")
				}
			}
		})
	}
}

func TestSaveToken(t *testing.T) {
	path := filepath.Join(t.TempDir(), "token.json")
	if err := saveToken(path, &oauth2.Token{AccessToken: "a", RefreshToken: "r"}); err != nil {
		t.Fatalf("saveToken: %v", err)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	if perm := info.Mode().Perm(); perm != 0o600 {
		t.Errorf("perm = %o, want 600", perm)
	}
	raw, _ := os.ReadFile(path)
	var tok oauth2.Token
	if err := json.Unmarshal(raw, &tok); err != nil || tok.RefreshToken != "r" {
		t.Errorf("token = %+v (%v)", tok, err)
	}
}

func TestNewState(t *testing.T) {
	a, err := newState()
	if err != nil {
		t.Fatal(err)
	}
	b, _ := newState()
	if len(a) != 32 || a == b {
		t.Errorf("states %q and %q", a, b)
	}
}

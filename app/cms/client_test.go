package cms

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
)

func TestClient_FindBySlug(t *testing.T) {
	var gotWhere, gotDepth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/pages" {
			t.Errorf("Expected path /pages, got %s", r.URL.Path)
		}
		gotWhere = r.URL.Query().Get("where")
		gotDepth = r.URL.Query().Get("depth")
		w.Header().Set("Content-Type", "application/json")
		if gotWhere == `{"slug":{"equals":"about"}}` {
			w.Write([]byte(`{"docs":[{"id":1,"slug":"about"},{"id":2,"slug":"about"}]}`))
			return
		}
		w.Write([]byte(`{"docs":[]}`))
	}))
	defer srv.Close()

	client := NewClient(srv.URL+"/", nil)

	doc, err := client.FindBySlug(context.Background(), "pages", "about", "2")
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if string(doc) != `{"id":1,"slug":"about"}` {
		t.Errorf("Expected first document, got %s", doc)
	}
	if gotDepth != "2" {
		t.Errorf("Expected depth 2, got %q", gotDepth)
	}

	_, err = client.FindBySlug(context.Background(), "pages", "missing", "")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
}

func TestClient_ErrorClassification(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/missing/1":
			w.WriteHeader(http.StatusNotFound)
		case "/private/1":
			w.WriteHeader(http.StatusForbidden)
		case "/broken/1":
			w.WriteHeader(http.StatusBadGateway)
		default:
			w.Write([]byte(`{"id":1}`))
		}
	}))
	defer srv.Close()

	client := NewClient(srv.URL, nil)

	tests := []struct {
		collection string
		want       error
		status     int
	}{
		{"missing", ErrNotFound, http.StatusNotFound},
		{"private", ErrAuth, http.StatusServiceUnavailable},
		{"broken", ErrUpstream, http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.collection, func(t *testing.T) {
			_, err := client.FindByID(context.Background(), tt.collection, "1", "")
			if !errors.Is(err, tt.want) {
				t.Errorf("Expected %v, got %v", tt.want, err)
			}
			status, _ := Status(err)
			if status != tt.status {
				t.Errorf("Expected status %d, got %d", tt.status, status)
			}
		})
	}

	data, err := client.FindByID(context.Background(), "posts", "1", "")
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if string(data) != `{"id":1}` {
		t.Errorf("Expected document body, got %s", data)
	}
}

func TestClient_NotConfigured(t *testing.T) {
	client := NewClient("", nil)

	_, err := client.Find(context.Background(), "posts", url.Values{})
	if !errors.Is(err, ErrNotConfigured) {
		t.Errorf("Expected ErrNotConfigured, got %v", err)
	}

	status, message := Status(err)
	if status != http.StatusInternalServerError || message != "CMS API configuration missing" {
		t.Errorf("Expected 500 configuration missing, got %d %q", status, message)
	}
}

func TestClient_ConnectionFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	baseURL := srv.URL
	srv.Close()

	client := NewClient(baseURL, nil)
	_, err := client.Find(context.Background(), "posts", nil)
	if !errors.Is(err, ErrConnection) {
		t.Errorf("Expected ErrConnection, got %v", err)
	}

	status, message := Status(err)
	if status != http.StatusServiceUnavailable {
		t.Errorf("Expected status 503, got %d", status)
	}
	if message != "CMS API connection failed - check PAYLOAD_API_URL" {
		t.Errorf("Unexpected message %q", message)
	}
}

func TestStatus_Default(t *testing.T) {
	status, message := Status(errors.New("boom"))
	if status != http.StatusInternalServerError || message != "Failed to fetch data from CMS" {
		t.Errorf("Expected default 500, got %d %q", status, message)
	}
}

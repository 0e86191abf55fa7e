package client

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/kjstillabower/panchang-bot/internal/models"
)

func testRequest() models.APIRequest {
	return models.APIRequest{
		Year: 2025, Month: 12, Date: 13, Hours: 21, Minutes: 14, Seconds: 7,
		Latitude: 10.0079, Longitude: 77.4735, Timezone: 5.5,
		Config: models.APIRequestConfig{ObservationPoint: "topocentric", Ayanamsha: "lahiri"},
	}
}

func TestNewAstroClient_Validation(t *testing.T) {
	tests := []struct {
		name    string
		apiKey  string
		apiURL  string
		wantErr error
	}{
		{"empty API key", "", "https://api.test.com", ErrInvalidAPIKey},
		{"blank API key", "   ", "https://api.test.com", ErrInvalidAPIKey},
		{"relative URL", "key", "/complete-panchang", ErrInvalidAPIURL},
		{"garbage URL", "key", "://", ErrInvalidAPIURL},
		{"valid", "key", "https://api.test.com/complete-panchang", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client, err := NewAstroClient(tt.apiKey, tt.apiURL, 10*time.Second)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("NewAstroClient() error = %v, want %v", err, tt.wantErr)
				}
				if client != nil {
					t.Error("NewAstroClient() expected nil client on error")
				}
				return
			}
			if err != nil {
				t.Fatalf("NewAstroClient() unexpected error: %v", err)
			}
		})
	}
}

func TestAstroClient_FetchPanchang_Success(t *testing.T) {
	const body = `{"tithi":{"name":"purnima"},"nakshatra":{},"yoga":{},"karana":{}}`
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("method = %s, want POST", r.Method)
		}
		if got := r.Header.Get("x-api-key"); got != "test-key" {
			t.Errorf("x-api-key = %q, want test-key", got)
		}
		if got := r.Header.Get("Content-Type"); got != "application/json" {
			t.Errorf("Content-Type = %q", got)
		}
		raw, _ := io.ReadAll(r.Body)
		var sent map[string]any
		if err := json.Unmarshal(raw, &sent); err != nil {
			t.Fatalf("request body not JSON: %v", err)
		}
		if sent["date"] != float64(13) || sent["hours"] != float64(21) {
			t.Errorf("unexpected payload: %s", raw)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(body))
	}))
	defer server.Close()

	client, err := NewAstroClient("test-key", server.URL, 2*time.Second)
	if err != nil {
		t.Fatalf("NewAstroClient() error = %v", err)
	}
	got, err := client.FetchPanchang(context.Background(), testRequest())
	if err != nil {
		t.Fatalf("FetchPanchang() error = %v", err)
	}
	if string(got) != body {
		t.Errorf("FetchPanchang() = %s, want %s", got, body)
	}
}

func TestAstroClient_FetchPanchang_ForwardsCorrelationID(t *testing.T) {
	var seen string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = r.Header.Get("X-Correlation-ID")
		_, _ = w.Write([]byte(`{}`))
	}))
	defer server.Close()

	client, _ := NewAstroClient("test-key", server.URL, 2*time.Second)
	ctx := context.WithValue(context.Background(), "correlation_id", "corr-123")
	_, _ = client.FetchPanchang(ctx, testRequest())
	if seen != "corr-123" {
		t.Errorf("X-Correlation-ID = %q, want corr-123", seen)
	}
}

func TestAstroClient_FetchPanchang_Errors(t *testing.T) {
	tests := []struct {
		name        string
		status      int
		body        string
		wantKind    models.ErrorKind
		wantContain string
	}{
		{"403 entitlement", http.StatusForbidden, `{"message":"Forbidden"}`, models.ErrorKindHTTPStatus, "403"},
		{"401 unauthorized", http.StatusUnauthorized, ``, models.ErrorKindHTTPStatus, "401"},
		{"500 server error", http.StatusInternalServerError, `oops`, models.ErrorKindHTTPStatus, "500"},
		{"invalid JSON", http.StatusOK, `<html>not json</html>`, models.ErrorKindDecode, "decode"},
		{"empty body", http.StatusOK, ``, models.ErrorKindDecode, "decode"},
		{"explicit error string", http.StatusOK, `{"error":"Invalid API key"}`, models.ErrorKindUpstreamExplicit, "Invalid API key"},
		{"explicit error object", http.StatusOK, `{"error":{"message":"quota exceeded"}}`, models.ErrorKindUpstreamExplicit, "quota exceeded"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer server.Close()

			client, _ := NewAstroClient("test-key", server.URL, 2*time.Second)
			_, err := client.FetchPanchang(context.Background(), testRequest())
			if err == nil {
				t.Fatal("FetchPanchang() expected error, got nil")
			}
			var pe *models.PipelineError
			if !errors.As(err, &pe) {
				t.Fatalf("error %T is not *models.PipelineError", err)
			}
			if pe.Kind != tt.wantKind {
				t.Errorf("Kind = %q, want %q", pe.Kind, tt.wantKind)
			}
			if !strings.Contains(strings.ToLower(pe.Message), strings.ToLower(tt.wantContain)) {
				t.Errorf("Message = %q, want it to contain %q", pe.Message, tt.wantContain)
			}
		})
	}
}

func TestAstroClient_FetchPanchang_SingleAttempt(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	client, _ := NewAstroClient("test-key", server.URL, 2*time.Second)
	_, _ = client.FetchPanchang(context.Background(), testRequest())
	if n := calls.Load(); n != 1 {
		t.Errorf("upstream called %d times, want 1", n)
	}
}

func TestAstroClient_FetchPanchang_Timeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer server.Close()

	client, _ := NewAstroClient("test-key", server.URL, 50*time.Millisecond)
	_, err := client.FetchPanchang(context.Background(), testRequest())
	if got := models.AsPipelineError(err).Kind; got != models.ErrorKindTransport {
		t.Errorf("kind = %q, want transport (err=%v)", got, err)
	}
}

func TestAstroClient_FetchPanchang_ConnectionRefused(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := server.URL
	server.Close()

	client, _ := NewAstroClient("test-key", url, time.Second)
	_, err := client.FetchPanchang(context.Background(), testRequest())
	if got := models.AsPipelineError(err).Kind; got != models.ErrorKindTransport {
		t.Errorf("kind = %q, want transport (err=%v)", got, err)
	}
}

func TestExplicitError(t *testing.T) {
	tests := []struct {
		body   string
		want   string
		wantOK bool
	}{
		{`{"error":"bad"}`, "bad", true},
		{`{"error":{"message":"nested"}}`, "nested", true},
		{`{"error":{"code":7}}`, `{"code":7}`, true},
		{`{"tithi":{}}`, "", false},
		{`["error"]`, "", false},
		{`"error"`, "", false},
	}
	for _, tt := range tests {
		got, ok := explicitError([]byte(tt.body))
		if ok != tt.wantOK || got != tt.want {
			t.Errorf("explicitError(%s) = (%q, %v), want (%q, %v)", tt.body, got, ok, tt.want, tt.wantOK)
		}
	}
}

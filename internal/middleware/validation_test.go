package middleware

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestDecodeJSON(t *testing.T) {
	type payload struct {
		Title string `json:"title"`
	}
	tests := []struct {
		name        string
		contentType string
		body        string
		wantErr     string
	}{
		{"valid", "application/json", `{"title":"x"}`, ""},
		{"charset", "application/json; charset=utf-8", `{"title":"x"}`, ""},
		{"no content type", "", `{"title":"x"}`, ""},
		{"wrong content type", "text/plain", `{"title":"x"}`, "Content-Type"},
		{"malformed", "application/json", `{"title":`, "invalid JSON"},
		{"unknown field", "application/json", `{"colour":"red"}`, "invalid JSON"},
		{"trailing data", "application/json", `{"title":"x"}{}`, "unexpected data"},
		{"empty", "application/json", ``, "empty"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(tt.body))
			if tt.contentType != "" {
				req.Header.Set("Content-Type", tt.contentType)
			}
			var p payload
			err := DecodeJSON(req, &p)
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				if p.Title != "x" {
					t.Errorf("decoded %+v", p)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("expected error containing %q, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestValidateRequestBody_LimitsSize(t *testing.T) {
	var decodeErr error
	handler := ValidateRequestBody(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var v map[string]string
		decodeErr = DecodeJSON(r, &v)
	}))

	big := `{"title":"` + string(bytes.Repeat([]byte("a"), MaxRequestBodySize)) + `"}`
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(big))
	req.Header.Set("Content-Type", "application/json")
	handler.ServeHTTP(httptest.NewRecorder(), req)

	if decodeErr == nil || !strings.Contains(decodeErr.Error(), "exceeds") {
		t.Fatalf("expected size error, got %v", decodeErr)
	}
}

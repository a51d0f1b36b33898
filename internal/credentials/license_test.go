package credentials

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
)

func TestLicenseCheck(t *testing.T) {
	l := NewLicenses([]string{"ABC-123", " ", "XYZ-999 "})
	tests := []struct {
		in   string
		want LicenseResult
	}{
		{"", LicenseResult{Status: LicenseEmpty}},
		{"   ", LicenseResult{Status: LicenseEmpty}},
		{"ABC-123", LicenseResult{Valid: true, Status: LicenseValid}},
		{"XYZ-999", LicenseResult{Valid: true, Status: LicenseValid}},
		{"abc-123", LicenseResult{Status: LicenseInvalid}},
		{"ABC-1234", LicenseResult{Status: LicenseInvalid}},
	}
	for _, tt := range tests {
		if got := l.Check(tt.in); got != tt.want {
			t.Fatalf("Check(%q) = %+v, want %+v", tt.in, got, tt.want)
		}
	}
}

func TestLicenseRoute(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	NewHandler(NewKeyValidator(nil), NewLicenses([]string{"KEY"})).RegisterRoutes(r)

	body, _ := json.Marshal(map[string]string{"license_key": "KEY"})
	req := httptest.NewRequest(http.MethodPost, "/validate-license", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	var got LicenseResult
	if err := json.Unmarshal(w.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if w.Code != http.StatusOK || !got.Valid || got.Status != LicenseValid {
		t.Fatalf("unexpected response %d %s", w.Code, w.Body.String())
	}
}

func TestAPIKeyRouteFormatError(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	NewHandler(NewKeyValidator(nil), NewLicenses(nil)).RegisterRoutes(r)

	req := httptest.NewRequest(http.MethodPost, "/validate-api-key", bytes.NewReader([]byte(`{"api_key":"nope"}`)))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	var got Result
	if err := json.Unmarshal(w.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.Valid || got.Error != "Invalid API key format" {
		t.Fatalf("unexpected response %s", w.Body.String())
	}
}

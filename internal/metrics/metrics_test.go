package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestHandlerExposesCounters(t *testing.T) {
	TransferInitiated("email")
	TransferVerification("verified")
	Notification(false)
	ObserveHTTP("GET", "/api/fowls", 200, 10*time.Millisecond)

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	body := rec.Body.String()
	for _, want := range []string{
		`perutnina_transfers_initiated_total{method="email"}`,
		`perutnina_transfers_verifications_total{outcome="verified"}`,
		`perutnina_notifications_sent_total{result="error"}`,
		`perutnina_http_requests_total{method="GET",route="/api/fowls",status="200"}`,
	} {
		if !strings.Contains(body, want) {
			t.Errorf("expected %s in output", want)
		}
	}
}

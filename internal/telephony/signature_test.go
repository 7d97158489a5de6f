package telephony

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
)

func signedRequest(t *testing.T, form url.Values, sig string) *http.Request {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/webhooks/voice", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("X-Twilio-Signature", sig)
	return req
}

func serve(r *gin.Engine, req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func newSignedRouter(authToken string) *gin.Engine {
	r := gin.New()
	r.POST("/webhooks/voice", RequireSignature(authToken, "https://gw.example.com"), func(c *gin.Context) {
		c.String(http.StatusOK, "ok")
	})
	return r
}

func TestRequireSignatureAccepts(t *testing.T) {
	form := inboundForm()
	sig := ComputeSignature("secret", "https://gw.example.com/webhooks/voice", form)

	r := newSignedRouter("secret")
	req := signedRequest(t, form, sig)
	w := serve(r, req)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
}

func TestRequireSignatureRejectsBadSignature(t *testing.T) {
	r := newSignedRouter("secret")
	req := signedRequest(t, inboundForm(), "bogus")
	w := serve(r, req)
	if w.Code != http.StatusForbidden {
		t.Fatalf("status = %d, want 403", w.Code)
	}
}

func TestRequireSignatureRejectsTamperedForm(t *testing.T) {
	form := inboundForm()
	sig := ComputeSignature("secret", "https://gw.example.com/webhooks/voice", form)
	form.Set("From", "+15559998888")

	r := newSignedRouter("secret")
	req := signedRequest(t, form, sig)
	w := serve(r, req)
	if w.Code != http.StatusForbidden {
		t.Fatalf("status = %d, want 403", w.Code)
	}
}

func TestComputeSignatureIsOrderIndependent(t *testing.T) {
	a := ComputeSignature("secret", "https://gw.example.com/x", url.Values{"B": {"2"}, "A": {"1"}})
	b := ComputeSignature("secret", "https://gw.example.com/x", url.Values{"A": {"1"}, "B": {"2"}})
	if a != b {
		t.Fatalf("signatures differ: %q vs %q", a, b)
	}
}

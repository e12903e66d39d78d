package cookies

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"colony-server/internal/shared/config"
)

func TestClearAuthCookie(t *testing.T) {
	rec := httptest.NewRecorder()
	ClearAuthCookie(rec,
		config.AuthConfig{CookieName: "auth_token", CookieSecure: true, CookieSameSite: "strict"},
		config.FrontendConfig{URL: "https://play.example.com:8443"},
	)

	cookies := rec.Result().Cookies()
	if len(cookies) != 1 {
		t.Fatalf("expected one cookie, got %d", len(cookies))
	}
	c := cookies[0]
	if c.Name != "auth_token" || c.MaxAge >= 0 || !c.Secure || c.SameSite != http.SameSiteStrictMode {
		t.Fatalf("unexpected cookie %+v", c)
	}
	if c.Domain != "play.example.com" {
		t.Fatalf("expected domain play.example.com, got %q", c.Domain)
	}
}

func TestExtractDomainLocalhost(t *testing.T) {
	if got := extractDomain("http://localhost:3000"); got != "" {
		t.Fatalf("localhost should not set a domain, got %q", got)
	}
}

package cookies

import (
	"net/http"
	"net/url"
	"strings"

	"colony-server/internal/shared/config"
)

func ClearAuthCookie(w http.ResponseWriter, auth config.AuthConfig, frontend config.FrontendConfig) {
	cookie := createAuthCookie(auth, frontend)
	cookie.Value = ""
	cookie.MaxAge = -1

	http.SetCookie(w, cookie)
}

func createAuthCookie(auth config.AuthConfig, frontend config.FrontendConfig) *http.Cookie {
	return &http.Cookie{
		Name:     auth.CookieName,
		Path:     "/",
		Domain:   extractDomain(frontend.URL),
		HttpOnly: true,
		Secure:   auth.CookieSecure,
		SameSite: parseSameSite(auth.CookieSameSite),
	}
}

func extractDomain(frontendURL string) string {
	parsedURL, err := url.Parse(frontendURL)
	if err != nil || parsedURL.Host == "" {
		return ""
	}

	host := parsedURL.Hostname()
	if host == "localhost" || host == "127.0.0.1" {
		return ""
	}

	return host
}

func parseSameSite(sameSiteStr string) http.SameSite {
	switch strings.ToLower(sameSiteStr) {
	case "strict":
		return http.SameSiteStrictMode
	case "none":
		return http.SameSiteNoneMode
	default:
		return http.SameSiteLaxMode
	}
}

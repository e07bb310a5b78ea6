// Package gateway is a thin reverse proxy that fronts the auth and file
// servers for browser clients. Its only behavior beyond routing is lifting
// a session cookie into a bearer Authorization header.
package gateway

import (
	"net/http"
	"net/http/httputil"
	"net/url"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/dmitrijs2005/filevault/internal/common"
	"github.com/dmitrijs2005/filevault/internal/logging"
)

// SessionCookieName holds the raw access token for browser sessions.
const SessionCookieName = "fv_session"

// Proxy routes /api/auth/* to the auth backend and /api/files/* to the file
// backend.
type Proxy struct {
	router *chi.Mux
	logger logging.Logger
}

// New builds the proxy for the two backend base URLs.
func New(authBackend, fileBackend string, logger logging.Logger) (*Proxy, error) {
	authURL, err := url.Parse(authBackend)
	if err != nil {
		return nil, err
	}
	fileURL, err := url.Parse(fileBackend)
	if err != nil {
		return nil, err
	}

	r := chi.NewRouter()
	r.Mount("/api/auth", http.StripPrefix("/api/auth", newReverseProxy(authURL)))
	r.Mount("/api/files", http.StripPrefix("/api/files", newReverseProxy(fileURL)))

	return &Proxy{router: r, logger: logger.With("module", "gateway")}, nil
}

func newReverseProxy(target *url.URL) *httputil.ReverseProxy {
	return &httputil.ReverseProxy{
		Rewrite: func(pr *httputil.ProxyRequest) {
			pr.SetURL(target)
			pr.SetXForwarded()
			injectBearerFromCookie(pr.Out)
		},
	}
}

// injectBearerFromCookie turns the session cookie into an Authorization
// header. An explicit Authorization header always wins; the cookie is
// stripped either way so it never reaches the backends.
func injectBearerFromCookie(r *http.Request) {
	cookie, err := r.Cookie(SessionCookieName)
	if err == nil && r.Header.Get(common.AuthorizationHeaderName) == "" {
		token := strings.TrimSpace(cookie.Value)
		if token != "" {
			r.Header.Set(common.AuthorizationHeaderName, "Bearer "+token)
		}
	}
	stripSessionCookie(r)
}

func stripSessionCookie(r *http.Request) {
	cookies := r.Cookies()
	r.Header.Del("Cookie")
	for _, c := range cookies {
		if c.Name != SessionCookieName {
			r.AddCookie(c)
		}
	}
}

// ServeHTTP implements http.Handler.
func (p *Proxy) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	p.router.ServeHTTP(w, r)
}

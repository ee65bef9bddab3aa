package satchel

import (
	"mime"
	"net"
	"net/http"
	"strings"
	"time"
)

// Request is the request-scoped input a handler reads: the client
// fingerprint and the places an identifier may arrive in. It is built once
// per request and never read from ambient state.
type Request struct {
	RemoteAddr string
	UserAgent  string
	Form       map[string]string
	Cookies    map[string]string
	Query      map[string]string
}

// lookupID resolves an identifier: posted field, then cookie, then query.
func (r Request) lookupID(field, cookie, query string) string {
	if v := r.Form[field]; v != "" {
		return v
	}
	if v := r.Cookies[cookie]; v != "" {
		return v
	}
	return r.Query[query]
}

// NewRequest captures r. X-Forwarded-For is honoured only when the direct
// peer is one of trusted. Posted fields are read only from url-encoded
// bodies.
func NewRequest(r *http.Request, trusted []net.IPNet) Request {
	req := Request{
		RemoteAddr: ClientIP(r, trusted),
		UserAgent:  r.UserAgent(),
		Form:       make(map[string]string),
		Cookies:    make(map[string]string),
		Query:      make(map[string]string),
	}

	for _, c := range r.Cookies() {
		if _, seen := req.Cookies[c.Name]; !seen {
			req.Cookies[c.Name] = c.Value
		}
	}
	for k, v := range r.URL.Query() {
		if len(v) > 0 {
			req.Query[k] = v[0]
		}
	}
	if isFormPost(r) && r.ParseForm() == nil {
		for k, v := range r.PostForm {
			if len(v) > 0 {
				req.Form[k] = v[0]
			}
		}
	}

	return req
}

func isFormPost(r *http.Request) bool {
	if r.Method != http.MethodPost && r.Method != http.MethodPut && r.Method != http.MethodPatch {
		return false
	}
	ct, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	return err == nil && ct == "application/x-www-form-urlencoded"
}

// ClientIP returns the peer address of r, or the first X-Forwarded-For hop
// when the peer is a trusted proxy.
func ClientIP(r *http.Request, trusted []net.IPNet) string {
	ip := r.RemoteAddr
	if host, _, err := net.SplitHostPort(ip); err == nil {
		ip = host
	}

	forwarded := r.Header.Get("X-Forwarded-For")
	if forwarded == "" {
		return ip
	}

	peer := net.ParseIP(ip)
	if peer == nil {
		return ip
	}
	for _, network := range trusted {
		if !network.Contains(peer) {
			continue
		}
		if client := firstHop(forwarded); client != "" {
			return client
		}
		break
	}
	return ip
}

// firstHop returns the originating client of an X-Forwarded-For chain.
func firstHop(forwarded string) string {
	client, _, _ := strings.Cut(forwarded, ",")
	return strings.TrimSpace(client)
}

// ParseTrustedProxies accepts CIDRs or bare addresses; unparsable entries
// are skipped.
func ParseTrustedProxies(proxies []string) []net.IPNet {
	networks := make([]net.IPNet, 0, len(proxies))
	for _, proxy := range proxies {
		_, ipnet, err := net.ParseCIDR(proxy)
		if err != nil {
			ip := net.ParseIP(proxy)
			if ip == nil {
				continue
			}
			mask := net.CIDRMask(32, 32)
			if ip.To4() == nil {
				mask = net.CIDRMask(128, 128)
			}
			ipnet = &net.IPNet{IP: ip, Mask: mask}
		}
		networks = append(networks, *ipnet)
	}
	return networks
}

// IDWriter delivers identifier changes back to the client.
type IDWriter interface {
	WriteID(name, id string, maxAge time.Duration)
	ClearID(name string)
}

type CookieOptions struct {
	Path     string
	Domain   string
	Secure   bool
	SameSite http.SameSite
}

// CookieWriter is an IDWriter that sets HttpOnly cookies on w.
type CookieWriter struct {
	w    http.ResponseWriter
	opts CookieOptions
}

func NewCookieWriter(w http.ResponseWriter, opts CookieOptions) *CookieWriter {
	if opts.Path == "" {
		opts.Path = "/"
	}
	if opts.SameSite == 0 {
		opts.SameSite = http.SameSiteLaxMode
	}
	return &CookieWriter{w: w, opts: opts}
}

// WriteID sets a session cookie when maxAge is zero.
func (cw *CookieWriter) WriteID(name, id string, maxAge time.Duration) {
	http.SetCookie(cw.w, cw.cookie(name, id, int(maxAge.Seconds())))
}

func (cw *CookieWriter) ClearID(name string) {
	http.SetCookie(cw.w, cw.cookie(name, "", -1))
}

func (cw *CookieWriter) cookie(name, value string, maxAge int) *http.Cookie {
	return &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     cw.opts.Path,
		Domain:   cw.opts.Domain,
		MaxAge:   maxAge,
		Secure:   cw.opts.Secure,
		HttpOnly: true,
		SameSite: cw.opts.SameSite,
	}
}

type discardIDWriter struct{}

func (discardIDWriter) WriteID(string, string, time.Duration) {}
func (discardIDWriter) ClearID(string)                        {}

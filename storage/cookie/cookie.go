// Package cookie stores payloads as HTTP cookies, either in an
// http.CookieJar for a fixed URL or directly on a request/response pair
// inside an HTTP handler.
package cookie

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"sort"
	"sync"
	"time"
)

// MaxValueSize is the largest encoded payload written to a single cookie.
// Browsers commonly cap a cookie at 4096 bytes including its name.
const MaxValueSize = 4000

// ErrTooLarge is returned when an encoded payload exceeds MaxValueSize.
var ErrTooLarge = errors.New("cookie: value too large")

// Attributes are applied to every cookie the backend writes.
type Attributes struct {
	Path     string
	Domain   string
	MaxAge   time.Duration
	Secure   bool
	HttpOnly bool
	SameSite http.SameSite
}

// Option configures a cookie backend.
type Option func(*Attributes)

// WithPath sets the cookie path. Defaults to "/".
func WithPath(path string) Option {
	return func(a *Attributes) {
		a.Path = path
	}
}

// WithDomain sets the cookie domain.
func WithDomain(domain string) Option {
	return func(a *Attributes) {
		a.Domain = domain
	}
}

// WithMaxAge sets the cookie lifetime. Zero keeps session cookies.
func WithMaxAge(d time.Duration) Option {
	return func(a *Attributes) {
		a.MaxAge = d
	}
}

// WithSecure marks cookies Secure.
func WithSecure(secure bool) Option {
	return func(a *Attributes) {
		a.Secure = secure
	}
}

// WithHTTPOnly marks cookies HttpOnly.
func WithHTTPOnly(httpOnly bool) Option {
	return func(a *Attributes) {
		a.HttpOnly = httpOnly
	}
}

// WithSameSite sets the SameSite attribute. Defaults to Lax.
func WithSameSite(mode http.SameSite) Option {
	return func(a *Attributes) {
		a.SameSite = mode
	}
}

func applyOptions(opts []Option) Attributes {
	attrs := Attributes{Path: "/", SameSite: http.SameSiteLaxMode}
	for _, opt := range opts {
		if opt != nil {
			opt(&attrs)
		}
	}
	return attrs
}

func (a Attributes) cookie(name, value string) *http.Cookie {
	c := &http.Cookie{
		Name:     name,
		Value:    encode(value),
		Path:     a.Path,
		Domain:   a.Domain,
		Secure:   a.Secure,
		HttpOnly: a.HttpOnly,
		SameSite: a.SameSite,
	}
	if a.MaxAge > 0 {
		c.MaxAge = int(a.MaxAge / time.Second)
		c.Expires = time.Now().Add(a.MaxAge)
	}
	return c
}

func (a Attributes) expired(name string) *http.Cookie {
	return &http.Cookie{
		Name:    name,
		Path:    a.Path,
		Domain:  a.Domain,
		MaxAge:  -1,
		Expires: time.Unix(0, 0),
	}
}

// Storage keeps payloads in a cookie jar for one URL.
type Storage struct {
	jar   http.CookieJar
	url   *url.URL
	attrs Attributes
}

// New returns a backend that reads and writes cookies in jar for u.
func New(jar http.CookieJar, u *url.URL, opts ...Option) (*Storage, error) {
	if jar == nil {
		return nil, errors.New("cookie: jar is required")
	}
	if u == nil {
		return nil, errors.New("cookie: url is required")
	}
	return &Storage{jar: jar, url: u, attrs: applyOptions(opts)}, nil
}

// NewJar is New with a fresh in-memory cookie jar.
func NewJar(u *url.URL, opts ...Option) (*Storage, error) {
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, fmt.Errorf("cookie: jar: %w", err)
	}
	return New(jar, u, opts...)
}

// Jar returns the underlying cookie jar, e.g. to share it with an
// http.Client.
func (s *Storage) Jar() http.CookieJar {
	return s.jar
}

func (s *Storage) GetItem(key string) (string, bool, error) {
	for _, c := range s.jar.Cookies(s.url) {
		if c.Name != key {
			continue
		}
		v, err := decode(c.Value)
		if err != nil {
			return "", false, fmt.Errorf("cookie: get %q: %w", key, err)
		}
		return v, true, nil
	}
	return "", false, nil
}

func (s *Storage) SetItem(key, value string) error {
	c := s.attrs.cookie(key, value)
	if err := validate(c); err != nil {
		return fmt.Errorf("cookie: set %q: %w", key, err)
	}
	s.jar.SetCookies(s.url, []*http.Cookie{c})
	return nil
}

func (s *Storage) RemoveItem(key string) error {
	s.jar.SetCookies(s.url, []*http.Cookie{s.attrs.expired(key)})
	return nil
}

// Keys lists the cookie names visible for the URL.
func (s *Storage) Keys() ([]string, error) {
	cookies := s.jar.Cookies(s.url)
	keys := make([]string, 0, len(cookies))
	for _, c := range cookies {
		keys = append(keys, c.Name)
	}
	sort.Strings(keys)
	return keys, nil
}

// Request binds storage to one HTTP exchange: reads come from the incoming
// request and writes are emitted as Set-Cookie headers on the response.
// Writes made during the exchange are visible to later reads.
type Request struct {
	r     *http.Request
	w     http.ResponseWriter
	attrs Attributes

	mu      sync.Mutex
	pending map[string]*string
}

// FromRequest returns a backend bound to r and w.
func FromRequest(w http.ResponseWriter, r *http.Request, opts ...Option) *Request {
	return &Request{
		r:       r,
		w:       w,
		attrs:   applyOptions(opts),
		pending: map[string]*string{},
	}
}

func (s *Request) GetItem(key string) (string, bool, error) {
	s.mu.Lock()
	v, written := s.pending[key]
	s.mu.Unlock()
	if written {
		if v == nil {
			return "", false, nil
		}
		return *v, true, nil
	}

	c, err := s.r.Cookie(key)
	if errors.Is(err, http.ErrNoCookie) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("cookie: get %q: %w", key, err)
	}
	value, err := decode(c.Value)
	if err != nil {
		return "", false, fmt.Errorf("cookie: get %q: %w", key, err)
	}
	return value, true, nil
}

func (s *Request) SetItem(key, value string) error {
	c := s.attrs.cookie(key, value)
	if err := validate(c); err != nil {
		return fmt.Errorf("cookie: set %q: %w", key, err)
	}
	http.SetCookie(s.w, c)
	s.mu.Lock()
	s.pending[key] = &value
	s.mu.Unlock()
	return nil
}

func (s *Request) RemoveItem(key string) error {
	http.SetCookie(s.w, s.attrs.expired(key))
	s.mu.Lock()
	s.pending[key] = nil
	s.mu.Unlock()
	return nil
}

func validate(c *http.Cookie) error {
	if len(c.Value) > MaxValueSize {
		return fmt.Errorf("%w: %d bytes", ErrTooLarge, len(c.Value))
	}
	return c.Valid()
}

func encode(value string) string {
	return url.QueryEscape(value)
}

func decode(value string) (string, error) {
	return url.QueryUnescape(value)
}

// Package storage defines the client's persistent state: the cookies the
// server sets, most importantly the refresh cookie.
package storage

import (
	"context"
	"net/http"
	"net/url"
	"time"
)

// CookieStorage defines interface for storing cookies on client.
// Records are opaque to the storage layer; expiry is checked by Jar.
type CookieStorage interface {
	// SaveCookie stores or replaces the record with the same Key
	SaveCookie(ctx context.Context, cookie *Cookie) error

	// DeleteCookie removes a record; deleting a missing key is not an error
	DeleteCookie(ctx context.Context, key string) error

	// ListCookies returns every stored record
	ListCookies(ctx context.Context) ([]*Cookie, error)

	// ClearCookies removes all records
	ClearCookies(ctx context.Context) error
}

// Cookie is a persisted cookie together with the origin that set it
type Cookie struct {
	Expires  time.Time `json:"expires"`
	Origin   string    `json:"origin"` // scheme://host ответа, установившего cookie
	Name     string    `json:"name"`
	Value    string    `json:"value"`
	Path     string    `json:"path"`
	Domain   string    `json:"domain,omitempty"`
	Secure   bool      `json:"secure"`
	HttpOnly bool      `json:"http_only"`
}

// Key identifies a cookie within its origin
func (c *Cookie) Key() string {
	return c.Origin + "|" + c.Path + "|" + c.Name
}

// Expired reports whether the cookie is no longer valid at now
func (c *Cookie) Expired(now time.Time) bool {
	return !c.Expires.After(now)
}

// HTTP converts the record back into a cookie for the in-memory jar
func (c *Cookie) HTTP() *http.Cookie {
	return &http.Cookie{
		Name:     c.Name,
		Value:    c.Value,
		Path:     c.Path,
		Domain:   c.Domain,
		Expires:  c.Expires,
		Secure:   c.Secure,
		HttpOnly: c.HttpOnly,
	}
}

// OriginURL parses Origin
func (c *Cookie) OriginURL() (*url.URL, error) {
	return url.Parse(c.Origin)
}

// newCookie builds a record for a cookie set by a response from u.
// ok is false for session cookies, which are not persisted.
func newCookie(u *url.URL, c *http.Cookie, now time.Time) (rec *Cookie, ok bool) {
	rec = &Cookie{
		Origin:   u.Scheme + "://" + u.Host,
		Name:     c.Name,
		Value:    c.Value,
		Path:     c.Path,
		Domain:   c.Domain,
		Secure:   c.Secure,
		HttpOnly: c.HttpOnly,
	}
	if rec.Path == "" {
		rec.Path = "/"
	}

	switch {
	case c.MaxAge < 0:
		rec.Expires = time.Unix(0, 0)
	case c.MaxAge > 0:
		rec.Expires = now.Add(time.Duration(c.MaxAge) * time.Second)
	case !c.Expires.IsZero():
		rec.Expires = c.Expires
	default:
		return rec, false
	}

	return rec, true
}

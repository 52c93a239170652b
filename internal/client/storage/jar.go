package storage

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"sync"
	"time"
)

var _ http.CookieJar = (*Jar)(nil)

// Jar is an http.CookieJar whose persistent cookies survive restarts.
// Matching rules are delegated to net/http/cookiejar; every change to a
// persistent cookie is mirrored into a CookieStorage.
type Jar struct {
	logger *slog.Logger
	store  CookieStorage
	jar    *cookiejar.Jar
	now    func() time.Time
	mu     sync.Mutex
}

// NewJar loads unexpired cookies from store; expired ones are deleted
func NewJar(ctx context.Context, logger *slog.Logger, store CookieStorage) (*Jar, error) {
	inner, err := cookiejar.New(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create cookie jar: %w", err)
	}

	j := &Jar{
		logger: logger,
		store:  store,
		jar:    inner,
		now:    time.Now,
	}

	if err := j.load(ctx); err != nil {
		return nil, err
	}

	return j, nil
}

func (j *Jar) load(ctx context.Context) error {
	cookies, err := j.store.ListCookies(ctx)
	if err != nil {
		return fmt.Errorf("failed to load cookies: %w", err)
	}

	now := j.now()
	for _, c := range cookies {
		if c.Expired(now) {
			if err := j.store.DeleteCookie(ctx, c.Key()); err != nil {
				return fmt.Errorf("failed to delete expired cookie: %w", err)
			}
			continue
		}

		u, err := c.OriginURL()
		if err != nil {
			j.logger.WarnContext(ctx, "skipping cookie with invalid origin",
				slog.String("origin", c.Origin),
				slog.String("name", c.Name),
			)
			continue
		}
		j.jar.SetCookies(u, []*http.Cookie{c.HTTP()})
	}

	return nil
}

// SetCookies implements http.CookieJar
func (j *Jar) SetCookies(u *url.URL, cookies []*http.Cookie) {
	j.mu.Lock()
	defer j.mu.Unlock()

	ctx := context.Background()
	now := j.now()

	for _, c := range cookies {
		rec, persistent := newCookie(u, c, now)
		if !persistent {
			continue
		}

		var err error
		if rec.Expired(now) {
			err = j.store.DeleteCookie(ctx, rec.Key())
		} else {
			err = j.store.SaveCookie(ctx, rec)
		}
		if err != nil {
			// значение cookie не логируем
			j.logger.Error("failed to persist cookie",
				slog.String("name", c.Name),
				slog.Any("error", err),
			)
		}
	}

	j.jar.SetCookies(u, cookies)
}

// Cookies implements http.CookieJar
func (j *Jar) Cookies(u *url.URL) []*http.Cookie {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.jar.Cookies(u)
}

// Clear drops every cookie from memory and storage
func (j *Jar) Clear(ctx context.Context) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	if err := j.store.ClearCookies(ctx); err != nil {
		return fmt.Errorf("failed to clear cookies: %w", err)
	}

	inner, err := cookiejar.New(nil)
	if err != nil {
		return fmt.Errorf("failed to create cookie jar: %w", err)
	}
	j.jar = inner

	return nil
}

package boltdb

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"go.etcd.io/bbolt"

	"github.com/iudanet/taskauth/internal/client/storage"
)

// SaveCookie stores cookie under its key
func (s *Storage) SaveCookie(ctx context.Context, cookie *storage.Cookie) error {
	return s.update(func(bucket *bbolt.Bucket) error {
		// Сериализуем данные в JSON
		data, err := json.Marshal(cookie)
		if err != nil {
			return fmt.Errorf("failed to marshal cookie: %w", err)
		}

		if err := bucket.Put([]byte(cookie.Key()), data); err != nil {
			return fmt.Errorf("failed to save cookie: %w", err)
		}
		return nil
	})
}

// DeleteCookie removes the cookie with key
func (s *Storage) DeleteCookie(ctx context.Context, key string) error {
	return s.update(func(bucket *bbolt.Bucket) error {
		if err := bucket.Delete([]byte(key)); err != nil {
			return fmt.Errorf("failed to delete cookie: %w", err)
		}
		return nil
	})
}

// ListCookies returns all stored cookies
func (s *Storage) ListCookies(ctx context.Context) ([]*storage.Cookie, error) {
	var cookies []*storage.Cookie

	err := s.view(func(bucket *bbolt.Bucket) error {
		return bucket.ForEach(func(k, v []byte) error {
			var c storage.Cookie
			if err := json.Unmarshal(v, &c); err != nil {
				return fmt.Errorf("failed to unmarshal cookie %q: %w", k, err)
			}
			cookies = append(cookies, &c)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	return cookies, nil
}

// ClearCookies removes all cookies
func (s *Storage) ClearCookies(ctx context.Context) error {
	if s.db == nil {
		return storage.ErrStorageClosed
	}
	return s.db.Update(func(tx *bbolt.Tx) error {
		if err := tx.DeleteBucket(bucketCookies); err != nil && !errors.Is(err, bbolt.ErrBucketNotFound) {
			return fmt.Errorf("failed to delete cookies bucket: %w", err)
		}
		if _, err := tx.CreateBucket(bucketCookies); err != nil {
			return fmt.Errorf("failed to create cookies bucket: %w", err)
		}
		return nil
	})
}

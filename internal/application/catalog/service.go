// Package catalog serves the read-only list of purchasable services. The list
// is loaded once at startup from S3, a local file, or the embedded default.
package catalog

import (
	"bytes"
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/go-storefront-bot/internal/domain"
	"github.com/go-storefront-bot/internal/pkg/validate"
)

//go:embed default.json
var defaultCatalog []byte

type Service interface {
	// List returns services in catalog order.
	List(ctx context.Context) ([]domain.Service, error)
	// Get returns domain.ErrNotFound for unknown ids.
	Get(ctx context.Context, serviceID int) (*domain.Service, error)
}

type objectStore interface {
	Download(ctx context.Context, key string) (io.ReadCloser, error)
	Upload(ctx context.Context, key string, r io.Reader, contentType string) error
}

type service struct {
	items []domain.Service
	byID  map[int]domain.Service
}

// Parse decodes and validates a catalog document. Ids must be unique.
func Parse(data []byte) (Service, error) {
	var c domain.Catalog
	if err := json.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("decode catalog: %w", err)
	}
	if err := validate.Struct(c); err != nil {
		return nil, fmt.Errorf("invalid catalog: %w", err)
	}
	byID := make(map[int]domain.Service, len(c.Services))
	for _, s := range c.Services {
		if _, dup := byID[s.ID]; dup {
			return nil, fmt.Errorf("duplicate service id %d: %w", s.ID, domain.ErrBadRequest)
		}
		byID[s.ID] = s
	}
	return &service{items: c.Services, byID: byID}, nil
}

func Default() Service {
	s, err := Parse(defaultCatalog)
	if err != nil {
		panic("embedded catalog is invalid: " + err.Error())
	}
	return s
}

func LoadFile(path string) (Service, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog file: %w", err)
	}
	return Parse(data)
}

// LoadObject reads the catalog from an object store. A missing object is
// seeded with the embedded default, which is then served.
func LoadObject(ctx context.Context, store objectStore, key string) (Service, error) {
	body, err := store.Download(ctx, key)
	if errors.Is(err, domain.ErrNotFound) {
		if err := store.Upload(ctx, key, bytes.NewReader(defaultCatalog), "application/json"); err != nil {
			return nil, fmt.Errorf("seed catalog object: %w", err)
		}
		slog.Info("seeded catalog object with defaults", "key", key)
		return Default(), nil
	}
	if err != nil {
		return nil, err
	}
	defer body.Close()
	data, err := io.ReadAll(body)
	if err != nil {
		return nil, fmt.Errorf("read catalog object: %w", err)
	}
	return Parse(data)
}

func (s *service) List(_ context.Context) ([]domain.Service, error) {
	out := make([]domain.Service, len(s.items))
	copy(out, s.items)
	return out, nil
}

func (s *service) Get(_ context.Context, serviceID int) (*domain.Service, error) {
	v, ok := s.byID[serviceID]
	if !ok {
		return nil, fmt.Errorf("service %d: %w", serviceID, domain.ErrNotFound)
	}
	return &v, nil
}

// Package catalog loads the promo codes and bundles the policy service
// evaluates against, and keeps an immutable snapshot of them current.
package catalog

import (
	"context"
	"fmt"
	"time"

	"github.com/SmitUplenchwar2687/Tollgate/internal/bundle"
	"github.com/SmitUplenchwar2687/Tollgate/internal/promo"
)

// Snapshot is one validated, read-only view of the catalog. Evaluations
// hold a *Snapshot for their whole duration, so a refresh never changes
// data under an in-flight request.
type Snapshot struct {
	Promos   *promo.Catalog
	Bundles  []bundle.Bundle
	Version  string
	LoadedAt time.Time
}

// Document is the serialized form of a catalog.
type Document struct {
	Version    string          `json:"version,omitempty"`
	PromoCodes []promo.Code    `json:"promo_codes"`
	Bundles    []bundle.Bundle `json:"bundles"`
}

// NewSnapshot validates doc and builds a Snapshot from it.
func NewSnapshot(doc Document, loadedAt time.Time) (*Snapshot, error) {
	promos, err := promo.NewCatalog(doc.PromoCodes)
	if err != nil {
		return nil, fmt.Errorf("promo codes: %w", err)
	}
	if err := bundle.ValidateAll(doc.Bundles); err != nil {
		return nil, fmt.Errorf("bundles: %w", err)
	}

	bundles := make([]bundle.Bundle, len(doc.Bundles))
	copy(bundles, doc.Bundles)

	version := doc.Version
	if version == "" {
		version = loadedAt.UTC().Format(time.RFC3339)
	}
	return &Snapshot{
		Promos:   promos,
		Bundles:  bundles,
		Version:  version,
		LoadedAt: loadedAt,
	}, nil
}

// Document converts s back to its serialized form.
func (s *Snapshot) Document() Document {
	return Document{
		Version:    s.Version,
		PromoCodes: s.Promos.Codes(),
		Bundles:    s.Bundles,
	}
}

// Source loads a fresh snapshot.
type Source interface {
	Load(ctx context.Context) (*Snapshot, error)
}

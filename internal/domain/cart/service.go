package cart

import (
	"context"
	"strings"

	"github.com/example/ec-cart-pricing/internal/infrastructure/store"
)

const cartIDPrefix = "cart-storage:"

// GetCartID returns the persistence id of a shopper's cart.
func GetCartID(userID string) string {
	return cartIDPrefix + userID
}

type ServiceConfig struct {
	Snapshots      store.SnapshotStore
	Catalog        Catalog
	DefaultCountry string
	StoreOptions   []Option
}

// Service opens shopper carts from the snapshot store. Nothing is cached
// between calls, so several API instances can share one snapshot store.
type Service struct {
	snapshots      store.SnapshotStore
	catalog        Catalog
	defaultCountry string
	opts           []Option
}

func NewService(cfg ServiceConfig) *Service {
	return &Service{
		snapshots:      cfg.Snapshots,
		catalog:        cfg.Catalog,
		defaultCountry: strings.ToUpper(cfg.DefaultCountry),
		opts:           cfg.StoreOptions,
	}
}

func (s *Service) Catalog() Catalog {
	return s.catalog
}

// Open loads the shopper's cart as currently persisted. Writes through the
// returned Store are conditional on that version and reload on conflict.
func (s *Service) Open(ctx context.Context, userID string) (*Store, error) {
	cartID := GetCartID(userID)
	return NewStore(ctx, cartID, NewSnapshotPersister(s.snapshots, cartID), s.opts...)
}

// Refresh reconciles the shopper's cart with the catalog for the cart's
// country, falling back to the default country.
func (s *Service) Refresh(ctx context.Context, userID string) error {
	st, err := s.Open(ctx, userID)
	if err != nil {
		return err
	}
	return st.Refresh(ctx, s.catalog, s.countryFor(st, ""))
}

// SetCountry switches the shipping country and refreshes every line's
// shipping option for it.
func (s *Service) SetCountry(ctx context.Context, userID, country string) error {
	st, err := s.Open(ctx, userID)
	if err != nil {
		return err
	}
	return st.Refresh(ctx, s.catalog, s.countryFor(st, country))
}

// CountryFor resolves the country used to price the shopper's cart:
// the cart's own country, then hint, then the service default.
func (s *Service) CountryFor(ctx context.Context, userID, hint string) (string, error) {
	st, err := s.Open(ctx, userID)
	if err != nil {
		return "", err
	}
	if c := st.Country(); c != "" {
		return c, nil
	}
	return s.countryFor(st, hint), nil
}

func (s *Service) countryFor(st *Store, requested string) string {
	if c := strings.ToUpper(strings.TrimSpace(requested)); c != "" {
		return c
	}
	if c := st.Country(); c != "" {
		return c
	}
	return s.defaultCountry
}

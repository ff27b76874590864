package appstate

import (
	"context"
	"log/slog"

	"golang.org/x/sync/singleflight"

	"github.com/odyssey-erp/stockwizard/internal/openboxes"
)

// Backend is the reference-data surface of the API client.
type Backend interface {
	ReasonCodes(ctx context.Context) ([]openboxes.ReasonCode, error)
	People(ctx context.Context) ([]openboxes.Person, error)
	Locations(ctx context.Context, name string) ([]openboxes.Location, error)
	Session(ctx context.Context) (openboxes.SessionInfo, error)
	ChooseLocation(ctx context.Context, locationID string) error
	Localizations(ctx context.Context, lang string) (map[string]string, error)
}

// State is the application-wide state shared by the step controllers:
// the upstream session, reason codes, users, locations and translations.
// Entries live in a versioned redis cache; Invalidate drops all of them.
type State struct {
	backend Backend
	cache   *Cache
	group   singleflight.Group
	logger  *slog.Logger
}

// New constructs State.
func New(backend Backend, cache *Cache, logger *slog.Logger) *State {
	if logger == nil {
		logger = slog.Default()
	}
	return &State{backend: backend, cache: cache, logger: logger}
}

// load resolves key through the cache with concurrent loads collapsed into one.
func (s *State) load(ctx context.Context, force bool, dest any, loader func(context.Context) (any, error), parts ...string) error {
	key, err := s.cache.BuildKey(ctx, parts...)
	if err != nil {
		return err
	}
	if force {
		if err := s.cache.Delete(ctx, key); err != nil {
			return err
		}
	}
	ch := s.group.DoChan(key, func() (any, error) {
		var raw any
		err := s.cache.FetchJSON(ctx, key, &raw, loader)
		return raw, err
	})
	select {
	case <-ctx.Done():
		return ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return res.Err
		}
		return remarshal(res.Val, dest)
	}
}

// ReasonCodes returns the reason codes, reloading them when force is set.
func (s *State) ReasonCodes(ctx context.Context, force bool) ([]openboxes.ReasonCode, error) {
	var out []openboxes.ReasonCode
	err := s.load(ctx, force, &out, func(ctx context.Context) (any, error) {
		return s.backend.ReasonCodes(ctx)
	}, "reason_codes")
	return out, err
}

// Users returns the people that may request or receive stock.
func (s *State) Users(ctx context.Context, force bool) ([]openboxes.Person, error) {
	var out []openboxes.Person
	err := s.load(ctx, force, &out, func(ctx context.Context) (any, error) {
		return s.backend.People(ctx)
	}, "users")
	return out, err
}

// Locations returns all locations.
func (s *State) Locations(ctx context.Context, force bool) ([]openboxes.Location, error) {
	var out []openboxes.Location
	err := s.load(ctx, force, &out, func(ctx context.Context) (any, error) {
		return s.backend.Locations(ctx, "")
	}, "locations")
	return out, err
}

// Location finds a location by id in the cached list.
func (s *State) Location(ctx context.Context, id string) (*openboxes.Location, error) {
	if id == "" {
		return nil, nil
	}
	locations, err := s.Locations(ctx, false)
	if err != nil {
		return nil, err
	}
	for i := range locations {
		if locations[i].ID == id {
			loc := locations[i]
			return &loc, nil
		}
	}
	return &openboxes.Location{ID: id}, nil
}

// User finds a person by id in the cached list.
func (s *State) User(ctx context.Context, id string) (*openboxes.Person, error) {
	if id == "" {
		return nil, nil
	}
	users, err := s.Users(ctx, false)
	if err != nil {
		return nil, err
	}
	for i := range users {
		if users[i].ID == id {
			p := users[i]
			return &p, nil
		}
	}
	return &openboxes.Person{ID: id}, nil
}

// Session returns the upstream session of userKey.
func (s *State) Session(ctx context.Context, userKey string) (openboxes.SessionInfo, error) {
	var out openboxes.SessionInfo
	err := s.load(ctx, false, &out, func(ctx context.Context) (any, error) {
		return s.backend.Session(ctx)
	}, "session", userKey)
	return out, err
}

// ChangeLocation switches the user's current location and drops the cached session.
func (s *State) ChangeLocation(ctx context.Context, userKey, locationID string) error {
	if err := s.backend.ChooseLocation(ctx, locationID); err != nil {
		return err
	}
	key, err := s.cache.BuildKey(ctx, "session", userKey)
	if err != nil {
		return err
	}
	return s.cache.Delete(ctx, key)
}

// Translations returns the message table of lang.
func (s *State) Translations(ctx context.Context, lang string) (map[string]string, error) {
	var out map[string]string
	err := s.load(ctx, false, &out, func(ctx context.Context) (any, error) {
		return s.backend.Localizations(ctx, lang)
	}, "translations", lang)
	return out, err
}

// Invalidate drops every cached entry.
func (s *State) Invalidate(ctx context.Context) error {
	if err := s.cache.Bump(ctx); err != nil {
		s.logger.Warn("bump appstate cache", slog.Any("error", err))
		return err
	}
	return nil
}

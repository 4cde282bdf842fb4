package settings

import (
	"context"
	"fmt"

	"github.com/kailas-cloud/meiligate/internal/domain"
	domset "github.com/kailas-cloud/meiligate/internal/domain/settings"
	"github.com/kailas-cloud/meiligate/internal/domain/task"
)

// Service reads and writes whole settings bundles.
type Service struct {
	acquire Acquirer
}

// New creates a settings service.
func New(acquire Acquirer) *Service {
	return &Service{acquire: acquire}
}

// Get returns the full bundle with unset collections as empty values.
func (s *Service) Get(ctx context.Context, uid string) (domset.Settings, error) {
	gw, release, err := s.acquire(ctx)
	if err != nil {
		return domset.Settings{}, err
	}
	defer release()

	bundle, err := gw.GetSettings(ctx, uid)
	if err != nil {
		return domset.Settings{}, fmt.Errorf("get settings: %w", err)
	}
	return bundle.Filled(), nil
}

// Update merges the provided fields into the current settings. Fields left
// nil keep their value.
func (s *Service) Update(ctx context.Context, uid string, bundle domset.Settings) (task.Handle, error) {
	if err := validate(uid, &bundle); err != nil {
		return task.Handle{}, err
	}
	if bundle.IsEmpty() {
		return task.Handle{}, domain.BadRequest("at least one setting is required")
	}

	gw, release, err := s.acquire(ctx)
	if err != nil {
		return task.Handle{}, err
	}
	defer release()

	h, err := gw.UpdateSettings(ctx, uid, bundle)
	if err != nil {
		return task.Handle{}, fmt.Errorf("update settings: %w", err)
	}
	return h, nil
}

// Replace resets every setting, then applies the provided fields, so that
// omitted fields end at their defaults. Handles are returned in submission
// order; an empty bundle yields only the reset.
func (s *Service) Replace(ctx context.Context, uid string, bundle domset.Settings) ([]task.Handle, error) {
	if err := validate(uid, &bundle); err != nil {
		return nil, err
	}

	gw, release, err := s.acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer release()

	reset, err := gw.ResetSettings(ctx, uid)
	if err != nil {
		return nil, fmt.Errorf("replace settings: reset: %w", err)
	}
	handles := []task.Handle{reset}
	if bundle.IsEmpty() {
		return handles, nil
	}

	update, err := gw.UpdateSettings(ctx, uid, bundle)
	if err != nil {
		return handles, fmt.Errorf("replace settings: update: %w", err)
	}
	return append(handles, update), nil
}

// Reset restores every setting to its default.
func (s *Service) Reset(ctx context.Context, uid string) (task.Handle, error) {
	gw, release, err := s.acquire(ctx)
	if err != nil {
		return task.Handle{}, err
	}
	defer release()

	h, err := gw.ResetSettings(ctx, uid)
	if err != nil {
		return task.Handle{}, fmt.Errorf("reset settings: %w", err)
	}
	return h, nil
}

func validate(uid string, bundle *domset.Settings) error {
	if uid == "" {
		return domain.BadRequest("uid is required")
	}
	if bundle.Faceting != nil {
		if err := bundle.Faceting.Validate(); err != nil {
			return err
		}
	}
	return nil
}

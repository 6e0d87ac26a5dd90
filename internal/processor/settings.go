package processor

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/MikeSquared-Agency/tune/internal/hermes"
	"github.com/MikeSquared-Agency/tune/internal/settings"
)

// Settings returns a user's settings, creating defaults on first sight.
func (p *Processor) Settings(ctx context.Context, userID string) (settings.Settings, error) {
	p.mu.RLock()
	st, ok := p.settings[userID]
	gen := p.generation[userID]
	p.mu.RUnlock()
	if ok {
		return st, nil
	}

	st, err := p.store.EnsureSettings(ctx, userID)
	if err != nil {
		return settings.Settings{}, fmt.Errorf("load settings: %w", err)
	}

	p.mu.Lock()
	if p.generation[userID] == gen {
		p.settings[userID] = st
	}
	p.mu.Unlock()
	return st, nil
}

// UpdateSettings validates and saves a user's settings. Other replicas are
// told to drop their cached copy when the change affects filtering.
func (p *Processor) UpdateSettings(ctx context.Context, updated settings.Settings) (settings.Settings, error) {
	if err := updated.Validate(); err != nil {
		return settings.Settings{}, fmt.Errorf("%w: %w", ErrInvalidRequest, err)
	}

	old, err := p.Settings(ctx, updated.UserID)
	if err != nil {
		return settings.Settings{}, err
	}
	if updated.SessionID == "" {
		updated.SessionID = old.SessionID
	}

	saved, err := p.store.SaveSettings(ctx, updated)
	if err != nil {
		return settings.Settings{}, fmt.Errorf("save settings: %w", err)
	}

	p.mu.Lock()
	p.generation[saved.UserID]++
	p.settings[saved.UserID] = saved
	p.mu.Unlock()

	filterChanged := settings.FilterChanged(old, saved)
	enabledChanged := settings.EnabledChanged(old, saved)
	p.metrics.ObserveSettingsUpdate(filterChanged, enabledChanged)

	p.logger.Info("settings updated",
		"user_id", saved.UserID,
		"threshold", saved.Threshold,
		"filter_changed", filterChanged,
		"enabled_changed", enabledChanged,
	)

	if filterChanged || enabledChanged {
		p.publish(hermes.SubjectSettingsChanged, hermes.SettingsChanged{
			UserID:         saved.UserID,
			FilterChanged:  filterChanged,
			EnabledChanged: enabledChanged,
			UpdatedAt:      saved.UpdatedAt,
		})
	}
	return saved, nil
}

// HandleSettingsChanged is the NATS handler for tune.settings.changed.
func (p *Processor) HandleSettingsChanged(subject string, data []byte) {
	var ev hermes.SettingsChanged
	if err := json.Unmarshal(data, &ev); err != nil {
		p.logger.Error("failed to parse settings event", "subject", subject, "error", err)
		return
	}
	if ev.UserID == "" {
		p.logger.Warn("settings event without user id", "subject", subject)
		return
	}

	p.mu.Lock()
	p.generation[ev.UserID]++
	delete(p.settings, ev.UserID)
	p.mu.Unlock()

	p.logger.Debug("settings cache invalidated", "user_id", ev.UserID)
}

package domain

import (
	"context"
	"errors"
)

type UpdateSettingsRequest struct {
	Settings
	// SyncRetroactive re-snapshots onboarded deals that sit in a cycle still open.
	SyncRetroactive bool
}

type UpdateSettingsResponse struct {
	Settings         Settings `json:"settings"`
	ResyncedCount    int      `json:"resynced_count"`
	ResyncDeltaCents int64    `json:"resync_delta_cents"`
}

type Service interface {
	Get(context.Context) (Settings, error)
	Update(context.Context, UpdateSettingsRequest) (UpdateSettingsResponse, error)
}

var (
	ErrInvalidRate = errors.New("invalid_rate")
)

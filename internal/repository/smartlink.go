package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/lib/pq"

	"github.com/mdmc/smartlinks/internal/model"
)

// Common errors for smart link lookups.
var (
	// ErrLinkNotFound means no smart link exists for the given identifier.
	ErrLinkNotFound = errors.New("smart link not found")

	// ErrServiceNotFound means the smart link exists but has no URL
	// registered for the requested service.
	ErrServiceNotFound = errors.New("service not found for smart link")
)

// GetDestination returns the destination URL registered for serviceName on
// the given smart link. This is the hot path for click tracking.
func (r *Repository) GetDestination(ctx context.Context, smartlinkID, serviceName string) (string, error) {
	query := `
		SELECT p.url
		FROM smartlink_platforms p
		WHERE p.smartlink_id = $1 AND p.service_name = $2
	`

	var destination string
	err := r.pool.QueryRow(ctx, query, smartlinkID, serviceName).Scan(&destination)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", ErrServiceNotFound
		}
		return "", fmt.Errorf("failed to get destination: %w", err)
	}

	return destination, nil
}

// GetSmartLink retrieves a smart link with its registered platforms.
func (r *Repository) GetSmartLink(ctx context.Context, id string) (*model.SmartLink, error) {
	query := `
		SELECT id, slug, title, artist, tags, created_at, updated_at
		FROM smartlinks
		WHERE id = $1
	`

	link := &model.SmartLink{}
	err := r.pool.QueryRow(ctx, query, id).Scan(
		&link.ID,
		&link.Slug,
		&link.Title,
		&link.Artist,
		pq.Array(&link.Tags),
		&link.CreatedAt,
		&link.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrLinkNotFound
		}
		return nil, fmt.Errorf("failed to get smart link: %w", err)
	}

	platforms, err := r.getPlatforms(ctx, id)
	if err != nil {
		return nil, err
	}
	link.Platforms = platforms

	return link, nil
}

// getPlatforms loads the platform rows for a smart link in display order.
func (r *Repository) getPlatforms(ctx context.Context, smartlinkID string) ([]model.Platform, error) {
	query := `
		SELECT service_name, display_name, url
		FROM smartlink_platforms
		WHERE smartlink_id = $1
		ORDER BY position, service_name
	`

	rows, err := r.pool.Query(ctx, query, smartlinkID)
	if err != nil {
		return nil, fmt.Errorf("failed to query platforms: %w", err)
	}
	defer rows.Close()

	var platforms []model.Platform
	for rows.Next() {
		var p model.Platform
		if err := rows.Scan(&p.ServiceName, &p.DisplayName, &p.URL); err != nil {
			return nil, fmt.Errorf("failed to scan platform: %w", err)
		}
		platforms = append(platforms, p)
	}

	return platforms, rows.Err()
}

package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/mdmc/smartlinks/internal/model"
)

// Record persists a click event and returns its tracking identifier.
// The tracking ID is a ULID, so click rows sort by insertion time.
func (r *Repository) Record(ctx context.Context, event *model.ClickEvent) (string, error) {
	trackingID := ulid.Make().String()

	query := `
		INSERT INTO clicks (
			id, smartlink_id, service_name, service_display_name,
			user_agent, session_id, visitor_hash,
			country, region, city, country_code, timezone, ip,
			clicked_at, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, NOW())
	`

	_, err := r.pool.Exec(ctx, query,
		trackingID,
		event.SmartlinkID,
		event.ServiceName,
		nullableString(event.ServiceDisplayName),
		nullableString(event.UserAgent),
		nullableString(event.SessionID),
		nullableString(event.VisitorHash),
		event.Geo.Country,
		event.Geo.Region,
		event.Geo.City,
		event.Geo.CountryCode,
		event.Geo.Timezone,
		event.Geo.IP,
		event.ClickedAt,
	)
	if err != nil {
		return "", fmt.Errorf("failed to record click: %w", err)
	}

	return trackingID, nil
}

// UpdateDailyStats recalculates and upserts daily aggregates for every
// (smartlink, day) pair touched by events. Recalculating from the clicks
// table keeps the operation idempotent under stream redelivery.
func (r *Repository) UpdateDailyStats(ctx context.Context, events []*model.ClickEvent) error {
	if len(events) == 0 {
		return nil
	}

	for _, key := range uniqueDailyKeys(events) {
		acc, err := r.recalculateDailyStat(ctx, key.smartlinkID, key.date)
		if err != nil {
			return fmt.Errorf("recalculate daily stat %s:%s: %w", key.smartlinkID, key.date.Format("2006-01-02"), err)
		}
		if err := r.upsertDailyStat(ctx, acc); err != nil {
			return fmt.Errorf("upsert daily stat %s:%s: %w", key.smartlinkID, key.date.Format("2006-01-02"), err)
		}
	}

	return nil
}

// dailyStatsAccumulator accumulates stats for a single smartlink/date pair.
type dailyStatsAccumulator struct {
	smartlinkID    string
	date           time.Time
	totalClicks    int64
	uniqueVisitors int64
	services       map[string]int64
	countries      map[string]int64
}

type dailyStatsKey struct {
	smartlinkID string
	date        time.Time
}

func uniqueDailyKeys(events []*model.ClickEvent) []dailyStatsKey {
	seen := make(map[string]dailyStatsKey)
	for _, event := range events {
		day := event.ClickedAt.UTC().Truncate(24 * time.Hour)
		key := fmt.Sprintf("%s:%s", event.SmartlinkID, day.Format("2006-01-02"))
		seen[key] = dailyStatsKey{smartlinkID: event.SmartlinkID, date: day}
	}

	keys := make([]dailyStatsKey, 0, len(seen))
	for _, key := range seen {
		keys = append(keys, key)
	}
	return keys
}

func (r *Repository) recalculateDailyStat(ctx context.Context, smartlinkID string, date time.Time) (*dailyStatsAccumulator, error) {
	start := date.UTC().Truncate(24 * time.Hour)
	end := start.Add(24 * time.Hour)

	query := `
		SELECT service_name, country_code, COALESCE(visitor_hash, '')
		FROM clicks
		WHERE smartlink_id = $1 AND clicked_at >= $2 AND clicked_at < $3
	`

	rows, err := r.pool.Query(ctx, query, smartlinkID, start, end)
	if err != nil {
		return nil, fmt.Errorf("query clicks: %w", err)
	}
	defer rows.Close()

	acc := &dailyStatsAccumulator{
		smartlinkID: smartlinkID,
		date:        start,
		services:    make(map[string]int64),
		countries:   make(map[string]int64),
	}
	visitorSeen := make(map[string]bool)

	for rows.Next() {
		var service, countryCode, visitorHash string
		if err := rows.Scan(&service, &countryCode, &visitorHash); err != nil {
			return nil, fmt.Errorf("scan click: %w", err)
		}

		acc.totalClicks++
		acc.services[service]++
		if countryCode != "" && countryCode != model.UnknownCountryCode {
			acc.countries[countryCode]++
		}
		if visitorHash != "" && !visitorSeen[visitorHash] {
			visitorSeen[visitorHash] = true
			acc.uniqueVisitors++
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate clicks: %w", err)
	}

	return acc, nil
}

// upsertDailyStat inserts or updates a smartlink_daily_stats row.
func (r *Repository) upsertDailyStat(ctx context.Context, acc *dailyStatsAccumulator) error {
	serviceJSON, _ := json.Marshal(acc.services)
	countryJSON, _ := json.Marshal(acc.countries)
	id := fmt.Sprintf("%s:%s", acc.smartlinkID, acc.date.Format("2006-01-02"))

	query := `
		INSERT INTO smartlink_daily_stats (
			id, smartlink_id, date, total_clicks, unique_visitors,
			service_breakdown, country_breakdown, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, NOW(), NOW())
		ON CONFLICT (smartlink_id, date) DO UPDATE SET
			total_clicks = EXCLUDED.total_clicks,
			unique_visitors = EXCLUDED.unique_visitors,
			service_breakdown = EXCLUDED.service_breakdown,
			country_breakdown = EXCLUDED.country_breakdown,
			updated_at = NOW()
	`

	_, err := r.pool.Exec(ctx, query,
		id,
		acc.smartlinkID,
		acc.date,
		acc.totalClicks,
		acc.uniqueVisitors,
		serviceJSON,
		countryJSON,
	)

	return err
}

// nullableString returns nil for empty strings.
func nullableString(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

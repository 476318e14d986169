package db

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/jackc/pgx/v5"

	"world-monitor/internal/models"
)

const eventColumns = `id, external_id, source, source_url, title, summary, body_snippet,
	category, tags, country, region, lat, lon, geohash, severity, confidence,
	occurred_at, started_at, ingested_at, updated_at, cluster_id, raw`

// UpsertEvents writes a batch of normalized events. Rows with a known id are
// refreshed in place except for ingested_at, which keeps the first-seen time.
func (d *DB) UpsertEvents(ctx context.Context, events []models.Event) (int, error) {
	if len(events) == 0 {
		return 0, nil
	}

	query := `
	INSERT INTO events (
		id, external_id, source, source_url, title, summary, body_snippet,
		category, tags, country, region, lat, lon, geohash, severity, confidence,
		occurred_at, started_at, ingested_at, updated_at, cluster_id, raw
	) VALUES (
		$1, $2, $3, $4, $5, $6, $7,
		$8, $9::jsonb, $10, $11, $12, $13, $14, $15, $16,
		$17, $18, $19, $20, $21, $22::jsonb
	)
	ON CONFLICT (id) DO UPDATE SET
		external_id = excluded.external_id,
		source = excluded.source,
		source_url = excluded.source_url,
		title = excluded.title,
		summary = excluded.summary,
		body_snippet = excluded.body_snippet,
		category = excluded.category,
		tags = excluded.tags,
		country = excluded.country,
		region = excluded.region,
		lat = excluded.lat,
		lon = excluded.lon,
		geohash = excluded.geohash,
		severity = excluded.severity,
		confidence = excluded.confidence,
		occurred_at = excluded.occurred_at,
		started_at = excluded.started_at,
		updated_at = excluded.updated_at,
		cluster_id = excluded.cluster_id,
		raw = excluded.raw`

	for _, event := range events {
		tags, err := json.Marshal(event.Tags)
		if err != nil {
			return 0, fmt.Errorf("failed to encode tags: %w", err)
		}
		raw := event.Raw
		if len(raw) == 0 {
			raw = json.RawMessage(`{}`)
		}
		_, err = d.Pool.Exec(ctx, query,
			event.ID,
			event.ExternalID,
			event.Source,
			event.SourceURL,
			event.Title,
			event.Summary,
			event.BodySnippet,
			event.Category,
			string(tags),
			event.Country,
			event.Region,
			event.Lat,
			event.Lon,
			event.Geohash,
			event.Severity,
			event.Confidence,
			event.OccurredAt,
			event.StartedAt,
			event.IngestedAt,
			event.UpdatedAt,
			event.ClusterID,
			string(raw),
		)
		if err != nil {
			return 0, fmt.Errorf("failed to upsert event %s: %w", event.ID, err)
		}
	}
	return len(events), nil
}

// ListEvents returns events matching the filter, most recent first.
func (d *DB) ListEvents(ctx context.Context, filter models.EventFilter) ([]models.Event, error) {
	sinceHours := filter.SinceHours
	if sinceHours < 1 {
		sinceHours = 24 * 7
	}
	limit := filter.Limit
	if limit < 1 {
		limit = 120
	}
	if limit > 500 {
		limit = 500
	}

	query := "SELECT " + eventColumns + " FROM events WHERE occurred_at >= $1"
	args := []interface{}{time.Now().UTC().Add(-time.Duration(sinceHours) * time.Hour)}

	if filter.Category != "" {
		args = append(args, filter.Category)
		query += fmt.Sprintf(" AND category = $%d", len(args))
	}
	if filter.Region != "" {
		args = append(args, filter.Region)
		query += fmt.Sprintf(" AND region = $%d", len(args))
	}
	if filter.Country != "" {
		args = append(args, filter.Country)
		query += fmt.Sprintf(" AND country = $%d", len(args))
	}
	if filter.Search != "" {
		args = append(args, "%"+filter.Search+"%")
		query += fmt.Sprintf(" AND (title ILIKE $%d OR summary ILIKE $%d OR tags::text ILIKE $%d)", len(args), len(args), len(args))
	}

	args = append(args, limit)
	query += fmt.Sprintf(" ORDER BY occurred_at DESC LIMIT $%d", len(args))

	rows, err := d.Pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list events: %w", err)
	}
	defer rows.Close()
	return scanEvents(rows)
}

// GetEvent returns one event by id, or ErrNotFound.
func (d *DB) GetEvent(ctx context.Context, id string) (models.Event, error) {
	row := d.Pool.QueryRow(ctx, "SELECT "+eventColumns+" FROM events WHERE id = $1", id)
	event, err := scanEvent(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return models.Event{}, ErrNotFound
	}
	if err != nil {
		return models.Event{}, fmt.Errorf("failed to get event: %w", err)
	}
	return event, nil
}

// ListClusterEvents returns the members of a cluster, most recent first,
// skipping excludeID so detail pages do not list the event itself.
func (d *DB) ListClusterEvents(ctx context.Context, clusterID, excludeID string, limit int) ([]models.Event, error) {
	if limit < 1 {
		limit = 12
	}
	if limit > 100 {
		limit = 100
	}
	rows, err := d.Pool.Query(ctx,
		"SELECT "+eventColumns+` FROM events
		WHERE cluster_id = $1 AND id <> $2
		ORDER BY occurred_at DESC
		LIMIT $3`,
		clusterID, excludeID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list cluster events: %w", err)
	}
	defer rows.Close()
	return scanEvents(rows)
}

// Hotspots aggregates events per country/region over a trailing window.
func (d *DB) Hotspots(ctx context.Context, sinceHours, limit int) ([]models.Hotspot, error) {
	if sinceHours < 1 {
		sinceHours = 24
	}
	if limit < 1 {
		limit = 12
	}
	if limit > 50 {
		limit = 50
	}
	rows, err := d.Pool.Query(ctx, `
		SELECT country, region, COUNT(*), AVG(severity), MAX(occurred_at)
		FROM events
		WHERE occurred_at >= $1
		GROUP BY country, region
		ORDER BY COUNT(*) DESC, AVG(severity) DESC
		LIMIT $2`,
		time.Now().UTC().Add(-time.Duration(sinceHours)*time.Hour), limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query hotspots: %w", err)
	}
	defer rows.Close()

	var hotspots []models.Hotspot
	for rows.Next() {
		var h models.Hotspot
		if err := rows.Scan(&h.Country, &h.Region, &h.EventCount, &h.AvgSeverity, &h.LatestAt); err != nil {
			return nil, fmt.Errorf("failed to scan hotspot: %w", err)
		}
		hotspots = append(hotspots, h)
	}
	return hotspots, rows.Err()
}

// Timeline buckets events into fixed intervals. Bucket width is clamped to
// 15 minutes..6 hours.
func (d *DB) Timeline(ctx context.Context, sinceHours, bucketMinutes int) ([]models.TimelineBucket, error) {
	if sinceHours < 1 {
		sinceHours = 24 * 7
	}
	if bucketMinutes < 15 {
		bucketMinutes = 15
	}
	if bucketMinutes > 6*60 {
		bucketMinutes = 6 * 60
	}
	rows, err := d.Pool.Query(ctx, `
		SELECT
			to_timestamp(floor(extract(epoch FROM occurred_at) / ($2 * 60)) * ($2 * 60)) AS bucket_time,
			COUNT(*),
			AVG(severity)
		FROM events
		WHERE occurred_at >= $1
		GROUP BY bucket_time
		ORDER BY bucket_time ASC`,
		time.Now().UTC().Add(-time.Duration(sinceHours)*time.Hour), bucketMinutes)
	if err != nil {
		return nil, fmt.Errorf("failed to query timeline: %w", err)
	}
	defer rows.Close()

	var buckets []models.TimelineBucket
	for rows.Next() {
		var b models.TimelineBucket
		if err := rows.Scan(&b.BucketTime, &b.EventCount, &b.AvgSeverity); err != nil {
			return nil, fmt.Errorf("failed to scan timeline bucket: %w", err)
		}
		b.BucketTime = b.BucketTime.UTC()
		buckets = append(buckets, b)
	}
	return buckets, rows.Err()
}

// Pulse compares recent per-country activity against the trailing baseline.
// Countries with no recent events are dropped; the result is sorted by delta
// ratio and capped at 12 entries.
func (d *DB) Pulse(ctx context.Context, windowHours, baselineHours int) ([]models.PulseEntry, error) {
	if windowHours < 1 {
		windowHours = 6
	}
	if baselineHours < windowHours+1 {
		baselineHours = windowHours + 1
	}
	now := time.Now().UTC()
	windowCutoff := now.Add(-time.Duration(windowHours) * time.Hour)
	baselineCutoff := now.Add(-time.Duration(baselineHours) * time.Hour)

	recent, err := d.countByCountry(ctx,
		"SELECT country, COUNT(*) FROM events WHERE occurred_at >= $1 GROUP BY country",
		windowCutoff)
	if err != nil {
		return nil, err
	}
	baseline, err := d.countByCountry(ctx,
		"SELECT country, COUNT(*) FROM events WHERE occurred_at >= $1 AND occurred_at < $2 GROUP BY country",
		baselineCutoff, windowCutoff)
	if err != nil {
		return nil, err
	}

	var pulse []models.PulseEntry
	for country, recentCount := range recent {
		if recentCount <= 0 {
			continue
		}
		baselineCount := baseline[country]
		var ratio float64
		if baselineCount <= 0 {
			ratio = float64(recentCount)
		} else {
			ratio = float64(recentCount-baselineCount) / float64(baselineCount)
		}
		pulse = append(pulse, models.PulseEntry{
			Country:       country,
			RecentCount:   recentCount,
			BaselineCount: baselineCount,
			DeltaRatio:    ratio,
		})
	}
	sort.Slice(pulse, func(i, j int) bool {
		if pulse[i].DeltaRatio != pulse[j].DeltaRatio {
			return pulse[i].DeltaRatio > pulse[j].DeltaRatio
		}
		if pulse[i].RecentCount != pulse[j].RecentCount {
			return pulse[i].RecentCount > pulse[j].RecentCount
		}
		return pulse[i].Country < pulse[j].Country
	})
	if len(pulse) > 12 {
		pulse = pulse[:12]
	}
	return pulse, nil
}

func (d *DB) countByCountry(ctx context.Context, query string, args ...interface{}) (map[string]int, error) {
	rows, err := d.Pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to count by country: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var country string
		var count int
		if err := rows.Scan(&country, &count); err != nil {
			return nil, fmt.Errorf("failed to scan country count: %w", err)
		}
		counts[country] = count
	}
	return counts, rows.Err()
}

// Stats summarizes the store for the status endpoint.
func (d *DB) Stats(ctx context.Context) (models.StoreStats, error) {
	var stats models.StoreStats
	cutoff := time.Now().UTC().Add(-24 * time.Hour)
	err := d.Pool.QueryRow(ctx, `
		SELECT
			(SELECT COUNT(*) FROM events),
			(SELECT COUNT(*) FROM events WHERE occurred_at >= $1),
			(SELECT COUNT(*) FROM alert_instances WHERE status = 'new'),
			(SELECT MAX(occurred_at) FROM events)`,
		cutoff).Scan(&stats.TotalEvents, &stats.Events24h, &stats.OpenAlerts, &stats.LatestEventAt)
	if err != nil {
		return models.StoreStats{}, fmt.Errorf("failed to query stats: %w", err)
	}
	return stats, nil
}

func scanEvents(rows pgx.Rows) ([]models.Event, error) {
	var events []models.Event
	for rows.Next() {
		event, err := scanEvent(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan event: %w", err)
		}
		events = append(events, event)
	}
	return events, rows.Err()
}

func scanEvent(row pgx.Row) (models.Event, error) {
	var event models.Event
	var tags []byte
	var raw []byte
	err := row.Scan(
		&event.ID,
		&event.ExternalID,
		&event.Source,
		&event.SourceURL,
		&event.Title,
		&event.Summary,
		&event.BodySnippet,
		&event.Category,
		&tags,
		&event.Country,
		&event.Region,
		&event.Lat,
		&event.Lon,
		&event.Geohash,
		&event.Severity,
		&event.Confidence,
		&event.OccurredAt,
		&event.StartedAt,
		&event.IngestedAt,
		&event.UpdatedAt,
		&event.ClusterID,
		&raw,
	)
	if err != nil {
		return models.Event{}, err
	}
	if err := json.Unmarshal(tags, &event.Tags); err != nil {
		event.Tags = []string{}
	}
	event.Raw = json.RawMessage(raw)
	return event, nil
}

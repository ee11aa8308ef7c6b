package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lysyi3m/ad-comb/app/ads"
)

const adColumns = `id, owner_id, type, title, content, image_url, image_key, plan, section,
	price, status, target_url, call_to_action, duration_days, submitted_at,
	approved_at, rejected_at, rejection_reason, activated_at, expires_at, paused_at,
	impressions, clicks, created_at, updated_at`

// AdRepository handles database operations for ads
type AdRepository struct {
	db  *DB
	now func() time.Time
}

// NewAdRepository creates a new ad repository
func NewAdRepository(db *DB) *AdRepository {
	return &AdRepository{db: db, now: time.Now}
}

// Create stores a new ad and returns it with its generated id
func (r *AdRepository) Create(ctx context.Context, ad ads.Ad) (*ads.Ad, error) {
	now := r.now().UTC()
	if ad.ID == "" {
		ad.ID = uuid.NewString()
	}
	if ad.Status == "" {
		ad.Status = ads.StatusPending
	}
	if ad.SubmittedAt.IsZero() {
		ad.SubmittedAt = now
	}
	if ad.CreatedAt.IsZero() {
		ad.CreatedAt = now
	}
	ad.UpdatedAt = now

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO ads (`+adColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, ad.ID, ad.OwnerID, string(ad.Type), ad.Title, ad.Content, ad.ImageURL, ad.ImageKey,
		string(ad.Plan), ad.Section, ad.Price, string(ad.Status), ad.TargetURL, ad.CallToAction,
		ad.DurationDays, formatTime(ad.SubmittedAt),
		formatNullTime(ad.ApprovedAt), formatNullTime(ad.RejectedAt), ad.RejectionReason,
		formatNullTime(ad.ActivatedAt), formatNullTime(ad.ExpiresAt), formatNullTime(ad.PausedAt),
		ad.Impressions, ad.Clicks, formatTime(ad.CreatedAt), formatTime(ad.UpdatedAt))
	if err != nil {
		return nil, fmt.Errorf("failed to insert ad: %w", err)
	}

	return r.Get(ctx, ad.ID)
}

// Get returns the ad with id or ads.ErrAdNotFound
func (r *AdRepository) Get(ctx context.Context, id string) (*ads.Ad, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+adColumns+` FROM ads WHERE id = ?`, id)
	ad, err := scanAd(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ads.ErrAdNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get ad: %w", err)
	}
	return ad, nil
}

// FindEligible returns every ad matching the filter, oldest first
func (r *AdRepository) FindEligible(ctx context.Context, filter ads.Filter) ([]ads.Ad, error) {
	where := []string{"status = ?", "type = ?"}
	args := []interface{}{string(filter.Status), string(filter.Type)}

	if len(filter.Plans) > 0 {
		placeholders := make([]string, len(filter.Plans))
		for i, p := range filter.Plans {
			placeholders[i] = "?"
			args = append(args, string(p))
		}
		where = append(where, "plan IN ("+strings.Join(placeholders, ", ")+")")
	}
	if filter.Section != "" {
		where = append(where, "section = ?")
		args = append(args, filter.Section)
	}

	return r.query(ctx, `SELECT `+adColumns+` FROM ads WHERE `+strings.Join(where, " AND ")+` ORDER BY created_at, id`, args...)
}

// List returns one page of ads matching q and the total match count
func (r *AdRepository) List(ctx context.Context, q ads.ListQuery) ([]ads.Ad, int, error) {
	var where []string
	var args []interface{}

	if q.Status != "" {
		where = append(where, "status = ?")
		args = append(args, string(q.Status))
	}
	if q.OwnerID != "" {
		where = append(where, "owner_id = ?")
		args = append(args, q.OwnerID)
	}
	if s := strings.TrimSpace(q.Search); s != "" {
		where = append(where, "(title LIKE ? OR content LIKE ?)")
		pattern := "%" + s + "%"
		args = append(args, pattern, pattern)
	}

	clause := ""
	if len(where) > 0 {
		clause = " WHERE " + strings.Join(where, " AND ")
	}

	var total int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM ads`+clause, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count ads: %w", err)
	}

	page, limit := q.Page, q.Limit
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 10
	}

	items, err := r.query(ctx, `SELECT `+adColumns+` FROM ads`+clause+` ORDER BY created_at DESC, id LIMIT ? OFFSET ?`,
		append(args, limit, (page-1)*limit)...)
	if err != nil {
		return nil, 0, err
	}
	return items, total, nil
}

// Transition applies t only while the ad is in one of t.From. The check and
// the write happen in one statement so concurrent moves cannot both win.
func (r *AdRepository) Transition(ctx context.Context, id string, t ads.Transition) (*ads.Ad, error) {
	at := t.At
	if at.IsZero() {
		at = r.now()
	}
	stamp := formatTime(at)

	set := []string{"status = ?", "updated_at = ?"}
	args := []interface{}{string(t.To), stamp}

	switch t.To {
	case ads.StatusApproved:
		set = append(set, "approved_at = ?")
		args = append(args, stamp)
	case ads.StatusRejected:
		set = append(set, "rejected_at = ?", "rejection_reason = ?")
		args = append(args, stamp, t.Reason)
	case ads.StatusActive:
		set = append(set, "paused_at = NULL",
			"activated_at = COALESCE(?, activated_at)", "expires_at = COALESCE(?, expires_at)")
		args = append(args, formatNullTime(t.ActivatedAt), formatNullTime(t.ExpiresAt))
	case ads.StatusPaused:
		set = append(set, "paused_at = ?")
		args = append(args, stamp)
	}

	placeholders := make([]string, len(t.From))
	args = append(args, id)
	for i, s := range t.From {
		placeholders[i] = "?"
		args = append(args, string(s))
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	query := `UPDATE ads SET ` + strings.Join(set, ", ") + ` WHERE id = ?`
	if len(placeholders) > 0 {
		query += ` AND status IN (` + strings.Join(placeholders, ", ") + `)`
	}
	res, err := tx.ExecContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to update ad status: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("failed to get affected rows: %w", err)
	}

	if affected == 0 {
		var current string
		err := tx.QueryRowContext(ctx, `SELECT status FROM ads WHERE id = ?`, id).Scan(&current)
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", ads.ErrAdNotFound, id)
		}
		if err != nil {
			return nil, fmt.Errorf("failed to get ad status: %w", err)
		}
		return nil, fmt.Errorf("%w: %s to %s", ads.ErrInvalidTransition, current, t.To)
	}

	ad, err := scanAd(tx.QueryRowContext(ctx, `SELECT `+adColumns+` FROM ads WHERE id = ?`, id))
	if err != nil {
		return nil, fmt.Errorf("failed to reload ad: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return ad, nil
}

// Delete removes the ad, reporting whether a row existed
func (r *AdRepository) Delete(ctx context.Context, id string) (bool, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM ads WHERE id = ?`, id)
	if err != nil {
		return false, fmt.Errorf("failed to delete ad: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get affected rows: %w", err)
	}
	return affected > 0, nil
}

// Increment bumps an ad counter by one
func (r *AdRepository) Increment(ctx context.Context, id string, counter ads.Counter) (*ads.Ad, error) {
	var column string
	switch counter {
	case ads.CounterImpressions:
		column = "impressions"
	case ads.CounterClicks:
		column = "clicks"
	default:
		return nil, fmt.Errorf("unknown counter %q", counter)
	}

	res, err := r.db.ExecContext(ctx, `UPDATE ads SET `+column+` = `+column+` + 1 WHERE id = ?`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to increment %s: %w", column, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("failed to get affected rows: %w", err)
	}
	if affected == 0 {
		return nil, fmt.Errorf("%w: %s", ads.ErrAdNotFound, id)
	}
	return r.Get(ctx, id)
}

// FindExpiring returns active or paused ads whose run ended at or before now
func (r *AdRepository) FindExpiring(ctx context.Context, now time.Time) ([]ads.Ad, error) {
	return r.query(ctx, `
		SELECT `+adColumns+` FROM ads
		WHERE status IN (?, ?) AND expires_at IS NOT NULL AND expires_at <= ?
		ORDER BY expires_at, id
	`, string(ads.StatusActive), string(ads.StatusPaused), formatTime(now))
}

// FindPurgeable returns expired ads whose run ended before cutoff
func (r *AdRepository) FindPurgeable(ctx context.Context, cutoff time.Time) ([]ads.Ad, error) {
	return r.query(ctx, `
		SELECT `+adColumns+` FROM ads
		WHERE status = ? AND expires_at IS NOT NULL AND expires_at < ?
		ORDER BY expires_at, id
	`, string(ads.StatusExpired), formatTime(cutoff))
}

// CountByStatus returns the number of ads in every status that has any
func (r *AdRepository) CountByStatus(ctx context.Context) (map[ads.Status]int, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT status, COUNT(*) FROM ads GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("failed to count ads by status: %w", err)
	}
	defer rows.Close()

	counts := make(map[ads.Status]int)
	for rows.Next() {
		var status string
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return nil, fmt.Errorf("failed to scan status count: %w", err)
		}
		counts[ads.Status(status)] = n
	}
	return counts, rows.Err()
}

func (r *AdRepository) query(ctx context.Context, query string, args ...interface{}) ([]ads.Ad, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query ads: %w", err)
	}
	defer rows.Close()

	var items []ads.Ad
	for rows.Next() {
		ad, err := scanAd(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan ad: %w", err)
		}
		items = append(items, *ad)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate ads: %w", err)
	}
	return items, nil
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanAd(s scanner) (*ads.Ad, error) {
	var ad ads.Ad
	var adType, plan, status string
	var submittedAt, createdAt, updatedAt string
	var approvedAt, rejectedAt, activatedAt, expiresAt, pausedAt sql.NullString

	err := s.Scan(
		&ad.ID, &ad.OwnerID, &adType, &ad.Title, &ad.Content, &ad.ImageURL, &ad.ImageKey,
		&plan, &ad.Section, &ad.Price, &status, &ad.TargetURL, &ad.CallToAction,
		&ad.DurationDays, &submittedAt, &approvedAt, &rejectedAt, &ad.RejectionReason,
		&activatedAt, &expiresAt, &pausedAt, &ad.Impressions, &ad.Clicks, &createdAt, &updatedAt,
	)
	if err != nil {
		return nil, err
	}

	ad.Type = ads.Type(adType)
	ad.Plan = ads.Plan(plan)
	ad.Status = ads.Status(status)

	if ad.SubmittedAt, err = parseTime(submittedAt); err != nil {
		return nil, err
	}
	if ad.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	if ad.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, err
	}
	for _, f := range []struct {
		src sql.NullString
		dst **time.Time
	}{
		{approvedAt, &ad.ApprovedAt},
		{rejectedAt, &ad.RejectedAt},
		{activatedAt, &ad.ActivatedAt},
		{expiresAt, &ad.ExpiresAt},
		{pausedAt, &ad.PausedAt},
	} {
		if *f.dst, err = parseNullTime(f.src); err != nil {
			return nil, err
		}
	}

	return &ad, nil
}

package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"focusrooms/backend/internal/model"
)

type ProfileRepository struct {
	db *sql.DB
}

func NewProfileRepository(db *sql.DB) *ProfileRepository {
	return &ProfileRepository{db: db}
}

func (r *ProfileRepository) GetByID(ctx context.Context, id string) (*model.Profile, error) {
	row := r.db.QueryRowContext(ctx, `SELECT id, full_name, created_at FROM profiles WHERE id = ?`, id)
	return scanProfile(row)
}

// ListByIDs returns the profiles that exist among ids, keyed by id.
func (r *ProfileRepository) ListByIDs(ctx context.Context, ids []string) (map[string]*model.Profile, error) {
	profiles := make(map[string]*model.Profile, len(ids))
	if len(ids) == 0 {
		return profiles, nil
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(ids)), ",")
	args := make([]interface{}, len(ids))
	for i, id := range ids {
		args[i] = id
	}

	rows, err := r.db.QueryContext(
		ctx,
		`SELECT id, full_name, created_at FROM profiles WHERE id IN (`+placeholders+`)`,
		args...,
	)
	if err != nil {
		return nil, fmt.Errorf("list profiles: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		profile, scanErr := scanProfile(rows)
		if scanErr != nil {
			return nil, scanErr
		}
		profiles[profile.ID] = profile
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate profiles: %w", err)
	}
	return profiles, nil
}

func scanProfile(s scanner) (*model.Profile, error) {
	var profile model.Profile
	var fullName sql.NullString
	var createdAt string
	if err := s.Scan(&profile.ID, &fullName, &createdAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("scan profile: %w", err)
	}
	profile.FullName = nullableString(fullName)
	parsed, err := parseTime(createdAt)
	if err != nil {
		return nil, fmt.Errorf("parse profile created_at: %w", err)
	}
	profile.CreatedAt = parsed
	return &profile, nil
}

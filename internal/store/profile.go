package store

import (
	"database/sql"
	"errors"
	"time"

	"github.com/ayusman/touchsurface/internal/config"
)

// ErrNotFound is returned when a requested resource does not exist.
var ErrNotFound = errors.New("not found")

// Profile is a named tuning of the threshold, detector filters and match
// distance, e.g. one per table surface or lighting setup.
type Profile struct {
	ID              string
	Name            string
	Threshold       float64
	MinContourArea  float64
	MinEllipseArea  float64
	MaxEllipseArea  float64
	MaxAxisRatio    float64
	MatchDistanceSq int
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// ProfileFromConfig captures the tunable values of cfg under name.
func ProfileFromConfig(id, name string, cfg config.Config) *Profile {
	return &Profile{
		ID:              id,
		Name:            name,
		Threshold:       float64(cfg.Preprocess.EffectiveThreshold()),
		MinContourArea:  cfg.Detector.MinContourArea,
		MinEllipseArea:  cfg.Detector.MinEllipseArea,
		MaxEllipseArea:  cfg.Detector.MaxEllipseArea,
		MaxAxisRatio:    cfg.Detector.MaxAxisRatio,
		MatchDistanceSq: cfg.Tracker.MatchDistanceSq,
	}
}

// ApplyTo overwrites the tunable values of cfg with the profile's.
func (p *Profile) ApplyTo(cfg *config.Config) {
	threshold := float32(p.Threshold)
	cfg.Preprocess.Threshold = &threshold
	cfg.Detector.MinContourArea = p.MinContourArea
	cfg.Detector.MinEllipseArea = p.MinEllipseArea
	cfg.Detector.MaxEllipseArea = p.MaxEllipseArea
	cfg.Detector.MaxAxisRatio = p.MaxAxisRatio
	cfg.Tracker.MatchDistanceSq = p.MatchDistanceSq
}

// ProfileRepository provides CRUD operations for profiles.
type ProfileRepository struct {
	db *sql.DB
}

// Profiles returns the profile repository for this store.
func (s *Store) Profiles() *ProfileRepository {
	return &ProfileRepository{db: s.db}
}

const profileColumns = `id, name, threshold, min_contour_area, min_ellipse_area,
	max_ellipse_area, max_axis_ratio, match_distance_sq, created_at, updated_at`

type scanner interface {
	Scan(dest ...any) error
}

func scanProfile(row scanner) (*Profile, error) {
	p := &Profile{}
	err := row.Scan(&p.ID, &p.Name, &p.Threshold, &p.MinContourArea, &p.MinEllipseArea,
		&p.MaxEllipseArea, &p.MaxAxisRatio, &p.MatchDistanceSq, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return p, nil
}

// Create inserts a new profile into the database.
func (r *ProfileRepository) Create(p *Profile) error {
	now := time.Now()
	p.CreatedAt = now
	p.UpdatedAt = now

	_, err := r.db.Exec(
		`INSERT INTO profiles (`+profileColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		p.ID, p.Name, p.Threshold, p.MinContourArea, p.MinEllipseArea,
		p.MaxEllipseArea, p.MaxAxisRatio, p.MatchDistanceSq, p.CreatedAt, p.UpdatedAt,
	)
	return err
}

// GetByID retrieves a profile by its ID.
func (r *ProfileRepository) GetByID(id string) (*Profile, error) {
	return scanProfile(r.db.QueryRow(
		`SELECT `+profileColumns+` FROM profiles WHERE id = ?`, id,
	))
}

// GetByName retrieves a profile by its name.
func (r *ProfileRepository) GetByName(name string) (*Profile, error) {
	return scanProfile(r.db.QueryRow(
		`SELECT `+profileColumns+` FROM profiles WHERE name = ?`, name,
	))
}

// List retrieves all profiles ordered by name.
func (r *ProfileRepository) List() ([]*Profile, error) {
	rows, err := r.db.Query(`SELECT ` + profileColumns + ` FROM profiles ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var profiles []*Profile
	for rows.Next() {
		p, err := scanProfile(rows)
		if err != nil {
			return nil, err
		}
		profiles = append(profiles, p)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return profiles, nil
}

// Update updates an existing profile in the database.
func (r *ProfileRepository) Update(p *Profile) error {
	p.UpdatedAt = time.Now()

	result, err := r.db.Exec(
		`UPDATE profiles SET name = ?, threshold = ?, min_contour_area = ?, min_ellipse_area = ?,
		 max_ellipse_area = ?, max_axis_ratio = ?, match_distance_sq = ?, updated_at = ?
		 WHERE id = ?`,
		p.Name, p.Threshold, p.MinContourArea, p.MinEllipseArea,
		p.MaxEllipseArea, p.MaxAxisRatio, p.MatchDistanceSq, p.UpdatedAt, p.ID,
	)
	if err != nil {
		return err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}

	if rowsAffected == 0 {
		return ErrNotFound
	}

	return nil
}

// Delete removes a profile from the database by its ID.
func (r *ProfileRepository) Delete(id string) error {
	result, err := r.db.Exec(`DELETE FROM profiles WHERE id = ?`, id)
	if err != nil {
		return err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}

	if rowsAffected == 0 {
		return ErrNotFound
	}

	return nil
}

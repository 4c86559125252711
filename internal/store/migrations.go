package store

// runMigrations executes all database migrations.
func (s *Store) runMigrations() error {
	migrations := []string{
		// Profiles table - named detector and tracker tunings
		`CREATE TABLE IF NOT EXISTS profiles (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL UNIQUE,
			threshold REAL NOT NULL DEFAULT 15,
			min_contour_area REAL NOT NULL DEFAULT 30,
			min_ellipse_area REAL NOT NULL DEFAULT 5,
			max_ellipse_area REAL NOT NULL DEFAULT 150,
			max_axis_ratio REAL NOT NULL DEFAULT 2.5,
			match_distance_sq INTEGER NOT NULL DEFAULT 100,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			updated_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			CHECK(min_ellipse_area <= max_ellipse_area),
			CHECK(match_distance_sq > 0)
		)`,

		// Settings table - stores application settings as key-value pairs
		`CREATE TABLE IF NOT EXISTS settings (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL
		)`,

		`CREATE INDEX IF NOT EXISTS idx_profiles_updated_at ON profiles(updated_at)`,
	}

	for _, migration := range migrations {
		if _, err := s.db.Exec(migration); err != nil {
			return err
		}
	}

	return nil
}

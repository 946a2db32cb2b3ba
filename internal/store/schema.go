package store

// schemaSQL defines the observation table. ppt is "globals", a program
// point name, or "usertype.<Name>" for aggregate members, matching the
// section names of .disambig files.
const schemaSQL = `
CREATE TABLE IF NOT EXISTS observations (
    ppt TEXT NOT NULL,
    variable TEXT NOT NULL,
    observed INTEGER NOT NULL DEFAULT 1,
    multiple_elts INTEGER NOT NULL DEFAULT 0,
    updated_at TEXT NOT NULL,
    PRIMARY KEY (ppt, variable)
);

CREATE INDEX IF NOT EXISTS idx_observations_ppt ON observations(ppt);
`

// initSchema creates the tables and indexes if they don't exist.
func (s *Store) initSchema() error {
	_, err := s.db.Exec(schemaSQL)
	return err
}

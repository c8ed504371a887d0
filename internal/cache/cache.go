// Package cache persists precomputed coverage sets in a sqlite database so
// a process can seed its coverage index without recomputing the standard
// size classes on every start.
package cache

import (
	"database/sql"
	"encoding/json"
	"fmt"

	_ "modernc.org/sqlite"

	"github.com/placement-opt/placement-core/pkg/config"
	"github.com/placement-opt/placement-core/pkg/geometry"
	"github.com/placement-opt/placement-core/pkg/logger"
)

const schema = `
CREATE TABLE IF NOT EXISTS coverage (
	dimension INTEGER NOT NULL,
	radius    INTEGER NOT NULL,
	x         INTEGER NOT NULL,
	y         INTEGER NOT NULL,
	points    TEXT    NOT NULL,
	PRIMARY KEY (dimension, radius, x, y)
);
`

// Store is a sqlite-backed coverage cache
type Store struct {
	db *sql.DB
}

// Open opens (or creates) the cache database at path
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open coverage cache %s: %w", path, err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create coverage schema: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the underlying database
func (s *Store) Close() error {
	return s.db.Close()
}

// Save stores the coverage sets for one (dimension, radius) pair,
// replacing any previous entries for it
func (s *Store) Save(dimension, radius int, coverage map[geometry.Point][]geometry.Point) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin coverage save: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(
		`DELETE FROM coverage WHERE dimension = ? AND radius = ?`,
		dimension, radius,
	); err != nil {
		return fmt.Errorf("clear coverage %dx%d r=%d: %w", dimension, dimension, radius, err)
	}

	stmt, err := tx.Prepare(
		`INSERT INTO coverage (dimension, radius, x, y, points) VALUES (?, ?, ?, ?, ?)`,
	)
	if err != nil {
		return fmt.Errorf("prepare coverage insert: %w", err)
	}
	defer stmt.Close()

	for center, points := range coverage {
		encoded, err := json.Marshal(points)
		if err != nil {
			return fmt.Errorf("encode coverage for %v: %w", center, err)
		}
		if _, err := stmt.Exec(dimension, radius, center.X, center.Y, string(encoded)); err != nil {
			return fmt.Errorf("insert coverage for %v: %w", center, err)
		}
	}
	return tx.Commit()
}

// Load reads the coverage sets for one (dimension, radius) pair. An empty
// map means the pair was never generated.
func (s *Store) Load(dimension, radius int) (map[geometry.Point][]geometry.Point, error) {
	rows, err := s.db.Query(
		`SELECT x, y, points FROM coverage WHERE dimension = ? AND radius = ?`,
		dimension, radius,
	)
	if err != nil {
		return nil, fmt.Errorf("query coverage %dx%d r=%d: %w", dimension, dimension, radius, err)
	}
	defer rows.Close()

	coverage := make(map[geometry.Point][]geometry.Point)
	for rows.Next() {
		var x, y int
		var encoded string
		if err := rows.Scan(&x, &y, &encoded); err != nil {
			return nil, fmt.Errorf("scan coverage row: %w", err)
		}
		var points []geometry.Point
		if err := json.Unmarshal([]byte(encoded), &points); err != nil {
			return nil, fmt.Errorf("decode coverage for (%d, %d): %w", x, y, err)
		}
		coverage[geometry.NewPoint(x, y)] = points
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate coverage rows: %w", err)
	}
	return coverage, nil
}

// Generate computes and stores the coverage sets for every configured size
// class, at both the service radius and the penalty radius
func (s *Store) Generate(classes []config.SizeClass) error {
	for _, sc := range classes {
		for _, radius := range classRadii(sc) {
			coverage := make(map[geometry.Point][]geometry.Point, sc.Dimension*sc.Dimension)
			for x := 0; x < sc.Dimension; x++ {
				for y := 0; y < sc.Dimension; y++ {
					center := geometry.NewPoint(x, y)
					set := geometry.ComputeWithinRadius(center, radius, sc.Dimension)
					points := make([]geometry.Point, 0, len(set))
					for p := range set {
						points = append(points, p)
					}
					coverage[center] = points
				}
			}
			if err := s.Save(sc.Dimension, radius, coverage); err != nil {
				return fmt.Errorf("generate class %s radius %d: %w", sc.Name, radius, err)
			}
			logger.Info("generated coverage class",
				"class", sc.Name,
				"dimension", sc.Dimension,
				"radius", radius,
				"cells", len(coverage))
		}
	}
	return nil
}

// SeedIndex loads every configured size class into the coverage index.
// Missing classes are skipped; they will be computed lazily instead.
func (s *Store) SeedIndex(index *geometry.Index, classes []config.SizeClass) error {
	for _, sc := range classes {
		for _, radius := range classRadii(sc) {
			coverage, err := s.Load(sc.Dimension, radius)
			if err != nil {
				return fmt.Errorf("seed class %s radius %d: %w", sc.Name, radius, err)
			}
			if len(coverage) == 0 {
				continue
			}
			index.Seed(radius, sc.Dimension, coverage)
		}
	}
	return nil
}

// classRadii returns the distinct radii a size class needs cached
func classRadii(sc config.SizeClass) []int {
	if sc.ServiceRadius == sc.PenaltyRadius {
		return []int{sc.ServiceRadius}
	}
	return []int{sc.ServiceRadius, sc.PenaltyRadius}
}

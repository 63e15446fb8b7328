// Package sqlite provides a SQLite implementation of the ProjectDB interface.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite" // Pure Go SQLite driver

	"github.com/ersonp/relman/internal/domain/entities"
	"github.com/ersonp/relman/internal/infrastructure/config"
)

// timeNow returns the current time (can be mocked in tests).
var timeNow = time.Now

// Repository implements ports.ProjectDB using SQLite.
type Repository struct {
	db   *sql.DB
	path string
}

// NewRepository creates a new SQLite repository.
func NewRepository(cfg config.SQLiteConfig) (*Repository, error) {
	if cfg.Path == "" {
		return nil, errors.New("sqlite path is required")
	}

	db, err := sql.Open("sqlite", cfg.Path)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite database: %w", err)
	}

	// Pragmas are per connection and ":memory:" databases are per connection too
	db.SetMaxOpenConns(1)

	// Enable foreign keys for referential integrity
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling foreign keys: %w", err)
	}

	// Enable WAL mode for better concurrent read/write performance
	if _, err := db.Exec("PRAGMA journal_mode = WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling WAL mode: %w", err)
	}

	// Set busy timeout to avoid "database is locked" errors
	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting busy timeout: %w", err)
	}

	return &Repository{
		db:   db,
		path: cfg.Path,
	}, nil
}

// Close closes the database connection.
func (r *Repository) Close() error {
	return r.db.Close()
}

// Path returns the database file path.
func (r *Repository) Path() string {
	return r.path
}

// EnsureSchema creates the database schema if it doesn't exist.
func (r *Repository) EnsureSchema(ctx context.Context) error {
	schema := `
	-- Layers of the project and their ordered fields
	CREATE TABLE IF NOT EXISTS layers (
		seq INTEGER PRIMARY KEY AUTOINCREMENT,
		name TEXT NOT NULL UNIQUE,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS layer_fields (
		layer_name TEXT NOT NULL REFERENCES layers(name) ON DELETE CASCADE,
		position INTEGER NOT NULL,
		name TEXT NOT NULL,
		PRIMARY KEY (layer_name, name)
	);
	CREATE INDEX IF NOT EXISTS idx_layer_fields_order ON layer_fields(layer_name, position);

	-- Relations between layers, seq keeps insertion order
	CREATE TABLE IF NOT EXISTS relations (
		seq INTEGER PRIMARY KEY AUTOINCREMENT,
		id TEXT NOT NULL UNIQUE,
		name TEXT NOT NULL,
		referenced_layer TEXT NOT NULL,
		referencing_layer TEXT NOT NULL,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);
	CREATE INDEX IF NOT EXISTS idx_relations_referenced ON relations(referenced_layer);
	CREATE INDEX IF NOT EXISTS idx_relations_referencing ON relations(referencing_layer);

	-- Ordered parent/child field pairs of a relation
	CREATE TABLE IF NOT EXISTS relation_key_pairs (
		relation_id TEXT NOT NULL REFERENCES relations(id) ON DELETE CASCADE,
		position INTEGER NOT NULL,
		parent_field TEXT NOT NULL,
		child_field TEXT NOT NULL,
		PRIMARY KEY (relation_id, position)
	);
	`

	_, err := r.db.ExecContext(ctx, schema)
	if err != nil {
		return fmt.Errorf("creating schema: %w", err)
	}
	return nil
}

// withTx runs fn in a transaction, committing on success.
func (r *Repository) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

// ListRelations returns all relations in insertion order.
func (r *Repository) ListRelations(ctx context.Context) ([]entities.Relation, error) {
	query := `
		SELECT id, name, referenced_layer, referencing_layer, created_at
		FROM relations
		ORDER BY seq ASC
	`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("querying relations: %w", err)
	}
	defer rows.Close()

	relations := make([]entities.Relation, 0, 16)
	byID := make(map[string]int)
	for rows.Next() {
		var rel entities.Relation
		if err := rows.Scan(
			&rel.ID,
			&rel.Name,
			&rel.ReferencedLayer,
			&rel.ReferencingLayer,
			&rel.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scanning relation: %w", err)
		}
		byID[rel.ID] = len(relations)
		relations = append(relations, rel)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	pairs, err := r.db.QueryContext(ctx, `
		SELECT relation_id, parent_field, child_field
		FROM relation_key_pairs
		ORDER BY relation_id, position ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("querying key pairs: %w", err)
	}
	defer pairs.Close()

	for pairs.Next() {
		var relationID string
		var p entities.KeyPair
		if err := pairs.Scan(&relationID, &p.ParentField, &p.ChildField); err != nil {
			return nil, fmt.Errorf("scanning key pair: %w", err)
		}
		if i, ok := byID[relationID]; ok {
			relations[i].KeyPairs = append(relations[i].KeyPairs, p)
		}
	}
	return relations, pairs.Err()
}

// GetRelation finds a relation by ID. Returns nil if it does not exist.
func (r *Repository) GetRelation(ctx context.Context, id string) (*entities.Relation, error) {
	query := `
		SELECT id, name, referenced_layer, referencing_layer, created_at
		FROM relations
		WHERE id = ?
	`
	row := r.db.QueryRowContext(ctx, query, id)

	var rel entities.Relation
	err := row.Scan(
		&rel.ID,
		&rel.Name,
		&rel.ReferencedLayer,
		&rel.ReferencingLayer,
		&rel.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scanning relation: %w", err)
	}

	pairs, err := r.keyPairs(ctx, id)
	if err != nil {
		return nil, err
	}
	rel.KeyPairs = pairs
	return &rel, nil
}

func (r *Repository) keyPairs(ctx context.Context, relationID string) ([]entities.KeyPair, error) {
	query := `
		SELECT parent_field, child_field
		FROM relation_key_pairs
		WHERE relation_id = ?
		ORDER BY position ASC
	`
	rows, err := r.db.QueryContext(ctx, query, relationID)
	if err != nil {
		return nil, fmt.Errorf("querying key pairs: %w", err)
	}
	defer rows.Close()

	var pairs []entities.KeyPair
	for rows.Next() {
		var p entities.KeyPair
		if err := rows.Scan(&p.ParentField, &p.ChildField); err != nil {
			return nil, fmt.Errorf("scanning key pair: %w", err)
		}
		pairs = append(pairs, p)
	}
	return pairs, rows.Err()
}

// AddRelation stores a new relation and its key pairs.
// Returns entities.ErrRelationExists if the ID is already taken.
func (r *Repository) AddRelation(ctx context.Context, rel *entities.Relation) error {
	if rel.ID == "" {
		return fmt.Errorf("%w: relation id is required", entities.ErrInvalidRelation)
	}

	createdAt := rel.CreatedAt
	if createdAt.IsZero() {
		createdAt = timeNow()
	}

	return r.withTx(ctx, func(tx *sql.Tx) error {
		var exists int
		err := tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM relations WHERE id = ?`, rel.ID).Scan(&exists)
		if err != nil {
			return fmt.Errorf("checking relation: %w", err)
		}
		if exists > 0 {
			return fmt.Errorf("%w: %s", entities.ErrRelationExists, rel.ID)
		}

		query := `
			INSERT INTO relations (id, name, referenced_layer, referencing_layer, created_at)
			VALUES (?, ?, ?, ?, ?)
		`
		if _, err := tx.ExecContext(ctx, query,
			rel.ID,
			rel.Name,
			rel.ReferencedLayer,
			rel.ReferencingLayer,
			createdAt,
		); err != nil {
			return fmt.Errorf("saving relation: %w", err)
		}

		for i, p := range rel.KeyPairs {
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO relation_key_pairs (relation_id, position, parent_field, child_field) VALUES (?, ?, ?, ?)`,
				rel.ID, i, p.ParentField, p.ChildField,
			); err != nil {
				return fmt.Errorf("saving key pair: %w", err)
			}
		}
		return nil
	})
}

// RemoveRelation deletes a relation by ID. Removing a missing ID is a no-op.
func (r *Repository) RemoveRelation(ctx context.Context, id string) error {
	return r.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM relation_key_pairs WHERE relation_id = ?`, id); err != nil {
			return fmt.Errorf("deleting key pairs: %w", err)
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM relations WHERE id = ?`, id); err != nil {
			return fmt.Errorf("deleting relation: %w", err)
		}
		return nil
	})
}

// CountRelations returns the number of stored relations.
func (r *Repository) CountRelations(ctx context.Context) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM relations`).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("counting relations: %w", err)
	}
	return count, nil
}

// SaveLayer saves a layer, replacing its field list if it already exists.
func (r *Repository) SaveLayer(ctx context.Context, layer *entities.Layer) error {
	if layer.Name == "" {
		return errors.New("layer name is required")
	}

	return r.withTx(ctx, func(tx *sql.Tx) error {
		query := `
			INSERT INTO layers (name, created_at)
			VALUES (?, ?)
			ON CONFLICT(name) DO NOTHING
		`
		if _, err := tx.ExecContext(ctx, query, layer.Name, timeNow()); err != nil {
			return fmt.Errorf("saving layer: %w", err)
		}

		if _, err := tx.ExecContext(ctx, `DELETE FROM layer_fields WHERE layer_name = ?`, layer.Name); err != nil {
			return fmt.Errorf("clearing layer fields: %w", err)
		}
		for i, field := range layer.Fields {
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO layer_fields (layer_name, position, name) VALUES (?, ?, ?)`,
				layer.Name, i, field,
			); err != nil {
				return fmt.Errorf("saving layer field %s: %w", field, err)
			}
		}
		return nil
	})
}

// FindLayer finds a layer by name. Returns nil if it does not exist.
func (r *Repository) FindLayer(ctx context.Context, name string) (*entities.Layer, error) {
	var exists int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM layers WHERE name = ?`, name).Scan(&exists)
	if err != nil {
		return nil, fmt.Errorf("finding layer: %w", err)
	}
	if exists == 0 {
		return nil, nil
	}

	rows, err := r.db.QueryContext(ctx,
		`SELECT name FROM layer_fields WHERE layer_name = ? ORDER BY position ASC`, name)
	if err != nil {
		return nil, fmt.Errorf("querying layer fields: %w", err)
	}
	defer rows.Close()

	layer := &entities.Layer{Name: name, Fields: []string{}}
	for rows.Next() {
		var field string
		if err := rows.Scan(&field); err != nil {
			return nil, fmt.Errorf("scanning layer field: %w", err)
		}
		layer.Fields = append(layer.Fields, field)
	}
	return layer, rows.Err()
}

// ListLayers returns all layers in the order they were first saved.
func (r *Repository) ListLayers(ctx context.Context) ([]entities.Layer, error) {
	query := `
		SELECT l.name, f.name
		FROM layers l
		LEFT JOIN layer_fields f ON f.layer_name = l.name
		ORDER BY l.seq ASC, f.position ASC
	`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("querying layers: %w", err)
	}
	defer rows.Close()

	layers := make([]entities.Layer, 0, 8)
	for rows.Next() {
		var name string
		var field sql.NullString
		if err := rows.Scan(&name, &field); err != nil {
			return nil, fmt.Errorf("scanning layer: %w", err)
		}
		if len(layers) == 0 || layers[len(layers)-1].Name != name {
			layers = append(layers, entities.Layer{Name: name, Fields: []string{}})
		}
		if field.Valid {
			last := &layers[len(layers)-1]
			last.Fields = append(last.Fields, field.String)
		}
	}
	return layers, rows.Err()
}

// DeleteLayer deletes a layer that no relation references.
func (r *Repository) DeleteLayer(ctx context.Context, name string) error {
	return r.withTx(ctx, func(tx *sql.Tx) error {
		var refs int
		err := tx.QueryRowContext(ctx,
			`SELECT COUNT(*) FROM relations WHERE referenced_layer = ? OR referencing_layer = ?`,
			name, name,
		).Scan(&refs)
		if err != nil {
			return fmt.Errorf("checking layer references: %w", err)
		}
		if refs > 0 {
			return fmt.Errorf("layer %s is referenced by %d relation(s)", name, refs)
		}

		if _, err := tx.ExecContext(ctx, `DELETE FROM layer_fields WHERE layer_name = ?`, name); err != nil {
			return fmt.Errorf("deleting layer fields: %w", err)
		}
		result, err := tx.ExecContext(ctx, `DELETE FROM layers WHERE name = ?`, name)
		if err != nil {
			return fmt.Errorf("deleting layer: %w", err)
		}
		rows, _ := result.RowsAffected()
		if rows == 0 {
			return fmt.Errorf("%w: %s", entities.ErrLayerNotFound, name)
		}
		return nil
	})
}

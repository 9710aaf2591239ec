package jurisdiction

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"

	id "fieldops/pkg/domain"
	"fieldops/pkg/platform/sentinel"
)

// PostgresGraph reads the jurisdictions reference table.
type PostgresGraph struct {
	db *sql.DB
}

func NewPostgresGraph(db *sql.DB) *PostgresGraph {
	return &PostgresGraph{db: db}
}

func (g *PostgresGraph) Node(ctx context.Context, jurisdictionID id.JurisdictionID) (*Node, error) {
	var (
		n      Node
		nodeID string
		parent sql.NullString
		abbr   sql.NullString
	)
	err := g.db.QueryRowContext(ctx, `
		SELECT id, parent_id, level_id, abbreviation, name
		FROM jurisdictions
		WHERE id = $1
	`, string(jurisdictionID)).Scan(&nodeID, &parent, &n.LevelID, &abbr, &n.Name)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query jurisdiction: %w", err)
	}
	n.ID = id.JurisdictionID(nodeID)
	n.ParentID = id.JurisdictionID(parent.String)
	n.Abbreviation = abbr.String
	return &n, nil
}

// Children fetches one BFS level in a single query.
func (g *PostgresGraph) Children(ctx context.Context, parents []id.JurisdictionID) ([]id.JurisdictionID, error) {
	if len(parents) == 0 {
		return nil, nil
	}
	keys := make([]string, len(parents))
	for i, p := range parents {
		keys[i] = string(p)
	}
	rows, err := g.db.QueryContext(ctx, `
		SELECT id FROM jurisdictions WHERE parent_id = ANY($1) ORDER BY id
	`, pq.Array(keys))
	if err != nil {
		return nil, fmt.Errorf("query child jurisdictions: %w", err)
	}
	defer rows.Close()

	var out []id.JurisdictionID
	for rows.Next() {
		var child string
		if err := rows.Scan(&child); err != nil {
			return nil, fmt.Errorf("scan child jurisdiction: %w", err)
		}
		out = append(out, id.JurisdictionID(child))
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate child jurisdictions: %w", err)
	}
	return out, nil
}

// Upsert writes a node; used by seeding and reference-data sync.
func (g *PostgresGraph) Upsert(ctx context.Context, n Node) error {
	n = cleanNode(n)
	_, err := g.db.ExecContext(ctx, `
		INSERT INTO jurisdictions (id, parent_id, level_id, abbreviation, name)
		VALUES ($1, NULLIF($2, ''), $3, NULLIF($4, ''), $5)
		ON CONFLICT (id) DO UPDATE
		SET parent_id = EXCLUDED.parent_id, level_id = EXCLUDED.level_id,
		    abbreviation = EXCLUDED.abbreviation, name = EXCLUDED.name
	`, string(n.ID), string(n.ParentID), n.LevelID, n.Abbreviation, n.Name)
	if err != nil {
		return fmt.Errorf("upsert jurisdiction: %w", err)
	}
	return nil
}

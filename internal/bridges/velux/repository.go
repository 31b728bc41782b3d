package velux

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"
)

// DefaultSQLiteProvider is the provider name used for rows in velux_items.
const DefaultSQLiteProvider = "sqlite"

// SQLiteProvider is a Provider backed by the velux_items table. Items are
// held in memory; call Load to refresh them from the database.
//
// A row whose type is unknown or whose divider is invalid is listed without
// a config, so the refresh cycle reports it as missing.
type SQLiteProvider struct {
	db     *sql.DB
	name   string
	logger Logger

	mu    sync.RWMutex
	order []string
	items map[string]ItemConfig
}

// NewSQLiteProvider returns an empty provider for rows with the given
// provider name. Call Load before registering it.
func NewSQLiteProvider(db *sql.DB, name string, logger Logger) *SQLiteProvider {
	if name == "" {
		name = DefaultSQLiteProvider
	}
	if logger == nil {
		logger = noopLogger{}
	}
	return &SQLiteProvider{
		db:     db,
		name:   name,
		logger: logger,
		items:  make(map[string]ItemConfig),
	}
}

// Name returns the provider name.
func (p *SQLiteProvider) Name() string { return p.name }

// ItemNames returns names in position order.
func (p *SQLiteProvider) ItemNames() []string {
	p.mu.RLock()
	defer p.mu.RUnlock()

	out := make([]string, len(p.order))
	copy(out, p.order)
	return out
}

// ItemConfig returns the binding for itemName.
func (p *SQLiteProvider) ItemConfig(itemName string) (ItemConfig, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	cfg, ok := p.items[itemName]
	return cfg, ok
}

// Load replaces the in-memory item set with the provider's rows.
func (p *SQLiteProvider) Load(ctx context.Context) error {
	specs, err := p.List(ctx)
	if err != nil {
		return err
	}

	order := make([]string, 0, len(specs))
	items := make(map[string]ItemConfig, len(specs))
	for _, spec := range specs {
		order = append(order, spec.Name)
		cfg, err := spec.ToConfig()
		if err != nil {
			p.logger.Warn("invalid item binding", "item", spec.Name, "provider", p.name, "error", err)
			continue
		}
		items[spec.Name] = cfg
	}

	p.mu.Lock()
	p.order = order
	p.items = items
	p.mu.Unlock()

	p.logger.Debug("items loaded", "provider", p.name, "items", len(order), "valid", len(items))
	return nil
}

// List returns the provider's rows ordered by position, then name.
func (p *SQLiteProvider) List(ctx context.Context) ([]ItemSpec, error) {
	const query = `SELECT name, item_type, thing, divider FROM velux_items
		WHERE provider = ? ORDER BY position, name`

	rows, err := p.db.QueryContext(ctx, query, p.name)
	if err != nil {
		return nil, fmt.Errorf("querying velux items: %w", err)
	}
	defer rows.Close()

	var specs []ItemSpec
	for rows.Next() {
		var (
			spec    ItemSpec
			divider sql.NullInt64
		)
		if err := rows.Scan(&spec.Name, &spec.Type, &spec.Thing, &divider); err != nil {
			return nil, fmt.Errorf("scanning velux item: %w", err)
		}
		if divider.Valid {
			d := int(divider.Int64)
			spec.Divider = &d
		}
		spec.Provider = p.name
		specs = append(specs, spec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating velux items: %w", err)
	}
	return specs, nil
}

// Upsert inserts spec at the end of the order, or updates it in place if
// the name exists. The in-memory set is reloaded afterwards.
func (p *SQLiteProvider) Upsert(ctx context.Context, spec ItemSpec) error {
	if _, err := spec.ToConfig(); err != nil {
		return err
	}

	now := time.Now().UTC().Format(time.RFC3339)
	const query = `INSERT INTO velux_items
		(name, provider, item_type, thing, divider, position, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?,
			(SELECT COALESCE(MAX(position), -1) + 1 FROM velux_items WHERE provider = ?),
			?, ?)
		ON CONFLICT(name) DO UPDATE SET
			item_type = excluded.item_type,
			thing = excluded.thing,
			divider = excluded.divider,
			updated_at = excluded.updated_at`

	_, err := p.db.ExecContext(ctx, query,
		spec.Name, p.name, spec.Type, spec.Thing, nullDivider(spec.Divider),
		p.name, now, now)
	if err != nil {
		return fmt.Errorf("upserting velux item %s: %w", spec.Name, err)
	}
	return p.Load(ctx)
}

// Seed replaces the provider's rows with specs, in order, in one
// transaction. Specs are stored as given; invalid types surface on Load.
func (p *SQLiteProvider) Seed(ctx context.Context, specs []ItemSpec) error {
	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	if _, err := tx.ExecContext(ctx, `DELETE FROM velux_items WHERE provider = ?`, p.name); err != nil {
		return fmt.Errorf("clearing velux items: %w", err)
	}

	now := time.Now().UTC().Format(time.RFC3339)
	const query = `INSERT INTO velux_items
		(name, provider, item_type, thing, divider, position, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`
	for i, spec := range specs {
		if _, err := tx.ExecContext(ctx, query,
			spec.Name, p.name, spec.Type, spec.Thing, nullDivider(spec.Divider), i, now, now); err != nil {
			return fmt.Errorf("inserting velux item %s: %w", spec.Name, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing velux items: %w", err)
	}
	return p.Load(ctx)
}

// Delete removes itemName. Returns ErrItemNotFound if no row matched.
func (p *SQLiteProvider) Delete(ctx context.Context, itemName string) error {
	res, err := p.db.ExecContext(ctx,
		`DELETE FROM velux_items WHERE name = ? AND provider = ?`, itemName, p.name)
	if err != nil {
		return fmt.Errorf("deleting velux item %s: %w", itemName, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("deleting velux item %s: %w", itemName, err)
	}
	if n == 0 {
		return ErrItemNotFound
	}
	return p.Load(ctx)
}

func nullDivider(d *int) sql.NullInt64 {
	if d == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*d), Valid: true}
}

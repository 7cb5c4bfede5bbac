package sqlite

import (
	"context"
	"crypto/rand"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"
)

// migrateTo brings the live schema in line with schemaDefinition without hand-written migrations.
//
// The target schema is created in an attached in-memory database and diffed against the live one. Removed tables
// are dropped, new ones created and changed ones rebuilt with the generalised ALTER TABLE procedure from
// https://www.sqlite.org/lang_altertable.html#otheralter, copying the columns both versions share. Indexes and
// triggers are then recreated wherever their SQL differs.
func (db *Database) migrateTo(ctx context.Context, schemaDefinition string) (err error) {
	start := time.Now()

	detach, err := db.attachTarget(ctx, schemaDefinition)
	if err != nil {
		return fmt.Errorf("attach target schema: %w", err)
	}
	defer detach()

	if _, err = db.ReadWrite.ExecContext(ctx, "PRAGMA foreign_keys = OFF"); err != nil {
		return fmt.Errorf("disable foreign keys: %w", err)
	}
	defer func() {
		if _, fkErr := db.ReadWrite.ExecContext(ctx, "PRAGMA foreign_keys = ON"); fkErr != nil {
			err = errors.Join(err, fmt.Errorf("re-enable foreign keys: %w", fkErr))
		}
	}()

	tx, err := db.ReadWrite.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer db.rollback(ctx, tx)

	m := migration{tx: tx, logger: db.logger}
	if err = m.tables(ctx); err != nil {
		return fmt.Errorf("migrate tables: %w", err)
	}
	for _, typ := range []string{"trigger", "index"} {
		if err = m.objects(ctx, typ); err != nil {
			return fmt.Errorf("migrate %ss: %w", typ, err)
		}
	}
	if err = m.checkForeignKeys(ctx); err != nil {
		return err
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}

	db.logger.LogAttrs(ctx, slog.LevelInfo, "migrated database", slog.Duration("duration", time.Since(start)))
	return nil
}

// attachTarget creates schemaDefinition in a fresh in-memory database attached as "target".
func (db *Database) attachTarget(ctx context.Context, schemaDefinition string) (func(), error) {
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", rand.Text())
	// The connection has to stay open until the target is attached, otherwise the in-memory database vanishes.
	target, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("open: %w", err)
	}
	defer func() {
		if closeErr := target.Close(); closeErr != nil {
			db.logger.LogAttrs(ctx, slog.LevelError, "close target schema database", slog.Any("error", closeErr))
		}
	}()
	if _, err = target.ExecContext(ctx, schemaDefinition); err != nil {
		return nil, fmt.Errorf("create target schema: %w", err)
	}
	if _, err = db.ReadWrite.ExecContext(ctx, "ATTACH DATABASE ? AS target", dsn); err != nil {
		return nil, fmt.Errorf("attach: %w", err)
	}
	return func() {
		if _, detachErr := db.ReadWrite.ExecContext(ctx, "DETACH DATABASE target"); detachErr != nil {
			db.logger.LogAttrs(ctx, slog.LevelError, "detach target schema database", slog.Any("error", detachErr))
		}
	}, nil
}

func (db *Database) rollback(ctx context.Context, tx *sql.Tx) {
	if err := tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
		db.logger.LogAttrs(ctx, slog.LevelError, "rollback", slog.Any("error", err))
	}
}

type migration struct {
	tx     *sql.Tx
	logger *slog.Logger
}

// schemaDiff pairs the live and target definitions of an object. A missing side is the empty string.
type schemaDiff struct {
	name   string
	live   string
	target string
}

func (d schemaDiff) removed() bool { return d.target == "" }
func (d schemaDiff) added() bool   { return d.live == "" }

// changed ignores quoting because ALTER TABLE RENAME quotes the table name in the stored SQL.
func (d schemaDiff) changed() bool {
	return d.live != "" && d.target != "" &&
		strings.ReplaceAll(d.live, `"`, "") != strings.ReplaceAll(d.target, `"`, "")
}

// diff lists every object of typ that differs between the live and the target schema, ordered by name.
func (m migration) diff(ctx context.Context, typ string) ([]schemaDiff, error) {
	live, err := m.definitions(ctx, "main", typ)
	if err != nil {
		return nil, fmt.Errorf("live %s definitions: %w", typ, err)
	}
	target, err := m.definitions(ctx, "target", typ)
	if err != nil {
		return nil, fmt.Errorf("target %s definitions: %w", typ, err)
	}
	names := make([]string, 0, len(live)+len(target))
	for name := range live {
		names = append(names, name)
	}
	for name := range target {
		if _, ok := live[name]; !ok {
			names = append(names, name)
		}
	}
	slices.Sort(names)

	var diffs []schemaDiff
	for _, name := range names {
		d := schemaDiff{name: name, live: live[name], target: target[name]}
		if d.removed() || d.added() || d.changed() {
			diffs = append(diffs, d)
		}
	}
	return diffs, nil
}

func (m migration) definitions(ctx context.Context, schema string, typ string) (map[string]string, error) {
	//nolint:gosec // schema is one of two constants.
	query := fmt.Sprintf(`SELECT name, sql FROM %s.sqlite_schema
WHERE type = ?
  AND sql IS NOT NULL
  AND name NOT LIKE 'sqlite_%%'
  AND name NOT LIKE '_litestream_%%'`, schema)
	rows, err := m.tx.QueryContext(ctx, query, typ)
	if err != nil {
		return nil, fmt.Errorf("query: %w", err)
	}
	defer rows.Close()
	result := make(map[string]string)
	for rows.Next() {
		var name, definition string
		if err = rows.Scan(&name, &definition); err != nil {
			return nil, fmt.Errorf("scan: %w", err)
		}
		result[name] = definition
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}
	return result, nil
}

func (m migration) exec(ctx context.Context, msg string, query string) error {
	m.logger.LogAttrs(ctx, slog.LevelInfo, msg, slog.String("query", query))
	if _, err := m.tx.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("%s: %w", msg, err)
	}
	return nil
}

func (m migration) tables(ctx context.Context) error {
	diffs, err := m.diff(ctx, "table")
	if err != nil {
		return err
	}
	for _, d := range diffs {
		switch {
		case d.removed():
			err = m.exec(ctx, "dropping table", fmt.Sprintf("DROP TABLE %s", d.name))
		case d.added():
			err = m.exec(ctx, "creating table", d.target)
		default:
			err = m.rebuild(ctx, d)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

// rebuild creates the new table under a temporary name, copies the shared columns and swaps the tables.
func (m migration) rebuild(ctx context.Context, d schemaDiff) error {
	m.logger.LogAttrs(ctx, slog.LevelInfo, "rebuilding table",
		slog.String("table", d.name), slog.String("live_sql", d.live), slog.String("new_sql", d.target))

	temp := d.name + "_migration_temp"
	if err := m.exec(ctx, "creating temporary table", strings.Replace(d.target, d.name, temp, 1)); err != nil {
		return err
	}
	columns, err := m.sharedColumns(ctx, d.name)
	if err != nil {
		return fmt.Errorf("shared columns of %s: %w", d.name, err)
	}
	if len(columns) > 0 {
		list := strings.Join(columns, ", ")
		//nolint:gosec // identifiers come from the schema.
		copySQL := fmt.Sprintf("INSERT INTO %s (%s) SELECT %s FROM %s", temp, list, list, d.name)
		if err = m.exec(ctx, "copying rows", copySQL); err != nil {
			return err
		}
	}
	if err = m.exec(ctx, "dropping old table", fmt.Sprintf("DROP TABLE %s", d.name)); err != nil {
		return err
	}
	return m.exec(ctx, "renaming table", fmt.Sprintf("ALTER TABLE %s RENAME TO %s", temp, d.name))
}

// sharedColumns returns the quoted names of the columns present in both versions of table.
func (m migration) sharedColumns(ctx context.Context, table string) ([]string, error) {
	rows, err := m.tx.QueryContext(ctx, `SELECT '"' || t.name || '"'
FROM PRAGMA_TABLE_INFO(:table) AS l
         JOIN PRAGMA_TABLE_INFO(:table, 'target') AS t ON t.name = l.name`, sql.Named("table", table))
	if err != nil {
		return nil, fmt.Errorf("query: %w", err)
	}
	defer rows.Close()
	var columns []string
	for rows.Next() {
		var column string
		if err = rows.Scan(&column); err != nil {
			return nil, fmt.Errorf("scan: %w", err)
		}
		columns = append(columns, column)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}
	return columns, nil
}

// objects recreates indexes or triggers whose definition differs. It runs after the tables so that objects lost
// with a rebuilt table are created again.
func (m migration) objects(ctx context.Context, typ string) error {
	diffs, err := m.diff(ctx, typ)
	if err != nil {
		return err
	}
	keyword := strings.ToUpper(typ)
	for _, d := range diffs {
		if !d.added() {
			if err = m.exec(ctx, "dropping "+typ, fmt.Sprintf("DROP %s %s", keyword, d.name)); err != nil {
				return err
			}
		}
		if !d.removed() {
			if err = m.exec(ctx, "creating "+typ, d.target); err != nil {
				return err
			}
		}
	}
	return nil
}

func (m migration) checkForeignKeys(ctx context.Context) error {
	rows, err := m.tx.QueryContext(ctx, "PRAGMA foreign_key_check")
	if err != nil {
		return fmt.Errorf("foreign key check: %w", err)
	}
	defer rows.Close()
	if rows.Next() {
		return errors.New("foreign key check: migration leaves dangling references")
	}
	if err = rows.Err(); err != nil {
		return fmt.Errorf("foreign key check: %w", err)
	}
	return nil
}

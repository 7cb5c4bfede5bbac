package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"slices"
	"strings"

	"github.com/google/uuid"
)

const usersTable = "users"

// ExportUserData copies every row belonging to userID into a new SQLite file in dir and returns its path.
//
// Rows belong to the user when they reference users.id directly, or when a row that does references them. The
// export keeps the live table definitions so that it can be opened with any SQLite client.
func (db *Database) ExportUserData(ctx context.Context, userID int, dir string) (_ string, err error) {
	path := filepath.Join(dir, fmt.Sprintf("fitplan-export-%s.sqlite3", uuid.NewString()))

	conn, err := db.ReadOnly.Conn(ctx)
	if err != nil {
		return "", fmt.Errorf("acquire connection: %w", err)
	}
	defer func() {
		err = errors.Join(err, conn.Close())
	}()

	// The read-only pool has to write to the attached export database. Foreign keys are off so that tables can
	// be filled in any order.
	if _, err = conn.ExecContext(ctx, "PRAGMA query_only = FALSE; PRAGMA foreign_keys = OFF"); err != nil {
		return "", fmt.Errorf("relax connection pragmas: %w", err)
	}
	defer func() {
		if _, restoreErr := conn.ExecContext(context.WithoutCancel(ctx),
			"PRAGMA query_only = TRUE; PRAGMA foreign_keys = ON"); restoreErr != nil {
			err = errors.Join(err, fmt.Errorf("restore connection pragmas: %w", restoreErr))
		}
	}()

	if _, err = conn.ExecContext(ctx, "ATTACH DATABASE ? AS export", fmt.Sprintf("file:%s?mode=rwc", path)); err != nil {
		return "", fmt.Errorf("attach export database: %w", err)
	}
	defer func() {
		if _, detachErr := conn.ExecContext(context.WithoutCancel(ctx), "DETACH DATABASE export"); detachErr != nil {
			err = errors.Join(err, fmt.Errorf("detach export database: %w", detachErr))
		}
	}()

	tx, err := conn.BeginTx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("begin: %w", err)
	}
	defer db.rollback(ctx, tx)

	tables, err := ownedTables(ctx, tx)
	if err != nil {
		return "", fmt.Errorf("find user tables: %w", err)
	}
	for _, table := range tables {
		if err = copyTable(ctx, tx, table, userID); err != nil {
			return "", fmt.Errorf("copy %s: %w", table.name, err)
		}
	}
	if err = tx.Commit(); err != nil {
		return "", fmt.Errorf("commit: %w", err)
	}
	return path, nil
}

type foreignKey struct {
	table string
	from  string
	to    string
}

// ownedTable is a table with the OR-ed conditions selecting the rows of one user. Conditions use :user_id.
type ownedTable struct {
	name       string
	createSQL  string
	conditions []string
}

// ownedTables finds the tables referencing users and the tables they reference in turn.
func ownedTables(ctx context.Context, tx *sql.Tx) ([]ownedTable, error) {
	definitions, err := tableDefinitions(ctx, tx)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(definitions))
	for name := range definitions {
		names = append(names, name)
	}
	slices.Sort(names)

	keys := make(map[string][]foreignKey, len(names))
	for _, name := range names {
		if keys[name], err = foreignKeys(ctx, tx, name); err != nil {
			return nil, fmt.Errorf("foreign keys of %s: %w", name, err)
		}
	}

	direct := make(map[string][]string)
	if _, ok := definitions[usersTable]; ok {
		direct[usersTable] = []string{"id = :user_id"}
	}
	for _, name := range names {
		for _, fk := range keys[name] {
			if fk.table == usersTable && fk.to == "id" {
				direct[name] = append(direct[name], fmt.Sprintf("%s = :user_id", fk.from))
			}
		}
	}

	conditions := make(map[string][]string, len(direct))
	for name, conds := range direct {
		conditions[name] = slices.Clone(conds)
	}
	for _, name := range names {
		parentFilter, owned := direct[name]
		if !owned || name == usersTable {
			continue
		}
		for _, fk := range keys[name] {
			if fk.table == usersTable || fk.table == name {
				continue
			}
			conditions[fk.table] = append(conditions[fk.table], fmt.Sprintf(
				"%s IN (SELECT %s FROM main.%s WHERE %s)", fk.to, fk.from, name, strings.Join(parentFilter, " OR ")))
		}
	}

	var result []ownedTable
	for _, name := range names {
		if conds, ok := conditions[name]; ok {
			result = append(result, ownedTable{name: name, createSQL: definitions[name], conditions: conds})
		}
	}
	return result, nil
}

func tableDefinitions(ctx context.Context, tx *sql.Tx) (map[string]string, error) {
	rows, err := tx.QueryContext(ctx, `SELECT name, sql FROM main.sqlite_schema
WHERE type = 'table' AND name NOT LIKE 'sqlite_%' AND name NOT LIKE '_litestream_%'`)
	if err != nil {
		return nil, fmt.Errorf("query tables: %w", err)
	}
	defer rows.Close()
	definitions := make(map[string]string)
	for rows.Next() {
		var name, definition string
		if err = rows.Scan(&name, &definition); err != nil {
			return nil, fmt.Errorf("scan table: %w", err)
		}
		definitions[name] = definition
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate tables: %w", err)
	}
	return definitions, nil
}

func foreignKeys(ctx context.Context, tx *sql.Tx, table string) ([]foreignKey, error) {
	rows, err := tx.QueryContext(ctx, `SELECT "table", "from", "to" FROM pragma_foreign_key_list(?)`, table)
	if err != nil {
		return nil, fmt.Errorf("query: %w", err)
	}
	defer rows.Close()
	var keys []foreignKey
	for rows.Next() {
		var (
			fk foreignKey
			to sql.NullString
		)
		if err = rows.Scan(&fk.table, &fk.from, &to); err != nil {
			return nil, fmt.Errorf("scan: %w", err)
		}
		fk.to = "id"
		if to.Valid && to.String != "" {
			fk.to = to.String
		}
		keys = append(keys, fk)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate: %w", err)
	}
	return keys, nil
}

func copyTable(ctx context.Context, tx *sql.Tx, table ownedTable, userID int) error {
	createSQL := strings.Replace(table.createSQL, "CREATE TABLE ", "CREATE TABLE export.", 1)
	if _, err := tx.ExecContext(ctx, createSQL); err != nil {
		return fmt.Errorf("create table: %w", err)
	}
	//nolint:gosec // identifiers come from the schema.
	insertSQL := fmt.Sprintf("INSERT INTO export.%s SELECT * FROM main.%s WHERE (%s)",
		table.name, table.name, strings.Join(table.conditions, ") OR ("))
	if _, err := tx.ExecContext(ctx, insertSQL, sql.Named("user_id", userID)); err != nil {
		return fmt.Errorf("copy rows: %w", err)
	}
	return nil
}

package introspect

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/ridoystarlord/dupfix/cleaner"
)

// Querier is the part of *pgxpool.Pool the inspection needs.
type Querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// DuplicateColumn is a table column whose name carries the duplicate suffix.
type DuplicateColumn struct {
	Schema     string `json:"schema"`
	TableName  string `json:"table"`
	ColumnName string `json:"column"`
	DataType   string `json:"data_type"`
	IsNullable bool   `json:"nullable"`
}

// ExistingForeignKey is one column of a foreign key constraint and its delete rule.
type ExistingForeignKey struct {
	Schema         string `json:"schema"`
	TableName      string `json:"table"`
	ConstraintName string `json:"constraint"`
	ColumnName     string `json:"column"`
	OnDelete       string `json:"on_delete"`
}

// IsCascade reports whether deleting the principal row deletes this row too.
func (fk ExistingForeignKey) IsCascade() bool {
	return strings.EqualFold(fk.OnDelete, "CASCADE")
}

// Report is what a live database still carries of the duplicate relations.
type Report struct {
	Columns     []DuplicateColumn    `json:"duplicate_columns"`
	ForeignKeys []ExistingForeignKey `json:"duplicate_foreign_keys"`
	Cascades    []ExistingForeignKey `json:"cascade_foreign_keys"`
}

// Clean reports whether nothing was found.
func (r *Report) Clean() bool {
	return len(r.Columns) == 0 && len(r.ForeignKeys) == 0 && len(r.Cascades) == 0
}

const columnsQuery = `
	SELECT
		c.table_schema,
		c.table_name,
		c.column_name,
		c.data_type,
		(c.is_nullable = 'YES') AS is_nullable
	FROM information_schema.columns c
	JOIN information_schema.tables t
		ON t.table_schema = c.table_schema AND t.table_name = c.table_name
	WHERE t.table_type = 'BASE TABLE'
		AND c.table_schema = ANY($1)
		AND c.column_name LIKE $2 ESCAPE '\'
	ORDER BY c.table_schema, c.table_name, c.ordinal_position;
	`

const foreignKeysQuery = `
	SELECT
		tc.table_schema,
		tc.table_name,
		tc.constraint_name,
		kcu.column_name,
		rc.delete_rule
	FROM information_schema.table_constraints AS tc
	JOIN information_schema.key_column_usage AS kcu
		ON tc.constraint_name = kcu.constraint_name
		AND tc.table_schema = kcu.table_schema
	JOIN information_schema.referential_constraints AS rc
		ON tc.constraint_name = rc.constraint_name
		AND tc.table_schema = rc.constraint_schema
	WHERE tc.constraint_type = 'FOREIGN KEY'
		AND tc.table_schema = ANY($1)
	ORDER BY tc.table_schema, tc.table_name, tc.constraint_name;
	`

// Inspect lists duplicate-suffix columns, the foreign keys built on them and
// every cascading foreign key in the given schemas.
func Inspect(ctx context.Context, q Querier, rules cleaner.Rules, schemas []string) (*Report, error) {
	columns, err := getDuplicateColumns(ctx, q, rules, schemas)
	if err != nil {
		return nil, fmt.Errorf("getting duplicate columns: %w", err)
	}

	foreignKeys, err := getForeignKeys(ctx, q, schemas)
	if err != nil {
		return nil, fmt.Errorf("getting foreign keys: %w", err)
	}

	report := &Report{Columns: columns}
	report.ForeignKeys, report.Cascades = ClassifyForeignKeys(foreignKeys, rules)
	return report, nil
}

// LikePattern builds a LIKE pattern matching names that end with suffix,
// escaping the LIKE wildcards '_' and '%'.
func LikePattern(suffix string) string {
	r := strings.NewReplacer(`\`, `\\`, `_`, `\_`, `%`, `\%`)
	return "%" + r.Replace(suffix)
}

// ClassifyForeignKeys splits foreign keys into those that belong to a
// duplicate relation and those that cascade on delete. A key can be in both.
func ClassifyForeignKeys(fks []ExistingForeignKey, rules cleaner.Rules) (duplicates, cascades []ExistingForeignKey) {
	for _, fk := range fks {
		if rules.IsDuplicateColumn(fk.ColumnName) || rules.ReferencesDuplicate(fk.ConstraintName) {
			duplicates = append(duplicates, fk)
		}
		if fk.IsCascade() {
			cascades = append(cascades, fk)
		}
	}
	return duplicates, cascades
}

func getDuplicateColumns(ctx context.Context, q Querier, rules cleaner.Rules, schemas []string) ([]DuplicateColumn, error) {
	rows, err := q.Query(ctx, columnsQuery, schemas, LikePattern(rules.Suffix))
	if err != nil {
		return nil, fmt.Errorf("querying columns: %w", err)
	}
	defer rows.Close()

	var columns []DuplicateColumn
	for rows.Next() {
		var col DuplicateColumn
		if err := rows.Scan(
			&col.Schema,
			&col.TableName,
			&col.ColumnName,
			&col.DataType,
			&col.IsNullable,
		); err != nil {
			return nil, fmt.Errorf("scanning column: %w", err)
		}
		// LIKE also matches the bare suffix
		if !rules.IsDuplicateColumn(col.ColumnName) {
			continue
		}
		columns = append(columns, col)
	}

	if rows.Err() != nil {
		return nil, fmt.Errorf("iterating column rows: %w", rows.Err())
	}

	return columns, nil
}

func getForeignKeys(ctx context.Context, q Querier, schemas []string) ([]ExistingForeignKey, error) {
	rows, err := q.Query(ctx, foreignKeysQuery, schemas)
	if err != nil {
		return nil, fmt.Errorf("querying foreign keys: %w", err)
	}
	defer rows.Close()

	var foreignKeys []ExistingForeignKey
	for rows.Next() {
		var fk ExistingForeignKey
		if err := rows.Scan(
			&fk.Schema,
			&fk.TableName,
			&fk.ConstraintName,
			&fk.ColumnName,
			&fk.OnDelete,
		); err != nil {
			return nil, fmt.Errorf("scanning foreign key: %w", err)
		}
		foreignKeys = append(foreignKeys, fk)
	}

	if rows.Err() != nil {
		return nil, fmt.Errorf("iterating foreign key rows: %w", rows.Err())
	}

	return foreignKeys, nil
}

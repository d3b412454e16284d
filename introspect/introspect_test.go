package introspect

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/ridoystarlord/dupfix/cleaner"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeRows serves canned rows through the pgx.Rows interface.
type fakeRows struct {
	rows [][]any
	pos  int
	err  error
}

func (r *fakeRows) Close()                                       {}
func (r *fakeRows) Err() error                                   { return r.err }
func (r *fakeRows) CommandTag() pgconn.CommandTag                { return pgconn.CommandTag{} }
func (r *fakeRows) FieldDescriptions() []pgconn.FieldDescription { return nil }
func (r *fakeRows) RawValues() [][]byte                          { return nil }
func (r *fakeRows) Conn() *pgx.Conn                              { return nil }

func (r *fakeRows) Next() bool {
	if r.pos >= len(r.rows) {
		return false
	}
	r.pos++
	return true
}

func (r *fakeRows) Values() ([]any, error) {
	return r.rows[r.pos-1], nil
}

func (r *fakeRows) Scan(dest ...any) error {
	row := r.rows[r.pos-1]
	if len(dest) != len(row) {
		return fmt.Errorf("scan: want %d values, got %d", len(row), len(dest))
	}
	for i, d := range dest {
		switch d := d.(type) {
		case *string:
			*d = row[i].(string)
		case *bool:
			*d = row[i].(bool)
		default:
			return fmt.Errorf("scan: unsupported destination %T", d)
		}
	}
	return nil
}

type fakeQuerier struct {
	columns     [][]any
	foreignKeys [][]any
	err         error
	args        map[string][]any
}

func (q *fakeQuerier) Query(_ context.Context, sql string, args ...any) (pgx.Rows, error) {
	if q.err != nil {
		return nil, q.err
	}
	if q.args == nil {
		q.args = make(map[string][]any)
	}
	switch sql {
	case columnsQuery:
		q.args["columns"] = args
		return &fakeRows{rows: q.columns}, nil
	case foreignKeysQuery:
		q.args["foreign_keys"] = args
		return &fakeRows{rows: q.foreignKeys}, nil
	}
	return nil, fmt.Errorf("unexpected query")
}

func TestInspect(t *testing.T) {
	q := &fakeQuerier{
		columns: [][]any{
			{"crm", "CustomerTags", "CustomerId1", "uuid", true},
			{"crm", "Settings", "Id1", "integer", false},
		},
		foreignKeys: [][]any{
			{"crm", "CustomerTags", "FK_CustomerTags_Customers_CustomerId", "CustomerId", "CASCADE"},
			{"crm", "CustomerTags", "FK_CustomerTags_Customers_CustomerId1", "CustomerId1", "NO ACTION"},
			{"crm", "Deals", "FK_Deals_Stages_StageId", "StageId", "RESTRICT"},
		},
	}
	schemas := []string{"crm"}

	report, err := Inspect(context.Background(), q, cleaner.DefaultRules(), schemas)

	require.NoError(t, err)
	require.Len(t, report.Columns, 1)
	assert.Equal(t, DuplicateColumn{
		Schema:     "crm",
		TableName:  "CustomerTags",
		ColumnName: "CustomerId1",
		DataType:   "uuid",
		IsNullable: true,
	}, report.Columns[0])

	require.Len(t, report.ForeignKeys, 1)
	assert.Equal(t, "FK_CustomerTags_Customers_CustomerId1", report.ForeignKeys[0].ConstraintName)
	require.Len(t, report.Cascades, 1)
	assert.Equal(t, "FK_CustomerTags_Customers_CustomerId", report.Cascades[0].ConstraintName)
	assert.False(t, report.Clean())

	assert.Equal(t, []any{schemas, "%Id1"}, q.args["columns"])
	assert.Equal(t, []any{schemas}, q.args["foreign_keys"])
}

func TestInspect_QueryError(t *testing.T) {
	q := &fakeQuerier{err: errors.New("connection reset")}

	_, err := Inspect(context.Background(), q, cleaner.DefaultRules(), []string{"public"})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "getting duplicate columns")
	assert.Contains(t, err.Error(), "connection reset")
}

func TestInspect_RowsError(t *testing.T) {
	q := &rowsErrQuerier{err: errors.New("broken stream")}

	_, err := Inspect(context.Background(), q, cleaner.DefaultRules(), []string{"public"})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "iterating column rows")
}

type rowsErrQuerier struct {
	err error
}

func (q *rowsErrQuerier) Query(context.Context, string, ...any) (pgx.Rows, error) {
	return &fakeRows{err: q.err}, nil
}

func TestLikePattern(t *testing.T) {
	assert.Equal(t, "%Id1", LikePattern("Id1"))
	assert.Equal(t, `%\_ref\%`, LikePattern("_ref%"))
	assert.Equal(t, `%a\\b`, LikePattern(`a\b`))
}

func TestClassifyForeignKeys(t *testing.T) {
	fks := []ExistingForeignKey{
		{ConstraintName: "FK_A_B_OwnerId1", ColumnName: "OwnerId1", OnDelete: "CASCADE"},
		{ConstraintName: "FK_A_B_OwnerId", ColumnName: "OwnerId", OnDelete: "NO ACTION"},
		{ConstraintName: "FK_A_B_ParentId", ColumnName: "ParentId", OnDelete: "cascade"},
		{ConstraintName: "fk_renamed", ColumnName: "ManagerId1", OnDelete: "SET NULL"},
	}

	dups, cascades := ClassifyForeignKeys(fks, cleaner.DefaultRules())

	assert.Equal(t, []ExistingForeignKey{fks[0], fks[3]}, dups)
	assert.Equal(t, []ExistingForeignKey{fks[0], fks[2]}, cascades)
}

func TestReportClean(t *testing.T) {
	assert.True(t, (&Report{}).Clean())
	assert.False(t, (&Report{Cascades: []ExistingForeignKey{{OnDelete: "CASCADE"}}}).Clean())
}

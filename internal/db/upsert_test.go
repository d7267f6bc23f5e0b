package db

import (
	"context"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var clinicUpsert = UpsertConfig{
	Table:        "clinics",
	Columns:      []string{"id", "name", "zip_code"},
	ConflictKeys: []string{"id"},
}

func TestBulkUpsert_EmptyRows(t *testing.T) {
	n, err := BulkUpsert(context.TODO(), nil, clinicUpsert, nil)
	assert.NoError(t, err)
	assert.Equal(t, int64(0), n)
}

func TestBulkUpsert_NoColumns(t *testing.T) {
	_, err := BulkUpsert(context.TODO(), nil, UpsertConfig{Table: "clinics", ConflictKeys: []string{"id"}}, [][]any{{1}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no columns specified")
}

func TestBulkUpsert_NoConflictKeys(t *testing.T) {
	_, err := BulkUpsert(context.TODO(), nil, UpsertConfig{Table: "clinics", Columns: []string{"id"}}, [][]any{{1}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no conflict keys specified")
}

func TestBulkUpsert_Success(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectBegin()
	mock.ExpectExec(`CREATE TEMP TABLE "_tmp_upsert_clinics"`).WillReturnResult(pgxmock.NewResult("CREATE", 0))
	mock.ExpectCopyFrom(pgx.Identifier{"_tmp_upsert_clinics"}, clinicUpsert.Columns).WillReturnResult(2)
	mock.ExpectExec(`INSERT INTO "clinics"`).WillReturnResult(pgxmock.NewResult("INSERT", 2))
	mock.ExpectCommit()

	var n int64
	err = InTx(context.Background(), mock, func(tx pgx.Tx) error {
		var err error
		n, err = BulkUpsert(context.Background(), tx, clinicUpsert, [][]any{{1, "A", "60611"}, {2, "B", ""}})
		return err
	})
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBulkUpsert_CopyError(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectBegin()
	mock.ExpectExec(`CREATE TEMP TABLE`).WillReturnResult(pgxmock.NewResult("CREATE", 0))
	mock.ExpectCopyFrom(pgx.Identifier{"_tmp_upsert_clinics"}, clinicUpsert.Columns).WillReturnError(fmt.Errorf("disk full"))
	mock.ExpectRollback()

	err = InTx(context.Background(), mock, func(tx pgx.Tx) error {
		_, err := BulkUpsert(context.Background(), tx, clinicUpsert, [][]any{{1, "A", "60611"}})
		return err
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "COPY into temp table for clinics")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpsertSQL(t *testing.T) {
	got := UpsertSQL(clinicUpsert, "_tmp")
	assert.Equal(t,
		`INSERT INTO "clinics" ("id", "name", "zip_code") SELECT "id", "name", "zip_code" FROM "_tmp" `+
			`ON CONFLICT ("id") DO UPDATE SET "name" = EXCLUDED."name", "zip_code" = EXCLUDED."zip_code"`,
		got)

	keysOnly := UpsertConfig{Table: "clinic.links", Columns: []string{"a", "b"}, ConflictKeys: []string{"a", "b"}}
	assert.Equal(t,
		`INSERT INTO "clinic"."links" ("a", "b") SELECT "a", "b" FROM "_tmp" ON CONFLICT ("a", "b") DO NOTHING`,
		UpsertSQL(keysOnly, "_tmp"))
}

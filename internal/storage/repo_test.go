package storage

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/RohanThakur-Ji/tabular-report-3/internal/revenue"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := Open(context.Background(), Config{Mode: ModePlain, Path: filepath.Join(t.TempDir(), "tabreport.db")})
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func sampleContracts() []revenue.Contract {
	churn := day(2021, 9, 1)
	return []revenue.Contract{
		{Name: "Globex", StartDate: day(2021, 6, 1), ChurnDate: &churn, PaymentTerm: revenue.TermMonthly, AmountARR: decimal.RequireFromString("1200.50"), ARR: decimal.Zero},
		{Name: "Acme", StartDate: day(2021, 1, 1), PaymentTerm: revenue.TermAnnual, AmountARR: decimal.NewFromInt(1200), ARR: decimal.NewFromInt(1200)},
		{Name: "Initech", StartDate: day(2021, 6, 1), PaymentTerm: revenue.TermQuarterly, AmountARR: decimal.NewFromInt(400), ARR: decimal.NewFromInt(400)},
	}
}

func TestMigrationsAreIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tabreport.db")
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		db, err := Open(ctx, Config{Mode: ModePlain, Path: path})
		require.NoError(t, err)

		var version int
		require.NoError(t, db.QueryRowContext(ctx, "SELECT version FROM schema_migrations WHERE id = 1").Scan(&version))
		assert.Equal(t, schemaVersion, version)
		require.NoError(t, db.Close())
	}
}

func TestNewerSchemaIsRejected(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tabreport.db")
	ctx := context.Background()

	db, err := Open(ctx, Config{Mode: ModePlain, Path: path})
	require.NoError(t, err)
	_, err = db.ExecContext(ctx, "UPDATE schema_migrations SET version = 99 WHERE id = 1")
	require.NoError(t, err)
	require.NoError(t, db.Close())

	_, err = Open(ctx, Config{Mode: ModePlain, Path: path})
	assert.ErrorContains(t, err, "newer than supported")
}

func TestContractsRepoSnapshotRoundTrip(t *testing.T) {
	ctx := context.Background()
	repo := NewContractsRepo(openTestDB(t))

	has, err := repo.HasAny(ctx)
	require.NoError(t, err)
	assert.False(t, has)

	require.NoError(t, repo.ReplaceSnapshot(ctx, sampleContracts(), time.Now()))

	has, err = repo.HasAny(ctx)
	require.NoError(t, err)
	assert.True(t, has)

	all, err := repo.AllRecords(ctx)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, []string{"Acme", "Globex", "Initech"}, names(all))

	assert.True(t, all[0].Active())
	require.NotNil(t, all[1].ChurnDate)
	assert.Equal(t, day(2021, 9, 1), *all[1].ChurnDate)
	assert.True(t, decimal.RequireFromString("1200.5").Equal(all[1].AmountARR))
	assert.Equal(t, revenue.TermQuarterly, all[2].PaymentTerm)

	total, err := repo.TotalRecords(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, total)
}

func TestContractsRepoReplaceDropsOldRows(t *testing.T) {
	ctx := context.Background()
	repo := NewContractsRepo(openTestDB(t))

	require.NoError(t, repo.ReplaceSnapshot(ctx, sampleContracts(), time.Now()))
	require.NoError(t, repo.ReplaceSnapshot(ctx, sampleContracts()[:1], time.Now()))

	all, err := repo.AllRecords(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"Globex"}, names(all))
}

func TestContractsRepoPaging(t *testing.T) {
	ctx := context.Background()
	repo := NewContractsRepo(openTestDB(t))
	require.NoError(t, repo.ReplaceSnapshot(ctx, sampleContracts(), time.Now()))

	page, err := repo.PagedRecords(ctx, 2, 0)
	require.NoError(t, err)
	assert.Equal(t, []string{"Acme", "Globex"}, names(page))

	page, err = repo.PagedRecords(ctx, 2, 2)
	require.NoError(t, err)
	assert.Equal(t, []string{"Initech"}, names(page))

	page, err = repo.PagedRecords(ctx, 2, 10)
	require.NoError(t, err)
	assert.Empty(t, page)

	_, err = repo.PagedRecords(ctx, 0, 0)
	assert.Error(t, err)
}

func TestSyncStateRepoBookkeeping(t *testing.T) {
	ctx := context.Background()
	repo := NewSyncStateRepo(openTestDB(t))

	_, ok, err := repo.Get(ctx, CollectionContracts)
	require.NoError(t, err)
	assert.False(t, ok)

	t0 := day(2026, 10, 1)
	require.NoError(t, repo.RecordAttempt(ctx, CollectionContracts, t0))
	require.NoError(t, repo.RecordSuccess(ctx, CollectionContracts, t0.Add(time.Second)))
	require.NoError(t, repo.RecordError(ctx, CollectionContracts, t0.Add(time.Minute), errors.New("boom")))

	state, ok, err := repo.Get(ctx, CollectionContracts)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "boom", state.LastErrorMsg)
	require.NotNil(t, state.LastSuccess)
	assert.True(t, state.LastSuccess.Equal(t0.Add(time.Second)))
	require.NotNil(t, state.LastAttempt)
	assert.True(t, state.LastAttempt.Equal(t0.Add(time.Minute)))

	assert.False(t, state.Stale(t0.Add(30*time.Second), time.Minute))
	assert.True(t, state.Stale(t0.Add(2*time.Minute), time.Minute))
	assert.True(t, SyncState{}.Stale(t0, time.Hour))

	require.NoError(t, repo.RecordAttempt(ctx, CollectionContracts, t0.Add(time.Hour)))
	state, _, err = repo.Get(ctx, CollectionContracts)
	require.NoError(t, err)
	assert.Empty(t, state.LastErrorMsg)
}

func TestAppConfigRepo(t *testing.T) {
	ctx := context.Background()
	repo := NewAppConfigRepo(openTestDB(t))

	require.NoError(t, repo.UpsertMany(ctx, map[string]string{"a": "1", "b": "2"}))
	require.NoError(t, repo.UpsertMany(ctx, map[string]string{"a": "3"}))

	got, err := repo.GetMany(ctx, "a", "b", "c")
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"a": "3", "b": "2"}, got)

	require.NoError(t, repo.Delete(ctx, "a", "c"))
	_, ok, err := repo.Get(ctx, "a")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestReplaceSnapshotRollsBackOnInsertError(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM contracts")).WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectExec("INSERT INTO contracts").WillReturnError(errors.New("disk full"))
	mock.ExpectRollback()

	err = NewContractsRepo(db).ReplaceSnapshot(context.Background(), sampleContracts(), time.Now())
	assert.ErrorContains(t, err, "disk full")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTotalRecordsWrapsQueryError(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM contracts")).WillReturnError(sql.ErrConnDone)

	_, err = NewContractsRepo(db).TotalRecords(context.Background())
	assert.ErrorIs(t, err, sql.ErrConnDone)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestScanRejectsCorruptAmounts(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	rows := sqlmock.NewRows([]string{"name", "contract_start_date", "churn_date", "payment_term", "amount_arr", "arr"}).
		AddRow("Acme", "2021-01-01", nil, "Annual", "not-a-number", "0")
	mock.ExpectQuery("SELECT name, contract_start_date").WillReturnRows(rows)

	_, err = NewContractsRepo(db).AllRecords(context.Background())
	assert.ErrorContains(t, err, "amount_arr")
}

func names(cs []revenue.Contract) []string {
	out := make([]string, len(cs))
	for i, c := range cs {
		out[i] = c.Name
	}
	return out
}

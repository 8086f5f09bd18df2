package db

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func openMemory(t testing.TB) *Queries {
	sqldb, err := Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { sqldb.Close() })
	return New(sqldb)
}

func TestUpsertFilingDoesNotDuplicate(t *testing.T) {
	ctx := context.Background()
	qry := openMemory(t)

	params := UpsertFilingParams{
		Filing:     "/filings/1/2/a.pdf",
		FileName:   "a.pdf",
		Company:    "Acme Mining Corp.",
		CompanyUrl: "http://example.test/DisplayProfile.do?issuerNo=1",
		Date:       "Jan 5 2016",
		Time:       "10:00:00",
		Type:       "Annual report",
		TosForm:    "http://example.test/GetFile.do",
		Format:     "PDF",
		Size:       "120 K",
		UpdatedAt:  1,
	}
	require.NoError(t, qry.UpsertFiling(ctx, params))

	params.Size = "121 K"
	params.UpdatedAt = 2
	require.NoError(t, qry.UpsertFiling(ctx, params))

	count, err := qry.CountFilings(ctx)
	require.NoError(t, err)
	require.Equal(t, int64(1), count)

	stored, err := qry.GetFiling(ctx, params.Filing)
	require.NoError(t, err)
	require.Equal(t, "121 K", stored.Size)
	require.Equal(t, int64(2), stored.UpdatedAt)

	filings, err := qry.ListFilings(ctx, 10)
	require.NoError(t, err)
	require.Len(t, filings, 1)
}

func TestCompanyLookup(t *testing.T) {
	ctx := context.Background()
	qry := openMemory(t)

	_, err := qry.GetCompany(ctx, "http://example.test/c")
	require.ErrorIs(t, err, sql.ErrNoRows)

	require.NoError(t, qry.UpsertCompany(ctx, UpsertCompanyParams{
		Url:        "http://example.test/c",
		Name:       "Acme",
		Attributes: `{"stock_symbol":"ACM"}`,
		UpdatedAt:  1,
	}))

	company, err := qry.GetCompany(ctx, "http://example.test/c")
	require.NoError(t, err)
	require.Equal(t, "Acme", company.Name)

	companies, err := qry.ListCompanies(ctx, 10)
	require.NoError(t, err)
	require.Len(t, companies, 1)
}

func TestOpenCreatesParentDirectory(t *testing.T) {
	dsn := filepath.Join(t.TempDir(), "nested", "state.db")
	sqldb, err := Open(dsn)
	require.NoError(t, err)
	defer sqldb.Close()

	count, err := New(sqldb).CountFilings(context.Background())
	require.NoError(t, err)
	require.Zero(t, count)
}

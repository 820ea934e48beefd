package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/RohanThakur-Ji/tabular-report-3/internal/recordsapi"
	"github.com/RohanThakur-Ji/tabular-report-3/internal/revenue"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

var now = time.Date(2026, 10, 15, 12, 0, 0, 0, time.UTC)

type memStore struct {
	contracts []revenue.Contract
	err       error
}

func (m *memStore) AllRecords(context.Context) ([]revenue.Contract, error) {
	return m.contracts, m.err
}

func (m *memStore) PagedRecords(_ context.Context, limit, offset int) ([]revenue.Contract, error) {
	if m.err != nil {
		return nil, m.err
	}
	if offset > len(m.contracts) {
		offset = len(m.contracts)
	}
	end := min(offset+limit, len(m.contracts))
	return m.contracts[offset:end], nil
}

func (m *memStore) TotalRecords(context.Context) (int, error) {
	return len(m.contracts), m.err
}

func fixture() *memStore {
	churn := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	return &memStore{contracts: []revenue.Contract{
		{
			Name:        "acme",
			StartDate:   time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
			PaymentTerm: revenue.TermMonthly,
			AmountARR:   decimal.NewFromInt(1200),
			ARR:         decimal.NewFromInt(1200),
		},
		{
			Name:        "globex",
			StartDate:   time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC),
			ChurnDate:   &churn,
			PaymentTerm: revenue.TermQuarterly,
			AmountARR:   decimal.NewFromInt(400),
			ARR:         decimal.NewFromInt(400),
		},
		{
			Name:        "initech",
			StartDate:   time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC),
			PaymentTerm: revenue.TermAnnual,
			AmountARR:   decimal.NewFromInt(5000),
			ARR:         decimal.NewFromInt(5000),
		},
	}}
}

func newTestServer(t *testing.T, store Store, cfg Config) *httptest.Server {
	t.Helper()
	cfg.Now = func() time.Time { return now }
	ts := httptest.NewServer(New(store, cfg).Router())
	t.Cleanup(ts.Close)
	return ts
}

func TestRecordsRoundTripThroughClient(t *testing.T) {
	store := fixture()
	ts := newTestServer(t, store, Config{})
	client := recordsapi.New(ts.URL+"/api", "", time.Second)
	ctx := context.Background()

	require.NoError(t, client.Ping(ctx))

	total, err := client.TotalRecords(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, total)

	all, err := client.AllRecords(ctx)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Nil(t, all[0].ChurnDate)
	require.NotNil(t, all[1].ChurnDate)
	assert.True(t, all[1].ChurnDate.Equal(*store.contracts[1].ChurnDate))
	assert.True(t, all[2].AmountARR.Equal(decimal.NewFromInt(5000)))

	page, err := client.PagedRecords(ctx, 2, 2)
	require.NoError(t, err)
	require.Len(t, page, 1)
	assert.Equal(t, "initech", page[0].Name)
}

func TestTokenRequired(t *testing.T) {
	ts := newTestServer(t, fixture(), Config{Token: "s3cret"})
	ctx := context.Background()

	anon := recordsapi.New(ts.URL+"/api", "", time.Second)
	require.NoError(t, anon.Ping(ctx), "ping stays open")

	_, err := anon.TotalRecords(ctx)
	var statusErr *recordsapi.StatusError
	require.True(t, errors.As(err, &statusErr))
	assert.Equal(t, http.StatusUnauthorized, statusErr.StatusCode)

	_, err = recordsapi.New(ts.URL+"/api", "wrong", time.Second).TotalRecords(ctx)
	require.Error(t, err)

	total, err := recordsapi.New(ts.URL+"/api", "s3cret", time.Second).TotalRecords(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, total)
}

func TestRecordsPageRejectsBadQuery(t *testing.T) {
	ts := newTestServer(t, fixture(), Config{})
	for _, q := range []string{"limit=0", "limit=abc", "limit=501", "offset=-1"} {
		resp, err := http.Get(ts.URL + "/api/records/page?" + q)
		require.NoError(t, err)
		resp.Body.Close()
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode, q)
	}
}

func TestStoreFailureIsInternalError(t *testing.T) {
	ts := newTestServer(t, &memStore{err: errors.New("disk gone")}, Config{})
	resp, err := http.Get(ts.URL + "/api/records")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
}

func getReport(t *testing.T, url string) (int, ReportResponse, errorResponse) {
	t.Helper()
	resp, err := http.Get(url)
	require.NoError(t, err)
	defer resp.Body.Close()

	var ok ReportResponse
	var bad errorResponse
	if resp.StatusCode == http.StatusOK {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&ok))
	} else {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&bad))
	}
	return resp.StatusCode, ok, bad
}

func TestReportFirstWindow(t *testing.T) {
	ts := newTestServer(t, fixture(), Config{})

	status, got, _ := getReport(t, ts.URL+"/api/report")
	require.Equal(t, http.StatusOK, status)

	require.Len(t, got.Columns, 12)
	assert.Equal(t, "Jan-2025", got.Columns[0])
	assert.Equal(t, "Dec-2025", got.Columns[11])
	assert.Equal(t, "CAD", got.Currency)
	assert.Equal(t, 1, got.TotalPages)
	require.Len(t, got.Rows, 3)
	assert.Equal(t, "100", got.Rows[0].Values["Jan-2025"].String())
	require.Len(t, got.Aggregates, 3)
	assert.Equal(t, revenue.TotalCashFlowName, got.Aggregates[0].Name)
}

func TestReportWithRange(t *testing.T) {
	ts := newTestServer(t, fixture(), Config{})

	status, got, _ := getReport(t, ts.URL+"/api/report?start=Jun-2025&end=Sep-2025")
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, []string{"Jun-2025", "Jul-2025", "Aug-2025", "Sep-2025"}, got.Columns)
	assert.Equal(t, "Jun-2025", got.Start)
	assert.Equal(t, "Sep-2025", got.End)

	globex := got.Rows[1]
	assert.Equal(t, "globex", globex.Name)
	assert.Equal(t, "100", globex.Values["Jun-2025"].String())
	assert.Equal(t, "100", globex.Values["Sep-2025"].String())
	_, ok := globex.Values["Jul-2025"]
	assert.False(t, ok)
}

func TestReportRejectsBadRange(t *testing.T) {
	ts := newTestServer(t, fixture(), Config{})

	status, _, bad := getReport(t, ts.URL+"/api/report?start=Sep-2025&end=Jun-2025")
	require.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "invalid range", bad.Error)
	assert.Len(t, bad.Violations, 1)

	status, _, bad = getReport(t, ts.URL+"/api/report?start=garbage&end=Jan-1990")
	require.Equal(t, http.StatusBadRequest, status)
	assert.Len(t, bad.Violations, 2)
}

func TestReportXLSX(t *testing.T) {
	ts := newTestServer(t, fixture(), Config{})

	resp, err := http.Get(ts.URL + "/api/report.xlsx")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Content-Disposition"), "tabreport.xlsx")

	f, err := excelize.OpenReader(resp.Body)
	require.NoError(t, err)
	defer f.Close()
	assert.Equal(t, []string{"MRR", "Cash Flow"}, f.GetSheetList())
}

func TestRateLimit(t *testing.T) {
	ts := newTestServer(t, fixture(), Config{RateLimit: 1})

	first, err := http.Get(ts.URL + "/api/ping")
	require.NoError(t, err)
	first.Body.Close()
	assert.Equal(t, http.StatusOK, first.StatusCode)

	second, err := http.Get(ts.URL + "/api/ping")
	require.NoError(t, err)
	second.Body.Close()
	assert.Equal(t, http.StatusTooManyRequests, second.StatusCode)
}

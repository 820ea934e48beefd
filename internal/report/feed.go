package report

import (
	"time"

	"github.com/RohanThakur-Ji/tabular-report-3/internal/revenue"
)

// DefaultFeedLimit is the number of contracts requested per MRR page.
const DefaultFeedLimit = 10

type PageRequest struct {
	Limit  int
	Offset int
}

// Feed tracks the incrementally loaded contract table. At most one page is in
// flight at a time, and loading stops once the offset reaches the known total.
type Feed struct {
	limit      int
	offset     int
	total      int
	totalKnown bool
	loading    bool
	exhausted  bool
	contracts  []revenue.Contract
	err        error
}

func NewFeed(limit int) Feed {
	if limit <= 0 {
		limit = DefaultFeedLimit
	}
	return Feed{limit: limit}
}

// WithTotal records the remote record count.
func (f Feed) WithTotal(total int) Feed {
	f.total = total
	f.totalKnown = true
	if f.offset > 0 && f.offset >= total {
		f.exhausted = true
	}
	return f
}

// Begin returns the next page to request. ok is false while a request is in
// flight or once every record has been loaded. The first page is always
// requested, even before the total is known.
func (f Feed) Begin() (Feed, PageRequest, bool) {
	if f.loading || f.exhausted {
		return f, PageRequest{}, false
	}
	if f.offset > 0 && f.totalKnown && f.offset >= f.total {
		f.exhausted = true
		return f, PageRequest{}, false
	}
	f.loading = true
	return f, PageRequest{Limit: f.limit, Offset: f.offset}, true
}

// Complete appends a fetched page and advances the offset.
func (f Feed) Complete(page []revenue.Contract) Feed {
	f.loading = false
	f.err = nil
	f.contracts = append(append([]revenue.Contract(nil), f.contracts...), page...)
	f.offset += f.limit
	if len(page) < f.limit || (f.totalKnown && f.offset >= f.total) {
		f.exhausted = true
	}
	return f
}

// Fail records a fetch error and drops the loaded rows. The page is not retried.
func (f Feed) Fail(err error) Feed {
	f.loading = false
	f.err = err
	f.contracts = nil
	return f
}

func (f Feed) Limit() int { return f.limit }

func (f Feed) Offset() int { return f.offset }

// Total returns the known record count; ok is false until WithTotal is called.
func (f Feed) Total() (total int, ok bool) { return f.total, f.totalKnown }

func (f Feed) Loading() bool { return f.loading }

func (f Feed) Exhausted() bool { return f.exhausted }

func (f Feed) Err() error { return f.err }

func (f Feed) Contracts() []revenue.Contract {
	return append([]revenue.Contract(nil), f.contracts...)
}

// Rows expands the loaded contracts as of now.
func (f Feed) Rows(now time.Time) []revenue.Row {
	return revenue.ContractRows(f.contracts, now)
}

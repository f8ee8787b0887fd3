package writer

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"
	"time"

	cbigquery "cloud.google.com/go/bigquery"
	"google.golang.org/api/googleapi"

	"github.com/angelmondragon/tokoflow-backend/internal/analytics/types"
)

func TestNewWriterValidation(t *testing.T) {
	if _, err := New(nil, Config{Table: "order_events"}); err == nil {
		t.Fatal("expected error when client missing")
	}
	if _, err := New(&fakeInserter{}, Config{Table: " "}); err == nil {
		t.Fatal("expected error when table missing")
	}
}

func TestEncodeJSON(t *testing.T) {
	nj, err := EncodeJSON(map[string]any{"foo": "bar"})
	if err != nil || !nj.Valid {
		t.Fatalf("expected valid json, got %+v (%v)", nj, err)
	}

	nj, err = EncodeJSON(nil)
	if err != nil || nj.Valid {
		t.Fatalf("expected null json for nil, got %+v (%v)", nj, err)
	}

	raw := json.RawMessage(`{"foo":"baz"}`)
	nj, err = EncodeJSON(raw)
	if err != nil || nj.JSONVal != string(raw) {
		t.Fatalf("expected raw json passed through, got %s (%v)", nj.JSONVal, err)
	}
}

func TestWriterRetriesOnTransientError(t *testing.T) {
	writer, fake := newWriterWithFakeInserter(t)
	fake.responses = []error{
		&googleapi.Error{Code: http.StatusServiceUnavailable},
		nil,
	}

	if err := writer.InsertFact(context.Background(), types.OrderFact{EventID: "1"}); err != nil {
		t.Fatalf("unexpected error writing row: %v", err)
	}
	if len(fake.calls) != 2 {
		t.Fatalf("expected two insert attempts, got %d", len(fake.calls))
	}
	if fake.calls[1].table != "order_events" {
		t.Fatalf("unexpected table %s", fake.calls[1].table)
	}
	if len(writer.buffer) != 0 {
		t.Fatal("expected buffer to be empty after success")
	}
}

func TestWriterStopsOnPermanentError(t *testing.T) {
	writer, fake := newWriterWithFakeInserter(t)
	fake.responses = []error{&googleapi.Error{Code: http.StatusBadRequest}}

	if err := writer.InsertFact(context.Background(), types.OrderFact{EventID: "1"}); err == nil {
		t.Fatal("expected error")
	}
	if len(fake.calls) != 1 {
		t.Fatalf("expected a single attempt, got %d", len(fake.calls))
	}
	if len(writer.buffer) != 1 {
		t.Fatal("failed rows should stay buffered")
	}
}

func TestWriterSetsInsertIDs(t *testing.T) {
	writer, fake := newWriterWithFakeInserter(t)

	if err := writer.InsertFact(context.Background(), types.OrderFact{EventID: "evt-9"}); err != nil {
		t.Fatalf("insert: %v", err)
	}
	saver, ok := fake.calls[0].rows[0].(*cbigquery.StructSaver)
	if !ok {
		t.Fatalf("expected StructSaver, got %T", fake.calls[0].rows[0])
	}
	if saver.InsertID != "evt-9" {
		t.Fatalf("expected insert id evt-9, got %q", saver.InsertID)
	}
}

func TestWriterBatchingAndFlush(t *testing.T) {
	writer, fake := newWriterWithFakeInserter(t)
	writer.batchSize = 2

	if err := writer.InsertFact(context.Background(), types.OrderFact{EventID: "1"}); err != nil {
		t.Fatalf("first insert: %v", err)
	}
	if len(fake.calls) != 0 {
		t.Fatalf("expected no insert before batch full, got %d", len(fake.calls))
	}
	if err := writer.InsertFact(context.Background(), types.OrderFact{EventID: "2"}); err != nil {
		t.Fatalf("second insert: %v", err)
	}
	if len(fake.calls) != 1 || len(fake.calls[0].rows) != 2 {
		t.Fatalf("expected one two-row insert, got %+v", fake.calls)
	}

	if err := writer.InsertFact(context.Background(), types.OrderFact{EventID: "3"}); err != nil {
		t.Fatalf("third insert: %v", err)
	}
	if err := writer.Flush(context.Background()); err != nil {
		t.Fatalf("flush: %v", err)
	}
	if len(fake.calls) != 2 {
		t.Fatalf("expected flush to insert, got %d calls", len(fake.calls))
	}
}

func TestIsRetryableBigQueryError(t *testing.T) {
	transient := cbigquery.PutMultiError{
		{Errors: cbigquery.MultiError{&googleapi.Error{Code: http.StatusServiceUnavailable}}},
	}
	if !isRetryableBigQueryError(transient) {
		t.Fatal("expected transient row errors to be retryable")
	}
	mixed := cbigquery.PutMultiError{
		{Errors: cbigquery.MultiError{&googleapi.Error{Code: http.StatusBadRequest}}},
	}
	if isRetryableBigQueryError(mixed) {
		t.Fatal("invalid rows should not be retried")
	}
}

type insertCall struct {
	table string
	rows  []any
}

type fakeInserter struct {
	responses []error
	calls     []insertCall
	index     int
}

func (f *fakeInserter) InsertRows(_ context.Context, table string, rows []any) error {
	f.calls = append(f.calls, insertCall{table: table, rows: append([]any(nil), rows...)})
	var err error
	if f.index < len(f.responses) {
		err = f.responses[f.index]
	}
	f.index++
	return err
}

func newWriterWithFakeInserter(t *testing.T) (*BigQueryWriter, *fakeInserter) {
	t.Helper()
	fake := &fakeInserter{}
	writer, err := New(fake, Config{
		Table: "order_events",
		RetryPolicy: RetryPolicy{
			InitialBackoff: time.Millisecond,
			MaximumBackoff: time.Millisecond,
		},
	})
	if err != nil {
		t.Fatalf("construct writer: %v", err)
	}
	return writer, fake
}

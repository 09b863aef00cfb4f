package batch

import (
	"context"
	"encoding/json"
	"errors"
	"slices"
	"sync/atomic"
	"testing"
	"time"
)

func TestParseStringOrArray(t *testing.T) {
	tests := []struct {
		name    string
		input   any
		want    []string
		wantErr bool
	}{
		{name: "single string", input: "msg123", want: []string{"msg123"}},
		{name: "array of strings", input: []any{"id1", "id2", "id3"}, want: []string{"id1", "id2", "id3"}},
		{name: "string slice", input: []string{"id1", "id2"}, want: []string{"id1", "id2"}},
		{name: "nil input", input: nil, wantErr: true},
		{name: "empty string", input: "", wantErr: true},
		{name: "empty array", input: []any{}, wantErr: true},
		{name: "array with non-string", input: []any{"id1", 123, "id3"}, wantErr: true},
		{name: "array with empty string", input: []any{"id1", "", "id3"}, wantErr: true},
		{name: "invalid type", input: 123, wantErr: true},
		{name: "JSON string array", input: `["id1", "id2", "id3"]`, want: []string{"id1", "id2", "id3"}},
		{name: "JSON string single element array", input: `["single"]`, want: []string{"single"}},
		{name: "JSON string empty array", input: `[]`, wantErr: true},
		{name: "invalid JSON string", input: `[invalid json`, want: []string{`[invalid json`}},
		{name: "string starting with bracket", input: `[test] file.pdf`, want: []string{`[test] file.pdf`}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseStringOrArray(tt.input, "messageIds")
			if (err != nil) != tt.wantErr {
				t.Errorf("ParseStringOrArray() error = %v, wantErr %v", err, tt.wantErr)
				return
			}
			if !tt.wantErr && !slices.Equal(got, tt.want) {
				t.Errorf("ParseStringOrArray() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestSummarize(t *testing.T) {
	results := []Result{
		NewSuccessResult("id1", "archived"),
		NewSuccessResult("id2", "archived"),
		NewErrorResult("id3", errors.New("not found")),
	}

	br := Summarize(results)
	if br.Total != 3 || br.Successful != 2 || br.Failed != 1 {
		t.Errorf("Summarize() = %+v, want total 3, successful 2, failed 1", br)
	}

	empty := Summarize(nil)
	if empty.Results == nil {
		t.Error("Summarize(nil).Results should be an empty slice")
	}
}

func TestFormatResults(t *testing.T) {
	results := []Result{
		{ID: "id1", Status: StatusSuccess, Result: "Operation successful"},
		{ID: "id2", Status: StatusSuccess, Result: "Operation successful"},
		{ID: "id3", Status: StatusError, Error: "Something went wrong"},
	}

	output := FormatResults(results)

	var br BatchResult
	if err := json.Unmarshal([]byte(output), &br); err != nil {
		t.Fatalf("Failed to parse output JSON: %v", err)
	}
	if br.Total != 3 {
		t.Errorf("Total = %d, want 3", br.Total)
	}
	if br.Successful != 2 {
		t.Errorf("Successful = %d, want 2", br.Successful)
	}
	if br.Failed != 1 {
		t.Errorf("Failed = %d, want 1", br.Failed)
	}
	if len(br.Results) != 3 {
		t.Errorf("len(Results) = %d, want 3", len(br.Results))
	}
}

func TestProcess(t *testing.T) {
	ids := []string{"id1", "id2", "id3"}

	fn := func(_ context.Context, id string) (string, error) {
		if id == "id2" {
			return "", errors.New("failed to process id2")
		}
		return "processed " + id, nil
	}

	results := Process(context.Background(), ids, 2, fn)

	if len(results) != 3 {
		t.Fatalf("len(results) = %d, want 3", len(results))
	}
	want := []Result{
		{ID: "id1", Status: StatusSuccess, Result: "processed id1"},
		{ID: "id2", Status: StatusError, Error: "failed to process id2"},
		{ID: "id3", Status: StatusSuccess, Result: "processed id3"},
	}
	if !slices.Equal(results, want) {
		t.Errorf("Process() = %+v, want %+v", results, want)
	}
}

func TestProcess_PreservesOrder(t *testing.T) {
	ids := make([]string, 20)
	for i := range ids {
		ids[i] = string(rune('a' + i))
	}

	// Earlier ids finish last.
	fn := func(_ context.Context, id string) (string, error) {
		time.Sleep(time.Duration('z'-id[0]) * time.Millisecond)
		return id, nil
	}

	results := Process(context.Background(), ids, 8, fn)
	for i, r := range results {
		if r.ID != ids[i] || r.Result != ids[i] {
			t.Errorf("results[%d] = %+v, want id %s", i, r, ids[i])
		}
	}
}

func TestProcess_ConcurrencyLimit(t *testing.T) {
	var inFlight, peak atomic.Int32
	fn := func(_ context.Context, id string) (string, error) {
		n := inFlight.Add(1)
		defer inFlight.Add(-1)
		for {
			p := peak.Load()
			if n <= p || peak.CompareAndSwap(p, n) {
				break
			}
		}
		time.Sleep(5 * time.Millisecond)
		return id, nil
	}

	ids := []string{"1", "2", "3", "4", "5", "6", "7", "8", "9", "10"}
	Process(context.Background(), ids, 3, fn)

	if got := peak.Load(); got > 3 {
		t.Errorf("peak concurrency = %d, want at most 3", got)
	}
}

func TestProcess_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var calls atomic.Int32
	fn := func(_ context.Context, id string) (string, error) {
		calls.Add(1)
		return id, nil
	}

	results := Process(ctx, []string{"id1", "id2"}, 0, fn)
	if calls.Load() != 0 {
		t.Errorf("fn called %d times, want 0", calls.Load())
	}
	for _, r := range results {
		if r.Status != StatusError || r.Error != context.Canceled.Error() {
			t.Errorf("result = %+v, want canceled error", r)
		}
	}
}

func TestNewSuccessResult(t *testing.T) {
	result := NewSuccessResult("test-id", "test message")

	if result.ID != "test-id" {
		t.Errorf("ID = %s, want test-id", result.ID)
	}
	if result.Status != StatusSuccess {
		t.Errorf("Status = %s, want success", result.Status)
	}
	if result.Result != "test message" {
		t.Errorf("Result = %s, want 'test message'", result.Result)
	}
	if result.Error != "" {
		t.Errorf("Error should be empty, got %s", result.Error)
	}
}

func TestNewErrorResult(t *testing.T) {
	result := NewErrorResult("test-id", errors.New("test error"))

	if result.ID != "test-id" {
		t.Errorf("ID = %s, want test-id", result.ID)
	}
	if result.Status != StatusError {
		t.Errorf("Status = %s, want error", result.Status)
	}
	if result.Error != "test error" {
		t.Errorf("Error = %s, want 'test error'", result.Error)
	}
	if result.Result != "" {
		t.Errorf("Result should be empty, got %s", result.Result)
	}
}

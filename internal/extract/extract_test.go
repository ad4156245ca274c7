package extract

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"testing"
	"time"

	"google.golang.org/api/googleapi"
	"google.golang.org/genai"

	"talentmatch/internal/types"
)

func TestAwaitUpload(t *testing.T) {
	tests := []struct {
		name    string
		states  []genai.FileState // states returned by successive polls
		initial genai.FileState
		wantErr bool
	}{
		{
			name:    "active immediately",
			initial: genai.FileStateActive,
		},
		{
			name:    "processing then active",
			initial: genai.FileStateProcessing,
			states:  []genai.FileState{genai.FileStateProcessing, genai.FileStateActive},
		},
		{
			name:    "processing then failed",
			initial: genai.FileStateProcessing,
			states:  []genai.FileState{genai.FileStateFailed},
			wantErr: true,
		},
		{
			name:    "failed immediately",
			initial: genai.FileStateFailed,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			polls := 0
			get := func(_ context.Context, name string) (*genai.File, error) {
				state := tt.states[min(polls, len(tt.states)-1)]
				polls++
				return &genai.File{Name: name, State: state, URI: "uri", MIMEType: "application/pdf"}, nil
			}

			file, err := awaitUpload(context.Background(),
				&genai.File{Name: "files/x", State: tt.initial},
				get, time.Millisecond, 10)

			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error, got nil")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if file.State != genai.FileStateActive {
				t.Errorf("expected active file, got %s", file.State)
			}
		})
	}
}

func TestAwaitUploadPollLimit(t *testing.T) {
	polls := 0
	get := func(_ context.Context, name string) (*genai.File, error) {
		polls++
		return &genai.File{Name: name, State: genai.FileStateProcessing}, nil
	}

	_, err := awaitUpload(context.Background(),
		&genai.File{Name: "files/stuck", State: genai.FileStateProcessing},
		get, time.Millisecond, 5)

	if err == nil {
		t.Fatal("expected poll limit error, got nil")
	}
	if polls > 5 {
		t.Errorf("expected at most 5 polls, got %d", polls)
	}
}

func TestAwaitUploadPollError(t *testing.T) {
	get := func(_ context.Context, _ string) (*genai.File, error) {
		return nil, fmt.Errorf("network down")
	}

	_, err := awaitUpload(context.Background(),
		&genai.File{Name: "files/x", State: genai.FileStateProcessing},
		get, time.Millisecond, 5)
	if err == nil {
		t.Fatal("expected poll error to propagate")
	}
}

func TestAwaitUploadContextCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	get := func(_ context.Context, name string) (*genai.File, error) {
		return &genai.File{Name: name, State: genai.FileStateProcessing}, nil
	}

	_, err := awaitUpload(ctx,
		&genai.File{Name: "files/x", State: genai.FileStateProcessing},
		get, time.Hour, 5)
	if err != context.Canceled {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func TestAssignIntakeFields(t *testing.T) {
	record := types.Record{"name": "Ada"}

	out := AssignIntakeFields(record)

	if id := out.Identity(types.KeyID); id == "" {
		t.Error("expected a generated id")
	}
	if v, ok := out[types.KeyMeetingID]; !ok || v != nil {
		t.Errorf("expected explicit null meeting_id, got %v (present=%v)", v, ok)
	}
	if v, ok := out[types.KeyStatus]; !ok || v != nil {
		t.Errorf("expected explicit null status, got %v (present=%v)", v, ok)
	}
	if out.String("name") != "Ada" {
		t.Error("extracted fields must survive intake stamping")
	}

	// Each intake gets its own id.
	other := AssignIntakeFields(types.Record{})
	if out.Identity(types.KeyID) == other.Identity(types.KeyID) {
		t.Error("two intakes produced the same id")
	}
}

func TestAssignIntakeFieldsNilRecord(t *testing.T) {
	out := AssignIntakeFields(nil)
	if out == nil || out.Identity(types.KeyID) == "" {
		t.Error("nil record should still produce a stamped record")
	}
}

type timeoutErr struct{}

func (timeoutErr) Error() string   { return "timeout" }
func (timeoutErr) Timeout() bool   { return true }
func (timeoutErr) Temporary() bool { return true }

var _ net.Error = timeoutErr{}

func TestIsRetryableError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"network timeout", timeoutErr{}, true},
		{"rate limited", &googleapi.Error{Code: http.StatusTooManyRequests}, true},
		{"server error", &googleapi.Error{Code: http.StatusInternalServerError}, true},
		{"bad gateway", &googleapi.Error{Code: http.StatusBadGateway}, true},
		{"unavailable", &googleapi.Error{Code: http.StatusServiceUnavailable}, true},
		{"gateway timeout", &googleapi.Error{Code: http.StatusGatewayTimeout}, true},
		{"unauthorized", &googleapi.Error{Code: http.StatusUnauthorized}, false},
		{"bad request", &googleapi.Error{Code: http.StatusBadRequest}, false},
		{"plain error", fmt.Errorf("boom"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := isRetryableError(tt.err); got != tt.want {
				t.Errorf("isRetryableError(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}

package worker

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cuongbtq/clipfetch/internal/worker/domain"
)

func TestJobFromDelivery(t *testing.T) {
	tests := []struct {
		name      string
		body      string
		want      domain.Job
		wantErr   bool
		errString string
	}{
		{
			name: "full payload",
			body: `{"id":"abc123","start":5,"end":15.5,"name":"my_clip"}`,
			want: domain.Job{
				VideoID:  "abc123",
				Start:    5 * time.Second,
				End:      15500 * time.Millisecond,
				Trimmed:  true,
				DestName: "my_clip",
			},
		},
		{
			name: "id only defaults to whole video",
			body: `{"id":"abc123"}`,
			want: domain.Job{VideoID: "abc123", DestName: "abc123"},
		},
		{
			name: "start without end gets default clip length and range name",
			body: `{"id":"abc123","start":5}`,
			want: domain.Job{
				VideoID:  "abc123",
				Start:    5 * time.Second,
				End:      5*time.Second + domain.DefaultClipLength,
				Trimmed:  true,
				DestName: "abc123_5000_15000",
			},
		},
		{
			name:      "missing id",
			body:      `{"start":5}`,
			wantErr:   true,
			errString: "missing id",
		},
		{
			name:      "not json",
			body:      `id=abc123`,
			wantErr:   true,
			errString: "invalid job JSON",
		},
		{
			name:      "end without start",
			body:      `{"id":"abc123","end":15}`,
			wantErr:   true,
			errString: "end offset without start",
		},
		{
			name:      "end before start",
			body:      `{"id":"abc123","start":15,"end":5}`,
			wantErr:   true,
			errString: "not after start",
		},
		{
			name:      "negative start",
			body:      `{"id":"abc123","start":-2}`,
			wantErr:   true,
			errString: "negative start",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			job, err := jobFromDelivery([]byte(tt.body))
			if tt.wantErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.errString)
			} else {
				require.NoError(t, err)
				assert.Equal(t, tt.want, job)
			}
		})
	}
}

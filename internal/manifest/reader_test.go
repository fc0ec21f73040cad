package manifest

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cuongbtq/clipfetch/internal/worker/domain"
)

func TestRead_Valid(t *testing.T) {
	jobs, err := Read("testdata/valid.csv")
	require.NoError(t, err)
	require.Len(t, jobs, 4)

	// abc123,5,15 → trimmed clip, default name carries the range
	assert.Equal(t, "abc123", jobs[0].VideoID)
	assert.True(t, jobs[0].Trimmed)
	assert.Equal(t, 5*time.Second, jobs[0].Start)
	assert.Equal(t, 15*time.Second, jobs[0].End)
	assert.Equal(t, "abc123_5000_15000", jobs[0].DestName)
	assert.Equal(t, 2, jobs[0].Row)

	// no offsets → whole video, name defaults to the id
	assert.Equal(t, "dQw4w9WgXcQ", jobs[1].VideoID)
	assert.False(t, jobs[1].Trimmed)
	assert.Equal(t, "dQw4w9WgXcQ", jobs[1].DestName)

	// start without end → default clip length, explicit name kept
	assert.Equal(t, "xyz789", jobs[2].VideoID)
	assert.True(t, jobs[2].Trimmed)
	assert.Equal(t, 90*time.Second, jobs[2].Start)
	assert.Equal(t, 90*time.Second+domain.DefaultClipLength, jobs[2].End)
	assert.Equal(t, "intro_clip", jobs[2].DestName)

	// HH:MM:SS.fraction offsets
	assert.Equal(t, "longform", jobs[3].VideoID)
	assert.Equal(t, time.Hour+2*time.Minute+3*time.Second+500*time.Millisecond, jobs[3].Start)
	assert.Equal(t, time.Hour+2*time.Minute+30*time.Second, jobs[3].End)
}

func TestRead_Errors(t *testing.T) {
	tests := []struct {
		name      string
		path      string
		errString string
	}{
		{"missing id column", "testdata/missing_id.csv", `required column "id" not found`},
		{"unparsable offset", "testdata/bad_offset.csv", "bad start offset"},
		{"destination collision", "testdata/collision.csv", "collides with line"},
		{"wrong field count", "testdata/ragged.csv", "wrong number of fields"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			jobs, err := Read(tt.path)
			require.Error(t, err)
			assert.Nil(t, jobs)

			var parseErr *ParseError
			require.ErrorAs(t, err, &parseErr)
			assert.Contains(t, err.Error(), tt.errString)
		})
	}
}

func TestRead_FileNotFound(t *testing.T) {
	_, err := Read("testdata/nope.csv")
	require.Error(t, err)

	// unreadable file is an I/O error, not a ParseError
	var parseErr *ParseError
	assert.False(t, errors.As(err, &parseErr))
	assert.Contains(t, err.Error(), "failed to open manifest")
}

func TestParseOffset(t *testing.T) {
	tests := []struct {
		input   string
		want    time.Duration
		wantErr bool
	}{
		{"0", 0, false},
		{"90", 90 * time.Second, false},
		{"5.5", 5500 * time.Millisecond, false},
		{"1:30", 90 * time.Second, false},
		{"01:02:03", time.Hour + 2*time.Minute + 3*time.Second, false},
		{"-5", 0, true},
		{"abc", 0, true},
		{"1:2:3:4", 0, true},
		{"1:xx", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := parseOffset(tt.input)
			if tt.wantErr {
				require.Error(t, err)
			} else {
				require.NoError(t, err)
				assert.Equal(t, tt.want, got)
			}
		})
	}
}

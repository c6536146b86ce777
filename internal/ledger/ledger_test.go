package ledger

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestLedger(t *testing.T) *Ledger {
	t.Helper()
	l := New(t.TempDir(), "", nil)
	l.now = func() time.Time {
		return time.Date(2025, 7, 13, 21, 30, 0, 0, time.UTC)
	}
	return l
}

func TestAppend_createsFileAndRecord(t *testing.T) {
	l := newTestLedger(t)

	require.NoError(t, l.Append("alice", "abc123", "https://short.icu/abc123", "https://img/poster.jpg", 15))

	history, err := l.Load("alice")
	require.NoError(t, err)
	assert.Equal(t, "alice", history.Username)
	assert.Equal(t, 1, history.Records)
	require.Len(t, history.Videos, 1)

	rec := history.Videos[0]
	assert.Equal(t, "abc123", rec.Video)
	assert.Equal(t, "https://short.icu/abc123", rec.URL)
	assert.Equal(t, "https://img/poster.jpg", rec.Poster)
	assert.Equal(t, "https://short.icu/abc123?thumbnail=https://img/poster.jpg", rec.URLIframe)
	assert.Equal(t, "15s", rec.Duration)
	assert.Equal(t, rec.Title+".mp4", rec.File)
}

func TestAppend_prependInvariant(t *testing.T) {
	l := newTestLedger(t)

	ids := []string{"first", "second", "third"}
	for _, id := range ids {
		require.NoError(t, l.Append("bob", id, "https://v/"+id, "", 60))
	}

	history, err := l.Load("bob")
	require.NoError(t, err)
	assert.Equal(t, 3, history.Records)
	require.Len(t, history.Videos, 3)
	// Newest record is always at index 0.
	assert.Equal(t, "third", history.Videos[0].Video)
	assert.Equal(t, "second", history.Videos[1].Video)
	assert.Equal(t, "first", history.Videos[2].Video)
}

func TestAppend_initializesFromTemplate(t *testing.T) {
	dir := t.TempDir()
	template := filepath.Join(dir, "rec.json")
	require.NoError(t, os.WriteFile(template, []byte(`{"username":"","records":0,"videos":[]}`), 0o644))

	l := New(filepath.Join(dir, "db"), template, nil)
	require.NoError(t, l.Append("carol", "v1", "https://v/v1", "", 90))

	history, err := l.Load("carol")
	require.NoError(t, err)
	assert.Equal(t, "carol", history.Username)
	assert.Equal(t, 1, history.Records)
}

func TestAppend_missingTemplateFails(t *testing.T) {
	dir := t.TempDir()
	l := New(dir, filepath.Join(dir, "nope.json"), nil)

	err := l.Append("dave", "v1", "https://v/v1", "", 30)
	assert.Error(t, err)
}

func TestLoad_corruptFileFails(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "eve"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "eve", "rec.json"), []byte("{broken"), 0o644))

	l := New(dir, "", nil)
	_, err := l.Load("eve")
	assert.Error(t, err)
}

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		seconds int
		want    string
	}{
		{0, "0s"},
		{15, "15s"},
		{60, "1m"},
		{61, "1m1s"},
		{3600, "1h"},
		{3723, "1h2m3s"},
		{7200, "2h"},
		{3660, "1h1m"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, FormatDuration(tt.seconds), "seconds=%d", tt.seconds)
	}
}

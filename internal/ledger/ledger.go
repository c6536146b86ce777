// Package ledger maintains the per-user rec.json recording history.
//
// Each user has a single JSON file that is read, modified and rewritten as a
// whole. The recording engine guarantees at most one in-flight task per
// username, so there is never more than one writer per file inside the
// process.
package ledger

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"
)

// recTimezone is the timezone all ledger timestamps are rendered in.
const recTimezone = "America/Sao_Paulo"

// VideoRecord is one completed recording in a user's history.
type VideoRecord struct {
	Video     string `json:"video"`
	Title     string `json:"title"`
	File      string `json:"file"`
	URL       string `json:"url"`
	Poster    string `json:"poster"`
	URLIframe string `json:"urlIframe"`
	Date      string `json:"data"`
	Time      string `json:"horario"`
	Duration  string `json:"tempo"`
}

// UserHistory is the full contents of a user's rec.json.
// Videos are ordered newest first and Records always equals len(Videos).
type UserHistory struct {
	Username string        `json:"username"`
	Records  int           `json:"records"`
	Videos   []VideoRecord `json:"videos"`
}

// Ledger appends recording metadata to per-user rec.json files.
type Ledger struct {
	dbPath       string
	templatePath string
	location     *time.Location
	now          func() time.Time
	logger       *zap.Logger
}

// New creates a Ledger rooted at dbPath. templatePath may be empty, in which
// case new user files start from an empty history.
func New(dbPath, templatePath string, logger *zap.Logger) *Ledger {
	if logger == nil {
		logger = zap.NewNop()
	}
	loc, err := time.LoadLocation(recTimezone)
	if err != nil {
		logger.Warn("timezone unavailable, using local time", zap.String("tz", recTimezone), zap.Error(err))
		loc = time.Local
	}
	return &Ledger{
		dbPath:       dbPath,
		templatePath: templatePath,
		location:     loc,
		now:          time.Now,
		logger:       logger,
	}
}

// Append prepends a new record to the user's history and rewrites the file.
// durationSeconds is the measured recording length in whole seconds.
func (l *Ledger) Append(username, videoID, videoURL, posterURL string, durationSeconds int) error {
	userDir := filepath.Join(l.dbPath, username)
	recPath := filepath.Join(userDir, "rec.json")

	if err := os.MkdirAll(userDir, 0o755); err != nil {
		return fmt.Errorf("create user dir: %w", err)
	}

	history, err := l.loadOrInit(recPath, username)
	if err != nil {
		return err
	}

	now := l.now().In(l.location)
	date := now.Format("02-01-2006")
	clock := now.Format("15-04")
	dur := FormatDuration(durationSeconds)

	title := fmt.Sprintf("%s_%s_%s_%s", username, date, clock, dur)
	record := VideoRecord{
		Video:     videoID,
		Title:     title,
		File:      title + ".mp4",
		URL:       videoURL,
		Poster:    posterURL,
		URLIframe: videoURL + "?thumbnail=" + posterURL,
		Date:      date,
		Time:      clock,
		Duration:  dur,
	}

	// Newest record first.
	history.Videos = append([]VideoRecord{record}, history.Videos...)
	history.Records = len(history.Videos)

	data, err := json.MarshalIndent(history, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal history: %w", err)
	}
	if err := os.WriteFile(recPath, data, 0o644); err != nil {
		return fmt.Errorf("write rec.json: %w", err)
	}

	l.logger.Info("ledger updated",
		zap.String("username", username),
		zap.String("video", videoID),
		zap.Int("records", history.Records))
	return nil
}

// Load returns the current history for a user, or an empty one if the user
// has no rec.json yet.
func (l *Ledger) Load(username string) (*UserHistory, error) {
	recPath := filepath.Join(l.dbPath, username, "rec.json")
	return l.loadOrInit(recPath, username)
}

func (l *Ledger) loadOrInit(recPath, username string) (*UserHistory, error) {
	data, err := os.ReadFile(recPath)
	if os.IsNotExist(err) {
		return l.initHistory(username)
	}
	if err != nil {
		return nil, fmt.Errorf("read rec.json: %w", err)
	}

	var history UserHistory
	if err := json.Unmarshal(data, &history); err != nil {
		return nil, fmt.Errorf("parse rec.json: %w", err)
	}
	return &history, nil
}

// initHistory builds a fresh history, cloning the template file when one is
// configured.
func (l *Ledger) initHistory(username string) (*UserHistory, error) {
	history := &UserHistory{Username: username, Videos: []VideoRecord{}}
	if l.templatePath == "" {
		return history, nil
	}

	data, err := os.ReadFile(l.templatePath)
	if err != nil {
		return nil, fmt.Errorf("read template: %w", err)
	}
	if err := json.Unmarshal(data, history); err != nil {
		return nil, fmt.Errorf("parse template: %w", err)
	}
	history.Username = username
	if history.Videos == nil {
		history.Videos = []VideoRecord{}
	}
	history.Records = len(history.Videos)
	return history, nil
}

// FormatDuration renders whole seconds as a compact human-readable string,
// e.g. 3723 -> "1h2m3s". Zero-valued units are omitted; 0 renders as "0s".
func FormatDuration(seconds int) string {
	hours := seconds / 3600
	minutes := (seconds % 3600) / 60
	secs := seconds % 60

	var b strings.Builder
	if hours > 0 {
		fmt.Fprintf(&b, "%dh", hours)
	}
	if minutes > 0 {
		fmt.Fprintf(&b, "%dm", minutes)
	}
	if secs > 0 || b.Len() == 0 {
		fmt.Fprintf(&b, "%ds", secs)
	}
	return b.String()
}

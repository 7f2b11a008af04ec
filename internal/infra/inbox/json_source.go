// Package inbox reads the day's raw notification records from disk.
package inbox

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/sirupsen/logrus"

	"financial_digest/internal/domain/digest"
)

// JSONSource reads <dir>/<YYYY-MM-DD>.json. The file holds either a bare
// array of records or an object with a "notifications" or "emails" array.
type JSONSource struct {
	dir    string
	logger *logrus.Entry
}

func NewJSONSource(dir string, logger *logrus.Entry) *JSONSource {
	return &JSONSource{dir: dir, logger: logger.WithField("component", "inbox")}
}

type envelope struct {
	Notifications []map[string]any `json:"notifications"`
	Emails        []map[string]any `json:"emails"`
}

// Fetch returns the records of date. A missing file means an empty day.
func (s *JSONSource) Fetch(ctx context.Context, date time.Time) ([]map[string]any, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	path := s.Path(date)

	raw, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			s.logger.WithField("path", path).Info("No inbox file for date")
			return nil, nil
		}
		return nil, fmt.Errorf("reading inbox file: %w", err)
	}

	records, err := decode(raw)
	if err != nil {
		return nil, fmt.Errorf("decoding inbox file %s: %w", path, err)
	}
	s.logger.WithField("path", path).Debugf("Read %d records", len(records))
	return records, nil
}

// Path is the inbox file of date.
func (s *JSONSource) Path(date time.Time) string {
	return filepath.Join(s.dir, digest.DateKey(date)+".json")
}

func decode(raw []byte) ([]map[string]any, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return nil, nil
	}

	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()

	if raw[0] == '[' {
		var records []map[string]any
		if err := dec.Decode(&records); err != nil {
			return nil, err
		}
		return records, nil
	}

	var env envelope
	if err := dec.Decode(&env); err != nil {
		return nil, err
	}
	if env.Notifications != nil {
		return env.Notifications, nil
	}
	return env.Emails, nil
}

package ledger

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gofrs/flock"

	"ticketsmith/internal/logging"
	"ticketsmith/internal/services"
)

// Header is the first row of every ledger file.
var Header = []string{"sonar_issue_key", "jira_ticket_key", "created_date"}

// ErrLocked reports that another process holds the ledger writer lock.
var ErrLocked = errors.New("ledger is locked by another process")

// Entry records that a finding produced a ticket.
type Entry struct {
	FindingKey string    `json:"sonar_issue_key"`
	TicketKey  string    `json:"jira_ticket_key"`
	CreatedAt  time.Time `json:"created_date"`
}

// Store is an append-only CSV ledger mapping finding keys to ticket keys.
// Lookups scan the whole file; the expected volume is hundreds of rows.
type Store struct {
	path   string
	logger *slog.Logger
	lock   *flock.Flock
	now    func() time.Time
}

// Option customizes a Store.
type Option func(*Store)

// WithClock overrides the timestamp source used by Record.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		if now != nil {
			s.now = now
		}
	}
}

// Open returns a Store backed by path. The file is created lazily.
func Open(path string, logger *slog.Logger, opts ...Option) (*Store, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, services.Wrap(services.ErrConfiguration, "ledger", "open", "path required", nil)
	}
	s := &Store{
		path:   path,
		logger: logging.NewComponentLogger(logger, "ledger"),
		lock:   flock.New(path + ".lock"),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Path returns the ledger file location.
func (s *Store) Path() string {
	return s.path
}

// TryLock takes the advisory writer lock without blocking. It returns
// ErrLocked when another process already holds it.
func (s *Store) TryLock() error {
	ok, err := s.lock.TryLock()
	if err != nil {
		return services.Wrap(services.ErrWrite, "ledger", "lock", s.lock.Path(), err)
	}
	if !ok {
		return fmt.Errorf("%w (%s)", ErrLocked, s.lock.Path())
	}
	return nil
}

// Lock takes the advisory writer lock, blocking until it is available.
func (s *Store) Lock() error {
	if err := s.lock.Lock(); err != nil {
		return services.Wrap(services.ErrWrite, "ledger", "lock", s.lock.Path(), err)
	}
	return nil
}

// Unlock releases the writer lock.
func (s *Store) Unlock() error {
	return s.lock.Unlock()
}

// Exists reports whether key has been recorded.
func (s *Store) Exists(key string) (bool, error) {
	_, found, err := s.Lookup(key)
	return found, err
}

// Lookup returns the first entry recorded for key.
func (s *Store) Lookup(key string) (Entry, bool, error) {
	key = strings.TrimSpace(key)
	if key == "" {
		return Entry{}, false, services.Wrap(services.ErrValidation, "ledger", "lookup", "finding key required", nil)
	}
	entries, err := s.List()
	if err != nil {
		return Entry{}, false, err
	}
	var (
		first   Entry
		matches int
	)
	for _, entry := range entries {
		if entry.FindingKey != key {
			continue
		}
		if matches == 0 {
			first = entry
		}
		matches++
	}
	if matches > 1 {
		logging.WarnWithContext(s.logger, "duplicate ledger entries for finding",
			"ledger_duplicate_key",
			logging.String(logging.FieldFindingKey, key),
			logging.Int("match_count", matches),
			logging.String("ticket_key", first.TicketKey),
			logging.String(logging.FieldErrorHint, "remove the extra rows from "+s.path),
			logging.String(logging.FieldImpact, "the first recorded ticket is used"),
		)
	}
	return first, matches > 0, nil
}

// List returns every entry in file order.
func (s *Store) List() ([]Entry, error) {
	if err := s.ensureInitialized(); err != nil {
		return nil, err
	}
	file, err := os.Open(s.path)
	if err != nil {
		return nil, fmt.Errorf("open ledger: %w", err)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	var entries []Entry
	for line := 1; ; line++ {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read ledger %s: %w", s.path, err)
		}
		if line == 1 && isHeader(record) {
			continue
		}
		if len(record) < 2 || strings.TrimSpace(record[0]) == "" {
			s.logger.Debug("skipping malformed ledger row", logging.Int("line", line))
			continue
		}
		entry := Entry{
			FindingKey: strings.TrimSpace(record[0]),
			TicketKey:  strings.TrimSpace(record[1]),
		}
		if len(record) > 2 {
			entry.CreatedAt = parseTimestamp(record[2])
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

// Record appends an entry for key. Recording a key twice is rejected.
func (s *Store) Record(key, ticketKey string) (Entry, error) {
	key = strings.TrimSpace(key)
	ticketKey = strings.TrimSpace(ticketKey)
	if key == "" || ticketKey == "" {
		return Entry{}, services.Wrap(services.ErrValidation, "ledger", "record", "finding key and ticket key required", nil)
	}
	existing, found, err := s.Lookup(key)
	if err != nil {
		return Entry{}, err
	}
	if found {
		return existing, services.Wrap(
			services.ErrValidation,
			"ledger",
			"record",
			fmt.Sprintf("%s already recorded as %s", key, existing.TicketKey),
			nil,
		)
	}

	entry := Entry{FindingKey: key, TicketKey: ticketKey, CreatedAt: s.now().UTC().Truncate(time.Second)}
	if err := s.appendRow([]string{entry.FindingKey, entry.TicketKey, entry.CreatedAt.Format(time.RFC3339)}); err != nil {
		return Entry{}, services.Wrap(services.ErrWrite, "ledger", "record", s.path, err)
	}
	s.logger.Info("recorded ticket for finding",
		logging.String(logging.FieldFindingKey, key),
		logging.String("ticket_key", ticketKey),
	)
	return entry, nil
}

func (s *Store) ensureInitialized() error {
	if _, err := os.Stat(s.path); err == nil {
		return nil
	} else if !errors.Is(err, fs.ErrNotExist) {
		return services.Wrap(services.ErrWrite, "ledger", "init", s.path, err)
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return services.Wrap(services.ErrWrite, "ledger", "init", "create directory", err)
	}
	file, err := os.OpenFile(s.path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if errors.Is(err, fs.ErrExist) {
		return nil
	}
	if err != nil {
		return services.Wrap(services.ErrWrite, "ledger", "init", s.path, err)
	}
	writer := csv.NewWriter(file)
	if err := writer.Write(Header); err != nil {
		file.Close()
		return services.Wrap(services.ErrWrite, "ledger", "init", "write header", err)
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		file.Close()
		return services.Wrap(services.ErrWrite, "ledger", "init", "write header", err)
	}
	if err := file.Close(); err != nil {
		return services.Wrap(services.ErrWrite, "ledger", "init", s.path, err)
	}
	s.logger.Debug("initialized ledger", logging.String("path", s.path))
	return nil
}

func (s *Store) appendRow(row []string) error {
	file, err := os.OpenFile(s.path, os.O_RDWR|os.O_APPEND, 0o644)
	if err != nil {
		return err
	}
	if err := ensureTrailingNewline(file); err != nil {
		file.Close()
		return err
	}
	writer := csv.NewWriter(file)
	if err := writer.Write(row); err != nil {
		file.Close()
		return err
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		file.Close()
		return err
	}
	if err := file.Sync(); err != nil {
		file.Close()
		return err
	}
	return file.Close()
}

// ensureTrailingNewline keeps hand-edited files without a final newline from
// merging the new row into the last one.
func ensureTrailingNewline(file *os.File) error {
	info, err := file.Stat()
	if err != nil {
		return err
	}
	if info.Size() == 0 {
		return nil
	}
	last := make([]byte, 1)
	if _, err := file.ReadAt(last, info.Size()-1); err != nil {
		return err
	}
	if last[0] == '\n' {
		return nil
	}
	_, err = file.Write([]byte{'\n'})
	return err
}

func isHeader(record []string) bool {
	return len(record) > 0 && strings.EqualFold(strings.TrimSpace(record[0]), Header[0])
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999",
	"2006-01-02 15:04:05.999999",
	"2006-01-02T15:04:05",
	"2006-01-02",
}

func parseTimestamp(value string) time.Time {
	value = strings.TrimSpace(value)
	for _, layout := range timestampLayouts {
		if ts, err := time.Parse(layout, value); err == nil {
			return ts
		}
	}
	return time.Time{}
}

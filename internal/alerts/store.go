package alerts

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"OmniTrade/internal/model"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ErrNotFound is returned when an alert ID does not exist in the document.
var ErrNotFound = errors.New("alert not found")

// Store persists the alerts document as one JSON file. It does no locking:
// every save is a full overwrite and the last writer wins.
type Store struct {
	Path string
	Now  func() time.Time
}

// NewStore creates a store backed by the given file.
func NewStore(path string) *Store {
	return &Store{Path: path, Now: time.Now}
}

// LoadAll reads the alerts document. A missing or unparsable file yields an
// empty document: corrupt state means "no alerts yet", never an error.
func (s *Store) LoadAll() model.AlertsDocument {
	data, err := os.ReadFile(s.Path)
	if err != nil {
		return model.AlertsDocument{}
	}
	var doc model.AlertsDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return model.AlertsDocument{}
	}
	return doc
}

// Active returns pointers to the pending alerts of doc, in load order.
// Mutating them mutates doc.
func Active(doc *model.AlertsDocument) []*model.PriceAlert {
	var active []*model.PriceAlert
	for i := range doc.Alerts {
		if !doc.Alerts[i].Triggered {
			active = append(active, &doc.Alerts[i])
		}
	}
	return active
}

// SaveAll overwrites the file with doc, creating the directory if needed.
func (s *Store) SaveAll(doc model.AlertsDocument) error {
	if doc.Alerts == nil {
		doc.Alerts = []model.PriceAlert{}
	}
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal alerts: %w", err)
	}
	dir := filepath.Dir(s.Path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create alerts dir: %w", err)
	}

	// Readers of the file never see a half-written document.
	tmp, err := os.CreateTemp(dir, ".alerts-*.json")
	if err != nil {
		return fmt.Errorf("create temp alerts file: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("write alerts: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("close alerts: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.Path); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("replace alerts file: %w", err)
	}
	return nil
}

// Add validates and appends a new pending alert, returning it.
func (s *Store) Add(symbol string, cond model.Condition, target decimal.Decimal, exchange string) (model.PriceAlert, error) {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	if symbol == "" {
		return model.PriceAlert{}, fmt.Errorf("symbol is required")
	}
	if !cond.Valid() {
		return model.PriceAlert{}, fmt.Errorf("condition must be %q or %q, got %q", model.ConditionAbove, model.ConditionBelow, cond)
	}
	if !target.IsPositive() {
		return model.PriceAlert{}, fmt.Errorf("target price must be positive, got %s", target)
	}

	alert := model.PriceAlert{
		ID:          uuid.NewString(),
		Symbol:      symbol,
		Exchange:    strings.ToLower(strings.TrimSpace(exchange)),
		Condition:   cond,
		TargetPrice: target,
		CreatedAt:   model.NewMillis(s.Now()),
	}

	doc := s.LoadAll()
	doc.Alerts = append(doc.Alerts, alert)
	if err := s.SaveAll(doc); err != nil {
		return model.PriceAlert{}, err
	}
	return alert, nil
}

// Remove deletes the alert with the given ID.
func (s *Store) Remove(id string) error {
	doc := s.LoadAll()
	for i := range doc.Alerts {
		if doc.Alerts[i].ID == id {
			doc.Alerts = append(doc.Alerts[:i], doc.Alerts[i+1:]...)
			return s.SaveAll(doc)
		}
	}
	return fmt.Errorf("%w: %s", ErrNotFound, id)
}

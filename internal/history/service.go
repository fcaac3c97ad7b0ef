package history

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/zombor/mrz-scanner/internal/scanner"
)

// IDGenerator generates unique IDs for scan records
type IDGenerator interface {
	Generate() string
}

// TimeSource provides the current time
type TimeSource interface {
	Now() time.Time
}

// defaultIDGenerator generates IDs using UnixNano timestamp
type defaultIDGenerator struct{}

func (g *defaultIDGenerator) Generate() string {
	return fmt.Sprintf("%d", time.Now().UnixNano())
}

// defaultTimeSource provides the current time
type defaultTimeSource struct{}

func (t *defaultTimeSource) Now() time.Time {
	return time.Now()
}

// Service persists completed scan outcomes and their captured frames.
type Service struct {
	db          DB
	storage     Storage
	idGenerator IDGenerator
	timeSource  TimeSource
}

// NewService creates a new Service with default ID generator and time source
func NewService(db DB, storage Storage) *Service {
	return &Service{
		db:          db,
		storage:     storage,
		idGenerator: &defaultIDGenerator{},
		timeSource:  &defaultTimeSource{},
	}
}

// NewServiceWithDeps creates a new Service with custom dependencies for testing
func NewServiceWithDeps(db DB, storage Storage, idGen IDGenerator, timeSrc TimeSource) *Service {
	return &Service{
		db:          db,
		storage:     storage,
		idGenerator: idGen,
		timeSource:  timeSrc,
	}
}

// RecordResult stores one terminal scan result. The captured frame, when
// present, is copied into frame storage before the session's borrowed
// reference goes away.
func (s *Service) RecordResult(result *scanner.Result) (*Record, error) {
	id := s.idGenerator.Generate()

	record := &Record{
		ID:        id,
		Status:    result.Status,
		Message:   result.Message,
		Data:      result.Data,
		CreatedAt: s.timeSource.Now(),
	}

	if result.Status == scanner.StatusSuccess && result.OriginalImage != nil {
		saved, err := s.storage.Save(fmt.Sprintf("%s.png", id), result.OriginalImage)
		if err != nil {
			return nil, fmt.Errorf("saving frame: %w", err)
		}
		record.FrameFilename = saved
	}

	if err := s.db.SaveScan(record); err != nil {
		if record.FrameFilename != "" {
			s.storage.Delete(record.FrameFilename)
		}
		return nil, fmt.Errorf("saving scan record: %w", err)
	}

	return record, nil
}

// GetScan retrieves a scan record by ID
func (s *Service) GetScan(id string) (*Record, error) {
	record, err := s.db.GetScan(id)
	if err != nil {
		return nil, fmt.Errorf("getting scan: %w", err)
	}
	return record, nil
}

// ListScans returns all scan records
func (s *Service) ListScans() ([]*Record, error) {
	records, err := s.db.ListScans()
	if err != nil {
		return nil, fmt.Errorf("listing scans: %w", err)
	}
	return records, nil
}

// DeleteScan removes a scan record and its stored frame
func (s *Service) DeleteScan(id string) error {
	record, err := s.db.GetScan(id)
	if err != nil {
		return fmt.Errorf("getting scan for deletion: %w", err)
	}

	if record.FrameFilename != "" {
		if err := s.storage.Delete(record.FrameFilename); err != nil {
			// Continue with the database deletion regardless
			slog.Warn("Failed to delete frame", "filename", record.FrameFilename, "error", err)
		}
	}

	if err := s.db.DeleteScan(id); err != nil {
		return fmt.Errorf("deleting scan record: %w", err)
	}
	return nil
}

// GetFrame retrieves the captured frame for a scan
func (s *Service) GetFrame(id string) ([]byte, error) {
	record, err := s.db.GetScan(id)
	if err != nil {
		return nil, fmt.Errorf("getting scan: %w", err)
	}
	if record.FrameFilename == "" {
		return nil, fmt.Errorf("scan %s has no stored frame", id)
	}

	data, err := s.storage.Get(record.FrameFilename)
	if err != nil {
		return nil, fmt.Errorf("getting frame: %w", err)
	}
	return data, nil
}

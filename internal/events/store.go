package events

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"camgate/internal/database"
)

// Event is one confirmed person sighting. Events are immutable once
// created; nothing here evicts them, the list grows unbounded.
type Event struct {
	ID         string    `json:"id"`
	CameraID   string    `json:"cam_id"`
	Timestamp  time.Time `json:"ts"`
	ImagePath  string    `json:"img_path"`
	Confidence float64   `json:"confidence"`
}

// Store keeps the ordered event list, most recent first, with a durable
// copy in the database.
type Store struct {
	mu     sync.RWMutex
	events []Event
	db     *database.Database
	log    *zap.Logger
}

// NewStore creates a store and loads persisted events, newest first.
func NewStore(db *database.Database, log *zap.Logger) (*Store, error) {
	s := &Store{db: db, log: log}
	if db != nil {
		records, err := db.ListEvents()
		if err != nil {
			return nil, err
		}
		for _, rec := range records {
			s.events = append(s.events, Event{
				ID:         rec.ID,
				CameraID:   rec.CameraID,
				Timestamp:  rec.Timestamp,
				ImagePath:  rec.ImagePath,
				Confidence: rec.Confidence,
			})
		}
		log.Info("loaded events from database", zap.Int("count", len(s.events)))
	}
	return s, nil
}

// Insert creates a new event at the head of the list and persists it
// before returning.
func (s *Store) Insert(cameraID, imagePath string, confidence float64) (Event, error) {
	event := Event{
		ID:         uuid.NewString(),
		CameraID:   cameraID,
		Timestamp:  time.Now(),
		ImagePath:  imagePath,
		Confidence: confidence,
	}

	s.mu.Lock()
	s.events = append([]Event{event}, s.events...)
	s.mu.Unlock()

	if s.db != nil {
		if err := s.db.SaveEvent(&database.EventRecord{
			ID:         event.ID,
			CameraID:   event.CameraID,
			Timestamp:  event.Timestamp,
			ImagePath:  event.ImagePath,
			Confidence: event.Confidence,
		}); err != nil {
			return Event{}, err
		}
	}
	return event, nil
}

// List returns a copy of the event list, most recent first.
func (s *Store) List() []Event {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Event, len(s.events))
	copy(out, s.events)
	return out
}

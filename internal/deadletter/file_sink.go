package deadletter

import (
	"context"
	"encoding/json"
	"os"
	"sync"

	"github.com/RedHatInsights/identity-event-forwarder/internal/delivery"
)

// FileSink appends one JSON document per line and syncs after each record.
type FileSink struct {
	mu   sync.Mutex
	file *os.File
}

func NewFileSink(path string) (*FileSink, error) {
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0600)
	if err != nil {
		return nil, err
	}

	return &FileSink{file: f}, nil
}

func (s *FileSink) Record(ctx context.Context, dl delivery.DeadLetter) error {
	line, err := json.Marshal(dl)
	if err != nil {
		return err
	}
	line = append(line, '\n')

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.file == nil {
		return os.ErrClosed
	}

	if _, err := s.file.Write(line); err != nil {
		return err
	}

	return s.file.Sync()
}

func (s *FileSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.file == nil {
		return nil
	}

	err := s.file.Close()
	s.file = nil
	return err
}

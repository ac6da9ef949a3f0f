package storage

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"automanKit/internal/model"
)

// JSONL appends events and decode errors to two JSON lines files.
// An empty errors path discards decode errors.
type JSONL struct {
	eventsPath string
	errorsPath string
	mu         sync.Mutex
}

func NewJSONL(eventsPath, errorsPath string) *JSONL {
	return &JSONL{eventsPath: eventsPath, errorsPath: errorsPath}
}

// PutEvents appends a batch of events.
func (s *JSONL) PutEvents(_ context.Context, events []model.PositionEvent) error {
	records := make([]interface{}, 0, len(events))
	for _, event := range events {
		records = append(records, event)
	}
	return s.appendLines(s.eventsPath, records)
}

// PutDecodeErrors appends a batch of decode errors.
func (s *JSONL) PutDecodeErrors(_ context.Context, errs []model.DecodeError) error {
	if s.errorsPath == "" {
		return nil
	}
	records := make([]interface{}, 0, len(errs))
	for _, e := range errs {
		records = append(records, e)
	}
	return s.appendLines(s.errorsPath, records)
}

func (s *JSONL) appendLines(path string, records []interface{}) error {
	if len(records) == 0 {
		return nil
	}

	dir := filepath.Dir(path)
	if dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create output dir: %w", err)
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("open output file: %w", err)
	}
	defer file.Close()

	writer := bufio.NewWriter(file)
	for _, record := range records {
		line, err := json.Marshal(record)
		if err != nil {
			return fmt.Errorf("marshal record: %w", err)
		}
		if _, err := writer.Write(line); err != nil {
			return fmt.Errorf("write record: %w", err)
		}
		if err := writer.WriteByte('\n'); err != nil {
			return fmt.Errorf("write newline: %w", err)
		}
	}
	if err := writer.Flush(); err != nil {
		return fmt.Errorf("flush output: %w", err)
	}
	return nil
}

// ReadEvents loads every event previously written to path.
func ReadEvents(path string) ([]model.PositionEvent, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open events file: %w", err)
	}
	defer file.Close()

	var events []model.PositionEvent
	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for scanner.Scan() {
		if len(scanner.Bytes()) == 0 {
			continue
		}
		var event model.PositionEvent
		if err := json.Unmarshal(scanner.Bytes(), &event); err != nil {
			return nil, fmt.Errorf("parse event line %d: %w", len(events)+1, err)
		}
		events = append(events, event)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read events file: %w", err)
	}
	return events, nil
}

var _ EventSink = (*JSONL)(nil)

package store

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// SchemaVersion is the current persistence schema version.
const SchemaVersion = 1

// Record is one notification id that has already been alerted.
type Record struct {
	ID     int64 `json:"id"`
	SeenAt int64 `json:"seen_at"`
}

// Persistence defines the interface for seen-history storage.
type Persistence interface {
	// Load reads all records from storage.
	Load() ([]Record, error)

	// AppendBatch adds records to storage.
	AppendBatch(rs []Record) error

	// Rewrite replaces the entire storage file (used after prune).
	Rewrite(rs []Record) error

	// Close releases file handles and resources.
	Close() error
}

// schemaHeader is the first line of the JSONL file.
type schemaHeader struct {
	SchemaVersion int   `json:"cmsnotifs_schema_version"`
	CreatedAt     int64 `json:"created_at"`
}

// ErrPersistenceClosed is returned when operations are attempted on a closed persistence.
var ErrPersistenceClosed = errors.New("persistence is closed")

// JSONLPersistence implements Persistence using a JSONL file.
type JSONLPersistence struct {
	mu     sync.Mutex
	path   string
	file   *os.File
	closed bool
}

// NewJSONLPersistence opens path for appending, creating it and its parent
// directory if needed.
func NewJSONLPersistence(path string) (*JSONLPersistence, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, fmt.Errorf("failed to create directory %s: %w", dir, err)
	}

	file, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0600)
	if err != nil {
		return nil, fmt.Errorf("failed to open file %s: %w", path, err)
	}

	p := &JSONLPersistence{path: path, file: file}

	info, err := file.Stat()
	if err != nil {
		_ = file.Close()
		return nil, err
	}
	if info.Size() == 0 {
		if err := p.writeHeader(); err != nil {
			_ = file.Close()
			return nil, err
		}
	}
	return p, nil
}

func (p *JSONLPersistence) writeHeader() error {
	data, err := json.Marshal(schemaHeader{
		SchemaVersion: SchemaVersion,
		CreatedAt:     time.Now().Unix(),
	})
	if err != nil {
		return err
	}
	_, err = p.file.Write(append(data, '\n'))
	return err
}

// Load reads all records. Malformed lines are skipped.
func (p *JSONLPersistence) Load() ([]Record, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed || p.file == nil {
		return nil, ErrPersistenceClosed
	}

	if _, err := p.file.Seek(0, io.SeekStart); err != nil {
		return nil, fmt.Errorf("seek %s: %w", p.path, err)
	}

	var records []Record
	scanner := bufio.NewScanner(p.file)

	lineNum := 0
	for scanner.Scan() {
		lineNum++
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		if lineNum == 1 {
			var header schemaHeader
			if err := json.Unmarshal(line, &header); err == nil && header.SchemaVersion > 0 {
				if header.SchemaVersion > SchemaVersion {
					return nil, fmt.Errorf("unsupported schema version %d (max: %d)",
						header.SchemaVersion, SchemaVersion)
				}
				continue
			}
		}

		var r Record
		if err := json.Unmarshal(line, &r); err != nil || r.ID == 0 {
			continue
		}
		records = append(records, r)
	}

	if err := scanner.Err(); err != nil {
		return records, fmt.Errorf("error reading file: %w", err)
	}

	if _, err := p.file.Seek(0, io.SeekEnd); err != nil {
		return records, err
	}
	return records, nil
}

// AppendBatch adds records and syncs the file.
func (p *JSONLPersistence) AppendBatch(rs []Record) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed || p.file == nil {
		return ErrPersistenceClosed
	}
	if err := p.writeRecords(rs); err != nil {
		return err
	}
	return p.file.Sync()
}

func (p *JSONLPersistence) writeRecords(rs []Record) error {
	for _, r := range rs {
		data, err := json.Marshal(r)
		if err != nil {
			return err
		}
		if _, err := p.file.Write(append(data, '\n')); err != nil {
			return err
		}
	}
	return nil
}

// Rewrite replaces the file contents with rs, keeping a backup until the
// new file is synced.
func (p *JSONLPersistence) Rewrite(rs []Record) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return ErrPersistenceClosed
	}

	if p.file != nil {
		if err := p.file.Close(); err != nil {
			return err
		}
		p.file = nil
	}

	backupPath := p.path + ".bak"
	if err := os.Rename(p.path, backupPath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to create backup: %w", err)
	}

	file, err := os.OpenFile(p.path, os.O_RDWR|os.O_CREATE|os.O_TRUNC|os.O_APPEND, 0600)
	if err != nil {
		_ = os.Rename(backupPath, p.path)
		return fmt.Errorf("failed to create new file: %w", err)
	}
	p.file = file

	if err := p.writeHeader(); err != nil {
		return err
	}
	if err := p.writeRecords(rs); err != nil {
		return err
	}
	if err := p.file.Sync(); err != nil {
		return err
	}

	_ = os.Remove(backupPath)
	return nil
}

// Close releases the file handle.
func (p *JSONLPersistence) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return nil
	}
	p.closed = true

	if p.file != nil {
		err := p.file.Close()
		p.file = nil
		return err
	}
	return nil
}

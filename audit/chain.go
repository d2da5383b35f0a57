// api/audit/chain.go
package audit

import (
	"bufio"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
)

// GenesisHash is the prev_hash of the first record in a new chain file.
const GenesisHash = "sha256:0000000000000000000000000000000000000000000000000000000000000000"

// ChainRepository is an append-only JSONL file where every line carries the
// hash of the line before it, so edits or deletions are detectable.
type ChainRepository struct {
	path     string
	file     chainFile
	prevHash string
	mu       sync.Mutex
}

// chainFile is the subset of *os.File the chain writes through.
type chainFile interface {
	io.WriteCloser
	Sync() error
	Stat() (os.FileInfo, error)
	Truncate(size int64) error
}

// OpenChain opens or creates the chain file and recovers the tail hash.
func OpenChain(path string) (*ChainRepository, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("audit: create directory: %w", err)
	}

	prevHash := GenesisHash
	if info, err := os.Stat(path); err == nil && info.Size() > 0 {
		last, err := lastLine(path)
		if err != nil {
			return nil, err
		}
		if len(last) > 0 {
			prevHash = HashLine(last)
		}
	}

	file, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o600)
	if err != nil {
		return nil, fmt.Errorf("audit: open file: %w", err)
	}

	return &ChainRepository{path: path, file: file, prevHash: prevHash}, nil
}

func lastLine(path string) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("audit: read existing log: %w", err)
	}
	defer f.Close()

	scanner := newScanner(f)
	var last []byte
	for scanner.Scan() {
		last = append(last[:0], scanner.Bytes()...)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("audit: scan existing log: %w", err)
	}
	return last, nil
}

func (c *ChainRepository) LogAccess(ctx context.Context, record AuditRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	record.PrevHash = c.prevHash
	line, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("audit: marshal record: %w", err)
	}

	info, err := c.file.Stat()
	if err != nil {
		return fmt.Errorf("audit: stat: %w", err)
	}
	offset := info.Size()

	if _, err := c.file.Write(append(line, '\n')); err != nil {
		// A torn line would break every link after it.
		if terr := c.file.Truncate(offset); terr != nil {
			return fmt.Errorf("audit: write record: %w (truncate: %v)", err, terr)
		}
		return fmt.Errorf("audit: write record: %w", err)
	}

	// The line is in the file from here on, so the next record must link to
	// it whether or not the sync succeeds.
	c.prevHash = HashLine(line)
	if err := c.file.Sync(); err != nil {
		return fmt.Errorf("audit: sync: %w", err)
	}
	return nil
}

// QueryLogs scans the chain file, newest records last.
func (c *ChainRepository) QueryLogs(ctx context.Context, q Query) ([]AuditRecord, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	f, err := os.Open(c.path)
	if err != nil {
		return nil, fmt.Errorf("audit: open for query: %w", err)
	}
	defer f.Close()

	var records []AuditRecord
	scanner := newScanner(f)
	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		var rec AuditRecord
		if err := json.Unmarshal(scanner.Bytes(), &rec); err != nil {
			return nil, fmt.Errorf("audit: parse record: %w", err)
		}
		if q.Matches(rec) {
			records = append(records, rec)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("audit: scan: %w", err)
	}

	if q.Limit > 0 && len(records) > q.Limit {
		records = records[len(records)-q.Limit:]
	}
	return records, nil
}

func (c *ChainRepository) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.file.Close()
}

// HashLine returns "sha256:<hex>" of the given bytes.
func HashLine(line []byte) string {
	h := sha256.Sum256(line)
	return "sha256:" + hex.EncodeToString(h[:])
}

func newScanner(f *os.File) *bufio.Scanner {
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 64*1024), 4*1024*1024)
	return scanner
}

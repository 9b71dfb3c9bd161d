// Package audit provides the append-only decision and fail-open ledgers:
// hash-chained JSONL files with chain verification, querying, and summary
// statistics. Ledger writes must never break the governed action; the
// Safe variants route failures to stderr and swallow them.
package audit

import (
	"bufio"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// GenesisHash is the prev_hash for the first record in a new ledger.
const GenesisHash = "sha256:0000000000000000000000000000000000000000000000000000000000000000"

// Ledger is an append-only JSONL file with SHA-256 hash chaining. Each
// record's prev_hash is the hash of the previous record's JSON line,
// forming a tamper-evident chain. One Ledger owns one file; decision and
// gap records go to distinct Ledger instances.
type Ledger struct {
	path     string
	file     *os.File
	prevHash string
	mu       sync.Mutex
}

// Open opens (or creates) a ledger file for appending. If the file already
// exists, it reads the last line to recover the chain tail.
func Open(path string) (*Ledger, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, fmt.Errorf("audit: create directory: %w", err)
	}

	prevHash := GenesisHash

	if info, err := os.Stat(path); err == nil && info.Size() > 0 {
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("audit: read existing ledger: %w", err)
		}
		scanner := bufio.NewScanner(f)
		var lastLine []byte
		for scanner.Scan() {
			lastLine = make([]byte, len(scanner.Bytes()))
			copy(lastLine, scanner.Bytes())
		}
		f.Close()
		if err := scanner.Err(); err != nil {
			return nil, fmt.Errorf("audit: scan existing ledger: %w", err)
		}
		if len(lastLine) > 0 {
			prevHash = HashLine(lastLine)
		}
	}

	file, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0600)
	if err != nil {
		return nil, fmt.Errorf("audit: open file: %w", err)
	}

	return &Ledger{
		path:     path,
		file:     file,
		prevHash: prevHash,
	}, nil
}

// Path returns the ledger's file location.
func (l *Ledger) Path() string { return l.path }

// Append writes a decision record with hash chaining. It sets the record's
// PrevHash and Timestamp (if empty), marshals to JSON, writes the line,
// and syncs to disk.
func (l *Ledger) Append(rec Record) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if rec.Timestamp == "" {
		rec.Timestamp = time.Now().UTC().Format(TimestampFormat)
	}
	rec.PrevHash = l.prevHash

	line, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("audit: marshal record: %w", err)
	}
	return l.writeLine(line)
}

// AppendGap writes a fail-open record with hash chaining.
func (l *Ledger) AppendGap(rec GapRecord) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if rec.Timestamp == "" {
		rec.Timestamp = time.Now().UTC().Format(TimestampFormat)
	}
	rec.PrevHash = l.prevHash

	line, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("audit: marshal gap record: %w", err)
	}
	return l.writeLine(line)
}

// AppendSafe writes a decision record, routing any failure to stderr.
// A nil ledger drops the record. The governed action must proceed either way.
func (l *Ledger) AppendSafe(rec Record) {
	if l == nil {
		return
	}
	if err := l.Append(rec); err != nil {
		fmt.Fprintf(os.Stderr, "audit: %v\n", err)
	}
}

// AppendGapSafe writes a fail-open record, routing any failure to stderr.
func (l *Ledger) AppendGapSafe(rec GapRecord) {
	if l == nil {
		return
	}
	if err := l.AppendGap(rec); err != nil {
		fmt.Fprintf(os.Stderr, "audit: %v\n", err)
	}
}

// writeLine appends one marshaled line and advances the chain tail.
// Callers hold l.mu.
func (l *Ledger) writeLine(line []byte) error {
	if _, err := l.file.Write(append(line, '\n')); err != nil {
		return fmt.Errorf("audit: write record: %w", err)
	}
	if err := l.file.Sync(); err != nil {
		return fmt.Errorf("audit: sync: %w", err)
	}
	l.prevHash = HashLine(line)
	return nil
}

// Close flushes and closes the underlying file.
func (l *Ledger) Close() error {
	if l == nil {
		return nil
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.file.Close()
}

// HashLine returns "sha256:<hex>" of the given bytes.
func HashLine(line []byte) string {
	h := sha256.Sum256(line)
	return "sha256:" + hex.EncodeToString(h[:])
}

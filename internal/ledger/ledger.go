// Package ledger appends an auditable, tamper-evident record of every
// prediction to an NDJSON file: one JSON object per line, each signed
// with HMAC-SHA256 over a key derived from the configured secret via
// PBKDF2, following the key-derivation approach the teacher's
// encryption package uses for deriving AES keys from a passphrase.
package ledger

import (
	"bufio"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sync"

	"golang.org/x/crypto/pbkdf2"
)

// pbkdf2Iterations follows the teacher's OWASP-recommended default.
const pbkdf2Iterations = 600_000

// salt is fixed for this ledger's key derivation; a production
// deployment would persist a per-installation random salt alongside
// the ledger file.
var salt = []byte("trajmatch-ledger-salt-v1")

// Entry is one signed ledger record.
type Entry struct {
	Kind      string      `json:"kind"`
	Payload   interface{} `json:"payload"`
	Signature string      `json:"signature"`
}

// Ledger appends signed entries to a single NDJSON file.
type Ledger struct {
	mu   sync.Mutex
	file *os.File
	key  []byte
}

// Open appends to (creating if absent) the NDJSON file at path,
// signing entries with a key derived from secret. An empty secret
// disables signing: entries are still written with an empty
// signature.
func Open(path, secret string) (*Ledger, error) {
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("ledger: open %s: %w", path, err)
	}

	var key []byte
	if secret != "" {
		key = pbkdf2.Key([]byte(secret), salt, pbkdf2Iterations, 32, sha256.New)
	}

	return &Ledger{file: f, key: key}, nil
}

// Append writes one signed entry of the given kind.
func (l *Ledger) Append(kind string, payload interface{}) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("ledger: marshal payload: %w", err)
	}

	entry := Entry{Kind: kind, Payload: json.RawMessage(body)}
	if l.key != nil {
		entry.Signature = l.sign(kind, body)
	}

	line, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("ledger: marshal entry: %w", err)
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	_, err = l.file.Write(append(line, '\n'))
	return err
}

func (l *Ledger) sign(kind string, body []byte) string {
	mac := hmac.New(sha256.New, l.key)
	mac.Write([]byte(kind))
	mac.Write(body)
	return fmt.Sprintf("%x", mac.Sum(nil))
}

// Verify reports whether entry's signature matches its payload under
// this ledger's key. Entries written with signing disabled (empty
// secret) always verify.
func (l *Ledger) Verify(entry Entry) (bool, error) {
	if l.key == nil {
		return true, nil
	}
	body, err := json.Marshal(entry.Payload)
	if err != nil {
		return false, err
	}
	want := l.sign(entry.Kind, body)
	return hmac.Equal([]byte(want), []byte(entry.Signature)), nil
}

// Close closes the underlying file.
func (l *Ledger) Close() error {
	return l.file.Close()
}

// ErrTamperDetected is returned by callers that choose to treat a
// failed Verify as fatal. Not returned by this package directly.
var ErrTamperDetected = errors.New("ledger: signature verification failed")

// ReadAll reads and returns every entry in the ledger file at path,
// in append order. Intended for audit tooling, not the hot path.
func ReadAll(path string) ([]Entry, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var entries []Entry
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 10*1024*1024)
	for scanner.Scan() {
		// Keep the payload's original bytes so Verify re-signs exactly
		// what Append signed (decoding into a map would reorder keys).
		e := Entry{Payload: new(json.RawMessage)}
		if err := json.Unmarshal(scanner.Bytes(), &e); err != nil {
			return nil, fmt.Errorf("ledger: parse entry: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, scanner.Err()
}

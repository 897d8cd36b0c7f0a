// Package cache implements a content-addressed, single-flight store of
// command results shared by cooperating processes.
//
// Each entry lives in its own file named after the hash of the exact command
// vector. Writers hold an exclusive flock(2) on the entry while generating it;
// readers take a shared lock, so a reader never observes a partial entry and a
// command runs at most once per key and cache directory.
package cache

import (
	"bytes"
	"crypto/sha3"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"strings"
)

// Entry is the captured result of one command execution.
// Only a final snapshot of each stream is kept; interleaving is lost.
type Entry struct {
	ReturnCode int    `json:"return_code"`
	Stdout     string `json:"stdout"`
	Stderr     string `json:"stderr"`
}

// Failed reports whether the command exited non-zero.
func (e Entry) Failed() bool {
	return e.ReturnCode != 0
}

// Key returns the cache key of cmd: the hex SHA3-256 digest of its JSON array
// encoding. Two vectors differing in any token or in order have different keys.
func Key(cmd []string) string {
	if cmd == nil {
		cmd = []string{}
	}
	canonical, err := json.Marshal(cmd)
	if err != nil {
		// A []string always marshals.
		panic(fmt.Sprintf("cache: marshal command: %v", err))
	}
	sum := sha3.Sum256(canonical)
	return hex.EncodeToString(sum[:])
}

// Encode writes e as one JSON record.
func Encode(w io.Writer, e Entry) error {
	e = normalize(e)
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(e); err != nil {
		return fmt.Errorf("failed to encode cache entry: %w", err)
	}
	return nil
}

// Decode reads one JSON record written by Encode.
func Decode(r io.Reader) (Entry, error) {
	var e Entry
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&e); err != nil {
		return Entry{}, fmt.Errorf("failed to decode cache entry: %w", err)
	}
	return e, nil
}

// Marshal returns the encoded form of e.
func Marshal(e Entry) ([]byte, error) {
	var buf bytes.Buffer
	if err := Encode(&buf, e); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// normalize replaces invalid UTF-8 in the captured streams so the JSON
// encoding round-trips byte for byte.
func normalize(e Entry) Entry {
	e.Stdout = strings.ToValidUTF8(e.Stdout, "\uFFFD")
	e.Stderr = strings.ToValidUTF8(e.Stderr, "\uFFFD")
	return e
}

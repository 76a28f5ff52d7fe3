package utils

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"hash"
	"strings"
)

// HashAlgorithm represents the hashing algorithm to use
type HashAlgorithm string

const (
	SHA256 HashAlgorithm = "sha256"
)

// Hasher computes content digests with a fixed algorithm
type Hasher struct {
	algorithm HashAlgorithm
}

// NewHasher creates a new hasher with the specified algorithm
func NewHasher(algorithm HashAlgorithm) *Hasher {
	return &Hasher{
		algorithm: algorithm,
	}
}

// DefaultHasher returns a hasher with the default algorithm
func DefaultHasher() *Hasher {
	return NewHasher(SHA256)
}

func (h *Hasher) newHash() hash.Hash {
	switch h.algorithm {
	case SHA256:
		return sha256.New()
	default:
		return sha256.New()
	}
}

// Hash computes a hex digest of the input data
func (h *Hasher) Hash(data []byte) string {
	d := h.newHash()
	d.Write(data)
	return hex.EncodeToString(d.Sum(nil))
}

// NewDigestWriter returns a writer that digests everything written to it.
func (h *Hasher) NewDigestWriter() *DigestWriter {
	return &DigestWriter{h: h.newHash()}
}

// DigestWriter counts and digests bytes written through it
type DigestWriter struct {
	h hash.Hash
	n int64
}

// Write implements io.Writer
func (w *DigestWriter) Write(p []byte) (int, error) {
	n, err := w.h.Write(p)
	w.n += int64(n)
	return n, err
}

// Sum returns the hex digest written so far
func (w *DigestWriter) Sum() string {
	return hex.EncodeToString(w.h.Sum(nil))
}

// Size returns the number of bytes written so far
func (w *DigestWriter) Size() int64 {
	return w.n
}

// StreamHasher folds an ordered sequence of (name, size, digest) records
// into one digest. The same records in the same order always produce the
// same value; reordering any two records changes it.
type StreamHasher struct {
	algorithm HashAlgorithm
	h         hash.Hash
}

// NewStreamHasher creates a stream hasher
func (h *Hasher) NewStreamHasher() *StreamHasher {
	return &StreamHasher{algorithm: h.algorithm, h: h.newHash()}
}

// Add appends one member record
func (s *StreamHasher) Add(name string, size int64, digest string) {
	fmt.Fprintf(s.h, "%s\x00%d\x00%s\n", name, size, digest)
}

// Sum returns the algorithm-prefixed digest, e.g. "sha256:ab12..."
func (s *StreamHasher) Sum() string {
	return string(s.algorithm) + ":" + hex.EncodeToString(s.h.Sum(nil))
}

// SplitDigest separates "sha256:abcd" into algorithm and hex parts.
func SplitDigest(digest string) (HashAlgorithm, string, bool) {
	algo, hexPart, ok := strings.Cut(digest, ":")
	if !ok || hexPart == "" {
		return "", "", false
	}
	return HashAlgorithm(algo), hexPart, true
}

// ShortDigest returns the first 12 hex characters of a digest for display
func ShortDigest(digest string) string {
	if _, hexPart, ok := SplitDigest(digest); ok {
		digest = hexPart
	}
	if len(digest) < 12 {
		return digest
	}
	return digest[:12]
}

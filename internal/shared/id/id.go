// Package id provides centralized ID generation for the packager.
//
// Mount ids are prefixed ULIDs, so they sort by mount time and read well in
// logs. Staging directories use random UUIDs because they only need to be
// unique on disk, never ordered.
package id

import (
	"crypto/rand"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"
)

// MountID identifies one mount of a package into a registry
type MountID string

// BuildID identifies one build invocation (logging only, never hashed)
type BuildID string

const (
	MountPrefix   = "mnt"
	BuildPrefix   = "bld"
	StagingPrefix = "stage"
)

// Generator generates ULIDs with optional prefixes
type Generator struct {
	entropy   io.Reader
	entropyMu sync.Mutex
}

var (
	defaultGenerator *Generator
	once             sync.Once
)

// Default returns the singleton generator instance
func Default() *Generator {
	once.Do(func() {
		defaultGenerator = NewGenerator()
	})
	return defaultGenerator
}

// NewGenerator creates a new ULID generator
func NewGenerator() *Generator {
	return &Generator{
		entropy: rand.Reader,
	}
}

// Generate creates a new ULID
func (g *Generator) Generate() ulid.ULID {
	g.entropyMu.Lock()
	defer g.entropyMu.Unlock()

	return ulid.MustNew(ulid.Timestamp(time.Now()), g.entropy)
}

// GenerateString creates a new ULID as a string
func (g *Generator) GenerateString() string {
	return g.Generate().String()
}

// GenerateWithPrefix creates a prefixed ULID string
func (g *Generator) GenerateWithPrefix(prefix string) string {
	return fmt.Sprintf("%s_%s", prefix, g.GenerateString())
}

// NewMountID generates a new mount ID
func NewMountID() MountID {
	return MountID(Default().GenerateWithPrefix(MountPrefix))
}

// NewBuildID generates a new build ID
func NewBuildID() BuildID {
	return BuildID(Default().GenerateWithPrefix(BuildPrefix))
}

// NewStagingName returns a directory name that no concurrent load can share.
func NewStagingName() string {
	return fmt.Sprintf("%s-%s", StagingPrefix, uuid.NewString())
}

func (id MountID) String() string { return string(id) }
func (id BuildID) String() string { return string(id) }

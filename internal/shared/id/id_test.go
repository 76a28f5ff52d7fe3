package id

import (
	"strings"
	"sync"
	"testing"

	"github.com/oklog/ulid/v2"
)

func TestGenerate(t *testing.T) {
	gen := NewGenerator()

	id1 := gen.Generate()
	id2 := gen.Generate()

	if id1.String() == id2.String() {
		t.Error("Generated IDs should be unique")
	}
}

func TestGenerateWithPrefix(t *testing.T) {
	gen := NewGenerator()

	for _, prefix := range []string{MountPrefix, BuildPrefix} {
		id := gen.GenerateWithPrefix(prefix)

		if !strings.HasPrefix(id, prefix+"_") {
			t.Errorf("ID should start with '%s_', got: %s", prefix, id)
		}

		parts := strings.Split(id, "_")
		if len(parts) != 2 {
			t.Fatalf("Prefixed ID should have format 'prefix_ulid', got: %s", id)
		}
		if _, err := ulid.ParseStrict(parts[1]); err != nil {
			t.Errorf("ULID part should be valid: %s", parts[1])
		}
	}
}

func TestTypedIDGeneration(t *testing.T) {
	if !strings.HasPrefix(NewMountID().String(), "mnt_") {
		t.Error("MountID should start with 'mnt_'")
	}
	if !strings.HasPrefix(NewBuildID().String(), "bld_") {
		t.Error("BuildID should start with 'bld_'")
	}
}

func TestStagingNamesAreUnique(t *testing.T) {
	const n = 200
	var (
		mu   sync.Mutex
		wg   sync.WaitGroup
		seen = make(map[string]bool, n)
	)

	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			name := NewStagingName()
			mu.Lock()
			defer mu.Unlock()
			if seen[name] {
				t.Errorf("Duplicate staging name: %s", name)
			}
			seen[name] = true
		}()
	}
	wg.Wait()

	for name := range seen {
		if !strings.HasPrefix(name, StagingPrefix+"-") {
			t.Errorf("Staging name should start with '%s-', got %s", StagingPrefix, name)
		}
	}
}

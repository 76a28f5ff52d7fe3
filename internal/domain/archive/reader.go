package archive

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/flate"
	"github.com/klauspost/compress/zip"

	"github.com/GriffinCanCode/AgentOS/agentpkg/internal/domain/manifest"
	"github.com/GriffinCanCode/AgentOS/agentpkg/internal/domain/surface"
	"github.com/GriffinCanCode/AgentOS/agentpkg/internal/shared/paths"
	"github.com/GriffinCanCode/AgentOS/agentpkg/internal/shared/types"
	"github.com/GriffinCanCode/AgentOS/agentpkg/internal/shared/utils"
)

// VerifyOptions tightens verification
type VerifyOptions struct {
	// ExpectedHash, when set, must equal the recorded and recomputed hash
	ExpectedHash string
	// MaxSizeBytes bounds the total uncompressed size; zero disables the check
	MaxSizeBytes int64
}

// Verify checks an artifact against its index without writing anything
func Verify(ctx context.Context, artifactPath string, opts VerifyOptions) (*Index, error) {
	return unpack(ctx, artifactPath, opts, nil)
}

// Extract verifies an artifact while writing its members under dest.
// On error dest may hold a partial tree; the caller owns its removal.
func Extract(ctx context.Context, artifactPath, dest string, opts VerifyOptions) (*Index, error) {
	return unpack(ctx, artifactPath, opts, func(name string) (io.WriteCloser, error) {
		target, err := paths.SafeJoin(dest, name)
		if err != nil {
			return nil, types.IntegrityError(artifactPath, err.Error())
		}
		if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create %s: %w", filepath.Dir(target), err)
		}
		f, err := os.OpenFile(target, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
		if err != nil {
			return nil, fmt.Errorf("failed to create %s: %w", target, err)
		}
		return f, nil
	})
}

type sinkFunc func(name string) (io.WriteCloser, error)

func unpack(ctx context.Context, artifactPath string, opts VerifyOptions, sink sinkFunc) (*Index, error) {
	idx, err := ReadIndex(artifactPath)
	if err != nil {
		return nil, err
	}
	if opts.ExpectedHash != "" && opts.ExpectedHash != idx.Hash {
		return nil, types.IntegrityError(artifactPath, fmt.Sprintf("hash %s does not match expected %s", idx.Hash, opts.ExpectedHash))
	}
	if opts.MaxSizeBytes > 0 && idx.Size > opts.MaxSizeBytes {
		return nil, types.SizeLimitExceeded(idx.Size, opts.MaxSizeBytes, largestMember(idx))
	}

	zr, err := zip.OpenReader(artifactPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, types.MissingSourceError("artifact", artifactPath)
		}
		return nil, types.IntegrityError(artifactPath, "not a readable archive: "+err.Error())
	}
	defer zr.Close()

	if len(zr.File) != len(idx.Members) {
		return nil, types.IntegrityError(artifactPath, fmt.Sprintf("archive has %d members, index lists %d", len(zr.File), len(idx.Members)))
	}

	hasher := utils.DefaultHasher()
	stream := hasher.NewStreamHasher()
	seen := make(map[string]bool, len(zr.File))
	var total int64

	for i, f := range zr.File {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		want := idx.Members[i]
		switch {
		case f.Name != want.Name:
			return nil, types.IntegrityError(artifactPath, fmt.Sprintf("member %d is %q, index lists %q", i, f.Name, want.Name))
		case seen[f.Name]:
			return nil, types.IntegrityError(artifactPath, fmt.Sprintf("member %q appears twice", f.Name))
		case !paths.IsLocal(f.Name) || strings.HasSuffix(f.Name, "/"):
			return nil, types.IntegrityError(artifactPath, fmt.Sprintf("member %q is not a relative file path", f.Name))
		case !f.Mode().IsRegular():
			return nil, types.IntegrityError(artifactPath, fmt.Sprintf("member %q is not a regular file", f.Name))
		case int64(f.UncompressedSize64) != want.Size:
			return nil, types.IntegrityError(artifactPath, fmt.Sprintf("member %q is %d bytes, index lists %d", f.Name, f.UncompressedSize64, want.Size))
		}
		seen[f.Name] = true

		total += want.Size
		if opts.MaxSizeBytes > 0 && total > opts.MaxSizeBytes {
			return nil, types.SizeLimitExceeded(total, opts.MaxSizeBytes, f.Name)
		}

		if err := copyMember(artifactPath, f, want, hasher, sink); err != nil {
			return nil, err
		}
		stream.Add(want.Name, want.Size, want.SHA256)
	}

	if sum := stream.Sum(); sum != idx.Hash {
		return nil, types.IntegrityError(artifactPath, fmt.Sprintf("recomputed hash %s does not match recorded %s", sum, idx.Hash))
	}
	return idx, nil
}

func copyMember(artifactPath string, f *zip.File, want Member, hasher *utils.Hasher, sink sinkFunc) error {
	rc, err := f.Open()
	if err != nil {
		return types.IntegrityError(artifactPath, fmt.Sprintf("cannot open member %q: %v", f.Name, err))
	}
	defer rc.Close()

	dw := hasher.NewDigestWriter()
	var w io.Writer = dw
	if sink != nil {
		out, err := sink(f.Name)
		if err != nil {
			return err
		}
		defer out.Close()
		w = io.MultiWriter(out, dw)
	}

	n, err := io.Copy(w, io.LimitReader(rc, want.Size+1))
	if err != nil {
		var corrupt flate.CorruptInputError
		if errors.Is(err, zip.ErrChecksum) || errors.Is(err, zip.ErrFormat) ||
			errors.Is(err, io.ErrUnexpectedEOF) || errors.As(err, &corrupt) {
			return types.IntegrityError(artifactPath, fmt.Sprintf("member %q is corrupt: %v", f.Name, err))
		}
		return fmt.Errorf("failed to read member %s: %w", f.Name, err)
	}
	if n != want.Size {
		return types.IntegrityError(artifactPath, fmt.Sprintf("member %q yielded %d bytes, index lists %d", f.Name, n, want.Size))
	}
	if sum := dw.Sum(); sum != want.SHA256 {
		return types.IntegrityError(artifactPath, fmt.Sprintf("member %q checksum %s does not match %s", f.Name, utils.ShortDigest(sum), utils.ShortDigest(want.SHA256)))
	}
	return nil
}

// Inspection is what an artifact declares, read without extracting it
type Inspection struct {
	Index      *Index
	Manifest   *manifest.Manifest
	Descriptor *surface.Descriptor
}

// Inspect verifies an artifact and decodes its manifest and deploy.json
func Inspect(ctx context.Context, artifactPath string) (*Inspection, error) {
	idx, err := Verify(ctx, artifactPath, VerifyOptions{})
	if err != nil {
		return nil, err
	}

	zr, err := zip.OpenReader(artifactPath)
	if err != nil {
		return nil, types.IntegrityError(artifactPath, "not a readable archive: "+err.Error())
	}
	defer zr.Close()

	name := idx.Members[0].Name
	data, err := readMember(&zr.Reader, name)
	if err != nil {
		return nil, err
	}
	format, err := manifest.FormatFromName(name)
	if err != nil {
		return nil, types.IntegrityError(artifactPath, err.Error())
	}
	m, err := manifest.Parse(data, format, artifactPath+"!"+name)
	if err != nil {
		return nil, err
	}

	out := &Inspection{Index: idx, Manifest: m}
	if data, err := readMember(&zr.Reader, paths.DeployFile); err == nil {
		if out.Descriptor, err = surface.ParseDescriptor(data); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func readMember(zr *zip.Reader, name string) ([]byte, error) {
	for _, f := range zr.File {
		if f.Name != name {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return nil, err
		}
		defer rc.Close()
		return io.ReadAll(rc)
	}
	return nil, os.ErrNotExist
}

// Inspect verifies an artifact and decodes its manifest and deploy.json
func (b *Builder) Inspect(ctx context.Context, artifactPath string) (*Inspection, error) {
	return Inspect(ctx, artifactPath)
}

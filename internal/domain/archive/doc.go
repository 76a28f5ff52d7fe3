/*
Package archive builds, verifies and extracts agent package artifacts.

An artifact is a zip file named {id}-{version}.apkg with a sidecar
{id}-{version}.apkg.index.json. Members are written manifest first and
then in byte-wise path order, each with a fixed timestamp and mode, so the
same project always yields the same bytes. The integrity hash covers the
ordered (name, size, sha256) records of every member and lives only in
the index.

Build:

	b := archive.NewBuilder(archive.DefaultOptions(), logger, metrics)
	art, err := b.Build(ctx, "./my-agent")

Verify and extract:

	idx, err := archive.Extract(ctx, art.Path, stagingDir, archive.VerifyOptions{
		ExpectedHash: art.Hash(),
		MaxSizeBytes: 50 << 20,
	})
*/
package archive

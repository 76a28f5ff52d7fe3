// Package version implements semantic version parsing, precedence and the
// upgrade policy applied when a package id is mounted again.
//
// Example Usage:
//
//	d := version.Strict.Check(version.MustParse("1.2.0"), version.MustParse("1.0.0"))
//	// d == version.RejectDowngrade
package version

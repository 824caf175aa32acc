// Package buildinfo carries version information stamped at build time.
package buildinfo

// BinaryVersion is the bucketctl release version. Overridden via
// -ldflags "-X github.com/wenpm/bucketctl/pkg/buildinfo.BinaryVersion=..."
var BinaryVersion = "0.1.0-dev"

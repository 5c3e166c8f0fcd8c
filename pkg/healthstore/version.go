// Package healthstore exposes module-level metadata.
package healthstore

// Version is the current healthstore release.
const Version = "0.3.0"

// Package version holds the build version reported by the health endpoint
// and the startup banner.
package version

const Version = "1.0.0"

package latticedb

import "fmt"

// Release identifies the library build. It has no bearing on the on-disk
// format, which is versioned separately by metaDataVersion in meta.go.
const (
	releaseMajor = 0
	releaseMinor = 1
	releasePatch = 0
)

// Release returns a human-readable identifier for the running build,
// useful in logs and panic messages when diagnosing a corrupted store
// reported by a user.
func Release() string {
	return fmt.Sprintf("latticedb v%d.%d.%d", releaseMajor, releaseMinor, releasePatch)
}

// FormatVersion returns the on-disk meta page format version this build
// writes and the oldest version it will still open for reading.
func FormatVersion() (current, oldestReadable uint32) {
	return metaDataVersion, 2
}

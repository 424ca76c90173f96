package replication

import (
	"os"
	"path/filepath"
)

// iamglassFileName matches pkg/backend's presence-marker convention:
// a zero-byte file at the endpoint directory root meaning "a valid
// local copy exists here".
const iamglassFileName = "iamglass"

// FileMarkerChecker implements MarkerChecker by checking for the
// on-disk iamglass marker pkg/backend writes on spawn, per spec.md
// §4.J step 2 ("marker file present at target path").
type FileMarkerChecker struct {
	// Root resolves an endpoint path to its on-disk directory.
	Root func(path string) string
}

// UpToDate reports whether the iamglass marker exists under path's
// resolved directory.
func (c FileMarkerChecker) UpToDate(path string) (bool, error) {
	dir := path
	if c.Root != nil {
		dir = c.Root(path)
	}
	_, err := os.Stat(filepath.Join(dir, iamglassFileName))
	if err == nil {
		return true, nil
	}
	if os.IsNotExist(err) {
		return false, nil
	}
	return false, err
}

package backend

import (
	"encoding/binary"
	"os"
	"path/filepath"

	"github.com/dubalu/xapiand-go/pkg/xerror"
)

const (
	masteryFileName  = "mastery"
	iamglassFileName = "iamglass"
)

// readOrCreateMastery reads the monotonic u64 mastery level from dir's
// marker file, creating it with an initial value of 1 if absent
// (original_source/src/database_handler.cc's mastery-level semantics,
// spec.md §3 "Database handle").
func readOrCreateMastery(dir string) (uint64, error) {
	path := filepath.Join(dir, masteryFileName)
	data, err := os.ReadFile(path)
	if err == nil && len(data) == 8 {
		return binary.BigEndian.Uint64(data), nil
	}
	if err != nil && !os.IsNotExist(err) {
		return 0, xerror.Wrap(xerror.BackendError, "reading mastery marker", err)
	}

	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], 1)
	if err := os.WriteFile(path, buf[:], 0o600); err != nil {
		return 0, xerror.Wrap(xerror.BackendError, "creating mastery marker", err)
	}
	return 1, nil
}

// markIamglass creates the presence marker meaning "a valid local copy
// of this endpoint's index exists" (spec.md §7 "persisted state").
func markIamglass(dir string) error {
	path := filepath.Join(dir, iamglassFileName)
	if _, err := os.Stat(path); err == nil {
		return nil
	}
	if err := os.WriteFile(path, nil, 0o600); err != nil {
		return xerror.Wrap(xerror.BackendError, "creating iamglass marker", err)
	}
	return nil
}

// hasIamglass reports whether dir carries a valid local copy marker.
func hasIamglass(dir string) bool {
	_, err := os.Stat(filepath.Join(dir, iamglassFileName))
	return err == nil
}

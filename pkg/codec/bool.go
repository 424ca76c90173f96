package codec

import "github.com/dubalu/xapiand-go/pkg/xerror"

// SerializeBoolean encodes a boolean as a single byte, 'f' or 't'.
func SerializeBoolean(v bool) []byte {
	if v {
		return []byte{'t'}
	}
	return []byte{'f'}
}

// UnserializeBoolean is the inverse of SerializeBoolean.
func UnserializeBoolean(b []byte) (bool, error) {
	if len(b) != 1 {
		return false, xerror.New(xerror.ClientError, "serialized boolean must be 1 byte")
	}
	switch b[0] {
	case 't':
		return true, nil
	case 'f':
		return false, nil
	default:
		return false, xerror.New(xerror.ClientError, "serialized boolean must be 'f' or 't'")
	}
}

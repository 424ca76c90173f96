package codec

import (
	"strings"

	"github.com/dubalu/xapiand-go/pkg/xerror"
	"github.com/google/uuid"
)

const uuidSeparator = ";"

// ParseUUIDList splits and canonicalizes a ';'-separated list of UUID
// strings, each optionally wrapped in "{...}" or prefixed with
// "urn:uuid:". Order is preserved; it is significant for
// SerializeUUIDList's output.
func ParseUUIDList(s string) ([]uuid.UUID, error) {
	parts := strings.Split(s, uuidSeparator)
	out := make([]uuid.UUID, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		p = strings.TrimPrefix(p, "urn:uuid:")
		p = strings.TrimPrefix(p, "{")
		p = strings.TrimSuffix(p, "}")
		id, err := uuid.Parse(p)
		if err != nil {
			return nil, xerror.Wrap(xerror.ClientError, "invalid UUID "+p, err)
		}
		out = append(out, id)
	}
	return out, nil
}

// SerializeUUIDList encodes a list of UUIDs as the concatenation of
// their 16-byte binary forms. This package implements only the
// canonical multi-UUID form described in spec.md §4.B; the optional
// '~'-prefixed compact encoding is not produced or accepted.
func SerializeUUIDList(ids []uuid.UUID) []byte {
	out := make([]byte, 0, len(ids)*16)
	for _, id := range ids {
		b := id
		out = append(out, b[:]...)
	}
	return out
}

// UnserializeUUIDList is the inverse of SerializeUUIDList.
func UnserializeUUIDList(b []byte) ([]uuid.UUID, error) {
	if len(b)%16 != 0 {
		return nil, xerror.New(xerror.ClientError, "serialized UUID list length must be a multiple of 16")
	}
	out := make([]uuid.UUID, 0, len(b)/16)
	for i := 0; i < len(b); i += 16 {
		id, err := uuid.FromBytes(b[i : i+16])
		if err != nil {
			return nil, xerror.Wrap(xerror.ClientError, "malformed UUID bytes", err)
		}
		out = append(out, id)
	}
	return out, nil
}

// FormatUUIDList renders a list of UUIDs back to the canonical
// ';'-separated string form.
func FormatUUIDList(ids []uuid.UUID) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = id.String()
	}
	return strings.Join(parts, uuidSeparator)
}

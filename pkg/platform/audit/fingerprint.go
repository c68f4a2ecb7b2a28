package audit

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// fingerprint computes the stable identity hash used for deduplication. Two
// events share a fingerprint iff their (type, actor, resource type, resource
// id, action, origin) tuples are equal. The separator cannot appear in any
// component hash-ambiguously because it is included between every field.
func fingerprint(e *Event) string {
	h := sha256.New()
	h.Write([]byte(strings.Join([]string{
		string(e.Type),
		e.ActorID.String(),
		e.ResourceType,
		e.ResourceID,
		e.Action,
		e.Origin,
	}, "\x1f")))
	return hex.EncodeToString(h.Sum(nil))
}

package feed

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"strings"

	"addonwatch/internal/model"
)

// Encode serializes a feed to its canonical JSON form. Struct field
// order is fixed and items are sorted by slug, so equal feeds always
// produce identical bytes and therefore identical ETags.
func Encode(f model.ImpactedFeed) ([]byte, error) {
	if f.Items == nil {
		f.Items = []model.ImpactedItem{}
	}
	return json.Marshal(f)
}

// ETag computes the strong validator for a serialized feed body: a
// quoted hex SHA-256 of the bytes.
func ETag(body []byte) string {
	sum := sha256.Sum256(body)
	return `"` + hex.EncodeToString(sum[:]) + `"`
}

// MatchesIfNoneMatch reports whether any entity tag in an
// If-None-Match header value matches the given ETag. Weak-validator
// prefixes and surrounding quotes on either side are tolerated.
func MatchesIfNoneMatch(header, etag string) bool {
	if header == "" {
		return false
	}
	if strings.TrimSpace(header) == "*" {
		return true
	}
	want := stripTag(etag)
	for _, part := range strings.Split(header, ",") {
		if stripTag(part) == want {
			return true
		}
	}
	return false
}

func stripTag(tag string) string {
	tag = strings.TrimSpace(tag)
	tag = strings.TrimPrefix(tag, "W/")
	tag = strings.TrimPrefix(tag, `"`)
	tag = strings.TrimSuffix(tag, `"`)
	return tag
}

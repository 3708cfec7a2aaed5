package doc

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// DomainContent prefixes content hashes; the suffix versions the algorithm.
const DomainContent = "docguard/content/v1"

// hashWithDomain computes SHA256(domain + 0x00 + data).
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// ContentHash identifies what checks can observe: title, content and the
// documentation target. Violation slots are not hashed.
func ContentHash(d Document) (string, error) {
	obj := map[string]any{
		"id":      d.ID,
		"title":   d.Title,
		"content": d.Content,
	}
	if d.Documentation != nil {
		obj["documentation"] = map[string]any{"target": d.Documentation.Target}
	}
	canonical, err := MarshalCanonical(obj)
	if err != nil {
		return "", fmt.Errorf("content hash: %w", err)
	}
	return hashWithDomain(DomainContent, canonical), nil
}

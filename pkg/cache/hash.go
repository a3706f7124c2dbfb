package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
)

// hashKey derives "<namespace>:<sha256>" from the JSON encoding of parts.
// Parts are story hashes and option structs, all of which marshal cleanly.
func hashKey(namespace string, parts ...any) string {
	data, _ := json.Marshal(parts)
	return namespace + ":" + Hash(data)
}

// Hash returns the hex SHA-256 digest of data. Story content hashes and
// cache file names both use it.
func Hash(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

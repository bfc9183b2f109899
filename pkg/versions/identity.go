package versions

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
)

// keyDomain versions the identity derivation so a future scheme change
// cannot collide with existing store entries.
const keyDomain = "morphd:v1:path-key"

// IdentityKey derives the store key for a logical document: the owning
// uid plus the absolute base path (directory and base name, no
// extension). The extension is excluded on purpose: photo.jpg and
// photo.png are format variants of one document and must share a key,
// or round-trip conversions could never find their earlier variants.
// It is deliberately not a content hash.
func IdentityKey(basePath string, uid int) string {
	h := sha256.New()
	h.Write([]byte(keyDomain))
	var u [4]byte
	binary.BigEndian.PutUint32(u[:], uint32(uid))
	h.Write(u[:])
	h.Write([]byte{0})
	h.Write([]byte(basePath))
	return hex.EncodeToString(h.Sum(nil))
}

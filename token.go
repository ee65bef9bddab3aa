package satchel

import (
	"crypto/rand"
	"encoding/hex"
)

// IDLength is the length of every session identifier.
const IDLength = 64

func generateID() (string, error) {
	b := make([]byte, IDLength/2)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

// ValidID reports whether id has the shape of a generated identifier.
func ValidID(id string) bool {
	if len(id) != IDLength {
		return false
	}
	for i := 0; i < len(id); i++ {
		c := id[i]
		if (c < '0' || c > '9') && (c < 'a' || c > 'f') {
			return false
		}
	}
	return true
}

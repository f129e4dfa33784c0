package licenses

import (
	"crypto/rand"
	"math/big"
	"strings"
)

const (
	keyPrefix      = "BETA"
	segmentCount   = 3
	segmentLength  = 4
	// Uppercase letters and digits minus the easily-confused O, I, 0, 1.
	keyAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"
)

// GenerateKey returns a random license key of the form
// BETA-XXXX-XXXX-XXXX.
func GenerateKey() (string, error) {
	var sb strings.Builder
	sb.WriteString(keyPrefix)

	max := big.NewInt(int64(len(keyAlphabet)))
	for seg := 0; seg < segmentCount; seg++ {
		sb.WriteByte('-')
		for i := 0; i < segmentLength; i++ {
			n, err := rand.Int(rand.Reader, max)
			if err != nil {
				return "", err
			}
			sb.WriteByte(keyAlphabet[n.Int64()])
		}
	}
	return sb.String(), nil
}

// NormalizeKey uppercases and trims a user-supplied key so lookups are
// case-insensitive.
func NormalizeKey(key string) string {
	return strings.ToUpper(strings.TrimSpace(key))
}

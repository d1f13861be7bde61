package render

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"path/filepath"
)

const (
	// ArtifactPrefix starts every generated card file name.
	ArtifactPrefix = "payment_paid_card_"
	// ArtifactExt ends every generated card file name.
	ArtifactExt = ".png"

	// DefaultTokenBytes yields the 8 hex character suffix clients expect.
	DefaultTokenBytes = 4
)

// ArtifactNamer hands out collision-free artifact paths inside one directory.
// Uniqueness comes from the random suffix alone; there is no counter or lock.
type ArtifactNamer struct {
	Dir string
	// TokenBytes is the number of random bytes in the suffix, DefaultTokenBytes when <= 0.
	TokenBytes int
}

// Next returns dir/payment_paid_card_<hex>.png.
func (n ArtifactNamer) Next() (string, error) {
	size := n.TokenBytes
	if size < DefaultTokenBytes {
		size = DefaultTokenBytes
	}
	buf := make([]byte, size)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("random artifact token: %w", err)
	}
	return filepath.Join(n.Dir, ArtifactPrefix+hex.EncodeToString(buf)+ArtifactExt), nil
}

// Pattern is the glob matching every artifact the namer can produce.
func (n ArtifactNamer) Pattern() string {
	return filepath.Join(n.Dir, ArtifactPrefix+"*"+ArtifactExt)
}

package dedup

import (
	"crypto/sha256"
	"encoding/hex"

	"storymill/types"
)

// ContentSampleLength bounds how much of the story body feeds the fingerprint
// and the fuzzy/semantic content checks. Stories with identical openings but
// divergent endings (re-posts with added commentary) still collide, trading a
// controlled false-positive rate for much higher near-duplicate recall.
const ContentSampleLength = 500

// contentSample returns the first ContentSampleLength characters of text.
func contentSample(text string) string {
	runes := []rune(text)
	if len(runes) > ContentSampleLength {
		runes = runes[:ContentSampleLength]
	}
	return string(runes)
}

// Fingerprint hashes the normalized content sample of an item's text with
// SHA-256 and returns the hex digest. The title is excluded on purpose so the
// same body under a new title is still caught.
func Fingerprint(item types.Item) string {
	sample := NormalizeText(contentSample(item.Text()))
	sum := sha256.Sum256([]byte(sample))
	return hex.EncodeToString(sum[:])
}

package naming

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"
)

// Tool prefixes every generated name.
const Tool = "mskstack"

const changeSetTimeFormat = "20060102150405"

func StagedTemplateKey(prefix, stack string, body []byte) string {
	sum := sha256.Sum256(body)
	return fmt.Sprintf("%s%s-%s.json", prefix, stack, hex.EncodeToString(sum[:])[:16])
}

func DiffChangeSet(now time.Time) string {
	return fmt.Sprintf("%s-diff-%s", Tool, now.UTC().Format(changeSetTimeFormat))
}

func E2EStack(now time.Time) string {
	return fmt.Sprintf("%s-e2e-%d", Tool, now.Unix())
}

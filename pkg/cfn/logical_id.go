package cfn

import (
	"fmt"
	"hash/fnv"
	"regexp"
	"strings"
	"unicode"
)

// maxLogicalIDLength is the CloudFormation limit for logical IDs.
const maxLogicalIDLength = 255

var logicalIDRegex = regexp.MustCompile(`^[A-Za-z0-9]+$`)

// ValidLogicalID reports whether id is a syntactically valid logical ID.
func ValidLogicalID(id string) bool {
	return len(id) <= maxLogicalIDLength && logicalIDRegex.MatchString(id)
}

// LogicalID derives a logical ID from path parts. Each part is split on
// non-alphanumeric characters and the words are joined in PascalCase, so
// LogicalID("my-cluster", "broker sg") is "MyClusterBrokerSg". IDs longer
// than the CloudFormation limit are truncated and suffixed with a hash of
// the full ID to stay unique.
func LogicalID(parts ...string) string {
	var b strings.Builder
	for _, part := range parts {
		words := strings.FieldsFunc(part, func(r rune) bool {
			return r > unicode.MaxASCII || !(unicode.IsLetter(r) || unicode.IsDigit(r))
		})
		for _, w := range words {
			b.WriteString(strings.ToUpper(w[:1]))
			b.WriteString(w[1:])
		}
	}

	id := b.String()
	if id == "" {
		return "Resource"
	}
	if len(id) <= maxLogicalIDLength {
		return id
	}

	suffix := Hash(id)
	return id[:maxLogicalIDLength-len(suffix)] + suffix
}

// Hash returns a short, stable hash of parts for use in logical IDs.
func Hash(parts ...string) string {
	h := fnv.New32a()
	for i, p := range parts {
		if i > 0 {
			_, _ = h.Write([]byte{0})
		}
		_, _ = h.Write([]byte(p))
	}
	return fmt.Sprintf("%08X", h.Sum32())
}

var plainName = regexp.MustCompile(`^[a-z][a-z0-9]*(-[a-z][a-z0-9]*)*$`)

// IsPlainName reports whether name is lower-case words joined by hyphens,
// each word starting with a letter. LogicalID maps distinct plain names to
// distinct IDs.
func IsPlainName(name string) bool { return plainName.MatchString(name) }

// NameID derives a logical ID from a prefix and a user-chosen name such as
// a topic. Plain names stay readable: NameID("Topic", "order-events") is
// "TopicOrderEvents". Any other name gets a hash of the raw name appended,
// so "orders.v1" and "orders-v1", or "Orders" and "orders", never share
// an ID.
func NameID(prefix, name string) string {
	if IsPlainName(name) {
		return LogicalID(prefix, name)
	}
	return LogicalID(prefix, name, Hash(name))
}

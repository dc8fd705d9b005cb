package labels

import "strings"

// Standard tag keys, namespaced with the mskstack: prefix.
const (
	// KeyStack identifies which stack a resource belongs to
	KeyStack = "mskstack:stack"

	// KeyManagedBy identifies the management system
	KeyManagedBy = "mskstack:managed-by"

	// KeyVersion is the mskstack version that last deployed the stack
	KeyVersion = "mskstack:version"
)

// ManagedByMskstack is the KeyManagedBy value.
const ManagedByMskstack = "mskstack"

// reservedPrefix is the tag key prefix AWS keeps for itself.
const reservedPrefix = "aws:"

// TagBuilder provides a fluent interface for building stack tags.
type TagBuilder struct {
	tags map[string]string
}

// NewTagBuilder creates a new tag builder with the stack name pre-set.
func NewTagBuilder(stackName string) *TagBuilder {
	return &TagBuilder{
		tags: map[string]string{
			KeyStack:     stackName,
			KeyManagedBy: ManagedByMskstack,
		},
	}
}

// WithVersion adds the version tag when version is set.
func (b *TagBuilder) WithVersion(version string) *TagBuilder {
	if version != "" {
		b.tags[KeyVersion] = version
	}
	return b
}

// Merge adds user tags. User tags cannot replace the mskstack: tags, and
// keys with the reserved aws: prefix are dropped since CloudFormation
// rejects them.
func (b *TagBuilder) Merge(extra map[string]string) *TagBuilder {
	for k, v := range extra {
		if strings.HasPrefix(k, reservedPrefix) || IsManaged(k) {
			continue
		}
		b.tags[k] = v
	}
	return b
}

// Build returns a copy of the tags map.
func (b *TagBuilder) Build() map[string]string {
	result := make(map[string]string, len(b.tags))
	for k, v := range b.tags {
		result[k] = v
	}
	return result
}

// IsManaged reports whether a tag key is one mskstack sets itself.
func IsManaged(key string) bool {
	return strings.HasPrefix(key, "mskstack:")
}

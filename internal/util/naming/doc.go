// Package naming provides consistent names for the AWS objects mskstack
// creates outside the template.
//
// Staged templates are named {prefix}{stack}-{16 hex chars of the body
// SHA-256}, so redeploying an unchanged template overwrites the same
// object. Change sets are named {tool}-{purpose}-{UTC timestamp}.
package naming

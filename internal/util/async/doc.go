// Package async runs independent operations concurrently and reports the
// first failure.
package async

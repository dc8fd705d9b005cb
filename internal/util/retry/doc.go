// Package retry provides exponential backoff for calls that fail
// transiently, such as throttled AWS requests and broker dials.
package retry

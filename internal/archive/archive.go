// Package archive persists raw fetched markup before extraction. The
// abstraction keeps the pipeline independent of where audit copies go
// (Google Cloud Storage, the local filesystem, or nowhere).
package archive

import "context"

// NoOp discards archived documents. Used when archiving is disabled.
type NoOp struct{}

// Put does nothing and reports an empty URI.
func (NoOp) Put(_ context.Context, _ string, _ string, _ []byte) (string, error) {
	return "", nil
}

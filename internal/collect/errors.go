// Package collect gathers raw documents from web pages and local directories.
package collect

import (
	"fmt"
)

// CollectionError reports a source that could not be collected. Collection of
// other sources continues past it.
type CollectionError struct {
	Source     string
	StatusCode int // HTTP status for web sources, 0 otherwise
	Err        error
}

func (e *CollectionError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("collect %s: failed to retrieve the webpage, status code %d", e.Source, e.StatusCode)
	}
	return fmt.Sprintf("collect %s: %v", e.Source, e.Err)
}

func (e *CollectionError) Unwrap() error {
	return e.Err
}

// Package catalog holds the read-only card catalog used to validate deck
// membership and to answer card searches.
package catalog

// Card is an immutable catalog record.
type Card struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Set  string `json:"set"`
}

// Source identifies where the loaded catalog came from.
type Source string

const (
	SourceRemote Source = "remote"
	SourceLocal  Source = "local"
	SourceNone   Source = "none"
)

package id

import "github.com/oklog/ulid/v2"

// New generates a ULID string for use as an entity identifier. ULIDs sort
// lexicographically by creation time, which keeps DynamoDB keys and logs in
// rough chronological order.
func New() string {
	return ulid.Make().String()
}

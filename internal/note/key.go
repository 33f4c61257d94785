package note

import (
	"strings"

	"github.com/oklog/ulid/v2"
)

// NewCaseID is the placeholder case id used until a faculty-authored case
// is first persisted.
const NewCaseID = "new"

// DraftKeyPrefix prefixes every draft storage key.
const DraftKeyPrefix = "draft_"

// StorageKey returns the key a draft is persisted under:
// draft_{caseId}_{encounterId}.
func StorageKey(caseID, encounterID string) string {
	return DraftKeyPrefix + caseID + "_" + encounterID
}

// ParseStorageKey splits a storage key into its case and encounter ids.
// The encounter id is taken after the last underscore, so case ids may
// contain underscores. ok is false for keys that are not draft keys.
func ParseStorageKey(key string) (caseID, encounterID string, ok bool) {
	rest, found := strings.CutPrefix(key, DraftKeyPrefix)
	if !found {
		return "", "", false
	}
	i := strings.LastIndex(rest, "_")
	if i <= 0 || i == len(rest)-1 {
		return "", "", false
	}
	return rest[:i], rest[i+1:], true
}

// NewID returns a ULID string. IDs combine a millisecond timestamp with
// random entropy and are monotonic within a process, so rapid calls never
// collide.
func NewID() string {
	return ulid.Make().String()
}

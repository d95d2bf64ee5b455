package client

import (
	"sync"

	"github.com/fivetwenty-io/strapi-client/pkg/strapi"
)

// snapshot is the state needed to compensate one operation: the record
// before an update or delete, or the record a create produced.
type snapshot struct {
	kind  strapi.OperationType
	prior strapi.Record
}

// snapshotStore maps correlation ids to snapshots for one atomic batch.
// Creates write to it concurrently during execution.
type snapshotStore struct {
	mu      sync.Mutex
	entries map[string]snapshot
}

func newSnapshotStore() *snapshotStore {
	return &snapshotStore{entries: make(map[string]snapshot)}
}

func (s *snapshotStore) put(key string, entry snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.entries[key] = entry
}

func (s *snapshotStore) get(key string) (snapshot, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.entries[key]

	return entry, ok
}

// discard removes the entries of keys.
func (s *snapshotStore) discard(keys []string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, key := range keys {
		delete(s.entries, key)
	}
}

func (s *snapshotStore) len() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return len(s.entries)
}

// restorePayload builds the body that puts prior back. Identifiers are
// dropped so the server assigns or keeps its own. A Strapi v4 entry
// ({"data": {"id", "attributes"}}) is sent back as {"data": attributes}; any
// other {"data": {...}} envelope as {"data": fields}.
func restorePayload(prior strapi.Record) any {
	if prior == nil {
		return nil
	}

	if data, ok := asObject(prior["data"]); ok {
		if attributes, ok := asObject(data["attributes"]); ok {
			return map[string]any{"data": withoutIdentity(attributes)}
		}

		return map[string]any{"data": withoutIdentity(data)}
	}

	return withoutIdentity(prior)
}

func withoutIdentity(fields map[string]any) map[string]any {
	out := make(map[string]any, len(fields))

	for key, value := range fields {
		if key == "id" || key == "documentId" {
			continue
		}

		out[key] = value
	}

	return out
}

func asObject(value any) (map[string]any, bool) {
	switch typed := value.(type) {
	case map[string]any:
		return typed, true
	case strapi.Record:
		return typed, true
	default:
		return nil, false
	}
}

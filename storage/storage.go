package storage

// KV is persistent string key-value storage. The session manager uses it for
// the preferred-connector and explicit-disconnect markers; the pending-update
// store uses it for the in-flight mutation collection.
type KV interface {
	// Get returns the value for key, or "" and false if the key is absent.
	Get(key string) (string, bool)
	// Set stores value under key, replacing any previous value.
	Set(key, value string) error
	// Remove deletes key. Removing an absent key is not an error.
	Remove(key string) error
}

package redis

import "fmt"

// KeyBuilder provides environment-aware Redis key building functionality
type KeyBuilder struct {
	prefix string // Environment prefix (staging/prod)
}

// NewKeyBuilder creates a new key builder with environment-based prefix
func NewKeyBuilder(environment string) *KeyBuilder {
	prefix := "prod"
	if environment == "development" || environment == "staging" || environment == "test" {
		prefix = "staging"
	}

	return &KeyBuilder{
		prefix: prefix,
	}
}

// BuildKey constructs a Redis key with the environment prefix
func (kb *KeyBuilder) BuildKey(key string) string {
	return fmt.Sprintf("%s:%s", kb.prefix, key)
}

// GetPrefix returns the current environment prefix
func (kb *KeyBuilder) GetPrefix() string {
	return kb.prefix
}

// KeyPin maps a short access pin to a session id
func (kb *KeyBuilder) KeyPin(pin string) string {
	return kb.BuildKey(fmt.Sprintf(KeyPinSession, pin))
}

// KeyAttendees is the per-session attendee heartbeat sorted set
func (kb *KeyBuilder) KeySessionAttendees(sessionID string) string {
	return kb.BuildKey(fmt.Sprintf(KeyAttendees, sessionID))
}

// KeyTally is the cached tally snapshot for a question
func (kb *KeyBuilder) KeyTally(questionID string) string {
	return kb.BuildKey(fmt.Sprintf(KeyTallyByQuery, questionID))
}

// KeyCustom builds an environment-prefixed key from a custom pattern
func (kb *KeyBuilder) KeyCustom(pattern string, args ...interface{}) string {
	key := fmt.Sprintf(pattern, args...)
	return kb.BuildKey(key)
}

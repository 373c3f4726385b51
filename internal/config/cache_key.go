package config

import (
	"fmt"
)

type CacheKeyStruct struct{}

func NewCacheKeyStruct() *CacheKeyStruct {
	return &CacheKeyStruct{}
}

// ConsoleSessionKey returns the cache key for a console operator session.
func (r *CacheKeyStruct) ConsoleSessionKey(sessionID string) string {
	return fmt.Sprintf("console:session:%s", sessionID)
}

// CLISessionKey is the key qbctl stores its single session under.
func (r *CacheKeyStruct) CLISessionKey() string {
	return "current"
}

var CacheKey = NewCacheKeyStruct()

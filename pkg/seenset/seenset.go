// Package seenset suppresses re-reporting of identifiers already emitted.
// Entries expire after a TTL so memory stays bounded over a long session;
// an expired identifier is treated as brand new if it shows up again.
package seenset

import (
	"time"

	gocache "github.com/patrickmn/go-cache"
)

type Set struct {
	c *gocache.Cache
}

// New builds a set whose entries live for ttl. cleanupInterval controls how
// often expired entries are swept out of memory.
func New(ttl, cleanupInterval time.Duration) *Set {
	return &Set{
		c: gocache.New(ttl, cleanupInterval),
	}
}

// Add records id and reports whether it was newly added. A false return
// means the id is already present and its record must not be emitted again.
func (s *Set) Add(id string) bool {
	return s.c.Add(id, struct{}{}, gocache.DefaultExpiration) == nil
}

// Contains reports whether id is present and unexpired.
func (s *Set) Contains(id string) bool {
	_, ok := s.c.Get(id)
	return ok
}

// Len reports the number of tracked identifiers, including entries that
// have expired but not yet been swept.
func (s *Set) Len() int {
	return s.c.ItemCount()
}

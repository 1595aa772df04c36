package lectern

import "sync"

// chapterCache is a process-lifetime shadow of the persistent store. It
// exists purely to skip storage round-trips within a session; losing it
// costs nothing but a re-read. It must never answer offline-availability
// questions.
type chapterCache struct {
	mu sync.RWMutex
	m  map[string][]Verse
}

func newChapterCache() *chapterCache {
	return &chapterCache{m: make(map[string][]Verse)}
}

func (c *chapterCache) get(ref ChapterRef) ([]Verse, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	v, ok := c.m[ref.Key()]
	return v, ok
}

func (c *chapterCache) set(ref ChapterRef, verses []Verse) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.m[ref.Key()] = verses
}

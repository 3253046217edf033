package ticktick

import (
	"sync"
	"time"
)

// CacheTTL is how long fetched projects and tasks are served from memory.
const CacheTTL = 100 * time.Second

// cache holds the last fetched project and task lists. Both lists share one
// timestamp: storing either list refreshes it.
type cache struct {
	mu        sync.Mutex
	projects  []Project
	tasks     []Task
	fetchedAt time.Time
	now       func() time.Time
}

func newCache(now func() time.Time) *cache {
	if now == nil {
		now = time.Now
	}
	return &cache{now: now}
}

// validLocked reports whether the shared timestamp is inside the window.
// c.mu must be held.
func (c *cache) validLocked() bool {
	return !c.fetchedAt.IsZero() && c.now().Sub(c.fetchedAt) < CacheTTL
}

// cachedProjects returns a copy of the project list if it is fresh and
// non-empty. An empty list counts as never fetched.
func (c *cache) cachedProjects() ([]Project, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.validLocked() || len(c.projects) == 0 {
		return nil, false
	}
	return append([]Project(nil), c.projects...), true
}

func (c *cache) cachedTasks() ([]Task, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.validLocked() || len(c.tasks) == 0 {
		return nil, false
	}
	return append([]Task(nil), c.tasks...), true
}

func (c *cache) storeProjects(projects []Project) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.projects = append([]Project(nil), projects...)
	c.fetchedAt = c.now()
}

func (c *cache) storeTasks(tasks []Task) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.tasks = append([]Task(nil), tasks...)
	c.fetchedAt = c.now()
}

// invalidate drops both lists and the timestamp.
func (c *cache) invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.projects = nil
	c.tasks = nil
	c.fetchedAt = time.Time{}
}

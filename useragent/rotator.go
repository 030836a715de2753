// Package useragent hands out user-agent strings in round-robin order. The
// rotation index is shared by every store task in the process and persisted
// so a restart does not reuse the agent the previous run stopped on.
package useragent

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"
)

// Rotator owns the shared rotation index. All access goes through Next and
// Peek; the raw index is never exposed for mutation.
type Rotator struct {
	mu        sync.Mutex
	agents    []string
	index     int
	indexPath string
	dirty     bool
}

// NewRotator loads the agent list from listPath (one agent per line, blank
// lines skipped) and resumes from the index persisted at indexPath. A
// missing or unreadable index file starts rotation at zero. An empty agent
// list is a configuration error.
func NewRotator(listPath, indexPath string) (*Rotator, error) {
	data, err := os.ReadFile(listPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read user agent list: %w", err)
	}

	var agents []string
	for _, line := range strings.Split(string(data), "\n") {
		if line = strings.TrimSpace(line); line != "" {
			agents = append(agents, line)
		}
	}
	if len(agents) == 0 {
		return nil, fmt.Errorf("user agent list %s is empty", listPath)
	}

	r := &Rotator{agents: agents, indexPath: indexPath}
	r.index = loadIndex(indexPath, len(agents))
	return r, nil
}

// loadIndex resumes one past the last persisted index so a restart does not
// repeat the agent the previous process used last.
func loadIndex(path string, n int) int {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0
	}
	saved, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil || saved < 0 {
		return 0
	}
	return (saved + 1) % n
}

// Next returns the current user agent and advances the shared index.
func (r *Rotator) Next() string {
	r.mu.Lock()
	defer r.mu.Unlock()

	agent := r.agents[r.index]
	r.index = (r.index + 1) % len(r.agents)
	r.dirty = true
	return agent
}

// Peek returns the agent Next would hand out, without advancing.
func (r *Rotator) Peek() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.agents[r.index]
}

// Len returns the number of configured user agents.
func (r *Rotator) Len() int {
	return len(r.agents)
}

// Flush persists the index of the last agent handed out. Callers flush
// after each store task and at shutdown; at most the unflushed increments
// of in-flight tasks are lost on a crash.
func (r *Rotator) Flush() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.dirty {
		return nil
	}
	// The file records the last used index, not the next one; see loadIndex.
	last := (r.index - 1 + len(r.agents)) % len(r.agents)
	if err := os.WriteFile(r.indexPath, []byte(strconv.Itoa(last)), 0o600); err != nil {
		return fmt.Errorf("failed to persist user agent index: %w", err)
	}
	r.dirty = false
	return nil
}

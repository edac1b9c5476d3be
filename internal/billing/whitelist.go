package billing

import (
	"strconv"
	"strings"
)

// Whitelist is the set of users exempt from all quota checks. Entries
// are numeric user ids or @handles; the set is built once at startup
// and never mutated.
type Whitelist struct {
	ids     map[int64]struct{}
	handles map[string]struct{}
}

func NewWhitelist(entries []string) *Whitelist {
	w := &Whitelist{
		ids:     make(map[int64]struct{}),
		handles: make(map[string]struct{}),
	}
	for _, e := range entries {
		e = strings.TrimSpace(e)
		if e == "" {
			continue
		}
		if id, err := strconv.ParseInt(e, 10, 64); err == nil {
			w.ids[id] = struct{}{}
			continue
		}
		w.handles[normalizeHandle(e)] = struct{}{}
	}
	return w
}

func (w *Whitelist) Contains(userID int64, handle string) bool {
	if _, ok := w.ids[userID]; ok {
		return true
	}
	if handle == "" {
		return false
	}
	_, ok := w.handles[normalizeHandle(handle)]
	return ok
}

func (w *Whitelist) Empty() bool {
	return len(w.ids) == 0 && len(w.handles) == 0
}

func normalizeHandle(h string) string {
	return strings.ToLower(strings.TrimPrefix(strings.TrimSpace(h), "@"))
}

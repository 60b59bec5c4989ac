package payroll_import

import "sync"

// ProgressHub fans chunk progress out to subscribers keyed by upload id.
type ProgressHub struct {
	mu   sync.Mutex
	subs map[string]map[chan ProgressUpdate]struct{}
}

func NewProgressHub() *ProgressHub {
	return &ProgressHub{subs: make(map[string]map[chan ProgressUpdate]struct{})}
}

// Subscribe returns a channel of updates for uploadID and a function that
// ends the subscription.
func (h *ProgressHub) Subscribe(uploadID string) (<-chan ProgressUpdate, func()) {
	ch := make(chan ProgressUpdate, 16)

	h.mu.Lock()
	if h.subs[uploadID] == nil {
		h.subs[uploadID] = make(map[chan ProgressUpdate]struct{})
	}
	h.subs[uploadID][ch] = struct{}{}
	h.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			h.mu.Lock()
			defer h.mu.Unlock()
			if subs, ok := h.subs[uploadID]; ok {
				delete(subs, ch)
				if len(subs) == 0 {
					delete(h.subs, uploadID)
				}
			}
			close(ch)
		})
	}
}

// Publish delivers u to current subscribers. Slow subscribers miss updates
// rather than stalling the parser.
func (h *ProgressHub) Publish(uploadID string, u ProgressUpdate) {
	if uploadID == "" {
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	for ch := range h.subs[uploadID] {
		select {
		case ch <- u:
		default:
		}
	}
}

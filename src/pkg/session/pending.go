// Package session tracks which users announced an upload and have not sent the file yet.
package session

import (
	"strings"
	"sync"
)

// PendingUploads is owned by the transport boundary and passed to whoever routes attachments.
type PendingUploads struct {
	mu      sync.Mutex
	pending map[string]bool
}

func NewPendingUploads() *PendingUploads {
	return &PendingUploads{pending: map[string]bool{}}
}

// Mark records that the next attachment from userID is a catalog upload.
func (p *PendingUploads) Mark(userID string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.pending[normalizeUser(userID)] = true
}

func (p *PendingUploads) IsPending(userID string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.pending[normalizeUser(userID)]
}

/*
Take reports whether userID was pending and clears the flag in the same step,
so one announcement admits exactly one attachment.
*/
func (p *PendingUploads) Take(userID string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	key := normalizeUser(userID)
	pending := p.pending[key]
	delete(p.pending, key)
	return pending
}

// Clear is called after one attachment was processed, successful or not.
func (p *PendingUploads) Clear(userID string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.pending, normalizeUser(userID))
}

func normalizeUser(userID string) string {
	return strings.TrimSpace(userID)
}

// Package peerset implements the connection registry: the ordered set of
// currently-open (or opening) outbound peer connections, keyed by advertised
// address. All mutation funnels through insert-if-absent and remove-by-key,
// atomic at single-entry granularity.
package peerset

import (
	"sync"

	"github.com/peermesh/peermesh-go/internal/peerlink"
	"github.com/peermesh/peermesh-go/pkg/overlay"
)

// Set holds outbound peer connections in discovery order. It owns two
// invariants: no two entries share an address, and no entry's address equals
// the local node's own address.
type Set struct {
	self string

	mu    sync.RWMutex
	byKey map[string]*peerlink.Conn
	order []string
}

// New creates an empty set for a node advertising the given address.
func New(self string) *Set {
	return &Set{
		self:  self,
		byKey: make(map[string]*peerlink.Conn),
	}
}

// Insert adds a connection under its advertised address if absent. It
// reports false, without mutating, for a duplicate address or the local
// node's own address.
func (s *Set) Insert(c *peerlink.Conn) bool {
	addr := c.Addr()
	if addr == s.self {
		return false
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.byKey[addr]; ok {
		return false
	}
	s.byKey[addr] = c
	s.order = append(s.order, addr)
	return true
}

// Remove deletes the entry for addr, reporting whether one existed.
func (s *Set) Remove(addr string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.byKey[addr]; !ok {
		return false
	}
	delete(s.byKey, addr)
	for i, a := range s.order {
		if a == addr {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	return true
}

// RemoveConn deletes c's entry only if c is the connection registered under
// its address, so a stale duplicate can never evict a live replacement.
func (s *Set) RemoveConn(c *peerlink.Conn) bool {
	addr := c.Addr()
	s.mu.Lock()
	defer s.mu.Unlock()
	if cur, ok := s.byKey[addr]; !ok || cur != c {
		return false
	}
	delete(s.byKey, addr)
	for i, a := range s.order {
		if a == addr {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	return true
}

// Contains reports whether addr is the local address or a tracked peer.
// The local address counts as known so callers never dial themselves.
func (s *Set) Contains(addr string) bool {
	if addr == s.self {
		return true
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.byKey[addr]
	return ok
}

// Get returns the connection tracked under addr, if any.
func (s *Set) Get(addr string) (*peerlink.Conn, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.byKey[addr]
	return c, ok
}

// Addresses returns every tracked address in insertion order.
func (s *Set) Addresses() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	addrs := make([]string, len(s.order))
	copy(addrs, s.order)
	return addrs
}

// Snapshot returns the tracked connections in insertion order.
func (s *Set) Snapshot() []*peerlink.Conn {
	s.mu.RLock()
	defer s.mu.RUnlock()
	conns := make([]*peerlink.Conn, 0, len(s.order))
	for _, addr := range s.order {
		conns = append(conns, s.byKey[addr])
	}
	return conns
}

// Infos returns address and state for every tracked peer, in insertion order.
func (s *Set) Infos() []overlay.PeerInfo {
	s.mu.RLock()
	defer s.mu.RUnlock()
	infos := make([]overlay.PeerInfo, 0, len(s.order))
	for _, addr := range s.order {
		infos = append(infos, overlay.PeerInfo{
			Address: addr,
			State:   s.byKey[addr].State(),
		})
	}
	return infos
}

// Len returns the number of tracked peers.
func (s *Set) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.byKey)
}

package players

import (
	"cmp"
	"slices"
	"sync"
	"time"

	"mazecoord/internal/gamedata"
)

// Store is one room's participant table. Reads return copies.
type Store struct {
	mu      sync.Mutex
	players map[string]*Participant
	seq     uint64
}

func NewStore() *Store {
	return &Store{
		players: make(map[string]*Participant),
	}
}

func (s *Store) Add(id string, role gamedata.Role, now time.Time) Participant {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seq++
	p := &Participant{ID: id, Role: role, JoinedAt: now, LastActivity: now, seq: s.seq}
	s.players[id] = p
	return *p
}

func (s *Store) Get(id string) (Participant, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.players[id]
	if !ok {
		return Participant{}, false
	}
	return *p, true
}

// List returns participants in join order.
func (s *Store) List() []Participant {
	s.mu.Lock()
	defer s.mu.Unlock()
	list := make([]Participant, 0, len(s.players))
	for _, p := range s.players {
		list = append(list, *p)
	}
	slices.SortFunc(list, func(a, b Participant) int {
		return cmp.Compare(a.seq, b.seq)
	})
	return list
}

func (s *Store) Remove(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.players[id]; !ok {
		return false
	}
	delete(s.players, id)
	return true
}

func (s *Store) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.players)
}

func (s *Store) SetRole(id string, role gamedata.Role) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p, ok := s.players[id]; ok {
		p.Role = role
		return true
	}
	return false
}

// Roles returns participant id -> role.
func (s *Store) Roles() map[string]gamedata.Role {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]gamedata.Role, len(s.players))
	for id, p := range s.players {
		out[id] = p.Role
	}
	return out
}

// HolderOf returns the participant holding role, or "".
func (s *Store) HolderOf(role gamedata.Role) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, p := range s.players {
		if p.Role == role {
			return id
		}
	}
	return ""
}

// SetPose overwrites the participant's last pose.
func (s *Store) SetPose(id string, pose Pose) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p, ok := s.players[id]; ok {
		p.Pose = &pose
		return true
	}
	return false
}

// ResetAll puts everyone back to waiting and forgets poses.
func (s *Store) ResetAll() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range s.players {
		p.Role = gamedata.RoleWaiting
		p.Pose = nil
	}
}

func (s *Store) ClearPoses() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range s.players {
		p.Pose = nil
	}
}

// Touch records activity and re-arms the idle warning.
func (s *Store) Touch(id string, now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p, ok := s.players[id]; ok {
		p.LastActivity = now
		p.Warned = false
	}
}

// Idle returns participants inactive for longer than threshold that have not
// been warned yet, and marks them warned.
func (s *Store) Idle(now time.Time, threshold time.Duration) []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	var ids []string
	for id, p := range s.players {
		if p.Warned || now.Sub(p.LastActivity) <= threshold {
			continue
		}
		p.Warned = true
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

package rooms

import (
	"fmt"
	"log/slog"
	"math/rand/v2"
	"sort"
	"sync"
	"time"

	"mazecoord/internal/gamedata"
	"mazecoord/internal/players"
	"mazecoord/internal/wshub"
)

// Registry owns the live rooms keyed by code. It is the only structure shared
// across rooms; callers lock a room's Mu after looking it up, never while the
// registry is being consulted on their behalf.
type Registry interface {
	// Create returns the new room with Mu held so nothing can observe it
	// empty; the caller unlocks it once the creator is admitted.
	Create(now time.Time) (*Room, error)
	Get(code string) (*Room, error)
	Delete(code string)
	List() []*Room
}

// Options configures a Store. Zero values fall back to crypto-random codes and
// math/rand seeds and shuffles.
type Options struct {
	RoleSet []gamedata.Role
	Logger  *slog.Logger
	// OnDrop is handed to every room's hub.
	OnDrop func(playerID string)

	CodeFunc func() (string, error)
	SeedFunc func() int64
	Intn     func(n int) int
}

type Store struct {
	mu    sync.Mutex
	rooms map[string]*Room
	opts  Options
}

func NewStore(opts Options) *Store {
	if opts.CodeFunc == nil {
		opts.CodeFunc = GenerateCode
	}
	if opts.SeedFunc == nil {
		opts.SeedFunc = func() int64 { return rand.Int64N(1 << 31) }
	}
	if opts.Intn == nil {
		opts.Intn = rand.IntN
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Store{
		rooms: make(map[string]*Room),
		opts:  opts,
	}
}

func (s *Store) Create(now time.Time) (*Room, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	// Collisions are checked against live rooms only.
	for range 10 {
		code, err := s.opts.CodeFunc()
		if err != nil {
			return nil, fmt.Errorf("generating room code: %w", err)
		}
		if _, exists := s.rooms[code]; exists {
			continue
		}

		room := &Room{
			Code:         code,
			CreatedAt:    now,
			Hub:          wshub.NewHub(s.opts.Logger.With("room", code), s.opts.OnDrop),
			Players:      players.NewStore(),
			Game:         gamedata.NewGame(),
			seed:         s.opts.SeedFunc(),
			roleSet:      append([]gamedata.Role(nil), s.opts.RoleSet...),
			lastActivity: now,
			intn:         s.opts.Intn,
			newSeed:      s.opts.SeedFunc,
		}
		room.Mu.Lock()
		s.rooms[code] = room
		return room, nil
	}
	return nil, fmt.Errorf("failed to generate unique room code after 10 attempts")
}

func (s *Store) Get(code string) (*Room, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	room, ok := s.rooms[code]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrRoomNotFound, code)
	}
	return room, nil
}

// Delete removes the room. Callers close the room under its Mu first, so only
// one of them gets here for a given room.
func (s *Store) Delete(code string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.rooms, code)
}

// List returns live rooms ordered by creation time.
func (s *Store) List() []*Room {
	s.mu.Lock()
	defer s.mu.Unlock()
	list := make([]*Room, 0, len(s.rooms))
	for _, r := range s.rooms {
		list = append(list, r)
	}
	sort.Slice(list, func(i, j int) bool {
		if list[i].CreatedAt.Equal(list[j].CreatedAt) {
			return list[i].Code < list[j].Code
		}
		return list[i].CreatedAt.Before(list[j].CreatedAt)
	})
	return list
}

package rooms

import (
	"errors"
	"sync"
	"testing"
	"time"

	"mazecoord/internal/gamedata"
)

func testOptions() Options {
	roles, _ := gamedata.RoleSetFor(4)
	return Options{RoleSet: roles}
}

func TestNewStore(t *testing.T) {
	s := NewStore(testOptions())
	if s == nil {
		t.Fatal("NewStore() returned nil")
	}
	if len(s.List()) != 0 {
		t.Error("new store should have no rooms")
	}
}

func TestStore_Create(t *testing.T) {
	s := NewStore(testOptions())
	now := time.Now()
	room, err := s.Create(now)
	if err != nil {
		t.Fatal(err)
	}
	if room.Code == "" {
		t.Error("room code should not be empty")
	}
	if room.Game == nil || room.Hub == nil || room.Players == nil {
		t.Fatal("room should have game, hub and players")
	}
	if room.Phase() != gamedata.PhaseWaiting {
		t.Errorf("Phase = %s, want WAITING", room.Phase())
	}
	if room.Required() != 4 {
		t.Errorf("Required = %d, want 4", room.Required())
	}
	if !room.LastActivity().Equal(now) {
		t.Error("LastActivity should start at creation time")
	}
}

func TestStore_CreateReturnsRoomLocked(t *testing.T) {
	s := NewStore(testOptions())
	room, err := s.Create(time.Now())
	if err != nil {
		t.Fatal(err)
	}
	// A sweep that lists the room must not get in before the creator joins.
	if room.Mu.TryLock() {
		t.Fatal("Create should hand the room back with Mu held")
	}
	room.Mu.Unlock()

	listed := s.List()
	if len(listed) != 1 || !listed[0].Mu.TryLock() {
		t.Fatal("room should be lockable once the creator unlocks it")
	}
	listed[0].Mu.Unlock()
}

func TestStore_CreateRetriesOnLiveCollision(t *testing.T) {
	codes := []string{"ABC123", "ABC123", "XYZ789"}
	i := 0
	opts := testOptions()
	opts.CodeFunc = func() (string, error) {
		c := codes[i]
		i++
		return c, nil
	}
	s := NewStore(opts)

	first, _ := s.Create(time.Now())
	second, err := s.Create(time.Now())
	if err != nil {
		t.Fatal(err)
	}
	if first.Code != "ABC123" || second.Code != "XYZ789" {
		t.Errorf("codes = %s, %s; want ABC123, XYZ789", first.Code, second.Code)
	}
}

func TestStore_CodeReusableAfterDelete(t *testing.T) {
	opts := testOptions()
	opts.CodeFunc = func() (string, error) { return "ABC123", nil }
	s := NewStore(opts)

	room, _ := s.Create(time.Now())
	if _, err := s.Create(time.Now()); err == nil {
		t.Fatal("second create with the same live code should fail")
	}
	s.Delete(room.Code)
	if _, err := s.Create(time.Now()); err != nil {
		t.Fatalf("code should be reusable after delete: %v", err)
	}
}

func TestStore_CodeFuncError(t *testing.T) {
	opts := testOptions()
	opts.CodeFunc = func() (string, error) { return "", errors.New("entropy exhausted") }
	s := NewStore(opts)
	if _, err := s.Create(time.Now()); err == nil {
		t.Fatal("Create should surface the code generator error")
	}
}

func TestStore_Get(t *testing.T) {
	s := NewStore(testOptions())
	room, _ := s.Create(time.Now())

	got, err := s.Get(room.Code)
	if err != nil {
		t.Fatalf("Get() error for existing room: %v", err)
	}
	if got != room {
		t.Error("Get() returned a different room")
	}

	if _, err := s.Get("ZZZZZZ"); !errors.Is(err, ErrRoomNotFound) {
		t.Errorf("Get() error = %v, want ErrRoomNotFound", err)
	}
}

func TestStore_Delete(t *testing.T) {
	s := NewStore(testOptions())
	room, _ := s.Create(time.Now())

	s.Delete(room.Code)

	if _, err := s.Get(room.Code); err == nil {
		t.Error("room should be deleted")
	}
}

func TestStore_ListOrderedByCreation(t *testing.T) {
	s := NewStore(testOptions())
	base := time.Now()
	a, _ := s.Create(base.Add(time.Second))
	b, _ := s.Create(base)

	list := s.List()
	if len(list) != 2 {
		t.Fatalf("List() returned %d rooms, want 2", len(list))
	}
	if list[0] != b || list[1] != a {
		t.Error("List() should be ordered by creation time")
	}
}

func TestStore_ConcurrentAccess(t *testing.T) {
	s := NewStore(testOptions())

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := s.Create(time.Now()); err != nil {
				t.Error(err)
			}
		}()
	}
	wg.Wait()

	if n := len(s.List()); n != 50 {
		t.Errorf("concurrent creates: got %d rooms, want 50", n)
	}
}

func TestStore_RoomIsolation(t *testing.T) {
	s := NewStore(testOptions())
	room1, _ := s.Create(time.Now())
	room2, _ := s.Create(time.Now())

	room1.Join("p1", nil, time.Now())
	room2.Join("p2", nil, time.Now())

	if _, ok := room1.Players.Get("p2"); ok {
		t.Error("room1 should not see room2's player")
	}
	if room1.HostID() != "p1" || room2.HostID() != "p2" {
		t.Error("each room should have its own host")
	}
}

func TestStore_SequentialSeeds(t *testing.T) {
	var n int64
	opts := testOptions()
	opts.SeedFunc = func() int64 { n++; return n }
	s := NewStore(opts)

	for want := int64(1); want <= 3; want++ {
		room, _ := s.Create(time.Now())
		if room.Seed() != want {
			t.Errorf("Seed() = %d, want %d", room.Seed(), want)
		}
	}
}

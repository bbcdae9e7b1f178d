package session

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/hitoshi/lobbyman/internal/model"
	"github.com/hitoshi/lobbyman/internal/repository"
)

type mockSessionRepo struct {
	saveFunc          func(ctx context.Context, session *model.Session, ttl time.Duration) error
	findByIDFunc      func(ctx context.Context, id string) (*model.Session, error)
	currentIDFunc     func(ctx context.Context, uid string) (string, error)
	deleteByIDFunc    func(ctx context.Context, id string) error
	deletePointerFunc func(ctx context.Context, uid string) error
	resolveUserFunc   func(ctx context.Context, uid string) (model.User, error)
}

var _ repository.SessionRepository = (*mockSessionRepo)(nil)

func (m *mockSessionRepo) Save(ctx context.Context, session *model.Session, ttl time.Duration) error {
	return m.saveFunc(ctx, session, ttl)
}

func (m *mockSessionRepo) FindByID(ctx context.Context, id string) (*model.Session, error) {
	return m.findByIDFunc(ctx, id)
}

func (m *mockSessionRepo) CurrentID(ctx context.Context, uid string) (string, error) {
	return m.currentIDFunc(ctx, uid)
}

func (m *mockSessionRepo) DeleteByID(ctx context.Context, id string) error {
	return m.deleteByIDFunc(ctx, id)
}

func (m *mockSessionRepo) DeletePointer(ctx context.Context, uid string) error {
	return m.deletePointerFunc(ctx, uid)
}

func (m *mockSessionRepo) ResolveUser(ctx context.Context, uid string) (model.User, error) {
	return m.resolveUserFunc(ctx, uid)
}

type mockQueueLeaver struct {
	left []string
}

func (m *mockQueueLeaver) Leave(ctx context.Context, uid string) error {
	m.left = append(m.left, uid)
	return nil
}

type mockRoomEvictor struct {
	evicted []string
}

func (m *mockRoomEvictor) EvictFromAll(ctx context.Context, uid string) error {
	m.evicted = append(m.evicted, uid)
	return nil
}

func TestRegistry_Authenticate_FirstLogin_NoEviction(t *testing.T) {
	var saved *model.Session
	var savedTTL time.Duration
	repo := &mockSessionRepo{
		currentIDFunc: func(ctx context.Context, uid string) (string, error) {
			return "", nil
		},
		saveFunc: func(ctx context.Context, session *model.Session, ttl time.Duration) error {
			saved = session
			savedTTL = ttl
			return nil
		},
	}
	queue := &mockQueueLeaver{}
	rooms := &mockRoomEvictor{}
	registry := NewRegistry(repo, queue, rooms, time.Hour)

	session, err := registry.Authenticate(context.Background(), "alice@example.com", "Alice")
	if err != nil {
		t.Fatalf("Authenticate() error = %v", err)
	}

	if session.ID == "" {
		t.Error("session ID should not be empty")
	}
	if session.User.UID != "alice@example.com" || session.User.Name != "Alice" {
		t.Errorf("session user = %+v", session.User)
	}
	if saved == nil || saved.ID != session.ID {
		t.Error("session should be saved to the repository")
	}
	if savedTTL != time.Hour {
		t.Errorf("saved ttl = %v, want 1h", savedTTL)
	}
	if len(queue.left) != 0 || len(rooms.evicted) != 0 {
		t.Error("first login should not evict anyone")
	}
}

func TestRegistry_Authenticate_Relogin_EvictsPriorSession(t *testing.T) {
	var deletedIDs []string
	repo := &mockSessionRepo{
		currentIDFunc: func(ctx context.Context, uid string) (string, error) {
			return "old-session", nil
		},
		deleteByIDFunc: func(ctx context.Context, id string) error {
			deletedIDs = append(deletedIDs, id)
			return nil
		},
		saveFunc: func(ctx context.Context, session *model.Session, ttl time.Duration) error {
			return nil
		},
	}
	queue := &mockQueueLeaver{}
	rooms := &mockRoomEvictor{}
	registry := NewRegistry(repo, queue, rooms, time.Hour)

	session, err := registry.Authenticate(context.Background(), "alice@example.com", "Alice")
	if err != nil {
		t.Fatalf("Authenticate() error = %v", err)
	}

	if len(deletedIDs) != 1 || deletedIDs[0] != "old-session" {
		t.Errorf("deleted sessions = %v, want [old-session]", deletedIDs)
	}
	if len(queue.left) != 1 || queue.left[0] != "alice@example.com" {
		t.Errorf("queue evictions = %v, want [alice@example.com]", queue.left)
	}
	if len(rooms.evicted) != 1 || rooms.evicted[0] != "alice@example.com" {
		t.Errorf("room evictions = %v, want [alice@example.com]", rooms.evicted)
	}
	if session.ID == "old-session" {
		t.Error("new session should have a fresh token")
	}
}

func TestRegistry_Validate_ValidToken_ReturnsOwner(t *testing.T) {
	repo := &mockSessionRepo{
		findByIDFunc: func(ctx context.Context, id string) (*model.Session, error) {
			return &model.Session{
				ID:   id,
				User: model.User{UID: "alice@example.com", Name: "Alice"},
			}, nil
		},
		currentIDFunc: func(ctx context.Context, uid string) (string, error) {
			return "sess-1", nil
		},
	}
	registry := NewRegistry(repo, &mockQueueLeaver{}, &mockRoomEvictor{}, time.Hour)

	user, err := registry.Validate(context.Background(), "sess-1")
	if err != nil {
		t.Fatalf("Validate() error = %v", err)
	}
	if user.UID != "alice@example.com" {
		t.Errorf("uid = %q, want alice@example.com", user.UID)
	}
}

func TestRegistry_Validate_MissingRecord_ReturnsErrInvalid(t *testing.T) {
	repo := &mockSessionRepo{
		findByIDFunc: func(ctx context.Context, id string) (*model.Session, error) {
			return nil, nil
		},
	}
	registry := NewRegistry(repo, &mockQueueLeaver{}, &mockRoomEvictor{}, time.Hour)

	_, err := registry.Validate(context.Background(), "gone")
	if !errors.Is(err, ErrInvalid) {
		t.Errorf("Validate() error = %v, want ErrInvalid", err)
	}
}

func TestRegistry_Validate_SupersededToken_ReturnsErrExpired(t *testing.T) {
	repo := &mockSessionRepo{
		findByIDFunc: func(ctx context.Context, id string) (*model.Session, error) {
			return &model.Session{
				ID:   id,
				User: model.User{UID: "alice@example.com", Name: "Alice"},
			}, nil
		},
		currentIDFunc: func(ctx context.Context, uid string) (string, error) {
			// 別のトークンが現行になっている
			return "sess-2", nil
		},
	}
	registry := NewRegistry(repo, &mockQueueLeaver{}, &mockRoomEvictor{}, time.Hour)

	_, err := registry.Validate(context.Background(), "sess-1")
	if !errors.Is(err, ErrExpired) {
		t.Errorf("Validate() error = %v, want ErrExpired", err)
	}
}

func TestRegistry_Invalidate_DeletesBothKeysAndEvicts(t *testing.T) {
	var deletedIDs, deletedPointers []string
	repo := &mockSessionRepo{
		currentIDFunc: func(ctx context.Context, uid string) (string, error) {
			return "sess-1", nil
		},
		deleteByIDFunc: func(ctx context.Context, id string) error {
			deletedIDs = append(deletedIDs, id)
			return nil
		},
		deletePointerFunc: func(ctx context.Context, uid string) error {
			deletedPointers = append(deletedPointers, uid)
			return nil
		},
	}
	queue := &mockQueueLeaver{}
	rooms := &mockRoomEvictor{}
	registry := NewRegistry(repo, queue, rooms, time.Hour)

	if err := registry.Invalidate(context.Background(), "alice@example.com"); err != nil {
		t.Fatalf("Invalidate() error = %v", err)
	}

	if len(deletedIDs) != 1 || deletedIDs[0] != "sess-1" {
		t.Errorf("deleted sessions = %v, want [sess-1]", deletedIDs)
	}
	if len(deletedPointers) != 1 || deletedPointers[0] != "alice@example.com" {
		t.Errorf("deleted pointers = %v, want [alice@example.com]", deletedPointers)
	}
	if len(queue.left) != 1 || len(rooms.evicted) != 1 {
		t.Error("invalidation should evict from queue and rooms")
	}
}

func TestRegistry_Invalidate_NoSession_StillEvicts(t *testing.T) {
	repo := &mockSessionRepo{
		currentIDFunc: func(ctx context.Context, uid string) (string, error) {
			return "", nil
		},
	}
	queue := &mockQueueLeaver{}
	rooms := &mockRoomEvictor{}
	registry := NewRegistry(repo, queue, rooms, time.Hour)

	if err := registry.Invalidate(context.Background(), "alice@example.com"); err != nil {
		t.Fatalf("Invalidate() error = %v", err)
	}

	if len(queue.left) != 1 || len(rooms.evicted) != 1 {
		t.Error("eviction should run even without a current session")
	}
}

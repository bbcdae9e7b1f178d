package repository

import (
	"testing"

	"github.com/hitoshi/lobbyman/internal/model"
)

// 各Redisリポジトリが対応するインターフェースを満たすことを検証
func TestRedisSessionRepo_ImplementsInterface(t *testing.T) {
	var _ SessionRepository = (*RedisSessionRepo)(nil)
}

func TestRedisLobbyRepo_ImplementsInterface(t *testing.T) {
	var _ LobbyRepository = (*RedisLobbyRepo)(nil)
}

func TestRedisRoomRepo_ImplementsInterface(t *testing.T) {
	var _ RoomRepository = (*RedisRoomRepo)(nil)
}

func TestRedisEventRepo_ImplementsInterface(t *testing.T) {
	var _ EventRepository = (*RedisEventRepo)(nil)
}

func TestNewRedisRepos_Initialize(t *testing.T) {
	if NewRedisSessionRepo(nil) == nil {
		t.Fatal("expected non-nil session repo")
	}
	if NewRedisLobbyRepo(nil, model.LobbyConfig{}) == nil {
		t.Fatal("expected non-nil lobby repo")
	}
	if NewRedisRoomRepo(nil) == nil {
		t.Fatal("expected non-nil room repo")
	}
	if NewRedisEventRepo(nil) == nil {
		t.Fatal("expected non-nil event repo")
	}
}

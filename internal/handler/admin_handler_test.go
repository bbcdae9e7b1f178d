package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"reflect"
	"strings"
	"testing"

	"github.com/hitoshi/lobbyman/internal/model"
)

// mockAdminLobbyService はAdminLobbyServiceInterfaceのモック実装。
type mockAdminLobbyService struct {
	setConfigFunc     func(ctx context.Context, cfg model.LobbyConfig) error
	createRoomForFunc func(ctx context.Context, uids []string) (string, error)
}

func (m *mockAdminLobbyService) SetConfig(ctx context.Context, cfg model.LobbyConfig) error {
	return m.setConfigFunc(ctx, cfg)
}

func (m *mockAdminLobbyService) CreateRoomFor(ctx context.Context, uids []string) (string, error) {
	return m.createRoomForFunc(ctx, uids)
}

var _ AdminLobbyServiceInterface = (*mockAdminLobbyService)(nil)

// TestAdminHandler_SetConfig_Validation はボディの型検査を検証する。
func TestAdminHandler_SetConfig_Validation(t *testing.T) {
	var got *model.LobbyConfig
	service := &mockAdminLobbyService{
		setConfigFunc: func(ctx context.Context, cfg model.LobbyConfig) error {
			got = &cfg
			return nil
		},
	}
	h := NewAdminHandler(service)

	tests := []struct {
		name string
		body string
		want int
	}{
		{"valid", `{"roomSize":4,"autoMatch":true}`, http.StatusOK},
		{"zero room size", `{"roomSize":0,"autoMatch":false}`, http.StatusOK},
		{"missing roomSize", `{"autoMatch":true}`, http.StatusBadRequest},
		{"missing autoMatch", `{"roomSize":4}`, http.StatusBadRequest},
		{"roomSize not integer", `{"roomSize":2.5,"autoMatch":true}`, http.StatusBadRequest},
		{"autoMatch not boolean", `{"roomSize":4,"autoMatch":"yes"}`, http.StatusBadRequest},
		{"not json", `nope`, http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/admin/config.set", strings.NewReader(tt.body))
			w := httptest.NewRecorder()
			h.SetConfig(w, req)
			if w.Code != tt.want {
				t.Errorf("status = %d, want %d", w.Code, tt.want)
			}
		})
	}

	if got == nil || got.RoomSize != 0 || got.AutoMatch != false {
		t.Errorf("last accepted config = %+v", got)
	}
}

// TestAdminHandler_SetConfig_NegativeRoomSize はサービス側の拒否が400になることを検証する。
func TestAdminHandler_SetConfig_NegativeRoomSize(t *testing.T) {
	service := &mockAdminLobbyService{
		setConfigFunc: func(ctx context.Context, cfg model.LobbyConfig) error {
			return model.NewInvalidConfigError()
		},
	}
	h := NewAdminHandler(service)

	req := httptest.NewRequest(http.MethodPost, "/admin/config.set", strings.NewReader(`{"roomSize":-1,"autoMatch":true}`))
	w := httptest.NewRecorder()
	h.SetConfig(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", w.Code, http.StatusBadRequest)
	}
}

// TestAdminHandler_CreateRoom_ExplicitUIDs は指定メンバーが渡ることを検証する。
func TestAdminHandler_CreateRoom_ExplicitUIDs(t *testing.T) {
	var got []string
	service := &mockAdminLobbyService{
		createRoomForFunc: func(ctx context.Context, uids []string) (string, error) {
			got = uids
			return "room-1", nil
		},
	}
	h := NewAdminHandler(service)

	req := httptest.NewRequest(http.MethodPost, "/admin/room.create", strings.NewReader(`{"uids":["u1","u2"]}`))
	w := httptest.NewRecorder()
	h.CreateRoom(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}
	if want := []string{"u1", "u2"}; !reflect.DeepEqual(got, want) {
		t.Errorf("uids = %v, want %v", got, want)
	}

	var body map[string]string
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("failed to decode body: %v", err)
	}
	if body["roomId"] != "room-1" {
		t.Errorf("roomId = %q, want %q", body["roomId"], "room-1")
	}
}

// TestAdminHandler_CreateRoom_EmptyBody はボディなしが待機列取り出しとして扱われることを検証する。
func TestAdminHandler_CreateRoom_EmptyBody(t *testing.T) {
	service := &mockAdminLobbyService{
		createRoomForFunc: func(ctx context.Context, uids []string) (string, error) {
			if len(uids) != 0 {
				t.Errorf("uids should be empty, got %v", uids)
			}
			return "room-1", nil
		},
	}
	h := NewAdminHandler(service)

	req := httptest.NewRequest(http.MethodPost, "/admin/room.create", nil)
	w := httptest.NewRecorder()
	h.CreateRoom(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("status = %d, want %d", w.Code, http.StatusOK)
	}
}

// TestAdminHandler_CreateRoom_NoUsers は対象ユーザーなしで400が返ることを検証する。
func TestAdminHandler_CreateRoom_NoUsers(t *testing.T) {
	service := &mockAdminLobbyService{
		createRoomForFunc: func(ctx context.Context, uids []string) (string, error) {
			return "", model.NewNoUsersForRoomError()
		},
	}
	h := NewAdminHandler(service)

	req := httptest.NewRequest(http.MethodPost, "/admin/room.create", strings.NewReader(`{}`))
	w := httptest.NewRecorder()
	h.CreateRoom(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", w.Code, http.StatusBadRequest)
	}
}

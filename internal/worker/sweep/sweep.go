// Package sweep は失効セッションの残骸を定期的に掃除するジョブを提供する。
// セッションポインタの切れたユーザーを待機列とルームから外し、
// メンバーのいなくなったルームを破棄する。切断そのものは状態を
// 変えないため、TTL切れの取り残しはこのジョブだけが回収する。
package sweep

import (
	"context"
	"log/slog"
	"time"
)

// SessionChecker はidentityの現行セッショントークンを引く。
// 空文字列はセッション失効を意味する。
type SessionChecker interface {
	CurrentID(ctx context.Context, uid string) (string, error)
}

// QueueLister は待機列の現在の並びを読む。
type QueueLister interface {
	Members(ctx context.Context) ([]string, error)
}

// QueueLeaver は待機列からの離脱を処理する。
// スナップショットイベントの配信までを受け持つ。
type QueueLeaver interface {
	Leave(ctx context.Context, uid string) error
}

// RoomLister はルームの一覧とメンバーを読み、空ルームを破棄する。
type RoomLister interface {
	IDs(ctx context.Context) ([]string, error)
	MemberIDs(ctx context.Context, roomID string) ([]string, error)
	Delete(ctx context.Context, roomID string) error
}

// RoomLeaver はルームからの退出を処理する。
// 退出イベントの発行と空ルームの破棄までを受け持つ。
type RoomLeaver interface {
	Leave(ctx context.Context, roomID, uid string) error
}

// Job は失効セッション掃除のバッチジョブ。冪等に実行できる。
type Job struct {
	sessions SessionChecker
	queue    QueueLister
	lobby    QueueLeaver
	rooms    RoomLister
	roomSvc  RoomLeaver
	logger   *slog.Logger
}

// NewJob は新しいJobを生成する。
func NewJob(sessions SessionChecker, queue QueueLister, lobby QueueLeaver, rooms RoomLister, roomSvc RoomLeaver, logger *slog.Logger) *Job {
	return &Job{
		sessions: sessions,
		queue:    queue,
		lobby:    lobby,
		rooms:    rooms,
		roomSvc:  roomSvc,
		logger:   logger,
	}
}

// Run は1回分の掃除を実行する。
// 待機列とルームを順に見て、セッションポインタの切れたユーザーを
// 通常の離脱経路で外す。対象がない場合でもエラーにならない。
func (j *Job) Run(ctx context.Context) error {
	start := time.Now()

	evictedQueue, err := j.sweepQueue(ctx)
	if err != nil {
		return err
	}
	evictedRooms, deletedRooms, err := j.sweepRooms(ctx)
	if err != nil {
		return err
	}

	j.logger.Info("sweep completed",
		slog.Int("queue_evicted", evictedQueue),
		slog.Int("room_evicted", evictedRooms),
		slog.Int("rooms_deleted", deletedRooms),
		slog.Float64("duration_ms", float64(time.Since(start).Milliseconds())),
	)
	return nil
}

// RunLoop は指定間隔でRunを繰り返す。ctxの取り消しで抜ける。
// 1回の失敗はログに残して次の周期へ進む。
func (j *Job) RunLoop(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := j.Run(ctx); err != nil {
				j.logger.Error("sweep failed", slog.String("error", err.Error()))
			}
		}
	}
}

func (j *Job) sweepQueue(ctx context.Context) (int, error) {
	uids, err := j.queue.Members(ctx)
	if err != nil {
		return 0, err
	}

	evicted := 0
	for _, uid := range uids {
		stale, err := j.isStale(ctx, uid)
		if err != nil {
			return evicted, err
		}
		if !stale {
			continue
		}
		if err := j.lobby.Leave(ctx, uid); err != nil {
			return evicted, err
		}
		j.logger.Info("evicted stale user from queue", slog.String("uid", uid))
		evicted++
	}
	return evicted, nil
}

func (j *Job) sweepRooms(ctx context.Context) (int, int, error) {
	ids, err := j.rooms.IDs(ctx)
	if err != nil {
		return 0, 0, err
	}

	evicted, deleted := 0, 0
	for _, roomID := range ids {
		members, err := j.rooms.MemberIDs(ctx, roomID)
		if err != nil {
			return evicted, deleted, err
		}

		// クラッシュ等で残ったメンバーゼロのルームはそのまま破棄する。
		if len(members) == 0 {
			if err := j.rooms.Delete(ctx, roomID); err != nil {
				return evicted, deleted, err
			}
			j.logger.Info("deleted empty leftover room", slog.String("room_id", roomID))
			deleted++
			continue
		}

		for _, uid := range members {
			stale, err := j.isStale(ctx, uid)
			if err != nil {
				return evicted, deleted, err
			}
			if !stale {
				continue
			}
			if err := j.roomSvc.Leave(ctx, roomID, uid); err != nil {
				return evicted, deleted, err
			}
			j.logger.Info("evicted stale user from room",
				slog.String("room_id", roomID),
				slog.String("uid", uid),
			)
			evicted++
		}
	}
	return evicted, deleted, nil
}

func (j *Job) isStale(ctx context.Context, uid string) (bool, error) {
	current, err := j.sessions.CurrentID(ctx, uid)
	if err != nil {
		return false, err
	}
	return current == "", nil
}

package event

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/hitoshi/lobbyman/internal/model"
	"github.com/hitoshi/lobbyman/internal/repository"
)

// ErrResyncRequired は指定されたイベントIDからの差分再生ができないことを示す。
// エラーではなく、クライアントに全量再取得を促すシグナルとして扱う。
var ErrResyncRequired = errors.New("resync required")

// Broadcaster はローカル接続へのイベント配信に必要なインターフェース。
// ws.Hubが実装する。配信はベストエフォートで、到達保証はログ側が担う。
type Broadcaster interface {
	Broadcast(channel string, data []byte)
}

// MetricsRecorder はイベント発行メトリクスの記録に必要なインターフェース。
type MetricsRecorder interface {
	RecordEventPublished(channel string)
}

// Bus はイベントログとローカルファンアウトを束ねる。
// IDの採番はストアの原子的インクリメントに委譲するため、
// 複数インスタンスが並行してpublishしてもIDは厳密増加する。
type Bus struct {
	repo    repository.EventRepository
	local   Broadcaster
	epoch   int
	retain  int
	metrics MetricsRecorder
}

// NewBus はBusを生成する。metricsはnilでもよい。
func NewBus(repo repository.EventRepository, local Broadcaster, epoch, retain int, metrics MetricsRecorder) *Bus {
	return &Bus{
		repo:    repo,
		local:   local,
		epoch:   epoch,
		retain:  retain,
		metrics: metrics,
	}
}

// Publish はイベントを採番・永続化し、ローカル接続に配信する。
// 順序: ID採番 → ログ追記 → トリム → ファンアウト。
// ファンアウトは同一プロセスが保持する接続にのみ届く。
func (b *Bus) Publish(ctx context.Context, channel, eventType string, payload any) (*model.Event, error) {
	id, err := b.repo.NextID(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to assign event id: %w", err)
	}

	ev := model.Event{
		EventID: id,
		Epoch:   b.epoch,
		TS:      time.Now().UnixMilli(),
		Type:    eventType,
		Payload: payload,
		Channel: channel,
	}

	if err := b.repo.Append(ctx, channel, ev, b.retain); err != nil {
		return nil, fmt.Errorf("failed to append event: %w", err)
	}

	data, err := json.Marshal(ev)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal event: %w", err)
	}
	if b.local != nil {
		b.local.Broadcast(channel, data)
	}

	if b.metrics != nil {
		b.metrics.RecordEventPublished(channel)
	}

	slog.Debug("event published",
		slog.Int64("event_id", id),
		slog.String("channel", channel),
		slog.String("type", eventType),
	)
	return &ev, nil
}

// ReplaySince はlastEventIDより後のイベントを古い順で返す。
// lastEventIDがログに存在しない場合（トリム済み・捏造・別チャンネル）は
// ErrResyncRequiredを返し、呼び出し側に全量再取得を促す。
func (b *Bus) ReplaySince(ctx context.Context, channel string, lastEventID int64) ([]model.Event, error) {
	events, err := b.repo.List(ctx, channel)
	if err != nil {
		return nil, fmt.Errorf("failed to list events: %w", err)
	}

	idx := -1
	for i, ev := range events {
		if ev.EventID == lastEventID {
			idx = i
			break
		}
	}
	if idx == -1 {
		return nil, ErrResyncRequired
	}

	return events[idx+1:], nil
}

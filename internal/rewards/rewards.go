// Package rewards dispatches reward events to an injectable Actions
// implementation. Until one is installed, a logging no-op is used.
package rewards

import (
	"context"
	"log/slog"
	"sync"

	"adda/internal/observability"
)

// EventType names a rewardable user action.
type EventType string

const (
	LikePost          EventType = "like_post"
	LovePost          EventType = "love_post"
	CommentPost       EventType = "comment_post"
	SharePost         EventType = "share_post"
	CreateStatus      EventType = "create_status"
	JoinGroup         EventType = "join_group"
	FollowUser        EventType = "follow_user"
	PurchaseProduct   EventType = "purchase_product"
	ShareProduct      EventType = "share_product"
	RedeemPoints      EventType = "redeem_points"
	BookSession       EventType = "book_session"
	ApplyJob          EventType = "apply_job"
	ListenAudioComic  EventType = "listen_audio_comic"
	ListenPodcast     EventType = "listen_podcast"
	ReadComic         EventType = "read_comic"
	DailyLogin        EventType = "daily_login"
	Registration      EventType = "registration"
	ProfileCompletion EventType = "profile_completion"
)

// Actions is the reward capability. Reference-less events receive an empty
// referenceID; only RedeemPoints uses points.
type Actions interface {
	Reward(ctx context.Context, event EventType, referenceID string, points int)
}

// ActionsFunc adapts a function to Actions.
type ActionsFunc func(ctx context.Context, event EventType, referenceID string, points int)

func (f ActionsFunc) Reward(ctx context.Context, event EventType, referenceID string, points int) {
	f(ctx, event, referenceID, points)
}

type noopActions struct{}

func (noopActions) Reward(ctx context.Context, event EventType, referenceID string, _ int) {
	observability.GlobalLogger.DebugContext(ctx, "reward action not initialized",
		slog.String("event", string(event)),
		slog.String("reference_id", referenceID),
	)
}

// Noop is the default Actions: it only logs.
var Noop Actions = noopActions{}

var (
	mu      sync.RWMutex
	current = Noop
)

// Install sets the process-wide Actions. A nil value restores Noop.
func Install(a Actions) {
	mu.Lock()
	defer mu.Unlock()
	if a == nil {
		a = Noop
	}
	current = a
}

// Current returns the installed Actions.
func Current() Actions {
	mu.RLock()
	defer mu.RUnlock()
	return current
}

var known = map[EventType]bool{
	LikePost: true, LovePost: true, CommentPost: true, SharePost: true,
	CreateStatus: true, JoinGroup: true, FollowUser: true, PurchaseProduct: true,
	ShareProduct: true, RedeemPoints: true, BookSession: true, ApplyJob: true,
	ListenAudioComic: true, ListenPodcast: true, ReadComic: true, DailyLogin: true,
	Registration: true, ProfileCompletion: true,
}

// Trigger dispatches event to a. Unknown events are logged and dropped.
func Trigger(ctx context.Context, a Actions, event EventType, referenceID string, points int) {
	if a == nil {
		a = Current()
	}
	if !known[event] {
		observability.GlobalLogger.WarnContext(ctx, "no handler for reward event type",
			slog.String("event", string(event)),
		)
		return
	}
	switch event {
	case RedeemPoints:
	case DailyLogin, Registration, ProfileCompletion:
		referenceID = ""
		points = 0
	default:
		points = 0
	}
	a.Reward(ctx, event, referenceID, points)
}

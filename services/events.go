package services

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// Event types
const (
	EventChallengeCreated        = "challengeCreated"
	EventChallengeLaunched       = "challengeLaunched"
	EventChallengeActivated      = "challengeActivated"
	EventSubmissionPeriodEnded   = "submissionPeriodEnded"
	EventVotingStarted           = "votingStarted"
	EventParticipantJoined       = "participantJoined"
	EventSubmissionReceived      = "submissionReceived"
	EventVoteReceived            = "voteReceived"
	EventArtistJudgment          = "artistJudgment"
	EventPanelJudgment           = "panelJudgment"
	EventChallengeCompleted      = "challengeCompleted"
	EventChallengeCancelled      = "challengeCancelled"
	EventReportGenerated         = "reportGenerated"
	EventPrizeDistributed        = "prizeDistributed"
	EventPrizeDistributionFailed = "prizeDistributionFailed"
)

// RedisEventChannel is the pub/sub channel events are mirrored to.
const RedisEventChannel = "challenges:events"

// Event is the envelope for every outbound domain event
type Event struct {
	ID          string    `json:"id"`
	Type        string    `json:"type"`
	ChallengeID string    `json:"challenge_id"`
	OccurredAt  time.Time `json:"occurred_at"`
	Data        any       `json:"data,omitempty"`
}

func NewEvent(eventType, challengeID string, at time.Time, data any) Event {
	return Event{
		ID:          uuid.NewString(),
		Type:        eventType,
		ChallengeID: challengeID,
		OccurredAt:  at,
		Data:        data,
	}
}

// Publisher delivers events. Implementations must not block for long.
type Publisher interface {
	Publish(ctx context.Context, ev Event)
}

// Hub fans events out to in-process subscribers (SSE streams).
// Slow subscribers miss events instead of stalling publishers.
type Hub struct {
	mu     sync.RWMutex
	subs   map[int]*subscription
	nextID int
}

type subscription struct {
	challengeID string
	ch          chan Event
}

func NewHub() *Hub {
	return &Hub{subs: make(map[int]*subscription)}
}

// Subscribe returns a channel of events for challengeID ("" = all) and a
// cancel func that must be called to release it.
func (h *Hub) Subscribe(challengeID string, buffer int) (<-chan Event, func()) {
	h.mu.Lock()
	defer h.mu.Unlock()
	id := h.nextID
	h.nextID++
	sub := &subscription{challengeID: challengeID, ch: make(chan Event, buffer)}
	h.subs[id] = sub

	var once sync.Once
	return sub.ch, func() {
		once.Do(func() {
			h.mu.Lock()
			delete(h.subs, id)
			h.mu.Unlock()
			close(sub.ch)
		})
	}
}

func (h *Hub) Publish(_ context.Context, ev Event) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, sub := range h.subs {
		if sub.challengeID != "" && sub.challengeID != ev.ChallengeID {
			continue
		}
		select {
		case sub.ch <- ev:
		default:
			log.Debug().Str("event", ev.Type).Str("challenge_id", ev.ChallengeID).Msg("[EVENTS] subscriber buffer full, dropping event")
		}
	}
}

// RedisPublisher mirrors events onto a redis channel for other services.
type RedisPublisher struct {
	client  *redis.Client
	channel string
}

func NewRedisPublisher(client *redis.Client) *RedisPublisher {
	return &RedisPublisher{client: client, channel: RedisEventChannel}
}

func (p *RedisPublisher) Publish(ctx context.Context, ev Event) {
	payload, err := json.Marshal(ev)
	if err != nil {
		log.Error().Err(err).Str("event", ev.Type).Msg("[EVENTS] ❌ failed to encode event")
		return
	}
	if err := p.client.Publish(ctx, p.channel, payload).Err(); err != nil {
		log.Warn().Err(err).Str("event", ev.Type).Msg("[EVENTS] ⚠️ redis publish failed")
	}
}

// MultiPublisher forwards to every wrapped publisher in order.
type MultiPublisher []Publisher

func (m MultiPublisher) Publish(ctx context.Context, ev Event) {
	for _, p := range m {
		p.Publish(ctx, ev)
	}
}

// RecordingPublisher keeps events in memory.
type RecordingPublisher struct {
	mu     sync.Mutex
	events []Event
}

func (r *RecordingPublisher) Publish(_ context.Context, ev Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
}

// Events returns a copy of everything published so far.
func (r *RecordingPublisher) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Event(nil), r.events...)
}

// Types lists recorded event types in order.
func (r *RecordingPublisher) Types() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.events))
	for i, ev := range r.events {
		out[i] = ev.Type
	}
	return out
}

// SSEFrame renders ev in text/event-stream framing.
func SSEFrame(ev Event) ([]byte, error) {
	payload, err := json.Marshal(ev)
	if err != nil {
		return nil, err
	}
	return []byte(fmt.Sprintf("id: %s\nevent: %s\ndata: %s\n\n", ev.ID, ev.Type, payload)), nil
}

package session

import (
	"context"
	"encoding/json"
	"log"
)

// broadcastChannel is the redis pub/sub channel every instance and the
// websocket hub listen on.
const broadcastChannel = "broadcast"

// Envelope is the wire format on the broadcast channel. Events that carry
// a full session snapshot double as the remote-refresh mechanism: other
// instances merge the snapshot into their local state.
type Envelope struct {
	Type    string         `json:"type"`
	Origin  string         `json:"origin,omitempty"`
	Session *Session       `json:"session,omitempty"`
	Payload map[string]any `json:"payload,omitempty"`
}

func (st *Store) publish(ctx context.Context, eventType string, snap *Session, payload map[string]any) {
	if st.rdb == nil {
		return
	}
	env := Envelope{
		Type:    eventType,
		Origin:  st.origin,
		Session: snap,
		Payload: payload,
	}
	data, err := json.Marshal(env)
	if err != nil {
		log.Printf("session-service: marshal event: %v", err)
		return
	}
	if err := st.rdb.Publish(ctx, broadcastChannel, string(data)).Err(); err != nil {
		log.Printf("session-service: publish event: %v", err)
	}
}

// RunSubscriber consumes the broadcast channel and applies snapshots
// published by other instances. Delivery is best-effort and unordered;
// applyRemote resolves conflicts by last write wins.
func (st *Store) RunSubscriber(ctx context.Context) {
	if st.rdb == nil {
		return
	}
	sub := st.rdb.Subscribe(ctx, broadcastChannel)
	defer sub.Close()

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			var env Envelope
			if err := json.Unmarshal([]byte(msg.Payload), &env); err != nil {
				log.Printf("session-service: decode broadcast: %v", err)
				continue
			}
			st.applyRemote(ctx, env)
		}
	}
}

// applyRemote is the single merge point for the two cooperating writers:
// the local optimistic store and remote-confirmed snapshots. Policy is
// last-write-wins on the session's UpdatedAt stamp.
func (st *Store) applyRemote(ctx context.Context, env Envelope) {
	if env.Origin == st.origin || env.Session == nil {
		return
	}
	remote := env.Session

	st.mu.Lock()
	defer st.mu.Unlock()

	if env.Type == "session.ended" {
		if local, ok := st.sessions[remote.ID]; ok {
			st.stopLoopLocked(local.ID)
			if ad := st.adapters[local.ID]; ad != nil {
				if err := ad.Destroy(); err != nil {
					log.Printf("session-service: destroy adapter for %s: %v", local.ID, err)
				}
				delete(st.adapters, local.ID)
			}
			delete(st.playback, local.ID)
			delete(st.sessions, local.ID)
			delete(st.messages, local.ID)
		}
		return
	}

	local, ok := st.sessions[remote.ID]
	if ok && !remote.UpdatedAt.After(local.UpdatedAt) {
		return
	}
	merged := cloneSession(remote)
	st.sessions[remote.ID] = &merged
	if merged.RoomCode != "" {
		st.codes.adopt(merged.RoomCode, merged.ID)
	}
	// Keep the loop state consistent with the merged playing flag when no
	// local adapter owns playback.
	if st.adapters[merged.ID] == nil {
		if merged.IsPlaying {
			st.startLoopLocked(merged.ID)
		} else {
			st.stopLoopLocked(merged.ID)
		}
	}
}

package session

import (
	"context"
	"strings"
)

// SendMessage appends a user message to the session's feed. The text is
// trimmed; empty messages are rejected before any mutation.
func (st *Store) SendMessage(ctx context.Context, sessionID, text string, u User) (Message, error) {
	if u.ID == "" {
		return Message{}, ErrNotAuthenticated
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return Message{}, validationErr("message cannot be empty")
	}

	st.mu.Lock()
	s, ok := st.sessions[sessionID]
	if !ok {
		st.mu.Unlock()
		return Message{}, ErrNotFound
	}
	if !s.Member(u.ID) {
		st.mu.Unlock()
		return Message{}, permissionErr("only session members can chat")
	}
	msg := Message{
		ID:        st.newID(),
		UserID:    u.ID,
		UserName:  u.Name,
		Text:      text,
		Timestamp: st.now(),
	}
	st.messages[sessionID] = append(st.messages[sessionID], msg)
	st.mu.Unlock()

	go st.publish(context.WithoutCancel(ctx), "message.sent", nil, map[string]any{
		"sessionId": sessionID,
		"message":   msg,
	})
	return msg, nil
}

// Messages returns a copy of the session's feed in insertion order.
func (st *Store) Messages(sessionID string) ([]Message, error) {
	st.mu.Lock()
	defer st.mu.Unlock()
	if _, ok := st.sessions[sessionID]; !ok {
		return nil, ErrNotFound
	}
	return append([]Message(nil), st.messages[sessionID]...), nil
}

// systemMessage synthesizes a feed entry from the system sender. Callers
// hold the store lock.
func (st *Store) systemMessage(s *Session, text string) {
	st.messages[s.ID] = append(st.messages[s.ID], Message{
		ID:        st.newID(),
		UserID:    SystemUserID,
		UserName:  "System",
		Text:      text,
		Timestamp: st.now(),
	})
}

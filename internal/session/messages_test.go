package session

import (
	"context"
	"errors"
	"testing"
)

func TestSendMessage(t *testing.T) {
	st := newTestStore(nil)
	s := mustCreate(t, st, "Party")
	if _, err := st.JoinSession(context.Background(), BySessionID(s.ID), guest); err != nil {
		t.Fatalf("join: %v", err)
	}

	msg, err := st.SendMessage(context.Background(), s.ID, "  hello there  ", guest)
	if err != nil {
		t.Fatalf("send: %v", err)
	}
	if msg.Text != "hello there" {
		t.Errorf("text = %q, want trimmed", msg.Text)
	}
	if msg.UserID != guest.ID || msg.UserName != guest.Name {
		t.Errorf("sender = %s/%s, want %s/%s", msg.UserID, msg.UserName, guest.ID, guest.Name)
	}

	msgs, _ := st.Messages(s.ID)
	if msgs[len(msgs)-1].ID != msg.ID {
		t.Errorf("message not appended to the feed")
	}
}

func TestSendMessageValidation(t *testing.T) {
	st := newTestStore(nil)
	s := mustCreate(t, st, "Party")

	var ve *ValidationError
	if _, err := st.SendMessage(context.Background(), s.ID, "   ", host); !errors.As(err, &ve) {
		t.Errorf("blank text err = %v, want ValidationError", err)
	}
	var pe *PermissionError
	if _, err := st.SendMessage(context.Background(), s.ID, "hi", User{ID: "stranger", Name: "S"}); !errors.As(err, &pe) {
		t.Errorf("non-member err = %v, want PermissionError", err)
	}
	if _, err := st.SendMessage(context.Background(), "missing", "hi", host); !errors.Is(err, ErrNotFound) {
		t.Errorf("missing session err = %v, want ErrNotFound", err)
	}
}

func TestMessagesOrdered(t *testing.T) {
	st := newTestStore(nil)
	s := mustCreate(t, st, "Party")

	for _, text := range []string{"one", "two", "three"} {
		if _, err := st.SendMessage(context.Background(), s.ID, text, host); err != nil {
			t.Fatalf("send %q: %v", text, err)
		}
	}

	msgs, _ := st.Messages(s.ID)
	// Index 0 is the welcome message.
	if len(msgs) != 4 {
		t.Fatalf("messages = %d, want 4", len(msgs))
	}
	for i, want := range []string{"one", "two", "three"} {
		if msgs[i+1].Text != want {
			t.Errorf("msgs[%d] = %q, want %q", i+1, msgs[i+1].Text, want)
		}
	}
}

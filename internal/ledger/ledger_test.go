package ledger

import (
	"testing"

	"LiveDesk/entity"
)

func chat(ts float64, sender, text string) entity.Message {
	ev := entity.Event{Type: entity.EventChat, RoomID: "r1", SenderID: sender, SenderType: entity.UserRole, Message: text, Timestamp: ts}
	return ev.ToMessage()
}

func TestAppendDeduplicates(t *testing.T) {
	l := New()
	if !l.Append(chat(1700000000, "5", "Halo")) {
		t.Fatal("first append rejected")
	}
	if l.Append(chat(1700000000, "5", "Halo")) {
		t.Fatal("duplicate append accepted")
	}
	if l.Len() != 1 {
		t.Fatalf("Len() = %d, want 1", l.Len())
	}
}

func TestAppendKeepsFirstArrivalOrder(t *testing.T) {
	l := New()
	l.Append(chat(10, "a", "E1"))
	l.Append(chat(5, "a", "E2"))
	l.Append(chat(10, "a", "E3 duplicate of E1"))

	got := l.Messages()
	if len(got) != 2 {
		t.Fatalf("len = %d, want 2", len(got))
	}
	if got[0].Message != "E1" || got[1].Message != "E2" {
		t.Errorf("order = [%s %s], want [E1 E2]", got[0].Message, got[1].Message)
	}
}

func TestSameTimestampDifferentSender(t *testing.T) {
	l := New()
	l.Append(chat(10, "a", "x"))
	l.Append(chat(10, "b", "y"))
	if l.Len() != 2 {
		t.Fatalf("Len() = %d, want 2", l.Len())
	}
}

func TestReplaceIsOverwrite(t *testing.T) {
	l := New()
	l.Append(chat(1, "a", "old"))
	l.Replace([]entity.Message{chat(2, "b", "h1"), chat(3, "a", "h2"), chat(2, "b", "h1 again")})

	got := l.Messages()
	if len(got) != 2 {
		t.Fatalf("len = %d, want 2", len(got))
	}
	if l.Has("1-a") {
		t.Error("replace kept a pre-existing message")
	}
	if l.Append(chat(3, "a", "live echo")) {
		t.Error("live event duplicating history was appended")
	}
	if !l.Append(chat(4, "a", "new")) {
		t.Error("new live event rejected")
	}
}

func TestMessagesIsCopy(t *testing.T) {
	l := New()
	l.Append(chat(1, "a", "x"))
	got := l.Messages()
	got[0].Message = "mutated"
	if l.Messages()[0].Message != "x" {
		t.Error("Messages() exposed internal slice")
	}
}

package chat

import (
	"context"
	"testing"
	"time"

	"github.com/pkg/errors"
)

type fakeLoader struct {
	load func(ctx context.Context, conversationID string) ([]Message, error)
}

func (f *fakeLoader) LoadHistory(ctx context.Context, conversationID string) ([]Message, error) {
	if f.load == nil {
		return nil, nil
	}
	return f.load(ctx, conversationID)
}

type fakeSender struct {
	calls   int
	err     error
	started chan struct{} // closed/sent when a send begins, if set
	release chan struct{} // blocks the send until signalled, if set
}

func (f *fakeSender) SendMessage(ctx context.Context, conversationID, content, replyToMessageID string) error {
	f.calls++
	if f.started != nil {
		f.started <- struct{}{}
	}
	if f.release != nil {
		<-f.release
	}
	return f.err
}

func newTestSession(loader *fakeLoader, sender *fakeSender) *Session {
	return NewSession(NewBus(nopLogger{}), loader, sender, nopLogger{}, 0)
}

func openReady(t *testing.T, s *Session, conversationID string, history ...Message) {
	t.Helper()
	s.loader = &fakeLoader{load: func(context.Context, string) ([]Message, error) { return history, nil }}
	if err := s.Open(context.Background(), conversationID); err != nil {
		t.Fatalf("Open(%s): %v", conversationID, err)
	}
}

func TestSession_IngestRejectsOtherConversations(t *testing.T) {
	s := newTestSession(&fakeLoader{}, &fakeSender{})
	defer s.Close()
	openReady(t, s, "C1")

	s.IngestRealtimeMessage(MessageEvent{
		ConversationID: "C2", Sender: SenderAgent, Content: "hi", Timestamp: "2024-01-01T00:00:00Z",
	})

	if n := len(s.Messages()); n != 0 {
		t.Errorf("message store has %d entries after out-of-scope event, want 0", n)
	}
}

func TestSession_IngestIdempotent(t *testing.T) {
	s := newTestSession(&fakeLoader{}, &fakeSender{})
	defer s.Close()
	openReady(t, s, "C1")

	ev := MessageEvent{
		ConversationID: "C1", Sender: SenderAgent, Content: "hi",
		Timestamp: "2024-01-01T00:00:00Z", InvocationID: "inv-1",
	}
	s.IngestRealtimeMessage(ev)

	if n := len(s.Messages()); n != 1 {
		t.Fatalf("message store has %d entries, want 1", n)
	}
	if s.Typing() {
		t.Error("typing flag still set after agent message")
	}

	// exact re-delivery gains zero entries
	s.IngestRealtimeMessage(ev)
	if n := len(s.Messages()); n != 1 {
		t.Errorf("message store has %d entries after re-delivery, want 1", n)
	}
}

func TestSession_IngestRejectsUnknownSender(t *testing.T) {
	s := newTestSession(&fakeLoader{}, &fakeSender{})
	defer s.Close()
	openReady(t, s, "C1")

	s.IngestRealtimeMessage(MessageEvent{
		ConversationID: "C1", Sender: "system", Content: "hi", Timestamp: "2024-01-01T00:00:00Z",
	})

	if n := len(s.Messages()); n != 0 {
		t.Errorf("message store has %d entries after unknown-sender event, want 0", n)
	}
}

func TestSession_IngestConvertsTimestamp(t *testing.T) {
	s := newTestSession(&fakeLoader{}, &fakeSender{})
	defer s.Close()
	openReady(t, s, "C1")

	s.IngestRealtimeMessage(MessageEvent{
		ConversationID: "C1", Sender: SenderAgent, Content: "hi",
		Timestamp: "2024-01-01T00:00:00.750Z", InvocationID: "inv-1",
	})

	msgs := s.Messages()
	if len(msgs) != 1 {
		t.Fatalf("message store has %d entries, want 1", len(msgs))
	}
	want := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC).Unix() // sub-second floored
	if msgs[0].Time != want {
		t.Errorf("Time = %d, want %d", msgs[0].Time, want)
	}
}

func TestSession_IngestEmitsConversationUpdate(t *testing.T) {
	bus := NewBus(nopLogger{})
	s := NewSession(bus, &fakeLoader{}, &fakeSender{}, nopLogger{}, 0)
	defer s.Close()
	openReady(t, s, "C1")

	var updates []ConversationUpdate
	bus.On(EventConversationUpdate, func(payload interface{}) {
		if u, ok := payload.(ConversationUpdate); ok {
			updates = append(updates, u)
		}
	})

	// delivery through the bus, the way the transport publishes it
	bus.Emit(EventMessage, MessageEvent{
		ConversationID: "C1", Sender: SenderAgent, Content: "hi",
		Timestamp: "2024-01-01T00:00:00Z", InvocationID: "inv-1",
	})

	if len(updates) != 1 {
		t.Fatalf("got %d conversation updates, want 1", len(updates))
	}
	if updates[0].ConversationID != "C1" || updates[0].Preview != "hi" {
		t.Errorf("update = %+v, want C1/hi", updates[0])
	}
}

func TestSession_TypingLastWriteWins(t *testing.T) {
	s := newTestSession(&fakeLoader{}, &fakeSender{})
	defer s.Close()
	openReady(t, s, "C1")

	// nested meta shape, then flat shape
	s.IngestTypingEvent(TypingEvent{ConversationID: "C1", Meta: &struct {
		Typing bool `json:"typing"`
	}{Typing: true}})
	if !s.Typing() {
		t.Fatal("typing flag not set by meta.typing=true")
	}

	f := false
	s.IngestTypingEvent(TypingEvent{ConversationID: "C1", Typing: &f})
	if s.Typing() {
		t.Error("typing flag = true, want false (last write wins)")
	}
}

func TestSession_TypingIgnoresOtherConversations(t *testing.T) {
	s := newTestSession(&fakeLoader{}, &fakeSender{})
	defer s.Close()
	openReady(t, s, "C1")

	tr := true
	s.IngestTypingEvent(TypingEvent{ConversationID: "C2", Typing: &tr})
	if s.Typing() {
		t.Error("typing flag set by out-of-scope event")
	}

	// nested conversation id is honored
	s.IngestTypingEvent(TypingEvent{Message: &struct {
		ConversationID string `json:"conversation_id"`
	}{ConversationID: "C1"}, Typing: &tr})
	if !s.Typing() {
		t.Error("typing flag not set by nested conversation id")
	}
}

func TestSession_SwitchClearsStoreAndCache(t *testing.T) {
	s := newTestSession(&fakeLoader{}, &fakeSender{})
	defer s.Close()
	openReady(t, s, "C1")

	ev := MessageEvent{
		ConversationID: "C1", Sender: SenderAgent, Content: "hi",
		Timestamp: "2024-01-01T00:00:00Z", InvocationID: "inv-1",
	}
	s.IngestRealtimeMessage(ev)

	// switch to C2: fresh history replaces the store wholesale
	openReady(t, s, "C2", Message{Sender: SenderAgent, Content: "welcome", Time: 1})

	msgs := s.Messages()
	if len(msgs) != 1 || msgs[0].Content != "welcome" {
		t.Fatalf("store after switch = %+v, want the C2 history only", msgs)
	}

	// switch back: the dedup cache was cleared, the old key renders again
	openReady(t, s, "C1")
	s.IngestRealtimeMessage(ev)
	if n := len(s.Messages()); n != 1 {
		t.Errorf("store has %d entries after re-open, want 1 (dedup cache not cleared)", n)
	}
}

func TestSession_StaleHistoryDiscarded(t *testing.T) {
	s := newTestSession(&fakeLoader{}, &fakeSender{})
	defer s.Close()

	c1Started := make(chan struct{})
	c1Release := make(chan struct{})
	s.loader = &fakeLoader{load: func(_ context.Context, id string) ([]Message, error) {
		if id == "C1" {
			close(c1Started)
			<-c1Release
			return []Message{{Sender: SenderAgent, Content: "stale"}}, nil
		}
		return []Message{{Sender: SenderAgent, Content: "fresh"}}, nil
	}}

	done := make(chan error, 1)
	go func() { done <- s.Open(context.Background(), "C1") }()
	<-c1Started

	// user switches away while the C1 fetch is in flight
	if err := s.Open(context.Background(), "C2"); err != nil {
		t.Fatalf("Open(C2): %v", err)
	}
	close(c1Release)
	if err := <-done; err != nil {
		t.Fatalf("Open(C1): %v", err)
	}

	msgs := s.Messages()
	if len(msgs) != 1 || msgs[0].Content != "fresh" {
		t.Errorf("store = %+v, want only the C2 history (stale response kept)", msgs)
	}
	if s.ConversationID() != "C2" {
		t.Errorf("active conversation = %q, want C2", s.ConversationID())
	}
}

func TestSession_HistoryFailureResets(t *testing.T) {
	s := newTestSession(&fakeLoader{load: func(context.Context, string) ([]Message, error) {
		return nil, errors.New("boom")
	}}, &fakeSender{})
	defer s.Close()

	if err := s.Open(context.Background(), "C1"); err == nil {
		t.Fatal("Open() returned nil on history failure")
	}
	if s.ConversationID() != "" {
		t.Errorf("active conversation = %q after failure, want cleared", s.ConversationID())
	}
	if s.State() != StateIdle {
		t.Errorf("state = %v after failure, want idle", s.State())
	}
}

func TestSession_SendOptimistic(t *testing.T) {
	sender := &fakeSender{started: make(chan struct{}), release: make(chan struct{})}
	s := newTestSession(&fakeLoader{}, sender)
	defer s.Close()
	openReady(t, s, "C1")

	done := make(chan error, 1)
	go func() { done <- s.SendOptimistic(context.Background(), "hello") }()

	<-sender.started
	// optimistic: appended before the network call settles
	msgs := s.Messages()
	if len(msgs) != 1 || msgs[0].Sender != SenderStudent || msgs[0].Content != "hello" {
		t.Fatalf("store during send = %+v, want one student/hello entry", msgs)
	}
	if msgs[0].InvocationID != "" {
		t.Error("optimistic message carries an invocation id")
	}
	if msgs[0].ClientRef == "" {
		t.Error("optimistic message missing client ref")
	}
	if !s.Typing() {
		t.Error("typing flag not set while send in flight")
	}

	close(sender.release)
	if err := <-done; err != nil {
		t.Fatalf("SendOptimistic(): %v", err)
	}
	if s.Typing() {
		t.Error("typing flag not cleared after send settled")
	}
}

func TestSession_SendOptimisticGatedWhileTyping(t *testing.T) {
	sender := &fakeSender{}
	s := newTestSession(&fakeLoader{}, sender)
	defer s.Close()
	openReady(t, s, "C1")

	tr := true
	s.IngestTypingEvent(TypingEvent{ConversationID: "C1", Typing: &tr})

	if err := s.SendOptimistic(context.Background(), "hello"); err != nil {
		t.Fatalf("SendOptimistic(): %v", err)
	}
	if sender.calls != 0 {
		t.Error("send issued while typing flag set")
	}
	if n := len(s.Messages()); n != 0 {
		t.Errorf("store has %d entries, want 0 (send gated)", n)
	}
}

func TestSession_SendOptimisticNoConversation(t *testing.T) {
	sender := &fakeSender{}
	s := newTestSession(&fakeLoader{}, sender)
	defer s.Close()

	if err := s.SendOptimistic(context.Background(), "hello"); err != nil {
		t.Fatalf("SendOptimistic(): %v", err)
	}
	if sender.calls != 0 {
		t.Error("send issued with no active conversation")
	}
}

func TestSession_SendFailureKeepsOptimisticMessage(t *testing.T) {
	sender := &fakeSender{err: errors.New("boom")}
	s := newTestSession(&fakeLoader{}, sender)
	defer s.Close()
	openReady(t, s, "C1")

	if err := s.SendOptimistic(context.Background(), "hello"); err == nil {
		t.Fatal("SendOptimistic() returned nil on send failure")
	}
	// no rollback; input never left disabled
	if n := len(s.Messages()); n != 1 {
		t.Errorf("store has %d entries after failed send, want 1", n)
	}
	if s.Typing() {
		t.Error("typing flag not cleared after failed send")
	}
}

// The optimistic local copy has no invocation id, so a realtime echo of
// the sender's own message computes a different dedup key and renders a
// second bubble. The backend avoids echoing to the sending socket, but
// the reconciliation model itself does not close this gap; this test
// pins the behavior rather than silently fixing it.
func TestSession_OptimisticEchoNotReconciled(t *testing.T) {
	s := newTestSession(&fakeLoader{}, &fakeSender{})
	defer s.Close()
	openReady(t, s, "C1")

	if err := s.SendOptimistic(context.Background(), "hello"); err != nil {
		t.Fatalf("SendOptimistic(): %v", err)
	}
	s.IngestRealtimeMessage(MessageEvent{
		ConversationID: "C1", Sender: SenderStudent, Content: "hello",
		Timestamp: "2024-01-01T00:00:01Z", InvocationID: "inv-9",
	})

	if n := len(s.Messages()); n != 2 {
		t.Errorf("store has %d entries, want 2 (echo is not reconciled with the optimistic copy)", n)
	}
}

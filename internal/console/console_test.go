package console

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"LiveDesk/entity"
	"LiveDesk/internal/lib/logger"
	"LiveDesk/internal/notify"
	"LiveDesk/internal/session"
)

type fakeDirectory struct {
	mu          sync.Mutex
	waiting     []entity.Room
	active      []entity.Room
	waitingErr  error
	joinErr     error
	joinGate    chan struct{}
	waitingHits int
	activeHits  int
}

func (d *fakeDirectory) Waiting(context.Context) ([]entity.Room, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.waitingHits++
	if d.waitingErr != nil {
		return nil, d.waitingErr
	}
	return append([]entity.Room(nil), d.waiting...), nil
}

func (d *fakeDirectory) ActiveRooms(context.Context) ([]entity.Room, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.activeHits++
	return append([]entity.Room(nil), d.active...), nil
}

func (d *fakeDirectory) Join(_ context.Context, roomID string) (*entity.Room, error) {
	if d.joinGate != nil {
		<-d.joinGate
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.joinErr != nil {
		return nil, d.joinErr
	}
	room := entity.Room{ID: roomID, Status: entity.RoomActive, AdminID: "a9", AdminName: "Agus"}
	d.active = append(d.active, room)
	return &room, nil
}

func (d *fakeDirectory) hits() (int, int) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.waitingHits, d.activeHits
}

type fakeSession struct {
	mu       sync.Mutex
	roomID   string
	attached []string
	closeErr error
	closes   int
	detached int
	state    session.State
}

func (s *fakeSession) Attach(_ context.Context, room entity.Room) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.roomID = room.ID
	s.attached = append(s.attached, room.ID)
	return nil
}

func (s *fakeSession) Joined(ctx context.Context, room entity.Room) error {
	return s.Attach(ctx, room)
}

func (s *fakeSession) Close(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closes++
	return s.closeErr
}

func (s *fakeSession) State() session.State {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == "" {
		return session.StateActive
	}
	return s.state
}

func (s *fakeSession) Detach() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.roomID = ""
	s.detached++
}

func (s *fakeSession) RoomID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.roomID
}

type toasts struct {
	mu   sync.Mutex
	list []notify.Toast
}

func (t *toasts) Toast(n notify.Toast) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.list = append(t.list, n)
}

func (t *toasts) count() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.list)
}

type manualTicker struct {
	ch      chan time.Time
	stopped chan struct{}
}

func newManualTicker() *manualTicker {
	return &manualTicker{ch: make(chan time.Time), stopped: make(chan struct{})}
}

func (m *manualTicker) Ticker(time.Duration) (<-chan time.Time, func()) {
	return m.ch, func() { close(m.stopped) }
}

func newController(dir *fakeDirectory, sess *fakeSession, t *toasts, ticker *manualTicker) *Controller {
	opts := Options{PollInterval: 5 * time.Second}
	if ticker != nil {
		opts.Ticker = ticker.Ticker
	}
	return New(logger.Discard(), dir, sess, t, opts)
}

func TestPollingRefreshesImmediatelyAndOnTick(t *testing.T) {
	dir := &fakeDirectory{waiting: []entity.Room{{ID: "r1", Status: entity.RoomWaiting}}}
	ticker := newManualTicker()
	c := newController(dir, &fakeSession{}, nil, ticker)

	c.Start(context.Background())
	if w, a := dir.hits(); w != 1 || a != 1 {
		t.Fatalf("initial hits = %d/%d", w, a)
	}
	if len(c.Waiting()) != 1 {
		t.Fatalf("waiting = %v", c.Waiting())
	}

	dir.mu.Lock()
	dir.waiting = append(dir.waiting, entity.Room{ID: "r2", Status: entity.RoomWaiting})
	dir.mu.Unlock()
	ticker.ch <- time.Now()
	ticker.ch <- time.Now()

	c.Stop()
	select {
	case <-ticker.stopped:
	default:
		t.Fatal("ticker not stopped")
	}
	if w, _ := dir.hits(); w < 2 {
		t.Errorf("waiting hits = %d", w)
	}
	if len(c.Waiting()) != 2 {
		t.Errorf("waiting = %v", c.Waiting())
	}
}

func TestRefreshFailureKeepsList(t *testing.T) {
	dir := &fakeDirectory{waiting: []entity.Room{{ID: "r1"}}}
	c := newController(dir, &fakeSession{}, nil, nil)
	c.Refresh(context.Background())

	dir.waitingErr = errors.New("down")
	c.Refresh(context.Background())
	if len(c.Waiting()) != 1 {
		t.Errorf("waiting = %v", c.Waiting())
	}
}

func TestJoinSuccess(t *testing.T) {
	dir := &fakeDirectory{waiting: []entity.Room{{ID: "r1"}, {ID: "r2"}}}
	sess := &fakeSession{}
	c := newController(dir, sess, nil, nil)
	c.Refresh(context.Background())

	if err := c.Join(context.Background(), "r1"); err != nil {
		t.Fatalf("Join: %v", err)
	}
	if c.Selected() != "r1" {
		t.Errorf("selected = %q", c.Selected())
	}
	waiting := c.Waiting()
	if len(waiting) != 1 || waiting[0].ID != "r2" {
		t.Errorf("waiting = %v", waiting)
	}
	if active := c.Active(); len(active) != 1 || active[0].ID != "r1" {
		t.Errorf("active = %v", active)
	}
}

func TestJoinFailureLeavesWaitingUntouched(t *testing.T) {
	dir := &fakeDirectory{waiting: []entity.Room{{ID: "r1"}}, joinErr: errors.New("409")}
	sess := &fakeSession{}
	tt := &toasts{}
	c := newController(dir, sess, tt, nil)
	c.Refresh(context.Background())

	if err := c.Join(context.Background(), "r1"); err == nil {
		t.Fatal("expected join error")
	}
	if len(c.Waiting()) != 1 || c.Selected() != "" {
		t.Errorf("waiting=%v selected=%q", c.Waiting(), c.Selected())
	}
	if tt.count() != 1 {
		t.Errorf("toasts = %d", tt.count())
	}
}

func TestJoinInFlightGuard(t *testing.T) {
	dir := &fakeDirectory{waiting: []entity.Room{{ID: "r1"}}, joinGate: make(chan struct{})}
	c := newController(dir, &fakeSession{}, nil, nil)

	done := make(chan error)
	go func() { done <- c.Join(context.Background(), "r1") }()

	deadline := time.Now().Add(2 * time.Second)
	for {
		c.mu.Lock()
		joining := c.joining
		c.mu.Unlock()
		if joining || time.Now().After(deadline) {
			break
		}
		time.Sleep(time.Millisecond)
	}
	if err := c.Join(context.Background(), "r1"); !errors.Is(err, ErrJoinInFlight) {
		t.Errorf("second join = %v", err)
	}
	close(dir.joinGate)
	if err := <-done; err != nil {
		t.Fatalf("first join: %v", err)
	}
}

func TestSelectSwitchesRoom(t *testing.T) {
	dir := &fakeDirectory{active: []entity.Room{{ID: "r1", Status: entity.RoomActive}, {ID: "r2", Status: entity.RoomActive}}}
	sess := &fakeSession{}
	c := newController(dir, sess, nil, nil)
	c.Refresh(context.Background())

	if err := c.Select(context.Background(), "r1"); err != nil {
		t.Fatal(err)
	}
	if err := c.Select(context.Background(), "r1"); err != nil {
		t.Fatal(err)
	}
	if err := c.Select(context.Background(), "r2"); err != nil {
		t.Fatal(err)
	}
	if len(sess.attached) != 2 || sess.attached[1] != "r2" {
		t.Errorf("attached = %v", sess.attached)
	}
	if err := c.Select(context.Background(), "zz"); !errors.Is(err, ErrNotListed) {
		t.Errorf("select unknown = %v", err)
	}
}

func TestCloseClearsSelection(t *testing.T) {
	dir := &fakeDirectory{active: []entity.Room{{ID: "r1", Status: entity.RoomActive}}}
	sess := &fakeSession{}
	tt := &toasts{}
	c := newController(dir, sess, tt, nil)
	c.Refresh(context.Background())
	_ = c.Select(context.Background(), "r1")

	sess.closeErr = errors.New("boom")
	if err := c.Close(context.Background()); err == nil || c.Selected() != "r1" || tt.count() != 1 {
		t.Fatalf("failed close: err=%v selected=%q toasts=%d", err, c.Selected(), tt.count())
	}

	sess.closeErr = nil
	dir.active = nil
	if err := c.Close(context.Background()); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if c.Selected() != "" || len(c.Active()) != 0 {
		t.Errorf("selected=%q active=%v", c.Selected(), c.Active())
	}
	if err := c.Close(context.Background()); !errors.Is(err, ErrNoSelection) {
		t.Errorf("close without selection = %v", err)
	}
}

func TestCloseDismissesRoomClosedByCustomer(t *testing.T) {
	dir := &fakeDirectory{active: []entity.Room{{ID: "r1", Status: entity.RoomActive}}}
	sess := &fakeSession{}
	tt := &toasts{}
	c := newController(dir, sess, tt, nil)
	c.Refresh(context.Background())
	_ = c.Select(context.Background(), "r1")

	sess.state = session.StateClosed
	sess.closeErr = errors.New("request failed with status: 409: Room is closed")
	dir.active = nil
	if err := c.Close(context.Background()); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if sess.closes != 0 {
		t.Errorf("directory close called %d times for a closed room", sess.closes)
	}
	if c.Selected() != "" || sess.detached != 1 || len(c.Active()) != 0 {
		t.Errorf("selected=%q detached=%d active=%v", c.Selected(), sess.detached, c.Active())
	}
	if tt.count() != 0 {
		t.Errorf("toasts = %d, want none", tt.count())
	}
}

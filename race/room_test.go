package race

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/typerush/typerush/typerush-backend/models"
)

const testInterval = 25 * time.Millisecond

// fakeBroadcaster records every outbound event so tests can assert on the
// exact broadcast sequence.
type fakeBroadcaster struct {
	mu        sync.Mutex
	broadcast []recordedEvent
	sent      []recordedEvent
}

type recordedEvent struct {
	target string // roomID for broadcasts, connID for sends
	msg    models.WsMessage
}

func (f *fakeBroadcaster) Broadcast(roomID string, msg models.WsMessage) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.broadcast = append(f.broadcast, recordedEvent{target: roomID, msg: msg})
}

func (f *fakeBroadcaster) Send(connID string, msg models.WsMessage) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, recordedEvent{target: connID, msg: msg})
}

// countdownValues returns every countdown value broadcast to the room, in
// order.
func (f *fakeBroadcaster) countdownValues(roomID string) []int {
	f.mu.Lock()
	defer f.mu.Unlock()
	var values []int
	for _, ev := range f.broadcast {
		if ev.target == roomID && ev.msg.Type == "countdown" {
			values = append(values, ev.msg.Data.(int))
		}
	}
	return values
}

func (f *fakeBroadcaster) eventCount(roomID, msgType string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, ev := range f.broadcast {
		if ev.target == roomID && ev.msg.Type == msgType {
			n++
		}
	}
	return n
}

func (f *fakeBroadcaster) sentTo(connID, msgType string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, ev := range f.sent {
		if ev.target == connID && ev.msg.Type == msgType {
			n++
		}
	}
	return n
}

// fakeRecorder records finish snapshots.
type fakeRecorder struct {
	mu       sync.Mutex
	finishes []finishRecord
}

type finishRecord struct {
	roomID  string
	results []Result
}

func (f *fakeRecorder) RecordFinish(roomID string, startedAt time.Time, results []Result) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.finishes = append(f.finishes, finishRecord{roomID: roomID, results: results})
}

func (f *fakeRecorder) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.finishes)
}

func newTestRegistry(t *testing.T) (*Registry, *fakeBroadcaster, *fakeRecorder) {
	t.Helper()
	fb := &fakeBroadcaster{}
	rec := &fakeRecorder{}
	reg := NewRegistry(Options{
		Broadcaster:       fb,
		Scores:            rec,
		CountdownInterval: testInterval,
		HeartbeatInterval: time.Hour, // keep heartbeats out of sequence assertions
	})
	t.Cleanup(reg.Stop)
	return reg, fb, rec
}

// startRace drives a room into the racing state with the given players.
func startRace(t *testing.T, reg *Registry, roomID string, conns ...string) {
	t.Helper()
	for i, conn := range conns {
		reg.Join(conn, fmt.Sprintf("player-%d", i), roomID)
	}
	reg.SubmitText(conns[0], "the quick brown fox")
	for _, conn := range conns {
		reg.Ready(conn)
	}
	room := reg.GetRoom(roomID)
	require.NotNil(t, room)
	require.Eventually(t, func() bool {
		return room.Status() == StatusRacing
	}, time.Second, time.Millisecond, "room never reached racing")
}

func TestSinglePlayerReadyStartsCountdown(t *testing.T) {
	reg, fb, _ := newTestRegistry(t)

	reg.Join("A", "alice", "r1")
	reg.SubmitText("A", "some race text")
	reg.Ready("A")

	room := reg.GetRoom("r1")
	require.NotNil(t, room)
	// The first tick is synchronous with the gating ready.
	assert.Equal(t, StatusCountdown, room.Status())
	assert.Equal(t, []int{3}, fb.countdownValues("r1"))

	require.Eventually(t, func() bool {
		return room.Status() == StatusRacing
	}, time.Second, time.Millisecond)

	assert.Equal(t, []int{3, 2, 1, 0}, fb.countdownValues("r1"))
	assert.False(t, room.StartTime().IsZero())
}

func TestMultiplayerGateWaitsForAll(t *testing.T) {
	reg, _, _ := newTestRegistry(t)

	reg.Join("A", "alice", "r2")
	reg.Join("B", "bob", "r2")
	reg.SubmitText("A", "shared text")

	room := reg.GetRoom("r2")
	require.NotNil(t, room)

	reg.Ready("A")
	assert.Equal(t, StatusWaiting, room.Status())

	reg.Ready("B")
	assert.Equal(t, StatusCountdown, room.Status())
}

func TestLeaveOfOnlyUnreadyPlayerStartsCountdown(t *testing.T) {
	reg, _, _ := newTestRegistry(t)

	reg.Join("A", "alice", "r1")
	reg.Join("B", "bob", "r1")
	reg.Join("C", "carol", "r1")
	reg.SubmitText("A", "text")
	reg.Ready("A")
	reg.Ready("B")

	room := reg.GetRoom("r1")
	require.Equal(t, StatusWaiting, room.Status())

	// C was the only player holding the gate; its leave re-evaluates it.
	reg.Leave("C")
	assert.Equal(t, StatusCountdown, room.Status())
	assert.Equal(t, 2, room.PlayerCount())
}

func TestLeaveLeavingSingleReadyPlayerStartsCountdown(t *testing.T) {
	reg, _, _ := newTestRegistry(t)

	reg.Join("A", "alice", "r1")
	reg.Join("B", "bob", "r1")
	reg.SubmitText("A", "text")
	reg.Ready("A")

	room := reg.GetRoom("r1")
	require.Equal(t, StatusWaiting, room.Status())

	// With B gone the room is single-player and its player is ready.
	reg.Leave("B")
	assert.Equal(t, StatusCountdown, room.Status())
}

func TestLeaveOfReadyPlayerKeepsWaiting(t *testing.T) {
	reg, _, _ := newTestRegistry(t)

	reg.Join("A", "alice", "r1")
	reg.Join("B", "bob", "r1")
	reg.Join("C", "carol", "r1")
	reg.SubmitText("A", "text")
	reg.Ready("A")

	reg.Leave("A")
	assert.Equal(t, StatusWaiting, reg.GetRoom("r1").Status())
}

func TestCountdownShape(t *testing.T) {
	reg, fb, _ := newTestRegistry(t)

	startRace(t, reg, "r1", "A", "B")

	assert.Equal(t, []int{3, 2, 1, 0}, fb.countdownValues("r1"))
	room := reg.GetRoom("r1")
	assert.Equal(t, StatusRacing, room.Status())
	assert.False(t, room.StartTime().IsZero())
}

func TestLateJoinerDoesNotRestartCountdown(t *testing.T) {
	reg, fb, _ := newTestRegistry(t)

	reg.Join("A", "alice", "r1")
	reg.Join("B", "bob", "r1")
	reg.SubmitText("A", "text")
	reg.Ready("A")
	reg.Ready("B")

	room := reg.GetRoom("r1")
	require.Equal(t, StatusCountdown, room.Status())

	// C joins mid-countdown: the gate stays fired, the sequence unbroken.
	reg.Join("C", "carol", "r1")
	assert.Equal(t, StatusCountdown, room.Status())

	require.Eventually(t, func() bool {
		return room.Status() == StatusRacing
	}, time.Second, time.Millisecond)
	assert.Equal(t, []int{3, 2, 1, 0}, fb.countdownValues("r1"))

	// The mid-countdown joiner is a spectator: the race finishes without it.
	reg.Progress("A", 100, 60)
	reg.Progress("B", 100, 55)
	assert.Equal(t, StatusFinished, room.Status())
}

func TestProgressMonotonic(t *testing.T) {
	reg, _, _ := newTestRegistry(t)
	startRace(t, reg, "r1", "A", "B")

	reg.Progress("A", 50, 40)
	reg.Progress("A", 30, 10)

	p, ok := reg.GetRoom("r1").Snapshot("A")
	require.True(t, ok)
	assert.Equal(t, 50, p.Percent, "percent must never regress")
	assert.Equal(t, 10.0, p.CurrentWpm, "currentWpm reflects the latest report")
	assert.Equal(t, 40.0, p.BestWpm, "bestWpm is a high-water mark")
}

func TestProgressMonotonicUnderManyUpdates(t *testing.T) {
	reg, _, _ := newTestRegistry(t)
	startRace(t, reg, "r1", "A", "B")
	room := reg.GetRoom("r1")

	last := 0
	for _, pct := range []int{5, 3, 20, 10, 20, 55, 40, 99, 60} {
		reg.Progress("A", pct, 30)
		p, ok := room.Snapshot("A")
		require.True(t, ok)
		assert.GreaterOrEqual(t, p.Percent, last)
		last = p.Percent
	}
	assert.Equal(t, 99, last)
}

func TestZeroWpmReportIsKept(t *testing.T) {
	reg, _, _ := newTestRegistry(t)
	startRace(t, reg, "r1", "A", "B")

	reg.Progress("A", 10, 42)
	reg.Progress("A", 12, 0)

	p, _ := reg.GetRoom("r1").Snapshot("A")
	assert.Equal(t, 0.0, p.CurrentWpm)
	assert.Equal(t, 42.0, p.BestWpm)
}

func TestOutOfRangePercentDropped(t *testing.T) {
	reg, _, _ := newTestRegistry(t)
	startRace(t, reg, "r1", "A", "B")
	room := reg.GetRoom("r1")

	reg.Progress("A", 40, 30)
	reg.Progress("A", -5, 99)
	reg.Progress("A", 150, 99)

	p, _ := room.Snapshot("A")
	assert.Equal(t, 40, p.Percent)
	assert.Equal(t, 30.0, p.CurrentWpm, "out-of-range reports are dropped whole")
	assert.Equal(t, 30.0, p.BestWpm)
}

func TestNegativeWpmClamped(t *testing.T) {
	reg, _, _ := newTestRegistry(t)
	startRace(t, reg, "r1", "A", "B")

	reg.Progress("A", 10, -7)
	p, _ := reg.GetRoom("r1").Snapshot("A")
	assert.Equal(t, 0.0, p.CurrentWpm)
	assert.Equal(t, 0.0, p.BestWpm)
}

func TestAllFinishedFinishesOnce(t *testing.T) {
	reg, _, rec := newTestRegistry(t)
	startRace(t, reg, "r1", "A", "B")
	room := reg.GetRoom("r1")

	reg.Progress("A", 100, 62)
	assert.Equal(t, StatusRacing, room.Status())

	reg.Progress("B", 100, 48)
	assert.Equal(t, StatusFinished, room.Status())
	assert.Equal(t, 1, rec.count())

	// Repeated 100% reports are idempotent for the status transition.
	reg.Progress("A", 100, 70)
	reg.Progress("B", 100, 70)
	assert.Equal(t, StatusFinished, room.Status())
	assert.Equal(t, 1, rec.count())
}

func TestFinishSnapshotContents(t *testing.T) {
	reg, _, rec := newTestRegistry(t)
	startRace(t, reg, "r1", "A", "B")

	reg.Progress("A", 100, 62)
	reg.Progress("B", 100, 48)

	require.Equal(t, 1, rec.count())
	fin := rec.finishes[0]
	assert.Equal(t, "r1", fin.roomID)
	require.Len(t, fin.results, 2)
	byConn := map[string]Result{}
	for _, res := range fin.results {
		byConn[res.ConnID] = res
		assert.Equal(t, 100, res.Percent)
		assert.GreaterOrEqual(t, res.DurationMs, int64(0))
	}
	assert.Equal(t, 62.0, byConn["A"].Wpm)
	assert.Equal(t, 48.0, byConn["B"].Wpm)
}

func TestLeaveOfLastUnfinishedPlayerFinishesRace(t *testing.T) {
	reg, _, _ := newTestRegistry(t)
	startRace(t, reg, "r1", "A", "B")
	room := reg.GetRoom("r1")

	reg.Progress("A", 100, 50)
	assert.Equal(t, StatusRacing, room.Status())

	reg.Leave("B")
	assert.Equal(t, StatusFinished, room.Status())
}

func TestSubmitTextStartsNewGeneration(t *testing.T) {
	reg, fb, _ := newTestRegistry(t)
	startRace(t, reg, "r1", "A", "B")
	room := reg.GetRoom("r1")

	reg.Progress("A", 100, 50)
	reg.Progress("B", 100, 45)
	require.Equal(t, StatusFinished, room.Status())

	countdowns := len(fb.countdownValues("r1"))
	reg.SubmitText("A", "fresh words to type")

	assert.Equal(t, StatusWaiting, room.Status())
	for _, conn := range []string{"A", "B"} {
		p, ok := room.Snapshot(conn)
		require.True(t, ok)
		assert.Equal(t, 0, p.Percent)
		assert.Equal(t, 0.0, p.CurrentWpm)
		assert.Equal(t, 0.0, p.BestWpm)
		assert.False(t, p.Ready)
		assert.False(t, p.Finished)
	}

	// No stray ticks from the previous generation.
	time.Sleep(5 * testInterval)
	assert.Equal(t, countdowns, len(fb.countdownValues("r1")))
}

func TestSubmitTextDuringCountdownResets(t *testing.T) {
	reg, fb, _ := newTestRegistry(t)

	reg.Join("A", "alice", "r1")
	reg.SubmitText("A", "first text")
	reg.Ready("A")
	room := reg.GetRoom("r1")
	require.Equal(t, StatusCountdown, room.Status())

	reg.SubmitText("A", "second text")
	assert.Equal(t, StatusWaiting, room.Status())

	// The cancelled generation must never push the room into racing.
	ticks := len(fb.countdownValues("r1"))
	time.Sleep(5 * testInterval)
	assert.Equal(t, StatusWaiting, room.Status())
	assert.Equal(t, ticks, len(fb.countdownValues("r1")))
}

func TestJoinerReceivesCurrentText(t *testing.T) {
	reg, fb, _ := newTestRegistry(t)

	reg.Join("A", "alice", "r1")
	reg.SubmitText("A", "already submitted")
	reg.Join("B", "bob", "r1")

	assert.Equal(t, 1, fb.sentTo("B", "race_text"))
	assert.Equal(t, 1, fb.sentTo("B", "roomJoined"))
}

func TestReadyIgnoredOutsideWaiting(t *testing.T) {
	reg, fb, _ := newTestRegistry(t)
	startRace(t, reg, "r1", "A", "B")
	room := reg.GetRoom("r1")

	ticks := len(fb.countdownValues("r1"))
	reg.Ready("A")
	assert.Equal(t, StatusRacing, room.Status())
	assert.Equal(t, ticks, len(fb.countdownValues("r1")))
}

func TestConcurrentProgressUpdates(t *testing.T) {
	reg, _, _ := newTestRegistry(t)
	startRace(t, reg, "r1", "A", "B")
	room := reg.GetRoom("r1")

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(base int) {
			defer wg.Done()
			for pct := 0; pct < 100; pct += 10 {
				reg.Progress("A", pct, float64(base))
			}
		}(i)
	}
	wg.Wait()

	p, ok := room.Snapshot("A")
	require.True(t, ok)
	assert.Equal(t, 90, p.Percent)
	assert.Equal(t, StatusRacing, room.Status())
}

func TestHeartbeatRebroadcastsState(t *testing.T) {
	fb := &fakeBroadcaster{}
	reg := NewRegistry(Options{
		Broadcaster:       fb,
		CountdownInterval: testInterval,
		HeartbeatInterval: testInterval,
	})
	t.Cleanup(reg.Stop)

	reg.Join("A", "alice", "r1")
	before := fb.eventCount("r1", "room_state")

	require.Eventually(t, func() bool {
		return fb.eventCount("r1", "room_state") > before+2
	}, time.Second, time.Millisecond, "heartbeat never re-broadcast state")
}

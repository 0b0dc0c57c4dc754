package enrich

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeAI struct {
	mu    sync.Mutex
	calls []uuid.UUID

	// fn overrides the default canned suggestion when set.
	fn func(ctx context.Context, target Target) (Suggestion, error)
}

func (f *fakeAI) SuggestMetadata(ctx context.Context, target Target) (Suggestion, error) {
	f.mu.Lock()
	f.calls = append(f.calls, target.ID)
	f.mu.Unlock()

	if f.fn != nil {
		return f.fn(ctx, target)
	}
	return Suggestion{Title: "Title for " + target.Filename, Description: "Description."}, nil
}

func (f *fakeAI) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

type fakePersist struct {
	mu      sync.Mutex
	updates []uuid.UUID
	err     error
}

func (f *fakePersist) UpdateMetadata(_ context.Context, id uuid.UUID, _, _ string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.updates = append(f.updates, id)
	return nil
}

func (f *fakePersist) updateCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.updates)
}

func makeTargets(n int) []Target {
	targets := make([]Target, n)
	for i := range targets {
		targets[i] = Target{ID: uuid.New(), Filename: "clip.mp4"}
	}
	return targets
}

func waitTerminal(t *testing.T, j *Job) Snapshot {
	t.Helper()
	require.Eventually(t, func() bool {
		return j.Snapshot().Status.Terminal()
	}, 5*time.Second, 5*time.Millisecond)
	return j.Snapshot()
}

func TestJobCompletes(t *testing.T) {
	ai := &fakeAI{}
	persist := &fakePersist{}
	targets := makeTargets(3)

	j := newJob(targets, ai, persist, 0, nil)
	go j.run(context.Background())

	snap := waitTerminal(t, j)
	assert.Equal(t, StatusCompleted, snap.Status)
	assert.Equal(t, 3, snap.Cursor)
	assert.Equal(t, 3, snap.Total)
	assert.Equal(t, 3, snap.Succeeded)
	assert.Equal(t, 0, snap.FailedItems)
	assert.Equal(t, 3, persist.updateCount())
	require.NotNil(t, snap.LastOutcome)
	assert.Equal(t, OutcomeSuccess, snap.LastOutcome.Outcome)
}

func TestJobSkipsTargetsWithMetadata(t *testing.T) {
	ai := &fakeAI{}
	persist := &fakePersist{}
	targets := []Target{
		{ID: uuid.New(), Filename: "a.mp4"},
		{ID: uuid.New(), Filename: "b.mp4", Title: "Real Title", Description: "Real description."},
	}

	j := newJob(targets, ai, persist, 0, nil)
	go j.run(context.Background())

	snap := waitTerminal(t, j)
	assert.Equal(t, StatusCompleted, snap.Status)
	assert.Equal(t, 1, snap.Succeeded)
	assert.Equal(t, 1, ai.callCount(), "enriched target must not be re-submitted")
	require.NotNil(t, snap.LastOutcome)
	assert.Equal(t, OutcomeSkipped, snap.LastOutcome.Outcome)
}

func TestJobItemFailureContinues(t *testing.T) {
	targets := makeTargets(3)
	failID := targets[1].ID

	ai := &fakeAI{fn: func(_ context.Context, target Target) (Suggestion, error) {
		if target.ID == failID {
			return Suggestion{}, errors.New("quota exceeded")
		}
		return Suggestion{Title: "T", Description: "D"}, nil
	}}
	persist := &fakePersist{}

	j := newJob(targets, ai, persist, 0, nil)
	go j.run(context.Background())

	snap := waitTerminal(t, j)
	assert.Equal(t, StatusCompleted, snap.Status, "one failed item must not abort the job")
	assert.Equal(t, 3, snap.Cursor)
	assert.Equal(t, 2, snap.Succeeded)
	assert.Equal(t, 1, snap.FailedItems)
	assert.Equal(t, 2, persist.updateCount())
}

func TestJobPersistenceFailureAborts(t *testing.T) {
	ai := &fakeAI{}
	persist := &fakePersist{err: errors.New("connection refused")}
	targets := makeTargets(3)

	j := newJob(targets, ai, persist, 0, nil)
	go j.run(context.Background())

	snap := waitTerminal(t, j)
	assert.Equal(t, StatusFailed, snap.Status)
	assert.Contains(t, snap.Failure, "connection refused")
	assert.Equal(t, 1, snap.Cursor, "remaining snapshot is abandoned after an infrastructure fault")
	assert.Equal(t, 1, ai.callCount())
}

func TestJobCancelMidway(t *testing.T) {
	const total = 5
	targets := makeTargets(total)

	calls := make(chan uuid.UUID)
	proceed := make(chan struct{})
	ai := &fakeAI{fn: func(_ context.Context, target Target) (Suggestion, error) {
		calls <- target.ID
		<-proceed
		return Suggestion{Title: "T", Description: "D"}, nil
	}}
	persist := &fakePersist{}

	j := newJob(targets, ai, persist, 0, nil)
	go j.run(context.Background())

	// Let two items complete fully.
	for i := 0; i < 2; i++ {
		<-calls
		proceed <- struct{}{}
	}

	// The third call is dispatched before the cancel lands. Its outcome is
	// still recorded; the flag is honored at the next item boundary.
	<-calls
	j.Cancel()
	assert.Equal(t, StatusCancelling, j.Snapshot().Status)
	proceed <- struct{}{}

	snap := waitTerminal(t, j)
	assert.Equal(t, StatusCancelled, snap.Status)
	assert.Equal(t, 3, snap.Cursor, "exactly the processed items are recorded")
	assert.Equal(t, 3, snap.Succeeded)
	assert.Equal(t, total, snap.Total)
	assert.Equal(t, 3, ai.callCount(), "untouched targets are never dispatched")
}

func TestJobEmptySnapshotCompletesImmediately(t *testing.T) {
	j := newJob(nil, &fakeAI{}, &fakePersist{}, 0, nil)
	go j.run(context.Background())

	snap := waitTerminal(t, j)
	assert.Equal(t, StatusCompleted, snap.Status)
	assert.Equal(t, 0, snap.Cursor)
	assert.Equal(t, 0, snap.Total)
	assert.Nil(t, snap.LastOutcome)
}

func TestJobCancelAfterTerminalIsNoop(t *testing.T) {
	j := newJob(makeTargets(1), &fakeAI{}, &fakePersist{}, 0, nil)
	go j.run(context.Background())

	snap := waitTerminal(t, j)
	require.Equal(t, StatusCompleted, snap.Status)

	j.Cancel()
	assert.Equal(t, StatusCompleted, j.Snapshot().Status, "terminal state is never overwritten")
}

func TestJobEmptySuggestedTitleFallsBackToFilenameHint(t *testing.T) {
	var gotTitle string
	var mu sync.Mutex

	ai := &fakeAI{fn: func(_ context.Context, _ Target) (Suggestion, error) {
		return Suggestion{Description: "Only a description."}, nil
	}}
	persist := &fakePersist{}

	targets := []Target{{ID: uuid.New(), Filename: "beach_day-4k.mp4"}}
	j := newJob(targets, ai, &persistSpy{fakePersist: persist, onTitle: func(title string) {
		mu.Lock()
		gotTitle = title
		mu.Unlock()
	}}, 0, nil)
	go j.run(context.Background())

	waitTerminal(t, j)
	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, "Beach Day 4K", gotTitle)
}

type persistSpy struct {
	*fakePersist
	onTitle func(title string)
}

func (p *persistSpy) UpdateMetadata(ctx context.Context, id uuid.UUID, title, description string) error {
	p.onTitle(title)
	return p.fakePersist.UpdateMetadata(ctx, id, title, description)
}

package mutate

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/gnomegl/wagroups/internal/config"
	"github.com/gnomegl/wagroups/internal/pacing"
	"github.com/gnomegl/wagroups/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

type fakeClock struct {
	now    time.Time
	sleeps []time.Duration
	cancel context.CancelFunc
	// cancelAfter cancels the context once this many sleeps were requested.
	cancelAfter int
}

func (c *fakeClock) Now() time.Time { return c.now }

func (c *fakeClock) Sleep(ctx context.Context, d time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	c.sleeps = append(c.sleeps, d)
	c.now = c.now.Add(d)
	if c.cancel != nil && len(c.sleeps) == c.cancelAfter {
		c.cancel()
		return context.Canceled
	}
	return nil
}

// fakeGroups simulates the remote side: membership, admin rank and scripted
// failures per group.
type fakeGroups struct {
	groups      map[string]*types.Chat
	refreshErr  error
	addErr      map[string]error
	addOutcome  map[string]*types.AddOutcome
	omitOutcome map[string]bool
	promoteErr  map[string]error
	calls       []string
}

func newFakeGroups(chats ...types.Chat) *fakeGroups {
	f := &fakeGroups{
		groups:      map[string]*types.Chat{},
		addErr:      map[string]error{},
		addOutcome:  map[string]*types.AddOutcome{},
		omitOutcome: map[string]bool{},
		promoteErr:  map[string]error{},
	}
	for i := range chats {
		c := chats[i]
		c.Participants = append([]types.Participant(nil), c.Participants...)
		f.groups[c.ID] = &c
	}
	return f
}

func (f *fakeGroups) RefreshGroup(_ context.Context, groupID string) (types.Chat, error) {
	f.calls = append(f.calls, "refresh "+groupID)
	if f.refreshErr != nil {
		return types.Chat{}, f.refreshErr
	}
	return *f.groups[groupID], nil
}

func (f *fakeGroups) AddParticipants(_ context.Context, groupID string, ids []string) (map[string]types.AddOutcome, error) {
	f.calls = append(f.calls, fmt.Sprintf("add %s %s", groupID, ids[0]))
	if err := f.addErr[groupID]; err != nil {
		return nil, err
	}
	if f.omitOutcome[groupID] {
		return map[string]types.AddOutcome{}, nil
	}
	if o := f.addOutcome[groupID]; o != nil {
		return map[string]types.AddOutcome{ids[0]: *o}, nil
	}
	g := f.groups[groupID]
	if _, ok := g.Participant(ids[0]); ok {
		return map[string]types.AddOutcome{ids[0]: {Code: 409}}, nil
	}
	g.Participants = append(g.Participants, types.Participant{ID: ids[0]})
	return map[string]types.AddOutcome{ids[0]: {Code: 200}}, nil
}

func (f *fakeGroups) PromoteParticipants(_ context.Context, groupID string, ids []string) error {
	f.calls = append(f.calls, fmt.Sprintf("promote %s %s", groupID, ids[0]))
	if err := f.promoteErr[groupID]; err != nil {
		return err
	}
	g := f.groups[groupID]
	for i := range g.Participants {
		if g.Participants[i].ID == ids[0] {
			g.Participants[i].IsAdmin = true
		}
	}
	return nil
}

func newMutator(t *testing.T, client GroupMutator, clock *fakeClock) *Mutator {
	t.Helper()
	return &Mutator{
		Client: client,
		Pacer:  pacing.New(config.Default().Delays, config.RateLimit{}, clock),
		Out:    &bytes.Buffer{},
		Log:    zaptest.NewLogger(t),
	}
}

func target(c types.Chat) types.GroupDetail {
	return types.GroupDetail{ID: c.ID, Name: c.Name}
}

const phone = "916360706166"

func runOne(t *testing.T, f *fakeGroups, chat types.Chat) types.MutationResult {
	t.Helper()
	m := newMutator(t, f, &fakeClock{})
	results, err := m.Run(context.Background(), []string{phone}, []types.GroupDetail{target(chat)}, []types.Chat{chat})
	require.NoError(t, err)
	require.Len(t, results, 1)
	return results[0]
}

func TestStateMachine(t *testing.T) {
	member := types.Chat{ID: "g@g.us", Name: "G", Participants: []types.Participant{{ID: phone + "@c.us"}}}
	admin := types.Chat{ID: "g@g.us", Name: "G", Participants: []types.Participant{{ID: phone + "@c.us", IsAdmin: true}}}
	absent := types.Chat{ID: "g@g.us", Name: "G"}

	tests := []struct {
		name    string
		chat    types.Chat
		setup   func(*fakeGroups)
		status  string
		success bool
	}{
		{"already admin", admin, nil, StatusAlreadyAdmin, true},
		{"member promoted", member, nil, StatusPromoted, true},
		{"promote error mentions admin", member, func(f *fakeGroups) {
			f.promoteErr["g@g.us"] = errors.New("participant is already admin")
		}, StatusAlreadyAdmin, true},
		{"promote error other", member, func(f *fakeGroups) {
			f.promoteErr["g@g.us"] = errors.New("forbidden")
		}, "Promote failed: forbidden", false},
		{"added and promoted", absent, nil, StatusAddedPromoted, true},
		{"added not promoted", absent, func(f *fakeGroups) {
			f.promoteErr["g@g.us"] = errors.New("forbidden")
		}, StatusAddedNotPromoted, true},
		{"already member code", absent, func(f *fakeGroups) {
			f.addOutcome["g@g.us"] = &types.AddOutcome{Code: 409}
		}, StatusAlreadyMember, true},
		{"other code with message", absent, func(f *fakeGroups) {
			f.addOutcome["g@g.us"] = &types.AddOutcome{Code: 403, Message: "not-authorized"}
		}, "not-authorized", false},
		{"other code without message", absent, func(f *fakeGroups) {
			f.addOutcome["g@g.us"] = &types.AddOutcome{Code: 408}
		}, "Error code: 408", false},
		{"no response", absent, func(f *fakeGroups) {
			f.omitOutcome["g@g.us"] = true
		}, StatusNoResponse, false},
		{"add error", absent, func(f *fakeGroups) {
			f.addErr["g@g.us"] = errors.New("rate-overlimit")
		}, "rate-overlimit", false},
		{"add error without message", absent, func(f *fakeGroups) {
			f.addErr["g@g.us"] = errors.New("")
		}, StatusUnknownError, false},
		{"refresh failure is swallowed", admin, func(f *fakeGroups) {
			f.refreshErr = errors.New("timeout")
		}, StatusAlreadyAdmin, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFakeGroups(tt.chat)
			if tt.setup != nil {
				tt.setup(f)
			}
			res := runOne(t, f, tt.chat)
			assert.Equal(t, phone, res.Phone)
			assert.Equal(t, "G", res.Group)
			assert.Equal(t, tt.status, res.Status)
			assert.Equal(t, tt.success, res.Success)
		})
	}
}

func TestPromoteErrorMentioningAdmin(t *testing.T) {
	member := types.Chat{ID: "g@g.us", Name: "G", Participants: []types.Participant{{ID: phone + "@c.us"}}}
	f := newFakeGroups(member)
	f.promoteErr["g@g.us"] = errors.New("participant is already admin")

	res := runOne(t, f, member)
	assert.Equal(t, StatusAlreadyAdmin, res.Status)
	assert.True(t, res.Success)
	assert.Contains(t, f.calls, "promote g@g.us "+phone+"@c.us")
	assert.False(t, member.Participants[0].IsAdmin)
}

func TestFakeDoesNotShareParticipants(t *testing.T) {
	member := types.Chat{ID: "g@g.us", Name: "G", Participants: []types.Participant{{ID: phone + "@c.us"}}}

	assert.Equal(t, StatusPromoted, runOne(t, newFakeGroups(member), member).Status)
	assert.False(t, member.Participants[0].IsAdmin)

	f := newFakeGroups(member)
	f.promoteErr["g@g.us"] = errors.New("forbidden")
	res := runOne(t, f, member)
	assert.Equal(t, "Promote failed: forbidden", res.Status)
	assert.False(t, res.Success)
}

func TestRefreshedSnapshotIsUsed(t *testing.T) {
	stale := types.Chat{ID: "g@g.us", Name: "G"}
	f := newFakeGroups(types.Chat{ID: "g@g.us", Name: "G", Participants: []types.Participant{{ID: phone + "@c.us", IsAdmin: true}}})

	res := runOne(t, f, stale)
	assert.Equal(t, StatusAlreadyAdmin, res.Status)
	assert.Equal(t, []string{"refresh g@g.us"}, f.calls)
}

func TestGroupNotFound(t *testing.T) {
	f := newFakeGroups()
	m := newMutator(t, f, &fakeClock{})

	results, err := m.Run(context.Background(), []string{phone}, []types.GroupDetail{{ID: "gone@g.us", Name: "Gone"}}, nil)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, StatusGroupNotFound, results[0].Status)
	assert.False(t, results[0].Success)
	assert.Empty(t, f.calls)
}

func TestIdempotentAgainstAdmin(t *testing.T) {
	chat := types.Chat{ID: "g@g.us", Name: "G", Participants: []types.Participant{{ID: phone + "@c.us", IsAdmin: true}}}
	f := newFakeGroups(chat)

	for i := 0; i < 2; i++ {
		res := runOne(t, f, chat)
		assert.Equal(t, StatusAlreadyAdmin, res.Status)
		assert.True(t, res.Success)
	}
}

func TestSecondRunAfterAddSeesAdmin(t *testing.T) {
	chat := types.Chat{ID: "g@g.us", Name: "G"}
	f := newFakeGroups(chat)

	assert.Equal(t, StatusAddedPromoted, runOne(t, f, chat).Status)
	assert.Equal(t, StatusAlreadyAdmin, runOne(t, f, chat).Status)
}

func TestOrderingAndPacing(t *testing.T) {
	chats := []types.Chat{{ID: "a@g.us", Name: "A"}, {ID: "b@g.us", Name: "B"}}
	phones := []string{"911111111111", "922222222222", "933333333333"}
	f := newFakeGroups(chats...)
	clock := &fakeClock{}
	m := newMutator(t, f, clock)

	var progress countingProgress
	m.Progress = &progress

	targets := []types.GroupDetail{target(chats[0]), target(chats[1])}
	results, err := m.Run(context.Background(), phones, targets, chats)
	require.NoError(t, err)
	require.Len(t, results, len(phones)*len(chats))
	assert.Equal(t, 6, progress.n)

	for i, res := range results {
		assert.Equal(t, phones[i/len(chats)], res.Phone)
		assert.Equal(t, chats[i%len(chats)].Name, res.Group)
		assert.Equal(t, StatusAddedPromoted, res.Status)
	}

	// Acquire sleeps are zero with an unlimited bucket; keep the fixed pauses.
	var pauses []time.Duration
	for _, d := range clock.sleeps {
		if d > 0 {
			pauses = append(pauses, d)
		}
	}
	add, group, phoneGap := 1500*time.Millisecond, 2*time.Second, 3*time.Second
	assert.Equal(t, []time.Duration{
		add, group, add, group, phoneGap,
		add, group, add, group, phoneGap,
		add, group, add, group,
	}, pauses)
}

func TestCancellationReturnsPartialResults(t *testing.T) {
	chat := types.Chat{ID: "g@g.us", Name: "G", Participants: []types.Participant{{ID: "911111111111@c.us", IsAdmin: true}, {ID: "922222222222@c.us", IsAdmin: true}}}
	f := newFakeGroups(chat)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	// First sleep is the pause between groups after the first pairing.
	clock := &fakeClock{cancel: cancel, cancelAfter: 1}
	m := newMutator(t, f, clock)

	results, err := m.Run(ctx, []string{"911111111111", "922222222222"}, []types.GroupDetail{target(chat)}, []types.Chat{chat})
	assert.ErrorIs(t, err, context.Canceled)
	require.Len(t, results, 1)
	assert.Equal(t, "911111111111", results[0].Phone)
}

func TestSummarize(t *testing.T) {
	results := []types.MutationResult{
		{Phone: "1", Success: true},
		{Phone: "1", Success: false},
		{Phone: "2", Success: true},
	}

	s := Summarize(results, []string{"1", "2", "3"})
	assert.Equal(t, 3, s.Total)
	assert.Equal(t, 2, s.Successful)
	assert.Equal(t, 1, s.Failed)
	assert.Equal(t, []PhoneSummary{
		{Phone: "1", Successful: 1, Total: 2},
		{Phone: "2", Successful: 1, Total: 1},
		{Phone: "3", Successful: 0, Total: 0},
	}, s.PerPhone)

	var out bytes.Buffer
	s.Print(&out)
	assert.Contains(t, out.String(), "Total operations: 3")
	assert.Contains(t, out.String(), "  1: 1/2 successful")
}

type countingProgress struct{ n int }

func (p *countingProgress) Add(n int) error {
	p.n += n
	return nil
}

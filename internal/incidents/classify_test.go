package incidents

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ids(list []Incident) []string {
	out := make([]string, 0, len(list))
	for _, inc := range list {
		out = append(out, inc.IncidentID)
	}
	return out
}

func inc(id string, state State, assignee string) Incident {
	return Incident{
		IncidentID:        id,
		Priority:          1,
		Occurrences:       1,
		StateID:           state,
		AssignedTo:        assignee,
		EscalationLevelID: "esc-1",
	}
}

func TestBucketOfCoversEveryStateAndAssignment(t *testing.T) {
	cases := []struct {
		state    State
		assignee string
		want     Bucket
	}{
		{StateOpen, "", BucketNew},
		{StateOpen, "   ", BucketNew},
		{StateOpen, "user-1", BucketActive},
		{StateObserved, "", BucketObserved},
		{StateObserved, "user-1", BucketObserved},
		{StateClosed, "", BucketCompleted},
		{StateClosed, "user-1", BucketCompleted},
	}
	for _, tc := range cases {
		got, ok := BucketOf(inc("x", tc.state, tc.assignee))
		require.True(t, ok, "%s/%q", tc.state, tc.assignee)
		assert.Equal(t, tc.want, got, "%s/%q", tc.state, tc.assignee)
	}

	_, ok := BucketOf(inc("x", State("PAUSED"), ""))
	assert.False(t, ok)
}

func TestClassifyIsExclusiveAndExhaustive(t *testing.T) {
	list := []Incident{
		inc("a", StateOpen, ""),
		inc("b", StateOpen, "user-1"),
		inc("c", StateObserved, ""),
		inc("d", StateObserved, "user-2"),
		inc("e", StateClosed, ""),
		inc("f", StateClosed, "user-3"),
	}

	seen := map[string]int{}
	for _, b := range Buckets {
		for _, got := range Classify(list, b, Filter{}) {
			seen[got.IncidentID]++
		}
	}
	for _, in := range list {
		assert.Equal(t, 1, seen[in.IncidentID], in.IncidentID)
	}

	board := ClassifyAll(list, Filter{})
	assert.Equal(t, len(list), board.Len())
	for _, b := range Buckets {
		assert.Equal(t, ids(Classify(list, b, Filter{})), ids(board.Bucket(b)), string(b))
	}
}

func TestClassifyPreservesOrder(t *testing.T) {
	list := []Incident{
		inc("n3", StateOpen, ""),
		inc("x", StateClosed, ""),
		inc("n1", StateOpen, ""),
		inc("n2", StateOpen, ""),
	}
	assert.Equal(t, []string{"n3", "n1", "n2"}, ids(Classify(list, BucketNew, Filter{})))
}

func TestClassifyEmptyResultIsNotNil(t *testing.T) {
	got := Classify(nil, BucketActive, Filter{})
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestFilterEscalationAndTags(t *testing.T) {
	elec := inc("elec", StateOpen, "")
	elec.Lvl1SkillID = "skill-elec"

	mech := inc("mech", StateOpen, "")
	mech.SkillIDs = []string{"skill-mech"}

	both := inc("both", StateOpen, "")
	both.Lvl2SkillID = "skill-scada"
	both.SkillIDs = []string{"skill-elec"}

	other := inc("esc2", StateOpen, "")
	other.EscalationLevelID = "esc-2"
	other.Lvl1SkillID = "skill-elec"

	list := []Incident{elec, mech, both, other}

	assert.Equal(t, []string{"elec", "mech", "both", "esc2"}, ids(Classify(list, BucketNew, Filter{})))
	assert.Equal(t, []string{"elec", "mech", "both"},
		ids(Classify(list, BucketNew, Filter{EscalationLevelID: "esc-1"})))
	assert.Equal(t, []string{"elec", "both", "esc2"},
		ids(Classify(list, BucketNew, Filter{Tags: []string{"skill-elec"}})))
	assert.Equal(t, []string{"elec", "both"},
		ids(Classify(list, BucketNew, Filter{EscalationLevelID: "esc-1", Tags: []string{"skill-elec"}})))
	assert.Empty(t, Classify(list, BucketNew, Filter{Tags: []string{"skill-none"}}))
}

func TestFilterMoreTagsNeverRemovesMatches(t *testing.T) {
	list := Seed(time.Now())
	f := Filter{EscalationLevelID: "esc-1", Tags: []string{"skill-elec"}}
	wider := Filter{EscalationLevelID: "esc-1", Tags: []string{"skill-elec", "skill-mech"}}

	for _, b := range Buckets {
		narrow := ids(Classify(list, b, f))
		wide := ids(Classify(list, b, wider))
		for _, id := range narrow {
			assert.Contains(t, wide, id, string(b))
		}
	}
	assert.Len(t, Classify(list, BucketActive, wider), 1)
}

func TestSeedClassification(t *testing.T) {
	board := ClassifyAll(Seed(time.Now()), Filter{})
	assert.Equal(t, []string{"inc-1001"}, ids(board.New))
	assert.Equal(t, []string{"inc-1002"}, ids(board.Active))
	assert.Equal(t, []string{"inc-1003"}, ids(board.Observed))
	assert.Equal(t, []string{"inc-1004"}, ids(board.Completed))
}

func TestMoveTo(t *testing.T) {
	open := inc("a", StateOpen, "")
	owned := inc("b", StateClosed, "user-7")

	moved := MoveTo(open, BucketActive, "user-1")
	assert.Equal(t, StateOpen, moved.StateID)
	assert.Equal(t, "user-1", moved.AssignedTo)
	assert.Equal(t, BucketActive, mustBucket(t, moved))

	moved = MoveTo(owned, BucketActive, "user-1")
	assert.Equal(t, "user-7", moved.AssignedTo)

	moved = MoveTo(owned, BucketNew, "user-1")
	assert.Equal(t, StateOpen, moved.StateID)
	assert.False(t, moved.Assigned())

	assert.Equal(t, BucketObserved, mustBucket(t, MoveTo(open, BucketObserved, "user-1")))
	assert.Equal(t, BucketCompleted, mustBucket(t, MoveTo(open, BucketCompleted, "user-1")))

	// the input is not modified
	assert.Equal(t, StateClosed, owned.StateID)
}

func mustBucket(t *testing.T, in Incident) Bucket {
	t.Helper()
	b, ok := BucketOf(in)
	require.True(t, ok)
	return b
}

func TestParseBucket(t *testing.T) {
	b, err := ParseBucket(" Active ")
	require.NoError(t, err)
	assert.Equal(t, BucketActive, b)

	_, err = ParseBucket("archived")
	assert.Error(t, err)
}

package incidents

import (
	"fmt"
	"strings"
)

type Bucket string

const (
	BucketNew       Bucket = "new"
	BucketActive    Bucket = "active"
	BucketObserved  Bucket = "observed"
	BucketCompleted Bucket = "completed"
)

// Buckets lists every bucket in display order.
var Buckets = []Bucket{BucketNew, BucketActive, BucketObserved, BucketCompleted}

func ParseBucket(s string) (Bucket, error) {
	b := Bucket(strings.ToLower(strings.TrimSpace(s)))
	switch b {
	case BucketNew, BucketActive, BucketObserved, BucketCompleted:
		return b, nil
	}
	return "", fmt.Errorf("unknown bucket %q", s)
}

// Filter holds the facets selected by the viewer. Zero values mean "no
// filter" for that facet.
type Filter struct {
	EscalationLevelID string
	Tags              []string
}

// Matches applies the escalation facet AND the tag facet. Selected tags are
// OR'ed: one shared tag is enough.
func (f Filter) Matches(inc Incident) bool {
	if f.EscalationLevelID != "" && inc.EscalationLevelID != f.EscalationLevelID {
		return false
	}
	if len(f.Tags) == 0 {
		return true
	}
	for _, have := range inc.Tags() {
		for _, want := range f.Tags {
			if have == want {
				return true
			}
		}
	}
	return false
}

// BucketOf maps the current state and assignment to a bucket. State wins over
// assignment once it is not OPEN. Incidents in an unknown state belong to no
// bucket.
func BucketOf(inc Incident) (Bucket, bool) {
	switch inc.StateID {
	case StateOpen:
		if inc.Assigned() {
			return BucketActive, true
		}
		return BucketNew, true
	case StateObserved:
		return BucketObserved, true
	case StateClosed:
		return BucketCompleted, true
	}
	return "", false
}

// Classify returns the incidents of list that pass the filter and fall in
// bucket, in their original relative order.
func Classify(list []Incident, bucket Bucket, f Filter) []Incident {
	out := []Incident{}
	for _, inc := range list {
		if !f.Matches(inc) {
			continue
		}
		if b, ok := BucketOf(inc); ok && b == bucket {
			out = append(out, inc)
		}
	}
	return out
}

// Board is the four-way split of a collection.
type Board struct {
	New       []Incident `json:"new"`
	Active    []Incident `json:"active"`
	Observed  []Incident `json:"observed"`
	Completed []Incident `json:"completed"`
}

func (b Board) Bucket(bucket Bucket) []Incident {
	switch bucket {
	case BucketNew:
		return b.New
	case BucketActive:
		return b.Active
	case BucketObserved:
		return b.Observed
	case BucketCompleted:
		return b.Completed
	}
	return nil
}

func (b Board) Len() int {
	return len(b.New) + len(b.Active) + len(b.Observed) + len(b.Completed)
}

// ClassifyAll is Classify for every bucket in a single pass.
func ClassifyAll(list []Incident, f Filter) Board {
	b := Board{
		New:       []Incident{},
		Active:    []Incident{},
		Observed:  []Incident{},
		Completed: []Incident{},
	}
	for _, inc := range list {
		if !f.Matches(inc) {
			continue
		}
		bucket, ok := BucketOf(inc)
		if !ok {
			continue
		}
		switch bucket {
		case BucketNew:
			b.New = append(b.New, inc)
		case BucketActive:
			b.Active = append(b.Active, inc)
		case BucketObserved:
			b.Observed = append(b.Observed, inc)
		case BucketCompleted:
			b.Completed = append(b.Completed, inc)
		}
	}
	return b
}

// MoveTo returns inc rewritten so that it lands in target. It is what a drop
// onto a board column turns into. Columns other than "new" need an owner; the
// current one is kept, otherwise defaultAssignee is used.
func MoveTo(inc Incident, target Bucket, defaultAssignee string) Incident {
	out := inc.Clone()
	if target == BucketNew {
		out.StateID = StateOpen
		out.AssignedTo = ""
		return out
	}
	if !out.Assigned() {
		out.AssignedTo = defaultAssignee
	}
	switch target {
	case BucketActive:
		out.StateID = StateOpen
	case BucketObserved:
		out.StateID = StateObserved
	case BucketCompleted:
		out.StateID = StateClosed
	}
	return out
}

package forum

import "fmt"

type MutationKind int

const (
	MutationIncrement MutationKind = iota
	MutationDelete
)

// Compensation is what happens to local state once the store answers.
type Compensation int

const (
	// CompensateNone keeps the optimistic value whatever the outcome.
	CompensateNone Compensation = iota
	// CompensateRemoveOnSuccess removes the item only after the store confirms.
	CompensateRemoveOnSuccess
)

// Counter names a counter the sync worker owns.
type Counter string

const (
	CounterUpvotes Counter = "upvotes"
	CounterViews   Counter = "views"
)

// Mutation is one user-initiated change to a post.
type Mutation struct {
	Kind       MutationKind
	Compensate Compensation
	Ref        string
	Counter    Counter
}

func increment(ref string, c Counter) Mutation {
	return Mutation{Kind: MutationIncrement, Compensate: CompensateNone, Ref: ref, Counter: c}
}

func deletion(ref string) Mutation {
	return Mutation{Kind: MutationDelete, Compensate: CompensateRemoveOnSuccess, Ref: ref}
}

func (m Mutation) String() string {
	if m.Kind == MutationDelete {
		return "delete " + m.Ref
	}
	return fmt.Sprintf("increment %s of %s", m.Counter, m.Ref)
}

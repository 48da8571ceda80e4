package store

import "context"

// Change is one proposed event modification produced by a gesture: the new
// interval and group for the identified event.
type Change struct {
	EventID string
	Start   int64
	End     int64
	GroupID string
}

// Proposal is what the business-logic hooks see: the committed versions of
// the affected events together with the proposed changes, in a stable
// order (the manipulated event first, then its linked set by link depth).
type Proposal struct {
	Events  []Event
	Changes []Change
}

// Hooks is the pluggable business-logic surface supplied by the host
// application. The During* hooks run synchronously on every intermediate
// gesture frame and may adjust the proposal (snapping, constraining); the
// After* hooks run once on gesture release, may perform I/O (ctx carries
// cancellation), and decide whether the gesture commits. An error from an
// After* hook rejects the gesture and rolls the store back.
//
// Merge hooks let the host fold externally created state into a commit;
// they receive the post-validation values and return what is stored.
//
// Identity behavior for any method is available by embedding NopHooks.
type Hooks interface {
	ValidateDuringDrag(p Proposal) (Proposal, error)
	ValidateAfterDrag(ctx context.Context, p Proposal) (Proposal, error)
	ValidateDuringResize(p Proposal) (Proposal, error)
	ValidateAfterResize(ctx context.Context, p Proposal) (Proposal, error)
	MergeNewEvents(events []Event) []Event
	MergeNewGroups(groups []Group) []Group
}

// NopHooks implements Hooks with identity behavior: every proposal is
// accepted unchanged.
type NopHooks struct{}

var _ Hooks = NopHooks{}

func (NopHooks) ValidateDuringDrag(p Proposal) (Proposal, error) { return p, nil }

func (NopHooks) ValidateAfterDrag(_ context.Context, p Proposal) (Proposal, error) { return p, nil }

func (NopHooks) ValidateDuringResize(p Proposal) (Proposal, error) { return p, nil }

func (NopHooks) ValidateAfterResize(_ context.Context, p Proposal) (Proposal, error) { return p, nil }

func (NopHooks) MergeNewEvents(events []Event) []Event { return events }

func (NopHooks) MergeNewGroups(groups []Group) []Group { return groups }

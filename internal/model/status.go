package model

// ProjectStatus is a project lifecycle state.
type ProjectStatus string

// Project status constants, in forward lifecycle order.
const (
	ProjectRequested  ProjectStatus = "requested"
	ProjectQuoted     ProjectStatus = "quoted"
	ProjectApproved   ProjectStatus = "approved"
	ProjectInProgress ProjectStatus = "in_progress"
	ProjectCompleted  ProjectStatus = "completed"
	ProjectCancelled  ProjectStatus = "cancelled"
)

// QuoteStatus is a quote lifecycle state.
type QuoteStatus string

// Quote status constants.
const (
	QuoteDraft    QuoteStatus = "draft"
	QuoteApproved QuoteStatus = "approved"
	QuoteRejected QuoteStatus = "rejected"
)

// ChangeStatus is a change-request lifecycle state.
type ChangeStatus string

// Change-request status constants.
const (
	ChangeSubmitted ChangeStatus = "submitted"
	ChangeApproved  ChangeStatus = "approved"
	ChangeRejected  ChangeStatus = "rejected"
	ChangeApplied   ChangeStatus = "applied"
)

// projectTransitions maps each project status to the set of statuses it may
// transition to. Completed and cancelled are terminal.
var projectTransitions = map[ProjectStatus]map[ProjectStatus]bool{
	ProjectRequested: {
		ProjectQuoted:    true,
		ProjectCancelled: true,
	},
	ProjectQuoted: {
		ProjectApproved:  true,
		ProjectCancelled: true,
	},
	ProjectApproved: {
		ProjectInProgress: true,
		ProjectCancelled:  true,
	},
	ProjectInProgress: {
		ProjectCompleted: true,
		ProjectCancelled: true,
	},
}

// changeTransitions maps each change-request status to its allowed targets.
// Rejected and applied are terminal.
var changeTransitions = map[ChangeStatus]map[ChangeStatus]bool{
	ChangeSubmitted: {
		ChangeApproved: true,
		ChangeRejected: true,
	},
	ChangeApproved: {
		ChangeApplied: true,
	},
}

// projectStatusOrder is the total forward order over project statuses, used
// for "only advance forward" comparisons when a side effect promotes a
// project's status.
var projectStatusOrder = map[ProjectStatus]int{
	ProjectRequested:  0,
	ProjectQuoted:     1,
	ProjectApproved:   2,
	ProjectInProgress: 3,
	ProjectCompleted:  4,
	ProjectCancelled:  5,
}

// ValidProjectTransition reports whether a project may move from one status
// to another. Requesting the current status is not a transition and is
// handled by callers as a no-op.
func ValidProjectTransition(from, to ProjectStatus) bool {
	targets, ok := projectTransitions[from]
	if !ok {
		return false
	}
	return targets[to]
}

// ValidChangeTransition reports whether a change request may move from one
// status to another.
func ValidChangeTransition(from, to ChangeStatus) bool {
	targets, ok := changeTransitions[from]
	if !ok {
		return false
	}
	return targets[to]
}

// ProjectStatusBefore reports whether a precedes b in the forward lifecycle
// order. Unknown statuses never precede anything.
func ProjectStatusBefore(a, b ProjectStatus) bool {
	ai, ok := projectStatusOrder[a]
	if !ok {
		return false
	}
	bi, ok := projectStatusOrder[b]
	if !ok {
		return false
	}
	return ai < bi
}

// KnownProjectStatus reports whether s is one of the defined project statuses.
func KnownProjectStatus(s ProjectStatus) bool {
	_, ok := projectStatusOrder[s]
	return ok
}

package domain

// Action is a lifecycle operation that is gated by the invoice status.
type Action string

const (
	ActionUpdate   Action = "update"
	ActionConfirm  Action = "confirm"
	ActionApprove  Action = "approve"
	ActionReject   Action = "reject"
	ActionMarkPaid Action = "mark_paid"
	ActionDelete   Action = "delete"
)

// Actions lists every gated action.
var Actions = []Action{ActionUpdate, ActionConfirm, ActionApprove, ActionReject, ActionMarkPaid, ActionDelete}

// Statuses lists every lifecycle state.
var Statuses = []Status{StatusDraft, StatusPendingApproval, StatusApproved, StatusRejected, StatusPaid}

// transitions maps action and source status to the resulting status.
// Update keeps the status; Delete has no resulting status.
var transitions = map[Action]map[Status]Status{
	ActionUpdate: {
		StatusDraft:    StatusDraft,
		StatusRejected: StatusRejected,
	},
	ActionConfirm: {
		StatusDraft:    StatusPendingApproval,
		StatusRejected: StatusPendingApproval,
	},
	ActionApprove: {
		StatusPendingApproval: StatusApproved,
	},
	ActionReject: {
		StatusPendingApproval: StatusRejected,
	},
	ActionMarkPaid: {
		StatusApproved: StatusPaid,
	},
	ActionDelete: {
		StatusDraft: "",
	},
}

// NextStatus returns the status an invoice in from ends up in after action,
// or an InvalidTransitionError when the pair is not allowed.
func NextStatus(from Status, action Action) (Status, error) {
	targets, ok := transitions[action]
	if !ok {
		return "", &InvalidTransitionError{From: from, Action: action}
	}
	to, ok := targets[from]
	if !ok {
		return "", &InvalidTransitionError{From: from, Action: action}
	}
	return to, nil
}

package domain

// ActionKind enumerates the user actions served by /user/act.
type ActionKind string

const (
	ActionRanking ActionKind = "ranking"
	ActionHistory ActionKind = "history"
	// ActionEcho answers every action code without a dedicated handler.
	ActionEcho ActionKind = "echo"
)

var actionCodes = map[int]ActionKind{
	1: ActionRanking,
	2: ActionHistory,
}

// ActionKindFor maps a wire action code onto its kind. Unknown codes map to
// ActionEcho.
func ActionKindFor(code int) ActionKind {
	if kind, ok := actionCodes[code]; ok {
		return kind
	}
	return ActionEcho
}

// AdminCommand enumerates the commands served by /private/admin/action.
type AdminCommand string

const (
	AdminCommandStats AdminCommand = "stats"
	AdminCommandUsers AdminCommand = "users"
	AdminCommandEcho  AdminCommand = "echo"
)

// AdminCommandFor maps a wire command onto its kind. Unknown commands map to
// AdminCommandEcho.
func AdminCommandFor(command string) AdminCommand {
	switch AdminCommand(command) {
	case AdminCommandStats, AdminCommandUsers:
		return AdminCommand(command)
	default:
		return AdminCommandEcho
	}
}

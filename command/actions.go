package command

import "strings"

// Action identifies what a component interaction asks the bot to do. The
// action is the first word of a component's custom id, the optional argument
// (post id or username) the second.
type Action int

const (
	ActionUnknown Action = iota
	ActionApprovePost
	ActionDenyPost
	ActionSwitchPost
	ActionConfirmAuthor
	ActionCancelAuthor
	ActionChangeStatus
	ActionEditExpertise
	ActionSuspendAuthor
	ActionCloseMenu
	ActionExpertiseModal
	ActionMassSuspendModal
	ActionDebugMenu
)

var actionNames = map[Action]string{
	ActionApprovePost:      "approvecomment",
	ActionDenyPost:         "rejectcomment",
	ActionSwitchPost:       "switchcomment",
	ActionConfirmAuthor:    "approvetracker",
	ActionCancelAuthor:     "rejecttracker",
	ActionChangeStatus:     "change_status",
	ActionEditExpertise:    "edit_expertise",
	ActionSuspendAuthor:    "suspend_user",
	ActionCloseMenu:        "close_menu",
	ActionExpertiseModal:   "expertise_modal",
	ActionMassSuspendModal: "mass_suspend_modal",
	ActionDebugMenu:        "debug_menu",
}

var actionsByName = func() map[string]Action {
	m := make(map[string]Action, len(actionNames))
	for a, name := range actionNames {
		m[name] = a
	}
	return m
}()

func (a Action) String() string {
	if name, ok := actionNames[a]; ok {
		return name
	}
	return "unknown"
}

// CustomID builds the custom id of a component carrying action and arg.
func CustomID(action Action, arg string) string {
	if arg == "" {
		return action.String()
	}
	return action.String() + " " + arg
}

// ParseCustomID splits a custom id into its action and argument. Unrecognised
// ids yield ActionUnknown.
func ParseCustomID(id string) (Action, string) {
	name, arg, _ := strings.Cut(strings.TrimSpace(id), " ")
	action, ok := actionsByName[name]
	if !ok {
		return ActionUnknown, ""
	}
	return action, strings.TrimSpace(arg)
}

// Values of the debug menu select.
const (
	DebugPing             = "ping"
	DebugListAuthors      = "print_targetlist"
	DebugForceUpdate      = "force_update"
	DebugRegisterCommands = "register_commands"
)

// Values of the status select in the edit menu.
const (
	StatusOptionEnable  = "enable"
	StatusOptionDisable = "disable"
	StatusOptionAuto    = "auto"
)

// Text input ids inside modals.
const (
	ExpertiseInputID   = "expertise_input"
	MassSuspendInputID = "mass_remove_users_input"
)

package access

// Action is the closed set of capabilities a grant can carry. Anything else
// is not a capability and always resolves to deny.
type Action string

const (
	ActionView   Action = "view"
	ActionCreate Action = "create"
	ActionEdit   Action = "edit"
	ActionDelete Action = "delete"
)

// ParseAction maps a raw string onto the closed action set.
func ParseAction(raw string) (Action, bool) {
	switch Action(raw) {
	case ActionView, ActionCreate, ActionEdit, ActionDelete:
		return Action(raw), true
	}
	return "", false
}

// Actions enumerates every defined action.
func Actions() []Action {
	return []Action{ActionView, ActionCreate, ActionEdit, ActionDelete}
}

// Module is a fixed functional area of the application subject to access
// control. The set is defined by the application and is not tenant-editable.
type Module string

const (
	ModuleDashboard    Module = "dashboard"
	ModulePatients     Module = "patients"
	ModuleAppointments Module = "appointments"
	ModuleTeam         Module = "team"
	ModuleDocuments    Module = "documents"
	ModuleBilling      Module = "billing"
	ModuleSettings     Module = "settings"
)

// Modules enumerates every access-controlled module.
func Modules() []Module {
	return []Module{
		ModuleDashboard,
		ModulePatients,
		ModuleAppointments,
		ModuleTeam,
		ModuleDocuments,
		ModuleBilling,
		ModuleSettings,
	}
}

// ParseModule maps a raw string onto the fixed module set.
func ParseModule(raw string) (Module, bool) {
	for _, m := range Modules() {
		if Module(raw) == m {
			return m, true
		}
	}
	return "", false
}

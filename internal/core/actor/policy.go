package actor

// Action names an operation subject to role checks.
type Action string

const (
	ActionManageSites      Action = "manage sites"
	ActionReconcile        Action = "reconcile ledgers"
	ActionPostCompany      Action = "post company transaction"
	ActionManageContractor Action = "manage contractors"
	ActionAssignContractor Action = "assign contractor to site"
	ActionPostContractor   Action = "post contractor transaction"
	ActionReceiveStock     Action = "receive stock"
	ActionConsumeStock     Action = "consume stock"
	ActionRequestTransfer  Action = "request stock transfer"
	ActionDecideTransfer   Action = "decide stock transfer"
	ActionCreatePurchase   Action = "create purchase"
	ActionVerifyPurchase   Action = "verify purchase"
	ActionCreateRental     Action = "create machinery rental"
	ActionVerifyRental     Action = "verify machinery rental"
	ActionManageEmployees  Action = "manage employees"
	ActionMarkAttendance   Action = "mark attendance"
	ActionCalculateSalary  Action = "calculate salary"
	ActionPayWages         Action = "mark attendances paid"
	ActionResolveNotice    Action = "resolve notification"
	ActionViewLedgers      Action = "view ledgers"
)

// policy lists the non-admin roles allowed per action. Admin and system are
// always allowed.
var policy = map[Action][]Role{
	ActionManageSites:      {},
	ActionReconcile:        {RoleAccountant},
	ActionPostCompany:      {RoleAccountant},
	ActionManageContractor: {RoleManager, RoleAccountant},
	ActionAssignContractor: {RoleManager},
	ActionPostContractor:   {RoleAccountant, RoleManager},
	ActionReceiveStock:     {RoleManager, RoleStorekeeper},
	ActionConsumeStock:     {RoleManager, RoleStorekeeper, RoleSupervisor},
	ActionRequestTransfer:  {RoleManager, RoleStorekeeper},
	ActionDecideTransfer:   {RoleManager},
	ActionCreatePurchase:   {RoleManager, RoleAccountant, RoleStorekeeper},
	ActionVerifyPurchase:   {RoleAccountant},
	ActionCreateRental:     {RoleManager, RoleAccountant},
	ActionVerifyRental:     {RoleAccountant},
	ActionManageEmployees:  {RoleManager},
	ActionMarkAttendance:   {RoleManager, RoleSupervisor},
	ActionCalculateSalary:  {RoleManager, RoleAccountant},
	ActionPayWages:         {RoleAccountant},
	ActionResolveNotice:    {RoleManager},
	ActionViewLedgers:      {RoleManager, RoleAccountant, RoleStorekeeper, RoleSupervisor, RoleViewer},
}

// Allowed returns the roles allowed for action besides admin.
func Allowed(action Action) []Role {
	roles := policy[action]
	out := make([]Role, len(roles))
	copy(out, roles)
	return out
}

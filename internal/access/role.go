package access

import "strings"

// Role is a named category of user with a fixed permission set
type Role string

const (
	RoleAdmin          Role = "ADMIN"      // Full access
	RoleManager        Role = "MANAGER"    // Warehouse and staff management
	RoleSupervisor     Role = "SUPERVISOR" // Shift lead
	RoleWorker         Role = "WORKER"     // Warehouse floor
	RoleQualityControl Role = "QC"
	RoleViewer         Role = "VIEWER" // Read-only
)

// Roles lists every known role in display order
var Roles = []Role{
	RoleAdmin,
	RoleManager,
	RoleSupervisor,
	RoleWorker,
	RoleQualityControl,
	RoleViewer,
}

// ParseRole accepts the wire value in any case. Unknown values return false.
func ParseRole(s string) (Role, bool) {
	r := Role(strings.ToUpper(strings.TrimSpace(s)))
	for _, known := range Roles {
		if r == known {
			return r, true
		}
	}
	return "", false
}

// Valid reports whether r is one of the known roles
func (r Role) Valid() bool {
	for _, known := range Roles {
		if r == known {
			return true
		}
	}
	return false
}

func (r Role) String() string { return string(r) }

// Permission is a single capability tag
type Permission string

const (
	ViewTasks  Permission = "VIEW_TASKS"
	CreateTask Permission = "CREATE_TASK"
	UpdateTask Permission = "UPDATE_TASK"
	DeleteTask Permission = "DELETE_TASK"

	ViewOrders  Permission = "VIEW_ORDERS"
	CreateOrder Permission = "CREATE_ORDER"
	UpdateOrder Permission = "UPDATE_ORDER"
	DeleteOrder Permission = "DELETE_ORDER"

	SendNotifications Permission = "SEND_NOTIFICATIONS"

	ManageUsers Permission = "MANAGE_USERS"

	ViewReports   Permission = "VIEW_REPORTS"
	CreateReports Permission = "CREATE_REPORTS"
)

// AllPermissions is the complete static permission set
var AllPermissions = []Permission{
	ViewTasks, CreateTask, UpdateTask, DeleteTask,
	ViewOrders, CreateOrder, UpdateOrder, DeleteOrder,
	SendNotifications,
	ManageUsers,
	ViewReports, CreateReports,
}

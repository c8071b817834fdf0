package access

// Table maps every role to its permission set. A Table is built once and
// never modified, so concurrent readers need no locking.
type Table struct {
	sets map[Role]map[Permission]struct{}
}

// NewTable builds a table from explicit grants. A role missing from grants
// has no permissions.
func NewTable(grants map[Role][]Permission) *Table {
	t := &Table{sets: make(map[Role]map[Permission]struct{}, len(grants))}
	for role, perms := range grants {
		set := make(map[Permission]struct{}, len(perms))
		for _, p := range perms {
			set[p] = struct{}{}
		}
		t.sets[role] = set
	}
	return t
}

// Allows reports whether role holds permission p. Unknown roles hold nothing.
func (t *Table) Allows(role Role, p Permission) bool {
	if t == nil {
		return false
	}
	set, ok := t.sets[role]
	if !ok {
		return false
	}
	_, ok = set[p]
	return ok
}

// Permissions returns a copy of the role's permissions in AllPermissions order
func (t *Table) Permissions(role Role) []Permission {
	out := make([]Permission, 0, len(AllPermissions))
	for _, p := range AllPermissions {
		if t.Allows(role, p) {
			out = append(out, p)
		}
	}
	return out
}

// RolePermissions is the process-wide permission table
var RolePermissions = NewTable(map[Role][]Permission{
	RoleAdmin: AllPermissions,

	RoleManager: {
		ViewTasks, CreateTask, UpdateTask, DeleteTask,
		ViewOrders, CreateOrder, UpdateOrder, DeleteOrder,
		SendNotifications,
		ViewReports, CreateReports,
	},

	RoleSupervisor: {
		ViewTasks, CreateTask, UpdateTask,
		ViewOrders, CreateOrder, UpdateOrder,
		SendNotifications,
		ViewReports,
	},

	RoleWorker: {
		ViewTasks, UpdateTask,
		ViewOrders,
	},

	RoleQualityControl: {
		ViewTasks, UpdateTask,
		ViewOrders,
		ViewReports,
	},

	RoleViewer: {
		ViewTasks,
		ViewOrders,
		ViewReports,
	},
})

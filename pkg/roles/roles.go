package roles

type Role string

const (
	Viewer     Role = "viewer"
	Technician Role = "technician"
	Admin      Role = "admin"
)

func (r Role) IsValid() bool {
	switch r {
	case Viewer, Technician, Admin:
		return true
	default:
		return false
	}
}

func (r Role) String() string {
	return string(r)
}

// Operation names one callable action of the service, used as the key of
// the permission matrix.
type Operation string

const (
	OpReadAsset         Operation = "asset:read"
	OpCreateAsset       Operation = "asset:create"
	OpUpdateAsset       Operation = "asset:update"
	OpDeleteAsset       Operation = "asset:delete"
	OpRetireAsset       Operation = "asset:retire"
	OpAssignAsset       Operation = "asset:assign"
	OpUnassignAsset     Operation = "asset:unassign"
	OpMaintainAsset     Operation = "asset:maintain"
	OpWarehouseTransfer Operation = "warehouse:transfer"
	OpReadHistory       Operation = "history:read"
	OpReadDirectory     Operation = "directory:read"
	OpManageDirectory   Operation = "directory:manage"
	OpManageUsers       Operation = "users:manage"
)

// permissions is the single source of role policy. Routes consult it
// through Allowed instead of carrying their own role lists.
var permissions = map[Operation][]Role{
	OpReadAsset:         {Viewer, Technician, Admin},
	OpCreateAsset:       {Technician, Admin},
	OpUpdateAsset:       {Technician, Admin},
	OpDeleteAsset:       {Admin},
	OpRetireAsset:       {Admin},
	OpAssignAsset:       {Technician, Admin},
	OpUnassignAsset:     {Technician, Admin},
	OpMaintainAsset:     {Technician, Admin},
	OpWarehouseTransfer: {Technician, Admin},
	OpReadHistory:       {Viewer, Technician, Admin},
	OpReadDirectory:     {Viewer, Technician, Admin},
	OpManageDirectory:   {Technician, Admin},
	OpManageUsers:       {Admin},
}

// Allowed reports whether the role may perform the operation.
func Allowed(op Operation, r Role) bool {
	for _, allowed := range permissions[op] {
		if r == allowed {
			return true
		}
	}
	return false
}

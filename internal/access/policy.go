// Package access decides what a caller identity may do. It only answers
// yes or no; rejecting the request is the caller's job.
package access

type Role string

const (
	RoleAdmin  Role = "admin"
	RoleMember Role = "member"
)

func (r Role) Valid() bool { return r == RoleAdmin || r == RoleMember }

// Identity is the resolved caller as handed over by the auth layer.
type Identity struct {
	ID   string
	Role Role
}

type Action string

const (
	ReadCatalog    Action = "catalog.read"
	ManageCatalog  Action = "catalog.manage"
	Borrow         Action = "lending.borrow"
	Return         Action = "lending.return"
	ListOwnBorrows Action = "lending.list_own"
	ViewStats      Action = "admin.stats"
	ViewReports    Action = "admin.reports"
)

var capabilities = map[Role]map[Action]bool{
	RoleAdmin: {
		ReadCatalog:    true,
		ManageCatalog:  true,
		Borrow:         true,
		Return:         true,
		ListOwnBorrows: true,
		ViewStats:      true,
		ViewReports:    true,
	},
	RoleMember: {
		ReadCatalog:    true,
		Borrow:         true,
		Return:         true,
		ListOwnBorrows: true,
	},
}

func IsAuthenticated(id Identity) bool {
	return id.ID != "" && id.Role.Valid()
}

func IsAdmin(id Identity) bool {
	return IsAuthenticated(id) && id.Role == RoleAdmin
}

// Allows reports whether id holds the capability for a.
func Allows(id Identity, a Action) bool {
	if !IsAuthenticated(id) {
		return false
	}
	return capabilities[id.Role][a]
}

package dining

// Identity is the verified caller supplied by the external authentication
// layer on every request.
type Identity struct {
	UserID       string
	Role         string
	DepartmentID string
}

const RoleAdmin = "admin"

func (i Identity) Admin() bool { return i.Role == RoleAdmin }

package workflow

type Permissions struct {
	CanMoveToStatus    []CardStatus `json:"can_move_to_status"`
	CanCreateCard      bool         `json:"can_create_card"`
	CanDeleteCard      bool         `json:"can_delete_card"`
	CanAssignReviewers bool         `json:"can_assign_reviewers"`
}

var rolePermissions = map[UserRole]Permissions{
	RoleDeveloper: {
		CanMoveToStatus:    []CardStatus{StatusBacklog, StatusInProgress, StatusReadyForQA, StatusQADone},
		CanCreateCard:      true,
		CanDeleteCard:      false,
		CanAssignReviewers: true,
	},
	RoleProductOwner: {
		CanMoveToStatus:    []CardStatus{StatusBacklog, StatusInProgress, StatusReadyForQA, StatusQADone, StatusReadyForDeploy, StatusDone},
		CanCreateCard:      true,
		CanDeleteCard:      true,
		CanAssignReviewers: true,
	},
}

func IsValidRole(r UserRole) bool {
	_, ok := rolePermissions[r]
	return ok
}

// Roles returns every known role.
func Roles() []UserRole {
	return []UserRole{RoleDeveloper, RoleProductOwner}
}

// PermissionsFor returns the capability table entry for role.
func PermissionsFor(r UserRole) (Permissions, bool) {
	p, ok := rolePermissions[r]
	if !ok {
		return Permissions{}, false
	}
	p.CanMoveToStatus = append([]CardStatus(nil), p.CanMoveToStatus...)
	return p, true
}

func (p Permissions) CanMoveTo(s CardStatus) bool {
	for _, allowed := range p.CanMoveToStatus {
		if allowed == s {
			return true
		}
	}
	return false
}

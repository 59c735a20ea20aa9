package model

const RoleAdmin = "ADMIN"

// Viewer identifies who is looking at a room timeline. Visibility of booking
// titles and owner identity depends on it.
type Viewer struct {
	ID   string `json:"id"`
	Role string `json:"role"`
}

func (v Viewer) IsAdmin() bool {
	return v.Role == RoleAdmin
}

// CanSee reports whether the viewer may see the full details of a booking
// owned by ownerID. Everyone else only learns that the slot is occupied.
func (v Viewer) CanSee(ownerID string) bool {
	return v.ID != "" && (v.ID == ownerID || v.IsAdmin())
}

// CanEdit reports whether the viewer may modify a booking owned by ownerID.
func (v Viewer) CanEdit(ownerID string) bool {
	return v.ID != "" && (v.ID == ownerID || v.IsAdmin())
}

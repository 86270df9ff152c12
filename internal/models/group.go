package models

import "time"

// Group is the full group aggregate broadcast to clients. JSON field names
// match the legacy mobile client wire format.
type Group struct {
	ID          int          `db:"id" json:"id"`
	Nombre      string       `db:"nombre" json:"nombre"`
	Descripcion string       `db:"descripcion" json:"descripcion"`
	FotoURL     string       `db:"foto_url" json:"fotoUrl,omitempty"`
	CreatedAt   time.Time    `db:"created_at" json:"-"`
	Members     []Membership `json:"usuariogrupo"`
}

// Membership joins a user to a group. A (user, group) pair appears at most
// once; the database enforces the uniqueness.
type Membership struct {
	ID      int  `db:"id" json:"id"`
	GroupID int  `db:"grupo_id" json:"-"`
	UserID  int  `db:"usuario_id" json:"-"`
	Usuario User `json:"usuario"`
}

// HasMember reports whether the aggregate's membership list contains userID.
func (g Group) HasMember(userID int) bool {
	for _, m := range g.Members {
		if m.Usuario.ID == userID {
			return true
		}
	}
	return false
}

package models

// User is the platform user as exposed on the wire. The chat subsystem never
// creates users; it only resolves them for message senders and group members.
type User struct {
	ID      int    `db:"id" json:"id"`
	Nombre  string `db:"nombre" json:"nombre"`
	FotoURL string `db:"foto_url" json:"fotoUrl,omitempty"`
}

package models

// Message types. When the type is image, Texto carries the blob URL returned
// by the upload service.
const (
	TipoTexto  = 1
	TipoImagen = 2
)

// Message is a chat message with its sender and group resolved, as broadcast
// to room members and returned by the pagination endpoint.
//
// Fecha and Hora are ISO-formatted ("2006-01-02", "15:04:05") so their
// lexicographic order is chronological; together with the id they define the
// total order used for pagination.
type Message struct {
	ID          int       `db:"id" json:"id"`
	GroupID     int       `db:"grupo_id" json:"-"`
	SenderID    int       `db:"usuario_id" json:"-"`
	Texto       string    `db:"texto" json:"texto"`
	Fecha       string    `db:"fecha" json:"fecha"`
	Hora        string    `db:"hora" json:"hora"`
	TipoMensaje int       `db:"tipo_mensaje" json:"tipoMensaje"`
	Usuario     User      `json:"usuario"`
	Grupo       *GroupRef `json:"grupo,omitempty"`
}

// GroupRef is the shallow group reference embedded in a message payload.
type GroupRef struct {
	ID     int    `json:"id"`
	Nombre string `json:"nombre"`
}

// MessagePage is the pagination response. Field names are part of the wire
// contract with the mobile client.
type MessagePage struct {
	Mensajes []Message `json:"mensajes"`
	HayMas   bool      `json:"hayMas"`
}

package repositories

import (
	"context"
	"errors"
	"time"

	"github.com/jmoiron/sqlx"

	"meetup-chat/internal/models"
)

var ErrMessageNotFound = errors.New("message not found")

// MessageRepository defines persistence for group chat messages. Messages
// are never mutated or deleted.
type MessageRepository interface {
	CreateMessage(ctx context.Context, groupID, senderID int, texto string, tipoMensaje int) (models.Message, error)
	ListNewestFirst(ctx context.Context, groupID, skip, take int) ([]models.Message, error)
	CountMessages(ctx context.Context, groupID int) (int, error)
}

// MessageRepo is a sqlx-backed implementation.
type MessageRepo struct {
	db  *sqlx.DB
	now func() time.Time
}

// NewMessageRepo constructs a MessageRepo.
func NewMessageRepo(db *sqlx.DB) *MessageRepo {
	return &MessageRepo{db: db, now: time.Now}
}

// CreateMessage persists a message, stamping fecha and hora server-side.
// The returned row carries ids only; sender and group are resolved by the
// caller before broadcast.
func (r *MessageRepo) CreateMessage(ctx context.Context, groupID, senderID int, texto string, tipoMensaje int) (models.Message, error) {
	now := r.now()
	fecha := now.Format("2006-01-02")
	hora := now.Format("15:04:05")

	var msg models.Message
	err := r.db.QueryRowxContext(ctx, `INSERT INTO mensajes (grupo_id, usuario_id, texto, fecha, hora, tipo_mensaje)
        VALUES ($1, $2, $3, $4, $5, $6)
        RETURNING id, grupo_id, usuario_id, texto, fecha, hora, tipo_mensaje`, groupID, senderID, texto, fecha, hora, tipoMensaje).
		Scan(&msg.ID, &msg.GroupID, &msg.SenderID, &msg.Texto, &msg.Fecha, &msg.Hora, &msg.TipoMensaje)
	return msg, err
}

// ListNewestFirst returns a window of messages with senders resolved,
// ordered newest first. skip counts from the newest end; the id is the
// tie-break for messages sharing (fecha, hora).
func (r *MessageRepo) ListNewestFirst(ctx context.Context, groupID, skip, take int) ([]models.Message, error) {
	rows, err := r.db.QueryxContext(ctx, `SELECT m.id, m.grupo_id, m.usuario_id, m.texto, m.fecha, m.hora, m.tipo_mensaje, u.nombre, u.foto_url
        FROM mensajes m INNER JOIN usuarios u ON u.id = m.usuario_id
        WHERE m.grupo_id=$1
        ORDER BY m.fecha DESC, m.hora DESC, m.id DESC
        LIMIT $2 OFFSET $3`, groupID, take, skip)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var msgs []models.Message
	for rows.Next() {
		var m models.Message
		if err := rows.Scan(&m.ID, &m.GroupID, &m.SenderID, &m.Texto, &m.Fecha, &m.Hora, &m.TipoMensaje, &m.Usuario.Nombre, &m.Usuario.FotoURL); err != nil {
			return nil, err
		}
		m.Usuario.ID = m.SenderID
		msgs = append(msgs, m)
	}
	return msgs, rows.Err()
}

// CountMessages returns the total number of messages in the group.
func (r *MessageRepo) CountMessages(ctx context.Context, groupID int) (int, error) {
	var count int
	err := r.db.GetContext(ctx, &count, `SELECT COUNT(*) FROM mensajes WHERE grupo_id=$1`, groupID)
	return count, err
}

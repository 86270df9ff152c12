package repositories

import (
	"context"
	"database/sql"
	"errors"
	"sort"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"meetup-chat/internal/models"
)

var ErrGroupNotFound = errors.New("group not found")

// GroupRepository abstracts group and membership persistence.
type GroupRepository interface {
	CreateGroup(ctx context.Context, nombre, descripcion string, memberIDs []int) (models.Group, error)
	GetGroup(ctx context.Context, groupID int) (models.Group, error)
	GetGroupAggregate(ctx context.Context, groupID int) (models.Group, error)
	ListGroupsForUser(ctx context.Context, userID int) ([]models.Group, error)
	UpdateName(ctx context.Context, groupID int, nombre string) error
	UpdateDescription(ctx context.Context, groupID int, descripcion string) error
	UpdatePhoto(ctx context.Context, groupID int, fotoURL string) error
	AddMember(ctx context.Context, groupID, userID int) error
	RemoveMember(ctx context.Context, groupID, userID int) error
	IsMember(ctx context.Context, groupID, userID int) (bool, error)
}

// GroupRepo is a sqlx implementation of GroupRepository.
type GroupRepo struct {
	db *sqlx.DB
}

// NewGroupRepo constructs a GroupRepo.
func NewGroupRepo(db *sqlx.DB) *GroupRepo {
	return &GroupRepo{db: db}
}

// CreateGroup creates a group and its memberships atomically. memberIDs must
// already include the creator; duplicates are collapsed.
func (r *GroupRepo) CreateGroup(ctx context.Context, nombre, descripcion string, memberIDs []int) (models.Group, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return models.Group{}, err
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	var group models.Group
	if err = tx.QueryRowxContext(ctx, `INSERT INTO grupos (nombre, descripcion) VALUES ($1, $2) RETURNING id, nombre, descripcion, foto_url, created_at`, nombre, descripcion).
		Scan(&group.ID, &group.Nombre, &group.Descripcion, &group.FotoURL, &group.CreatedAt); err != nil {
		return models.Group{}, err
	}

	memberSet := map[int]struct{}{}
	for _, id := range memberIDs {
		memberSet[id] = struct{}{}
	}
	ids := make([]int, 0, len(memberSet))
	for id := range memberSet {
		ids = append(ids, id)
	}
	sort.Ints(ids)

	for _, id := range ids {
		if _, err = tx.ExecContext(ctx, `INSERT INTO usuario_grupo (grupo_id, usuario_id) VALUES ($1, $2)`, group.ID, id); err != nil {
			return models.Group{}, err
		}
	}

	if err = tx.Commit(); err != nil {
		return models.Group{}, err
	}
	return group, nil
}

// GetGroup fetches a bare group row without its members.
func (r *GroupRepo) GetGroup(ctx context.Context, groupID int) (models.Group, error) {
	var group models.Group
	err := r.db.GetContext(ctx, &group, `SELECT id, nombre, descripcion, foto_url, created_at FROM grupos WHERE id=$1`, groupID)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Group{}, ErrGroupNotFound
	}
	return group, err
}

// GetGroupAggregate fetches a group with its memberships and each member's
// user eagerly loaded.
func (r *GroupRepo) GetGroupAggregate(ctx context.Context, groupID int) (models.Group, error) {
	group, err := r.GetGroup(ctx, groupID)
	if err != nil {
		return models.Group{}, err
	}

	members, err := r.loadMembers(ctx, []int{groupID})
	if err != nil {
		return models.Group{}, err
	}
	group.Members = members[groupID]
	if group.Members == nil {
		group.Members = []models.Membership{}
	}
	return group, nil
}

// ListGroupsForUser returns the full aggregates of every group the user
// belongs to, newest first.
func (r *GroupRepo) ListGroupsForUser(ctx context.Context, userID int) ([]models.Group, error) {
	var groups []models.Group
	err := r.db.SelectContext(ctx, &groups, `SELECT g.id, g.nombre, g.descripcion, g.foto_url, g.created_at
        FROM grupos g INNER JOIN usuario_grupo ug ON ug.grupo_id = g.id
        WHERE ug.usuario_id=$1 ORDER BY g.created_at DESC`, userID)
	if err != nil {
		return nil, err
	}
	if len(groups) == 0 {
		return []models.Group{}, nil
	}

	ids := make([]int, 0, len(groups))
	for _, g := range groups {
		ids = append(ids, g.ID)
	}
	members, err := r.loadMembers(ctx, ids)
	if err != nil {
		return nil, err
	}
	for i := range groups {
		groups[i].Members = members[groups[i].ID]
		if groups[i].Members == nil {
			groups[i].Members = []models.Membership{}
		}
	}
	return groups, nil
}

func (r *GroupRepo) loadMembers(ctx context.Context, groupIDs []int) (map[int][]models.Membership, error) {
	rows, err := r.db.QueryxContext(ctx, `SELECT ug.id, ug.grupo_id, ug.usuario_id, u.nombre, u.foto_url
        FROM usuario_grupo ug INNER JOIN usuarios u ON u.id = ug.usuario_id
        WHERE ug.grupo_id = ANY($1) ORDER BY ug.id ASC`, pq.Array(groupIDs))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := map[int][]models.Membership{}
	for rows.Next() {
		var m models.Membership
		if err := rows.Scan(&m.ID, &m.GroupID, &m.UserID, &m.Usuario.Nombre, &m.Usuario.FotoURL); err != nil {
			return nil, err
		}
		m.Usuario.ID = m.UserID
		result[m.GroupID] = append(result[m.GroupID], m)
	}
	return result, rows.Err()
}

// UpdateName renames the group.
func (r *GroupRepo) UpdateName(ctx context.Context, groupID int, nombre string) error {
	return r.updateField(ctx, `UPDATE grupos SET nombre=$2 WHERE id=$1`, groupID, nombre)
}

// UpdateDescription replaces the group description.
func (r *GroupRepo) UpdateDescription(ctx context.Context, groupID int, descripcion string) error {
	return r.updateField(ctx, `UPDATE grupos SET descripcion=$2 WHERE id=$1`, groupID, descripcion)
}

// UpdatePhoto replaces the group photo URL.
func (r *GroupRepo) UpdatePhoto(ctx context.Context, groupID int, fotoURL string) error {
	return r.updateField(ctx, `UPDATE grupos SET foto_url=$2 WHERE id=$1`, groupID, fotoURL)
}

func (r *GroupRepo) updateField(ctx context.Context, query string, groupID int, value string) error {
	res, err := r.db.ExecContext(ctx, query, groupID, value)
	if err != nil {
		return err
	}
	count, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if count == 0 {
		return ErrGroupNotFound
	}
	return nil
}

// AddMember inserts a membership. Adding an existing member is a no-op; the
// unique constraint keeps the pair single.
func (r *GroupRepo) AddMember(ctx context.Context, groupID, userID int) error {
	_, err := r.db.ExecContext(ctx, `INSERT INTO usuario_grupo (grupo_id, usuario_id) VALUES ($1, $2)
        ON CONFLICT (grupo_id, usuario_id) DO NOTHING`, groupID, userID)
	return err
}

// RemoveMember deletes the membership located by the (user, group) pair.
// A missing row is a silent no-op.
func (r *GroupRepo) RemoveMember(ctx context.Context, groupID, userID int) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM usuario_grupo WHERE grupo_id=$1 AND usuario_id=$2`, groupID, userID)
	return err
}

// IsMember checks membership.
func (r *GroupRepo) IsMember(ctx context.Context, groupID, userID int) (bool, error) {
	var exists bool
	err := r.db.GetContext(ctx, &exists, `SELECT EXISTS(SELECT 1 FROM usuario_grupo WHERE grupo_id=$1 AND usuario_id=$2)`, groupID, userID)
	return exists, err
}

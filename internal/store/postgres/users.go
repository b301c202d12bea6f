package postgres

import (
	"context"
	"database/sql"

	"github.com/alfredjeanlab/backoffice/internal/model"
)

const userColumns = `id, name, email, email_verified, image, created_at, updated_at`

var userSorts = map[string]bool{"name": true, "email": true, "created_at": true, "updated_at": true}

func scanUser(r row) (*model.User, error) {
	var (
		u     model.User
		image sql.NullString
	)
	if err := r.Scan(&u.ID, &u.Name, &u.Email, &u.EmailVerified, &image, &u.CreatedAt, &u.UpdatedAt); err != nil {
		return nil, err
	}
	u.Image = image.String
	return &u, nil
}

func (q queries) CreateUser(ctx context.Context, u *model.User) error {
	err := q.db.QueryRowContext(ctx, `
		INSERT INTO users (id, name, email, email_verified, image)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at, updated_at`,
		u.ID, u.Name, u.Email, u.EmailVerified, nullString(u.Image),
	).Scan(&u.CreatedAt, &u.UpdatedAt)
	return conflictFrom(err)
}

func (q queries) GetUser(ctx context.Context, id string) (*model.User, error) {
	return scanUser(q.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id))
}

func (q queries) GetUserByEmail(ctx context.Context, email string) (*model.User, error) {
	return scanUser(q.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE email = $1`, email))
}

func (q queries) ListUsers(ctx context.Context, uq model.UserQuery) ([]*model.User, int, error) {
	var w where
	w.search(uq.Search, "name", "email")
	if uq.EmailVerified != nil {
		w.add("email_verified = " + w.arg(*uq.EmailVerified))
	}
	return list(ctx, q.db, userColumns, "users", &w, orderClause(uq.Page, userSorts), uq.Page, scanUser)
}

func (q queries) UpdateUser(ctx context.Context, u *model.User) error {
	err := q.db.QueryRowContext(ctx, `
		UPDATE users
		SET name = $2, email = $3, email_verified = $4, image = $5, updated_at = NOW()
		WHERE id = $1
		RETURNING updated_at`,
		u.ID, u.Name, u.Email, u.EmailVerified, nullString(u.Image),
	).Scan(&u.UpdatedAt)
	return conflictFrom(err)
}

func (q queries) DeleteUser(ctx context.Context, id string) error {
	return q.execOne(ctx, `DELETE FROM users WHERE id = $1`, id)
}

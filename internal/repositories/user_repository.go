package repositories

import (
	"database/sql"
	"errors"
	"log"

	"agencycrm/internal/models"
)

type UserRepository struct {
	db *sql.DB
}

func NewUserRepository(db *sql.DB) *UserRepository {
	if db == nil {
		log.Fatalf("received nil database connection")
	}
	return &UserRepository{db: db}
}

const userColumns = `id, name, email, password_hash, role, refresh_token, refresh_expires_at, created_at`

func scanUser(row interface{ Scan(...any) error }) (*models.User, error) {
	u := &models.User{}
	err := row.Scan(&u.ID, &u.Name, &u.Email, &u.PasswordHash, &u.Role,
		&u.RefreshToken, &u.RefreshExpiresAt, &u.CreatedAt)
	if err != nil {
		return nil, err
	}
	return u, nil
}

func (r *UserRepository) Create(user *models.User) error {
	const query = `
		INSERT INTO users (id, name, email, password_hash, role, created_at)
		VALUES ($1,$2,$3,$4,$5,$6)
	`
	_, err := r.db.Exec(query, user.ID, user.Name, user.Email,
		user.PasswordHash, user.Role, user.CreatedAt)
	return err
}

func (r *UserRepository) GetByID(id string) (*models.User, error) {
	const query = `SELECT ` + userColumns + ` FROM users WHERE id=$1`
	u, err := scanUser(r.db.QueryRow(query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return u, err
}

func (r *UserRepository) GetByEmail(email string) (*models.User, error) {
	const query = `SELECT ` + userColumns + ` FROM users WHERE lower(email)=lower($1)`
	u, err := scanUser(r.db.QueryRow(query, email))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return u, err
}

func (r *UserRepository) List(limit, offset int) ([]*models.User, error) {
	const query = `
		SELECT ` + userColumns + ` FROM users
		ORDER BY created_at
		LIMIT $1 OFFSET $2
	`
	rows, err := r.db.Query(query, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*models.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

func (r *UserRepository) UpdateRefreshToken(userID, token string, expiresAt sql.NullTime) error {
	const query = `UPDATE users SET refresh_token=$1, refresh_expires_at=$2 WHERE id=$3`
	_, err := r.db.Exec(query, token, expiresAt, userID)
	return err
}

func (r *UserRepository) GetByRefreshToken(token string) (*models.User, error) {
	const query = `SELECT ` + userColumns + ` FROM users WHERE refresh_token=$1`
	u, err := scanUser(r.db.QueryRow(query, token))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return u, err
}

func (r *UserRepository) Delete(id string) error {
	const query = `DELETE FROM users WHERE id=$1`
	_, err := r.db.Exec(query, id)
	return err
}

package database

import (
	"context"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/animechat/server/internal/models"
)

// UserStore owns the users table.
type UserStore struct {
	db DBTX
}

func NewUserStore(db DBTX) *UserStore {
	return &UserStore{db: db}
}

var userMsgs = constraintMessages{
	notFound: "user not found",
	conflict: "email already registered",
}

// Create inserts u. u.Password must already be hashed. On success u.ID and
// u.CreatedAt are filled in.
func (s *UserStore) Create(ctx context.Context, u *models.User) error {
	if u.Gender == "" {
		u.Gender = "unspecified"
	}
	q := `INSERT INTO users (name, email, password, gender, profile)
	      VALUES ($1, $2, $3, $4, $5)
	      RETURNING id, created_at`
	err := s.db.QueryRow(ctx, q, u.Name, u.Email, u.Password, u.Gender, u.Profile).
		Scan(&u.ID, &u.CreatedAt)
	return classify(err, "insert user", userMsgs)
}

const userColumns = `id, name, email, password, gender, profile, created_at`

func scanUser(row pgx.Row) (*models.User, error) {
	var u models.User
	err := row.Scan(&u.ID, &u.Name, &u.Email, &u.Password, &u.Gender, &u.Profile, &u.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (s *UserStore) GetByID(ctx context.Context, id int64) (*models.User, error) {
	u, err := scanUser(s.db.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id))
	if err != nil {
		return nil, classify(err, "select user by id", userMsgs)
	}
	return u, nil
}

func (s *UserStore) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	u, err := scanUser(s.db.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE email = $1`, email))
	if err != nil {
		return nil, classify(err, "select user by email", userMsgs)
	}
	return u, nil
}

// ListExcept returns every user but excludeID, oldest first.
func (s *UserStore) ListExcept(ctx context.Context, excludeID int64) ([]models.PublicUser, error) {
	q := `SELECT id, name, email, profile, created_at
	      FROM users
	      WHERE id <> $1
	      ORDER BY id`
	return s.queryPublic(ctx, "list users", q, excludeID)
}

// SearchByName does a case-insensitive substring match on name, skipping excludeID.
func (s *UserStore) SearchByName(ctx context.Context, name string, excludeID int64) ([]models.PublicUser, error) {
	q := `SELECT id, name, email, profile, created_at
	      FROM users
	      WHERE name ILIKE '%' || $1 || '%' ESCAPE '\' AND id <> $2
	      ORDER BY name, id`
	return s.queryPublic(ctx, "search users", q, escapeLike(name), excludeID)
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}

func (s *UserStore) queryPublic(ctx context.Context, op, q string, args ...any) ([]models.PublicUser, error) {
	rows, err := s.db.Query(ctx, q, args...)
	if err != nil {
		return nil, classify(err, op, constraintMessages{})
	}
	defer rows.Close()

	users := []models.PublicUser{}
	for rows.Next() {
		var u models.PublicUser
		if err := rows.Scan(&u.ID, &u.Name, &u.Email, &u.Profile, &u.CreatedAt); err != nil {
			return nil, classify(err, op, constraintMessages{})
		}
		users = append(users, u)
	}
	return users, classify(rows.Err(), op, constraintMessages{})
}

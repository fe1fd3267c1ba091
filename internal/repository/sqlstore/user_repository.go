package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"pricepilot/internal/domain"
	"pricepilot/internal/repository"
)

type UserRepository struct {
	db      *sql.DB
	dialect Dialect
}

func NewUserRepository(db *sql.DB, dialect Dialect) *UserRepository {
	return &UserRepository{db: db, dialect: dialect}
}

var _ repository.UserRepository = (*UserRepository)(nil)

func (r *UserRepository) Init(ctx context.Context) error {
	for _, stmt := range r.dialect.schema {
		if _, err := r.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("ensure user schema: %w", err)
		}
	}
	return nil
}

func (r *UserRepository) Create(ctx context.Context, user *domain.User) error {
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now().UTC()
	}
	user.UpdatedAt = user.CreatedAt

	if err := user.Validate(); err != nil {
		return err
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin create user: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, r.dialect.Rebind(`
INSERT INTO users (id, name, email, password_hash, profile_image, created_at, updated_at)
VALUES (?, ?, ?, ?, ?, ?, ?)`),
		user.ID,
		user.Name,
		user.Email,
		user.PasswordHash,
		user.ProfileImage,
		user.CreatedAt,
		user.UpdatedAt,
	)
	if err != nil {
		if r.dialect.isUniqueViolation(err) {
			return fmt.Errorf("insert user %s: %w", user.Email, domain.ErrDuplicateEmail)
		}
		return fmt.Errorf("insert user: %w", err)
	}

	for i := range user.SavedProducts {
		p := &user.SavedProducts[i]
		if p.DateAdded.IsZero() {
			p.DateAdded = user.CreatedAt
		}
		if _, err := tx.ExecContext(ctx, r.dialect.Rebind(`
INSERT INTO saved_products (user_id, product_id, source, date_added)
VALUES (?, ?, ?, ?)
ON CONFLICT (user_id, product_id) DO NOTHING`),
			user.ID, p.ProductID, string(p.Source), p.DateAdded,
		); err != nil {
			return fmt.Errorf("insert saved product: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit create user: %w", err)
	}
	return nil
}

func (r *UserRepository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	row := r.db.QueryRowContext(ctx, r.dialect.Rebind(`
SELECT id, name, email, password_hash, profile_image, created_at, updated_at
FROM users
WHERE id = ?`),
		id,
	)
	return r.loadUser(ctx, row)
}

func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	row := r.db.QueryRowContext(ctx, r.dialect.Rebind(`
SELECT id, name, email, password_hash, profile_image, created_at, updated_at
FROM users
WHERE email = ?`),
		domain.NormalizeEmail(email),
	)
	return r.loadUser(ctx, row)
}

func (r *UserRepository) UpdatePasswordHash(ctx context.Context, id, passwordHash string) error {
	return r.updateField(ctx, "password_hash", id, passwordHash)
}

func (r *UserRepository) UpdateProfileImage(ctx context.Context, id, image string) error {
	return r.updateField(ctx, "profile_image", id, image)
}

// updateField only ever receives column names from this file.
func (r *UserRepository) updateField(ctx context.Context, column, id, value string) error {
	res, err := r.db.ExecContext(ctx, r.dialect.Rebind(`
UPDATE users SET `+column+` = ?, updated_at = ?
WHERE id = ?`),
		value, time.Now().UTC(), id,
	)
	if err != nil {
		return fmt.Errorf("update user %s: %w", column, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update user %s rows affected: %w", column, err)
	}
	if n == 0 {
		return fmt.Errorf("update user %s: %w", id, domain.ErrUserNotFound)
	}
	return nil
}

func (r *UserRepository) AddSavedProduct(ctx context.Context, userID string, product domain.SavedProduct) (bool, error) {
	if product.DateAdded.IsZero() {
		product.DateAdded = time.Now().UTC()
	}

	res, err := r.db.ExecContext(ctx, r.dialect.Rebind(`
INSERT INTO saved_products (user_id, product_id, source, date_added)
VALUES (?, ?, ?, ?)
ON CONFLICT (user_id, product_id) DO NOTHING`),
		userID, product.ProductID, string(product.Source), product.DateAdded,
	)
	if err != nil {
		if r.dialect.isForeignKeyViolation(err) {
			return false, fmt.Errorf("add saved product for %s: %w", userID, domain.ErrUserNotFound)
		}
		return false, fmt.Errorf("add saved product: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("add saved product rows affected: %w", err)
	}
	return n > 0, nil
}

func (r *UserRepository) RemoveSavedProduct(ctx context.Context, userID, productID string) (bool, error) {
	res, err := r.db.ExecContext(ctx, r.dialect.Rebind(`
DELETE FROM saved_products
WHERE user_id = ? AND product_id = ?`),
		userID, productID,
	)
	if err != nil {
		return false, fmt.Errorf("remove saved product: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("remove saved product rows affected: %w", err)
	}
	return n > 0, nil
}

func (r *UserRepository) ListSavedProducts(ctx context.Context, userID string) ([]domain.SavedProduct, error) {
	rows, err := r.db.QueryContext(ctx, r.dialect.Rebind(`
SELECT product_id, source, date_added
FROM saved_products
WHERE user_id = ?
ORDER BY id`),
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("list saved products: %w", err)
	}
	defer rows.Close()

	products := []domain.SavedProduct{}
	for rows.Next() {
		var (
			p      domain.SavedProduct
			source string
		)
		if err := rows.Scan(&p.ProductID, &source, &p.DateAdded); err != nil {
			return nil, fmt.Errorf("scan saved product: %w", err)
		}
		p.Source = domain.ProductSource(source)
		products = append(products, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate saved products: %w", err)
	}
	return products, nil
}

func (r *UserRepository) loadUser(ctx context.Context, row *sql.Row) (*domain.User, error) {
	user, err := scanUser(row)
	if err != nil {
		return nil, err
	}
	user.SavedProducts, err = r.ListSavedProducts(ctx, user.ID)
	if err != nil {
		return nil, err
	}
	return user, nil
}

func scanUser(row interface {
	Scan(dest ...any) error
}) (*domain.User, error) {
	var user domain.User
	if err := row.Scan(
		&user.ID,
		&user.Name,
		&user.Email,
		&user.PasswordHash,
		&user.ProfileImage,
		&user.CreatedAt,
		&user.UpdatedAt,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrUserNotFound
		}
		return nil, fmt.Errorf("scan user: %w", err)
	}
	return &user, nil
}

package postgres

import (
	"context"
	"fmt"
	"strconv"

	"github.com/jmoiron/sqlx"

	"github.com/jwalitptl/carelink-api/internal/model"
	"github.com/jwalitptl/carelink-api/internal/repository"
)

const userColumns = `id, first_name, last_name, email_address, roles, pending, created_at`

type userRepository struct {
	BaseRepository
}

func NewUserRepository(base BaseRepository) repository.UserRepository {
	return &userRepository{base}
}

func (r *userRepository) Create(ctx context.Context, user *model.User) error {
	return mapError(insertUser(ctx, r.db, user))
}

func (r *userRepository) Provision(ctx context.Context, user *model.User) error {
	err := r.WithTx(ctx, func(tx *sqlx.Tx) error {
		if err := insertUser(ctx, tx, user); err != nil {
			return err
		}
		if user.LastName != "" {
			return nil
		}
		lastName := strconv.FormatInt(user.ID, 10)
		if _, err := tx.ExecContext(ctx, `UPDATE users SET last_name = $1 WHERE id = $2`, lastName, user.ID); err != nil {
			return err
		}
		user.LastName = lastName
		return nil
	})
	return mapError(err)
}

func insertUser(ctx context.Context, q sqlx.QueryerContext, user *model.User) error {
	query := `
		INSERT INTO users (first_name, last_name, email_address, roles, pending)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at
	`
	return q.QueryRowxContext(ctx, query,
		user.FirstName,
		user.LastName,
		user.EmailAddress,
		user.Roles,
		user.Pending,
	).Scan(&user.ID, &user.CreatedAt)
}

func (r *userRepository) Get(ctx context.Context, id int64) (*model.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`

	var user model.User
	if err := r.db.GetContext(ctx, &user, query, id); err != nil {
		return nil, mapError(err)
	}
	return &user, nil
}

func (r *userRepository) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE lower(email_address) = lower($1)`

	var user model.User
	if err := r.db.GetContext(ctx, &user, query, email); err != nil {
		return nil, mapError(err)
	}
	return &user, nil
}

func (r *userRepository) ListByRole(ctx context.Context, role model.Role) ([]*model.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE $1 = ANY(roles) ORDER BY id`

	users := []*model.User{}
	if err := r.db.SelectContext(ctx, &users, query, string(role)); err != nil {
		return nil, fmt.Errorf("failed to list users with role %s: %w", role, err)
	}
	return users, nil
}

func (r *userRepository) Update(ctx context.Context, user *model.User) error {
	query := `
		UPDATE users SET
			first_name = $1,
			last_name = $2,
			email_address = $3
		WHERE id = $4
	`
	res, err := r.db.ExecContext(ctx, query,
		user.FirstName,
		user.LastName,
		user.EmailAddress,
		user.ID,
	)
	if err != nil {
		return mapError(err)
	}
	return expectRows(res)
}

func (r *userRepository) SetRoles(ctx context.Context, id int64, roles model.RoleSet, pending bool) error {
	res, err := r.db.ExecContext(ctx, `UPDATE users SET roles = $1, pending = $2 WHERE id = $3`, roles, pending, id)
	if err != nil {
		return err
	}
	return expectRows(res)
}

func (r *userRepository) Delete(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		return err
	}
	return expectRows(res)
}

func (r *userRepository) CreatePatient(ctx context.Context, patient *model.User, physicianID int64) (*model.Chat, error) {
	chat := &model.Chat{PhysicianID: physicianID}

	err := r.WithTx(ctx, func(tx *sqlx.Tx) error {
		if patient.ID == 0 {
			if err := insertUser(ctx, tx, patient); err != nil {
				return err
			}
		} else {
			// Existing user taking on the patient role.
			if _, err := tx.ExecContext(ctx, `UPDATE users SET roles = $1 WHERE id = $2`, patient.Roles, patient.ID); err != nil {
				return err
			}
		}

		if _, err := tx.ExecContext(ctx,
			`INSERT INTO patient_physicians (patient_id, physician_id) VALUES ($1, $2)`,
			patient.ID, physicianID,
		); err != nil {
			return err
		}

		chat.PatientID = patient.ID
		return tx.QueryRowxContext(ctx,
			`INSERT INTO chats (patient_id, physician_id) VALUES ($1, $2) RETURNING id`,
			patient.ID, physicianID,
		).Scan(&chat.ID)
	})
	if err != nil {
		return nil, mapError(err)
	}
	return chat, nil
}

func (r *userRepository) ReassignPhysician(ctx context.Context, patientID, physicianID int64) error {
	return r.WithTx(ctx, func(tx *sqlx.Tx) error {
		res, err := tx.ExecContext(ctx,
			`UPDATE patient_physicians SET physician_id = $1 WHERE patient_id = $2`,
			physicianID, patientID,
		)
		if err != nil {
			return err
		}
		if err := expectRows(res); err != nil {
			return err
		}
		_, err = tx.ExecContext(ctx,
			`UPDATE chats SET physician_id = $1 WHERE patient_id = $2`,
			physicianID, patientID,
		)
		return err
	})
}

func (r *userRepository) GetPhysicianOf(ctx context.Context, patientID int64) (*model.User, error) {
	query := `
		SELECT u.id, u.first_name, u.last_name, u.email_address, u.roles, u.pending, u.created_at
		FROM users u
		JOIN patient_physicians pp ON pp.physician_id = u.id
		WHERE pp.patient_id = $1
	`
	var user model.User
	if err := r.db.GetContext(ctx, &user, query, patientID); err != nil {
		return nil, mapError(err)
	}
	return &user, nil
}

func (r *userRepository) ListPatientsOf(ctx context.Context, physicianID int64) ([]*model.User, error) {
	query := `
		SELECT u.id, u.first_name, u.last_name, u.email_address, u.roles, u.pending, u.created_at
		FROM users u
		JOIN patient_physicians pp ON pp.patient_id = u.id
		WHERE pp.physician_id = $1
		ORDER BY u.id
	`
	users := []*model.User{}
	if err := r.db.SelectContext(ctx, &users, query, physicianID); err != nil {
		return nil, fmt.Errorf("failed to list patients of physician %d: %w", physicianID, err)
	}
	return users, nil
}

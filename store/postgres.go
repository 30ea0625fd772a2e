package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/Almirante-Ming/Rose/booking"
	"github.com/Almirante-Ming/Rose/directory"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const (
	uniqueViolation     = "23505"
	foreignKeyViolation = "23503"
)

const scheduleColumns = `
	s.id, to_char(s.dt_init, 'YYYY-MM-DD'), to_char(s.tm_init, 'HH24:MI'),
	s.trainer_id, COALESCE(t.name, ''), s.customer_id, COALESCE(c.name, ''),
	s.machine_id, COALESCE(m.name, ''), s.message, s.c_status
	FROM schedules s
	LEFT JOIN persons t ON t.id = s.trainer_id
	LEFT JOIN persons c ON c.id = s.customer_id
	LEFT JOIN machines m ON m.id = s.machine_id`

const personColumns = `
	id, name, email, phone, cpf, COALESCE(to_char(dt_birth, 'YYYY-MM-DD'), ''), p_type,
	to_char(dt_create AT TIME ZONE 'UTC', 'YYYY-MM-DD"T"HH24:MI:SS')`

type Postgres struct{ pool *pgxpool.Pool }

func NewPostgres(pool *pgxpool.Pool) *Postgres {
	return &Postgres{pool: pool}
}

func (r *Postgres) FindAccount(ctx context.Context, login string) (Account, error) {
	sql := `SELECT` + personColumns + `, password_hash
		FROM persons
		WHERE lower(email) = lower($1) OR (phone <> '' AND phone = $1)
		ORDER BY id
		LIMIT 1;`

	var account Account
	row := r.pool.QueryRow(ctx, sql, login)
	err := scanPerson(row, &account.Person, &account.PasswordHash)

	if errors.Is(err, pgx.ErrNoRows) {
		return Account{}, ErrNotFound
	}

	if err != nil {
		return Account{}, fmt.Errorf("failed to fetch account '%v': %w", login, err)
	}

	return account, nil
}

func (r *Postgres) ListSchedules(ctx context.Context, personID int64, rg Range) ([]booking.Booking, error) {
	sql := `SELECT` + scheduleColumns + `
		WHERE (s.trainer_id = $1 OR s.customer_id = $1)
		AND ($2 = '' OR s.dt_init >= $2::text::date)
		AND ($3 = '' OR s.dt_init <= $3::text::date)
		ORDER BY s.id;`

	rows, err := r.pool.Query(ctx, sql, personID, rg.Start, rg.End)

	if err != nil {
		return nil, fmt.Errorf("failed to fetch schedules for person %d: %w", personID, err)
	}

	defer rows.Close()

	schedules := []booking.Booking{}

	for rows.Next() {
		var b booking.Booking

		if err := scanSchedule(rows, &b); err != nil {
			return nil, fmt.Errorf("error scanning schedule row: %w", err)
		}

		schedules = append(schedules, b)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating schedule rows: %w", err)
	}

	return schedules, nil
}

func (r *Postgres) GetSchedule(ctx context.Context, id int64) (booking.Booking, error) {
	sql := `SELECT` + scheduleColumns + ` WHERE s.id = $1;`

	var b booking.Booking
	err := scanSchedule(r.pool.QueryRow(ctx, sql, id), &b)

	if errors.Is(err, pgx.ErrNoRows) {
		return booking.Booking{}, ErrNotFound
	}

	if err != nil {
		return booking.Booking{}, fmt.Errorf("failed to fetch schedule with id %d: %w", id, err)
	}

	return b, nil
}

func (r *Postgres) InsertSchedule(ctx context.Context, b booking.Booking) (booking.Booking, error) {
	sql := `
		INSERT INTO schedules(dt_init, tm_init, trainer_id, customer_id, machine_id, message, c_status)
		VALUES ($1::text::date, $2::text::time, $3, $4, $5, $6, $7)
		RETURNING id;`

	b = normalizeStatus(b)

	err := r.pool.QueryRow(ctx, sql,
		b.Date,
		b.Time,
		b.TrainerID,
		b.CustomerID,
		b.MachineID,
		b.Message,
		b.Status,
	).Scan(&b.ID)

	if err != nil {
		return booking.Booking{}, fmt.Errorf("failed to insert schedule: %w", constraintError(err, ErrInvalidReference))
	}

	return r.GetSchedule(ctx, b.ID)
}

func (r *Postgres) UpdateSchedule(ctx context.Context, b booking.Booking) (booking.Booking, error) {
	sql := `
		UPDATE schedules
		SET
			dt_init=$1::text::date,
			tm_init=$2::text::time,
			trainer_id=$3,
			customer_id=$4,
			machine_id=$5,
			message=$6,
			c_status=$7
		WHERE id=$8;`

	b = normalizeStatus(b)

	tag, err := r.pool.Exec(ctx, sql,
		b.Date,
		b.Time,
		b.TrainerID,
		b.CustomerID,
		b.MachineID,
		b.Message,
		b.Status,
		b.ID,
	)

	if err != nil {
		return booking.Booking{}, fmt.Errorf("failed to update schedule %d: %w", b.ID, constraintError(err, ErrInvalidReference))
	}

	if tag.RowsAffected() == 0 {
		return booking.Booking{}, ErrNotFound
	}

	return r.GetSchedule(ctx, b.ID)
}

func (r *Postgres) DeleteSchedule(ctx context.Context, id int64) error {
	return r.delete(ctx, `DELETE FROM schedules WHERE id=$1;`, "schedule", id)
}

func (r *Postgres) ListPersons(ctx context.Context) ([]directory.Person, error) {
	rows, err := r.pool.Query(ctx, `SELECT`+personColumns+` FROM persons ORDER BY id;`)

	if err != nil {
		return nil, fmt.Errorf("failed to fetch persons: %w", err)
	}

	defer rows.Close()

	persons := []directory.Person{}

	for rows.Next() {
		var p directory.Person

		if err := scanPerson(rows, &p); err != nil {
			return nil, fmt.Errorf("error scanning person row: %w", err)
		}

		persons = append(persons, p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating person rows: %w", err)
	}

	return persons, nil
}

func (r *Postgres) GetPerson(ctx context.Context, id int64) (directory.Person, error) {
	var p directory.Person
	err := scanPerson(r.pool.QueryRow(ctx, `SELECT`+personColumns+` FROM persons WHERE id=$1;`, id), &p)

	if errors.Is(err, pgx.ErrNoRows) {
		return directory.Person{}, ErrNotFound
	}

	if err != nil {
		return directory.Person{}, fmt.Errorf("failed to fetch person with id %d: %w", id, err)
	}

	return p, nil
}

func (r *Postgres) InsertPerson(ctx context.Context, p directory.Person, passwordHash string) (directory.Person, error) {
	sql := `
		INSERT INTO persons(name, email, phone, cpf, dt_birth, p_type, password_hash)
		VALUES ($1, $2, $3, $4, NULLIF($5, '')::date, $6, $7)
		RETURNING` + personColumns + `;`

	var created directory.Person
	err := scanPerson(r.pool.QueryRow(ctx, sql, p.Name, p.Email, p.Phone, p.CPF, p.BirthDate, p.Type, passwordHash), &created)

	if err != nil {
		return directory.Person{}, fmt.Errorf("failed to insert person: %w", constraintError(err, ErrConflict))
	}

	return created, nil
}

func (r *Postgres) UpdatePerson(ctx context.Context, p directory.Person, passwordHash string) (directory.Person, error) {
	sql := `
		UPDATE persons
		SET
			name=$1,
			email=$2,
			phone=$3,
			cpf=$4,
			dt_birth=NULLIF($5, '')::date,
			p_type=$6,
			password_hash=CASE WHEN $7 = '' THEN password_hash ELSE $7 END
		WHERE id=$8
		RETURNING` + personColumns + `;`

	var updated directory.Person
	err := scanPerson(r.pool.QueryRow(ctx, sql, p.Name, p.Email, p.Phone, p.CPF, p.BirthDate, p.Type, passwordHash, p.ID), &updated)

	if errors.Is(err, pgx.ErrNoRows) {
		return directory.Person{}, ErrNotFound
	}

	if err != nil {
		return directory.Person{}, fmt.Errorf("failed to update person %d: %w", p.ID, constraintError(err, ErrConflict))
	}

	return updated, nil
}

func (r *Postgres) DeletePerson(ctx context.Context, id int64) error {
	return r.delete(ctx, `DELETE FROM persons WHERE id=$1;`, "person", id)
}

func (r *Postgres) ListMachines(ctx context.Context) ([]directory.Machine, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, name, description, m_state FROM machines ORDER BY id;`)

	if err != nil {
		return nil, fmt.Errorf("failed to fetch machines: %w", err)
	}

	defer rows.Close()

	machines := []directory.Machine{}

	for rows.Next() {
		var m directory.Machine

		if err := rows.Scan(&m.ID, &m.Name, &m.Description, &m.State); err != nil {
			return nil, fmt.Errorf("error scanning machine row: %w", err)
		}

		machines = append(machines, m)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating machine rows: %w", err)
	}

	return machines, nil
}

func (r *Postgres) GetMachine(ctx context.Context, id int64) (directory.Machine, error) {
	var m directory.Machine
	err := r.pool.QueryRow(ctx, `SELECT id, name, description, m_state FROM machines WHERE id=$1;`, id).
		Scan(&m.ID, &m.Name, &m.Description, &m.State)

	if errors.Is(err, pgx.ErrNoRows) {
		return directory.Machine{}, ErrNotFound
	}

	if err != nil {
		return directory.Machine{}, fmt.Errorf("failed to fetch machine with id %d: %w", id, err)
	}

	return m, nil
}

func (r *Postgres) InsertMachine(ctx context.Context, m directory.Machine) (directory.Machine, error) {
	sql := `
		INSERT INTO machines(name, description, m_state)
		VALUES ($1, $2, $3)
		RETURNING id;`

	if err := r.pool.QueryRow(ctx, sql, m.Name, m.Description, m.State).Scan(&m.ID); err != nil {
		return directory.Machine{}, fmt.Errorf("failed to insert machine: %w", err)
	}

	return m, nil
}

func (r *Postgres) UpdateMachine(ctx context.Context, m directory.Machine) (directory.Machine, error) {
	sql := `
		UPDATE machines
		SET name=$1, description=$2, m_state=$3
		WHERE id=$4;`

	tag, err := r.pool.Exec(ctx, sql, m.Name, m.Description, m.State, m.ID)

	if err != nil {
		return directory.Machine{}, fmt.Errorf("failed to update machine %d: %w", m.ID, err)
	}

	if tag.RowsAffected() == 0 {
		return directory.Machine{}, ErrNotFound
	}

	return m, nil
}

func (r *Postgres) DeleteMachine(ctx context.Context, id int64) error {
	return r.delete(ctx, `DELETE FROM machines WHERE id=$1;`, "machine", id)
}

func (r *Postgres) delete(ctx context.Context, sql, kind string, id int64) error {
	tag, err := r.pool.Exec(ctx, sql, id)

	if err != nil {
		return fmt.Errorf("failed to delete %v %d: %w", kind, id, constraintError(err, ErrConflict))
	}

	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}

	return nil
}

// constraintError maps constraint violations to sentinel errors. A foreign
// key violation means a missing parent on writes to schedules and a row
// still in use on deletes, so the caller picks which.
func constraintError(err error, foreignKey error) error {
	var pgErr *pgconn.PgError

	if !errors.As(err, &pgErr) {
		return err
	}

	switch pgErr.Code {
	case uniqueViolation:
		return fmt.Errorf("%w: %v", ErrConflict, pgErr.ConstraintName)
	case foreignKeyViolation:
		return fmt.Errorf("%w: %v", foreignKey, pgErr.ConstraintName)
	}

	return err
}

func scanSchedule(row pgx.Row, b *booking.Booking) error {
	return row.Scan(
		&b.ID,
		&b.Date,
		&b.Time,
		&b.TrainerID,
		&b.TrainerName,
		&b.CustomerID,
		&b.CustomerName,
		&b.MachineID,
		&b.MachineName,
		&b.Message,
		&b.Status,
	)
}

func scanPerson(row pgx.Row, p *directory.Person, extra ...any) error {
	dest := []any{
		&p.ID,
		&p.Name,
		&p.Email,
		&p.Phone,
		&p.CPF,
		&p.BirthDate,
		&p.Type,
		&p.CreatedAt,
	}

	return row.Scan(append(dest, extra...)...)
}

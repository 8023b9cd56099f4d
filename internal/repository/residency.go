package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/mmeshcher/hostel-system/internal/model"
)

// CreateHostel создаёт корпус общежития.
func (r *PostgresRepository) CreateHostel(ctx context.Context, name string) (int64, error) {
	var id int64
	err := r.pool.QueryRow(ctx,
		`INSERT INTO hostels (name) VALUES ($1) RETURNING id`,
		name,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("create hostel: %w", err)
	}
	return id, nil
}

// ListHostels возвращает список корпусов.
func (r *PostgresRepository) ListHostels(ctx context.Context) ([]model.Hostel, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, name FROM hostels ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("select hostels: %w", err)
	}
	defer rows.Close()

	var res []model.Hostel
	for rows.Next() {
		var h model.Hostel
		if err := rows.Scan(&h.ID, &h.Name); err != nil {
			return nil, fmt.Errorf("scan hostel: %w", err)
		}
		res = append(res, h)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return res, nil
}

// CreateRoom создаёт комнату.
func (r *PostgresRepository) CreateRoom(ctx context.Context, room model.Room) (int64, error) {
	var id int64
	err := r.pool.QueryRow(ctx,
		`INSERT INTO rooms (hostel_id, room_no, room_type, floor_no, location)
		 VALUES ($1, $2, $3, $4, $5) RETURNING id`,
		room.HostelID, room.RoomNo, string(room.RoomType), room.FloorNo, room.Location,
	).Scan(&id)
	if err != nil {
		if isUniqueViolation(err) {
			return 0, fmt.Errorf("%w: %s", ErrRoomExists, room.RoomNo)
		}
		return 0, fmt.Errorf("create room: %w", err)
	}
	return id, nil
}

// GetRoom возвращает комнату с вычисленным числом заселённых студентов.
func (r *PostgresRepository) GetRoom(ctx context.Context, id int64) (*model.Room, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT r.id, r.hostel_id, r.room_no, r.room_type, r.floor_no, r.location,
		        (SELECT COUNT(*) FROM students s WHERE s.room_id = r.id)
		 FROM rooms r WHERE r.id = $1`,
		id,
	)

	var room model.Room
	var roomType string
	err := row.Scan(&room.ID, &room.HostelID, &room.RoomNo, &roomType, &room.FloorNo, &room.Location, &room.Occupied)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrRoomNotFound
		}
		return nil, fmt.Errorf("get room: %w", err)
	}
	room.RoomType = model.RoomType(roomType)

	return &room, nil
}

// ListRooms возвращает комнаты корпуса с числом заселённых студентов.
func (r *PostgresRepository) ListRooms(ctx context.Context, hostelID int64) ([]model.Room, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT r.id, r.hostel_id, r.room_no, r.room_type, r.floor_no, r.location,
		        (SELECT COUNT(*) FROM students s WHERE s.room_id = r.id)
		 FROM rooms r
		 WHERE r.hostel_id = $1
		 ORDER BY r.room_no`,
		hostelID,
	)
	if err != nil {
		return nil, fmt.Errorf("select rooms: %w", err)
	}
	defer rows.Close()

	var res []model.Room
	for rows.Next() {
		var room model.Room
		var roomType string
		if err := rows.Scan(&room.ID, &room.HostelID, &room.RoomNo, &roomType, &room.FloorNo, &room.Location, &room.Occupied); err != nil {
			return nil, fmt.Errorf("scan room: %w", err)
		}
		room.RoomType = model.RoomType(roomType)
		res = append(res, room)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return res, nil
}

// CreateStudent создаёт студента.
func (r *PostgresRepository) CreateStudent(ctx context.Context, st model.Student) (int64, error) {
	var id int64
	err := r.pool.QueryRow(ctx,
		`INSERT INTO students (user_id, registration_number, first_name, last_name, father_name, department, contact_info, address, hostel_id)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9) RETURNING id`,
		st.UserID, st.RegistrationNumber, st.FirstName, st.LastName, st.FatherName, st.Department, st.ContactInfo, st.Address, st.HostelID,
	).Scan(&id)
	if err != nil {
		if isUniqueViolation(err) {
			return 0, fmt.Errorf("%w: %s", ErrStudentExists, st.RegistrationNumber)
		}
		return 0, fmt.Errorf("create student: %w", err)
	}
	return id, nil
}

func scanStudent(row pgx.Row) (*model.Student, error) {
	var st model.Student
	err := row.Scan(&st.ID, &st.UserID, &st.RegistrationNumber, &st.FirstName, &st.LastName,
		&st.FatherName, &st.Department, &st.ContactInfo, &st.Address, &st.RoomID, &st.HostelID, &st.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrStudentNotFound
		}
		return nil, fmt.Errorf("scan student: %w", err)
	}
	return &st, nil
}

const studentColumns = `id, user_id, registration_number, first_name, last_name, father_name, department, contact_info, address, room_id, hostel_id, created_at`

// GetStudent возвращает студента по идентификатору.
func (r *PostgresRepository) GetStudent(ctx context.Context, id int64) (*model.Student, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT `+studentColumns+` FROM students WHERE id = $1`, id)
	return scanStudent(row)
}

// GetStudentByUser возвращает студента по идентификатору учётной записи.
func (r *PostgresRepository) GetStudentByUser(ctx context.Context, userID int64) (*model.Student, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT `+studentColumns+` FROM students WHERE user_id = $1`, userID)
	return scanStudent(row)
}

// ListStudents возвращает всех студентов.
func (r *PostgresRepository) ListStudents(ctx context.Context) ([]model.Student, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+studentColumns+` FROM students ORDER BY last_name, first_name`)
	if err != nil {
		return nil, fmt.Errorf("select students: %w", err)
	}
	defer rows.Close()

	var res []model.Student
	for rows.Next() {
		st, err := scanStudent(rows)
		if err != nil {
			return nil, err
		}
		res = append(res, *st)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return res, nil
}

// AssignRoom заселяет студента в комнату. Строка комнаты блокируется,
// чтобы параллельные заселения не превысили вместимость.
func (r *PostgresRepository) AssignRoom(ctx context.Context, studentID, roomID int64) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	var roomType string
	var hostelID int64
	err = tx.QueryRow(ctx,
		`SELECT room_type, hostel_id FROM rooms WHERE id = $1 FOR UPDATE`,
		roomID,
	).Scan(&roomType, &hostelID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrRoomNotFound
		}
		return fmt.Errorf("lock room: %w", err)
	}

	var occupied int
	err = tx.QueryRow(ctx,
		`SELECT COUNT(*) FROM students WHERE room_id = $1`,
		roomID,
	).Scan(&occupied)
	if err != nil {
		return fmt.Errorf("count occupants: %w", err)
	}

	if occupied >= model.RoomType(roomType).Capacity() {
		return ErrRoomFull
	}

	cmdTag, err := tx.Exec(ctx,
		`UPDATE students SET room_id = $2, hostel_id = $3 WHERE id = $1`,
		studentID, roomID, hostelID,
	)
	if err != nil {
		return fmt.Errorf("assign room: %w", err)
	}
	if cmdTag.RowsAffected() == 0 {
		return ErrStudentNotFound
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}

	return nil
}

// ReleaseRoom выселяет студента из комнаты.
func (r *PostgresRepository) ReleaseRoom(ctx context.Context, studentID int64) error {
	cmdTag, err := r.pool.Exec(ctx,
		`UPDATE students SET room_id = NULL WHERE id = $1`,
		studentID,
	)
	if err != nil {
		return fmt.Errorf("release room: %w", err)
	}
	if cmdTag.RowsAffected() == 0 {
		return ErrStudentNotFound
	}
	return nil
}

package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/mmeshcher/hostel-system/internal/model"
)

// UpsertMenuEntry создаёт или обновляет позицию меню на дату и приём пищи.
func (r *PostgresRepository) UpsertMenuEntry(ctx context.Context, e model.MenuEntry) (int64, error) {
	var id int64
	err := r.pool.QueryRow(ctx,
		`INSERT INTO mess_menu (menu_date, meal_slot, dish_name, price)
		 VALUES ($1, $2, $3, $4)
		 ON CONFLICT (menu_date, meal_slot)
		 DO UPDATE SET dish_name = EXCLUDED.dish_name, price = EXCLUDED.price
		 RETURNING id`,
		e.Date, string(e.Slot), e.DishName, e.PricePaise,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("upsert menu entry: %w", err)
	}
	return id, nil
}

// FindMenuEntry возвращает позицию меню на дату и приём пищи.
func (r *PostgresRepository) FindMenuEntry(ctx context.Context, date time.Time, slot model.MealSlot) (*model.MenuEntry, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT id, menu_date, meal_slot, dish_name, price
		 FROM mess_menu
		 WHERE menu_date = $1 AND meal_slot = $2`,
		date, string(slot),
	)

	var e model.MenuEntry
	var slotCode string
	err := row.Scan(&e.ID, &e.Date, &slotCode, &e.DishName, &e.PricePaise)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrMenuEntryNotFound
		}
		return nil, fmt.Errorf("find menu entry: %w", err)
	}
	e.Slot = model.MealSlot(slotCode)

	return &e, nil
}

// ListMenu возвращает позиции меню за период, отсортированные по дате и приёму пищи.
func (r *PostgresRepository) ListMenu(ctx context.Context, from, to time.Time) ([]model.MenuEntry, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, menu_date, meal_slot, dish_name, price
		 FROM mess_menu
		 WHERE menu_date BETWEEN $1 AND $2
		 ORDER BY menu_date, meal_slot`,
		from, to,
	)
	if err != nil {
		return nil, fmt.Errorf("select menu: %w", err)
	}
	defer rows.Close()

	var res []model.MenuEntry
	for rows.Next() {
		var e model.MenuEntry
		var slotCode string
		if err := rows.Scan(&e.ID, &e.Date, &slotCode, &e.DishName, &e.PricePaise); err != nil {
			return nil, fmt.Errorf("scan menu entry: %w", err)
		}
		e.Slot = model.MealSlot(slotCode)
		res = append(res, e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return res, nil
}

// CreateMembership создаёт заявку на членство в столовой.
func (r *PostgresRepository) CreateMembership(ctx context.Context, m model.Membership) (int64, error) {
	var id int64
	err := r.pool.QueryRow(ctx,
		`INSERT INTO mess_memberships (student_id, start_date, end_date)
		 VALUES ($1, $2, $3) RETURNING id`,
		m.StudentID, m.StartDate, m.EndDate,
	).Scan(&id)
	if err != nil {
		if isUniqueViolation(err) {
			return 0, ErrMembershipExists
		}
		return 0, fmt.Errorf("create membership: %w", err)
	}
	return id, nil
}

func scanMembership(row pgx.Row) (*model.Membership, error) {
	var m model.Membership
	var status string
	err := row.Scan(&m.ID, &m.StudentID, &m.StartDate, &m.EndDate, &status, &m.IsActive, &m.AppliedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrMembershipNotFound
		}
		return nil, fmt.Errorf("scan membership: %w", err)
	}
	m.Status = model.RequestStatus(status)
	return &m, nil
}

// GetMembership возвращает членство студента в столовой.
func (r *PostgresRepository) GetMembership(ctx context.Context, studentID int64) (*model.Membership, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT id, student_id, start_date, end_date, status, is_active, applied_at
		 FROM mess_memberships WHERE student_id = $1`,
		studentID,
	)
	return scanMembership(row)
}

// ProcessMembership выставляет статус заявки на членство и признак активности.
func (r *PostgresRepository) ProcessMembership(ctx context.Context, membershipID int64, status model.RequestStatus, active bool) error {
	cmdTag, err := r.pool.Exec(ctx,
		`UPDATE mess_memberships SET status = $2, is_active = $3 WHERE id = $1`,
		membershipID, string(status), active,
	)
	if err != nil {
		return fmt.Errorf("process membership: %w", err)
	}
	if cmdTag.RowsAffected() == 0 {
		return ErrMembershipNotFound
	}
	return nil
}

// ListMembershipsByStatus возвращает членства с указанным статусом.
func (r *PostgresRepository) ListMembershipsByStatus(ctx context.Context, status model.RequestStatus) ([]model.Membership, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, student_id, start_date, end_date, status, is_active, applied_at
		 FROM mess_memberships
		 WHERE status = $1
		 ORDER BY applied_at`,
		string(status),
	)
	if err != nil {
		return nil, fmt.Errorf("select memberships: %w", err)
	}
	defer rows.Close()

	var res []model.Membership
	for rows.Next() {
		m, err := scanMembership(rows)
		if err != nil {
			return nil, err
		}
		res = append(res, *m)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return res, nil
}

// ListActiveMemberIDs возвращает идентификаторы студентов с активным членством.
func (r *PostgresRepository) ListActiveMemberIDs(ctx context.Context) ([]int64, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT student_id FROM mess_memberships WHERE status = 'APPROVED' AND is_active`)
	if err != nil {
		return nil, fmt.Errorf("select active members: %w", err)
	}
	defer rows.Close()

	var res []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan member id: %w", err)
		}
		res = append(res, id)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return res, nil
}

// SaveFingerprint сохраняет шаблон отпечатка студента.
func (r *PostgresRepository) SaveFingerprint(ctx context.Context, studentID int64, template []byte) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO fingerprints (student_id, template) VALUES ($1, $2)
		 ON CONFLICT (student_id) DO UPDATE SET template = EXCLUDED.template`,
		studentID, template,
	)
	if err != nil {
		return fmt.Errorf("save fingerprint: %w", err)
	}
	return nil
}

// GetFingerprint возвращает шаблон отпечатка студента.
func (r *PostgresRepository) GetFingerprint(ctx context.Context, studentID int64) (*model.Fingerprint, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT student_id, template, created_at FROM fingerprints WHERE student_id = $1`,
		studentID,
	)

	var f model.Fingerprint
	err := row.Scan(&f.StudentID, &f.Template, &f.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrFingerprintNotFound
		}
		return nil, fmt.Errorf("get fingerprint: %w", err)
	}

	return &f, nil
}

// UpsertAttendance сохраняет отметку посещения. Повторная отметка того же
// приёма пищи заменяет существующую запись, а не создаёт вторую.
func (r *PostgresRepository) UpsertAttendance(ctx context.Context, rec model.AttendanceRecord) (*model.AttendanceRecord, error) {
	row := r.pool.QueryRow(ctx,
		`INSERT INTO mess_attendance (student_id, meal_date, meal_slot, is_present, price_charged)
		 VALUES ($1, $2, $3, $4, $5)
		 ON CONFLICT (student_id, meal_date, meal_slot)
		 DO UPDATE SET is_present = EXCLUDED.is_present, price_charged = EXCLUDED.price_charged, marked_at = now()
		 RETURNING id, student_id, meal_date, meal_slot, is_present, price_charged, marked_at`,
		rec.StudentID, rec.Date, string(rec.Slot), rec.IsPresent, rec.PriceChargedPaise,
	)

	var out model.AttendanceRecord
	var slotCode string
	err := row.Scan(&out.ID, &out.StudentID, &out.Date, &slotCode, &out.IsPresent, &out.PriceChargedPaise, &out.MarkedAt)
	if err != nil {
		return nil, fmt.Errorf("upsert attendance: %w", err)
	}
	out.Slot = model.MealSlot(slotCode)

	return &out, nil
}

// GetAttendanceByDate возвращает отметки студента за дату.
func (r *PostgresRepository) GetAttendanceByDate(ctx context.Context, studentID int64, date time.Time) ([]model.AttendanceRecord, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, student_id, meal_date, meal_slot, is_present, price_charged, marked_at
		 FROM mess_attendance
		 WHERE student_id = $1 AND meal_date = $2
		 ORDER BY meal_slot`,
		studentID, date,
	)
	if err != nil {
		return nil, fmt.Errorf("select attendance: %w", err)
	}
	defer rows.Close()

	var res []model.AttendanceRecord
	for rows.Next() {
		var rec model.AttendanceRecord
		var slotCode string
		if err := rows.Scan(&rec.ID, &rec.StudentID, &rec.Date, &slotCode, &rec.IsPresent, &rec.PriceChargedPaise, &rec.MarkedAt); err != nil {
			return nil, fmt.Errorf("scan attendance: %w", err)
		}
		rec.Slot = model.MealSlot(slotCode)
		res = append(res, rec)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return res, nil
}

// CountPresentDays возвращает число различных дат в периоде, когда студент
// был отмечен присутствующим хотя бы на одном приёме пищи.
func (r *PostgresRepository) CountPresentDays(ctx context.Context, studentID int64, from, to time.Time) (int, error) {
	var count int
	err := r.pool.QueryRow(ctx,
		`SELECT COUNT(DISTINCT meal_date)
		 FROM mess_attendance
		 WHERE student_id = $1 AND meal_date BETWEEN $2 AND $3 AND is_present`,
		studentID, from, to,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count present days: %w", err)
	}
	return count, nil
}

func scanBill(row pgx.Row) (*model.Bill, error) {
	var b model.Bill
	err := row.Scan(&b.ID, &b.StudentID, &b.BillDate, &b.AmountDuePaise, &b.PaidStatus, &b.PaidAmountPaise, &b.PaymentDate)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrBillNotFound
		}
		return nil, fmt.Errorf("scan bill: %w", err)
	}
	return &b, nil
}

const billColumns = `id, student_id, bill_date, amount_due, paid_status, paid_amount, payment_date`

// UpsertBillAmount создаёт дневной счёт или перезаписывает его сумму.
// Поля оплаты существующего счёта не затрагиваются.
func (r *PostgresRepository) UpsertBillAmount(ctx context.Context, studentID int64, date time.Time, amountPaise int64) (*model.Bill, error) {
	row := r.pool.QueryRow(ctx,
		`INSERT INTO mess_bills (student_id, bill_date, amount_due)
		 VALUES ($1, $2, $3)
		 ON CONFLICT (student_id, bill_date)
		 DO UPDATE SET amount_due = EXCLUDED.amount_due
		 RETURNING `+billColumns,
		studentID, date, amountPaise,
	)
	return scanBill(row)
}

// GetBillsByStudent возвращает счета студента, сначала свежие.
func (r *PostgresRepository) GetBillsByStudent(ctx context.Context, studentID int64) ([]model.Bill, error) {
	return r.selectBills(ctx,
		`SELECT `+billColumns+` FROM mess_bills WHERE student_id = $1 ORDER BY bill_date DESC`,
		studentID)
}

// GetUnpaidBills возвращает неоплаченные счета студента.
func (r *PostgresRepository) GetUnpaidBills(ctx context.Context, studentID int64) ([]model.Bill, error) {
	return r.selectBills(ctx,
		`SELECT `+billColumns+` FROM mess_bills WHERE student_id = $1 AND NOT paid_status ORDER BY bill_date`,
		studentID)
}

// GetBillsByIDs возвращает счета по списку идентификаторов.
func (r *PostgresRepository) GetBillsByIDs(ctx context.Context, ids []int64) ([]model.Bill, error) {
	return r.selectBills(ctx,
		`SELECT `+billColumns+` FROM mess_bills WHERE id = ANY($1) ORDER BY bill_date`,
		ids)
}

func (r *PostgresRepository) selectBills(ctx context.Context, query string, arg any) ([]model.Bill, error) {
	rows, err := r.pool.Query(ctx, query, arg)
	if err != nil {
		return nil, fmt.Errorf("select bills: %w", err)
	}
	defer rows.Close()

	var res []model.Bill
	for rows.Next() {
		b, err := scanBill(rows)
		if err != nil {
			return nil, err
		}
		res = append(res, *b)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return res, nil
}

// HasPendingMilestoneRequest проверяет наличие необработанной заявки студента по рубежу.
func (r *PostgresRepository) HasPendingMilestoneRequest(ctx context.Context, studentID int64, milestoneDays int) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx,
		`SELECT EXISTS (
		     SELECT 1 FROM mess_payment_requests
		     WHERE student_id = $1 AND milestone_days = $2 AND status = 'PENDING'
		 )`,
		studentID, milestoneDays,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check pending request: %w", err)
	}
	return exists, nil
}

// CreatePaymentRequest создаёт заявку на оплату и привязывает к ней счета.
// Строка студента блокируется, чтобы параллельные отметки посещения не
// создали две заявки по одному рубежу; частичный уникальный индекс по
// (student_id, milestone_days, status = PENDING) служит последней линией защиты.
func (r *PostgresRepository) CreatePaymentRequest(ctx context.Context, req model.PaymentRequest, billIDs []int64) (int64, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	var dummy int
	err = tx.QueryRow(ctx, `SELECT 1 FROM students WHERE id = $1 FOR UPDATE`, req.StudentID).Scan(&dummy)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, ErrStudentNotFound
		}
		return 0, fmt.Errorf("lock student: %w", err)
	}

	var exists bool
	err = tx.QueryRow(ctx,
		`SELECT EXISTS (
		     SELECT 1 FROM mess_payment_requests
		     WHERE student_id = $1 AND milestone_days = $2 AND status = 'PENDING'
		 )`,
		req.StudentID, req.MilestoneDays,
	).Scan(&exists)
	if err != nil {
		return 0, fmt.Errorf("check pending request: %w", err)
	}
	if exists {
		return 0, ErrRequestExists
	}

	var id int64
	err = tx.QueryRow(ctx,
		`INSERT INTO mess_payment_requests (student_id, amount, milestone_days, request_note)
		 VALUES ($1, $2, $3, $4) RETURNING id`,
		req.StudentID, req.AmountPaise, req.MilestoneDays, req.RequestNote,
	).Scan(&id)
	if err != nil {
		if isUniqueViolation(err) {
			return 0, ErrRequestExists
		}
		return 0, fmt.Errorf("insert payment request: %w", err)
	}

	for _, billID := range billIDs {
		if _, err := tx.Exec(ctx,
			`INSERT INTO mess_payment_request_bills (request_id, bill_id) VALUES ($1, $2)`,
			id, billID,
		); err != nil {
			return 0, fmt.Errorf("bind bill: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("commit tx: %w", err)
	}

	return id, nil
}

const requestColumns = `id, student_id, request_date, amount, status, milestone_days, request_note, admin_note, processed_by, processed_date`

func scanPaymentRequest(row pgx.Row) (*model.PaymentRequest, error) {
	var req model.PaymentRequest
	var status string
	err := row.Scan(&req.ID, &req.StudentID, &req.RequestDate, &req.AmountPaise, &status,
		&req.MilestoneDays, &req.RequestNote, &req.AdminNote, &req.ProcessedBy, &req.ProcessedDate)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrRequestNotFound
		}
		return nil, fmt.Errorf("scan payment request: %w", err)
	}
	req.Status = model.RequestStatus(status)
	return &req, nil
}

// GetPaymentRequest возвращает заявку вместе со списком привязанных счетов.
func (r *PostgresRepository) GetPaymentRequest(ctx context.Context, id int64) (*model.PaymentRequest, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT `+requestColumns+` FROM mess_payment_requests WHERE id = $1`, id)

	req, err := scanPaymentRequest(row)
	if err != nil {
		return nil, err
	}

	rows, err := r.pool.Query(ctx,
		`SELECT bill_id FROM mess_payment_request_bills WHERE request_id = $1 ORDER BY bill_id`, id)
	if err != nil {
		return nil, fmt.Errorf("select request bills: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var billID int64
		if err := rows.Scan(&billID); err != nil {
			return nil, fmt.Errorf("scan bill id: %w", err)
		}
		req.BillIDs = append(req.BillIDs, billID)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return req, nil
}

// ListPaymentRequests возвращает заявки студента либо все заявки с указанным
// статусом, если studentID равен нулю.
func (r *PostgresRepository) ListPaymentRequests(ctx context.Context, studentID int64, status model.RequestStatus) ([]model.PaymentRequest, error) {
	query := `SELECT ` + requestColumns + ` FROM mess_payment_requests`
	var args []any
	var where []string
	if studentID != 0 {
		args = append(args, studentID)
		where = append(where, fmt.Sprintf("student_id = $%d", len(args)))
	}
	if status != "" {
		args = append(args, string(status))
		where = append(where, fmt.Sprintf("status = $%d", len(args)))
	}
	if len(where) > 0 {
		query += ` WHERE ` + strings.Join(where, " AND ")
	}
	query += ` ORDER BY request_date DESC`

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("select payment requests: %w", err)
	}
	defer rows.Close()

	var res []model.PaymentRequest
	for rows.Next() {
		req, err := scanPaymentRequest(rows)
		if err != nil {
			return nil, err
		}
		res = append(res, *req)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return res, nil
}

// SettlePaymentRequest переводит заявку в терминальный статус. При одобрении
// в той же транзакции каждый привязанный счёт помечается оплаченным на полную
// сумму и записываются квитанции; при отказе счета не меняются. Заявка,
// уже выведенная из статуса PENDING, не обрабатывается повторно.
func (r *PostgresRepository) SettlePaymentRequest(ctx context.Context, requestID, adminID int64, status model.RequestStatus, note string, billIDs []int64, payments []model.MessPayment) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	cmdTag, err := tx.Exec(ctx,
		`UPDATE mess_payment_requests
		 SET status = $2, processed_by = $3, processed_date = now(), admin_note = $4
		 WHERE id = $1 AND status = 'PENDING'`,
		requestID, string(status), adminID, note,
	)
	if err != nil {
		return fmt.Errorf("update payment request: %w", err)
	}
	if cmdTag.RowsAffected() == 0 {
		var exists bool
		if err := tx.QueryRow(ctx,
			`SELECT EXISTS (SELECT 1 FROM mess_payment_requests WHERE id = $1)`,
			requestID,
		).Scan(&exists); err != nil {
			return fmt.Errorf("check payment request: %w", err)
		}
		if !exists {
			return ErrRequestNotFound
		}
		return ErrRequestProcessed
	}

	if status == model.RequestStatusApproved {
		if _, err := tx.Exec(ctx,
			`UPDATE mess_bills
			 SET paid_status = TRUE, paid_amount = amount_due, payment_date = now()
			 WHERE id = ANY($1) AND NOT paid_status`,
			billIDs,
		); err != nil {
			return fmt.Errorf("mark bills paid: %w", err)
		}

		for _, p := range payments {
			if _, err := tx.Exec(ctx,
				`INSERT INTO mess_payments (student_id, bill_id, amount, method, note)
				 VALUES ($1, $2, $3, $4, $5)`,
				p.StudentID, p.BillID, p.AmountPaise, string(p.Method), p.Note,
			); err != nil {
				return fmt.Errorf("insert mess payment: %w", err)
			}
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}

	return nil
}

// ListMessPayments возвращает квитанции студента, сначала свежие.
func (r *PostgresRepository) ListMessPayments(ctx context.Context, studentID int64) ([]model.MessPayment, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, student_id, bill_id, payment_date, amount, method, note
		 FROM mess_payments
		 WHERE student_id = $1
		 ORDER BY payment_date DESC`,
		studentID,
	)
	if err != nil {
		return nil, fmt.Errorf("select mess payments: %w", err)
	}
	defer rows.Close()

	var res []model.MessPayment
	for rows.Next() {
		var p model.MessPayment
		var method string
		if err := rows.Scan(&p.ID, &p.StudentID, &p.BillID, &p.PaymentDate, &p.AmountPaise, &method, &p.Note); err != nil {
			return nil, fmt.Errorf("scan mess payment: %w", err)
		}
		p.Method = model.PaymentMethod(method)
		res = append(res, p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return res, nil
}

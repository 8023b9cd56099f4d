package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/mmeshcher/hostel-system/internal/model"
)

// ErrNoticeNotFound возвращается, если объявление не найдено.
var (
	ErrNoticeNotFound = errors.New("notice not found")
	// ErrVisitorNotFound возвращается, если посетитель или его заявка не найдены.
	ErrVisitorNotFound = errors.New("visitor not found")
	// ErrComplaintNotFound возвращается, если жалоба не найдена.
	ErrComplaintNotFound = errors.New("complaint not found")
)

// CreateNotice публикует объявление на доске объявлений.
func (r *PostgresRepository) CreateNotice(ctx context.Context, n model.Notice) (int64, error) {
	var id int64
	err := r.pool.QueryRow(ctx,
		`INSERT INTO notices (title, content, created_by, expires_at)
		 VALUES ($1, $2, $3, $4) RETURNING id`,
		n.Title, n.Content, n.CreatedBy, n.ExpiresAt,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("create notice: %w", err)
	}
	return id, nil
}

// ListActiveNotices возвращает действующие объявления, сначала свежие.
func (r *PostgresRepository) ListActiveNotices(ctx context.Context) ([]model.Notice, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, title, content, created_by, created_at, expires_at, is_active
		 FROM notices
		 WHERE is_active AND (expires_at IS NULL OR expires_at > now())
		 ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("select notices: %w", err)
	}
	defer rows.Close()

	var res []model.Notice
	for rows.Next() {
		var n model.Notice
		if err := rows.Scan(&n.ID, &n.Title, &n.Content, &n.CreatedBy, &n.CreatedAt, &n.ExpiresAt, &n.IsActive); err != nil {
			return nil, fmt.Errorf("scan notice: %w", err)
		}
		res = append(res, n)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return res, nil
}

// CreateShowcaseNotice создаёт дисциплинарное уведомление и адресует его студентам.
func (r *PostgresRepository) CreateShowcaseNotice(ctx context.Context, n model.ShowcaseNotice, studentIDs []int64) (int64, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	var id int64
	err = tx.QueryRow(ctx,
		`INSERT INTO showcase_notices (title, description, notice_type, fine_amount, due_date, created_by)
		 VALUES ($1, $2, $3, $4, $5, $6) RETURNING id`,
		n.Title, n.Description, string(n.NoticeType), n.FineAmountPaise, n.DueDate, n.CreatedBy,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("insert showcase notice: %w", err)
	}

	for _, studentID := range studentIDs {
		if _, err := tx.Exec(ctx,
			`INSERT INTO student_showcase_notices (student_id, notice_id) VALUES ($1, $2)`,
			studentID, id,
		); err != nil {
			return 0, fmt.Errorf("bind student notice: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("commit tx: %w", err)
	}

	return id, nil
}

// ShowcaseNoticeForStudent объединяет уведомление и его состояние для студента.
type ShowcaseNoticeForStudent struct {
	Notice model.ShowcaseNotice
	Link   model.StudentNoticeLink
}

// ListShowcaseNoticesForStudent возвращает дисциплинарные уведомления студента.
func (r *PostgresRepository) ListShowcaseNoticesForStudent(ctx context.Context, studentID int64) ([]ShowcaseNoticeForStudent, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT n.id, n.title, n.description, n.notice_type, n.fine_amount, n.due_date, n.resolved, n.created_by, n.created_at,
		        l.student_id, l.read, l.read_date, l.paid
		 FROM showcase_notices n
		 JOIN student_showcase_notices l ON l.notice_id = n.id
		 WHERE l.student_id = $1
		 ORDER BY n.created_at DESC`,
		studentID,
	)
	if err != nil {
		return nil, fmt.Errorf("select showcase notices: %w", err)
	}
	defer rows.Close()

	var res []ShowcaseNoticeForStudent
	for rows.Next() {
		var item ShowcaseNoticeForStudent
		var noticeType string
		if err := rows.Scan(&item.Notice.ID, &item.Notice.Title, &item.Notice.Description, &noticeType,
			&item.Notice.FineAmountPaise, &item.Notice.DueDate, &item.Notice.Resolved,
			&item.Notice.CreatedBy, &item.Notice.CreatedAt,
			&item.Link.StudentID, &item.Link.Read, &item.Link.ReadDate, &item.Link.Paid); err != nil {
			return nil, fmt.Errorf("scan showcase notice: %w", err)
		}
		item.Notice.NoticeType = model.ShowcaseNoticeType(noticeType)
		item.Link.NoticeID = item.Notice.ID
		res = append(res, item)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return res, nil
}

// MarkShowcaseNoticeRead помечает уведомление прочитанным студентом.
func (r *PostgresRepository) MarkShowcaseNoticeRead(ctx context.Context, studentID, noticeID int64) error {
	cmdTag, err := r.pool.Exec(ctx,
		`UPDATE student_showcase_notices SET read = TRUE, read_date = now()
		 WHERE student_id = $1 AND notice_id = $2`,
		studentID, noticeID,
	)
	if err != nil {
		return fmt.Errorf("mark notice read: %w", err)
	}
	if cmdTag.RowsAffected() == 0 {
		return ErrNoticeNotFound
	}
	return nil
}

// MarkShowcaseNoticePaid помечает штраф по уведомлению оплаченным студентом.
func (r *PostgresRepository) MarkShowcaseNoticePaid(ctx context.Context, studentID, noticeID int64) error {
	cmdTag, err := r.pool.Exec(ctx,
		`UPDATE student_showcase_notices SET paid = TRUE
		 WHERE student_id = $1 AND notice_id = $2`,
		studentID, noticeID,
	)
	if err != nil {
		return fmt.Errorf("mark notice paid: %w", err)
	}
	if cmdTag.RowsAffected() == 0 {
		return ErrNoticeNotFound
	}
	return nil
}

// CreateVisitor регистрирует посетителя и заявку на пропуск в одной транзакции.
func (r *PostgresRepository) CreateVisitor(ctx context.Context, v model.Visitor) (int64, int64, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return 0, 0, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	var visitorID int64
	err = tx.QueryRow(ctx,
		`INSERT INTO visitors (student_id, name, contact_info, id_proof, purpose, visit_date)
		 VALUES ($1, $2, $3, $4, $5, $6) RETURNING id`,
		v.StudentID, v.Name, v.ContactInfo, v.IDProof, v.Purpose, v.VisitDate,
	).Scan(&visitorID)
	if err != nil {
		return 0, 0, fmt.Errorf("insert visitor: %w", err)
	}

	var requestID int64
	err = tx.QueryRow(ctx,
		`INSERT INTO visitor_requests (student_id, visitor_id) VALUES ($1, $2) RETURNING id`,
		v.StudentID, visitorID,
	).Scan(&requestID)
	if err != nil {
		return 0, 0, fmt.Errorf("insert visitor request: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, 0, fmt.Errorf("commit tx: %w", err)
	}

	return visitorID, requestID, nil
}

// ProcessVisitorRequest переводит заявку на пропуск в терминальный статус.
func (r *PostgresRepository) ProcessVisitorRequest(ctx context.Context, requestID int64, status model.RequestStatus) error {
	cmdTag, err := r.pool.Exec(ctx,
		`UPDATE visitor_requests SET status = $2 WHERE id = $1 AND status = 'PENDING'`,
		requestID, string(status),
	)
	if err != nil {
		return fmt.Errorf("process visitor request: %w", err)
	}
	if cmdTag.RowsAffected() == 0 {
		return ErrVisitorNotFound
	}
	return nil
}

// SetVisitorTimes проставляет время входа и выхода посетителя.
func (r *PostgresRepository) SetVisitorTimes(ctx context.Context, requestID int64, timeIn, timeOut *time.Time) error {
	cmdTag, err := r.pool.Exec(ctx,
		`UPDATE visitor_requests
		 SET time_in = COALESCE($2, time_in), time_out = COALESCE($3, time_out)
		 WHERE id = $1`,
		requestID, timeIn, timeOut,
	)
	if err != nil {
		return fmt.Errorf("set visitor times: %w", err)
	}
	if cmdTag.RowsAffected() == 0 {
		return ErrVisitorNotFound
	}
	return nil
}

// ListVisitorRequests возвращает заявки студента либо все заявки с указанным
// статусом, если studentID равен нулю.
func (r *PostgresRepository) ListVisitorRequests(ctx context.Context, studentID int64, status model.RequestStatus) ([]model.VisitorRequest, error) {
	query := `SELECT id, student_id, visitor_id, request_date, status, time_in, time_out FROM visitor_requests`
	var args []any
	switch {
	case studentID != 0:
		query += ` WHERE student_id = $1`
		args = append(args, studentID)
	case status != "":
		query += ` WHERE status = $1`
		args = append(args, string(status))
	}
	query += ` ORDER BY request_date DESC`

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("select visitor requests: %w", err)
	}
	defer rows.Close()

	var res []model.VisitorRequest
	for rows.Next() {
		var vr model.VisitorRequest
		var status string
		if err := rows.Scan(&vr.ID, &vr.StudentID, &vr.VisitorID, &vr.RequestDate, &status, &vr.TimeIn, &vr.TimeOut); err != nil {
			return nil, fmt.Errorf("scan visitor request: %w", err)
		}
		vr.Status = model.RequestStatus(status)
		res = append(res, vr)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return res, nil
}

// CreateComplaint регистрирует жалобу студента.
func (r *PostgresRepository) CreateComplaint(ctx context.Context, c model.Complaint) (int64, error) {
	var id int64
	err := r.pool.QueryRow(ctx,
		`INSERT INTO complaints (student_id, description, complaint_type)
		 VALUES ($1, $2, $3) RETURNING id`,
		c.StudentID, c.Description, c.Type,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("create complaint: %w", err)
	}
	return id, nil
}

// ListComplaints возвращает жалобы, сначала свежие.
func (r *PostgresRepository) ListComplaints(ctx context.Context) ([]model.Complaint, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, student_id, description, complaint_type, created_at, is_read
		 FROM complaints
		 ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("select complaints: %w", err)
	}
	defer rows.Close()

	var res []model.Complaint
	for rows.Next() {
		var c model.Complaint
		if err := rows.Scan(&c.ID, &c.StudentID, &c.Description, &c.Type, &c.CreatedAt, &c.IsRead); err != nil {
			return nil, fmt.Errorf("scan complaint: %w", err)
		}
		res = append(res, c)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return res, nil
}

// MarkComplaintRead помечает жалобу прочитанной.
func (r *PostgresRepository) MarkComplaintRead(ctx context.Context, id int64) error {
	cmdTag, err := r.pool.Exec(ctx,
		`UPDATE complaints SET is_read = TRUE WHERE id = $1`,
		id,
	)
	if err != nil {
		return fmt.Errorf("mark complaint read: %w", err)
	}
	if cmdTag.RowsAffected() == 0 {
		return ErrComplaintNotFound
	}
	return nil
}

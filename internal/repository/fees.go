package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/mmeshcher/hostel-system/internal/model"
)

// CreateFeePayment записывает платёж за проживание.
func (r *PostgresRepository) CreateFeePayment(ctx context.Context, p model.FeePayment) (int64, error) {
	var id int64
	err := r.pool.QueryRow(ctx,
		`INSERT INTO fee_payments (student_id, fee_type, amount, receipt_number, voucher_no, mode, installment_number)
		 VALUES ($1, $2, $3, $4, $5, $6, $7) RETURNING id`,
		p.StudentID, p.FeeType, p.AmountPaise, p.ReceiptNumber, p.VoucherNo, p.Mode, p.InstallmentNumber,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("create fee payment: %w", err)
	}
	return id, nil
}

// ListFeePayments возвращает платежи студента за проживание, сначала свежие.
func (r *PostgresRepository) ListFeePayments(ctx context.Context, studentID int64) ([]model.FeePayment, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, student_id, fee_type, amount, receipt_number, voucher_no, mode, installment_number, payment_date
		 FROM fee_payments
		 WHERE student_id = $1
		 ORDER BY payment_date DESC`,
		studentID,
	)
	if err != nil {
		return nil, fmt.Errorf("select fee payments: %w", err)
	}
	defer rows.Close()

	var res []model.FeePayment
	for rows.Next() {
		var p model.FeePayment
		if err := rows.Scan(&p.ID, &p.StudentID, &p.FeeType, &p.AmountPaise, &p.ReceiptNumber,
			&p.VoucherNo, &p.Mode, &p.InstallmentNumber, &p.PaymentDate); err != nil {
			return nil, fmt.Errorf("scan fee payment: %w", err)
		}
		res = append(res, p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return res, nil
}

// SumFeePayments возвращает сумму платежей студента за проживание в пайсах.
func (r *PostgresRepository) SumFeePayments(ctx context.Context, studentID int64) (int64, error) {
	var total int64
	err := r.pool.QueryRow(ctx,
		`SELECT COALESCE(SUM(amount), 0) FROM fee_payments WHERE student_id = $1`,
		studentID,
	).Scan(&total)
	if err != nil {
		return 0, fmt.Errorf("sum fee payments: %w", err)
	}
	return total, nil
}

// CreateFeeRequest создаёт заявку на зачёт банковского перевода.
func (r *PostgresRepository) CreateFeeRequest(ctx context.Context, fr model.FeeRequest) (int64, error) {
	var id int64
	err := r.pool.QueryRow(ctx,
		`INSERT INTO fee_requests (student_id, amount, bank_name, transaction_id, transaction_date, mode, notes)
		 VALUES ($1, $2, $3, $4, $5, $6, $7) RETURNING id`,
		fr.StudentID, fr.AmountPaise, fr.BankName, fr.TransactionID, fr.TransactionDate, fr.Mode, fr.Notes,
	).Scan(&id)
	if err != nil {
		if isUniqueViolation(err) {
			return 0, fmt.Errorf("%w: %s", ErrTransactionExists, fr.TransactionID)
		}
		return 0, fmt.Errorf("create fee request: %w", err)
	}
	return id, nil
}

func scanFeeRequest(row pgx.Row) (*model.FeeRequest, error) {
	var fr model.FeeRequest
	var status string
	err := row.Scan(&fr.ID, &fr.StudentID, &fr.AmountPaise, &fr.BankName, &fr.TransactionID,
		&fr.TransactionDate, &fr.Mode, &status, &fr.Notes, &fr.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrRequestNotFound
		}
		return nil, fmt.Errorf("scan fee request: %w", err)
	}
	fr.Status = model.RequestStatus(status)
	return &fr, nil
}

const feeRequestColumns = `id, student_id, amount, bank_name, transaction_id, transaction_date, mode, status, notes, created_at`

// GetFeeRequest возвращает заявку на зачёт перевода.
func (r *PostgresRepository) GetFeeRequest(ctx context.Context, id int64) (*model.FeeRequest, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT `+feeRequestColumns+` FROM fee_requests WHERE id = $1`, id)
	return scanFeeRequest(row)
}

// ListFeeRequests возвращает заявки студента либо все заявки с указанным
// статусом, если studentID равен нулю.
func (r *PostgresRepository) ListFeeRequests(ctx context.Context, studentID int64, status model.RequestStatus) ([]model.FeeRequest, error) {
	query := `SELECT ` + feeRequestColumns + ` FROM fee_requests`
	var args []any
	switch {
	case studentID != 0:
		query += ` WHERE student_id = $1`
		args = append(args, studentID)
	case status != "":
		query += ` WHERE status = $1`
		args = append(args, string(status))
	}
	query += ` ORDER BY created_at DESC`

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("select fee requests: %w", err)
	}
	defer rows.Close()

	var res []model.FeeRequest
	for rows.Next() {
		fr, err := scanFeeRequest(rows)
		if err != nil {
			return nil, err
		}
		res = append(res, *fr)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return res, nil
}

// SettleFeeRequest переводит заявку на зачёт перевода в терминальный статус.
// При одобрении в той же транзакции создаётся платёж за проживание; если
// запись платежа не удалась, статус заявки не меняется.
func (r *PostgresRepository) SettleFeeRequest(ctx context.Context, requestID int64, status model.RequestStatus, payment *model.FeePayment) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	cmdTag, err := tx.Exec(ctx,
		`UPDATE fee_requests SET status = $2 WHERE id = $1 AND status = 'PENDING'`,
		requestID, string(status),
	)
	if err != nil {
		return fmt.Errorf("update fee request: %w", err)
	}
	if cmdTag.RowsAffected() == 0 {
		var exists bool
		if err := tx.QueryRow(ctx,
			`SELECT EXISTS (SELECT 1 FROM fee_requests WHERE id = $1)`,
			requestID,
		).Scan(&exists); err != nil {
			return fmt.Errorf("check fee request: %w", err)
		}
		if !exists {
			return ErrRequestNotFound
		}
		return ErrRequestProcessed
	}

	if payment != nil {
		if _, err := tx.Exec(ctx,
			`INSERT INTO fee_payments (student_id, fee_type, amount, receipt_number, voucher_no, mode, installment_number)
			 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
			payment.StudentID, payment.FeeType, payment.AmountPaise, payment.ReceiptNumber,
			payment.VoucherNo, payment.Mode, payment.InstallmentNumber,
		); err != nil {
			return fmt.Errorf("insert fee payment: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}

	return nil
}

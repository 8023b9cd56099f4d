package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/mmeshcher/hostel-system/internal/middleware"
	"github.com/mmeshcher/hostel-system/internal/model"
	"github.com/mmeshcher/hostel-system/internal/repository"
	"github.com/mmeshcher/hostel-system/internal/service"
	"github.com/mmeshcher/hostel-system/internal/validation"
)

type menuEntryResponse struct {
	Date     string  `json:"date"`
	Slot     string  `json:"slot"`
	DishName string  `json:"dish_name"`
	Price    float64 `json:"price"`
}

// GetMenu возвращает меню столовой за период. Без параметров отдаёт текущую неделю.
func (h *Handler) GetMenu(w http.ResponseWriter, r *http.Request) {
	from := time.Now()
	to := from.AddDate(0, 0, 6)

	if v := r.URL.Query().Get("from"); v != "" {
		parsed, ok := validation.ParseDate(v)
		if !ok {
			http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
			return
		}
		from = parsed
	}
	if v := r.URL.Query().Get("to"); v != "" {
		parsed, ok := validation.ParseDate(v)
		if !ok {
			http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
			return
		}
		to = parsed
	}

	entries, err := h.service.GetMenu(r.Context(), from, to)
	if err != nil {
		if errors.Is(err, service.ErrInvalidDateRange) {
			http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
			return
		}
		h.logger.Error("get menu error", zap.Error(err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	resp := make([]menuEntryResponse, 0, len(entries))
	for _, e := range entries {
		resp = append(resp, menuEntryResponse{
			Date:     e.Date.Format(validation.DateLayout),
			Slot:     string(e.Slot),
			DishName: e.DishName,
			Price:    paiseToRupees(e.PricePaise),
		})
	}

	h.writeJSON(w, resp)
}

type menuEntryRequest struct {
	Date     string  `json:"date"`
	Slot     string  `json:"slot"`
	DishName string  `json:"dish_name"`
	Price    float64 `json:"price"`
}

// UpsertMenuEntry создаёт или обновляет позицию меню.
func (h *Handler) UpsertMenuEntry(w http.ResponseWriter, r *http.Request) {
	var req menuEntryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	date, ok := validation.ParseDate(req.Date)
	if !ok || !validation.IsValidAmount(req.Price) {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	slot, ok := model.ParseMealSlot(req.Slot)
	if !ok {
		http.Error(w, http.StatusText(http.StatusUnprocessableEntity), http.StatusUnprocessableEntity)
		return
	}

	id, err := h.service.UpsertMenuEntry(r.Context(), model.MenuEntry{
		Date:       date,
		Slot:       slot,
		DishName:   req.DishName,
		PricePaise: rupeesToPaise(req.Price),
	})
	if err != nil {
		h.logger.Error("upsert menu entry error", zap.Error(err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	h.writeJSON(w, map[string]int64{"id": id})
}

type menuRangeRequest struct {
	From     string  `json:"from"`
	To       string  `json:"to"`
	Weekday  int     `json:"weekday"`
	Slot     string  `json:"slot"`
	DishName string  `json:"dish_name"`
	Price    float64 `json:"price"`
}

// AddMenuRange добавляет позицию меню на каждый указанный день недели в периоде.
func (h *Handler) AddMenuRange(w http.ResponseWriter, r *http.Request) {
	var req menuRangeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	from, okFrom := validation.ParseDate(req.From)
	to, okTo := validation.ParseDate(req.To)
	if !okFrom || !okTo || req.Weekday < 0 || req.Weekday > 6 || !validation.IsValidAmount(req.Price) {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	slot, ok := model.ParseMealSlot(req.Slot)
	if !ok {
		http.Error(w, http.StatusText(http.StatusUnprocessableEntity), http.StatusUnprocessableEntity)
		return
	}

	added, err := h.service.AddMenuRange(r.Context(), from, to, time.Weekday(req.Weekday), slot, req.DishName, rupeesToPaise(req.Price))
	if err != nil {
		if errors.Is(err, service.ErrInvalidDateRange) {
			http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
			return
		}
		h.logger.Error("add menu range error", zap.Error(err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	h.writeJSON(w, map[string]int{"added": added})
}

type membershipRequest struct {
	StartDate string `json:"start_date"`
	EndDate   string `json:"end_date"`
}

// ApplyMembership подаёт заявку текущего студента на членство в столовой.
func (h *Handler) ApplyMembership(w http.ResponseWriter, r *http.Request) {
	st, ok := h.currentStudent(w, r)
	if !ok {
		return
	}

	var req membershipRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	start, okStart := validation.ParseDate(req.StartDate)
	end, okEnd := validation.ParseDate(req.EndDate)
	if !okStart || !okEnd {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	id, err := h.service.ApplyMembership(r.Context(), st.ID, start, end)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidDateRange):
			http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		case errors.Is(err, repository.ErrMembershipExists):
			http.Error(w, http.StatusText(http.StatusConflict), http.StatusConflict)
		default:
			h.logger.Error("apply membership error", zap.Error(err), zap.Int64("studentID", st.ID))
			http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		}
		return
	}

	h.writeJSON(w, map[string]int64{"id": id})
}

type membershipResponse struct {
	ID        int64  `json:"id"`
	StudentID int64  `json:"student_id"`
	StartDate string `json:"start_date"`
	EndDate   string `json:"end_date"`
	Status    string `json:"status"`
	IsActive  bool   `json:"is_active"`
}

func toMembershipResponse(m *model.Membership) membershipResponse {
	return membershipResponse{
		ID:        m.ID,
		StudentID: m.StudentID,
		StartDate: m.StartDate.Format(validation.DateLayout),
		EndDate:   m.EndDate.Format(validation.DateLayout),
		Status:    string(m.Status),
		IsActive:  m.IsActive,
	}
}

// GetMembership возвращает членство текущего студента в столовой.
func (h *Handler) GetMembership(w http.ResponseWriter, r *http.Request) {
	st, ok := h.currentStudent(w, r)
	if !ok {
		return
	}

	m, err := h.service.GetMembership(r.Context(), st.ID)
	if err != nil {
		if errors.Is(err, repository.ErrMembershipNotFound) {
			http.Error(w, http.StatusText(http.StatusNotFound), http.StatusNotFound)
			return
		}
		h.logger.Error("get membership error", zap.Error(err), zap.Int64("studentID", st.ID))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	h.writeJSON(w, toMembershipResponse(m))
}

// ListMemberships возвращает заявки на членство с указанным статусом.
func (h *Handler) ListMemberships(w http.ResponseWriter, r *http.Request) {
	status := model.RequestStatus(r.URL.Query().Get("status"))
	if status == "" {
		status = model.RequestStatusPending
	}

	memberships, err := h.service.ListMemberships(r.Context(), status)
	if err != nil {
		h.logger.Error("list memberships error", zap.Error(err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	resp := make([]membershipResponse, 0, len(memberships))
	for i := range memberships {
		resp = append(resp, toMembershipResponse(&memberships[i]))
	}

	h.writeJSON(w, resp)
}

// ProcessMembership одобряет или отклоняет заявку на членство.
func (h *Handler) ProcessMembership(approve bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := idParam(r, "id")
		if !ok {
			http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
			return
		}

		if err := h.service.ProcessMembership(r.Context(), id, approve); err != nil {
			if errors.Is(err, repository.ErrMembershipNotFound) {
				http.Error(w, http.StatusText(http.StatusNotFound), http.StatusNotFound)
				return
			}
			h.logger.Error("process membership error", zap.Error(err), zap.Int64("membershipID", id))
			http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
			return
		}

		w.WriteHeader(http.StatusOK)
	}
}

// EnrollFingerprint снимает отпечаток текущего студента с терминала и сохраняет шаблон.
func (h *Handler) EnrollFingerprint(w http.ResponseWriter, r *http.Request) {
	st, ok := h.currentStudent(w, r)
	if !ok {
		return
	}

	if err := h.service.EnrollFingerprint(r.Context(), st.ID); err != nil {
		h.logger.Error("enroll fingerprint error", zap.Error(err), zap.Int64("studentID", st.ID))
		http.Error(w, http.StatusText(http.StatusBadGateway), http.StatusBadGateway)
		return
	}

	w.WriteHeader(http.StatusOK)
}

type attendanceResponse struct {
	Date      string  `json:"date"`
	Slot      string  `json:"slot"`
	IsPresent bool    `json:"is_present"`
	Price     float64 `json:"price"`
	MarkedAt  string  `json:"marked_at"`
}

func toAttendanceResponse(rec *model.AttendanceRecord) attendanceResponse {
	return attendanceResponse{
		Date:      rec.Date.Format(validation.DateLayout),
		Slot:      string(rec.Slot),
		IsPresent: rec.IsPresent,
		Price:     paiseToRupees(rec.PriceChargedPaise),
		MarkedAt:  rec.MarkedAt.Format(time.RFC3339),
	}
}

type markAttendanceRequest struct {
	Date string `json:"date"`
	Slot string `json:"slot"`
}

// MarkAttendanceByFingerprint отмечает присутствие текущего студента по отпечатку.
func (h *Handler) MarkAttendanceByFingerprint(w http.ResponseWriter, r *http.Request) {
	st, ok := h.currentStudent(w, r)
	if !ok {
		return
	}

	var req markAttendanceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	date := time.Now()
	if req.Date != "" {
		parsed, okDate := validation.ParseDate(req.Date)
		if !okDate {
			http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
			return
		}
		date = parsed
	}

	slot, ok := model.ParseMealSlot(req.Slot)
	if !ok {
		http.Error(w, http.StatusText(http.StatusUnprocessableEntity), http.StatusUnprocessableEntity)
		return
	}

	rec, err := h.service.MarkAttendanceByFingerprint(r.Context(), st.ID, date, slot)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrMembershipInactive):
			http.Error(w, http.StatusText(http.StatusForbidden), http.StatusForbidden)
		case errors.Is(err, service.ErrFingerprintMismatch):
			http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
		case errors.Is(err, repository.ErrFingerprintNotFound):
			http.Error(w, http.StatusText(http.StatusNotFound), http.StatusNotFound)
		default:
			h.logger.Error("mark attendance error", zap.Error(err), zap.Int64("studentID", st.ID))
			http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		}
		return
	}

	h.writeJSON(w, toAttendanceResponse(rec))
}

type recordAttendanceRequest struct {
	StudentID int64  `json:"student_id"`
	Date      string `json:"date"`
	Slot      string `json:"slot"`
	IsPresent bool   `json:"is_present"`
}

// RecordAttendance вручную отмечает посещение студента.
func (h *Handler) RecordAttendance(w http.ResponseWriter, r *http.Request) {
	var req recordAttendanceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	date, ok := validation.ParseDate(req.Date)
	if !ok || req.StudentID <= 0 {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	slot, ok := model.ParseMealSlot(req.Slot)
	if !ok {
		http.Error(w, http.StatusText(http.StatusUnprocessableEntity), http.StatusUnprocessableEntity)
		return
	}

	rec, err := h.service.RecordAttendance(r.Context(), req.StudentID, date, slot, req.IsPresent)
	if err != nil {
		h.logger.Error("record attendance error", zap.Error(err), zap.Int64("studentID", req.StudentID))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	h.writeJSON(w, toAttendanceResponse(rec))
}

// GetAttendance возвращает отметки посещаемости текущего студента за день.
func (h *Handler) GetAttendance(w http.ResponseWriter, r *http.Request) {
	st, ok := h.currentStudent(w, r)
	if !ok {
		return
	}

	date := time.Now()
	if v := r.URL.Query().Get("date"); v != "" {
		parsed, okDate := validation.ParseDate(v)
		if !okDate {
			http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
			return
		}
		date = parsed
	}

	records, err := h.service.GetAttendance(r.Context(), st.ID, date)
	if err != nil {
		h.logger.Error("get attendance error", zap.Error(err), zap.Int64("studentID", st.ID))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	resp := make([]attendanceResponse, 0, len(records))
	for i := range records {
		resp = append(resp, toAttendanceResponse(&records[i]))
	}

	h.writeJSON(w, resp)
}

type billResponse struct {
	ID          int64   `json:"id"`
	BillDate    string  `json:"bill_date"`
	AmountDue   float64 `json:"amount_due"`
	PaidStatus  bool    `json:"paid_status"`
	PaidAmount  float64 `json:"paid_amount"`
	PaymentDate *string `json:"payment_date,omitempty"`
}

func toBillResponse(b *model.Bill) billResponse {
	resp := billResponse{
		ID:         b.ID,
		BillDate:   b.BillDate.Format(validation.DateLayout),
		AmountDue:  paiseToRupees(b.AmountDuePaise),
		PaidStatus: b.PaidStatus,
		PaidAmount: paiseToRupees(b.PaidAmountPaise),
	}
	if b.PaymentDate != nil {
		s := b.PaymentDate.Format(time.RFC3339)
		resp.PaymentDate = &s
	}
	return resp
}

// GetBills возвращает счета текущего студента.
func (h *Handler) GetBills(w http.ResponseWriter, r *http.Request) {
	st, ok := h.currentStudent(w, r)
	if !ok {
		return
	}
	h.writeBills(w, r, st.ID)
}

// GetStudentBills возвращает счета указанного студента.
func (h *Handler) GetStudentBills(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r, "id")
	if !ok {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}
	h.writeBills(w, r, id)
}

func (h *Handler) writeBills(w http.ResponseWriter, r *http.Request, studentID int64) {
	bills, err := h.service.GetBills(r.Context(), studentID)
	if err != nil {
		h.logger.Error("get bills error", zap.Error(err), zap.Int64("studentID", studentID))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	if len(bills) == 0 {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	resp := make([]billResponse, 0, len(bills))
	for i := range bills {
		resp = append(resp, toBillResponse(&bills[i]))
	}

	h.writeJSON(w, resp)
}

type generateBillRequest struct {
	StudentID int64  `json:"student_id"`
	Date      string `json:"date"`
}

// GenerateBill пересчитывает дневной счёт студента.
func (h *Handler) GenerateBill(w http.ResponseWriter, r *http.Request) {
	var req generateBillRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	date, ok := validation.ParseDate(req.Date)
	if !ok || req.StudentID <= 0 {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	bill, err := h.service.GenerateDailyBill(r.Context(), req.StudentID, date)
	if err != nil {
		h.logger.Error("generate bill error", zap.Error(err), zap.Int64("studentID", req.StudentID))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	h.writeJSON(w, toBillResponse(bill))
}

type paymentRequestResponse struct {
	ID            int64   `json:"id"`
	StudentID     int64   `json:"student_id"`
	RequestDate   string  `json:"request_date"`
	Amount        float64 `json:"amount"`
	Status        string  `json:"status"`
	MilestoneDays int     `json:"milestone_days"`
	RequestNote   string  `json:"request_note,omitempty"`
	AdminNote     string  `json:"admin_note,omitempty"`
	BillIDs       []int64 `json:"bill_ids,omitempty"`
}

func toPaymentRequestResponse(req *model.PaymentRequest) paymentRequestResponse {
	return paymentRequestResponse{
		ID:            req.ID,
		StudentID:     req.StudentID,
		RequestDate:   req.RequestDate.Format(time.RFC3339),
		Amount:        paiseToRupees(req.AmountPaise),
		Status:        string(req.Status),
		MilestoneDays: req.MilestoneDays,
		RequestNote:   req.RequestNote,
		AdminNote:     req.AdminNote,
		BillIDs:       req.BillIDs,
	}
}

// GetPaymentRequests возвращает заявки на оплату текущего студента.
func (h *Handler) GetPaymentRequests(w http.ResponseWriter, r *http.Request) {
	st, ok := h.currentStudent(w, r)
	if !ok {
		return
	}
	h.writePaymentRequests(w, r, st.ID, "")
}

// ListPaymentRequests возвращает заявки на оплату с указанным статусом.
func (h *Handler) ListPaymentRequests(w http.ResponseWriter, r *http.Request) {
	status := model.RequestStatus(r.URL.Query().Get("status"))
	if status == "" {
		status = model.RequestStatusPending
	}
	h.writePaymentRequests(w, r, 0, status)
}

func (h *Handler) writePaymentRequests(w http.ResponseWriter, r *http.Request, studentID int64, status model.RequestStatus) {
	requests, err := h.service.GetPaymentRequests(r.Context(), studentID, status)
	if err != nil {
		h.logger.Error("list payment requests error", zap.Error(err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	resp := make([]paymentRequestResponse, 0, len(requests))
	for i := range requests {
		resp = append(resp, toPaymentRequestResponse(&requests[i]))
	}

	h.writeJSON(w, resp)
}

type settleRequestBody struct {
	Note string `json:"note"`
}

// SettlePaymentRequest одобряет или отклоняет заявку на оплату.
func (h *Handler) SettlePaymentRequest(approve bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		adminID, ok := middleware.GetUserIDFromContext(r.Context())
		if !ok {
			http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
			return
		}

		id, ok := idParam(r, "id")
		if !ok {
			http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
			return
		}

		var body settleRequestBody
		if r.Body != nil {
			_ = json.NewDecoder(r.Body).Decode(&body)
		}

		var err error
		if approve {
			err = h.service.ApprovePaymentRequest(r.Context(), id, adminID, body.Note)
		} else {
			err = h.service.RejectPaymentRequest(r.Context(), id, adminID, body.Note)
		}
		if err != nil {
			switch {
			case errors.Is(err, repository.ErrRequestNotFound):
				http.Error(w, http.StatusText(http.StatusNotFound), http.StatusNotFound)
			case errors.Is(err, repository.ErrRequestProcessed):
				http.Error(w, http.StatusText(http.StatusConflict), http.StatusConflict)
			default:
				h.logger.Error("settle payment request error", zap.Error(err), zap.Int64("requestID", id))
				http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
			}
			return
		}

		w.WriteHeader(http.StatusOK)
	}
}

type messPaymentResponse struct {
	ID          int64   `json:"id"`
	BillID      int64   `json:"bill_id"`
	PaymentDate string  `json:"payment_date"`
	Amount      float64 `json:"amount"`
	Method      string  `json:"method"`
	Note        string  `json:"note,omitempty"`
}

// GetMessPayments возвращает квитанции текущего студента за столовую.
func (h *Handler) GetMessPayments(w http.ResponseWriter, r *http.Request) {
	st, ok := h.currentStudent(w, r)
	if !ok {
		return
	}

	payments, err := h.service.GetMessPayments(r.Context(), st.ID)
	if err != nil {
		h.logger.Error("get mess payments error", zap.Error(err), zap.Int64("studentID", st.ID))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	if len(payments) == 0 {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	resp := make([]messPaymentResponse, 0, len(payments))
	for _, p := range payments {
		resp = append(resp, messPaymentResponse{
			ID:          p.ID,
			BillID:      p.BillID,
			PaymentDate: p.PaymentDate.Format(time.RFC3339),
			Amount:      paiseToRupees(p.AmountPaise),
			Method:      string(p.Method),
			Note:        p.Note,
		})
	}

	h.writeJSON(w, resp)
}

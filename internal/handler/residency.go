package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/mmeshcher/hostel-system/internal/model"
	"github.com/mmeshcher/hostel-system/internal/repository"
	"github.com/mmeshcher/hostel-system/internal/service"
	"github.com/mmeshcher/hostel-system/internal/validation"
)

type hostelRequest struct {
	Name string `json:"name"`
}

// CreateHostel создаёт корпус общежития.
func (h *Handler) CreateHostel(w http.ResponseWriter, r *http.Request) {
	var req hostelRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Name == "" {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	id, err := h.service.CreateHostel(r.Context(), req.Name)
	if err != nil {
		h.logger.Error("create hostel error", zap.Error(err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	h.writeJSON(w, map[string]int64{"id": id})
}

// ListHostels возвращает все корпуса.
func (h *Handler) ListHostels(w http.ResponseWriter, r *http.Request) {
	hostels, err := h.service.ListHostels(r.Context())
	if err != nil {
		h.logger.Error("list hostels error", zap.Error(err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	h.writeJSON(w, hostels)
}

type roomRequest struct {
	HostelID int64  `json:"hostel_id"`
	RoomNo   string `json:"room_no"`
	RoomType string `json:"room_type"`
	FloorNo  int    `json:"floor_no"`
	Location string `json:"location"`
}

type roomResponse struct {
	ID       int64  `json:"id"`
	HostelID int64  `json:"hostel_id"`
	RoomNo   string `json:"room_no"`
	RoomType string `json:"room_type"`
	FloorNo  int    `json:"floor_no"`
	Location string `json:"location,omitempty"`
	Capacity int    `json:"capacity"`
	Occupied int    `json:"occupied"`
}

func toRoomResponse(room *model.Room) roomResponse {
	return roomResponse{
		ID:       room.ID,
		HostelID: room.HostelID,
		RoomNo:   room.RoomNo,
		RoomType: string(room.RoomType),
		FloorNo:  room.FloorNo,
		Location: room.Location,
		Capacity: room.Capacity(),
		Occupied: room.Occupied,
	}
}

// CreateRoom создаёт комнату в корпусе.
func (h *Handler) CreateRoom(w http.ResponseWriter, r *http.Request) {
	var req roomRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	if req.HostelID <= 0 || req.RoomNo == "" {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	id, err := h.service.CreateRoom(r.Context(), model.Room{
		HostelID: req.HostelID,
		RoomNo:   req.RoomNo,
		RoomType: model.RoomType(req.RoomType),
		FloorNo:  req.FloorNo,
		Location: req.Location,
	})
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrRoomExists):
			http.Error(w, http.StatusText(http.StatusConflict), http.StatusConflict)
		default:
			h.logger.Error("create room error", zap.Error(err))
			http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		}
		return
	}

	h.writeJSON(w, map[string]int64{"id": id})
}

// ListRooms возвращает комнаты, опционально отфильтрованные по корпусу.
func (h *Handler) ListRooms(w http.ResponseWriter, r *http.Request) {
	var hostelID int64
	if v := r.URL.Query().Get("hostel_id"); v != "" {
		parsed, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
			return
		}
		hostelID = parsed
	}

	rooms, err := h.service.ListRooms(r.Context(), hostelID)
	if err != nil {
		h.logger.Error("list rooms error", zap.Error(err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	resp := make([]roomResponse, 0, len(rooms))
	for i := range rooms {
		resp = append(resp, toRoomResponse(&rooms[i]))
	}

	h.writeJSON(w, resp)
}

type studentRequest struct {
	UserID             *int64 `json:"user_id,omitempty"`
	RegistrationNumber string `json:"registration_number"`
	FirstName          string `json:"first_name"`
	LastName           string `json:"last_name"`
	FatherName         string `json:"father_name"`
	Department         string `json:"department"`
	ContactInfo        string `json:"contact_info"`
	Address            string `json:"address"`
}

// CreateStudent регистрирует студента.
func (h *Handler) CreateStudent(w http.ResponseWriter, r *http.Request) {
	var req studentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	if req.FirstName == "" {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	id, err := h.service.CreateStudent(r.Context(), model.Student{
		UserID:             req.UserID,
		RegistrationNumber: req.RegistrationNumber,
		FirstName:          req.FirstName,
		LastName:           req.LastName,
		FatherName:         req.FatherName,
		Department:         req.Department,
		ContactInfo:        req.ContactInfo,
		Address:            req.Address,
	})
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidRegistrationNumber):
			http.Error(w, http.StatusText(http.StatusUnprocessableEntity), http.StatusUnprocessableEntity)
		case errors.Is(err, repository.ErrStudentExists):
			http.Error(w, http.StatusText(http.StatusConflict), http.StatusConflict)
		default:
			h.logger.Error("create student error", zap.Error(err))
			http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		}
		return
	}

	h.writeJSON(w, map[string]int64{"id": id})
}

// ListStudents возвращает всех студентов.
func (h *Handler) ListStudents(w http.ResponseWriter, r *http.Request) {
	students, err := h.service.ListStudents(r.Context())
	if err != nil {
		h.logger.Error("list students error", zap.Error(err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	resp := make([]studentResponse, 0, len(students))
	for i := range students {
		resp = append(resp, toStudentResponse(&students[i]))
	}

	h.writeJSON(w, resp)
}

// GetStudent возвращает студента по идентификатору.
func (h *Handler) GetStudent(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r, "id")
	if !ok {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	st, err := h.service.GetStudent(r.Context(), id)
	if err != nil {
		if errors.Is(err, repository.ErrStudentNotFound) {
			http.Error(w, http.StatusText(http.StatusNotFound), http.StatusNotFound)
			return
		}
		h.logger.Error("get student error", zap.Error(err), zap.Int64("studentID", id))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	h.writeJSON(w, toStudentResponse(st))
}

type assignRoomRequest struct {
	RoomID int64 `json:"room_id"`
}

// AssignRoom заселяет студента в комнату.
func (h *Handler) AssignRoom(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r, "id")
	if !ok {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	var req assignRoomRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.RoomID <= 0 {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	if err := h.service.AssignRoom(r.Context(), id, req.RoomID); err != nil {
		switch {
		case errors.Is(err, repository.ErrStudentNotFound), errors.Is(err, repository.ErrRoomNotFound):
			http.Error(w, http.StatusText(http.StatusNotFound), http.StatusNotFound)
		case errors.Is(err, repository.ErrRoomFull):
			http.Error(w, http.StatusText(http.StatusConflict), http.StatusConflict)
		default:
			h.logger.Error("assign room error", zap.Error(err), zap.Int64("studentID", id), zap.Int64("roomID", req.RoomID))
			http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		}
		return
	}

	w.WriteHeader(http.StatusOK)
}

// ReleaseRoom выселяет студента из комнаты.
func (h *Handler) ReleaseRoom(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r, "id")
	if !ok {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	if err := h.service.ReleaseRoom(r.Context(), id); err != nil {
		if errors.Is(err, repository.ErrStudentNotFound) {
			http.Error(w, http.StatusText(http.StatusNotFound), http.StatusNotFound)
			return
		}
		h.logger.Error("release room error", zap.Error(err), zap.Int64("studentID", id))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusOK)
}

type feeSummaryResponse struct {
	TotalFee  float64 `json:"total_fee"`
	TotalPaid float64 `json:"total_paid"`
	Remaining float64 `json:"remaining"`
	Status    string  `json:"status"`
}

// GetFeeSummary возвращает состояние оплаты проживания текущего студента.
func (h *Handler) GetFeeSummary(w http.ResponseWriter, r *http.Request) {
	st, ok := h.currentStudent(w, r)
	if !ok {
		return
	}
	h.writeFeeSummary(w, r, st.ID)
}

// GetStudentFeeSummary возвращает состояние оплаты проживания указанного студента.
func (h *Handler) GetStudentFeeSummary(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r, "id")
	if !ok {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}
	h.writeFeeSummary(w, r, id)
}

func (h *Handler) writeFeeSummary(w http.ResponseWriter, r *http.Request, studentID int64) {
	summary, err := h.service.GetFeeSummary(r.Context(), studentID)
	if err != nil {
		if errors.Is(err, repository.ErrStudentNotFound) {
			http.Error(w, http.StatusText(http.StatusNotFound), http.StatusNotFound)
			return
		}
		h.logger.Error("fee summary error", zap.Error(err), zap.Int64("studentID", studentID))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	h.writeJSON(w, feeSummaryResponse{
		TotalFee:  paiseToRupees(summary.TotalFeePaise),
		TotalPaid: paiseToRupees(summary.TotalPaidPaise),
		Remaining: paiseToRupees(summary.RemainingPaise()),
		Status:    string(summary.Status),
	})
}

type feePaymentResponse struct {
	ID                int64   `json:"id"`
	FeeType           string  `json:"fee_type"`
	Amount            float64 `json:"amount"`
	ReceiptNumber     string  `json:"receipt_number"`
	VoucherNo         string  `json:"voucher_no"`
	Mode              string  `json:"mode"`
	InstallmentNumber int     `json:"installment_number"`
	PaymentDate       string  `json:"payment_date"`
}

func toFeePaymentResponse(p *model.FeePayment) feePaymentResponse {
	return feePaymentResponse{
		ID:                p.ID,
		FeeType:           p.FeeType,
		Amount:            paiseToRupees(p.AmountPaise),
		ReceiptNumber:     p.ReceiptNumber,
		VoucherNo:         p.VoucherNo,
		Mode:              p.Mode,
		InstallmentNumber: p.InstallmentNumber,
		PaymentDate:       p.PaymentDate.Format(time.RFC3339),
	}
}

type recordFeePaymentRequest struct {
	StudentID int64  `json:"student_id"`
	Mode      string `json:"mode"`
}

// RecordFeePayment записывает очередной семестровый взнос студента.
func (h *Handler) RecordFeePayment(w http.ResponseWriter, r *http.Request) {
	var req recordFeePaymentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.StudentID <= 0 {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	if req.Mode == "" {
		req.Mode = "CASH"
	}

	payment, err := h.service.RecordFeePayment(r.Context(), req.StudentID, req.Mode)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrStudentNotFound), errors.Is(err, repository.ErrRoomNotFound):
			http.Error(w, http.StatusText(http.StatusNotFound), http.StatusNotFound)
		case errors.Is(err, service.ErrAllInstallmentsPaid):
			http.Error(w, http.StatusText(http.StatusConflict), http.StatusConflict)
		default:
			h.logger.Error("record fee payment error", zap.Error(err), zap.Int64("studentID", req.StudentID))
			http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		}
		return
	}

	h.writeJSON(w, toFeePaymentResponse(payment))
}

// GetFeePayments возвращает платежи текущего студента за проживание.
func (h *Handler) GetFeePayments(w http.ResponseWriter, r *http.Request) {
	st, ok := h.currentStudent(w, r)
	if !ok {
		return
	}
	h.writeFeePayments(w, r, st.ID)
}

// GetStudentFeePayments возвращает платежи указанного студента за проживание.
func (h *Handler) GetStudentFeePayments(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r, "id")
	if !ok {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}
	h.writeFeePayments(w, r, id)
}

func (h *Handler) writeFeePayments(w http.ResponseWriter, r *http.Request, studentID int64) {
	payments, err := h.service.ListFeePayments(r.Context(), studentID)
	if err != nil {
		h.logger.Error("list fee payments error", zap.Error(err), zap.Int64("studentID", studentID))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	resp := make([]feePaymentResponse, 0, len(payments))
	for i := range payments {
		resp = append(resp, toFeePaymentResponse(&payments[i]))
	}

	h.writeJSON(w, resp)
}

type feeRequestBody struct {
	Amount          float64 `json:"amount"`
	BankName        string  `json:"bank_name"`
	TransactionID   string  `json:"transaction_id"`
	TransactionDate string  `json:"transaction_date"`
	Mode            string  `json:"mode"`
	Notes           string  `json:"notes"`
}

// SubmitFeeRequest подаёт заявку текущего студента на зачёт банковского перевода.
func (h *Handler) SubmitFeeRequest(w http.ResponseWriter, r *http.Request) {
	st, ok := h.currentStudent(w, r)
	if !ok {
		return
	}

	var req feeRequestBody
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	txDate, okDate := validation.ParseDate(req.TransactionDate)
	if !okDate || req.TransactionID == "" || !validation.IsValidAmount(req.Amount) {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	id, err := h.service.SubmitFeeRequest(r.Context(), model.FeeRequest{
		StudentID:       st.ID,
		AmountPaise:     rupeesToPaise(req.Amount),
		BankName:        req.BankName,
		TransactionID:   req.TransactionID,
		TransactionDate: txDate,
		Mode:            req.Mode,
		Notes:           req.Notes,
	})
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrTransactionExists):
			http.Error(w, http.StatusText(http.StatusConflict), http.StatusConflict)
		case errors.Is(err, service.ErrInvalidAmount):
			http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		default:
			h.logger.Error("submit fee request error", zap.Error(err), zap.Int64("studentID", st.ID))
			http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		}
		return
	}

	h.writeJSON(w, map[string]int64{"id": id})
}

type feeRequestResponse struct {
	ID              int64   `json:"id"`
	StudentID       int64   `json:"student_id"`
	Amount          float64 `json:"amount"`
	BankName        string  `json:"bank_name,omitempty"`
	TransactionID   string  `json:"transaction_id"`
	TransactionDate string  `json:"transaction_date"`
	Mode            string  `json:"mode,omitempty"`
	Status          string  `json:"status"`
	Notes           string  `json:"notes,omitempty"`
}

func toFeeRequestResponse(fr *model.FeeRequest) feeRequestResponse {
	return feeRequestResponse{
		ID:              fr.ID,
		StudentID:       fr.StudentID,
		Amount:          paiseToRupees(fr.AmountPaise),
		BankName:        fr.BankName,
		TransactionID:   fr.TransactionID,
		TransactionDate: fr.TransactionDate.Format(validation.DateLayout),
		Mode:            fr.Mode,
		Status:          string(fr.Status),
		Notes:           fr.Notes,
	}
}

// GetFeeRequests возвращает заявки текущего студента на зачёт переводов.
func (h *Handler) GetFeeRequests(w http.ResponseWriter, r *http.Request) {
	st, ok := h.currentStudent(w, r)
	if !ok {
		return
	}
	h.writeFeeRequests(w, r, st.ID, "")
}

// ListFeeRequests возвращает заявки на зачёт переводов с указанным статусом.
func (h *Handler) ListFeeRequests(w http.ResponseWriter, r *http.Request) {
	status := model.RequestStatus(r.URL.Query().Get("status"))
	if status == "" {
		status = model.RequestStatusPending
	}
	h.writeFeeRequests(w, r, 0, status)
}

func (h *Handler) writeFeeRequests(w http.ResponseWriter, r *http.Request, studentID int64, status model.RequestStatus) {
	requests, err := h.service.ListFeeRequests(r.Context(), studentID, status)
	if err != nil {
		h.logger.Error("list fee requests error", zap.Error(err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	resp := make([]feeRequestResponse, 0, len(requests))
	for i := range requests {
		resp = append(resp, toFeeRequestResponse(&requests[i]))
	}

	h.writeJSON(w, resp)
}

// ProcessFeeRequest одобряет или отклоняет заявку на зачёт перевода.
func (h *Handler) ProcessFeeRequest(approve bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := idParam(r, "id")
		if !ok {
			http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
			return
		}

		if err := h.service.ProcessFeeRequest(r.Context(), id, approve); err != nil {
			switch {
			case errors.Is(err, repository.ErrRequestNotFound):
				http.Error(w, http.StatusText(http.StatusNotFound), http.StatusNotFound)
			case errors.Is(err, repository.ErrRequestProcessed), errors.Is(err, service.ErrAllInstallmentsPaid):
				http.Error(w, http.StatusText(http.StatusConflict), http.StatusConflict)
			default:
				h.logger.Error("process fee request error", zap.Error(err), zap.Int64("requestID", id))
				http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
			}
			return
		}

		w.WriteHeader(http.StatusOK)
	}
}

package handler

import (
	"context"
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

type noticeRequest struct {
	Title     string `json:"title"`
	Content   string `json:"content"`
	ExpiresAt string `json:"expires_at,omitempty"`
}

// PublishNotice публикует объявление на доске объявлений.
func (h *Handler) PublishNotice(w http.ResponseWriter, r *http.Request) {
	adminID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
		return
	}

	var req noticeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Title == "" || req.Content == "" {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	notice := model.Notice{
		Title:     req.Title,
		Content:   req.Content,
		CreatedBy: adminID,
		IsActive:  true,
	}
	if req.ExpiresAt != "" {
		expires, okDate := validation.ParseDate(req.ExpiresAt)
		if !okDate {
			http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
			return
		}
		notice.ExpiresAt = &expires
	}

	id, err := h.service.PublishNotice(r.Context(), notice)
	if err != nil {
		h.logger.Error("publish notice error", zap.Error(err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	h.writeJSON(w, map[string]int64{"id": id})
}

type noticeResponse struct {
	ID        int64   `json:"id"`
	Title     string  `json:"title"`
	Content   string  `json:"content"`
	CreatedAt string  `json:"created_at"`
	ExpiresAt *string `json:"expires_at,omitempty"`
}

// ListNotices возвращает действующие объявления.
func (h *Handler) ListNotices(w http.ResponseWriter, r *http.Request) {
	notices, err := h.service.ListNotices(r.Context())
	if err != nil {
		h.logger.Error("list notices error", zap.Error(err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	resp := make([]noticeResponse, 0, len(notices))
	for _, n := range notices {
		item := noticeResponse{
			ID:        n.ID,
			Title:     n.Title,
			Content:   n.Content,
			CreatedAt: n.CreatedAt.Format(time.RFC3339),
		}
		if n.ExpiresAt != nil {
			s := n.ExpiresAt.Format(validation.DateLayout)
			item.ExpiresAt = &s
		}
		resp = append(resp, item)
	}

	h.writeJSON(w, resp)
}

type showcaseNoticeRequest struct {
	Title       string  `json:"title"`
	Description string  `json:"description"`
	NoticeType  string  `json:"notice_type"`
	FineAmount  float64 `json:"fine_amount,omitempty"`
	DueDate     string  `json:"due_date,omitempty"`
	StudentIDs  []int64 `json:"student_ids"`
}

// IssueShowcaseNotice выпускает дисциплинарное уведомление для студентов.
func (h *Handler) IssueShowcaseNotice(w http.ResponseWriter, r *http.Request) {
	adminID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
		return
	}

	var req showcaseNoticeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || len(req.StudentIDs) == 0 {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	notice := model.ShowcaseNotice{
		Title:       req.Title,
		Description: req.Description,
		NoticeType:  model.ShowcaseNoticeType(req.NoticeType),
		CreatedBy:   adminID,
	}
	if req.FineAmount > 0 {
		fine := rupeesToPaise(req.FineAmount)
		notice.FineAmountPaise = &fine
	}
	if req.DueDate != "" {
		due, okDate := validation.ParseDate(req.DueDate)
		if !okDate {
			http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
			return
		}
		notice.DueDate = &due
	}

	id, err := h.service.IssueShowcaseNotice(r.Context(), notice, req.StudentIDs)
	if err != nil {
		if errors.Is(err, service.ErrInvalidAmount) {
			http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
			return
		}
		h.logger.Error("issue showcase notice error", zap.Error(err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	h.writeJSON(w, map[string]int64{"id": id})
}

type showcaseNoticeResponse struct {
	ID          int64    `json:"id"`
	Title       string   `json:"title"`
	Description string   `json:"description"`
	NoticeType  string   `json:"notice_type"`
	FineAmount  *float64 `json:"fine_amount,omitempty"`
	DueDate     *string  `json:"due_date,omitempty"`
	Read        bool     `json:"read"`
	Paid        bool     `json:"paid"`
}

// ListShowcaseNotices возвращает дисциплинарные уведомления текущего студента.
func (h *Handler) ListShowcaseNotices(w http.ResponseWriter, r *http.Request) {
	st, ok := h.currentStudent(w, r)
	if !ok {
		return
	}

	notices, err := h.service.ListShowcaseNotices(r.Context(), st.ID)
	if err != nil {
		h.logger.Error("list showcase notices error", zap.Error(err), zap.Int64("studentID", st.ID))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	resp := make([]showcaseNoticeResponse, 0, len(notices))
	for _, n := range notices {
		item := showcaseNoticeResponse{
			ID:          n.Notice.ID,
			Title:       n.Notice.Title,
			Description: n.Notice.Description,
			NoticeType:  string(n.Notice.NoticeType),
			Read:        n.Link.Read,
			Paid:        n.Link.Paid,
		}
		if n.Notice.FineAmountPaise != nil {
			fine := paiseToRupees(*n.Notice.FineAmountPaise)
			item.FineAmount = &fine
		}
		if n.Notice.DueDate != nil {
			s := n.Notice.DueDate.Format(validation.DateLayout)
			item.DueDate = &s
		}
		resp = append(resp, item)
	}

	h.writeJSON(w, resp)
}

// MarkShowcaseNoticeRead отмечает уведомление прочитанным текущим студентом.
func (h *Handler) MarkShowcaseNoticeRead(w http.ResponseWriter, r *http.Request) {
	st, ok := h.currentStudent(w, r)
	if !ok {
		return
	}

	id, ok := idParam(r, "id")
	if !ok {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	if err := h.service.MarkShowcaseNoticeRead(r.Context(), st.ID, id); err != nil {
		if errors.Is(err, repository.ErrNoticeNotFound) {
			http.Error(w, http.StatusText(http.StatusNotFound), http.StatusNotFound)
			return
		}
		h.logger.Error("mark notice read error", zap.Error(err), zap.Int64("noticeID", id))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusOK)
}

type markNoticePaidRequest struct {
	StudentID int64 `json:"student_id"`
}

// MarkShowcaseNoticePaid отмечает штраф по уведомлению оплаченным.
func (h *Handler) MarkShowcaseNoticePaid(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r, "id")
	if !ok {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	var req markNoticePaidRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.StudentID <= 0 {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	if err := h.service.MarkShowcaseNoticePaid(r.Context(), req.StudentID, id); err != nil {
		if errors.Is(err, repository.ErrNoticeNotFound) {
			http.Error(w, http.StatusText(http.StatusNotFound), http.StatusNotFound)
			return
		}
		h.logger.Error("mark notice paid error", zap.Error(err), zap.Int64("noticeID", id))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusOK)
}

type visitorRequestBody struct {
	Name        string `json:"name"`
	ContactInfo string `json:"contact_info"`
	IDProof     string `json:"id_proof"`
	Purpose     string `json:"purpose"`
	VisitDate   string `json:"visit_date"`
}

// RequestVisitor регистрирует посетителя и создаёт заявку на пропуск.
func (h *Handler) RequestVisitor(w http.ResponseWriter, r *http.Request) {
	st, ok := h.currentStudent(w, r)
	if !ok {
		return
	}

	var req visitorRequestBody
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Name == "" {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	visitDate, okDate := validation.ParseDate(req.VisitDate)
	if !okDate {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	requestID, err := h.service.RequestVisitor(r.Context(), model.Visitor{
		StudentID:   st.ID,
		Name:        req.Name,
		ContactInfo: req.ContactInfo,
		IDProof:     req.IDProof,
		Purpose:     req.Purpose,
		VisitDate:   visitDate,
	})
	if err != nil {
		h.logger.Error("request visitor error", zap.Error(err), zap.Int64("studentID", st.ID))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	h.writeJSON(w, map[string]int64{"request_id": requestID})
}

type visitorRequestResponse struct {
	ID          int64   `json:"id"`
	StudentID   int64   `json:"student_id"`
	VisitorID   int64   `json:"visitor_id"`
	RequestDate string  `json:"request_date"`
	Status      string  `json:"status"`
	TimeIn      *string `json:"time_in,omitempty"`
	TimeOut     *string `json:"time_out,omitempty"`
}

func toVisitorRequestResponse(vr *model.VisitorRequest) visitorRequestResponse {
	resp := visitorRequestResponse{
		ID:          vr.ID,
		StudentID:   vr.StudentID,
		VisitorID:   vr.VisitorID,
		RequestDate: vr.RequestDate.Format(time.RFC3339),
		Status:      string(vr.Status),
	}
	if vr.TimeIn != nil {
		s := vr.TimeIn.Format(time.RFC3339)
		resp.TimeIn = &s
	}
	if vr.TimeOut != nil {
		s := vr.TimeOut.Format(time.RFC3339)
		resp.TimeOut = &s
	}
	return resp
}

// GetVisitorRequests возвращает заявки текущего студента на пропуск посетителей.
func (h *Handler) GetVisitorRequests(w http.ResponseWriter, r *http.Request) {
	st, ok := h.currentStudent(w, r)
	if !ok {
		return
	}
	h.writeVisitorRequests(w, r, st.ID, "")
}

// ListVisitorRequests возвращает заявки на пропуск посетителей с указанным статусом.
func (h *Handler) ListVisitorRequests(w http.ResponseWriter, r *http.Request) {
	status := model.RequestStatus(r.URL.Query().Get("status"))
	if status == "" {
		status = model.RequestStatusPending
	}
	h.writeVisitorRequests(w, r, 0, status)
}

func (h *Handler) writeVisitorRequests(w http.ResponseWriter, r *http.Request, studentID int64, status model.RequestStatus) {
	requests, err := h.service.ListVisitorRequests(r.Context(), studentID, status)
	if err != nil {
		h.logger.Error("list visitor requests error", zap.Error(err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	resp := make([]visitorRequestResponse, 0, len(requests))
	for i := range requests {
		resp = append(resp, toVisitorRequestResponse(&requests[i]))
	}

	h.writeJSON(w, resp)
}

// ProcessVisitorRequest одобряет или отклоняет заявку на пропуск посетителя.
func (h *Handler) ProcessVisitorRequest(approve bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := idParam(r, "id")
		if !ok {
			http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
			return
		}

		if err := h.service.ProcessVisitorRequest(r.Context(), id, approve); err != nil {
			if errors.Is(err, repository.ErrVisitorNotFound) {
				http.Error(w, http.StatusText(http.StatusNotFound), http.StatusNotFound)
				return
			}
			h.logger.Error("process visitor request error", zap.Error(err), zap.Int64("requestID", id))
			http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
			return
		}

		w.WriteHeader(http.StatusOK)
	}
}

// CheckInVisitor фиксирует время входа посетителя.
func (h *Handler) CheckInVisitor(w http.ResponseWriter, r *http.Request) {
	h.setVisitorTime(w, r, h.service.CheckInVisitor)
}

// CheckOutVisitor фиксирует время выхода посетителя.
func (h *Handler) CheckOutVisitor(w http.ResponseWriter, r *http.Request) {
	h.setVisitorTime(w, r, h.service.CheckOutVisitor)
}

func (h *Handler) setVisitorTime(w http.ResponseWriter, r *http.Request, fn func(ctx context.Context, requestID int64) error) {
	id, ok := idParam(r, "id")
	if !ok {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	if err := fn(r.Context(), id); err != nil {
		if errors.Is(err, repository.ErrVisitorNotFound) {
			http.Error(w, http.StatusText(http.StatusNotFound), http.StatusNotFound)
			return
		}
		h.logger.Error("set visitor time error", zap.Error(err), zap.Int64("requestID", id))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusOK)
}

type complaintRequest struct {
	Description string `json:"description"`
	Type        string `json:"type"`
}

// SubmitComplaint регистрирует жалобу текущего студента.
func (h *Handler) SubmitComplaint(w http.ResponseWriter, r *http.Request) {
	st, ok := h.currentStudent(w, r)
	if !ok {
		return
	}

	var req complaintRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Description == "" {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	id, err := h.service.SubmitComplaint(r.Context(), model.Complaint{
		StudentID:   st.ID,
		Description: req.Description,
		Type:        req.Type,
	})
	if err != nil {
		h.logger.Error("submit complaint error", zap.Error(err), zap.Int64("studentID", st.ID))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	h.writeJSON(w, map[string]int64{"id": id})
}

type complaintResponse struct {
	ID          int64  `json:"id"`
	StudentID   int64  `json:"student_id"`
	Description string `json:"description"`
	Type        string `json:"type,omitempty"`
	CreatedAt   string `json:"created_at"`
	IsRead      bool   `json:"is_read"`
}

// ListComplaints возвращает все жалобы.
func (h *Handler) ListComplaints(w http.ResponseWriter, r *http.Request) {
	complaints, err := h.service.ListComplaints(r.Context())
	if err != nil {
		h.logger.Error("list complaints error", zap.Error(err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	resp := make([]complaintResponse, 0, len(complaints))
	for _, c := range complaints {
		resp = append(resp, complaintResponse{
			ID:          c.ID,
			StudentID:   c.StudentID,
			Description: c.Description,
			Type:        c.Type,
			CreatedAt:   c.CreatedAt.Format(time.RFC3339),
			IsRead:      c.IsRead,
		})
	}

	h.writeJSON(w, resp)
}

// MarkComplaintRead отмечает жалобу рассмотренной.
func (h *Handler) MarkComplaintRead(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r, "id")
	if !ok {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	if err := h.service.MarkComplaintRead(r.Context(), id); err != nil {
		if errors.Is(err, repository.ErrComplaintNotFound) {
			http.Error(w, http.StatusText(http.StatusNotFound), http.StatusNotFound)
			return
		}
		h.logger.Error("mark complaint read error", zap.Error(err), zap.Int64("complaintID", id))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusOK)
}

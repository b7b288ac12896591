package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/sirupsen/logrus"

	"noticeflow/internal/notice"
	"noticeflow/internal/refdata"
	"noticeflow/internal/suspension"
	dErrors "noticeflow/pkg/domain-errors"
)

// Service is the slice of the suspension service the ops endpoints need.
type Service interface {
	Apply(ctx context.Context, req suspension.Request) []suspension.Result
	Revive(ctx context.Context, req suspension.Request) []suspension.Result
	Check(ctx context.Context, req suspension.Request) []suspension.Result
}

// Handler exposes manual suspension/revival over the ops HTTP surface. Staff
// tooling and the partner backend both speak this endpoint; the source channel
// in the body decides which reason-code set applies.
type Handler struct {
	service Service
	log     *logrus.Logger
}

func New(service Service, log *logrus.Logger) *Handler {
	return &Handler{service: service, log: log}
}

// Register mounts the suspension routes.
func (h *Handler) Register(r chi.Router) {
	r.Post("/v1/suspensions", h.handleApply)
	r.Post("/v1/suspensions/check", h.handleCheck)
	r.Post("/v1/revivals", h.handleRevive)
}

type requestBody struct {
	NoticeNos           []string `json:"notice_nos"`
	SuspensionType      string   `json:"suspension_type"`
	ReasonCode          string   `json:"reason_code"`
	Remarks             string   `json:"remarks"`
	Authorizer          string   `json:"authorizer"`
	SourceChannel       string   `json:"source_channel"`
	CaseRef             string   `json:"case_ref,omitempty"`
	ExplicitRevivalDays int      `json:"explicit_revival_days,omitempty"`
}

type resultBody struct {
	NoticeNo         string `json:"notice_no"`
	Code             string `json:"code"`
	Message          string `json:"message,omitempty"`
	DueDateOfRevival string `json:"due_date_of_revival,omitempty"`
	Seq              int    `json:"seq,omitempty"`
}

func (h *Handler) handleApply(w http.ResponseWriter, r *http.Request) {
	h.handle(w, r, h.service.Apply)
}

func (h *Handler) handleCheck(w http.ResponseWriter, r *http.Request) {
	h.handle(w, r, h.service.Check)
}

func (h *Handler) handleRevive(w http.ResponseWriter, r *http.Request) {
	h.handle(w, r, h.service.Revive)
}

func (h *Handler) handle(w http.ResponseWriter, r *http.Request, op func(context.Context, suspension.Request) []suspension.Result) {
	var body requestBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, dErrors.New(dErrors.CodeBadRequest, "malformed request body"))
		return
	}
	if len(body.NoticeNos) == 0 {
		writeError(w, dErrors.New(dErrors.CodeBadRequest, "notice_nos must not be empty"))
		return
	}

	req := suspension.Request{
		SuspensionType:      notice.SuspensionType(body.SuspensionType),
		ReasonCode:          body.ReasonCode,
		Remarks:             body.Remarks,
		Authorizer:          body.Authorizer,
		SourceChannel:       refdata.Source(body.SourceChannel),
		CaseRef:             body.CaseRef,
		ExplicitRevivalDays: body.ExplicitRevivalDays,
	}
	for _, no := range body.NoticeNos {
		req.NoticeNos = append(req.NoticeNos, notice.NoticeNo(no))
	}

	results := op(r.Context(), req)

	out := make([]resultBody, 0, len(results))
	for _, res := range results {
		rb := resultBody{
			NoticeNo: res.NoticeNo.String(),
			Code:     res.Code(),
			Seq:      res.Seq,
		}
		if res.Err != nil {
			rb.Message = res.Err.Error()
		}
		if res.DueDateOfRevival != nil {
			rb.DueDateOfRevival = res.DueDateOfRevival.Format("2006-01-02")
		}
		out = append(out, rb)
	}

	writeJSON(w, http.StatusOK, map[string]any{"results": out})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, err *dErrors.Error) {
	status := http.StatusInternalServerError
	switch err.Code {
	case dErrors.CodeBadRequest, dErrors.CodeInvalidInput:
		status = http.StatusBadRequest
	case dErrors.CodeNotFound:
		status = http.StatusNotFound
	case dErrors.CodePreconditionFailed:
		status = http.StatusUnprocessableEntity
	}
	body := map[string]string{"error": string(err.Code)}
	if err.Code != dErrors.CodeInternal {
		body["error_description"] = err.Message
	}
	writeJSON(w, status, body)
}

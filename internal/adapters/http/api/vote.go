package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/okian/arena/internal/domain/model"
	"github.com/okian/arena/internal/domain/rating"
	"github.com/okian/arena/pkg/logger"
)

const maxVoteBody = 1 << 16

var validate = validator.New(validator.WithRequiredStructEnabled())

// VoteDependencies defines the interface for vote submission.
type VoteDependencies interface {
	SubmitVote(ctx context.Context, winner, loser, voteID string) (model.VoteReceipt, error)
	Suggest(name string) string
}

// VoteHandler handles vote requests.
type VoteHandler struct {
	deps   VoteDependencies
	logger logger.Logger
}

// NewVoteHandler creates a new vote handler.
func NewVoteHandler(deps VoteDependencies, l logger.Logger) *VoteHandler {
	return &VoteHandler{deps: deps, logger: l}
}

// voteRequest mirrors the OpenAPI schema for POST /vote.
type voteRequest struct {
	Winner string `json:"winner" validate:"required,max=128"`
	Loser  string `json:"loser" validate:"required,max=128,nefield=Winner"`
	VoteID string `json:"vote_id" validate:"omitempty,uuid"`
}

type voteResponse struct {
	Success   bool           `json:"success"`
	Duplicate bool           `json:"duplicate"`
	VoteID    string         `json:"vote_id"`
	Seq       int64          `json:"seq,omitempty"`
	Outcome   *model.Outcome `json:"outcome,omitempty"`
}

// HandlePostVote handles POST /vote requests. A missing vote_id is
// generated so every stored vote can be deduplicated on retry.
func (h *VoteHandler) HandlePostVote(w http.ResponseWriter, r *http.Request) {
	const op = "api.post_vote"
	var req voteRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxVoteBody)).Decode(&req); err != nil {
		fail(w, WrapKind(op, ErrBadRequest, err))
		return
	}
	req.Winner = strings.TrimSpace(req.Winner)
	req.Loser = strings.TrimSpace(req.Loser)
	if err := validate.Struct(req); err != nil {
		fail(w, WrapKind(op, ErrBadRequest, describe(err)))
		return
	}
	if req.VoteID == "" {
		req.VoteID = uuid.NewString()
	}

	rec, err := h.deps.SubmitVote(r.Context(), req.Winner, req.Loser, req.VoteID)
	if err != nil {
		var unknown *rating.UnknownItemError
		if errors.As(err, &unknown) {
			err = withSuggestion(err, unknown.Name, h.deps.Suggest)
		}
		apiErr := Wrap(op, err)
		if errors.Is(apiErr.Kind, ErrInternal) || errors.Is(apiErr.Kind, ErrUnavailable) {
			h.logger.Error(r.Context(), "vote failed",
				logger.String("vote_id", req.VoteID),
				logger.Error(err),
			)
		}
		fail(w, apiErr)
		return
	}

	resp := voteResponse{Success: true, Duplicate: rec.Duplicate, VoteID: req.VoteID}
	if !rec.Duplicate {
		resp.Seq = rec.Event.Seq
		resp.Outcome = &rec.Outcome
	}
	writeJSON(w, http.StatusOK, resp)
}

// describe flattens validator errors into one readable message.
func describe(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	parts := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		field := strings.ToLower(fe.Field())
		if field == "voteid" {
			field = "vote_id"
		}
		switch fe.Tag() {
		case "required":
			parts = append(parts, "missing "+field)
		case "nefield":
			parts = append(parts, "winner and loser must differ")
		default:
			parts = append(parts, fmt.Sprintf("invalid %s (%s)", field, fe.Tag()))
		}
	}
	return errors.New(strings.Join(parts, "; "))
}

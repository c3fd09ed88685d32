package api

import (
	"context"
	"net/http"
	"net/url"

	"github.com/quizbd/quizbd-go/internal/domain"
)

// SubmitResultRequest is the single submission payload of a quiz attempt.
// Answers covers answered positions only; the server computes partial
// credit from however many answers arrive.
type SubmitResultRequest struct {
	QuizID  string          `json:"quizId"`
	Answers []domain.Answer `json:"answers"`
	IsTrial bool            `json:"isTrial"`
}

// SubmitResult posts a finished attempt for grading.
func (c *Client) SubmitResult(ctx context.Context, req SubmitResultRequest) error {
	return c.do(ctx, http.MethodPost, "/results", req, nil)
}

// ListResults returns every graded result of the logged-in student.
func (c *Client) ListResults(ctx context.Context) ([]domain.Result, error) {
	var rs []domain.Result
	if err := c.do(ctx, http.MethodGet, "/results", nil, &rs); err != nil {
		return nil, err
	}

	return rs, nil
}

// Explanations reviews the wrongly answered questions of a graded attempt.
// This is the only call that ever sees correct options and explanations.
func (c *Client) Explanations(ctx context.Context, quizID string, trial bool) ([]domain.WrongAnswer, error) {
	path := "/results/" + url.PathEscape(quizID) + "/explanations"
	if trial {
		path += "?trial=true"
	}

	var env envelope
	if err := c.do(ctx, http.MethodGet, path, nil, &env); err != nil {
		return nil, err
	}

	var ws []domain.WrongAnswer
	if err := unwrapData(env, &ws); err != nil {
		return nil, err
	}

	return ws, nil
}

// SubjectProgress returns the per-subject completion summary.
func (c *Client) SubjectProgress(ctx context.Context) ([]domain.SubjectProgress, error) {
	var ps []domain.SubjectProgress
	if err := c.do(ctx, http.MethodGet, "/progress/subjects", nil, &ps); err != nil {
		return nil, err
	}

	return ps, nil
}

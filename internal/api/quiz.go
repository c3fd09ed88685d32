package api

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/quizbd/quizbd-go/internal/domain"
)

// FetchQuiz loads one quiz definition. With trial set the server returns
// the truncated trial variant of the question set.
func (c *Client) FetchQuiz(ctx context.Context, id string, trial bool) (*domain.Quiz, error) {
	path := "/quizzes/" + url.PathEscape(id)
	if trial {
		path += "?trial=true"
	}

	var q domain.Quiz
	if err := c.do(ctx, http.MethodGet, path, nil, &q); err != nil {
		return nil, err
	}

	return &q, nil
}

// FreeQuizzes lists the free models for a class level.
func (c *Client) FreeQuizzes(ctx context.Context, classLevel int) ([]domain.Quiz, error) {
	var qs []domain.Quiz
	err := c.do(ctx, http.MethodGet, fmt.Sprintf("/quizzes/free?classLevel=%d", classLevel), nil, &qs)
	if err != nil {
		return nil, err
	}

	return qs, nil
}

// PaidSubjects lists the purchasable subjects for a class level.
func (c *Client) PaidSubjects(ctx context.Context, classLevel int) ([]string, error) {
	var subjects []string
	err := c.do(ctx, http.MethodGet, fmt.Sprintf("/quizzes/paid/subjects?classLevel=%d", classLevel), nil, &subjects)
	if err != nil {
		return nil, err
	}

	return subjects, nil
}

// PaidModels lists the paid models of one subject for a class level.
func (c *Client) PaidModels(ctx context.Context, classLevel int, subject string) ([]domain.Quiz, error) {
	path := fmt.Sprintf("/quizzes/paid/models?classLevel=%d&subject=%s", classLevel, url.QueryEscape(subject))

	var qs []domain.Quiz
	if err := c.do(ctx, http.MethodGet, path, nil, &qs); err != nil {
		return nil, err
	}

	return qs, nil
}

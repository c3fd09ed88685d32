package api

import (
	"context"
	"net/http"
	"net/url"

	"github.com/quizbd/quizbd-go/internal/domain"
)

// TeacherQuizzes lists every quiz owned by the logged-in teacher,
// drafts included.
func (c *Client) TeacherQuizzes(ctx context.Context) ([]domain.Quiz, error) {
	var qs []domain.Quiz
	if err := c.do(ctx, http.MethodGet, "/quizzes/teacher", nil, &qs); err != nil {
		return nil, err
	}

	return qs, nil
}

func (c *Client) CreateQuiz(ctx context.Context, q domain.Quiz) (*domain.Quiz, error) {
	var created domain.Quiz
	if err := c.do(ctx, http.MethodPost, "/quizzes", q, &created); err != nil {
		return nil, err
	}

	return &created, nil
}

func (c *Client) UpdateQuiz(ctx context.Context, id string, q domain.Quiz) (*domain.Quiz, error) {
	var updated domain.Quiz
	if err := c.do(ctx, http.MethodPut, "/quizzes/"+url.PathEscape(id), q, &updated); err != nil {
		return nil, err
	}

	return &updated, nil
}

func (c *Client) DeleteQuiz(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/quizzes/"+url.PathEscape(id), nil, nil)
}

// TogglePublish flips a quiz between draft and published and reports the
// new state.
func (c *Client) TogglePublish(ctx context.Context, id string) (bool, error) {
	var env envelope
	if err := c.do(ctx, http.MethodPatch, "/quizzes/"+url.PathEscape(id)+"/publish", nil, &env); err != nil {
		return false, err
	}

	var resp struct {
		IsPublished bool `json:"isPublished"`
	}
	if err := unwrapData(env, &resp); err != nil {
		return false, err
	}

	return resp.IsPublished, nil
}

// ImportQuiz uploads a whole quiz definition in one call.
func (c *Client) ImportQuiz(ctx context.Context, q domain.Quiz) (*domain.Quiz, error) {
	var created domain.Quiz
	if err := c.do(ctx, http.MethodPost, "/quizzes/import", q, &created); err != nil {
		return nil, err
	}

	return &created, nil
}

func (c *Client) TeacherAnalytics(ctx context.Context) (*domain.TeacherAnalytics, error) {
	var a domain.TeacherAnalytics
	if err := c.do(ctx, http.MethodGet, "/teachers/analytics", nil, &a); err != nil {
		return nil, err
	}

	return &a, nil
}

type TeacherProfileRequest struct {
	Name    string `json:"name"`
	Subject string `json:"subject,omitempty"`
	Phone   string `json:"phone,omitempty"`
}

func (c *Client) CreateTeacherProfile(ctx context.Context, req TeacherProfileRequest) (*domain.User, error) {
	return c.saveTeacherProfile(ctx, http.MethodPost, req)
}

func (c *Client) UpdateTeacherProfile(ctx context.Context, req TeacherProfileRequest) (*domain.User, error) {
	return c.saveTeacherProfile(ctx, http.MethodPut, req)
}

func (c *Client) saveTeacherProfile(ctx context.Context, method string, req TeacherProfileRequest) (*domain.User, error) {
	var env envelope
	if err := c.do(ctx, method, "/teachers/profile", req, &env); err != nil {
		return nil, err
	}

	var u domain.User
	if err := unwrapData(env, &u); err != nil {
		return nil, err
	}

	return &u, nil
}

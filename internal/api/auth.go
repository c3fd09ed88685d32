package api

import (
	"context"
	"io"
	"net/http"
	"strconv"

	"github.com/quizbd/quizbd-go/internal/domain"
	"github.com/quizbd/quizbd-go/internal/errors"
)

type LoginStudentRequest struct {
	Name     string `json:"name"`
	Password string `json:"password"`
}

// LoginStudent exchanges student credentials for a session.
func (c *Client) LoginStudent(ctx context.Context, req LoginStudentRequest) (*domain.Session, error) {
	return c.authenticate(ctx, "/auth/student/login", req)
}

type RegisterStudentRequest struct {
	Name       string `json:"name"`
	ClassLevel int    `json:"classLevel"`
	Password   string `json:"password"`
	Email      string `json:"email,omitempty"`
}

// RegisterStudent creates a student account and returns its first session.
func (c *Client) RegisterStudent(ctx context.Context, req RegisterStudentRequest) (*domain.Session, error) {
	return c.authenticate(ctx, "/auth/student/register", req)
}

type LoginTeacherRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (c *Client) LoginTeacher(ctx context.Context, req LoginTeacherRequest) (*domain.Session, error) {
	return c.authenticate(ctx, "/auth/teacher/login", req)
}

// authenticate posts credentials and validates the enveloped session.
// A response missing the token or the user is an authentication failure,
// never a half-applied login.
func (c *Client) authenticate(ctx context.Context, path string, body any) (*domain.Session, error) {
	var env envelope
	if err := c.do(ctx, http.MethodPost, path, body, &env); err != nil {
		return nil, err
	}

	var ss domain.Session
	if err := unwrapData(env, &ss); err != nil {
		return nil, errors.New(errors.CodeUnauthenticated,
			errors.WithMessagef("invalid auth response"),
			errors.WithCause(err),
		)
	}

	if ss.Token == "" || ss.User.ID == "" {
		return nil, errors.New(errors.CodeUnauthenticated,
			errors.WithMessagef("auth response missing token or user"),
		)
	}

	return &ss, nil
}

type CreateProfileRequest struct {
	Phone      string
	ClassLevel int
	AvatarName string
	Avatar     io.Reader
}

// CreateProfile completes student onboarding. The avatar travels as a
// multipart upload next to the scalar fields.
func (c *Client) CreateProfile(ctx context.Context, req CreateProfileRequest) (*domain.User, error) {
	fields := map[string]string{
		"phone":      req.Phone,
		"classLevel": strconv.Itoa(req.ClassLevel),
	}

	var env envelope
	if err := c.doMultipart(ctx, http.MethodPost, "/users/profile", fields, "avatar", req.AvatarName, req.Avatar, &env); err != nil {
		return nil, err
	}

	var u domain.User
	if err := unwrapData(env, &u); err != nil {
		return nil, err
	}

	return &u, nil
}

// UpdateAvatar replaces the profile image of the logged-in user.
func (c *Client) UpdateAvatar(ctx context.Context, name string, avatar io.Reader) (*domain.User, error) {
	var env envelope
	if err := c.doMultipart(ctx, http.MethodPut, "/users/profile", nil, "avatar", name, avatar, &env); err != nil {
		return nil, err
	}

	var u domain.User
	if err := unwrapData(env, &u); err != nil {
		return nil, err
	}

	return &u, nil
}

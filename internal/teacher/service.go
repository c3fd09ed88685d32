// Package teacher covers the content-management flows: quiz authoring,
// JSON import, publishing, the price table and dashboard analytics.
package teacher

import (
	"context"
	"encoding/json"
	"io"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/quizbd/quizbd-go/internal/api"
	"github.com/quizbd/quizbd-go/internal/domain"
	"github.com/quizbd/quizbd-go/internal/errors"
	"github.com/quizbd/quizbd-go/internal/session"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

type Config struct {
	API     *api.Client
	Session *session.Store
}

type Service struct {
	api     *api.Client
	session *session.Store
}

func NewService(c Config) *Service {
	return &Service{
		api:     c.API,
		session: c.Session,
	}
}

type LoginInput struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// Login authenticates a teacher and installs the session.
func (s *Service) Login(ctx context.Context, in LoginInput) (*domain.User, error) {
	if err := validate.Struct(in); err != nil {
		return nil, errors.New(errors.CodeInvalidArgument, errors.WithMessagef("valid email and password are required"))
	}

	ss, err := s.api.LoginTeacher(ctx, api.LoginTeacherRequest{Email: in.Email, Password: in.Password})
	if err != nil {
		return nil, err
	}

	s.session.Login(ss.Token, ss.User)
	return &ss.User, nil
}

// guard rejects callers without an active teacher session before any
// content mutation leaves the client.
func (s *Service) guard() error {
	if s.session.Role() != domain.RoleTeacher {
		return errors.New(errors.CodePermissionDenied, errors.WithMessagef("teacher access only"))
	}

	return nil
}

// QuizInput is the authoring payload of the quiz builder.
type QuizInput struct {
	Title      string          `json:"title" validate:"required"`
	Subject    string          `json:"subject" validate:"required"`
	ClassLevel int             `json:"classLevel" validate:"required,gte=6,lte=10"`
	Duration   int             `json:"duration" validate:"required,gt=0"`
	Questions  []QuestionInput `json:"questions" validate:"required,min=1,dive"`
}

type QuestionInput struct {
	Text          string   `json:"questionText" validate:"required"`
	Options       []string `json:"options" validate:"required,min=2,max=6,dive,required"`
	CorrectOption int      `json:"correctOption"`
}

func (in QuizInput) validate() error {
	if err := validate.Struct(in); err != nil {
		return errors.New(errors.CodeInvalidArgument, errors.WithMessagef("invalid quiz: %v", err))
	}

	for i, q := range in.Questions {
		if q.CorrectOption < 0 || q.CorrectOption >= len(q.Options) {
			return errors.New(errors.CodeInvalidArgument,
				errors.WithMessagef("question %d: correct option %d out of range", i+1, q.CorrectOption))
		}
	}

	return nil
}

func (in QuizInput) toQuiz() domain.Quiz {
	q := domain.Quiz{
		Title:      in.Title,
		Subject:    in.Subject,
		ClassLevel: in.ClassLevel,
		Duration:   in.Duration,
	}

	for _, qu := range in.Questions {
		co := qu.CorrectOption
		q.Questions = append(q.Questions, domain.Question{
			Text:          qu.Text,
			Options:       qu.Options,
			CorrectOption: &co,
		})
	}

	return q
}

// Quizzes lists every quiz of the logged-in teacher, drafts included.
func (s *Service) Quizzes(ctx context.Context) ([]domain.Quiz, error) {
	if err := s.guard(); err != nil {
		return nil, err
	}

	return s.api.TeacherQuizzes(ctx)
}

// Save validates and creates or updates a quiz; an empty id creates.
func (s *Service) Save(ctx context.Context, id string, in QuizInput) (*domain.Quiz, error) {
	if err := s.guard(); err != nil {
		return nil, err
	}

	if err := in.validate(); err != nil {
		return nil, err
	}

	if id == "" {
		return s.api.CreateQuiz(ctx, in.toQuiz())
	}

	return s.api.UpdateQuiz(ctx, id, in.toQuiz())
}

func (s *Service) Delete(ctx context.Context, id string) error {
	if err := s.guard(); err != nil {
		return err
	}

	return s.api.DeleteQuiz(ctx, id)
}

// TogglePublish flips a quiz between draft and published.
func (s *Service) TogglePublish(ctx context.Context, id string) (bool, error) {
	if err := s.guard(); err != nil {
		return false, err
	}

	return s.api.TogglePublish(ctx, id)
}

// ImportJSON reads a whole quiz definition from r, validates it with the
// same rules as the builder, and uploads it in one call.
func (s *Service) ImportJSON(ctx context.Context, r io.Reader) (*domain.Quiz, error) {
	if err := s.guard(); err != nil {
		return nil, err
	}

	var in QuizInput
	if err := json.NewDecoder(r).Decode(&in); err != nil {
		return nil, errors.New(errors.CodeInvalidArgument, errors.WithMessagef("invalid quiz JSON structure"), errors.WithCause(err))
	}

	if err := in.validate(); err != nil {
		return nil, err
	}

	return s.api.ImportQuiz(ctx, in.toQuiz())
}

type PriceInput struct {
	ClassLevel int             `validate:"required,gte=6,lte=10"`
	Subject    string          `validate:"required"`
	Amount     decimal.Decimal `validate:"required"`
}

// SetPrice upserts one entry of the unlock price table.
func (s *Service) SetPrice(ctx context.Context, in PriceInput) error {
	if err := s.guard(); err != nil {
		return err
	}

	if err := validate.Struct(in); err != nil || !in.Amount.IsPositive() {
		return errors.New(errors.CodeInvalidArgument, errors.WithMessagef("price must be positive"))
	}

	return s.api.SetPrice(ctx, domain.Price{
		ClassLevel: in.ClassLevel,
		Subject:    in.Subject,
		Amount:     in.Amount,
	})
}

func (s *Service) Prices(ctx context.Context) ([]domain.Price, error) {
	if err := s.guard(); err != nil {
		return nil, err
	}

	return s.api.ListPrices(ctx)
}

func (s *Service) Analytics(ctx context.Context) (*domain.TeacherAnalytics, error) {
	if err := s.guard(); err != nil {
		return nil, err
	}

	return s.api.TeacherAnalytics(ctx)
}

type ProfileInput struct {
	Name    string `validate:"required"`
	Subject string
	Phone   string
}

// CompleteProfile finishes teacher onboarding and patches the cached user.
func (s *Service) CompleteProfile(ctx context.Context, in ProfileInput) error {
	if err := validate.Struct(in); err != nil {
		return errors.New(errors.CodeInvalidArgument, errors.WithMessagef("name is required"))
	}

	updated, err := s.api.CreateTeacherProfile(ctx, api.TeacherProfileRequest{
		Name:    in.Name,
		Subject: in.Subject,
		Phone:   in.Phone,
	})
	if err != nil {
		return err
	}

	done := true
	s.session.CompleteProfile(&session.UserPatch{
		Name:             &updated.Name,
		Phone:            &updated.Phone,
		ProfileCompleted: &done,
	})

	return nil
}

// Package student assembles the student-facing flows: auth, onboarding,
// dashboard data and profile data. It owns no quiz-attempt state; that
// lives in the attempt package.
package student

import (
	"context"
	"fmt"
	"io"
	"strconv"

	"github.com/go-playground/validator/v10"
	"golang.org/x/sync/errgroup"

	"github.com/quizbd/quizbd-go/internal/api"
	"github.com/quizbd/quizbd-go/internal/domain"
	"github.com/quizbd/quizbd-go/internal/errors"
	"github.com/quizbd/quizbd-go/internal/session"
	"github.com/quizbd/quizbd-go/internal/storage"
)

// Storage keys for the last dashboard selection. Convenience state only,
// separate from the session.
const (
	keyActiveClass = "activeClass"
	keyActiveTab   = "activeTab"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

type Config struct {
	API     *api.Client
	Session *session.Store
	Storage storage.Storage
}

type Service struct {
	api     *api.Client
	session *session.Store
	st      storage.Storage
}

func NewService(c Config) *Service {
	return &Service{
		api:     c.API,
		session: c.Session,
		st:      c.Storage,
	}
}

// Guard is the route-guard check: logged in, profile complete, right role.
func (s *Service) Guard(role domain.Role) error {
	u, ok := s.session.User()
	if !ok {
		return errors.New(errors.CodeUnauthenticated, errors.WithMessagef("login required"))
	}

	if u.Role != role {
		return errors.New(errors.CodePermissionDenied, errors.WithMessagef("%s access only", role))
	}

	if !u.ProfileCompleted {
		return errors.New(errors.CodePermissionDenied, errors.WithMessagef("profile not completed"))
	}

	return nil
}

type LoginInput struct {
	Name     string `json:"name" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// Login authenticates a student and installs the session.
func (s *Service) Login(ctx context.Context, in LoginInput) (*domain.User, error) {
	if err := validate.Struct(in); err != nil {
		return nil, errors.New(errors.CodeInvalidArgument, errors.WithMessagef("all fields are required"), errors.WithCause(err))
	}

	ss, err := s.api.LoginStudent(ctx, api.LoginStudentRequest{Name: in.Name, Password: in.Password})
	if err != nil {
		return nil, err
	}

	s.session.Login(ss.Token, ss.User)
	return &ss.User, nil
}

type RegisterInput struct {
	Name       string `json:"name" validate:"required"`
	ClassLevel int    `json:"classLevel" validate:"required,gte=6,lte=10"`
	Password   string `json:"password" validate:"required,min=4"`
	Email      string `json:"email" validate:"omitempty,email"`
}

// Register creates a student account and logs it in.
func (s *Service) Register(ctx context.Context, in RegisterInput) (*domain.User, error) {
	if err := validate.Struct(in); err != nil {
		return nil, errors.New(errors.CodeInvalidArgument, errors.WithMessagef("invalid registration: %v", err))
	}

	ss, err := s.api.RegisterStudent(ctx, api.RegisterStudentRequest{
		Name:       in.Name,
		ClassLevel: in.ClassLevel,
		Password:   in.Password,
		Email:      in.Email,
	})
	if err != nil {
		return nil, err
	}

	s.session.Login(ss.Token, ss.User)
	return &ss.User, nil
}

func (s *Service) Logout() {
	s.session.Logout()
}

type CompleteProfileInput struct {
	Phone      string `validate:"required"`
	AvatarName string `validate:"required"`
	Avatar     io.Reader
}

// CompleteProfile finishes onboarding: uploads phone and avatar, then
// patches the cached user so the dashboards unlock.
func (s *Service) CompleteProfile(ctx context.Context, in CompleteProfileInput) error {
	if err := validate.Struct(in); err != nil {
		return errors.New(errors.CodeInvalidArgument, errors.WithMessagef("phone number and image are required"))
	}

	u, ok := s.session.User()
	if !ok {
		return errors.New(errors.CodeUnauthenticated, errors.WithMessagef("login required"))
	}
	if u.ClassLevel == 0 {
		return errors.New(errors.CodeInvalidArgument, errors.WithMessagef("class information missing, please login again"))
	}

	updated, err := s.api.CreateProfile(ctx, api.CreateProfileRequest{
		Phone:      in.Phone,
		ClassLevel: u.ClassLevel,
		AvatarName: in.AvatarName,
		Avatar:     in.Avatar,
	})
	if err != nil {
		return err
	}

	done := true
	s.session.CompleteProfile(&session.UserPatch{
		Phone:            &updated.Phone,
		Avatar:           &updated.Avatar,
		ProfileCompleted: &done,
	})

	return nil
}

// UpdateAvatar replaces the profile image and patches the cached user.
func (s *Service) UpdateAvatar(ctx context.Context, name string, avatar io.Reader) error {
	updated, err := s.api.UpdateAvatar(ctx, name, avatar)
	if err != nil {
		return err
	}

	s.session.UpdateUser(session.UserPatch{Avatar: &updated.Avatar})
	return nil
}

// ActiveClass is the class level selected on the last dashboard visit.
func (s *Service) ActiveClass() (int, bool) {
	b, ok := s.st.Get(keyActiveClass)
	if !ok {
		return 0, false
	}

	n, err := strconv.Atoi(string(b))
	if err != nil {
		return 0, false
	}

	return n, true
}

func (s *Service) SetActiveClass(classLevel int) {
	_ = s.st.Set(keyActiveClass, []byte(strconv.Itoa(classLevel)))
}

func (s *Service) ActiveTab() string {
	b, ok := s.st.Get(keyActiveTab)
	if !ok {
		return "free"
	}

	return string(b)
}

func (s *Service) SetActiveTab(tab string) {
	_ = s.st.Set(keyActiveTab, []byte(tab))
}

// FreeModels lists the free quizzes of a class level.
func (s *Service) FreeModels(ctx context.Context, classLevel int) ([]domain.Quiz, error) {
	return s.api.FreeQuizzes(ctx, classLevel)
}

// PaidSubjectsView is the paid tab of the dashboard: every purchasable
// subject plus which of them the student already unlocked.
type PaidSubjectsView struct {
	Subjects  []string
	Purchased map[string]bool
}

func (s *Service) PaidSubjects(ctx context.Context, classLevel int) (*PaidSubjectsView, error) {
	var (
		subjects  []string
		purchased []string
	)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		subjects, err = s.api.PaidSubjects(ctx, classLevel)
		return err
	})
	g.Go(func() (err error) {
		purchased, err = s.api.PurchasedSubjects(ctx, classLevel)
		return err
	})

	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("load paid subjects: %w", err)
	}

	view := &PaidSubjectsView{
		Subjects:  subjects,
		Purchased: make(map[string]bool, len(purchased)),
	}
	for _, p := range purchased {
		view.Purchased[p] = true
	}

	return view, nil
}

// PaidModelsView is one subject's model list with unlock state and the
// student's completed results keyed by quiz ID.
type PaidModelsView struct {
	Models    []domain.Quiz
	Unlocked  bool
	Completed map[string]domain.Result
}

func (s *Service) PaidModels(ctx context.Context, classLevel int, subject string) (*PaidModelsView, error) {
	var (
		models   []domain.Quiz
		unlocked bool
		results  []domain.Result
	)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		models, err = s.api.PaidModels(ctx, classLevel, subject)
		return err
	})
	g.Go(func() (err error) {
		unlocked, err = s.api.CheckPurchase(ctx, classLevel, subject)
		return err
	})
	g.Go(func() (err error) {
		results, err = s.api.ListResults(ctx)
		return err
	})

	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("load paid models: %w", err)
	}

	view := &PaidModelsView{
		Models:    models,
		Unlocked:  unlocked,
		Completed: make(map[string]domain.Result),
	}
	for _, r := range results {
		if r.Quiz.ID != "" {
			view.Completed[r.Quiz.ID] = r
		}
	}

	return view, nil
}

// ProfileView is the student profile screen data.
type ProfileView struct {
	Results        []domain.Result
	Progress       []domain.SubjectProgress
	OverallPercent int
}

func (s *Service) Profile(ctx context.Context) (*ProfileView, error) {
	var (
		results  []domain.Result
		progress []domain.SubjectProgress
	)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		results, err = s.api.ListResults(ctx)
		return err
	})
	g.Go(func() (err error) {
		progress, err = s.api.SubjectProgress(ctx)
		return err
	})

	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("load profile: %w", err)
	}

	var score, questions int
	for _, r := range results {
		score += r.Score
		questions += r.TotalQuestions
	}

	view := &ProfileView{Results: results, Progress: progress}
	if questions > 0 {
		view.OverallPercent = int(float64(score)/float64(questions)*100 + 0.5)
	}

	return view, nil
}

// Results lists the student's graded attempts.
func (s *Service) Results(ctx context.Context) ([]domain.Result, error) {
	return s.api.ListResults(ctx)
}

// WrongAnswers reviews the missed questions of one graded quiz.
func (s *Service) WrongAnswers(ctx context.Context, quizID string, trial bool) ([]domain.WrongAnswer, error) {
	return s.api.Explanations(ctx, quizID, trial)
}

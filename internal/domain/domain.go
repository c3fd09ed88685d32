package domain

import "github.com/shopspring/decimal"

// Role of an authenticated platform user.
type Role string

const (
	RoleStudent Role = "student"
	RoleTeacher Role = "teacher"
)

// User is the profile record returned by the auth endpoints.
type User struct {
	ID               string `json:"id"`
	Name             string `json:"name"`
	Email            string `json:"email,omitempty"`
	Role             Role   `json:"role"`
	ClassLevel       int    `json:"classLevel,omitempty"`
	Phone            string `json:"phone,omitempty"`
	Avatar           string `json:"avatar,omitempty"`
	ProfileCompleted bool   `json:"profileCompleted"`
}

// Session couples the bearer token with the user it authenticates.
// A session is either fully present or fully absent, never half of one.
type Session struct {
	Token string `json:"token"`
	User  User   `json:"user"`
}

// Question as served inside a quiz definition. CorrectOption and Explanation
// are only ever populated by the explanations endpoint; during an active
// attempt the server strips them.
type Question struct {
	ID            string   `json:"_id"`
	Text          string   `json:"questionText"`
	Options       []string `json:"options"`
	CorrectOption *int     `json:"correctOption,omitempty"`
	Explanation   string   `json:"explanation,omitempty"`
}

// Quiz definition with its ordered question sequence. Duration is the
// configured time budget in seconds for a full attempt.
type Quiz struct {
	ID          string     `json:"_id"`
	Title       string     `json:"title"`
	Subject     string     `json:"subject"`
	ClassLevel  int        `json:"classLevel"`
	Duration    int        `json:"duration"`
	IsPublished bool       `json:"isPublished"`
	Questions   []Question `json:"questions"`
}

// Answer is one entry of a submission payload.
type Answer struct {
	QuestionID     string `json:"questionId"`
	SelectedOption int    `json:"selectedOption"`
}

// QuizRef is the shallow quiz reference embedded in results.
type QuizRef struct {
	ID    string `json:"_id"`
	Title string `json:"title"`
}

// Result of a graded attempt.
type Result struct {
	Quiz           QuizRef `json:"quiz"`
	Score          int     `json:"score"`
	TotalQuestions int     `json:"totalQuestions"`
	IsTrial        bool    `json:"isTrial"`
}

// WrongAnswer is one reviewed question from the explanations endpoint.
type WrongAnswer struct {
	Question       string   `json:"question"`
	Options        []string `json:"options"`
	CorrectAnswer  int      `json:"correctAnswer"`
	SelectedOption int      `json:"selectedOption"`
	Explanation    string   `json:"explanation,omitempty"`
}

// Price of unlocking one subject for one class level.
type Price struct {
	ClassLevel int             `json:"classLevel"`
	Subject    string          `json:"subject"`
	Amount     decimal.Decimal `json:"price"`
}

// SubjectProgress is the per-subject completion summary shown on the
// student profile.
type SubjectProgress struct {
	Subject string  `json:"subject"`
	Percent float64 `json:"percent"`
}

// TeacherAnalytics is the headline counters on the teacher dashboard.
type TeacherAnalytics struct {
	TotalQuizzes  int `json:"totalQuizzes"`
	TotalStudents int `json:"totalStudents"`
	TotalAttempts int `json:"totalAttempts"`
}

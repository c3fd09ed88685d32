package api

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quizbd/quizbd-go/internal/domain"
	"github.com/quizbd/quizbd-go/internal/errors"
)

type staticTokens struct {
	tok string
}

func (s staticTokens) Token() (string, bool) {
	return s.tok, s.tok != ""
}

func newTestClient(t *testing.T, handler http.Handler, tok string) *Client {
	t.Helper()

	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	return NewClient(Config{
		BaseURL: srv.URL,
		Tokens:  staticTokens{tok: tok},
	})
}

func newRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	return gin.New()
}

func TestClient_Headers(t *testing.T) {
	var (
		gotAuth      string
		gotRequestID string
	)

	e := newRouter()
	e.GET("/results", func(c *gin.Context) {
		gotAuth = c.GetHeader("Authorization")
		gotRequestID = c.GetHeader("X-Request-ID")
		c.JSON(http.StatusOK, []domain.Result{})
	})

	c := newTestClient(t, e, "tok-123")

	_, err := c.ListResults(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "Bearer tok-123", gotAuth)
	assert.NotEmpty(t, gotRequestID)
}

func TestClient_NoTokenNoAuthHeader(t *testing.T) {
	var sawAuth bool

	e := newRouter()
	e.GET("/results", func(c *gin.Context) {
		_, sawAuth = c.Request.Header["Authorization"]
		c.JSON(http.StatusOK, []domain.Result{})
	})

	c := newTestClient(t, e, "")

	_, err := c.ListResults(context.Background())
	require.NoError(t, err)
	assert.False(t, sawAuth)
}

func TestClient_ErrorMapping(t *testing.T) {
	type testCase struct {
		status   int
		body     gin.H
		wantCode errors.Code
		wantMsg  string
	}

	tests := map[string]testCase{
		"unauthorized with server message": {
			status:   http.StatusUnauthorized,
			body:     gin.H{"success": false, "message": "invalid credentials"},
			wantCode: errors.CodeUnauthenticated,
			wantMsg:  "invalid credentials",
		},
		"forbidden": {
			status:   http.StatusForbidden,
			body:     gin.H{"success": false, "message": "teacher access only"},
			wantCode: errors.CodePermissionDenied,
			wantMsg:  "teacher access only",
		},
		"not found without message keeps code name": {
			status:   http.StatusNotFound,
			body:     gin.H{},
			wantCode: errors.CodeNotFound,
			wantMsg:  "NotFound",
		},
		"unmapped status falls back to internal": {
			status:   http.StatusTeapot,
			body:     gin.H{},
			wantCode: errors.CodeInternal,
		},
		"bad gateway is unavailable": {
			status:   http.StatusBadGateway,
			body:     gin.H{},
			wantCode: errors.CodeUnavailable,
		},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			e := newRouter()
			e.GET("/results", func(c *gin.Context) {
				c.JSON(tc.status, tc.body)
			})

			c := newTestClient(t, e, "tok")

			_, err := c.ListResults(context.Background())
			require.Error(t, err)

			apiErr := errors.Convert(err)
			assert.Equal(t, tc.wantCode, apiErr.Code)
			if tc.wantMsg != "" {
				assert.Equal(t, tc.wantMsg, apiErr.Message)
			}
		})
	}
}

func TestClient_ConnectionRefusedIsUnavailable(t *testing.T) {
	c := NewClient(Config{
		BaseURL: "http://127.0.0.1:1",
		Tokens:  staticTokens{},
	})

	_, err := c.ListResults(context.Background())
	require.Error(t, err)
	assert.Equal(t, errors.CodeUnavailable, errors.Convert(err).Code)
}

func TestLoginStudent(t *testing.T) {
	type testCase struct {
		response gin.H
		wantErr  errors.Code
		assert   func(t *testing.T, ss *domain.Session)
	}

	tests := map[string]testCase{
		"valid session": {
			response: gin.H{
				"success": true,
				"data": gin.H{
					"token": "tok-1",
					"user":  gin.H{"id": "u1", "name": "Rahim", "role": "student", "classLevel": 8},
				},
			},
			assert: func(t *testing.T, ss *domain.Session) {
				assert.Equal(t, "tok-1", ss.Token)
				assert.Equal(t, "u1", ss.User.ID)
				assert.Equal(t, domain.RoleStudent, ss.User.Role)
				assert.Equal(t, 8, ss.User.ClassLevel)
			},
		},
		"missing token rejected": {
			response: gin.H{
				"success": true,
				"data":    gin.H{"user": gin.H{"id": "u1", "name": "Rahim"}},
			},
			wantErr: errors.CodeUnauthenticated,
		},
		"missing user rejected": {
			response: gin.H{
				"success": true,
				"data":    gin.H{"token": "tok-1"},
			},
			wantErr: errors.CodeUnauthenticated,
		},
		"missing data rejected": {
			response: gin.H{"success": true},
			wantErr:  errors.CodeUnauthenticated,
		},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			e := newRouter()
			e.POST("/auth/student/login", func(c *gin.Context) {
				var req LoginStudentRequest
				require.NoError(t, c.ShouldBindJSON(&req))
				assert.Equal(t, "Rahim", req.Name)

				c.JSON(http.StatusOK, tc.response)
			})

			c := newTestClient(t, e, "")

			ss, err := c.LoginStudent(context.Background(), LoginStudentRequest{
				Name:     "Rahim",
				Password: "secret",
			})

			if tc.wantErr != 0 {
				require.Error(t, err)
				assert.Equal(t, tc.wantErr, errors.Convert(err).Code)
				return
			}

			require.NoError(t, err)
			tc.assert(t, ss)
		})
	}
}

func TestFetchQuiz_TrialParam(t *testing.T) {
	e := newRouter()
	e.GET("/quizzes/:id", func(c *gin.Context) {
		assert.Equal(t, "quiz-1", c.Param("id"))
		assert.Equal(t, "true", c.Query("trial"))

		c.JSON(http.StatusOK, domain.Quiz{ID: "quiz-1", Title: "Algebra", Duration: 600})
	})

	c := newTestClient(t, e, "tok")

	q, err := c.FetchQuiz(context.Background(), "quiz-1", true)
	require.NoError(t, err)
	assert.Equal(t, "Algebra", q.Title)
	assert.Equal(t, 600, q.Duration)
}

func TestSubmitResult(t *testing.T) {
	var got SubmitResultRequest

	e := newRouter()
	e.POST("/results", func(c *gin.Context) {
		require.NoError(t, c.ShouldBindJSON(&got))
		c.JSON(http.StatusCreated, gin.H{"success": true})
	})

	c := newTestClient(t, e, "tok")

	err := c.SubmitResult(context.Background(), SubmitResultRequest{
		QuizID: "quiz-1",
		Answers: []domain.Answer{
			{QuestionID: "q1", SelectedOption: 2},
			{QuestionID: "q3", SelectedOption: 0},
		},
		IsTrial: true,
	})
	require.NoError(t, err)

	assert.Equal(t, "quiz-1", got.QuizID)
	assert.True(t, got.IsTrial)
	require.Len(t, got.Answers, 2)
	assert.Equal(t, "q3", got.Answers[1].QuestionID)
	assert.Equal(t, 0, got.Answers[1].SelectedOption)
}

func TestExplanations(t *testing.T) {
	e := newRouter()
	e.GET("/results/:id/explanations", func(c *gin.Context) {
		assert.Equal(t, "quiz-1", c.Param("id"))

		c.JSON(http.StatusOK, gin.H{
			"success": true,
			"data": []gin.H{{
				"question":       "2+2?",
				"options":        []string{"3", "4"},
				"correctAnswer":  1,
				"selectedOption": 0,
				"explanation":    "Basic addition.",
			}},
		})
	})

	c := newTestClient(t, e, "tok")

	ws, err := c.Explanations(context.Background(), "quiz-1", false)
	require.NoError(t, err)
	require.Len(t, ws, 1)
	assert.Equal(t, 1, ws[0].CorrectAnswer)
	assert.Equal(t, "Basic addition.", ws[0].Explanation)
}

func TestGetPrice(t *testing.T) {
	e := newRouter()
	e.GET("/prices", func(c *gin.Context) {
		assert.Equal(t, "8", c.Query("classLevel"))
		assert.Equal(t, "Higher Math", c.Query("subject"))

		c.JSON(http.StatusOK, gin.H{"price": "150.50"})
	})

	c := newTestClient(t, e, "tok")

	p, err := c.GetPrice(context.Background(), 8, "Higher Math")
	require.NoError(t, err)
	assert.True(t, p.Equal(decimal.RequireFromString("150.50")))
}

func TestInitiatePayment(t *testing.T) {
	type testCase struct {
		response gin.H
		wantURL  string
		wantErr  errors.Code
	}

	tests := map[string]testCase{
		"gateway url returned": {
			response: gin.H{"gatewayURL": "https://gateway.test/pay/abc"},
			wantURL:  "https://gateway.test/pay/abc",
		},
		"missing gateway url is internal": {
			response: gin.H{},
			wantErr:  errors.CodeInternal,
		},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			e := newRouter()
			e.POST("/payments/initiate", func(c *gin.Context) {
				c.JSON(http.StatusOK, tc.response)
			})

			c := newTestClient(t, e, "tok")

			u, err := c.InitiatePayment(context.Background(), InitiatePaymentRequest{
				Subject:    "Physics",
				ClassLevel: 9,
			})

			if tc.wantErr != 0 {
				require.Error(t, err)
				assert.Equal(t, tc.wantErr, errors.Convert(err).Code)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, tc.wantURL, u)
		})
	}
}

func TestTogglePublish(t *testing.T) {
	e := newRouter()
	e.PATCH("/quizzes/:id/publish", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"success": true,
			"data":    gin.H{"isPublished": true},
		})
	})

	c := newTestClient(t, e, "tok")

	published, err := c.TogglePublish(context.Background(), "quiz-1")
	require.NoError(t, err)
	assert.True(t, published)
}

func TestCreateProfile_Multipart(t *testing.T) {
	e := newRouter()
	e.POST("/users/profile", func(c *gin.Context) {
		assert.Equal(t, "01712345678", c.PostForm("phone"))
		assert.Equal(t, "8", c.PostForm("classLevel"))

		f, err := c.FormFile("avatar")
		require.NoError(t, err)
		assert.Equal(t, "me.png", f.Filename)

		c.JSON(http.StatusOK, gin.H{
			"success": true,
			"data": gin.H{
				"id": "u1", "name": "Rahim", "phone": "01712345678",
				"avatar": "/uploads/me.png", "profileCompleted": true,
			},
		})
	})

	c := newTestClient(t, e, "tok")

	u, err := c.CreateProfile(context.Background(), CreateProfileRequest{
		Phone:      "01712345678",
		ClassLevel: 8,
		AvatarName: "me.png",
		Avatar:     strings.NewReader("png-bytes"),
	})
	require.NoError(t, err)
	assert.Equal(t, "/uploads/me.png", u.Avatar)
	assert.True(t, u.ProfileCompleted)
}

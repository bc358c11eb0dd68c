package acceptance

import (
	"bytes"
	"encoding/json"
	"net/http"

	"github.com/doease/doease/internal/dto"
)

func (s *Suite) postJSON(path string, payload any) *http.Response {
	body, err := json.Marshal(payload)
	s.Require().NoError(err)

	resp, err := http.Post(s.BaseURL+path, "application/json", bytes.NewBuffer(body))
	s.Require().NoError(err)
	return resp
}

func (s *Suite) signUp(email, password, username string) {
	resp := s.postJSON("/api/v1/auth/signup", dto.SignUpRequest{
		Email:    email,
		Password: password,
		Username: username,
	})
	defer resp.Body.Close()
	s.Require().Equal(http.StatusCreated, resp.StatusCode, "Sign-up should succeed")
}

func (s *Suite) currentState() stateResponse {
	resp, err := http.Get(s.BaseURL + "/api/v1/state")
	s.Require().NoError(err)
	defer resp.Body.Close()

	var state stateResponse
	s.Require().NoError(json.NewDecoder(resp.Body).Decode(&state))
	return state
}

func (s *Suite) TestSignUp_Success() {
	resp := s.postJSON("/api/v1/auth/signup", dto.SignUpRequest{
		Email:    "alice@example.com",
		Password: "Password123",
		Username: "alice",
	})
	defer resp.Body.Close()

	s.Equal(http.StatusCreated, resp.StatusCode)

	var state stateResponse
	s.Require().NoError(json.NewDecoder(resp.Body).Decode(&state))
	s.Require().NotNil(state.CurrentUser)
	s.Equal("alice", state.CurrentUser.Username)
	s.Equal("alice@example.com", state.CurrentUser.Email)
	s.True(state.CurrentUser.EmailNotificationsEnabled)
	s.False(state.Loading)
	s.True(state.IsConfigured)
}

func (s *Suite) TestSignUp_InvalidEmail() {
	resp := s.postJSON("/api/v1/auth/signup", dto.SignUpRequest{
		Email:    "not-an-email",
		Password: "Password123",
		Username: "alice",
	})
	defer resp.Body.Close()

	s.Equal(http.StatusBadRequest, resp.StatusCode)
}

func (s *Suite) TestSignUp_WeakPassword() {
	resp := s.postJSON("/api/v1/auth/signup", map[string]string{
		"email":    "alice@example.com",
		"password": "alllowercase",
		"username": "alice",
	})
	defer resp.Body.Close()

	s.Equal(http.StatusBadRequest, resp.StatusCode)
}

func (s *Suite) TestSignIn_Success() {
	s.signUp("bob@example.com", "Password123", "bob")

	signOut := s.postJSON("/api/v1/auth/signout", nil)
	signOut.Body.Close()

	resp := s.postJSON("/api/v1/auth/signin", dto.SignInRequest{
		Email:    "bob@example.com",
		Password: "Password123",
	})
	defer resp.Body.Close()

	s.Equal(http.StatusOK, resp.StatusCode)

	var state stateResponse
	s.Require().NoError(json.NewDecoder(resp.Body).Decode(&state))
	s.Require().NotNil(state.CurrentUser)
	s.Equal("bob", state.CurrentUser.Username)
}

func (s *Suite) TestSignIn_WrongPassword() {
	s.signUp("carol@example.com", "Password123", "carol")

	signOut := s.postJSON("/api/v1/auth/signout", nil)
	signOut.Body.Close()

	resp := s.postJSON("/api/v1/auth/signin", dto.SignInRequest{
		Email:    "carol@example.com",
		Password: "WrongPassword1",
	})
	defer resp.Body.Close()

	s.Equal(http.StatusUnauthorized, resp.StatusCode)

	var errResp dto.ErrorResponse
	s.Require().NoError(json.NewDecoder(resp.Body).Decode(&errResp))
	s.Equal("Sign-in failed", errResp.Error)
}

func (s *Suite) TestSignOut_ClearsPublishedState() {
	s.signUp("dave@example.com", "Password123", "dave")

	resp := s.postJSON("/api/v1/auth/signout", nil)
	resp.Body.Close()
	s.Equal(http.StatusOK, resp.StatusCode)

	state := s.currentState()
	s.Nil(state.CurrentUser)
	s.False(state.Loading)
}

func (s *Suite) TestMe_RequiresSignIn() {
	resp, err := http.Get(s.BaseURL + "/api/v1/auth/me")
	s.Require().NoError(err)
	defer resp.Body.Close()

	s.Equal(http.StatusUnauthorized, resp.StatusCode)
}

func (s *Suite) TestMe_ReturnsDisplayUser() {
	s.signUp("erin@example.com", "Password123", "erin")

	resp, err := http.Get(s.BaseURL + "/api/v1/auth/me")
	s.Require().NoError(err)
	defer resp.Body.Close()

	s.Equal(http.StatusOK, resp.StatusCode)

	var user struct {
		Username string `json:"username"`
		Email    string `json:"email"`
	}
	s.Require().NoError(json.NewDecoder(resp.Body).Decode(&user))
	s.Equal("erin", user.Username)
	s.Equal("erin@example.com", user.Email)
}

func (s *Suite) TestState_AlwaysReachable() {
	state := s.currentState()
	s.True(state.IsConfigured)
	s.Empty(state.ConfigurationError)
}

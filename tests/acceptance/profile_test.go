package acceptance

import (
	"bytes"
	"encoding/json"
	"net/http"

	"github.com/doease/doease/internal/dto"
)

func (s *Suite) putJSON(path string, payload any) *http.Response {
	body, err := json.Marshal(payload)
	s.Require().NoError(err)

	req, err := http.NewRequest(http.MethodPut, s.BaseURL+path, bytes.NewBuffer(body))
	s.Require().NoError(err)
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	s.Require().NoError(err)
	return resp
}

func (s *Suite) TestProfile_RequiresSignIn() {
	username := "nobody"
	resp := s.putJSON("/api/v1/profile", dto.UpdateProfileRequest{Username: &username})
	defer resp.Body.Close()

	s.Equal(http.StatusUnauthorized, resp.StatusCode)
}

func (s *Suite) TestProfile_UpdateUsername() {
	s.signUp("kate@example.com", "Password123", "kate")

	username := "Katherine"
	resp := s.putJSON("/api/v1/profile", dto.UpdateProfileRequest{Username: &username})
	defer resp.Body.Close()

	s.Equal(http.StatusOK, resp.StatusCode)

	var user struct {
		Username string `json:"username"`
	}
	s.Require().NoError(json.NewDecoder(resp.Body).Decode(&user))
	s.Equal("Katherine", user.Username)

	// The published state picks the change up as well.
	state := s.currentState()
	s.Require().NotNil(state.CurrentUser)
	s.Equal("Katherine", state.CurrentUser.Username)
}

func (s *Suite) TestProfile_RejectsOverlongUsername() {
	s.signUp("leo@example.com", "Password123", "leo")

	username := "this-username-is-way-too-long-to-be-accepted-by-validation"
	resp := s.putJSON("/api/v1/profile", dto.UpdateProfileRequest{Username: &username})
	defer resp.Body.Close()

	s.Equal(http.StatusBadRequest, resp.StatusCode)
}

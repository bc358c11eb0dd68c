package acceptance

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/doease/doease/internal/dto"
)

func (s *Suite) addTask(name, priority string) int64 {
	resp := s.postJSON("/api/v1/tasks", map[string]string{
		"name":     name,
		"priority": priority,
		"due_date": "2026-09-15",
	})
	defer resp.Body.Close()
	s.Require().Equal(http.StatusCreated, resp.StatusCode)

	var created struct {
		ID int64 `json:"id"`
	}
	s.Require().NoError(json.NewDecoder(resp.Body).Decode(&created))
	return created.ID
}

func (s *Suite) listTasks() []struct {
	ID        int64  `json:"id"`
	Name      string `json:"name"`
	Completed bool   `json:"completed"`
	Priority  string `json:"priority"`
} {
	resp, err := http.Get(s.BaseURL + "/api/v1/tasks")
	s.Require().NoError(err)
	defer resp.Body.Close()
	s.Require().Equal(http.StatusOK, resp.StatusCode)

	var list []struct {
		ID        int64  `json:"id"`
		Name      string `json:"name"`
		Completed bool   `json:"completed"`
		Priority  string `json:"priority"`
	}
	s.Require().NoError(json.NewDecoder(resp.Body).Decode(&list))
	return list
}

func (s *Suite) TestTasks_RequireSignIn() {
	resp, err := http.Get(s.BaseURL + "/api/v1/tasks")
	s.Require().NoError(err)
	defer resp.Body.Close()

	s.Equal(http.StatusUnauthorized, resp.StatusCode)
}

func (s *Suite) TestTasks_AddAndList() {
	s.signUp("frank@example.com", "Password123", "frank")

	s.addTask("write report", "high")
	s.addTask("buy milk", "low")

	list := s.listTasks()
	s.Require().Len(list, 2)
	s.Equal("buy milk", list[0].Name, "newest first")
	s.Equal("write report", list[1].Name)
}

func (s *Suite) TestTasks_ToggleCompletion() {
	s.signUp("grace@example.com", "Password123", "grace")
	id := s.addTask("stretch", "medium")
	s.listTasks()

	req, err := http.NewRequest(http.MethodPatch, fmt.Sprintf("%s/api/v1/tasks/%d/toggle", s.BaseURL, id), nil)
	s.Require().NoError(err)
	resp, err := http.DefaultClient.Do(req)
	s.Require().NoError(err)
	defer resp.Body.Close()

	s.Equal(http.StatusOK, resp.StatusCode)

	var updated struct {
		Completed bool `json:"completed"`
	}
	s.Require().NoError(json.NewDecoder(resp.Body).Decode(&updated))
	s.True(updated.Completed)

	// Completing the first task of the day starts a streak.
	state := s.currentState()
	s.Require().NotNil(state.CurrentUser)

	refresh := s.postJSON("/api/v1/auth/refresh", nil)
	defer refresh.Body.Close()
	var refreshed stateResponse
	s.Require().NoError(json.NewDecoder(refresh.Body).Decode(&refreshed))
	s.Require().NotNil(refreshed.CurrentUser)
	s.Equal(1, refreshed.CurrentUser.CurrentStreak)
}

func (s *Suite) TestTasks_Delete() {
	s.signUp("heidi@example.com", "Password123", "heidi")
	id := s.addTask("obsolete", "low")
	s.listTasks()

	req, err := http.NewRequest(http.MethodDelete, fmt.Sprintf("%s/api/v1/tasks/%d", s.BaseURL, id), nil)
	s.Require().NoError(err)
	resp, err := http.DefaultClient.Do(req)
	s.Require().NoError(err)
	defer resp.Body.Close()

	s.Equal(http.StatusOK, resp.StatusCode)
	s.Empty(s.listTasks())
}

func (s *Suite) TestTasks_InvalidID() {
	s.signUp("ivan@example.com", "Password123", "ivan")

	req, err := http.NewRequest(http.MethodDelete, s.BaseURL+"/api/v1/tasks/not-a-number", nil)
	s.Require().NoError(err)
	resp, err := http.DefaultClient.Do(req)
	s.Require().NoError(err)
	defer resp.Body.Close()

	s.Equal(http.StatusBadRequest, resp.StatusCode)

	var errResp dto.ErrorResponse
	s.Require().NoError(json.NewDecoder(resp.Body).Decode(&errResp))
	s.Equal("Validation failed", errResp.Error)
}

func (s *Suite) TestAnalytics_Report() {
	s.signUp("judy@example.com", "Password123", "judy")
	id := s.addTask("first", "high")
	s.addTask("second", "medium")
	s.listTasks()

	req, err := http.NewRequest(http.MethodPatch, fmt.Sprintf("%s/api/v1/tasks/%d/toggle", s.BaseURL, id), nil)
	s.Require().NoError(err)
	resp, err := http.DefaultClient.Do(req)
	s.Require().NoError(err)
	resp.Body.Close()

	analyticsResp, err := http.Get(s.BaseURL + "/api/v1/analytics")
	s.Require().NoError(err)
	defer analyticsResp.Body.Close()
	s.Equal(http.StatusOK, analyticsResp.StatusCode)

	var report struct {
		Stats struct {
			TotalTasks     int `json:"total_tasks"`
			CompletedTasks int `json:"completed_tasks"`
			CompletionRate int `json:"completion_rate"`
		} `json:"stats"`
		Weekly []struct {
			Date      string `json:"date"`
			Completed int    `json:"completed"`
		} `json:"weekly"`
		ByPriority map[string]int `json:"by_priority"`
	}
	s.Require().NoError(json.NewDecoder(analyticsResp.Body).Decode(&report))

	s.Equal(2, report.Stats.TotalTasks)
	s.Equal(1, report.Stats.CompletedTasks)
	s.Equal(50, report.Stats.CompletionRate)
	s.Len(report.Weekly, 7)
	s.Equal(1, report.Weekly[6].Completed, "today is the last bucket")
	s.Equal(1, report.ByPriority["high"])
	s.Equal(1, report.ByPriority["medium"])
}

package gradebook

import (
	"fmt"
	"io"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/bigredeye/gradebook/api"
	"github.com/bigredeye/gradebook/internal/models"
)

type Client struct {
	client *resty.Client
	// uploads never retries: a request body reader cannot be replayed.
	uploads *resty.Client
}

func newRestyClient(endpoint, token string) *resty.Client {
	client := resty.New().
		SetBaseURL(endpoint).
		SetTimeout(time.Second * 10).
		SetError(&api.Message{})

	if token != "" {
		client.Header.Add("Token", token)
	}
	return client
}

func NewClient(endpoint, token string) (*Client, error) {
	if endpoint == "" {
		return nil, fmt.Errorf("empty endpoint")
	}

	client := newRestyClient(endpoint, token).SetRetryCount(3)
	uploads := newRestyClient(endpoint, token).SetTimeout(time.Minute * 10)

	return &Client{client, uploads}, nil
}

// Error is a non-2xx reply of the server.
type Error struct {
	Code int
	Msg  string
}

func (e *Error) Error() string {
	return fmt.Sprintf("server replied %d: %s", e.Code, e.Msg)
}

func check(res *resty.Response, err error) error {
	if err != nil {
		return err
	}
	if !res.IsError() {
		return nil
	}

	msg := res.Status()
	if body, ok := res.Error().(*api.Message); ok && body.Msg != "" {
		msg = body.Msg
	}
	return &Error{Code: res.StatusCode(), Msg: msg}
}

func (c *Client) Login(email, password string) (*api.LoginResponse, error) {
	res := &api.LoginResponse{}
	err := check(c.client.R().
		SetResult(res).
		SetBody(&api.LoginRequest{Email: email, Password: password}).
		Post("/api/auth/login"))
	if err != nil {
		return nil, err
	}
	return res, nil
}

func (c *Client) Register(req *api.RegisterRequest) (*api.LoginResponse, error) {
	res := &api.LoginResponse{}
	err := check(c.client.R().
		SetResult(res).
		SetBody(req).
		Post("/api/auth/register"))
	if err != nil {
		return nil, err
	}
	return res, nil
}

func (c *Client) Logout() error {
	return check(c.client.R().Post("/api/auth/logout"))
}

func (c *Client) Upload(fileName string, body io.Reader) error {
	return check(c.uploads.R().
		SetFileReader("file", fileName, body).
		Post("/api/students/upload"))
}

func (c *Client) LoadRecords(filter *api.StudentsRequest) ([]models.ScoreRecord, error) {
	res := make([]models.ScoreRecord, 0)
	req := c.client.R().SetResult(&res)
	if filter.StudentID != "" {
		req.SetQueryParam("studentID", filter.StudentID)
	}
	if filter.Class != "" {
		req.SetQueryParam("class", filter.Class)
	}
	if filter.ExamName != "" {
		req.SetQueryParam("examName", filter.ExamName)
	}

	if err := check(req.Get("/api/students")); err != nil {
		return nil, err
	}
	return res, nil
}

func (c *Client) Analyze(req *api.AnalyzeRequest) (*api.AnalyzeResponse, error) {
	res := &api.AnalyzeResponse{}
	if err := check(c.client.R().SetResult(res).SetBody(req).Post("/api/students/analyze")); err != nil {
		return nil, err
	}
	return res, nil
}

func (c *Client) ClassAnalysis(req *api.ClassAnalysisRequest) (api.ClassAnalysisResponse, error) {
	res := make(api.ClassAnalysisResponse, 0)
	if err := check(c.client.R().SetResult(&res).SetBody(req).Post("/api/students/class-analysis")); err != nil {
		return nil, err
	}
	return res, nil
}

func (c *Client) SchoolAnalysis(req *api.SchoolAnalysisRequest) (*api.SchoolAnalysisResponse, error) {
	res := &api.SchoolAnalysisResponse{}
	if err := check(c.client.R().SetResult(res).SetBody(req).Post("/api/students/school-analysis")); err != nil {
		return nil, err
	}
	return res, nil
}

func (c *Client) PerformanceStatistics(req *api.PerformanceStatisticsRequest) (*api.PerformanceStatisticsResponse, error) {
	res := &api.PerformanceStatisticsResponse{}
	if err := check(c.client.R().SetResult(res).SetBody(req).Post("/api/students/performance-statistics")); err != nil {
		return nil, err
	}
	return res, nil
}

func (c *Client) LoadUploadLogs() ([]api.UploadLogEntry, error) {
	res := make([]api.UploadLogEntry, 0)
	if err := check(c.client.R().SetResult(&res).Get("/api/admin/logs")); err != nil {
		return nil, err
	}
	return res, nil
}

func (c *Client) LoadTeachers() ([]api.Staff, error) {
	res := make([]api.Staff, 0)
	if err := check(c.client.R().SetResult(&res).Get("/api/admin/teachers")); err != nil {
		return nil, err
	}
	return res, nil
}

func (c *Client) LoadStats() (*api.StatsResponse, error) {
	res := &api.StatsResponse{}
	if err := check(c.client.R().SetResult(res).Get("/api/admin/stats")); err != nil {
		return nil, err
	}
	return res, nil
}

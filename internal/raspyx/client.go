// Package raspyx is the HTTP client for the upstream timetable API.
//
// Responses arrive in an envelope {"status": "OK", "response": ...}; the
// client unwraps it and decodes the payload into the strict types of
// internal/timetable, so the rest of the bot never touches loose JSON.
package raspyx

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"raspbot/internal/timetable"
	logx "raspbot/pkg/logx"
)

// ErrUnavailable wraps any transport/decode failure so callers can treat
// "could not get this entity's schedule" uniformly.
var ErrUnavailable = errors.New("raspyx: schedule unavailable")

type Config struct {
	BaseURL  string
	Username string
	Password string
	Timeout  time.Duration
}

type Client struct {
	cfg  Config
	http *http.Client
	log  logx.Logger

	mu        sync.Mutex
	token     string
	tokenGood time.Time // token is trusted until this instant
}

func New(cfg Config, log logx.Logger) (*Client, error) {
	if strings.TrimSpace(cfg.BaseURL) == "" {
		return nil, errors.New("raspyx: base url is empty")
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Client{
		cfg:  cfg,
		http: &http.Client{Timeout: timeout},
		log:  log,
	}, nil
}

type envelope struct {
	Status   string          `json:"status"`
	Response json.RawMessage `json:"response"`
}

// login obtains a JWT. Tokens are issued for 24h; renew a little earlier.
func (c *Client) login(ctx context.Context) error {
	if c.cfg.Username == "" || c.cfg.Password == "" {
		// Anonymous access; some deployments allow it.
		return nil
	}

	body := fmt.Sprintf(`{"username":%q,"password":%q}`, c.cfg.Username, c.cfg.Password)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.cfg.BaseURL+"/api/v1/users/login", strings.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("login: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("login: unexpected status %d", resp.StatusCode)
	}

	var env envelope
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(&env); err != nil {
		return fmt.Errorf("login: decode: %w", err)
	}
	if env.Status != "OK" {
		return fmt.Errorf("login: status %q", env.Status)
	}
	var tok struct {
		Token       string `json:"token"`
		AccessToken string `json:"access_token"`
	}
	if err := json.Unmarshal(env.Response, &tok); err != nil {
		return fmt.Errorf("login: decode token: %w", err)
	}
	t := tok.Token
	if t == "" {
		t = tok.AccessToken
	}
	if t == "" {
		return errors.New("login: no token in response")
	}

	c.mu.Lock()
	c.token = t
	c.tokenGood = time.Now().Add(23 * time.Hour)
	c.mu.Unlock()
	c.log.Info("raspyx: authenticated")
	return nil
}

func (c *Client) ensureAuth(ctx context.Context) error {
	c.mu.Lock()
	ok := c.token != "" && time.Now().Before(c.tokenGood)
	c.mu.Unlock()
	if ok {
		return nil
	}
	return c.login(ctx)
}

// get performs an authenticated GET and returns the unwrapped response
// payload. A 401 triggers one re-login and retry.
func (c *Client) get(ctx context.Context, endpoint string, query url.Values) (json.RawMessage, error) {
	if err := c.ensureAuth(ctx); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	raw, status, err := c.doGet(ctx, endpoint, query)
	if status == http.StatusUnauthorized {
		c.log.Warn("raspyx: 401, re-authenticating", logx.String("endpoint", endpoint))
		if err := c.login(ctx); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
		}
		raw, status, err = c.doGet(ctx, endpoint, query)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if status != http.StatusOK {
		return nil, fmt.Errorf("%w: %s returned status %d", ErrUnavailable, endpoint, status)
	}
	return raw, nil
}

func (c *Client) doGet(ctx context.Context, endpoint string, query url.Values) (json.RawMessage, int, error) {
	u := c.cfg.BaseURL + endpoint
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, 0, err
	}
	req.Header.Set("Content-Type", "application/json")
	c.mu.Lock()
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	c.mu.Unlock()

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, 0, err
	}
	defer resp.Body.Close()

	c.log.Debug("raspyx request",
		logx.String("endpoint", endpoint),
		logx.Int("status", resp.StatusCode),
		logx.Duration("dur", time.Since(start)))

	if resp.StatusCode != http.StatusOK {
		// Drain for connection reuse.
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 1<<16))
		return nil, resp.StatusCode, nil
	}

	var env envelope
	if err := json.NewDecoder(io.LimitReader(resp.Body, 8<<20)).Decode(&env); err != nil {
		return nil, resp.StatusCode, fmt.Errorf("decode: %w", err)
	}
	if env.Status != "OK" {
		return nil, resp.StatusCode, fmt.Errorf("status %q", env.Status)
	}
	return env.Response, resp.StatusCode, nil
}

func sessionQuery(session bool) url.Values {
	if !session {
		return nil
	}
	q := url.Values{}
	q.Set("session", "1")
	return q
}

// GroupSchedule fetches the weekly table for a student group.
func (c *Client) GroupSchedule(ctx context.Context, group string, session bool) (timetable.Week, error) {
	raw, err := c.get(ctx, "/api/v1/schedules/group/number/"+url.PathEscape(group), sessionQuery(session))
	if err != nil {
		return nil, err
	}
	return decodeWeek(raw, "group "+group)
}

// TeacherSchedule fetches the weekly table for a teacher by full name.
func (c *Client) TeacherSchedule(ctx context.Context, fullName string, session bool) (timetable.Week, error) {
	raw, err := c.get(ctx, "/api/v1/schedules/teacher/fn/"+url.PathEscape(fullName), sessionQuery(session))
	if err != nil {
		return nil, err
	}
	return decodeWeek(raw, "teacher "+fullName)
}

// RoomSchedule fetches the weekly table for a room.
func (c *Client) RoomSchedule(ctx context.Context, room string, session bool) (timetable.Week, error) {
	raw, err := c.get(ctx, "/api/v1/schedules/room/number/"+url.PathEscape(room), sessionQuery(session))
	if err != nil {
		return nil, err
	}
	return decodeWeek(raw, "room "+room)
}

func decodeWeek(raw json.RawMessage, what string) (timetable.Week, error) {
	var w timetable.Week
	if err := json.Unmarshal(raw, &w); err != nil {
		return nil, fmt.Errorf("%w: %s: decode week: %v", ErrUnavailable, what, err)
	}
	return w, nil
}

// GroupInfo is one entry of the group directory.
type GroupInfo struct {
	Number string `json:"number"`
	Course int    `json:"course,omitempty"`
}

// TeacherInfo is one entry of the teacher directory.
type TeacherInfo struct {
	FullName string `json:"fullname"`
}

// Groups fetches the directory of all known groups.
func (c *Client) Groups(ctx context.Context) ([]GroupInfo, error) {
	raw, err := c.get(ctx, "/api/v1/groups/", nil)
	if err != nil {
		return nil, err
	}
	var out struct {
		Groups []GroupInfo `json:"groups"`
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("%w: decode groups: %v", ErrUnavailable, err)
	}
	return out.Groups, nil
}

// Teachers fetches the directory of all known teachers.
func (c *Client) Teachers(ctx context.Context) ([]TeacherInfo, error) {
	raw, err := c.get(ctx, "/api/v1/teachers/", nil)
	if err != nil {
		return nil, err
	}
	var out struct {
		Teachers []TeacherInfo `json:"teachers"`
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("%w: decode teachers: %v", ErrUnavailable, err)
	}
	return out.Teachers, nil
}

package calling

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"meeting-platform/internal/config"

	"github.com/golang-jwt/jwt/v5"
)

const defaultStreamBaseURL = "https://video.stream-io-api.com"

// StreamProvider talks to the hosted Stream Video REST API. It covers the
// server-side half of the SDK boundary: call creation, force-end, and
// recordings. Media attachment state is reported by the browser SDK through
// the session feed, so Join hands out a RemoteAttachment.
type StreamProvider struct {
	apiKey  string
	secret  []byte
	baseURL string
	http    *http.Client
	clock   func() time.Time
}

func NewStreamProvider(cfg config.StreamConfig) (*StreamProvider, error) {
	if cfg.APIKey == "" || cfg.APISecret == "" {
		return nil, errors.New("calling: stream api key and secret are required")
	}
	base := cfg.BaseURL
	if base == "" {
		base = defaultStreamBaseURL
	}
	return &StreamProvider{
		apiKey:  cfg.APIKey,
		secret:  []byte(cfg.APISecret),
		baseURL: base,
		http:    &http.Client{Timeout: 10 * time.Second},
		clock:   time.Now,
	}, nil
}

func (p *StreamProvider) Name() string { return "stream" }

func (p *StreamProvider) HealthCheck(ctx context.Context) error {
	// Token signing is the only precondition we can check without spending a
	// rate-limited API request.
	_, err := p.serverToken()
	return err
}

// UserToken signs a short-lived token the browser SDK uses to connect as the
// given user. The handler returns it alongside the join response.
func (p *StreamProvider) UserToken(userID string, ttl time.Duration) (string, error) {
	if userID == "" {
		return "", errors.New("calling: user_id is required")
	}
	now := p.clock()
	claims := jwt.MapClaims{
		"user_id": userID,
		"iat":     now.Unix(),
		"exp":     now.Add(ttl).Unix(),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(p.secret)
}

func (p *StreamProvider) serverToken() (string, error) {
	claims := jwt.MapClaims{
		"server": true,
		"iat":    p.clock().Unix(),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(p.secret)
}

type streamCallRequest struct {
	Data streamCallData `json:"data"`
}

type streamCallData struct {
	CreatedByID string            `json:"created_by_id"`
	StartsAt    string            `json:"starts_at"`
	Custom      map[string]string `json:"custom,omitempty"`
}

type streamCallResponse struct {
	Call struct {
		ID          string            `json:"id"`
		Type        string            `json:"type"`
		CreatedByID string            `json:"created_by_id"`
		StartsAt    time.Time         `json:"starts_at"`
		CreatedAt   time.Time         `json:"created_at"`
		Custom      map[string]string `json:"custom"`
	} `json:"call"`
}

func (p *StreamProvider) GetOrCreateCall(ctx context.Context, req GetOrCreateCallRequest) (CallInfo, error) {
	if req.CallID == "" {
		return CallInfo{}, errors.New("calling: call id is required")
	}

	body := streamCallRequest{
		Data: streamCallData{
			CreatedByID: req.CreatedBy,
			StartsAt:    req.StartsAt.UTC().Format(time.RFC3339),
		},
	}
	if req.Description != "" {
		body.Data.Custom = map[string]string{"description": req.Description}
	}

	var out streamCallResponse
	path := fmt.Sprintf("/video/call/%s/%s", url.PathEscape(req.Kind), url.PathEscape(req.CallID))
	if err := p.do(ctx, http.MethodPost, path, body, &out); err != nil {
		return CallInfo{}, err
	}

	return CallInfo{
		ID:          out.Call.ID,
		Kind:        out.Call.Type,
		CreatedBy:   out.Call.CreatedByID,
		StartsAt:    out.Call.StartsAt,
		Description: out.Call.Custom["description"],
		CreatedAt:   out.Call.CreatedAt,
	}, nil
}

func (p *StreamProvider) Join(ctx context.Context, req JoinRequest) (Attachment, error) {
	if req.CallID == "" {
		return nil, errors.New("calling: call id is required")
	}
	a := NewRemoteAttachment(req.CallID, func(ctx context.Context) error {
		return p.EndCall(ctx, req.CallID)
	}, func(ctx context.Context) (CallStats, error) {
		return p.callStats(ctx, req.CallID)
	})
	a.Report(StateConnecting)
	return a, nil
}

func (p *StreamProvider) EndCall(ctx context.Context, callID string) error {
	path := fmt.Sprintf("/video/call/default/%s/mark_ended", url.PathEscape(callID))
	return p.do(ctx, http.MethodPost, path, struct{}{}, nil)
}

func (p *StreamProvider) ListRecordings(ctx context.Context, callID string) ([]Recording, error) {
	var out struct {
		Recordings []struct {
			URL     string    `json:"url"`
			StartAt time.Time `json:"start_time"`
			EndAt   time.Time `json:"end_time"`
		} `json:"recordings"`
	}
	path := fmt.Sprintf("/video/call/default/%s/recordings", url.PathEscape(callID))
	if err := p.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}

	recs := make([]Recording, 0, len(out.Recordings))
	for _, r := range out.Recordings {
		recs = append(recs, Recording{
			CallID:    callID,
			URL:       r.URL,
			StartedAt: r.StartAt,
			EndedAt:   r.EndAt,
		})
	}
	return recs, nil
}

func (p *StreamProvider) callStats(ctx context.Context, callID string) (CallStats, error) {
	var out struct {
		Call struct {
			Session struct {
				ParticipantCount int       `json:"participant_count"`
				StartedAt        time.Time `json:"started_at"`
			} `json:"session"`
		} `json:"call"`
	}
	path := fmt.Sprintf("/video/call/default/%s", url.PathEscape(callID))
	if err := p.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return CallStats{}, err
	}
	s := out.Call.Session
	stats := CallStats{CallID: callID, ParticipantCount: s.ParticipantCount, StartedAt: s.StartedAt}
	if !s.StartedAt.IsZero() {
		stats.Duration = p.clock().UTC().Sub(s.StartedAt)
	}
	return stats, nil
}

func (p *StreamProvider) do(ctx context.Context, method, path string, in, out any) error {
	token, err := p.serverToken()
	if err != nil {
		return err
	}

	u := fmt.Sprintf("%s%s?api_key=%s", p.baseURL, path, url.QueryEscape(p.apiKey))

	var body *bytes.Reader
	if in != nil {
		raw, err := json.Marshal(in)
		if err != nil {
			return err
		}
		body = bytes.NewReader(raw)
	} else {
		body = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, body)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", token)
	req.Header.Set("stream-auth-type", "jwt")
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return ErrNotFound
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("calling: stream api %s %s returned %d", method, path, resp.StatusCode)
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

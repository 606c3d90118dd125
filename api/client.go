// Package api is the authenticated client for the narration backend's product
// endpoints. Every request carries the current session's access token; a 401
// from the backend ends the session.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	apperrors "github.com/jrsteele09/narrate-web/internal/errors"
	"github.com/jrsteele09/narrate-web/internal/utils"
	"github.com/jrsteele09/narrate-web/oauth2"
	"github.com/rs/zerolog/log"
	xoauth2 "golang.org/x/oauth2"
)

// Backend product routes.
const (
	RouteVoices         = "/voices/"
	RouteVoicePreview   = "/voices/preview"
	RouteMyVideos       = "/videos/my-videos"
	RouteVideos         = "/videos/"
	RouteGenerateScript = "/reels/generate-script"
	RouteCreateReel     = "/reels/create"
	RouteSocialAccounts = "/social/accounts"
	RouteAnalyze        = "/analyze"
)

const maxErrorBody = 64 << 10

// SocialPlatforms are the platforms the backend can link.
var SocialPlatforms = []string{"facebook", "instagram", "tiktok"}

// Session is what the client needs from the session manager.
type Session interface {
	xoauth2.TokenSource
	Logout()
	RefreshProfile(ctx context.Context) error
}

// APIError is a non-2xx answer other than 401.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("backend returned status %d", e.StatusCode)
	}
	return fmt.Sprintf("%s (status %d)", e.Message, e.StatusCode)
}

type Client struct {
	baseURL    string
	session    Session
	httpClient *http.Client
}

type Option func(*Client)

// WithTimeout bounds each request. Uploads and reel rendering are slow, so
// the default is generous.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.httpClient.Timeout = d
	}
}

// WithBaseTransport sets the transport under the bearer token injection.
func WithBaseTransport(rt http.RoundTripper) Option {
	return func(c *Client) {
		c.httpClient.Transport.(*xoauth2.Transport).Base = rt
	}
}

func New(baseURL string, sess Session, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		session: sess,
		httpClient: &http.Client{
			Timeout:   10 * time.Minute,
			Transport: &xoauth2.Transport{Source: sess},
			CheckRedirect: func(*http.Request, []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) ListVoices(ctx context.Context) ([]Voice, error) {
	var out struct {
		Voices []Voice `json:"voices"`
	}
	if err := c.doJSON(ctx, http.MethodGet, RouteVoices, nil, &out); err != nil {
		return nil, fmt.Errorf("[api ListVoices] %w", err)
	}
	return out.Voices, nil
}

func (c *Client) PreviewVoice(ctx context.Context, voiceID, text string) (*VoicePreview, error) {
	form := url.Values{"voice_id": {voiceID}, "text": {text}}
	req, err := c.newRequest(ctx, http.MethodPost, RouteVoicePreview, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("[api PreviewVoice] %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	var out VoicePreview
	if err := c.do(req, &out); err != nil {
		return nil, fmt.Errorf("[api PreviewVoice] %w", err)
	}
	return &out, nil
}

func (c *Client) ListVideos(ctx context.Context) ([]Video, error) {
	var out struct {
		Videos []Video `json:"videos"`
	}
	if err := c.doJSON(ctx, http.MethodGet, RouteMyVideos, nil, &out); err != nil {
		return nil, fmt.Errorf("[api ListVideos] %w", err)
	}
	return out.Videos, nil
}

func (c *Client) DeleteVideo(ctx context.Context, id int64) error {
	if err := c.doJSON(ctx, http.MethodDelete, RouteVideos+strconv.FormatInt(id, 10), nil, nil); err != nil {
		return fmt.Errorf("[api DeleteVideo] %w", err)
	}
	return nil
}

func (c *Client) GenerateReelScript(ctx context.Context, r ScriptRequest) (*ReelScript, error) {
	var out ReelScript
	if err := c.doJSON(ctx, http.MethodPost, RouteGenerateScript, r, &out); err != nil {
		return nil, fmt.Errorf("[api GenerateReelScript] %w", err)
	}
	return &out, nil
}

// CreateReel renders a reel from a generated script and charges credits, so
// the cached profile is resynchronised afterwards.
func (c *Client) CreateReel(ctx context.Context, r ReelRequest) (json.RawMessage, error) {
	var out json.RawMessage
	err := c.doJSON(ctx, http.MethodPost, RouteCreateReel, r, &out)
	c.resyncCredits(ctx)
	if err != nil {
		return nil, fmt.Errorf("[api CreateReel] %w", err)
	}
	return out, nil
}

func (c *Client) ListSocialAccounts(ctx context.Context) ([]SocialAccount, error) {
	var out struct {
		Accounts []SocialAccount `json:"accounts"`
	}
	if err := c.doJSON(ctx, http.MethodGet, RouteSocialAccounts, nil, &out); err != nil {
		return nil, fmt.Errorf("[api ListSocialAccounts] %w", err)
	}
	return out.Accounts, nil
}

func (c *Client) DisconnectSocialAccount(ctx context.Context, id int64) error {
	if err := c.doJSON(ctx, http.MethodDelete, RouteSocialAccounts+"/"+strconv.FormatInt(id, 10), nil, nil); err != nil {
		return fmt.Errorf("[api DisconnectSocialAccount] %w", err)
	}
	return nil
}

// SocialLoginURL returns the platform authorisation URL the backend redirects
// to when linking an account.
func (c *Client) SocialLoginURL(ctx context.Context, platform string) (string, error) {
	req, err := c.newRequest(ctx, http.MethodGet, "/auth/"+url.PathEscape(platform)+"/login", nil)
	if err != nil {
		return "", fmt.Errorf("[api SocialLoginURL] %w", err)
	}
	resp, err := c.send(req)
	if err != nil {
		return "", fmt.Errorf("[api SocialLoginURL] %w", err)
	}
	defer resp.Body.Close()

	if loc := resp.Header.Get("Location"); loc != "" && resp.StatusCode >= 300 && resp.StatusCode < 400 {
		return loc, nil
	}
	var out struct {
		URL string `json:"url"`
	}
	if err := decode(resp, &out); err != nil {
		return "", fmt.Errorf("[api SocialLoginURL] %w", err)
	}
	if out.URL == "" {
		return "", fmt.Errorf("[api SocialLoginURL] %w: no authorization url", apperrors.ErrNetwork)
	}
	return out.URL, nil
}

// AnalyzeVideo uploads a video for narration and waits for the result.
func (c *Client) AnalyzeVideo(ctx context.Context, filename string, video io.Reader, opts AnalyzeOptions) (*AnalysisResult, error) {
	body := &bytes.Buffer{}
	mw := multipart.NewWriter(body)
	part, err := mw.CreateFormFile("file", filepath.Base(filename))
	if err != nil {
		return nil, fmt.Errorf("[api AnalyzeVideo] %w", err)
	}
	if _, err := io.Copy(part, video); err != nil {
		return nil, fmt.Errorf("[api AnalyzeVideo] read video: %w", err)
	}
	for k, v := range opts.fields() {
		if err := mw.WriteField(k, v); err != nil {
			return nil, fmt.Errorf("[api AnalyzeVideo] %w", err)
		}
	}
	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("[api AnalyzeVideo] %w", err)
	}

	req, err := c.newRequest(ctx, http.MethodPost, RouteAnalyze, body)
	if err != nil {
		return nil, fmt.Errorf("[api AnalyzeVideo] %w", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	var out AnalysisResult
	err = c.do(req, &out)
	c.resyncCredits(ctx)
	if err != nil {
		return nil, fmt.Errorf("[api AnalyzeVideo] %w", err)
	}
	return &out, nil
}

func (o AnalyzeOptions) fields() map[string]string {
	f := map[string]string{
		"style":           orDefault(o.Style, "viral"),
		"pace":            orDefault(o.Pace, "medium"),
		"original_volume": strconv.FormatFloat(o.OriginalVolume, 'f', -1, 64),
	}
	if o.VoiceID != "" {
		f["voice_id"] = o.VoiceID
	}
	for name, v := range map[string]*float64{
		"stability":        o.Stability,
		"similarity_boost": o.SimilarityBoost,
		"speed":            o.Speed,
	} {
		if v != nil {
			f[name] = strconv.FormatFloat(utils.Value(v), 'f', -1, 64)
		}
	}
	return f
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}

func (c *Client) resyncCredits(ctx context.Context) {
	if err := c.session.RefreshProfile(context.WithoutCancel(ctx)); err != nil {
		log.Debug().Err(err).Msg("credit resync skipped")
	}
}

func (c *Client) newRequest(ctx context.Context, method, route string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+route, body)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	return req, nil
}

func (c *Client) doJSON(ctx context.Context, method, route string, in, out any) error {
	var body io.Reader
	if in != nil {
		payload, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(payload)
	}
	req, err := c.newRequest(ctx, method, route, body)
	if err != nil {
		return err
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return c.do(req, out)
}

func (c *Client) do(req *http.Request, out any) error {
	resp, err := c.send(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	return decode(resp, out)
}

// send refuses to go out without a session and ends the session when the
// backend no longer accepts its token.
func (c *Client) send(req *http.Request) (*http.Response, error) {
	if _, err := c.session.Token(); err != nil {
		return nil, apperrors.ErrNotAuthenticated
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		if apperrors.Is(err, apperrors.ErrNotAuthenticated) {
			return nil, apperrors.ErrNotAuthenticated
		}
		return nil, fmt.Errorf("%w: %v", apperrors.ErrNetwork, err)
	}
	if resp.StatusCode == http.StatusUnauthorized {
		resp.Body.Close()
		log.Info().Str("path", req.URL.Path).Msg("backend rejected access token, signing out")
		c.session.Logout()
		return nil, apperrors.ErrNotAuthenticated
	}
	return resp, nil
}

func decode(resp *http.Response, out any) error {
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		var er oauth2.ErrorResponse
		msg := ""
		if json.Unmarshal(body, &er) == nil {
			msg = er.Message()
		}
		return &APIError{StatusCode: resp.StatusCode, Message: msg}
	}
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: decode response: %v", apperrors.ErrNetwork, err)
	}
	return nil
}

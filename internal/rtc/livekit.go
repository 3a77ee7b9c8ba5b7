package rtc

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/abdulrahman112001/ElearningPro-sub002/internal/config"

	"github.com/golang-jwt/jwt/v5"
)

// VideoGrant is the capability set embedded in a participant credential.
// Hosts get publish plus moderation (RoomAdmin); attendees get subscribe and
// publish but never moderation.
type VideoGrant struct {
	Room         string `json:"room"`
	RoomJoin     bool   `json:"roomJoin"`
	RoomAdmin    bool   `json:"roomAdmin,omitempty"`
	RoomCreate   bool   `json:"roomCreate,omitempty"`
	CanPublish   bool   `json:"canPublish"`
	CanSubscribe bool   `json:"canSubscribe"`
}

type accessClaims struct {
	Name  string     `json:"name,omitempty"`
	Video VideoGrant `json:"video"`
	jwt.RegisteredClaims
}

// LiveKit talks to a LiveKit-compatible media server over its twirp HTTP API
// and mints access tokens signed with the shared API secret.
type LiveKit struct {
	cfg    config.LiveKitConfig
	client *http.Client
}

// NewLiveKit builds the provider from config. Every HTTP call is bounded by
// the configured timeout.
func NewLiveKit(cfg config.LiveKitConfig) *LiveKit {
	return &LiveKit{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.Timeout()},
	}
}

// CreateRoom provisions the named room. Creating a room that already exists
// returns the existing room on the server side, so the call is repeat-safe.
func (l *LiveKit) CreateRoom(ctx context.Context, roomID string) error {
	body := map[string]interface{}{
		"name": roomID,
	}
	if err := l.call(ctx, "CreateRoom", body); err != nil {
		return fmt.Errorf("create room %s: %w", roomID, err)
	}
	return nil
}

// DeleteRoom tears the room down. A room that no longer exists counts as
// deleted.
func (l *LiveKit) DeleteRoom(ctx context.Context, roomID string) error {
	body := map[string]interface{}{
		"room": roomID,
	}
	err := l.call(ctx, "DeleteRoom", body)
	if err == nil || isNotFound(err) {
		return nil
	}
	return fmt.Errorf("delete room %s: %w", roomID, err)
}

// IssueCredential mints a participant access token for the room. The token is
// the only credential state; it expires on its own and is never stored.
func (l *LiveKit) IssueCredential(roomID, participantName string, participantID uint, isHost bool) (string, error) {
	now := time.Now()
	claims := &accessClaims{
		Name: participantName,
		Video: VideoGrant{
			Room:         roomID,
			RoomJoin:     true,
			RoomAdmin:    isHost,
			CanPublish:   true,
			CanSubscribe: true,
		},
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    l.cfg.APIKey,
			Subject:   strconv.FormatUint(uint64(participantID), 10),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(l.cfg.TokenTTL())),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(l.cfg.APISecret))
	if err != nil {
		return "", fmt.Errorf("sign credential: %w", err)
	}
	return signed, nil
}

// adminToken signs a short-lived token authorizing room-service calls.
func (l *LiveKit) adminToken() (string, error) {
	now := time.Now()
	claims := &accessClaims{
		Video: VideoGrant{RoomCreate: true, RoomAdmin: true},
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    l.cfg.APIKey,
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(time.Minute)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(l.cfg.APISecret))
}

type twirpError struct {
	Code string `json:"code"`
	Msg  string `json:"msg"`
}

func (e *twirpError) Error() string { return e.Code + ": " + e.Msg }

func isNotFound(err error) bool {
	te, ok := err.(*twirpError)
	return ok && te.Code == "not_found"
}

// call posts one RoomService RPC and decodes twirp-style errors.
func (l *LiveKit) call(ctx context.Context, method string, body interface{}) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return err
	}

	url := l.cfg.Host + "/twirp/livekit.RoomService/" + method
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return err
	}

	auth, err := l.adminToken()
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+auth)

	resp, err := l.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusOK {
		return nil
	}

	data, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	var te twirpError
	if jsonErr := json.Unmarshal(data, &te); jsonErr == nil && te.Code != "" {
		return &te
	}
	return fmt.Errorf("room service %s: status %d", method, resp.StatusCode)
}

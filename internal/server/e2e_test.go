package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/poonnyworld/pbz-bots/internal/bot"
	"github.com/poonnyworld/pbz-bots/internal/domain"
	"github.com/poonnyworld/pbz-bots/internal/handler"
	"github.com/poonnyworld/pbz-bots/internal/handler/mw"
	"github.com/poonnyworld/pbz-bots/internal/repository"
	"github.com/poonnyworld/pbz-bots/internal/usecase"
)

type chatLog struct {
	mu    sync.Mutex
	texts []string
}

func (c *chatLog) Send(_ int64, _ int, text string) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.texts = append(c.texts, text)
	return len(c.texts), nil
}

func (c *chatLog) Edit(_ int64, _ int, text string) error {
	_, err := c.Send(0, 0, text)
	return err
}

func (c *chatLog) lastText() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.texts[len(c.texts)-1]
}

type tailsCoin struct{}

func (tailsCoin) Flip() (domain.Side, error) { return domain.Tails, nil }

type userResponse struct {
	ID     string `json:"id"`
	Points int64  `json:"points"`
}

type redemptionResponse struct {
	UserID string `json:"userId"`
	ItemID int64  `json:"itemId"`
	Cost   int64  `json:"cost"`
}

// TestFullScenario drives the chat commands and the admin API against one
// engine: the admin stocks the shop, players earn and spend, the admin audits.
func TestFullScenario(t *testing.T) {
	svc := usecase.NewService(repository.NewMemoryRepo(), usecase.DefaultRules(), usecase.WithCoin(tailsCoin{}))
	hash, err := bcrypt.GenerateFromPassword([]byte("Strong@Pass123"), bcrypt.MinCost)
	require.NoError(t, err)
	h := handler.NewHandler(svc, mw.NewAuth([]byte("e2e")), handler.Credentials{Username: "admin", PasswordHash: hash}, zerolog.Nop())
	ts := httptest.NewServer(NewRouter(h))
	defer ts.Close()

	chat := &chatLog{}
	b := bot.New(svc, chat, bot.Config{MaxBet: 500, DailyFlipLimit: 5, DailyReward: 50, RevealDelay: 40 * time.Millisecond}, zerolog.Nop())
	say := func(user, text string) string {
		b.Handle(context.Background(), bot.Message{ChatID: 1, UserID: user, UserName: user, Text: text})
		return chat.lastText()
	}

	token, err := login(ts.URL, "admin", "Strong@Pass123")
	require.NoError(t, err)
	_, err = login(ts.URL, "admin", "wrong")
	assert.Error(t, err)

	itemID, err := createItem(ts.URL, token, map[string]interface{}{"name": "Hoodie", "cost": 55, "stock": 1})
	require.NoError(t, err)

	assert.Contains(t, say("ziyo", "!start"), "10 starting souls")
	assert.Contains(t, say("alibek", "!start"), "10 starting souls")
	assert.Contains(t, say("ziyo", "!daily"), "balance 60")
	assert.Contains(t, say("ziyo", "!shop"), "Hoodie")
	assert.Contains(t, say("ziyo", fmt.Sprintf("!buy %d", itemID)), "Balance: 5 souls")
	assert.Contains(t, say("alibek", "!daily"), "balance 60")
	assert.Contains(t, say("alibek", fmt.Sprintf("!buy %d", itemID)), "out of stock")

	assert.Contains(t, say("alibek", "!flip 20 h"), "bets 20 on HEADS")
	b.Wait()
	assert.Contains(t, strings.Join(chat.texts, "\n"), "DEFEAT (-20)")

	users, err := listUsers(ts.URL, token)
	require.NoError(t, err)
	points := map[string]int64{}
	for _, u := range users {
		points[u.ID] = u.Points
	}
	assert.Equal(t, map[string]int64{"ziyo": 5, "alibek": 40}, points)

	reds, err := listRedemptions(ts.URL, token)
	require.NoError(t, err)
	require.Len(t, reds, 1)
	assert.Equal(t, redemptionResponse{UserID: "ziyo", ItemID: itemID, Cost: 55}, reds[0])
}

func login(base, username, password string) (string, error) {
	data, _ := json.Marshal(map[string]string{"username": username, "password": password})
	resp, err := http.Post(base+"/api/login", "application/json", bytes.NewReader(data))
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", parseError(resp)
	}
	var ar struct {
		Token string `json:"token"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&ar); err != nil {
		return "", err
	}
	return ar.Token, nil
}

func createItem(base, token string, body map[string]interface{}) (int64, error) {
	data, _ := json.Marshal(body)
	resp, err := authorized(http.MethodPost, base+"/api/items", token, bytes.NewReader(data))
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusCreated {
		return 0, parseError(resp)
	}
	var it struct {
		ID int64 `json:"id"`
	}
	err = json.NewDecoder(resp.Body).Decode(&it)
	return it.ID, err
}

func listUsers(base, token string) ([]userResponse, error) {
	var users []userResponse
	return users, getJSON(base+"/api/users", token, &users)
}

func listRedemptions(base, token string) ([]redemptionResponse, error) {
	var reds []redemptionResponse
	return reds, getJSON(base+"/api/redemptions?limit=10", token, &reds)
}

func getJSON(url, token string, out interface{}) error {
	resp, err := authorized(http.MethodGet, url, token, nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return parseError(resp)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func authorized(method, url, token string, body *bytes.Reader) (*http.Response, error) {
	var req *http.Request
	var err error
	if body != nil {
		req, err = http.NewRequest(method, url, body)
	} else {
		req, err = http.NewRequest(method, url, nil)
	}
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")
	return http.DefaultClient.Do(req)
}

func parseError(resp *http.Response) error {
	var errResp struct {
		Errors string `json:"errors"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&errResp); err != nil {
		return fmt.Errorf("status %d", resp.StatusCode)
	}
	return fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(errResp.Errors))
}

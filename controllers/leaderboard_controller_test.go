package controllers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/stocktribe/stocktribe/utils"
)

func leaderboardRouter(db *gorm.DB, store *utils.LeaderboardStore, hub *utils.SSEHub) *gin.Engine {
	r := gin.New()
	lc := NewLeaderboardController(db, store, hub)
	r.GET("/leaderboard", lc.Get)
	r.POST("/leaderboard", lc.Post)
	r.POST("/leaderboard/rank", lc.Rank)
	r.GET("/leaderboard/stream", lc.Stream)
	return r
}

func TestLeaderboard_PostMembersThenGet(t *testing.T) {
	db := testDB(t)
	store := utils.NewLeaderboardStore(t.TempDir())
	r := leaderboardRouter(db, store, utils.NewSSEHub())

	w := performJSON(t, r, http.MethodPost, "/leaderboard", gin.H{
		"members": []gin.H{
			{"id": "1", "name": "Ada", "score": 3},
			{"id": "2", "name": "Bob", "score": 8},
		},
	}, nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = performJSON(t, r, http.MethodGet, "/leaderboard", nil, nil)
	assert.Equal(t, http.StatusOK, w.Code)
	var data struct {
		Members []utils.LeaderboardEntry `json:"members"`
	}
	decodeData(t, w, &data)
	require.Len(t, data.Members, 2)
	assert.Equal(t, "Bob", data.Members[0].Name, "entries come back sorted by score")
	assert.Equal(t, "Ada", data.Members[1].Name)
}

func TestLeaderboard_PostUpdatesMergesSparse(t *testing.T) {
	db := testDB(t)
	store := utils.NewLeaderboardStore(t.TempDir())
	_, err := store.Replace([]utils.LeaderboardEntry{{ID: "1", Name: "Ada", Score: 3}})
	require.NoError(t, err)

	r := leaderboardRouter(db, store, utils.NewSSEHub())
	w := performJSON(t, r, http.MethodPost, "/leaderboard", gin.H{
		"updates": []gin.H{
			{"id": "1", "score": 10},
			{"id": "new", "name": "Zoe", "score": 4},
		},
	}, nil)
	require.Equal(t, http.StatusOK, w.Code)

	entries, err := store.Read()
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "Ada", entries[0].Name)
	assert.Equal(t, 10, entries[0].Score)
	assert.Equal(t, "Zoe", entries[1].Name)
}

func TestLeaderboard_PostSinglePair(t *testing.T) {
	db := testDB(t)
	store := utils.NewLeaderboardStore(t.TempDir())
	_, err := store.Replace([]utils.LeaderboardEntry{
		{ID: "1", Score: 3},
		{ID: "2", Score: 5},
	})
	require.NoError(t, err)

	r := leaderboardRouter(db, store, utils.NewSSEHub())
	w := performJSON(t, r, http.MethodPost, "/leaderboard", gin.H{"id": "1", "score": 9}, nil)
	require.Equal(t, http.StatusOK, w.Code)

	entries, err := store.Read()
	require.NoError(t, err)
	assert.Equal(t, "1", entries[0].ID)
	assert.Equal(t, 9, entries[0].Score)
}

func TestLeaderboard_PostUnrecognizedShape(t *testing.T) {
	db := testDB(t)
	store := utils.NewLeaderboardStore(t.TempDir())
	r := leaderboardRouter(db, store, utils.NewSSEHub())

	w := performJSON(t, r, http.MethodPost, "/leaderboard", gin.H{"id": "1"}, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	env := decodeEnvelope(t, w)
	assert.Equal(t, 40041, env.Code)
	assert.Equal(t, "unrecognized leaderboard write shape", env.Message)
}

func TestLeaderboard_PostBroadcasts(t *testing.T) {
	db := testDB(t)
	store := utils.NewLeaderboardStore(t.TempDir())
	hub := utils.NewSSEHub()
	client := hub.Register()
	defer hub.Unregister(client.ID)

	r := leaderboardRouter(db, store, hub)
	w := performJSON(t, r, http.MethodPost, "/leaderboard", gin.H{
		"members": []gin.H{{"id": "1", "score": 1}},
	}, nil)
	require.Equal(t, http.StatusOK, w.Code)

	select {
	case payload := <-client.Ch:
		assert.Contains(t, string(payload), `"type":"update"`)
	default:
		t.Fatal("expected a broadcast after a leaderboard write")
	}
}

func TestLeaderboard_Rank(t *testing.T) {
	db := testDB(t)
	store := utils.NewLeaderboardStore(t.TempDir())
	seedUser(t, db, "Ada", "ada@example.com", 9)
	bob := seedUser(t, db, "Bob", "bob@example.com", 4)
	seedUser(t, db, "Cyd", "cyd@example.com", 7)

	r := leaderboardRouter(db, store, utils.NewSSEHub())
	w := performJSON(t, r, http.MethodPost, "/leaderboard/rank", gin.H{"userId": bob.ID}, nil)
	assert.Equal(t, http.StatusOK, w.Code)

	var data struct {
		Leaderboard []utils.LeaderboardEntry `json:"leaderboard"`
		MyRank      int                      `json:"myRank"`
	}
	decodeData(t, w, &data)
	assert.Equal(t, 3, data.MyRank)
	require.Len(t, data.Leaderboard, 3)
	assert.Equal(t, "Ada", data.Leaderboard[0].Name)
}

func TestLeaderboard_RankUnknownUser(t *testing.T) {
	db := testDB(t)
	store := utils.NewLeaderboardStore(t.TempDir())
	seedUser(t, db, "Ada", "ada@example.com", 9)

	r := leaderboardRouter(db, store, utils.NewSSEHub())
	w := performJSON(t, r, http.MethodPost, "/leaderboard/rank", gin.H{"userId": 999}, nil)
	assert.Equal(t, http.StatusOK, w.Code)

	var data struct {
		MyRank int `json:"myRank"`
	}
	decodeData(t, w, &data)
	assert.Equal(t, 0, data.MyRank)
}

func TestLeaderboard_StreamLifecycle(t *testing.T) {
	db := testDB(t)
	store := utils.NewLeaderboardStore(t.TempDir())
	hub := utils.NewSSEHub()
	r := leaderboardRouter(db, store, hub)

	reqCtx, cancel := context.WithCancel(context.Background())
	req := httptest.NewRequest(http.MethodGet, "/leaderboard/stream", nil).WithContext(reqCtx)
	w := httptest.NewRecorder()

	done := make(chan struct{})
	go func() {
		r.ServeHTTP(w, req)
		close(done)
	}()

	require.Eventually(t, func() bool { return hub.Len() == 1 }, time.Second, 5*time.Millisecond)

	require.Equal(t, 1, hub.Broadcast([]byte(`{"type":"update","members":[]}`)))
	// give the stream loop time to drain the payload before disconnecting
	time.Sleep(100 * time.Millisecond)

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("stream handler did not exit on disconnect")
	}

	assert.Equal(t, 0, hub.Len(), "client is unregistered on disconnect")
	body := w.Body.String()
	assert.True(t, strings.HasPrefix(body, ":ok\n\n"))
	assert.Contains(t, body, "data: {\"type\":\"update\"")
	assert.Equal(t, "text/event-stream", w.Header().Get("Content-Type"))
}

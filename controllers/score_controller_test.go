package controllers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/stocktribe/stocktribe/middleware"
	"github.com/stocktribe/stocktribe/models"
	"github.com/stocktribe/stocktribe/utils"
)

type fakeStocks struct {
	results map[string]bool
	err     error
}

func (f *fakeStocks) FetchStockResults(ctx context.Context) (map[string]bool, error) {
	return f.results, f.err
}

func scoreRouter(db *gorm.DB, stocks StockResolver, store *utils.LeaderboardStore, hub *utils.SSEHub) *gin.Engine {
	r := gin.New()
	sc := NewScoreController(db, stocks, store, hub)
	r.POST("/score", middleware.CronSecretRequired(), sc.Score)
	return r
}

func cronHeaders() map[string]string {
	return map[string]string{middleware.CronHeader: "test-cron-secret"}
}

func seedLockedPrediction(t *testing.T, db *gorm.DB, userID uint, aapl, msft, googl bool) {
	t.Helper()
	now := time.Now()
	require.NoError(t, db.Create(&models.Prediction{
		UserID: userID, AAPL: aapl, MSFT: msft, GOOGL: googl,
		Date: now, Locked: true, CreatedAt: now,
	}).Error)
}

func TestScore_AwardsOnlyPerfectCalls(t *testing.T) {
	db := testDB(t)
	store := utils.NewLeaderboardStore(t.TempDir())
	hub := utils.NewSSEHub()

	winner := seedUser(t, db, "Ada", "ada@example.com", 2)
	partial := seedUser(t, db, "Bob", "bob@example.com", 0)
	unlocked := seedUser(t, db, "Cyd", "cyd@example.com", 0)

	outcomes := map[string]bool{"AAPL": true, "MSFT": false, "GOOGL": true}
	seedLockedPrediction(t, db, winner.ID, true, false, true)
	seedLockedPrediction(t, db, partial.ID, true, true, true)
	now := time.Now()
	require.NoError(t, db.Create(&models.Prediction{
		UserID: unlocked.ID, AAPL: true, GOOGL: true, Date: now, Locked: false, CreatedAt: now,
	}).Error)

	r := scoreRouter(db, &fakeStocks{results: outcomes}, store, hub)
	w := performJSON(t, r, http.MethodPost, "/score", nil, cronHeaders())
	assert.Equal(t, http.StatusOK, w.Code)

	var data struct {
		Success   bool `json:"success"`
		Processed int  `json:"processed"`
	}
	decodeData(t, w, &data)
	assert.True(t, data.Success)
	assert.Equal(t, 2, data.Processed, "only locked predictions from today count")

	var got models.User
	require.NoError(t, db.First(&got, winner.ID).Error)
	assert.Equal(t, 3, got.Points)
	require.NoError(t, db.First(&got, partial.ID).Error)
	assert.Equal(t, 0, got.Points, "two of three earns nothing")
	require.NoError(t, db.First(&got, unlocked.ID).Error)
	assert.Equal(t, 0, got.Points)
}

func TestScore_AwardsUserOnceDespiteDuplicateLockedRows(t *testing.T) {
	db := testDB(t)
	store := utils.NewLeaderboardStore(t.TempDir())
	user := seedUser(t, db, "Ada", "ada@example.com", 0)

	// resubmit-then-relock can leave two locked rows for the same user
	seedLockedPrediction(t, db, user.ID, true, true, true)
	seedLockedPrediction(t, db, user.ID, true, true, true)

	outcomes := map[string]bool{"AAPL": true, "MSFT": true, "GOOGL": true}
	r := scoreRouter(db, &fakeStocks{results: outcomes}, store, utils.NewSSEHub())
	w := performJSON(t, r, http.MethodPost, "/score", nil, cronHeaders())
	require.Equal(t, http.StatusOK, w.Code)

	var data struct {
		Processed int `json:"processed"`
	}
	decodeData(t, w, &data)
	assert.Equal(t, 2, data.Processed)

	var got models.User
	require.NoError(t, db.First(&got, user.ID).Error)
	assert.Equal(t, 1, got.Points, "duplicate rows collapse to one award")
}

func TestScore_IgnoresPastDays(t *testing.T) {
	db := testDB(t)
	store := utils.NewLeaderboardStore(t.TempDir())
	user := seedUser(t, db, "Ada", "ada@example.com", 0)

	yesterday := time.Now().Add(-24 * time.Hour)
	require.NoError(t, db.Create(&models.Prediction{
		UserID: user.ID, AAPL: true, MSFT: true, GOOGL: true,
		Date: yesterday, Locked: true, CreatedAt: yesterday,
	}).Error)

	outcomes := map[string]bool{"AAPL": true, "MSFT": true, "GOOGL": true}
	r := scoreRouter(db, &fakeStocks{results: outcomes}, store, utils.NewSSEHub())
	w := performJSON(t, r, http.MethodPost, "/score", nil, cronHeaders())
	require.Equal(t, http.StatusOK, w.Code)

	var data struct {
		Processed int `json:"processed"`
	}
	decodeData(t, w, &data)
	assert.Equal(t, 0, data.Processed)

	var got models.User
	require.NoError(t, db.First(&got, user.ID).Error)
	assert.Equal(t, 0, got.Points)
}

func TestScore_IdempotentPerDay(t *testing.T) {
	db := testDB(t)
	store := utils.NewLeaderboardStore(t.TempDir())
	user := seedUser(t, db, "Ada", "ada@example.com", 0)
	seedLockedPrediction(t, db, user.ID, true, true, true)

	outcomes := map[string]bool{"AAPL": true, "MSFT": true, "GOOGL": true}
	r := scoreRouter(db, &fakeStocks{results: outcomes}, store, utils.NewSSEHub())

	w := performJSON(t, r, http.MethodPost, "/score", nil, cronHeaders())
	require.Equal(t, http.StatusOK, w.Code)

	w = performJSON(t, r, http.MethodPost, "/score", nil, cronHeaders())
	assert.Equal(t, http.StatusOK, w.Code)
	env := decodeEnvelope(t, w)
	assert.Equal(t, "success", env.Message)
	var data struct {
		Processed int    `json:"processed"`
		Message   string `json:"message"`
	}
	decodeData(t, w, &data)
	assert.Equal(t, 0, data.Processed)
	assert.Equal(t, "already scored for today", data.Message)

	var got models.User
	require.NoError(t, db.First(&got, user.ID).Error)
	assert.Equal(t, 1, got.Points, "rerun never double-awards")

	var runs []models.ScoreRun
	require.NoError(t, db.Find(&runs).Error)
	assert.Len(t, runs, 1)
}

func TestScore_ResolverFailureAwardsNothing(t *testing.T) {
	db := testDB(t)
	store := utils.NewLeaderboardStore(t.TempDir())
	user := seedUser(t, db, "Ada", "ada@example.com", 0)
	seedLockedPrediction(t, db, user.ID, true, true, true)

	r := scoreRouter(db, &fakeStocks{err: errors.New("rate limited")}, store, utils.NewSSEHub())
	w := performJSON(t, r, http.MethodPost, "/score", nil, cronHeaders())
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	env := decodeEnvelope(t, w)
	assert.Equal(t, 50031, env.Code)

	var got models.User
	require.NoError(t, db.First(&got, user.ID).Error)
	assert.Equal(t, 0, got.Points)

	var count int64
	require.NoError(t, db.Model(&models.ScoreRun{}).Count(&count).Error)
	assert.Equal(t, int64(0), count, "a failed run can be retried")
}

func TestScore_PublishesLeaderboardAndNotifiesStreams(t *testing.T) {
	db := testDB(t)
	store := utils.NewLeaderboardStore(t.TempDir())
	hub := utils.NewSSEHub()

	winner := seedUser(t, db, "Ada", "ada@example.com", 4)
	seedUser(t, db, "Bob", "bob@example.com", 9)
	seedLockedPrediction(t, db, winner.ID, true, false, false)

	client := hub.Register()
	defer hub.Unregister(client.ID)

	outcomes := map[string]bool{"AAPL": true, "MSFT": false, "GOOGL": false}
	r := scoreRouter(db, &fakeStocks{results: outcomes}, store, hub)
	w := performJSON(t, r, http.MethodPost, "/score", nil, cronHeaders())
	require.Equal(t, http.StatusOK, w.Code)

	entries, err := store.Read()
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "Bob", entries[0].Name)
	assert.Equal(t, 9, entries[0].Score)
	assert.Equal(t, "Ada", entries[1].Name)
	assert.Equal(t, 5, entries[1].Score)

	records, err := store.History()
	require.NoError(t, err)
	assert.Len(t, records, 1)

	select {
	case payload := <-client.Ch:
		var msg struct {
			Type    string                   `json:"type"`
			Members []utils.LeaderboardEntry `json:"members"`
		}
		require.NoError(t, json.Unmarshal(payload, &msg))
		assert.Equal(t, "update", msg.Type)
		assert.Len(t, msg.Members, 2)
	default:
		t.Fatal("expected a leaderboard broadcast after scoring")
	}
}

func TestScore_RequiresCronSecret(t *testing.T) {
	db := testDB(t)
	store := utils.NewLeaderboardStore(t.TempDir())
	r := scoreRouter(db, &fakeStocks{results: map[string]bool{}}, store, utils.NewSSEHub())

	w := performJSON(t, r, http.MethodPost, "/score", nil, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = performJSON(t, r, http.MethodPost, "/score", nil, map[string]string{middleware.CronHeader: "wrong"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	env := decodeEnvelope(t, w)
	assert.Equal(t, 40120, env.Code)
}

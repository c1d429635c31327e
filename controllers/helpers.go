package controllers

import (
	"encoding/json"
	"strconv"

	"gorm.io/gorm"

	"github.com/stocktribe/stocktribe/middleware"
	"github.com/stocktribe/stocktribe/models"
	"github.com/stocktribe/stocktribe/utils"

	"github.com/gin-gonic/gin"
)

// leaderboardCacheKey caches the serialized GET /leaderboard envelope.
const leaderboardCacheKey = "cache:leaderboard"

func getUserID(ctx *gin.Context) (uint, bool) {
	value, exists := ctx.Get(middleware.ContextUserIDKey)
	if !exists {
		return 0, false
	}

	switch v := value.(type) {
	case uint:
		return v, true
	case int:
		return uint(v), true
	case int64:
		return uint(v), true
	case float64:
		return uint(v), true
	default:
		return 0, false
	}
}

// leaderboardFromUsers materializes the canonical users-by-points ledger into
// leaderboard view entries. The users slice must already be ordered by points
// descending; the stable store sort preserves that order on ties.
func leaderboardFromUsers(users []models.User) []utils.LeaderboardEntry {
	entries := make([]utils.LeaderboardEntry, 0, len(users))
	for _, u := range users {
		entries = append(entries, utils.LeaderboardEntry{
			ID:    strconv.FormatUint(uint64(u.ID), 10),
			Name:  u.Name,
			Score: u.Points,
		})
	}
	return entries
}

// publishLeaderboard rebuilds the materialized leaderboard view from the users
// table, persists it (appending a history snapshot), notifies stream
// consumers, and drops the cached read response.
func publishLeaderboard(db *gorm.DB, store *utils.LeaderboardStore, hub *utils.SSEHub) error {
	var users []models.User
	if err := db.Order("points DESC").Find(&users).Error; err != nil {
		return err
	}
	entries, err := store.Replace(leaderboardFromUsers(users))
	if err != nil {
		return err
	}
	broadcastLeaderboard(hub, entries)
	utils.CacheDelete(leaderboardCacheKey)
	return nil
}

// broadcastLeaderboard serializes once and fans out to all open streams.
func broadcastLeaderboard(hub *utils.SSEHub, entries []utils.LeaderboardEntry) {
	if hub == nil {
		return
	}
	payload, err := json.Marshal(gin.H{"type": "update", "members": entries})
	if err != nil {
		return
	}
	hub.Broadcast(payload)
}

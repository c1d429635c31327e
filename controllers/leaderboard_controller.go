package controllers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/stocktribe/stocktribe/models"
	"github.com/stocktribe/stocktribe/utils"
)

// LeaderboardController serves the ranked list, accepts view overrides, and
// pushes live updates over SSE.
type LeaderboardController struct {
	db    *gorm.DB
	store *utils.LeaderboardStore
	hub   *utils.SSEHub
}

// NewLeaderboardController creates a new controller instance.
func NewLeaderboardController(db *gorm.DB, store *utils.LeaderboardStore, hub *utils.SSEHub) *LeaderboardController {
	return &LeaderboardController{db: db, store: store, hub: hub}
}

// Get returns the stored leaderboard sorted descending by score.
func (l *LeaderboardController) Get(ctx *gin.Context) {
	if b, ok := utils.CacheGetBytes(leaderboardCacheKey); ok {
		ctx.Data(http.StatusOK, "application/json", b)
		return
	}

	entries, err := l.store.Read()
	if err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50040, "failed to read leaderboard")
		return
	}

	wrapper := utils.JSONResponse{Code: 0, Message: "success", Data: gin.H{"members": entries}}
	if b, err := json.Marshal(wrapper); err == nil {
		utils.CacheSetBytes(leaderboardCacheKey, b, 30*time.Second)
	}
	utils.Success(ctx, gin.H{"members": entries})
}

// leaderboardWrite is the tagged union of accepted write shapes, discriminated
// by which fields the body carries: a full member list, a sparse update list,
// or a single {id, score} pair, in that precedence.
type leaderboardWrite struct {
	Members []utils.LeaderboardEntry `json:"members"`
	Updates []utils.LeaderboardEntry `json:"updates"`
	ID      string                   `json:"id"`
	Score   *int                     `json:"score"`
}

// Post applies a leaderboard override. Every successful write re-sorts,
// persists, appends one history snapshot, and broadcasts to open streams.
func (l *LeaderboardController) Post(ctx *gin.Context) {
	var body leaderboardWrite
	if err := ctx.ShouldBindJSON(&body); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40040, "invalid request payload")
		return
	}

	var (
		entries []utils.LeaderboardEntry
		err     error
	)
	switch {
	case body.Members != nil:
		entries, err = l.store.Replace(body.Members)
	case body.Updates != nil:
		entries, err = l.store.MergeUpdates(body.Updates)
	case body.ID != "" && body.Score != nil:
		entries, err = l.store.ApplySingle(body.ID, *body.Score)
	default:
		utils.Error(ctx, http.StatusBadRequest, 40041, "unrecognized leaderboard write shape")
		return
	}
	if err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50041, "failed to write leaderboard")
		return
	}

	broadcastLeaderboard(l.hub, entries)
	utils.CacheDelete(leaderboardCacheKey)

	utils.Success(ctx, gin.H{"ok": true})
}

// Rank returns the full ranking derived from the canonical users table plus
// the requesting user's 1-based position; 0 means the id is unknown.
func (l *LeaderboardController) Rank(ctx *gin.Context) {
	type request struct {
		UserID uint `json:"userId" binding:"required"`
	}

	var req request
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40042, "invalid request payload")
		return
	}

	var users []models.User
	if err := l.db.Order("points DESC").Find(&users).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50042, "failed to load users")
		return
	}

	myRank := 0
	for i, u := range users {
		if u.ID == req.UserID {
			myRank = i + 1
			break
		}
	}

	utils.Success(ctx, gin.H{
		"leaderboard": leaderboardFromUsers(users),
		"myRank":      myRank,
	})
}

// Stream registers an SSE consumer: an immediate connection comment, a
// keep-alive every KeepAliveInterval, and a data frame per leaderboard write.
// The client is unregistered the moment the request context ends.
func (l *LeaderboardController) Stream(ctx *gin.Context) {
	client := l.hub.Register()
	defer l.hub.Unregister(client.ID)

	header := ctx.Writer.Header()
	header.Set("Content-Type", "text/event-stream")
	header.Set("Cache-Control", "no-cache")
	header.Set("Connection", "keep-alive")
	header.Set("X-Accel-Buffering", "no")

	ctx.Writer.WriteString(":ok\n\n")
	ctx.Writer.Flush()

	ticker := time.NewTicker(utils.KeepAliveInterval)
	defer ticker.Stop()

	done := ctx.Request.Context().Done()
	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			ctx.Writer.WriteString(":ping\n\n")
			ctx.Writer.Flush()
		case payload := <-client.Ch:
			ctx.Writer.WriteString("data: ")
			ctx.Writer.Write(payload)
			ctx.Writer.WriteString("\n\n")
			ctx.Writer.Flush()
		}
	}
}

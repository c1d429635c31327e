package controllers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/stocktribe/stocktribe/models"
	"github.com/stocktribe/stocktribe/utils"
)

// StockResolver resolves today's per-symbol market direction.
type StockResolver interface {
	FetchStockResults(ctx context.Context) (map[string]bool, error)
}

// ScoreController runs the externally triggered scoring job.
type ScoreController struct {
	db     *gorm.DB
	stocks StockResolver
	store  *utils.LeaderboardStore
	hub    *utils.SSEHub
}

// NewScoreController creates a new controller instance.
func NewScoreController(db *gorm.DB, stocks StockResolver, store *utils.LeaderboardStore, hub *utils.SSEHub) *ScoreController {
	return &ScoreController{db: db, stocks: stocks, store: store, hub: hub}
}

// Score compares today's locked predictions to resolved market outcomes and
// awards one point per user for a perfect call on all tracked symbols;
// partial matches earn nothing. A score_runs row keeps the job idempotent per calendar day.
// Outcome resolution failure aborts before any point is adjusted.
func (s *ScoreController) Score(ctx *gin.Context) {
	todayStart, tomorrowStart := dayBounds(time.Now())

	var run models.ScoreRun
	err := s.db.Where("run_date >= ? AND run_date < ?", todayStart, tomorrowStart).First(&run).Error
	if err == nil {
		utils.Success(ctx, gin.H{
			"success":   true,
			"processed": 0,
			"message":   "already scored for today",
		})
		return
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		utils.Error(ctx, http.StatusInternalServerError, 50030, "failed to check score run")
		return
	}

	results, err := s.stocks.FetchStockResults(ctx.Request.Context())
	if err != nil {
		if utils.Sugar != nil {
			utils.Sugar.Errorf("market outcome resolution failed: %v", err)
		}
		utils.Error(ctx, http.StatusInternalServerError, 50031, "failed to resolve market outcomes")
		return
	}

	var preds []models.Prediction
	if err := s.db.Where("locked = ? AND date >= ? AND date < ?", true, todayStart, tomorrowStart).Find(&preds).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50032, "failed to load predictions")
		return
	}

	// A user earns at most one point per day: duplicate locked rows from a
	// resubmit-then-relock sequence collapse to a single award.
	var winners []uint
	awarded := make(map[uint]bool, len(preds))
	for _, p := range preds {
		matches := 0
		for _, symbol := range utils.TrackedSymbols {
			call, ok := p.Call(symbol)
			if ok && call == results[symbol] {
				matches++
			}
		}
		if matches == len(utils.TrackedSymbols) && !awarded[p.UserID] {
			awarded[p.UserID] = true
			winners = append(winners, p.UserID)
		}
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		for _, userID := range winners {
			if err := tx.Model(&models.User{}).
				Where("id = ?", userID).
				UpdateColumn("points", gorm.Expr("points + ?", 1)).Error; err != nil {
				return err
			}
		}
		return tx.Create(&models.ScoreRun{
			RunDate:   todayStart,
			Processed: len(preds),
		}).Error
	})
	if err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50033, "failed to record scores")
		return
	}

	// Rebuild the materialized view from the canonical ledger; the write
	// appends a history snapshot and wakes up stream consumers.
	if err := publishLeaderboard(s.db, s.store, s.hub); err != nil && utils.Sugar != nil {
		utils.Sugar.Warnf("leaderboard publish after scoring failed: %v", err)
	}

	utils.Success(ctx, gin.H{
		"success":   true,
		"processed": len(preds),
		"message":   "Scores calculated & leaderboard updated",
	})
}

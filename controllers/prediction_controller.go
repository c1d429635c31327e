package controllers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/stocktribe/stocktribe/models"
	"github.com/stocktribe/stocktribe/utils"
)

// PredictionController handles prediction submission and the lock cutoff.
type PredictionController struct {
	db *gorm.DB
}

// NewPredictionController creates a new controller instance.
func NewPredictionController(db *gorm.DB) *PredictionController {
	return &PredictionController{db: db}
}

// Predict upserts the caller's prediction for today. While the latest row is
// unlocked it is overwritten in place; a missing or locked latest row gets a
// fresh unlocked row dated now. Known weak point: the read-then-write pair is
// not wrapped in a transaction, so two concurrent submissions by the same
// user can race. Expected per-user write concurrency is one human clicking.
func (p *PredictionController) Predict(ctx *gin.Context) {
	type request struct {
		UserID uint  `json:"userId"`
		AAPL   *bool `json:"AAPL" binding:"required"`
		MSFT   *bool `json:"MSFT" binding:"required"`
		GOOGL  *bool `json:"GOOGL" binding:"required"`
	}

	var req request
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40010, "invalid request payload")
		return
	}

	// An authenticated session wins over the body field.
	if uid, ok := getUserID(ctx); ok {
		req.UserID = uid
	}
	if req.UserID == 0 {
		utils.Error(ctx, http.StatusBadRequest, 40011, "missing user id")
		return
	}

	now := time.Now()

	var latest models.Prediction
	err := p.db.Where("user_id = ?", req.UserID).Order("created_at DESC").First(&latest).Error
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		utils.Error(ctx, http.StatusInternalServerError, 50020, "failed to load prediction")
		return
	}

	if errors.Is(err, gorm.ErrRecordNotFound) || latest.Locked {
		record := models.Prediction{
			UserID: req.UserID,
			AAPL:   *req.AAPL,
			MSFT:   *req.MSFT,
			GOOGL:  *req.GOOGL,
			Date:   now,
			Locked: false,
		}
		if err := p.db.Create(&record).Error; err != nil {
			utils.Error(ctx, http.StatusInternalServerError, 50021, "failed to create prediction")
			return
		}
		utils.Respond(ctx, http.StatusCreated, 0, "created", gin.H{"prediction": record})
		return
	}

	latest.AAPL = *req.AAPL
	latest.MSFT = *req.MSFT
	latest.GOOGL = *req.GOOGL
	latest.Date = now
	latest.Locked = false
	if err := p.db.Save(&latest).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50022, "failed to update prediction")
		return
	}
	utils.Respond(ctx, http.StatusOK, 0, "updated", gin.H{"prediction": latest})
}

// Lock flips every still-unlocked prediction dated today to locked. The flip
// is scoped to the current day so stale rows from a missed cycle stay out of
// scoring. Idempotent: a second call finds nothing to flip.
func (p *PredictionController) Lock(ctx *gin.Context) {
	todayStart, tomorrowStart := dayBounds(time.Now())

	res := p.db.Model(&models.Prediction{}).
		Where("locked = ? AND date >= ? AND date < ?", false, todayStart, tomorrowStart).
		Update("locked", true)
	if res.Error != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50025, "failed to lock predictions")
		return
	}

	utils.Success(ctx, gin.H{
		"success": true,
		"message": "Predictions locked for today",
		"locked":  res.RowsAffected,
	})
}

func dayBounds(now time.Time) (time.Time, time.Time) {
	start := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	return start, start.Add(24 * time.Hour)
}

package controllers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/stocktribe/stocktribe/models"
	"github.com/stocktribe/stocktribe/utils"
)

// TribeController serves the read-only tribe member view.
type TribeController struct {
	db *gorm.DB
}

// NewTribeController creates a new controller instance.
func NewTribeController(db *gorm.DB) *TribeController {
	return &TribeController{db: db}
}

type tribeMemberRow struct {
	UserID uint   `json:"userId"`
	Name   string `json:"name"`
	Email  string `json:"email"`
	Points int    `json:"points"`
}

// Post returns tribe info, its members, and each member's latest prediction.
func (t *TribeController) Post(ctx *gin.Context) {
	type request struct {
		TribeID uint `json:"tribeId"`
	}

	var req request
	if err := ctx.ShouldBindJSON(&req); err != nil || req.TribeID == 0 {
		utils.Error(ctx, http.StatusBadRequest, 40060, "invalid tribe id")
		return
	}

	var tribe models.Tribe
	if err := t.db.First(&tribe, req.TribeID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.Error(ctx, http.StatusBadRequest, 40060, "invalid tribe id")
			return
		}
		utils.Error(ctx, http.StatusInternalServerError, 50060, "failed to load tribe")
		return
	}

	var members []tribeMemberRow
	err := t.db.Table("tribe_members").
		Select("tribe_members.user_id AS user_id, users.name AS name, users.email AS email, users.points AS points").
		Joins("INNER JOIN users ON users.id = tribe_members.user_id").
		Where("tribe_members.tribe_id = ? AND users.deleted_at IS NULL", req.TribeID).
		Scan(&members).Error
	if err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50061, "failed to load members")
		return
	}

	if len(members) == 0 {
		utils.Success(ctx, gin.H{"tribe": tribe, "members": []gin.H{}})
		return
	}

	userIDs := make([]uint, 0, len(members))
	for _, m := range members {
		userIDs = append(userIDs, m.UserID)
	}

	var preds []models.Prediction
	if err := t.db.Where("user_id IN ?", userIDs).Order("created_at DESC").Find(&preds).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50062, "failed to load predictions")
		return
	}

	// First row per user wins: rows are already newest-first.
	latest := make(map[uint]models.Prediction, len(members))
	for _, p := range preds {
		if _, ok := latest[p.UserID]; !ok {
			latest[p.UserID] = p
		}
	}

	result := make([]gin.H, 0, len(members))
	for _, m := range members {
		entry := gin.H{
			"userId":     m.UserID,
			"name":       m.Name,
			"email":      m.Email,
			"points":     m.Points,
			"prediction": nil,
		}
		if p, ok := latest[m.UserID]; ok {
			entry["prediction"] = p
		}
		result = append(result, entry)
	}

	utils.Success(ctx, gin.H{"tribe": tribe, "members": result})
}

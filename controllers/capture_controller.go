package controllers

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"backend/models"
	"backend/services"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

type CaptureController struct {
	Photo      *services.PhotoService
	Voice      *services.VoiceService
	Captures   *services.CaptureService
	Conversion *services.ConversionService
}

func NewCaptureController(photo *services.PhotoService, voice *services.VoiceService, captures *services.CaptureService, conversion *services.ConversionService) *CaptureController {
	return &CaptureController{Photo: photo, Voice: voice, Captures: captures, Conversion: conversion}
}

// POST /captures/photo  { "image_base64": "data:image/jpeg;base64,..." }
func (cc *CaptureController) CapturePhoto(c *gin.Context) {
	var req struct {
		ImageBase64 string `json:"image_base64" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid body"})
		return
	}

	sess, err := cc.Photo.Capture(c.Request.Context(), c.GetUint("userID"), req.ImageBase64)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	status := http.StatusCreated
	if sess.Status == models.CaptureStatusFailed {
		status = http.StatusBadGateway
	}
	c.JSON(status, sess)
}

// POST /captures/voice  { "transcription": "...", "audio_base64": "data:audio/webm;base64,..."? }
func (cc *CaptureController) CaptureVoice(c *gin.Context) {
	var req struct {
		Transcription string `json:"transcription" binding:"required"`
		AudioBase64   string `json:"audio_base64"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid body"})
		return
	}

	out, err := cc.Voice.Capture(c.Request.Context(), c.GetUint("userID"), req.Transcription, req.AudioBase64)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	status := http.StatusCreated
	if out.Session.Status == models.CaptureStatusFailed {
		status = http.StatusBadGateway
	}
	c.JSON(status, out)
}

// GET /captures
func (cc *CaptureController) List(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))

	sessions, err := cc.Captures.List(c.GetUint("userID"), limit, offset)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, sessions)
}

// GET /captures/:id
func (cc *CaptureController) Get(c *gin.Context) {
	id, err := sessionID(c)
	if err != nil {
		return
	}
	sess, err := cc.Captures.Get(c.GetUint("userID"), id)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "capture session not found"})
		return
	}
	c.JSON(http.StatusOK, sess)
}

// POST /captures/:id/verify  { "verified": true, "edits": {"final_calories": 450}? }
func (cc *CaptureController) Verify(c *gin.Context) {
	id, err := sessionID(c)
	if err != nil {
		return
	}
	var req struct {
		Verified bool                        `json:"verified"`
		Edits    *services.VerificationEdits `json:"edits"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid body"})
		return
	}

	v, err := cc.Captures.Verify(c.GetUint("userID"), id, req.Verified, req.Edits)
	if err != nil {
		c.JSON(statusFor(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, v)
}

// POST /captures/:id/convert  { "meal_type": "lunch", "log_date": "2025-06-01"? }
func (cc *CaptureController) Convert(c *gin.Context) {
	id, err := sessionID(c)
	if err != nil {
		return
	}
	var req struct {
		MealType string `json:"meal_type" binding:"required"`
		LogDate  string `json:"log_date"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid body"})
		return
	}

	logDate := time.Now().Truncate(24 * time.Hour)
	if req.LogDate != "" {
		d, err := time.Parse("2006-01-02", req.LogDate)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "log_date must be YYYY-MM-DD"})
			return
		}
		logDate = d
	}

	log, err := cc.Conversion.Convert(c.GetUint("userID"), id, req.MealType, logDate)
	if err != nil {
		c.JSON(statusFor(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, log)
}

// POST /captures/:id/retry — reruns analysis under a fresh session.
func (cc *CaptureController) Retry(c *gin.Context) {
	id, err := sessionID(c)
	if err != nil {
		return
	}
	uid := c.GetUint("userID")

	old, err := cc.Captures.Get(uid, id)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "capture session not found"})
		return
	}

	switch old.Kind {
	case models.CaptureKindVoice:
		out, err := cc.Voice.Retry(c.Request.Context(), uid, id)
		if err != nil {
			c.JSON(statusFor(err), gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusCreated, out)
	default:
		sess, err := cc.Photo.Retry(c.Request.Context(), uid, id)
		if err != nil {
			c.JSON(statusFor(err), gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusCreated, sess)
	}
}

func sessionID(c *gin.Context) (uint, error) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid session id"})
		return 0, err
	}
	return uint(id), nil
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return http.StatusNotFound
	case errors.Is(err, services.ErrInvalidStateTransition),
		errors.Is(err, services.ErrSessionNotCompleted),
		errors.Is(err, services.ErrResultMismatch):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

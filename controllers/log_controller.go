package controllers

import (
	"net/http"
	"strconv"

	"backend/services"

	"github.com/gin-gonic/gin"
)

type LogController struct {
	Conversion *services.ConversionService
}

func NewLogController(conversion *services.ConversionService) *LogController {
	return &LogController{Conversion: conversion}
}

// GET /logs — nutrition logs with items, newest first.
func (lc *LogController) List(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))

	logs, err := lc.Conversion.ListLogs(c.GetUint("userID"), limit, offset)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, logs)
}

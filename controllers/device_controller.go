package controllers

import (
	"net/http"

	"backend/services"

	"github.com/gin-gonic/gin"
)

type DeviceController struct {
	Push *services.PushService
}

func NewDeviceController(push *services.PushService) *DeviceController {
	return &DeviceController{Push: push}
}

// POST /devices  { "platform": "android", "token": "..." } — registers the
// device for analysis-ready push notifications.
func (dc *DeviceController) Register(c *gin.Context) {
	var req services.RegisterDeviceReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid body"})
		return
	}

	dev, err := dc.Push.RegisterDevice(c.GetUint("userID"), req.Platform, req.Token)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"endpoint_arn": dev.EndpointARN})
}

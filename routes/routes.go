package routes

import (
	"backend/controllers"
	"backend/middlewares"

	"github.com/gin-gonic/gin"
)

// Deps carries the controllers, constructed once at startup.
type Deps struct {
	Capture  *controllers.CaptureController
	Logs     *controllers.LogController
	Food     *controllers.FoodController
	Device   *controllers.DeviceController
	Realtime *controllers.RealtimeController
}

func SetupRouter(d Deps) *gin.Engine {
	r := gin.Default()

	// Public auth routes
	auth := r.Group("/auth")
	{
		auth.POST("/register", controllers.Register)
		auth.POST("/login", controllers.Login)
	}

	api := r.Group("/")
	api.Use(middlewares.AuthMiddleware())
	{
		captures := api.Group("/captures")
		{
			captures.POST("/photo", d.Capture.CapturePhoto)
			captures.POST("/voice", d.Capture.CaptureVoice)
			captures.GET("", d.Capture.List)
			captures.GET("/:id", d.Capture.Get)
			captures.POST("/:id/verify", d.Capture.Verify)
			captures.POST("/:id/convert", d.Capture.Convert)
			captures.POST("/:id/retry", d.Capture.Retry)
		}

		api.GET("/logs", d.Logs.List)
		api.GET("/food/search", d.Food.Search)
		api.POST("/devices", d.Device.Register)
		api.GET("/ws", d.Realtime.CapturesWS)
	}

	return r
}

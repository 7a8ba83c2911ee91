package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

func RegisterCourseRoutes(r *gin.Engine, handler *CourseHandler) {
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := r.Group("/api")
	courses := api.Group("/courses")
	{
		courses.POST("", handler.CreateCourse)
		courses.GET("", handler.ListCourses)
		courses.GET("/:id", handler.GetCourse)
		courses.PUT("/:id", handler.UpdateCourse)
		courses.DELETE("/:id", handler.DeleteCourse)
		courses.POST("/:id/participants", handler.AddParticipant)
		courses.GET("/:id/participants", handler.ListParticipants)
	}
	api.GET("/participants/:id", handler.GetParticipant)
}

// NewRouter crea el engine gin con las rutas de carreras.
func NewRouter(handler *CourseHandler) *gin.Engine {
	r := gin.Default()
	RegisterCourseRoutes(r, handler)
	return r
}

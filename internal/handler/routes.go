package handler

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/noah-isme/cohort-ledger-api/internal/middleware"
)

// Routes groups the handlers mounted under the API prefix.
type Routes struct {
	Auth        middleware.TokenValidator
	Logger      *zap.Logger
	Cohorts     *CohortHandler
	Students    *StudentHandler
	Instructors *InstructorHandler
	Modules     *ModuleHandler
	Attendance  *AttendanceHandler
	Uploads     *UploadHandler
}

// Register mounts every API route on group. Reads need any valid token;
// writes need a manager role, attendance writes also admit instructors.
func (rt Routes) Register(group *gin.RouterGroup) {
	// Signed links carry their own authorisation.
	group.GET("/uploads/download", rt.Uploads.Download)

	api := group.Group("")
	api.Use(middleware.JWT(rt.Auth))
	manage := middleware.RequireRoles(middleware.ManagerRoles...)
	record := middleware.RequireRoles(middleware.AttendanceRoles...)
	audit := func(action, resource string) gin.HandlerFunc {
		return middleware.Audit(rt.Logger, action, resource)
	}

	cohorts := api.Group("/cohortes")
	cohorts.GET("", rt.Cohorts.List)
	cohorts.POST("", manage, audit("create", "cohort"), rt.Cohorts.Create)
	cohorts.GET("/:id", rt.Cohorts.Get)
	cohorts.PATCH("/:id", manage, audit("update", "cohort"), rt.Cohorts.Update)
	cohorts.DELETE("/:id", manage, audit("delete", "cohort"), rt.Cohorts.Delete)
	cohorts.POST("/:id/students", manage, audit("enroll", "cohort"), rt.Cohorts.EnrollStudents)
	cohorts.DELETE("/:id/students", manage, audit("unenroll", "cohort"), rt.Cohorts.UnenrollStudents)
	cohorts.POST("/:id/intervenants", manage, audit("assign_instructor", "cohort"), rt.Cohorts.AssignInstructor)
	cohorts.DELETE("/:id/intervenants", manage, audit("remove_instructor", "cohort"), rt.Cohorts.RemoveInstructor)

	students := api.Group("/etudiants")
	students.GET("", rt.Students.List)
	students.GET("/stats", middleware.WithResponseMeta(), rt.Students.Stats)
	students.POST("", manage, audit("create", "student"), rt.Students.Create)
	students.GET("/:id", rt.Students.Get)
	students.PATCH("/:id", manage, audit("update", "student"), rt.Students.Update)
	students.DELETE("/:id", manage, audit("delete", "student"), rt.Students.Delete)

	instructors := api.Group("/intervenants")
	instructors.GET("", rt.Instructors.List)
	instructors.POST("", manage, audit("create", "instructor"), rt.Instructors.Create)
	instructors.GET("/:id", rt.Instructors.Get)
	instructors.PATCH("/:id", manage, audit("update", "instructor"), rt.Instructors.Update)
	instructors.POST("/:id/archive", manage, audit("archive", "instructor"), rt.Instructors.Archive)
	instructors.DELETE("/:id", manage, audit("delete", "instructor"), rt.Instructors.Delete)

	modules := api.Group("/modules")
	modules.GET("", rt.Modules.List)
	modules.POST("", manage, audit("create", "module"), rt.Modules.Create)
	modules.GET("/:id", rt.Modules.Get)
	modules.PATCH("/:id", manage, audit("update", "module"), rt.Modules.Update)
	modules.DELETE("/:id", manage, audit("delete", "module"), rt.Modules.Delete)

	attendance := api.Group("/attendance")
	attendance.POST("", record, audit("upsert", "attendance"), rt.Attendance.Upsert)
	attendance.PATCH("/:id/justificatif/:docId", record, audit("justify", "attendance"), rt.Attendance.AttachJustification)
	attendance.GET("/session/:id", rt.Attendance.Session)
	attendance.GET("/session/:id/export", rt.Attendance.Export)
	attendance.POST("/session/:id/open", record, audit("open_session", "attendance"), rt.Attendance.Open)
	attendance.GET("/etudiant/:id", rt.Attendance.Student)

	uploads := api.Group("/uploads")
	uploads.POST("/sessions/:id/emargements", record, audit("upload_emargement", "session"), rt.Uploads.Emargement)
	uploads.POST("/sessions/:id/justificatifs", record, audit("upload_justification", "session"), rt.Uploads.Justification)
	uploads.GET("/sessions/:id", rt.Uploads.ListSession)
	uploads.GET("/documents/:id", rt.Uploads.Document)
	uploads.GET("/imports/:id", rt.Uploads.ImportStatus)
}

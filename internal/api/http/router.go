package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/complaint-service/internal/api/http/handlers"
	"github.com/spec-kit/complaint-service/internal/auth"
	"github.com/spec-kit/complaint-service/internal/domain"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health          *handlers.HealthHandler
	Users           *handlers.UsersHandler
	Staff           *handlers.StaffHandler
	Complaints      *handlers.ComplaintsHandler
	StaffComplaints *handlers.StaffComplaintsHandler
	Notifications   *handlers.NotificationsHandler
	Catalog         *handlers.CatalogHandler
	AuthMiddleware  *auth.AuthMiddleware
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)

	// Public tracking by code, no auth.
	app.Get("/track/:code", cfg.Complaints.Track)

	authGroup := app.Group("/auth")
	authGroup.Post("/citizens/register", cfg.Users.Register)
	authGroup.Post("/citizens/login", cfg.Users.Login)
	authGroup.Post("/staff/login", cfg.Staff.Login)

	protectedAuth := authGroup.Group("", cfg.AuthMiddleware.Handle, auth.RequireAnyRole())
	protectedAuth.Post("/password/change", cfg.Staff.ChangePassword)

	catalogGroup := app.Group("/catalog")
	catalogGroup.Get("/states", cfg.Catalog.States)
	catalogGroup.Get("/priorities", cfg.Catalog.Priorities)
	catalogGroup.Post("/invalidate",
		cfg.AuthMiddleware.Handle, auth.RequireStaffRole(domain.StaffRoleAdmin), cfg.Catalog.Invalidate)

	citizen := app.Group("/complaints", cfg.AuthMiddleware.Handle, auth.RequireCitizen())
	citizen.Post("", cfg.Complaints.Create)
	citizen.Get("", cfg.Complaints.List)
	citizen.Get("/:id", cfg.Complaints.Get)
	citizen.Get("/:id/history", cfg.Complaints.History)
	citizen.Get("/:id/comments", cfg.Complaints.ListComments)
	citizen.Post("/:id/comments", cfg.Complaints.AddComment)

	staff := app.Group("/staff/complaints", cfg.AuthMiddleware.Handle, auth.RequireStaffRole())
	staff.Get("", cfg.StaffComplaints.List)
	staff.Get("/:id", cfg.StaffComplaints.Get)
	staff.Post("/:id/transition", cfg.StaffComplaints.Transition)
	staff.Post("/:id/priority", cfg.StaffComplaints.ChangePriority)
	staff.Post("/:id/assign", cfg.StaffComplaints.Assign)
	staff.Post("/:id/auto-assign", cfg.StaffComplaints.AutoAssign)
	staff.Get("/:id/history", cfg.StaffComplaints.History)
	staff.Get("/:id/assignments", cfg.StaffComplaints.Assignments)
	staff.Get("/:id/comments", cfg.StaffComplaints.ListComments)
	staff.Post("/:id/comments", cfg.StaffComplaints.AddComment)
	staff.Delete("/:id", auth.RequireStaffRole(domain.StaffRoleAdmin), cfg.StaffComplaints.Archive)

	notifications := app.Group("/notifications", cfg.AuthMiddleware.Handle, auth.RequireAnyRole())
	notifications.Get("", cfg.Notifications.List)
	notifications.Post("/read-all", cfg.Notifications.MarkAllRead)
	notifications.Post("/:id/read", cfg.Notifications.MarkRead)
}

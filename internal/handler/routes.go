package handler

import "github.com/gofiber/fiber/v2"

type Handlers struct {
	Auth       *AuthHandler
	User       *UserHandler
	Event      *EventHandler
	Photo      *PhotoHandler
	Engagement *EngagementHandler
}

// SetupRoutes mounts the API under /api. Routes registered after requireAuth need a session.
func SetupRoutes(app *fiber.App, h Handlers, requireAuth fiber.Handler) {
	api := app.Group("/api")

	// Public routes
	auth := api.Group("/auth")
	auth.Post("/register", h.Auth.Register)
	auth.Post("/otp/request", h.Auth.RequestOTP)
	auth.Post("/otp/verify", h.Auth.VerifyOTP)
	auth.Post("/login", h.Auth.Login)
	auth.Post("/refresh", h.Auth.Refresh)
	auth.Get("/oauth/login", h.Auth.OAuthLogin)
	auth.Get("/oauth/callback", h.Auth.OAuthCallback)

	// Protected routes
	api.Use(requireAuth)

	auth.Post("/logout", h.Auth.Logout)

	users := api.Group("/users")
	users.Get("/me", h.User.GetMyProfile)
	users.Put("/me", h.User.UpdateProfile)
	users.Post("/me/password", h.User.ChangePassword)
	users.Get("/:id", h.User.GetUser)
	users.Put("/:id/groups", h.User.SetRoles)

	events := api.Group("/events")
	events.Post("/", h.Event.CreateEvent)
	events.Get("/", h.Event.ListEvents)
	events.Get("/:id", h.Event.GetEvent)
	events.Put("/:id", h.Event.UpdateEvent)
	events.Delete("/:id", h.Event.DeleteEvent)
	events.Post("/:id/cover", h.Event.SetCover)
	events.Get("/:id/viewers", h.Event.Viewers)
	events.Get("/:id/editors", h.Event.Editors)
	events.Delete("/:id/viewers/:userId", h.Event.RemoveViewer)
	events.Delete("/:id/editors/:userId", h.Event.RemoveEditor)
	events.Get("/:id/invites", h.Event.ListInvites)
	events.Post("/:id/invites", h.Event.CreateInvite)
	events.Post("/:id/photos", h.Photo.UploadEventPhotos)

	invites := api.Group("/invites")
	invites.Get("/:token/qr", h.Event.InviteQRCode)
	invites.Post("/:token/redeem", h.Event.RedeemInvite)

	photos := api.Group("/photos")
	photos.Get("/", h.Photo.ListPhotos)
	photos.Get("/:id", h.Photo.GetPhoto)
	photos.Put("/:id", h.Photo.UpdatePhoto)
	photos.Delete("/:id", h.Photo.DeletePhoto)
	photos.Post("/:id/like", h.Engagement.ToggleLike)
	photos.Get("/:id/likes", h.Engagement.ListLikes)
	photos.Post("/:id/comments", h.Engagement.AddComment)
	photos.Get("/:id/comments", h.Engagement.ListComments)
	photos.Post("/:id/view", h.Engagement.RecordView)
	photos.Post("/:id/download", h.Engagement.RecordDownload)
	photos.Post("/:id/reconcile", h.Engagement.ReconcileCounters)
}

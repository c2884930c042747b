package api

import (
	"log/slog"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	config "github.com/maheshrc27/contentflow/configs"
	"github.com/maheshrc27/contentflow/internal/api/handlers"
	"github.com/maheshrc27/contentflow/internal/api/middleware"
	"github.com/maheshrc27/contentflow/internal/metrics"
	"github.com/maheshrc27/contentflow/internal/service"
)

type Services struct {
	Auth      service.AuthService
	Keys      service.ApiKeyService
	Contacts  service.ContactService
	Media     service.MediaService
	Posts     service.PostService
	History   service.HistoryService
	Generator service.GeneratorService
}

// NewApp builds the operator API.
func NewApp(cfg config.Config, s Services) *fiber.App {
	app := fiber.New(fiber.Config{
		ReadTimeout:  10 * time.Minute,
		WriteTimeout: 10 * time.Minute,
		BodyLimit:    100 * 1024 * 1024, // 100 MB
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			code := fiber.StatusInternalServerError
			if fe, ok := err.(*fiber.Error); ok {
				code = fe.Code
			}
			slog.Error(err.Error(), "path", c.Path())
			return c.Status(code).JSON(fiber.Map{"error": err.Error()})
		},
	})

	app.Use(recover.New())
	app.Use(logger.New())
	app.Use(metrics.Middleware())
	app.Use(cors.New(cors.Config{
		AllowOriginsFunc: func(origin string) bool {
			return true
		},
		AllowMethods:     "GET,POST,PUT,DELETE,OPTIONS",
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization, X-API-Key",
		AllowCredentials: true,
		MaxAge:           3600,
	}))

	app.Get("/metrics", adaptor.HTTPHandler(metrics.Handler()))
	app.Get("/healthz", func(c *fiber.Ctx) error {
		return c.SendString("ok")
	})

	auth := handlers.NewAuthHandler(cfg, s.Auth)
	app.Post("/login", auth.Login)
	app.Post("/logout", auth.Logout)
	app.Get("/auth/linkedin", auth.LinkedInAuth)
	app.Get("/auth/linkedin/callback", auth.LinkedInCallback)

	authMiddleware := middleware.NewAuthMiddleware(cfg, s.Keys)
	api := app.Group("/api")
	api.Use(authMiddleware.AuthMiddleware())

	contacts := handlers.NewContactHandler(s.Contacts)
	api.Get("/contacts", contacts.ListContacts)
	api.Post("/contacts", contacts.CreateContact)
	api.Post("/contacts/import", contacts.ImportContacts)
	api.Get("/contacts/:id", contacts.GetContact)
	api.Put("/contacts/:id", contacts.UpdateContact)
	api.Delete("/contacts/:id", contacts.DeleteContact)

	api.Get("/lists", contacts.ListLists)
	api.Post("/lists", contacts.CreateList)
	api.Delete("/lists/:id", contacts.DeleteList)
	api.Get("/lists/:id/contacts", contacts.ListMembers)
	api.Post("/lists/:id/contacts", contacts.AddMembers)
	api.Post("/recipients/resolve", contacts.ResolveRecipients)

	media := handlers.NewMediaHandler(s.Media)
	api.Get("/media", media.ListMedia)
	api.Post("/media", media.UploadMedia)
	api.Post("/media/register", media.RegisterMedia)
	api.Delete("/media/:id", media.DeleteMedia)

	posts := handlers.NewPostHandler(s.Posts, s.History)
	api.Get("/posts", posts.ListPosts)
	api.Post("/posts", posts.CreatePost)
	api.Get("/posts/title-exists", posts.TitleExists)
	api.Get("/posts/:id", posts.GetPost)
	api.Put("/posts/:id", posts.UpdatePost)
	api.Delete("/posts/:id", posts.RemovePost)
	api.Post("/posts/:id/schedule", posts.SchedulePost)
	api.Post("/posts/:id/unschedule", posts.UnschedulePost)
	api.Put("/posts/:id/media", posts.LinkMedia)
	api.Get("/posts/:id/history", posts.History)

	generator := handlers.NewGeneratorHandler(s.Generator)
	api.Post("/generate", generator.Generate)
	api.Post("/translate", generator.Translate)

	keys := handlers.NewApiKeyHandler(s.Keys)
	api.Post("/api_keys", keys.CreateApiKey)
	api.Get("/api_keys", keys.ListKeys)
	api.Delete("/api_keys/:id", keys.RemoveAPIKey)

	return app
}

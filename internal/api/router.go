package api

import (
	"fmt"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"gorm.io/gorm"

	iauth "github.com/jharmon96/inkwell/internal/auth"
	"github.com/jharmon96/inkwell/internal/handlers"
	"github.com/jharmon96/inkwell/internal/middleware"
	"github.com/jharmon96/inkwell/internal/services"
)

// NewRouter builds the Gin engine, wires middleware and registers all routes.
func NewRouter(
	db *gorm.DB,
	tokens *iauth.TokenService,
	authService *services.AuthService,
	blogService *services.BlogService,
) (*gin.Engine, error) {
	if db == nil {
		return nil, fmt.Errorf("database handle must be provided")
	}
	if tokens == nil {
		return nil, fmt.Errorf("token service must be provided")
	}
	if authService == nil {
		return nil, fmt.Errorf("auth service must be provided")
	}
	if blogService == nil {
		return nil, fmt.Errorf("blog service must be provided")
	}

	r := gin.New()

	// Global middleware
	r.Use(middleware.Recovery())
	r.Use(middleware.Logger())
	r.Use(middleware.Metrics())

	r.NoRoute(middleware.NotFoundHandler)

	// Operational endpoints (public)
	r.GET("/health", handlers.Health(db))
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	authHandler := handlers.NewAuthHandler(authService)
	blogHandler := handlers.NewBlogHandler(blogService)

	requireAuth := middleware.Auth(tokens)
	optionalAuth := middleware.OptionalAuth(tokens)

	// Account lifecycle and login (public)
	users := r.Group("/api/users")
	{
		users.POST("/register", authHandler.Register)
		users.POST("/activate", authHandler.Activate)
		users.POST("/resend-otp", authHandler.ResendOTP)
		users.POST("/login", authHandler.Login)
		users.POST("/google-login", authHandler.GoogleLogin)
	}

	auth := r.Group("/api/auth")
	{
		auth.POST("/refresh", authHandler.Refresh)
		auth.GET("/me", requireAuth, authHandler.Me)
	}

	// Blog: reads are public (staff see drafts via optional auth), writes
	// carry identity and are authorized in the handlers.
	blog := r.Group("/api/blog")
	{
		blog.GET("/authors", blogHandler.ListAuthors)
		blog.GET("/authors/:id", blogHandler.GetAuthor)
		blog.POST("/authors", requireAuth, blogHandler.CreateAuthor)

		blog.GET("/posts", optionalAuth, blogHandler.ListPosts)
		blog.GET("/posts/:slug", optionalAuth, blogHandler.GetPost)
		blog.POST("/posts", requireAuth, blogHandler.CreatePost)
		blog.PATCH("/posts/:slug", requireAuth, blogHandler.UpdatePost)
		blog.DELETE("/posts/:slug", requireAuth, blogHandler.DeletePost)

		blog.GET("/posts/:slug/comments", blogHandler.ListComments)
		blog.POST("/posts/:slug/comments", requireAuth, blogHandler.CreateComment)
		blog.PUT("/comments/:id", requireAuth, blogHandler.UpdateComment)
		blog.DELETE("/comments/:id", requireAuth, blogHandler.DeleteComment)
	}

	return r, nil
}

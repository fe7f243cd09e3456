package clubsite

import (
	"io/fs"
	"net/http"

	"github.com/labstack/echo/v4"
)

func (a *App) setupRoutes() {
	e := a.Echo

	assets, _ := fs.Sub(EmbeddedAssets, "embedded")
	e.GET("/assets/*", echo.WrapHandler(http.StripPrefix("/assets/", http.FileServer(http.FS(assets)))))
	e.GET("/favicon.svg", func(c echo.Context) error {
		return c.Redirect(http.StatusMovedPermanently, "/assets/favicon.svg")
	})
	e.Static("/public", a.staticDir)

	e.GET("/robots.txt", a.handleRobots)
	e.GET("/sitemap.xml", a.handleSitemap)
	e.GET("/feed.xml", a.handleFeed)

	e.GET("/", a.handleHome)
	e.GET("/members/", a.handleMembers)
	e.GET("/events/", a.handleEvents)
	e.GET("/blog/", a.handleBlog)
	e.GET("/blog/:id/", a.handlePost)
	e.GET("/feedbacks/", a.handleFeedbacks)
	e.POST("/feedbacks/", a.handleFeedbackSubmit)
	e.GET("/contact/", a.handleContact)
	e.POST("/contact/", a.handleContactSubmit)

	e.GET("/auth/", a.handleAuth)
	e.POST("/auth/login/", a.handleLogin)
	e.POST("/auth/signup/", a.handleSignup)
	e.POST("/auth/logout/", a.handleLogout)

	api := e.Group("/api")
	api.GET("/blog-posts", a.handleAPIBlogPosts)
	api.GET("/events", a.handleAPIEvents)
	api.GET("/testimonials", a.handleAPITestimonials)
	api.POST("/chat", a.handleChat)

	admin := e.Group("/admin", a.requireAdmin)
	admin.GET("/", a.handleAdminDashboard)
	admin.GET("/blog/", a.handleAdminBlog)
	admin.GET("/blog/new/", a.handleAdminPostNew)
	admin.GET("/blog/:id/", a.handleAdminPostEdit)
	admin.POST("/blog/save/", a.handleAdminPostSave)
	admin.POST("/blog/:id/delete/", a.handleAdminPostDelete)
	admin.GET("/events/", a.handleAdminEvents)
	admin.GET("/events/new/", a.handleAdminEventNew)
	admin.GET("/events/:id/", a.handleAdminEventEdit)
	admin.POST("/events/save/", a.handleAdminEventSave)
	admin.POST("/events/:id/delete/", a.handleAdminEventDelete)
	admin.POST("/testimonials/:id/approve/", a.handleTestimonialApprove)
	admin.POST("/testimonials/:id/archive/", a.handleTestimonialArchive)
	admin.POST("/testimonials/:id/delete/", a.handleTestimonialDelete)
	admin.GET("/images/", a.handleImageList)
	admin.POST("/images/upload/", a.handleImageUpload)
	admin.POST("/images/:filename/delete/", a.handleImageDelete)
	if a.analyticsHandler != nil {
		a.analyticsHandler.RegisterRoutes(admin)
	}

	// Older admin paths still linked from posters and bookmarks.
	e.GET("/blog/admin/", a.handleAdminBlog, a.requireAdmin)
	e.GET("/blog/form/", a.handleAdminPostNew, a.requireAdmin)
	e.GET("/events/admin/", a.handleAdminEvents, a.requireAdmin)
}

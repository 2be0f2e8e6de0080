package router

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"launchpad/internal/config"
	"launchpad/internal/forum"
	"launchpad/internal/handlers"
	"launchpad/internal/store"
)

// RegisterRoutes wires the web pages over board and the JSON data API over st.
func RegisterRoutes(r *gin.Engine, cfg *config.Config, board *forum.Board, st store.Store) error {
	// Handlers
	postHandler := handlers.NewPostHandler(board, cfg.SiteURL, cfg.RefreshInterval)
	categoryHandler := handlers.NewCategoryHandler(board, cfg.SiteURL, cfg.RefreshInterval)
	voteHandler := handlers.NewVoteHandler(board)
	bookmarkHandler := handlers.NewBookmarkHandler(board)
	likeHandler := handlers.NewLikeHandler(board)
	preferencesHandler := handlers.NewPreferencesHandler()
	apiHandler := handlers.NewAPIHandler(st)
	seoHandler, err := handlers.NewSEOHandler(board, cfg.SiteURL)
	if err != nil {
		return err
	}

	// Pages
	r.GET("/", postHandler.Landing)                      // landing with trending posts
	r.GET("/forum", postHandler.List)                    // forum list with search and filters
	r.GET("/categories", categoryHandler.ListCategories) // all categories with counts
	r.GET("/bookmarks", postHandler.Bookmarked)          // this session's bookmarks
	r.GET("/submit", postHandler.ShowCreate)             // submit form
	r.POST("/submit", postHandler.Create)                // create
	r.GET("/post/:ref", postHandler.Detail)              // counts a view

	// Post actions
	r.POST("/post/:ref/upvote", voteHandler.Upvote)
	r.POST("/post/:ref/comments", postHandler.Comment)
	r.POST("/post/:ref/repost", postHandler.Repost)
	r.GET("/post/:ref/edit", postHandler.ShowEdit)
	r.POST("/post/:ref/edit", postHandler.Update)
	r.GET("/post/:ref/unlock", postHandler.ShowUnlock)
	r.POST("/post/:ref/unlock", postHandler.Unlock)
	r.POST("/post/:ref/delete", postHandler.Delete) // plain form fallback
	r.DELETE("/post/:ref", postHandler.Delete)      // hx-delete
	r.POST("/bookmark/:ref", bookmarkHandler.Toggle)
	r.POST("/like/:ref", likeHandler.Toggle)
	r.POST("/preferences", preferencesHandler.Save)

	// SEO
	r.GET("/robots.txt", seoHandler.RobotsTxt)
	r.GET("/sitemap.xml", seoHandler.SitemapXML)
	r.GET("/feed.xml", seoHandler.RSSFeed)

	// Ops
	r.GET("/healthz", handlers.Healthz)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// Data API, consumed by store.HTTPStore and the CLI
	api := r.Group("/api")
	api.Use(corsMiddleware(cfg.CORSOrigins))
	{
		api.GET("/posts", apiHandler.ListPosts)
		api.POST("/posts", apiHandler.CreatePost)
		api.GET("/posts/:id", apiHandler.GetPost)
		api.PATCH("/posts/:id", apiHandler.UpdatePost)
		api.DELETE("/posts/:id", apiHandler.DeletePost)
		api.GET("/posts/:id/comments", apiHandler.ListComments)
		api.POST("/posts/:id/comments", apiHandler.CreateComment)
		// Group middleware only runs on matched routes; preflights need one.
		api.OPTIONS("/*path", func(c *gin.Context) { c.Status(http.StatusNoContent) })
	}
	return nil
}

func corsMiddleware(origins []string) gin.HandlerFunc {
	cfg := cors.Config{
		AllowMethods: []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders: []string{"Origin", "Content-Type", "Accept"},
		MaxAge:       12 * time.Hour,
	}
	if len(origins) == 0 {
		cfg.AllowAllOrigins = true
	} else {
		cfg.AllowOrigins = origins
	}
	return cors.New(cfg)
}

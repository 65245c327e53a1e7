package server

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// Controller 按路由组注册自身接口
type Controller interface {
	Register(*gin.RouterGroup)
}

// Register 挂载 /ws
func (g *Gateway) Register(route *gin.RouterGroup) {
	route.GET("/ws", func(c *gin.Context) {
		g.HandleWS(c.Writer, c.Request)
	})
}

// RouterConfig 构建 HTTP 路由所需参数
type RouterConfig struct {
	Mode        string // gin 模式
	StaticDir   string // 前端静态资源目录，空则不挂载
	Controllers []Controller
}

// NewRouter 构建 gin 引擎：恢复中间件 + zap 访问日志 + 各控制器路由
func NewRouter(c RouterConfig) *gin.Engine {
	if c.Mode != "" {
		gin.SetMode(c.Mode)
	}
	router := gin.New()
	router.Use(gin.Recovery(), accessLog())

	root := router.Group("/")
	for _, ctl := range c.Controllers {
		ctl.Register(root)
	}

	// 前后端分离：未匹配的路径交给 web 目录的静态资源
	if c.StaticDir != "" {
		router.NoRoute(gin.WrapH(http.FileServer(http.Dir(c.StaticDir))))
	}
	return router
}

// accessLog 使用 zap 记录请求
func accessLog() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		Log.Debugf("http %s %s status=%d took=%s", c.Request.Method, c.Request.URL.Path, c.Writer.Status(), time.Since(start))
	}
}

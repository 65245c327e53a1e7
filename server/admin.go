package server

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// AdminController 管理与监控接口
type AdminController struct {
	manager *Manager
}

func NewAdminController(m *Manager) *AdminController {
	return &AdminController{manager: m}
}

// Register 注册路由
func (a *AdminController) Register(route *gin.RouterGroup) {
	route.GET("/healthz", func(c *gin.Context) { c.String(http.StatusOK, "ok") })
	route.GET("/metrics", a.metrics)

	admin := route.Group("/admin")
	{
		admin.GET("/rooms", a.rooms)
		admin.GET("/rooms/:id/ascii", a.roomASCII)
		admin.GET("/config", a.getConfig)
		admin.POST("/config", a.updateConfig)
	}
}

// configView 配置的 JSON 视图（时间以毫秒表示）
type configView struct {
	Cols          *int    `json:"cols,omitempty"`
	Rows          *int    `json:"rows,omitempty"`
	TickMs        *int    `json:"tickMs,omitempty"`
	CountdownFrom *int    `json:"countdownFrom,omitempty"`
	CountdownMs   *int    `json:"countdownMs,omitempty"`
	BroadcastMode *string `json:"broadcastMode,omitempty"`
}

// metrics 输出服务指标；?room=<id> 输出指定房间的运行指标
// GET /metrics?room=xxx
func (a *AdminController) metrics(c *gin.Context) {
	roomID := c.Query("room")
	if roomID == "" {
		c.JSON(http.StatusOK, a.manager.Snapshot())
		return
	}
	room, ok := a.manager.Room(roomID)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "room not found"})
		return
	}
	info := room.Info()
	c.JSON(http.StatusOK, gin.H{"room": roomID, "tick": info.Tick, "metrics": info.Metrics})
}

// rooms 活跃房间列表
func (a *AdminController) rooms(c *gin.Context) {
	c.JSON(http.StatusOK, a.manager.Rooms())
}

// roomASCII 房间网格文本视图
func (a *AdminController) roomASCII(c *gin.Context) {
	room, ok := a.manager.Room(c.Param("id"))
	if !ok {
		c.String(http.StatusNotFound, "room not found")
		return
	}
	c.String(http.StatusOK, room.ASCII())
}

// getConfig 当前房间规则
// GET /admin/config
func (a *AdminController) getConfig(c *gin.Context) {
	cfg := a.manager.Config()
	tickMs := int(cfg.TickInterval / time.Millisecond)
	countdownMs := int(cfg.CountdownInterval / time.Millisecond)
	c.JSON(http.StatusOK, configView{
		Cols:          &cfg.Cols,
		Rows:          &cfg.Rows,
		TickMs:        &tickMs,
		CountdownFrom: &cfg.CountdownFrom,
		CountdownMs:   &countdownMs,
		BroadcastMode: &cfg.BroadcastMode,
	})
}

// updateConfig 以 JSON 载荷更新部分字段，只影响之后创建的房间
// POST /admin/config
func (a *AdminController) updateConfig(c *gin.Context) {
	var body configView
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}

	cfg := a.manager.Config()
	if body.Cols != nil {
		cfg.Cols = *body.Cols
	}
	if body.Rows != nil {
		cfg.Rows = *body.Rows
	}
	if body.TickMs != nil {
		cfg.TickInterval = time.Duration(*body.TickMs) * time.Millisecond
	}
	if body.CountdownFrom != nil {
		cfg.CountdownFrom = *body.CountdownFrom
	}
	if body.CountdownMs != nil {
		cfg.CountdownInterval = time.Duration(*body.CountdownMs) * time.Millisecond
	}
	if body.BroadcastMode != nil {
		cfg.BroadcastMode = *body.BroadcastMode
	}

	if err := a.manager.UpdateConfig(cfg); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	Log.Infof("config updated: grid=%dx%d tick=%s countdown=%d/%s mode=%s",
		cfg.Cols, cfg.Rows, cfg.TickInterval, cfg.CountdownFrom, cfg.CountdownInterval, cfg.BroadcastMode)
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

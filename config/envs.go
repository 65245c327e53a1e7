// Package config 从 .env 与环境变量加载服务配置
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config 服务运行所需的全部配置
type Config struct {
	Addr       string // HTTP/WebSocket 监听地址
	LogFile    string // 日志文件路径（滚动）
	LogLevel   string // debug/info/warn/error
	LogConsole bool   // 是否同时输出到 stdout
	GinMode    string // gin 运行模式：release/debug/test
	StaticDir  string // 前端静态资源目录

	GridCols          int           // 网格列数
	GridRows          int           // 网格行数
	TickInterval      time.Duration // 模拟步长
	CountdownFrom     int           // 倒计时起始值
	CountdownInterval time.Duration // 倒计时间隔
	BroadcastMode     string        // full / delta
	SendQueueSize     int           // 每个连接的发送队列容量
}

// Load 加载配置：.env 文件可选，未设置的变量使用默认值，格式错误返回 error
func Load() (Config, error) {
	// .env 不存在属于正常情况
	_ = godotenv.Load()

	var (
		c   Config
		err error
	)
	c.Addr = getEnvWithDefault("ADDR", ":8080")
	c.LogFile = getEnvWithDefault("LOG_FILE", "app.log")
	c.LogLevel = getEnvWithDefault("LOG_LEVEL", "debug")
	c.GinMode = getEnvWithDefault("GIN_MODE", "release")
	c.StaticDir = getEnvWithDefault("STATIC_DIR", "web")
	c.BroadcastMode = getEnvWithDefault("BROADCAST_MODE", "full")

	if c.LogConsole, err = getEnvAsBool("LOG_CONSOLE", true); err != nil {
		return Config{}, err
	}
	if c.GridCols, err = getEnvAsInt("GRID_COLS", 80); err != nil {
		return Config{}, err
	}
	if c.GridRows, err = getEnvAsInt("GRID_ROWS", 60); err != nil {
		return Config{}, err
	}
	if c.CountdownFrom, err = getEnvAsInt("COUNTDOWN_FROM", 3); err != nil {
		return Config{}, err
	}
	if c.SendQueueSize, err = getEnvAsInt("SEND_QUEUE", 64); err != nil {
		return Config{}, err
	}

	tickMs, err := getEnvAsInt("TICK_MS", 80)
	if err != nil {
		return Config{}, err
	}
	c.TickInterval = time.Duration(tickMs) * time.Millisecond

	countdownMs, err := getEnvAsInt("COUNTDOWN_MS", 1000)
	if err != nil {
		return Config{}, err
	}
	c.CountdownInterval = time.Duration(countdownMs) * time.Millisecond

	return c, nil
}

// getEnvWithDefault 读取环境变量，未设置时返回默认值
func getEnvWithDefault(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) (int, error) {
	valueStr, exists := os.LookupEnv(key)
	if !exists {
		return defaultValue, nil
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return 0, fmt.Errorf("environment variable %s must be an integer: %w", key, err)
	}
	return value, nil
}

func getEnvAsBool(key string, defaultValue bool) (bool, error) {
	valueStr, exists := os.LookupEnv(key)
	if !exists {
		return defaultValue, nil
	}
	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		return false, fmt.Errorf("environment variable %s must be a boolean: %w", key, err)
	}
	return value, nil
}

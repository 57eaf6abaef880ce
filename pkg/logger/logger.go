// pkg/logger/logger.go
package logger

import (
	"io"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/snow-cube/paper-manager/internal/config"
)

// Init configures the standard logrus logger: JSON lines on stdout and, when
// cfg.File is set, a rotated log file.
func Init(cfg config.LogConfig) {
	Configure(logrus.StandardLogger(), cfg, os.Stdout)
	logrus.Info("日志系统初始化完成")
}

// Configure applies cfg to log, writing to console plus the rotated file.
func Configure(log *logrus.Logger, cfg config.LogConfig, console io.Writer) {
	// 设置日志级别
	level, err := logrus.ParseLevel(cfg.Level)
	if err != nil {
		level = logrus.InfoLevel
	}
	log.SetLevel(level)

	// 设置日志格式
	log.SetFormatter(&logrus.JSONFormatter{
		TimestampFormat: "2006-01-02 15:04:05",
	})

	var writers []io.Writer
	if console != nil {
		writers = append(writers, console)
	}

	// 文件输出
	if cfg.File != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.File), 0755); err != nil {
			log.WithError(err).Warn("无法创建日志目录")
		} else {
			writers = append(writers, &lumberjack.Logger{
				Filename:   cfg.File,
				MaxSize:    cfg.MaxSize, // MB
				MaxAge:     cfg.MaxAge,  // days
				MaxBackups: cfg.MaxBackups,
				LocalTime:  true,
				Compress:   true,
			})
		}
	}

	if len(writers) == 0 {
		log.SetOutput(io.Discard)
		return
	}
	log.SetOutput(io.MultiWriter(writers...))
}

func GetLogger() *logrus.Logger {
	return logrus.StandardLogger()
}

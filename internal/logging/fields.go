package logging

import "github.com/sirupsen/logrus"

// BaseFields 构建 action + 配置路径等基础字段，便于不同入口复用。
func BaseFields(action, configPath string) logrus.Fields {
	return logrus.Fields{
		"action":     action,
		"configPath": configPath,
	}
}

// CacheFields 提供 key/digest/命中状态字段，供缓存日志复用。
func CacheFields(key, digest string, cacheHit bool) logrus.Fields {
	return logrus.Fields{
		"key":       key,
		"digest":    digest,
		"cache_hit": cacheHit,
	}
}

// GameFields 提供条目标识字段，供 library 日志复用。
func GameFields(action, machineName string) logrus.Fields {
	return logrus.Fields{
		"action":       action,
		"machine_name": machineName,
	}
}

// OrDiscard 在 logger 为空时返回丢弃输出的 logger。
func OrDiscard(logger *logrus.Logger) *logrus.Logger {
	if logger == nil {
		return Discard()
	}
	return logger
}

package logging

import "github.com/sirupsen/logrus"

// BaseFields 构建 action + 配置路径等基础字段，便于不同入口复用。
func BaseFields(action, configPath string) logrus.Fields {
	return logrus.Fields{
		"action":     action,
		"configPath": configPath,
	}
}

// CommandFields 提供一次 CLI 调用的 run_id/命令/key 字段。
func CommandFields(runID, command, key string) logrus.Fields {
	return logrus.Fields{
		"run_id":  runID,
		"command": command,
		"key":     key,
	}
}

package app

import (
	"fmt"
	"os"

	"github.com/google/uuid"
)

// GenerateInstanceID 生成采集实例ID
// 优先使用环境变量 INSTANCE_ID，否则生成 plant-collector-{hostname}-{uuid前8位}
func GenerateInstanceID() string {
	if id := os.Getenv("INSTANCE_ID"); id != "" {
		return id
	}

	hostname, err := os.Hostname()
	if err != nil {
		hostname = "unknown"
	}
	return fmt.Sprintf("plant-collector-%s-%s", hostname, uuid.New().String()[:8])
}

package service

import (
	"os"
	"testing"

	"save-vault-go/pkg/log"
)

// TestMain 初始化全局 logger，避免测试中走到日志分支时空指针。
func TestMain(m *testing.M) {
	log.Init("error", "json", "")
	os.Exit(m.Run())
}

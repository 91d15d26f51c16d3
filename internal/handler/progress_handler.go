package handler

import (
	"net/http"
	"time"

	"save-vault-go/internal/model"
	"save-vault-go/internal/service"
	"save-vault-go/pkg/log"
	"save-vault-go/pkg/token"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // 允许所有来源
	},
}

// progressPushInterval 是进度推送的轮询间隔。
const progressPushInterval = 500 * time.Millisecond

// ProgressHandler 通过 WebSocket 向前端推送上传进度。
// 同一用户的上传严格串行，任意时刻至多一个文件在传输，
// 推送的消息始终只描述这一个文件。
type ProgressHandler struct {
	vaultService service.VaultService
	jwtManager   *token.JWTManager
}

// NewProgressHandler 创建一个新的 ProgressHandler 实例。
func NewProgressHandler(vaultService service.VaultService, jwtManager *token.JWTManager) *ProgressHandler {
	return &ProgressHandler{
		vaultService: vaultService,
		jwtManager:   jwtManager,
	}
}

// progressMessage 是推送给前端的单条进度消息。
type progressMessage struct {
	Active   bool                  `json:"active"`
	Progress *model.UploadProgress `json:"progress,omitempty"`
}

// Handle 处理一个传入的 WebSocket 连接。
// WebSocket 握手无法携带 Authorization 头，token 放在路径参数中。
func (h *ProgressHandler) Handle(c *gin.Context) {
	tokenString := c.Param("token")
	claims, err := h.jwtManager.VerifyToken(tokenString)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"code": http.StatusUnauthorized, "message": "无效的 token"})
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Error("WebSocket 升级失败", err)
		return
	}
	defer conn.Close()

	log.Infof("进度推送连接已建立, userID: %d", claims.UserID)

	// 读取泵只用来探测客户端断开
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(progressPushInterval)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			log.Infof("进度推送连接已断开, userID: %d", claims.UserID)
			return
		case <-ticker.C:
			progress, err := h.vaultService.GetProgress(c.Request.Context(), claims.UserID)
			if err != nil {
				log.Warnf("读取上传进度失败, userID: %d, error: %v", claims.UserID, err)
				continue
			}
			msg := progressMessage{Active: progress != nil, Progress: progress}
			if err := conn.WriteJSON(msg); err != nil {
				log.Infof("进度推送写入失败，关闭连接, userID: %d", claims.UserID)
				return
			}
		}
	}
}

package handlers

import (
	"sportshub/internal/middleware"
	"sportshub/internal/services"
	"sportshub/pkg/response"

	"github.com/gin-gonic/gin"
)

// SnapshotHandler 会话快照读取
type SnapshotHandler struct {
	syncService *services.SyncService
}

func NewSnapshotHandler(syncService *services.SyncService) *SnapshotHandler {
	return &SnapshotHandler{syncService: syncService}
}

// Get 当前快照，refresh=true 时强制重新同步
func (h *SnapshotHandler) Get(c *gin.Context) {
	session, ok := currentSession(c)
	if !ok {
		return
	}

	var (
		snap *services.Snapshot
		err  error
	)
	if c.Query("refresh") == "true" {
		snap, err = h.syncService.Sync(c.Request.Context(), session)
	} else {
		snap, err = h.syncService.Current(c.Request.Context(), session)
	}
	if err != nil {
		response.FromError(c, err, snap)
		return
	}

	response.Success(c, snap)
}

// currentSession 取出会话，缺失时直接返回401
func currentSession(c *gin.Context) (services.Session, bool) {
	session, ok := middleware.GetSession(c)
	if !ok {
		response.Unauthorized(c, "请先登录")
		return services.Session{}, false
	}
	return session, true
}

// respondSnapshot 意图的统一返回：失败时附带最后一次成功的快照
func respondSnapshot(c *gin.Context, snap *services.Snapshot, err error) {
	if err != nil {
		response.FromError(c, err, snap)
		return
	}
	response.Success(c, snap)
}

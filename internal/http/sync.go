package http

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type SyncController struct {
	runner SyncRunner
}

func NewSyncController(runner SyncRunner) *SyncController {
	return &SyncController{runner: runner}
}

// Sync handles POST /sync
// Runs a full directory sync within the request.
func (sc *SyncController) Sync(c *gin.Context) {
	result, err := sc.runner.Run(c.Request.Context())
	if err != nil {
		respondServiceError(c, err, "LDAP sync")
		return
	}
	requestLogger(c).Info("directory sync finished",
		zap.Int("added", result.Added),
		zap.Int("updated", result.Updated),
		zap.Int("conflicts", len(result.Conflicts)))
	respondOK(c, gin.H{
		"message":       result.String(),
		"result":        result,
		"has_conflicts": len(result.Conflicts) > 0,
	})
}

package payroll_import

import (
	"time"

	"github.com/gofiber/contrib/websocket"
	"go.uber.org/zap"
)

// progressIdleTimeout closes a progress stream that has seen no update.
const progressIdleTimeout = 5 * time.Minute

type ProgressController struct {
	Service ImportService
	Logger  *zap.Logger
}

func NewProgressController(service ImportService, logger *zap.Logger) *ProgressController {
	return &ProgressController{Service: service, Logger: logger.Named("progress")}
}

// Stream pushes ProgressUpdates for one upload as JSON frames until parsing
// completes, the client leaves, or the stream goes idle.
func (h *ProgressController) Stream(c *websocket.Conn) {
	uploadID := c.Params("uploadId")
	updates, cancel := h.Service.Subscribe(uploadID)
	defer cancel()

	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := c.ReadMessage(); err != nil {
				return
			}
		}
	}()

	idle := time.NewTimer(progressIdleTimeout)
	defer idle.Stop()
	for {
		select {
		case u, ok := <-updates:
			if !ok {
				return
			}
			if err := c.WriteJSON(u); err != nil {
				h.Logger.Debug("progress write failed", zap.String("upload_id", uploadID), zap.Error(err))
				return
			}
			if u.Processed >= u.Total {
				return
			}
			idle.Reset(progressIdleTimeout)
		case <-closed:
			return
		case <-idle.C:
			return
		}
	}
}

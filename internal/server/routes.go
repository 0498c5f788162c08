package server

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/danmuck/robolink/internal/auth"
	"github.com/danmuck/robolink/internal/control"
	"github.com/danmuck/robolink/internal/protocol"
	"github.com/danmuck/robolink/internal/protocol/session"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
)

var ErrNoLink = errors.New("server: no link attached")

type pidRequest struct {
	Target string `json:"target" binding:"required"`
	control.PIDGains
}

type driveRequest struct {
	BaseSpeed     float32 `json:"base_speed"`
	TapeFollowing bool    `json:"tape_following"`
}

type armRequest struct {
	Reach  float32 `json:"reach"`
	Height float32 `json:"height"`
	// Preview solves the pose without sending the command.
	Preview bool `json:"preview"`
}

type turntableRequest struct {
	Delta       float32  `json:"delta"`
	Sensitivity *float32 `json:"sensitivity"`
}

type capacityRequest struct {
	Capacity int `json:"capacity" binding:"required,min=1"`
}

type codeEntry struct {
	Code string `json:"code"`
	Byte int    `json:"byte"`
	Hex  string `json:"hex"`
}

func (s *Server) registerRoutes() {
	r := s.router

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "ok",
			"uptime":  time.Since(s.Appeared).String(),
			"service": s.Name,
			"version": Version,
			"link":    s.outbox != nil,
		})
	})

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	r.GET("/codes", func(c *gin.Context) {
		entries := s.table.Entries()
		out := make([]codeEntry, 0, len(entries))
		for _, e := range entries {
			out = append(out, codeEntry{Code: string(e.Code), Byte: int(e.Byte), Hex: fmt.Sprintf("0x%02x", e.Byte)})
		}
		c.JSON(http.StatusOK, gin.H{"codes": out})
	})

	tel := r.Group("/telemetry")
	tel.GET("/pid", func(c *gin.Context) {
		samples := s.recorder.PIDHistory()
		outputs := make([]float64, len(samples))
		for i, smp := range samples {
			outputs[i] = smp.Output()
		}
		c.JSON(http.StatusOK, gin.H{"samples": samples, "outputs": outputs})
	})
	tel.PUT("/pid/capacity", func(c *gin.Context) {
		var req capacityRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		s.recorder.SetPIDHistory(req.Capacity)
		c.JSON(http.StatusOK, gin.H{"status": "ok", "capacity": req.Capacity})
	})
	tel.GET("/odometry", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"path": s.recorder.Path(), "counts": s.recorder.Counts()})
	})
	tel.DELETE("/odometry", func(c *gin.Context) {
		s.recorder.ErasePath()
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	ctl := r.Group("/control")
	if s.guard != nil {
		ctl.Use(auth.RequireToken(s.guard))
	}
	ctl.POST("/pid", func(c *gin.Context) {
		var req pidRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		msg, err := control.SetPID(control.PIDTarget(req.Target), req.PIDGains)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		s.enqueue(c, msg, nil)
	})
	ctl.POST("/drive", func(c *gin.Context) {
		var req driveRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		s.enqueue(c, control.SetDriveBase(req.BaseSpeed, req.TapeFollowing), nil)
	})
	ctl.POST("/arm", func(c *gin.Context) {
		var req armRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		pose, err := control.SolveArm(float64(req.Reach), float64(req.Height))
		if err != nil {
			c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
			return
		}
		if req.Preview {
			c.JSON(http.StatusOK, gin.H{"status": "preview", "pose": pose})
			return
		}
		s.enqueue(c, control.SetArm(req.Reach, req.Height), gin.H{"pose": pose})
	})
	ctl.POST("/turntable", func(c *gin.Context) {
		var req turntableRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		sens := float32(1)
		if req.Sensitivity != nil {
			sens = *req.Sensitivity
		}
		s.enqueue(c, control.RotateTurntable(req.Delta, sens), nil)
	})
}

// enqueue hands msg to the poll loop and writes the response.
func (s *Server) enqueue(c *gin.Context, msg protocol.Message, extra gin.H) {
	if s.outbox == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": ErrNoLink.Error()})
		return
	}
	if err := s.outbox.Enqueue(msg); err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, session.ErrOutboxFull) {
			status = http.StatusServiceUnavailable
		}
		log.Warn().Msgf("server.enqueue rejected msg=%s err=%v", msg, err)
		c.JSON(status, gin.H{"error": err.Error()})
		return
	}
	body := gin.H{"status": "queued", "message": msg.String()}
	for k, v := range extra {
		body[k] = v
	}
	c.JSON(http.StatusAccepted, body)
}


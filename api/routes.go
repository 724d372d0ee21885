package api

import (
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"watermark_remover/config"
	"watermark_remover/watermark"
)

// Server handles uploads, runs watermark removal in the background and
// serves the cleaned files back.
type Server struct {
	cfg     config.Config
	log     *logrus.Logger
	remover *watermark.Remover
	jobs    *jobRegistry
}

// NewServer wires a server from config and starts the job janitor.
func NewServer(cfg config.Config, log *logrus.Logger) *Server {
	s := &Server{
		cfg:     cfg,
		log:     log,
		remover: watermark.New(cfg, log),
		jobs:    newJobRegistry(),
	}
	go s.jobs.janitor(JanitorInterval, JobRetention, log)
	return s
}

func (s *Server) SetupRoutes(r *gin.Engine) {
	r.POST("/upload", s.HandleUpload)
	r.GET("/job/:id", s.HandleJobStatus)
	r.GET("/download/:id", s.HandleDownload)
	r.GET("/health", s.HandleHealth)
}

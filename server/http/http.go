package http

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/zeebo/errs"
	"go.uber.org/zap"
)

var Error = errs.Class("http")

type Config struct {
	Endpoint        string        `help:"访问地址" default:"http://localhost:8989"`
	Address         string        `help:"监听地址" default:"0.0.0.0:8989"`
	ShutdownTimeout time.Duration `help:"关闭时等待请求处理完成的时间" default:"5s"`
}

type Server struct {
	*gin.Engine
	httpSrv *http.Server
	logger  *zap.Logger
	config  Config
}

func NewServer(engine *gin.Engine, logger *zap.Logger, conf Config) *Server {
	if conf.ShutdownTimeout <= 0 {
		conf.ShutdownTimeout = 5 * time.Second
	}
	return &Server{
		Engine:  engine,
		logger:  logger,
		config:  conf,
		httpSrv: &http.Server{Addr: conf.Address, Handler: engine},
	}
}

// Start 阻塞直到 ctx 结束或监听失败，ctx 结束时优雅关闭
func (s *Server) Start(ctx context.Context) error {
	lis, err := net.Listen("tcp", s.config.Address)
	if err != nil {
		return Error.Wrap(err)
	}
	return s.Serve(ctx, lis)
}

func (s *Server) Serve(ctx context.Context, lis net.Listener) error {
	s.logger.Info("http server start",
		zap.String("address", lis.Addr().String()), zap.String("endpoint", s.config.Endpoint))
	done := make(chan error, 1)
	go func() {
		done <- s.httpSrv.Serve(lis)
	}()
	select {
	case err := <-done:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return Error.Wrap(err)
	case <-ctx.Done():
		return s.Stop(context.Background())
	}
}

func (s *Server) Stop(ctx context.Context) error {
	s.logger.Info("shutting down server...")
	ctx, cancel := context.WithTimeout(ctx, s.config.ShutdownTimeout)
	defer cancel()
	if err := s.httpSrv.Shutdown(ctx); err != nil {
		s.logger.Error("server forced to shutdown", zap.Error(err))
		return Error.Wrap(err)
	}
	s.logger.Info("server exiting")
	return nil
}

package modbus

import (
	"fmt"
	"time"

	"github.com/simonvetter/modbus"
)

// Server exposes a register bank over Modbus TCP.
type Server struct {
	server *modbus.ModbusServer
	url    string
}

type ServerConfig struct {
	URL        string
	Timeout    time.Duration
	MaxClients uint
	Handler    modbus.RequestHandler
}

func NewServer(cfg ServerConfig) (*Server, error) {
	server, err := modbus.NewServer(&modbus.ServerConfiguration{
		URL:        cfg.URL,
		Timeout:    cfg.Timeout,
		MaxClients: cfg.MaxClients,
	}, cfg.Handler)
	if err != nil {
		return nil, fmt.Errorf("failed to create modbus server: %w", err)
	}
	return &Server{server: server, url: cfg.URL}, nil
}

func (s *Server) Start() error {
	if err := s.server.Start(); err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.url, err)
	}
	return nil
}

func (s *Server) Stop() error {
	return s.server.Stop()
}

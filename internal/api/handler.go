package api

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/korsky/hearth/internal/history"
	"github.com/korsky/hearth/internal/orchestrator"
	"github.com/korsky/hearth/internal/registry"
)

// HistoryStore — чтение истории запросов.
// Реализуется history.RequestRepo; nil означает выключенную историю.
type HistoryStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (*history.Request, error)
	ListRecent(ctx context.Context, limit int) ([]history.Request, error)
}

// Handler — главный обработчик API с зависимостями.
type Handler struct {
	orchestrator *orchestrator.Orchestrator
	registry     *registry.Registry
	history      HistoryStore
	logger       *slog.Logger
	streams      *streamTable
}

// Config — конфигурация для создания Handler.
type Config struct {
	Orchestrator *orchestrator.Orchestrator
	Registry     *registry.Registry
	History      HistoryStore
	Logger       *slog.Logger

	// StreamTTL — сколько непотреблённый поток событий ждёт
	// потребителя до отмены. Ноль — значение по умолчанию.
	StreamTTL time.Duration
}

// NewHandler создаёт новый Handler.
func NewHandler(cfg Config) *Handler {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Handler{
		orchestrator: cfg.Orchestrator,
		registry:     cfg.Registry,
		history:      cfg.History,
		logger:       cfg.Logger,
		streams:      newStreamTable(cfg.StreamTTL),
	}
}

package db

import (
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/nickyhof/KivDB/core"
	"github.com/nickyhof/KivDB/kql"
	"github.com/nickyhof/KivDB/metrics"
	"github.com/nickyhof/KivDB/op"
	"github.com/nickyhof/KivDB/ps"
)

// Engine executes KivQL statements against one store. It is safe for
// concurrent use: every statement and maintenance call holds the
// persistence lock from compilation until storage completes.
type Engine struct {
	Persistence *ps.Persistence
	Identity    core.Identity

	store  *op.StoreOp
	logger *slog.Logger
	s3     S3Config
}

type Option func(*Engine)

func WithLogger(logger *slog.Logger) Option {
	return func(engine *Engine) {
		if logger != nil {
			engine.logger = logger
		}
	}
}

// WithS3Config sets the credentials used by Backup and RestoreBackup for
// s3:// targets.
func WithS3Config(cfg S3Config) Option {
	return func(engine *Engine) {
		engine.s3 = cfg
	}
}

func NewEngine(persistence *ps.Persistence, identity core.Identity, opts ...Option) *Engine {
	engine := &Engine{
		Persistence: persistence,
		Identity:    identity,
		store:       op.NewStoreOp(persistence),
		logger:      slog.New(slog.NewTextHandler(io.Discard, nil)),
	}

	for _, opt := range opts {
		opt(engine)
	}

	return engine
}

func (engine *Engine) Logger() *slog.Logger {
	return engine.logger
}

func (engine *Engine) Execute(statement string) (Result, error) {
	engine.Persistence.Lock()
	defer engine.Persistence.Unlock()

	operation, err := kql.Compile(statement)
	if err != nil {
		metrics.ObserveStatement("invalid", metrics.StatusCompileError, 0)
		engine.logger.Debug("statement rejected", "statement", statement, "error", err)
		return nil, err
	}

	var result Result
	start := time.Now()

	switch operation.Type() {
	case kql.SetOperationType:
		result, err = engine.executeSet(operation.(kql.SetOperation), start)
	case kql.DeleteOperationType:
		result, err = engine.executeDelete(operation.(kql.DeleteOperation), start)
	case kql.GetOperationType:
		result, err = engine.executeGet(operation.(kql.GetOperation), start)
	default:
		return nil, fmt.Errorf("unsupported operation type: %v", operation.Type())
	}

	if err != nil {
		metrics.ObserveStatement(operation.Type().String(), metrics.StatusStorageError, time.Since(start))
		engine.logger.Error("storage operation failed", "operation", operation.Type().String(), "error", err)
		return nil, &StorageError{Operation: operation.Type(), Err: err}
	}

	metrics.ObserveStatement(operation.Type().String(), metrics.StatusOK, result.Elapsed())
	engine.logger.Debug("statement executed", "operation", operation.Type().String(), "elapsed", result.Elapsed())
	return result, nil
}

func (engine *Engine) executeSet(operation kql.SetOperation, start time.Time) (Result, error) {
	created, err := engine.store.Put(operation.Key, operation.Value)
	if err != nil {
		return nil, err
	}

	return SetResult{
		Key:           operation.Key,
		Created:       created,
		ExecutionTime: time.Since(start),
	}, nil
}

func (engine *Engine) executeDelete(operation kql.DeleteOperation, start time.Time) (Result, error) {
	if err := engine.store.Delete(operation.Key); err != nil {
		return nil, err
	}

	return DeleteResult{
		Key:           operation.Key,
		ExecutionTime: time.Since(start),
	}, nil
}

func (engine *Engine) executeGet(operation kql.GetOperation, start time.Time) (Result, error) {
	value, exists, err := engine.store.Get(operation.Key)
	if err != nil {
		return nil, err
	}

	result := GetResult{Key: operation.Key}
	if exists {
		result.Value = &value
	}
	result.ExecutionTime = time.Since(start)
	return result, nil
}

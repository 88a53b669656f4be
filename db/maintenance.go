package db

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/klauspost/compress/zstd"
	"github.com/nickyhof/KivDB/core"
	"github.com/nickyhof/KivDB/metrics"
	"github.com/nickyhof/KivDB/ps"
)

// Stats describes the store at one point in time.
type Stats struct {
	Keys              int
	SizeBytes         int64
	HistoryEnabled    bool
	LatestTransaction ps.Transaction
}

func (engine *Engine) Keys() ([]string, error) {
	engine.Persistence.Lock()
	defer engine.Persistence.Unlock()

	return engine.store.Keys()
}

func (engine *Engine) Count() (int, error) {
	engine.Persistence.Lock()
	defer engine.Persistence.Unlock()

	return engine.store.Count()
}

func (engine *Engine) Stats() (Stats, error) {
	engine.Persistence.Lock()
	defer engine.Persistence.Unlock()

	count, err := engine.store.Count()
	if err != nil {
		return Stats{}, err
	}

	size, err := engine.Persistence.Size()
	if err != nil {
		return Stats{}, err
	}

	metrics.StoreKeys.Set(float64(count))
	metrics.StoreSizeBytes.Set(float64(size))

	return Stats{
		Keys:              count,
		SizeBytes:         size,
		HistoryEnabled:    engine.Persistence.HistoryEnabled(),
		LatestTransaction: engine.Persistence.LatestTransaction(),
	}, nil
}

// Checkpoint records the current data file in history, authored by the
// engine identity.
func (engine *Engine) Checkpoint(message string) (ps.Transaction, error) {
	return engine.CheckpointAs(engine.Identity, message)
}

// CheckpointAs records a checkpoint authored by identity, for callers that
// authenticate their own users.
func (engine *Engine) CheckpointAs(identity core.Identity, message string) (ps.Transaction, error) {
	engine.Persistence.Lock()
	defer engine.Persistence.Unlock()

	txn, err := engine.Persistence.Checkpoint(identity, message)
	if err != nil {
		return ps.Transaction{}, err
	}

	engine.logger.Info("checkpoint created", "id", txn.Id, "author", txn.Author)
	return txn, nil
}

func (engine *Engine) History() ([]ps.Transaction, error) {
	engine.Persistence.Lock()
	defer engine.Persistence.Unlock()

	return engine.Persistence.Transactions()
}

// Snapshot tags the latest checkpoint.
func (engine *Engine) Snapshot(name string) error {
	engine.Persistence.Lock()
	defer engine.Persistence.Unlock()

	return engine.Persistence.Snapshot(name, nil)
}

func (engine *Engine) Recover(name string) error {
	engine.Persistence.Lock()
	defer engine.Persistence.Unlock()

	if err := engine.Persistence.Recover(name); err != nil {
		return err
	}

	engine.logger.Info("recovered snapshot", "name", name)
	return nil
}

func (engine *Engine) Restore(asof ps.Transaction) error {
	engine.Persistence.Lock()
	defer engine.Persistence.Unlock()

	return engine.Persistence.Restore(asof)
}

func (engine *Engine) AddRemote(name, url string) error {
	engine.Persistence.Lock()
	defer engine.Persistence.Unlock()

	return engine.Persistence.AddRemote(name, url)
}

func (engine *Engine) ListRemotes() ([]ps.Remote, error) {
	engine.Persistence.Lock()
	defer engine.Persistence.Unlock()

	return engine.Persistence.ListRemotes()
}

func (engine *Engine) RemoveRemote(name string) error {
	engine.Persistence.Lock()
	defer engine.Persistence.Unlock()

	return engine.Persistence.RemoveRemote(name)
}

func (engine *Engine) Push(remote string, auth *ps.RemoteAuth) error {
	engine.Persistence.Lock()
	defer engine.Persistence.Unlock()

	return engine.Persistence.Push(remote, auth)
}

// Fetch downloads checkpoints and snapshots from remote. The data file is
// left as is; use Recover to switch to a fetched snapshot.
func (engine *Engine) Fetch(remote string, auth *ps.RemoteAuth) error {
	engine.Persistence.Lock()
	defer engine.Persistence.Unlock()

	if err := engine.Persistence.Fetch(remote, auth); err != nil {
		return err
	}

	engine.logger.Info("fetched history", "remote", remote)
	return nil
}

func isCompressed(target string) bool {
	return strings.HasSuffix(strings.ToLower(target), ".zst")
}

// Backup writes the data file to target: a local path, file://, or
// s3://bucket/key. Targets ending in .zst are zstd-compressed.
func (engine *Engine) Backup(ctx context.Context, target string) (int64, error) {
	engine.Persistence.Lock()
	defer engine.Persistence.Unlock()

	writer, err := openRemoteWriter(ctx, target, engine.s3)
	if err != nil {
		return 0, err
	}

	var out io.Writer = writer
	var encoder *zstd.Encoder
	if isCompressed(target) {
		encoder, err = zstd.NewWriter(writer)
		if err != nil {
			writer.Close()
			return 0, err
		}
		out = encoder
	}

	n, err := engine.Persistence.Export(out)
	if err != nil {
		if encoder != nil {
			encoder.Close()
		}
		writer.Close()
		return 0, fmt.Errorf("failed to export data file: %w", err)
	}

	if encoder != nil {
		if err := encoder.Close(); err != nil {
			writer.Close()
			return 0, err
		}
	}
	if err := writer.Close(); err != nil {
		return 0, err
	}

	engine.logger.Info("backup written", "target", target, "bytes", n)
	return n, nil
}

// RestoreBackup replaces the data file with the image at source. The image
// is validated before anything is overwritten.
func (engine *Engine) RestoreBackup(ctx context.Context, source string) error {
	engine.Persistence.Lock()
	defer engine.Persistence.Unlock()

	reader, err := openRemoteReader(ctx, source, engine.s3)
	if err != nil {
		return err
	}
	defer reader.Close()

	var in io.Reader = reader
	if isCompressed(source) {
		decoder, err := zstd.NewReader(reader)
		if err != nil {
			return err
		}
		defer decoder.Close()
		in = decoder
	}

	if err := engine.Persistence.Import(in); err != nil {
		return fmt.Errorf("failed to restore %s: %w", source, err)
	}

	engine.logger.Info("backup restored", "source", source)
	return nil
}

func (engine *Engine) Close() error {
	engine.Persistence.Lock()
	defer engine.Persistence.Unlock()

	return engine.Persistence.Close()
}

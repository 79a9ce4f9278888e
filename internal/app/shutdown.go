package app

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// Shutdown cancels every background loop, tears down components in
// dependency order, and waits for all goroutines to exit before returning.
func (a *App) Shutdown() error {
	a.logger.Info("application-shutting-down")

	a.healthChecker.SetReady(false)
	a.cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := a.httpServer.Shutdown(shutdownCtx); err != nil {
		a.logger.Error("http-server-shutdown-error", zap.Error(err))
	}

	if err := a.wsPool.Close(); err != nil {
		a.logger.Error("websocket-pool-close-error", zap.Error(err))
	}

	if err := a.sink.Close(); err != nil {
		a.logger.Error("storage-close-error", zap.Error(err))
	}

	a.marketCache.Close()

	a.wg.Wait()

	a.logger.Info("application-shutdown-complete")
	return nil
}

package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "github.com/lib/pq"
	"go.uber.org/zap"

	"github.com/mselser95/predmarket-arb/internal/arbitrage"
)

// edgeRow is the JSONB shape persisted per leg of an opportunity.
type edgeRow struct {
	AssetID string `json:"asset_id"`
	Outcome string `json:"outcome"`
	Price   string `json:"price"`
	Size    string `json:"size"`
}

func edgesToJSON(edges []arbitrage.Edge) ([]byte, error) {
	rows := make([]edgeRow, len(edges))
	for i, e := range edges {
		rows[i] = edgeRow{AssetID: e.AssetID, Outcome: e.Outcome, Price: e.Price.String(), Size: e.Size.String()}
	}
	return json.Marshal(rows)
}

// PostgresStorage implements Storage using PostgreSQL.
type PostgresStorage struct {
	db     *sql.DB
	logger *zap.Logger
}

// PostgresConfig holds PostgreSQL configuration.
type PostgresConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	Database string
	SSLMode  string
	Logger   *zap.Logger
}

// NewPostgresStorage creates a new PostgreSQL storage.
func NewPostgresStorage(cfg *PostgresConfig) (*PostgresStorage, error) {
	connStr := fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.Database, cfg.SSLMode,
	)

	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}

	cfg.Logger.Info("postgres-storage-connected",
		zap.String("host", cfg.Host),
		zap.String("database", cfg.Database))

	return &PostgresStorage{
		db:     db,
		logger: cfg.Logger,
	}, nil
}

// StoreOpportunity stores an arbitrage opportunity in PostgreSQL. Edges are
// flattened into a JSON array column rather than a fixed yes/no pair,
// since a multi-outcome or cross-market opportunity can carry any number
// of legs.
func (p *PostgresStorage) StoreOpportunity(ctx context.Context, opp *arbitrage.Opportunity) error {
	edgesJSON, err := edgesToJSON(opp.Edges)
	if err != nil {
		return fmt.Errorf("marshal edges: %w", err)
	}

	query := `
		INSERT INTO arbitrage_opportunities (
			market_id, event_id, kind, detected_at, edges,
			total_edge, position_size, net_profit, fee_cost
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9
		)
	`

	_, err = p.db.ExecContext(ctx, query,
		opp.MarketID,
		opp.EventID,
		opp.Kind.String(),
		time.UnixMilli(opp.TimestampMs),
		edgesJSON,
		opp.TotalEdge.String(),
		opp.PositionSize.String(),
		opp.NetProfit.String(),
		opp.FeeCost.String(),
	)
	if err != nil {
		return fmt.Errorf("insert opportunity: %w", err)
	}

	p.logger.Debug("opportunity-stored",
		zap.String("market-id", opp.MarketID),
		zap.String("kind", opp.Kind.String()),
		zap.Int("edge-count", len(opp.Edges)))

	return nil
}

// Close closes the database connection.
func (p *PostgresStorage) Close() error {
	p.logger.Info("closing-postgres-storage")
	return p.db.Close()
}

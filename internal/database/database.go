package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "github.com/joho/godotenv/autoload"

	"payment-reconciler/internal/models"
	"payment-reconciler/internal/resume"
)

// Service is the durable resume-record archive. Redis is the primary
// resume store; this archive backs it so a record survives cache
// eviction. It satisfies resume.Store.
type Service interface {
	resume.Store

	// Health returns a map of health status information.
	// The keys and values in the map are service-specific.
	Health() map[string]string

	// Close terminates the database connection.
	Close() error
}

type service struct {
	db *sql.DB
}

var (
	database   = os.Getenv("RECONCILER_DB_DATABASE")
	password   = os.Getenv("RECONCILER_DB_PASSWORD")
	username   = os.Getenv("RECONCILER_DB_USERNAME")
	port       = os.Getenv("RECONCILER_DB_PORT")
	host       = os.Getenv("RECONCILER_DB_HOST")
	schema     = os.Getenv("RECONCILER_DB_SCHEMA")
	dbInstance *service
)

func New() Service {
	// Reuse Connection
	if dbInstance != nil {
		return dbInstance
	}
	connStr := fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=disable&search_path=%s", username, password, host, port, database, schema)
	db, err := sql.Open("pgx", connStr)
	if err != nil {
		log.Fatal(err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(5 * time.Minute)
	db.SetConnMaxIdleTime(5 * time.Minute)

	dbInstance = &service{
		db: db,
	}

	if err := dbInstance.ensureSchema(context.Background()); err != nil {
		log.Fatalf("failed to ensure resume_records schema: %v", err)
	}

	return dbInstance
}

// NewWithDB wraps an existing connection; used by integration tests.
func NewWithDB(db *sql.DB) (Service, error) {
	s := &service{db: db}
	if err := s.ensureSchema(context.Background()); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *service) ensureSchema(ctx context.Context) error {
	query := `
		CREATE TABLE IF NOT EXISTS resume_records (
			provider_collect_id TEXT PRIMARY KEY,
			server_order_id     TEXT NOT NULL DEFAULT '',
			custom_order_id     TEXT NOT NULL DEFAULT '',
			amount              DOUBLE PRECISION NOT NULL,
			fee_type            TEXT NOT NULL DEFAULT '',
			gateway             TEXT NOT NULL DEFAULT '',
			student_info        JSONB NOT NULL DEFAULT '{}',
			created_at          TIMESTAMPTZ NOT NULL DEFAULT now()
		)`

	_, err := s.db.ExecContext(ctx, query)
	return err
}

// Health checks the health of the database connection by pinging the database.
func (s *service) Health() map[string]string {
	ctx, cancel := context.WithTimeout(context.Background(), 1*time.Second)
	defer cancel()

	stats := make(map[string]string)

	err := s.db.PingContext(ctx)
	if err != nil {
		stats["status"] = "down"
		stats["error"] = fmt.Sprintf("db down: %v", err)
		return stats
	}

	stats["status"] = "up"
	stats["message"] = "It's healthy"

	dbStats := s.db.Stats()
	stats["open_connections"] = strconv.Itoa(dbStats.OpenConnections)
	stats["in_use"] = strconv.Itoa(dbStats.InUse)
	stats["idle"] = strconv.Itoa(dbStats.Idle)
	stats["wait_count"] = strconv.FormatInt(dbStats.WaitCount, 10)
	stats["wait_duration"] = dbStats.WaitDuration.String()

	if dbStats.WaitCount > 1000 {
		stats["message"] = "The database has a high number of wait events, indicating potential bottlenecks."
	}

	return stats
}

// Close closes the database connection.
func (s *service) Close() error {
	log.Printf("Disconnected from database: %s", database)
	return s.db.Close()
}

// Save upserts a resume record keyed by provider collect id.
func (s *service) Save(ctx context.Context, record *models.ResumeRecord) error {
	if record.ProviderCollectID == "" {
		return fmt.Errorf("resume archive: record missing provider collect id")
	}

	studentJSON, err := json.Marshal(record.Student)
	if err != nil {
		return fmt.Errorf("failed to marshal student info: %w", err)
	}

	createdAt := record.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	query := `
		INSERT INTO resume_records (provider_collect_id, server_order_id, custom_order_id, amount, fee_type, gateway, student_info, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (provider_collect_id) DO UPDATE SET
			server_order_id = EXCLUDED.server_order_id,
			custom_order_id = EXCLUDED.custom_order_id,
			amount = EXCLUDED.amount,
			fee_type = EXCLUDED.fee_type,
			gateway = EXCLUDED.gateway,
			student_info = EXCLUDED.student_info`

	_, err = s.db.ExecContext(ctx, query,
		record.ProviderCollectID,
		record.ServerOrderID,
		record.CustomOrderID,
		record.Amount,
		record.FeeType,
		record.Gateway,
		studentJSON,
		createdAt)
	if err != nil {
		return fmt.Errorf("failed to archive resume record: %w", err)
	}

	return nil
}

// Get returns the archived record for a provider collect id.
func (s *service) Get(ctx context.Context, providerCollectID string) (*models.ResumeRecord, error) {
	query := `
		SELECT provider_collect_id, server_order_id, custom_order_id, amount, fee_type, gateway, student_info, created_at
		FROM resume_records
		WHERE provider_collect_id = $1`

	return s.scanRecord(s.db.QueryRowContext(ctx, query, providerCollectID))
}

// Latest returns the most recently archived record.
func (s *service) Latest(ctx context.Context) (*models.ResumeRecord, error) {
	query := `
		SELECT provider_collect_id, server_order_id, custom_order_id, amount, fee_type, gateway, student_info, created_at
		FROM resume_records
		ORDER BY created_at DESC
		LIMIT 1`

	return s.scanRecord(s.db.QueryRowContext(ctx, query))
}

func (s *service) scanRecord(row *sql.Row) (*models.ResumeRecord, error) {
	var record models.ResumeRecord
	var studentJSON []byte

	err := row.Scan(
		&record.ProviderCollectID,
		&record.ServerOrderID,
		&record.CustomOrderID,
		&record.Amount,
		&record.FeeType,
		&record.Gateway,
		&studentJSON,
		&record.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, resume.ErrNotFound
		}
		return nil, fmt.Errorf("failed to read resume record: %w", err)
	}

	if err := json.Unmarshal(studentJSON, &record.Student); err != nil {
		return nil, fmt.Errorf("failed to unmarshal student info: %w", err)
	}

	return &record, nil
}

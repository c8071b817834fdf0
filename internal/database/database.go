package database

import (
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	embeddedpostgres "github.com/fergusstrange/embedded-postgres"
	"github.com/mendelflow/mendelflowgo/internal/config"
	"github.com/mendelflow/mendelflowgo/internal/models"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const (
	embeddedDataPath = "./db_data"
	embeddedPort     = 5433
)

// DB wraps gorm.DB and includes a reference to an embedded process if active
type DB struct {
	*gorm.DB
	embedded *embeddedpostgres.EmbeddedPostgres
	log      *zap.Logger
}

// IsEmbedded reports whether cfg selects the embedded PostgreSQL instance:
// localhost with no password.
func IsEmbedded(cfg config.DatabaseConfig) bool {
	return cfg.Host == "localhost" && cfg.Password == ""
}

// pollUntil checks done every 500ms up to attempts times
func pollUntil(attempts int, done func() bool) bool {
	for i := 0; i < attempts; i++ {
		if done() {
			return true
		}
		time.Sleep(500 * time.Millisecond)
	}
	return done()
}

func alive(p *os.Process) bool {
	// signal 0 probes without delivering anything
	return p.Signal(syscall.Signal(0)) == nil
}

// stalePostmaster returns the process named by a leftover postmaster.pid
func stalePostmaster(pidFile string) (*os.Process, int, bool) {
	data, err := os.ReadFile(pidFile)
	if err != nil {
		return nil, 0, false
	}
	firstLine, _, _ := strings.Cut(string(data), "\n")
	pid, err := strconv.Atoi(strings.TrimSpace(firstLine))
	if err != nil || pid <= 0 {
		return nil, 0, false
	}
	p, err := os.FindProcess(pid)
	if err != nil {
		return nil, pid, false
	}
	return p, pid, true
}

// releaseEmbedded stops a PostgreSQL left running by a crashed previous run
// and clears its pid file so the embedded instance can start.
func releaseEmbedded(log *zap.Logger) {
	pidFile := filepath.Join(embeddedDataPath, "postmaster.pid")
	defer os.Remove(pidFile)

	p, pid, ok := stalePostmaster(pidFile)
	if !ok || !alive(p) {
		return
	}

	log.Warn("stopping orphaned embedded PostgreSQL", zap.Int("pid", pid))
	if err := p.Signal(syscall.SIGTERM); err != nil {
		log.Warn("SIGTERM failed", zap.Int("pid", pid), zap.Error(err))
	}
	if pollUntil(10, func() bool { return !alive(p) }) {
		return
	}
	log.Warn("orphaned PostgreSQL ignored SIGTERM, killing it", zap.Int("pid", pid))
	p.Kill()
	time.Sleep(500 * time.Millisecond)
}

func portFree(port int) bool {
	conn, err := net.DialTimeout("tcp", fmt.Sprintf("127.0.0.1:%d", port), time.Second)
	if err != nil {
		return true
	}
	conn.Close()
	return false
}

// Connect establishes a connection to a PostgreSQL database (external or embedded)
func Connect(cfg config.DatabaseConfig, log *zap.Logger) (*DB, error) {
	if log == nil {
		log = zap.NewNop()
	}
	var embedded *embeddedpostgres.EmbeddedPostgres

	password := cfg.Password
	if IsEmbedded(cfg) {
		log.Info("database mode: embedded PostgreSQL")

		releaseEmbedded(log)
		if !pollUntil(6, func() bool { return portFree(embeddedPort) }) {
			return nil, fmt.Errorf("port %d is still in use by another process", embeddedPort)
		}

		embeddedCfg := embeddedpostgres.DefaultConfig().
			DataPath(embeddedDataPath).
			Port(uint32(embeddedPort)).
			Database(cfg.Database).
			Username(cfg.Username).
			Password("postgres")

		embedded = embeddedpostgres.NewDatabase(embeddedCfg)
		if err := embedded.Start(); err != nil {
			return nil, fmt.Errorf("failed to start embedded database: %w", err)
		}

		cfg.Port = strconv.Itoa(embeddedPort)
		password = "postgres"
		log.Info("embedded PostgreSQL started", zap.Int("port", embeddedPort))
	} else {
		log.Info("database mode: external PostgreSQL", zap.String("host", cfg.Host), zap.String("port", cfg.Port))
	}

	dsn := fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=disable",
		cfg.Host,
		cfg.Port,
		cfg.Username,
		password,
		cfg.Database,
	)

	logLevel := logger.Warn
	if cfg.Silent {
		logLevel = logger.Silent
	}

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logLevel),
		TranslateError: true,
		NowFunc: func() time.Time {
			return time.Now().UTC()
		},
	})
	if err != nil {
		if embedded != nil {
			_ = embedded.Stop()
		}
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err == nil {
		sqlDB.SetMaxIdleConns(10)
		sqlDB.SetMaxOpenConns(100)
		sqlDB.SetConnMaxLifetime(time.Hour)
	}

	log.Info("database connection established")

	return &DB{
		DB:       db,
		embedded: embedded,
		log:      log,
	}, nil
}

// Close ensures the database connection and embedded process are shut down
func (db *DB) Close() error {
	sqlDB, err := db.DB.DB()
	if err == nil {
		err = sqlDB.Close()
	}
	if db.embedded != nil {
		db.log.Info("stopping embedded PostgreSQL")
		if stopErr := db.embedded.Stop(); stopErr != nil && err == nil {
			err = stopErr
		}
	}
	return err
}

// Models lists every table owned by the application
func Models() []interface{} {
	return []interface{}{
		&models.User{},
		&models.Product{},
		&models.Order{},
		&models.OrderItem{},
		&models.Task{},
		&models.TaskComment{},
		&models.QueueCounter{},
		&models.QueueTicket{},
		&models.QueueEvent{},
	}
}

// Migrate synchronizes the schema for all application models
func (db *DB) Migrate() error {
	return db.DB.AutoMigrate(Models()...)
}

// Ping checks the connection, used by the health endpoint
func (db *DB) Ping() error {
	sqlDB, err := db.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Ping()
}

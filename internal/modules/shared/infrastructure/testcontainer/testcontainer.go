package testcontainer

import (
	"context"
	"fmt"
	"strconv"
	"testing"
	"time"

	"github.com/docker/go-connections/nat"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/mysql"
	rediscontainer "github.com/testcontainers/testcontainers-go/modules/redis"
	"github.com/testcontainers/testcontainers-go/wait"

	"grammar-api-app/internal/config"
)

// RedisContainer Redisコンテナのラッパー
type RedisContainer struct {
	Container *rediscontainer.RedisContainer
	Host      string
	Port      int
}

// MySQLContainer MySQLコンテナのラッパー
type MySQLContainer struct {
	Container *mysql.MySQLContainer
	Host      string
	Port      int
	Database  string
	User      string
	Password  string
}

// StartRedis Redisコンテナを起動し、終了時に停止する
//
// Dockerが使えない環境ではテストをスキップする。
func StartRedis(ctx context.Context, t *testing.T) *RedisContainer {
	t.Helper()
	testcontainers.SkipIfProviderIsNotHealthy(t)

	container, err := rediscontainer.Run(ctx,
		"redis:7-alpine",
		testcontainers.WithWaitStrategy(
			wait.ForLog("Ready to accept connections").WithStartupTimeout(30*time.Second),
		),
	)
	testcontainers.CleanupContainer(t, container)
	if err != nil {
		t.Fatalf("failed to start redis container: %v", err)
	}

	host, port := endpoint(ctx, t, container, "6379")
	return &RedisContainer{
		Container: container,
		Host:      host,
		Port:      port,
	}
}

// StartMySQL MySQLコンテナを起動し、終了時に停止する
//
// Dockerが使えない環境ではテストをスキップする。
func StartMySQL(ctx context.Context, t *testing.T) *MySQLContainer {
	t.Helper()
	testcontainers.SkipIfProviderIsNotHealthy(t)

	const (
		database = "grammar_test"
		user     = "grammar"
		password = "grammar"
	)

	container, err := mysql.Run(ctx,
		"mysql:8.0",
		mysql.WithDatabase(database),
		mysql.WithUsername(user),
		mysql.WithPassword(password),
		testcontainers.WithWaitStrategy(
			wait.ForLog("port: 3306  MySQL Community Server").WithStartupTimeout(60*time.Second),
		),
	)
	testcontainers.CleanupContainer(t, container)
	if err != nil {
		t.Fatalf("failed to start mysql container: %v", err)
	}

	host, port := endpoint(ctx, t, container, "3306")
	return &MySQLContainer{
		Container: container,
		Host:      host,
		Port:      port,
		Database:  database,
		User:      user,
		Password:  password,
	}
}

func endpoint(ctx context.Context, t *testing.T, container testcontainers.Container, natPort string) (string, int) {
	t.Helper()

	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("failed to get container host: %v", err)
	}
	mapped, err := container.MappedPort(ctx, nat.Port(natPort))
	if err != nil {
		t.Fatalf("failed to get mapped port %s: %v", natPort, err)
	}
	port, err := strconv.Atoi(mapped.Port())
	if err != nil {
		t.Fatalf("failed to parse mapped port %q: %v", mapped.Port(), err)
	}
	return host, port
}

// Config コンテナに接続するRedis設定
func (r *RedisContainer) Config() *config.RedisConfig {
	return &config.RedisConfig{
		Enabled: true,
		Host:    r.Host,
		Port:    r.Port,
		TTL:     time.Hour,
	}
}

// Config コンテナに接続するMySQL設定
func (m *MySQLContainer) Config() *config.MySQLConfig {
	return &config.MySQLConfig{
		Enabled:  true,
		Host:     m.Host,
		Port:     m.Port,
		User:     m.User,
		Password: m.Password,
		Database: m.Database,
	}
}

// ConnectionString MySQL接続文字列を取得
func (m *MySQLContainer) ConnectionString() string {
	return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?parseTime=true",
		m.User, m.Password, m.Host, m.Port, m.Database)
}

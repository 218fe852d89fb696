//go:build e2e

package e2e

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/harbor-house/apiserver/config"
	"github.com/harbor-house/apiserver/internal/server"
	_ "github.com/lib/pq"
)

const (
	serverPort    = 18080
	sessionSecret = "e2e-session-secret"
)

func TestMain(m *testing.M) {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Minute)
	defer cancel()

	root, err := repoRoot()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to locate repo root: %v\n", err)
		os.Exit(1)
	}

	if err := dockerCompose(ctx, root, "up", "-d"); err != nil {
		fmt.Fprintf(os.Stderr, "failed to start docker compose: %v\n", err)
		os.Exit(1)
	}

	if err := waitForPostgres(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "postgres not ready: %v\n", err)
		_ = dockerCompose(context.Background(), root, "down")
		os.Exit(1)
	}

	if err := runMigrations(root); err != nil {
		fmt.Fprintf(os.Stderr, "failed to run migrations: %v\n", err)
		_ = dockerCompose(context.Background(), root, "down")
		os.Exit(1)
	}

	srv, err := startServer()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to start server: %v\n", err)
		_ = dockerCompose(context.Background(), root, "down")
		os.Exit(1)
	}

	baseURL := fmt.Sprintf("http://localhost:%d", serverPort)
	if err := waitForHealth(ctx, baseURL+"/healthz"); err != nil {
		fmt.Fprintf(os.Stderr, "server not healthy: %v\n", err)
		_ = srv.Shutdown()
		_ = dockerCompose(context.Background(), root, "down")
		os.Exit(1)
	}

	code := m.Run()

	_ = srv.Shutdown()
	_ = dockerCompose(context.Background(), root, "down")
	os.Exit(code)
}

func TestOnboardingLifecycle(t *testing.T) {
	baseURL := fmt.Sprintf("http://localhost:%d", serverPort)
	externalID := fmt.Sprintf("ext_%d", time.Now().UnixNano())
	token := mintSessionToken(t, externalID)

	intake := map[string]any{
		"first_name":    "Sam",
		"last_name":     "Harbor",
		"email":         fmt.Sprintf("%s@example.com", externalID),
		"phone":         fmt.Sprintf("555-%d", time.Now().UnixNano()%1_000_000_0),
		"sobriety_date": "2026-01-15",
		"sponsor":       "Pat",
		"step":          "3",
	}

	status, body := postJSON(t, baseURL+"/onboarding/step1", token, intake)
	if status != http.StatusCreated {
		t.Fatalf("step1 status %d: %s", status, body)
	}

	status, body = postJSON(t, baseURL+"/onboarding/step1", token, intake)
	if status != http.StatusUnprocessableEntity {
		t.Fatalf("duplicate step1 status %d: %s", status, body)
	}
	if !strings.Contains(body, "already exists") {
		t.Fatalf("expected duplicate message, got: %s", body)
	}

	rows := listResidents(t, baseURL, token)
	id := ""
	for _, row := range rows {
		if row.Name == "Sam Harbor" {
			id = row.ID
		}
	}
	if id == "" {
		t.Fatalf("registered resident missing from roster")
	}

	detail := getResident(t, baseURL, token, id)
	if detail.SobrietyDate != "2026-01-15" {
		t.Fatalf("unexpected sobriety date: %q", detail.SobrietyDate)
	}
	if detail.Step != "3" {
		t.Fatalf("unexpected step: %q", detail.Step)
	}

	patch := map[string]any{
		"name":          "Sam H. Harbor",
		"birthdate":     detail.Birthdate,
		"email":         detail.Email,
		"phone_number":  detail.PhoneNumber,
		"sobriety_date": "2026-02-01",
		"sponsor":       "Pat",
		"step":          "4",
	}
	status, body = putJSON(t, baseURL+"/residents/"+id, token, patch)
	if status != http.StatusOK {
		t.Fatalf("update status %d: %s", status, body)
	}

	detail = getResident(t, baseURL, token, id)
	if detail.Name != "Sam H. Harbor" {
		t.Fatalf("unexpected updated name: %q", detail.Name)
	}
	if detail.SobrietyDate != "2026-02-01" {
		t.Fatalf("unexpected updated sobriety date: %q", detail.SobrietyDate)
	}
}

func TestStep1ReportsMissingFields(t *testing.T) {
	baseURL := fmt.Sprintf("http://localhost:%d", serverPort)
	token := mintSessionToken(t, fmt.Sprintf("ext_%d", time.Now().UnixNano()))

	status, body := postJSON(t, baseURL+"/onboarding/step1", token, map[string]any{
		"first_name": "Sam",
	})
	if status != http.StatusUnprocessableEntity {
		t.Fatalf("step1 status %d: %s", status, body)
	}
	for _, field := range []string{"lastName", "phone", "sobrietyDate", "sponsor"} {
		if !strings.Contains(body, field+" is required") {
			t.Fatalf("missing %q in response: %s", field, body)
		}
	}
}

func TestStep2RequiresSignedInSession(t *testing.T) {
	// The server runs without an identity gateway, so no session exists
	// and the workflow must refuse the submission.
	baseURL := fmt.Sprintf("http://localhost:%d", serverPort)
	token := mintSessionToken(t, fmt.Sprintf("ext_%d", time.Now().UnixNano()))

	status, body := postJSON(t, baseURL+"/onboarding/step2", token, map[string]any{})
	if status != http.StatusUnauthorized {
		t.Fatalf("step2 status %d: %s", status, body)
	}
	if !strings.Contains(body, "User is not logged in.") {
		t.Fatalf("expected sign-in message, got: %s", body)
	}
}

func TestRosterRequiresToken(t *testing.T) {
	baseURL := fmt.Sprintf("http://localhost:%d", serverPort)

	resp, err := http.Get(baseURL + "/residents")
	if err != nil {
		t.Fatalf("get residents: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token, got %d", resp.StatusCode)
	}
}

type rosterRow struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	SobrietyDate string `json:"sobriety_date"`
	Step         string `json:"step"`
}

type rosterDetail struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	Birthdate    string `json:"birthdate"`
	Email        string `json:"email"`
	PhoneNumber  string `json:"phone_number"`
	SobrietyDate string `json:"sobriety_date"`
	Sponsor      string `json:"sponsor"`
	Step         string `json:"step"`
}

func mintSessionToken(t *testing.T, subject string) string {
	t.Helper()

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{Subject: subject})
	signed, err := token.SignedString([]byte(sessionSecret))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return signed
}

func postJSON(t *testing.T, url, token string, payload any) (int, string) {
	t.Helper()
	return doJSON(t, http.MethodPost, url, token, payload)
}

func putJSON(t *testing.T, url, token string, payload any) (int, string) {
	t.Helper()
	return doJSON(t, http.MethodPut, url, token, payload)
}

func doJSON(t *testing.T, method, url, token string, payload any) (int, string) {
	t.Helper()

	body, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("marshal payload: %v", err)
	}

	req, err := http.NewRequest(method, url, bytes.NewReader(body))
	if err != nil {
		t.Fatalf("build request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("do request: %v", err)
	}
	defer resp.Body.Close()

	raw, _ := io.ReadAll(resp.Body)
	return resp.StatusCode, strings.TrimSpace(string(raw))
}

func listResidents(t *testing.T, baseURL, token string) []rosterRow {
	t.Helper()

	req, err := http.NewRequest(http.MethodGet, baseURL+"/residents", nil)
	if err != nil {
		t.Fatalf("build request: %v", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("list residents: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(resp.Body)
		t.Fatalf("list residents status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
	}

	var rows []rosterRow
	if err := json.NewDecoder(resp.Body).Decode(&rows); err != nil {
		t.Fatalf("decode roster: %v", err)
	}
	return rows
}

func getResident(t *testing.T, baseURL, token, id string) rosterDetail {
	t.Helper()

	req, err := http.NewRequest(http.MethodGet, baseURL+"/residents/"+id, nil)
	if err != nil {
		t.Fatalf("build request: %v", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("get resident: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(resp.Body)
		t.Fatalf("get resident status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
	}

	var detail rosterDetail
	if err := json.NewDecoder(resp.Body).Decode(&detail); err != nil {
		t.Fatalf("decode resident: %v", err)
	}
	return detail
}

func waitForPostgres(ctx context.Context) error {
	cfg := config.LoadConfig()
	dsn := buildPostgresURL(cfg)
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return err
	}
	defer db.Close()

	ticker := time.NewTicker(1 * time.Second)
	defer ticker.Stop()

	for {
		pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
		err := db.PingContext(pingCtx)
		cancel()
		if err == nil {
			return nil
		}
		select {
		case <-ctx.Done():
			return fmt.Errorf("postgres ping timeout: %w", err)
		case <-ticker.C:
		}
	}
}

func waitForHealth(ctx context.Context, url string) error {
	client := &http.Client{Timeout: 2 * time.Second}
	ticker := time.NewTicker(500 * time.Millisecond)
	defer ticker.Stop()

	for {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return err
		}
		resp, err := client.Do(req)
		if err == nil {
			_ = resp.Body.Close()
			if resp.StatusCode == http.StatusOK {
				return nil
			}
		}
		select {
		case <-ctx.Done():
			if err != nil {
				return fmt.Errorf("health check failed: %w", err)
			}
			return fmt.Errorf("health check failed with status")
		case <-ticker.C:
		}
	}
}

func runMigrations(root string) error {
	cfg := config.LoadConfig()
	dsn := buildPostgresURL(cfg)
	migrationsPath := filepath.Join(root, "internal", "db", "migrations")
	migrationsURL := "file://" + migrationsPath

	migrator, err := migrate.New(migrationsURL, dsn)
	if err != nil {
		return err
	}
	defer func() {
		_, _ = migrator.Close()
	}()

	if err := migrator.Up(); err != nil && err != migrate.ErrNoChange {
		return err
	}
	return nil
}

func buildPostgresURL(cfg config.Config) string {
	sslmode := "disable"
	if cfg.Database.UseSSL {
		sslmode = "require"
	}
	host := fmt.Sprintf("%s:%d", cfg.Database.Host, cfg.Database.Port)
	return fmt.Sprintf(
		"postgres://%s:%s@%s/%s?sslmode=%s",
		cfg.Database.User,
		cfg.Database.Password,
		host,
		cfg.Database.DBName,
		sslmode,
	)
}

func startServer() (*server.Server, error) {
	_ = os.Setenv("IDENTITY_SESSION_JWT_SECRET", sessionSecret)
	_ = os.Setenv("SERVER_PORT", fmt.Sprintf("%d", serverPort))
	_ = os.Setenv("DB_HOST", "localhost")
	_ = os.Setenv("DB_PORT", "5432")
	_ = os.Setenv("DB_USER", "harborhouse")
	_ = os.Setenv("DB_PASSWORD", "password")
	_ = os.Setenv("DB_NAME", "harborhouse_db")
	_ = os.Setenv("DB_USE_SSL", "false")

	cfg := config.LoadConfig()
	srv, err := server.New(context.Background(), cfg)
	if err != nil {
		return nil, err
	}

	go func() {
		_ = srv.Start()
	}()

	return srv, nil
}

func dockerCompose(ctx context.Context, root string, args ...string) error {
	composeFile := filepath.Join(root, "development", "docker-compose.yml")
	baseArgs := append([]string{"compose", "-f", composeFile}, args...)
	cmd := exec.CommandContext(ctx, "docker", baseArgs...)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	return cmd.Run()
}

func repoRoot() (string, error) {
	dir, err := os.Getwd()
	if err != nil {
		return "", err
	}

	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", fmt.Errorf("go.mod not found")
		}
		dir = parent
	}
}

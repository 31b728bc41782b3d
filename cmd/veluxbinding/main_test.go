package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/nerrad567/gray-logic-velux/internal/auth"
	"github.com/nerrad567/gray-logic-velux/internal/bridges/velux"
	"github.com/nerrad567/gray-logic-velux/internal/infrastructure/database"
	"github.com/nerrad567/gray-logic-velux/migrations"
)

const testSecret = "test-secret-key-at-least-32-characters-long"

const testItems = `
items:
  - name: Kitchen_Window
    type: window.position
    thing: "56:23:3E:26:0C:1B:00:10"
  - name: Gateway_Status
    type: bridge.status
  - name: Gateway_Firmware
    type: bridge.firmware
    divider: 50
  - name: Evening
    type: scene.action
    provider: scenes
`

// writeTestConfig writes a config file and items file into a temp dir and
// returns the config path. settings is inserted under velux.settings.
func writeTestConfig(t *testing.T, settings string, veluxEnabled bool) string {
	t.Helper()
	dir := t.TempDir()

	itemsPath := filepath.Join(dir, "velux-items.yaml")
	if err := os.WriteFile(itemsPath, []byte(testItems), 0600); err != nil {
		t.Fatalf("writing items file: %v", err)
	}

	content := `
site:
  id: test-site

database:
  path: "` + filepath.Join(dir, "velux.db") + `"
  wal_mode: true
  busy_timeout: 5

influxdb:
  enabled: false

logging:
  level: error
  format: text
  output: stdout

api:
  enabled: false

security:
  jwt:
    secret: "` + testSecret + `"

velux:
  enabled: ` + map[bool]string{true: "true", false: "false"}[veluxEnabled] + `
  items_file: "` + itemsPath + `"
  settings:
` + settings

	configPath := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(configPath, []byte(content), 0600); err != nil {
		t.Fatalf("writing config: %v", err)
	}
	return configPath
}

// execute runs the root command with args and returns its output.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestRootCommand_Subcommands(t *testing.T) {
	cmd := newRootCommand()
	for _, name := range []string{"run", "validate", "items", "token"} {
		t.Run(name, func(t *testing.T) {
			sub, _, err := cmd.Find([]string{name})
			if err != nil {
				t.Fatalf("Find(%s): %v", name, err)
			}
			if sub.Name() != name {
				t.Errorf("Name() = %s, want %s", sub.Name(), name)
			}
		})
	}
}

func TestRootCommand_ConfigFlagDefault(t *testing.T) {
	t.Setenv("GRAYLOGIC_CONFIG", "/etc/velux/config.yaml")
	cmd := newRootCommand()
	flag := cmd.PersistentFlags().Lookup("config")
	if flag == nil {
		t.Fatal("config flag missing")
	}
	if flag.DefValue != "/etc/velux/config.yaml" {
		t.Errorf("DefValue = %q, want GRAYLOGIC_CONFIG", flag.DefValue)
	}
	if flag.Shorthand != "c" {
		t.Errorf("Shorthand = %q", flag.Shorthand)
	}
}

func TestGetConfigPath(t *testing.T) {
	t.Setenv("GRAYLOGIC_CONFIG", "")
	if got := getConfigPath(); got != defaultConfigPath {
		t.Errorf("getConfigPath() = %q, want %q", got, defaultConfigPath)
	}
	t.Setenv("GRAYLOGIC_CONFIG", "/tmp/x.yaml")
	if got := getConfigPath(); got != "/tmp/x.yaml" {
		t.Errorf("getConfigPath() = %q", got)
	}
}

func TestRun_InvalidConfig(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := run(ctx, "/nonexistent/path/config.yaml"); err == nil {
		t.Fatal("run() succeeded with missing config")
	}
}

func TestRun_VeluxDisabled(t *testing.T) {
	path := writeTestConfig(t, "", false)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := run(ctx, path); err != nil {
		t.Fatalf("run() with velux disabled = %v, want nil", err)
	}
}

func TestValidate(t *testing.T) {
	path := writeTestConfig(t, `
    bridgeIPAddress: "10.0.0.7"
    bridgePassword: "s3cretGatewayPw"
    refreshMsecs: "5000"
    someFutureKey: "x"
`, true)

	out, err := execute(t, "--config", path, "validate")
	if err != nil {
		t.Fatalf("validate: %v\n%s", err, out)
	}
	if !strings.Contains(out, "configuration OK") {
		t.Errorf("output missing OK line:\n%s", out)
	}
	if !strings.Contains(out, "bridgeIPAddress=10.0.0.7") {
		t.Errorf("output missing applied IP:\n%s", out)
	}
	if strings.Contains(out, "s3cretGatewayPw") {
		t.Errorf("output leaks password:\n%s", out)
	}
	if !strings.Contains(out, "someFutureKey") {
		t.Errorf("output does not list ignored key:\n%s", out)
	}
}

func TestValidate_BadSetting(t *testing.T) {
	path := writeTestConfig(t, `
    bridgeTCPPort: "abc"
`, true)

	_, err := execute(t, "--config", path, "validate")
	if err == nil {
		t.Fatal("validate succeeded with bad port")
	}
	if !strings.Contains(err.Error(), "velux.settings.bridgeTCPPort") {
		t.Errorf("error = %v, want key named", err)
	}
}

func TestItems_FromFile(t *testing.T) {
	dir := t.TempDir()
	itemsPath := filepath.Join(dir, "items.yaml")
	if err := os.WriteFile(itemsPath, []byte(testItems), 0600); err != nil {
		t.Fatalf("writing items file: %v", err)
	}

	out, err := execute(t, "items", "--items-file", itemsPath)
	if err != nil {
		t.Fatalf("items: %v\n%s", err, out)
	}

	for _, want := range []string{"Kitchen_Window", "window.position", "Gateway_Firmware", "scenes", "4 items"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}

	// Registration order: file provider items first, then the scenes provider.
	if strings.Index(out, "Gateway_Firmware") > strings.Index(out, "Evening") {
		t.Errorf("items out of order:\n%s", out)
	}
}

func TestItems_InvalidType(t *testing.T) {
	dir := t.TempDir()
	itemsPath := filepath.Join(dir, "items.yaml")
	content := "items:\n  - name: Broken\n    type: no.such.type\n"
	if err := os.WriteFile(itemsPath, []byte(content), 0600); err != nil {
		t.Fatalf("writing items file: %v", err)
	}

	if _, err := execute(t, "items", "-f", itemsPath); err == nil {
		t.Fatal("items succeeded with unknown type")
	}
}

func TestItems_Import(t *testing.T) {
	path := writeTestConfig(t, "", true)

	out, err := execute(t, "--config", path, "items", "--import")
	if err != nil {
		t.Fatalf("items --import: %v\n%s", err, out)
	}
	if !strings.Contains(out, "imported 4 items") {
		t.Errorf("output missing import line:\n%s", out)
	}

	ctx := context.Background()
	db, err := database.Open(ctx, database.Config{Path: filepath.Join(filepath.Dir(path), "velux.db")})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer db.Close()
	if err := db.Migrate(ctx, migrations.Source()); err != nil {
		t.Fatalf("Migrate: %v", err)
	}

	store := velux.NewSQLiteProvider(db.DB, velux.DefaultSQLiteProvider, nil)
	specs, err := store.List(ctx)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(specs) != 4 {
		t.Fatalf("stored %d items, want 4", len(specs))
	}
	if specs[0].Name != "Kitchen_Window" {
		t.Errorf("first stored item = %s", specs[0].Name)
	}
}

func TestToken(t *testing.T) {
	path := writeTestConfig(t, "", true)

	out, err := execute(t, "--config", path, "token", "--subject", "wall-panel", "--role", "admin")
	if err != nil {
		t.Fatalf("token: %v\n%s", err, out)
	}

	claims, err := auth.ParseToken(strings.TrimSpace(out), testSecret)
	if err != nil {
		t.Fatalf("ParseToken: %v", err)
	}
	if claims.Subject != "wall-panel" || claims.Role != auth.RoleAdmin {
		t.Errorf("claims = %s/%s", claims.Subject, claims.Role)
	}
}

func TestToken_Errors(t *testing.T) {
	path := writeTestConfig(t, "", true)

	tests := []struct {
		name string
		args []string
	}{
		{"missing subject", []string{"--config", path, "token"}},
		{"invalid role", []string{"--config", path, "token", "--subject", "x", "--role", "superuser"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := execute(t, tt.args...); err == nil {
				t.Error("token succeeded")
			}
		})
	}
}

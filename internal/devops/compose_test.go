package devops

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	yaml "gopkg.in/yaml.v3"
)

// TestCompose_SearxNGService verifies the static shape of the searxng
// service: a pinned image, a readiness healthcheck on /healthz, the
// settings mount, and a published port. The CLI default search URL is
// http://127.0.0.1:8080, so the port must reach the host. This is a
// static config test and does not require Docker.
func TestCompose_SearxNGService(t *testing.T) {
	services := composeServices(t)
	searx, ok := services["searxng"].(map[string]any)
	if !ok {
		t.Fatalf("searxng service missing")
	}

	image, _ := searx["image"].(string)
	if image == "" || !strings.Contains(image, ":") || strings.HasSuffix(image, ":latest") {
		t.Fatalf("searxng image must be pinned to a tag, got %q", image)
	}

	hc, ok := searx["healthcheck"].(map[string]any)
	if !ok {
		t.Fatalf("searxng healthcheck missing")
	}
	testCmd, ok := hc["test"].([]any)
	if !ok || len(testCmd) < 4 {
		t.Fatalf("searxng healthcheck.test malformed: %#v", hc["test"])
	}
	okURL := false
	for _, v := range testCmd {
		if s, ok := v.(string); ok && strings.Contains(s, "/healthz") {
			okURL = true
			break
		}
	}
	if !okURL {
		t.Fatalf("searxng healthcheck must probe /healthz; test=%v", testCmd)
	}

	vols, _ := searx["volumes"].([]any)
	foundSettings := false
	for _, v := range vols {
		if s, ok := v.(string); ok && strings.Contains(s, "/settings.yml:/etc/searxng/settings.yml") {
			foundSettings = true
			break
		}
	}
	if !foundSettings {
		t.Fatalf("searxng should mount searxng/settings.yml to /etc/searxng/settings.yml; volumes=%v", vols)
	}

	ports, _ := searx["ports"].([]any)
	found := false
	for _, p := range ports {
		if s, ok := p.(string); ok && strings.Contains(s, "8080:8080") {
			found = true
			break
		}
	}
	if !found {
		t.Fatalf("searxng must publish port 8080 for the host CLI; ports=%v", ports)
	}
}

// TestCompose_GofetchService checks that the containerized MCP server
// waits for a healthy searxng and is pointed at it over the compose
// network rather than the host loopback.
func TestCompose_GofetchService(t *testing.T) {
	services := composeServices(t)
	tool, ok := services["gofetch"].(map[string]any)
	if !ok {
		t.Fatalf("gofetch service missing")
	}

	dep, ok := tool["depends_on"].(map[string]any)
	if !ok {
		t.Fatalf("gofetch.depends_on missing or wrong type")
	}
	searxDep, ok := dep["searxng"].(map[string]any)
	if !ok {
		t.Fatalf("gofetch.depends_on.searxng missing")
	}
	if cond, _ := searxDep["condition"].(string); cond != "service_healthy" {
		t.Fatalf("gofetch should depend on searxng service_healthy, got %q", cond)
	}

	env, ok := tool["environment"].(map[string]any)
	if !ok {
		t.Fatalf("gofetch.environment missing or wrong type")
	}
	host, _ := env["SEARXNG_HOST"].(string)
	if host != "http://searxng:8080" {
		t.Fatalf("SEARXNG_HOST should target the searxng service, got %q", host)
	}
}

// TestCompose_SettingsEnableJSONFormat guards the settings override the
// search provider depends on. Stock SearxNG answers format=json with
// HTTP 403 unless json is listed under search.formats.
func TestCompose_SettingsEnableJSONFormat(t *testing.T) {
	root := findRepoRoot(t)
	b, err := os.ReadFile(filepath.Join(root, "searxng", "settings.yml"))
	if err != nil {
		t.Fatalf("read settings: %v", err)
	}
	var doc map[string]any
	if err := yaml.Unmarshal(b, &doc); err != nil {
		t.Fatalf("yaml unmarshal: %v", err)
	}

	srch, ok := doc["search"].(map[string]any)
	if !ok {
		t.Fatalf("search section missing")
	}
	formats, ok := srch["formats"].([]any)
	if !ok {
		t.Fatalf("search.formats missing or wrong type")
	}
	hasJSON := false
	for _, f := range formats {
		if s, ok := f.(string); ok && s == "json" {
			hasJSON = true
			break
		}
	}
	if !hasJSON {
		t.Fatalf("search.formats must include json; formats=%v", formats)
	}
}

func composeServices(t *testing.T) map[string]any {
	t.Helper()
	root := findRepoRoot(t)
	b, err := os.ReadFile(filepath.Join(root, "docker-compose.yml"))
	if err != nil {
		t.Fatalf("read compose: %v", err)
	}
	var doc map[string]any
	if err := yaml.Unmarshal(b, &doc); err != nil {
		t.Fatalf("yaml unmarshal: %v", err)
	}
	services, ok := doc["services"].(map[string]any)
	if !ok {
		t.Fatalf("services missing or wrong type")
	}
	return services
}

func findRepoRoot(t *testing.T) string {
	t.Helper()
	dir, err := os.Getwd()
	if err != nil {
		t.Fatalf("getwd: %v", err)
	}
	// Walk up until we find go.mod
	for i := 0; i < 5; i++ {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	t.Fatalf("could not locate repo root with go.mod")
	return ""
}

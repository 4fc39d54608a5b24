package devops

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// TestMake_DXTargets verifies developer experience targets exist in the
// Makefile and reference the expected go and docker compose invocations.
func TestMake_DXTargets(t *testing.T) {
	root := findRepoRoot(t)
	b, err := os.ReadFile(filepath.Join(root, "Makefile"))
	if err != nil {
		t.Fatalf("Makefile missing: %v", err)
	}
	mk := string(b)

	for _, target := range []string{"\nbuild:", "\ntest:", "\nup:", "\ndown:", "\nlogs:", "\nrebuild:", "\nclean:"} {
		if !strings.Contains(mk, target) {
			t.Fatalf("Makefile should define a %q target", strings.TrimSpace(target))
		}
	}

	// build stamps the binary via the linker
	for _, ldvar := range []string{"internal/app.BuildVersion", "internal/app.BuildCommit", "internal/app.BuildDate"} {
		if !strings.Contains(mk, ldvar) {
			t.Fatalf("build target should inject %s through ldflags", ldvar)
		}
	}
	if !strings.Contains(mk, "./cmd/gofetch") {
		t.Fatalf("build target should build ./cmd/gofetch")
	}

	// test runs the whole module
	if !strings.Contains(mk, "test ./...") {
		t.Fatalf("test target should run the full test suite")
	}

	// up starts only the searxng dependency; logs follows compose output
	if !strings.Contains(mk, "docker compose up -d searxng") {
		t.Fatalf("up target should start the searxng service")
	}
	if !strings.Contains(mk, "docker compose logs -f") {
		t.Fatalf("logs target should follow docker compose logs -f")
	}

	// rebuild recreates the gofetch container with a fresh image
	if !strings.Contains(mk, "--build") || !strings.Contains(mk, "--force-recreate") {
		t.Fatalf("rebuild target should include --build and --force-recreate")
	}
}

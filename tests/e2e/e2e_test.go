package e2e

import (
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
)

func TestE2E_RememberAndSearch(t *testing.T) {
	rootDir, _ := filepath.Abs("../../")
	binPath := filepath.Join(t.TempDir(), "recall_e2e")

	buildCmd := exec.Command("go", "build", "-o", binPath, "github.com/felixgeelhaar/recall/cmd/recall")
	buildCmd.Dir = rootDir
	if out, err := buildCmd.CombinedOutput(); err != nil {
		t.Fatalf("Failed to build recall: %v\n%s", err, out)
	}

	home := t.TempDir()
	env := append(os.Environ(), "RECALL_HOME="+home, "RECALL_SECRET=e2e")

	recall := func(args ...string) string {
		t.Helper()
		cmd := exec.Command(binPath, append([]string{"--provider=stub"}, args...)...)
		cmd.Env = env
		out, err := cmd.CombinedOutput()
		t.Logf("recall %s:\n%s", strings.Join(args, " "), out)
		if err != nil {
			t.Fatalf("recall %s failed: %v", args[0], err)
		}
		return string(out)
	}

	recall("remember", "--title", "favorite-food", "--content", "The user loves pierogi", "--keywords", "food,poland")
	recall("remember", "--title", "pet", "--content", "The user has a cat named Miso", "--keywords", "pets")

	out := recall("search", "-k", "1", "what", "food", "does", "the", "user", "love", "pierogi")
	if !strings.Contains(out, "favorite-food") {
		t.Errorf("Expected favorite-food in search output, got:\n%s", out)
	}
	if strings.Contains(out, "1. pet:") {
		t.Errorf("Expected only the nearest memory, got:\n%s", out)
	}

	out = recall("keywords")
	for _, k := range []string{"food", "pets", "poland"} {
		if !strings.Contains(out, k) {
			t.Errorf("Expected keyword %q, got:\n%s", k, out)
		}
	}

	if _, err := os.Stat(filepath.Join(home, "memories.db")); os.IsNotExist(err) {
		t.Error("memories.db not created")
	}
}

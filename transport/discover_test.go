package transport

import (
	"os"
	"path/filepath"
	"testing"
)

// TestDiscover 验证设备节点枚举与非法通配的报错。
func TestDiscover(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"usbtmc0", "usbtmc2", "ttyUSB0"} {
		if err := os.WriteFile(filepath.Join(dir, name), nil, 0o644); err != nil {
			t.Fatal(err)
		}
	}
	devs, err := Discover(filepath.Join(dir, "usbtmc*"))
	if err != nil {
		t.Fatal(err)
	}
	if len(devs) != 2 {
		t.Fatalf("devs=%v", devs)
	}
	if filepath.Base(devs[0]) != "usbtmc0" || filepath.Base(devs[1]) != "usbtmc2" {
		t.Fatalf("devs=%v", devs)
	}

	if _, err := Discover("["); err == nil {
		t.Fatalf("expected error for bad glob")
	}

	none, err := Discover(filepath.Join(dir, "usbtmc9*"))
	if err != nil {
		t.Fatal(err)
	}
	if len(none) != 0 {
		t.Fatalf("none=%v", none)
	}
}

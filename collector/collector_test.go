package collector

import (
	"syscall"
	"testing"

	"github.com/m-lab/tcpdiag/inetdiag"
)

func TestConfigFamiliesDefaultsToBoth(t *testing.T) {
	var cfg Config
	got := cfg.families()
	want := []uint8{syscall.AF_INET, syscall.AF_INET6}
	if len(got) != len(want) || got[0] != want[0] || got[1] != want[1] {
		t.Errorf("families() = %v, want %v", got, want)
	}
}

func TestConfigFamiliesRespectsInet4(t *testing.T) {
	cfg := Config{Inet4: true}
	got := cfg.families()
	if len(got) != 1 || got[0] != syscall.AF_INET {
		t.Errorf("families() = %v, want [AF_INET]", got)
	}
}

func TestConfigFamiliesRespectsInet6(t *testing.T) {
	cfg := Config{Inet6: true}
	got := cfg.families()
	if len(got) != 1 || got[0] != syscall.AF_INET6 {
		t.Errorf("families() = %v, want [AF_INET6]", got)
	}
}

func TestConfigStatesDefaultsToEstablished(t *testing.T) {
	var cfg Config
	if cfg.states() != inetdiag.TCPFEstablished {
		t.Errorf("states() = %#x, want TCPFEstablished", cfg.states())
	}
}

func TestConfigStatesAllStates(t *testing.T) {
	cfg := Config{AllStates: true}
	if cfg.states() != inetdiag.TCPFAll {
		t.Errorf("states() = %#x, want TCPFAll", cfg.states())
	}
}

func TestConfigExtensionsDefaultsToDefaultExtensions(t *testing.T) {
	var cfg Config
	if cfg.extensions() != inetdiag.DefaultExtensions() {
		t.Errorf("extensions() = %#x, want DefaultExtensions()", cfg.extensions())
	}
}

func TestConfigExtensionsAllExtensions(t *testing.T) {
	cfg := Config{AllExtensions: true}
	if cfg.extensions() != inetdiag.AllExtensions {
		t.Errorf("extensions() = %#x, want AllExtensions", cfg.extensions())
	}
}

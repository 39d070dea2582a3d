package debug

import (
	"log/slog"
	"reflect"
	"testing"
)

func TestParseCategories(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  map[string]bool
	}{
		{"empty", "", map[string]bool{}},
		{"single", "gateway", map[string]bool{"gateway": true}},
		{"multiple", "gateway,broker", map[string]bool{"gateway": true, "broker": true}},
		{"all", "all", map[string]bool{"all": true}},
		{"with spaces", " gateway , broker ", map[string]bool{"gateway": true, "broker": true}},
		{"uppercase normalized", "GATEWAY,Broker", map[string]bool{"gateway": true, "broker": true}},
		{"empty segments", "gateway,,broker", map[string]bool{"gateway": true, "broker": true}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := parseCategories(tt.input)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("parseCategories(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestEnabled(t *testing.T) {
	orig := categories
	defer func() { categories = orig }()

	categories = parseCategories("gateway,alerts")

	if !Enabled("gateway") {
		t.Error("gateway should be enabled")
	}
	if !Enabled("alerts") {
		t.Error("alerts should be enabled")
	}
	if Enabled("broker") {
		t.Error("broker should not be enabled")
	}
}

func TestEnabled_All(t *testing.T) {
	orig := categories
	defer func() { categories = orig }()

	categories = parseCategories("all")

	for _, cat := range []string{"auth", "broker", "anything"} {
		if !Enabled(cat) {
			t.Errorf("%s should be enabled via 'all'", cat)
		}
	}
}

func TestCategoriesSorted(t *testing.T) {
	orig := categories
	defer func() { categories = orig }()

	categories = parseCategories("storage,auth,broker")

	want := []string{"auth", "broker", "storage"}
	if got := Categories(); !reflect.DeepEqual(got, want) {
		t.Errorf("Categories() = %v, want %v", got, want)
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input string
		want  slog.Level
	}{
		{"TRACE", LevelTrace},
		{"trace", LevelTrace},
		{"DEBUG", slog.LevelDebug},
		{"INFO", slog.LevelInfo},
		{"", slog.LevelInfo},
		{"WARNING", slog.LevelWarn},
		{"ERROR", slog.LevelError},
		{"unknown", slog.LevelInfo},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := ParseLevel(tt.input); got != tt.want {
				t.Errorf("ParseLevel(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestTokenHint(t *testing.T) {
	orig := categories
	defer func() { categories = orig }()
	categories = parseCategories("")

	if got := TokenHint("gateway", "eyJhbGciOiJIUzI1NiJ9.payload.sig"); got != "eyJhbGciOi..." {
		t.Errorf("TokenHint long = %q", got)
	}
	if got := TokenHint("gateway", "short"); got != "*****" {
		t.Errorf("TokenHint short = %q", got)
	}
}

func TestLog_DisabledCategory(t *testing.T) {
	orig := categories
	defer func() { categories = orig }()

	categories = parseCategories("")

	Log("gateway", "test message", "key", "value")
	Trace("gateway", "trace message", "key", "value")
}

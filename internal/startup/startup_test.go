package startup

import (
	"net/http"
	"os"
	"testing"

	"github.com/gorilla/mux"
)

func TestGetBuildInfo(t *testing.T) {
	info := GetBuildInfo()

	// Check that all fields are populated
	if info.Version == "" {
		t.Error("Expected Version to be set")
	}
	if info.GoVersion == "" {
		t.Error("Expected GoVersion to be set")
	}
	if info.OS == "" {
		t.Error("Expected OS to be set")
	}
	if info.Arch == "" {
		t.Error("Expected Arch to be set")
	}

	// Verify that runtime values are correct
	if info.GoVersion != GoVersion {
		t.Errorf("Expected GoVersion=%s, got %s", GoVersion, info.GoVersion)
	}
}

func TestGetEnv(t *testing.T) {
	tests := []struct {
		name         string
		key          string
		defaultValue string
		envValue     string
		want         string
		setEnv       bool
	}{
		{
			name:         "Returns default when env var not set",
			key:          "TEST_UNSET_VAR",
			defaultValue: "default",
			want:         "default",
			setEnv:       false,
		},
		{
			name:         "Returns env value when set",
			key:          "TEST_SET_VAR",
			defaultValue: "default",
			envValue:     "custom",
			want:         "custom",
			setEnv:       true,
		},
		{
			name:         "Returns empty string when env var is empty",
			key:          "TEST_EMPTY_VAR",
			defaultValue: "default",
			envValue:     "",
			want:         "",
			setEnv:       true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.setEnv {
				t.Setenv(tt.key, tt.envValue)
			} else {
				// Ensure the variable is not set
				os.Unsetenv(tt.key)
				t.Cleanup(func() {
					os.Unsetenv(tt.key)
				})
			}

			got := getEnv(tt.key, tt.defaultValue)
			if got != tt.want {
				t.Errorf("getEnv(%q, %q) = %q, want %q", tt.key, tt.defaultValue, got, tt.want)
			}
		})
	}
}

func TestGetRoutes(t *testing.T) {
	router := mux.NewRouter()
	router.HandleFunc("/api/scan", func(http.ResponseWriter, *http.Request) {}).Methods("POST").Name("scan")
	router.HandleFunc("/health", func(http.ResponseWriter, *http.Request) {}).Methods("GET", "HEAD")
	router.PathPrefix("/thumbnails/").Handler(http.NotFoundHandler())

	routes, err := GetRoutes(router)
	if err != nil {
		t.Fatalf("GetRoutes() error = %v", err)
	}

	want := []RouteInfo{
		{Method: "POST", Path: "/api/scan", Name: "scan"},
		{Method: "GET", Path: "/health"},
		{Method: "HEAD", Path: "/health"},
		{Method: "*", Path: "/thumbnails/"},
	}
	if len(routes) != len(want) {
		t.Fatalf("GetRoutes() returned %d routes, want %d: %+v", len(routes), len(want), routes)
	}
	for i := range want {
		if routes[i] != want[i] {
			t.Errorf("route %d = %+v, want %+v", i, routes[i], want[i])
		}
	}
}

func TestRouteLines(t *testing.T) {
	routes := []RouteInfo{
		{Method: "GET", Path: "/health"},
		{Method: "POST", Path: "/api/scan"},
		{Method: "*", Path: "/thumbnails/"},
		{Method: "HEAD", Path: "/health"},
	}
	want := []string{
		"POST   /api/scan",
		"GET    /health",
		"HEAD   /health",
		"*      /thumbnails/",
	}

	got := routeLines(routes)
	if len(got) != len(want) {
		t.Fatalf("routeLines() = %q, want %q", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("line %d = %q, want %q", i, got[i], want[i])
		}
	}
	if routes[0].Path != "/health" {
		t.Error("routeLines() reordered its input")
	}
}

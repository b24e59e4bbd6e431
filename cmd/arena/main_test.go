package main

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/okian/arena/internal/adapters/repository"
	"github.com/okian/arena/internal/config"
	"github.com/okian/arena/pkg/logger"
	"github.com/smartystreets/goconvey/convey"
)

func init() {
	if err := logger.Init(); err != nil {
		panic(err)
	}
}

func memoryConfig() *config.Config {
	cfg := config.New()
	cfg.DBDriver = repository.DriverMemory
	cfg.Addr = "127.0.0.1:0"
	cfg.VoteRateLimit = 0
	return cfg
}

func TestConfigFromEnvironment(t *testing.T) {
	convey.Convey("Given arena environment overrides", t, func() {
		_ = os.Setenv("ARENA_ADDR", ":9090")
		_ = os.Setenv("ARENA_DB_DRIVER", "memory")
		_ = os.Setenv("ARENA_K_FACTOR", "24")
		defer func() {
			_ = os.Unsetenv("ARENA_ADDR")
			_ = os.Unsetenv("ARENA_DB_DRIVER")
			_ = os.Unsetenv("ARENA_K_FACTOR")
		}()

		convey.Convey("Then configuration should be loadable", func() {
			cfg, err := config.Load(context.Background())
			convey.So(err, convey.ShouldBeNil)
			convey.So(cfg.Addr, convey.ShouldEqual, ":9090")
			convey.So(cfg.DBDriver, convey.ShouldEqual, "memory")
			convey.So(cfg.KFactor, convey.ShouldEqual, 24.0)
		})
	})
}

func TestHandler(t *testing.T) {
	convey.Convey("Given a service wired the way main wires it", t, func() {
		ctx := context.Background()
		cfg := memoryConfig()
		svc := newService(repository.NewMemoryStore(), cfg)
		convey.So(svc.Start(ctx), convey.ShouldBeNil)
		defer svc.Stop()
		h := newHandler(ctx, svc, cfg)

		get := func(path string) *httptest.ResponseRecorder {
			w := httptest.NewRecorder()
			h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, http.NoBody))
			return w
		}

		convey.Convey("Then the seeded catalog is served", func() {
			w := get("/llms")
			convey.So(w.Code, convey.ShouldEqual, http.StatusOK)
			var items []map[string]any
			convey.So(json.Unmarshal(w.Body.Bytes(), &items), convey.ShouldBeNil)
			convey.So(len(items), convey.ShouldEqual, 11)
		})

		convey.Convey("And a vote round-trips through the API", func() {
			w := get("/matchup")
			convey.So(w.Code, convey.ShouldEqual, http.StatusOK)
			var pair map[string]string
			convey.So(json.Unmarshal(w.Body.Bytes(), &pair), convey.ShouldBeNil)

			body := `{"winner":"` + pair["a"] + `","loser":"` + pair["b"] + `"}`
			vw := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodPost, "/vote", strings.NewReader(body))
			h.ServeHTTP(vw, req)
			convey.So(vw.Code, convey.ShouldEqual, http.StatusOK)

			var rows []map[string]any
			convey.So(json.Unmarshal(get("/rankings").Body.Bytes(), &rows), convey.ShouldBeNil)
			convey.So(rows[0]["name"], convey.ShouldEqual, pair["a"])
			convey.So(rows[0]["score"], convey.ShouldEqual, 1516.0)
		})

		convey.Convey("And docs, health and CORS are in place", func() {
			convey.So(get("/openapi.yaml").Code, convey.ShouldEqual, http.StatusOK)
			convey.So(get("/api-docs").Code, convey.ShouldEqual, http.StatusOK)
			w := get("/healthz")
			convey.So(w.Code, convey.ShouldEqual, http.StatusOK)
			convey.So(w.Header().Get("Access-Control-Allow-Origin"), convey.ShouldEqual, "*")
		})
	})
}

func TestRun(t *testing.T) {
	convey.Convey("Given a memory-backed configuration", t, func() {
		cfg := memoryConfig()

		convey.Convey("When the context ends shortly after start", func() {
			ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
			defer cancel()
			err := run(ctx, cfg)

			convey.Convey("Then run shuts down cleanly", func() {
				convey.So(err, convey.ShouldBeNil)
			})
		})

		convey.Convey("When the driver is unknown", func() {
			cfg.DBDriver = "oracle"
			err := run(context.Background(), cfg)

			convey.Convey("Then run fails before serving", func() {
				convey.So(err, convey.ShouldEqual, repository.ErrUnknownDriver)
			})
		})
	})
}

func TestUpdateSystemMetrics(t *testing.T) {
	convey.Convey("Given the system metrics updater", t, func() {
		convey.So(func() { updateSystemMetrics() }, convey.ShouldNotPanic)

		ctx, cancel := context.WithCancel(context.Background())
		done := make(chan struct{})
		go func() {
			startSystemMetricsUpdater(ctx)
			close(done)
		}()
		cancel()

		convey.Convey("Then it stops with its context", func() {
			select {
			case <-done:
			case <-time.After(time.Second):
				t.Fatal("updater did not stop")
			}
		})
	})
}

package api_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/okian/arena/internal/adapters/http/api"
	"github.com/okian/arena/internal/adapters/mq/queue"
	"github.com/okian/arena/internal/adapters/repository"
	service "github.com/okian/arena/internal/app"
	"github.com/okian/arena/internal/domain/analytics"
	"github.com/okian/arena/internal/domain/model"
	"github.com/okian/arena/internal/domain/pairing"
	"github.com/okian/arena/internal/domain/rating"
	"github.com/okian/arena/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

func init() {
	if err := logger.Init(); err != nil {
		panic(err)
	}
}

// mockDeps is an in-memory arena backed by a real engine.
type mockDeps struct {
	mu         sync.Mutex
	engine     *rating.Engine
	items      []model.Item
	seen       map[string]bool
	votes      []model.VoteEvent
	submitErr  error
	matchupErr error
	gotVoteIDs []string
}

func newMockDeps(names ...string) *mockDeps {
	items := make([]model.Item, len(names))
	for i, n := range names {
		items[i] = model.Item{Name: n, Provider: "test"}
	}
	return &mockDeps{
		engine: rating.New(names),
		items:  items,
		seen:   map[string]bool{},
	}
}

func (m *mockDeps) Items() ([]model.Item, error) { return m.items, nil }

func (m *mockDeps) Suggest(name string) string {
	for _, it := range m.items {
		if strings.EqualFold(it.Name, name) {
			return it.Name
		}
	}
	return ""
}

func (m *mockDeps) Rankings(n int) ([]rating.Standing, error) {
	if n > 0 {
		return m.engine.Top(n), nil
	}
	return m.engine.Rankings(), nil
}

func (m *mockDeps) Standing(name string) (rating.Standing, error) {
	return m.engine.Standing(name)
}

func (m *mockDeps) Matchup() (string, string, error) {
	if m.matchupErr != nil {
		return "", "", m.matchupErr
	}
	return m.items[0].Name, m.items[1].Name, nil
}

func (m *mockDeps) SubmitVote(_ context.Context, winner, loser, voteID string) (model.VoteReceipt, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.gotVoteIDs = append(m.gotVoteIDs, voteID)
	if m.submitErr != nil {
		return model.VoteReceipt{}, m.submitErr
	}
	ev := model.VoteEvent{ID: voteID, Winner: winner, Loser: loser}
	if m.seen[voteID] {
		return model.VoteReceipt{Event: ev, Duplicate: true}, nil
	}
	out, err := m.engine.Apply(winner, loser, "")
	if err != nil {
		return model.VoteReceipt{}, err
	}
	m.seen[voteID] = true
	ev.Seq = int64(len(m.votes) + 1)
	m.votes = append(m.votes, ev)
	return model.VoteReceipt{Event: ev, Outcome: out}, nil
}

func (m *mockDeps) RecentVotes(_ context.Context, n int) ([]model.VoteEvent, error) {
	if n > len(m.votes) {
		n = len(m.votes)
	}
	return m.votes[len(m.votes)-n:], nil
}

func (m *mockDeps) Outcomes(n int) ([]model.Outcome, error) { return m.engine.Recent(n), nil }

func (m *mockDeps) Analytics(ctx context.Context) (analytics.Timelines, error) {
	names := make([]string, len(m.items))
	for i, it := range m.items {
		names[i] = it.Name
	}
	return analytics.BuildTimelines(ctx, names, m.votes)
}

func (m *mockDeps) GetStats(_ context.Context) map[string]interface{} {
	return map[string]interface{}{"started": true, "items": len(m.items)}
}

func newMux(deps api.Dependencies, opts ...api.Option) http.Handler {
	server := api.NewServer(deps, opts...)
	mux := http.NewServeMux()
	server.Register(context.Background(), mux)
	return server.Handler(mux)
}

func do(h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func decode(w *httptest.ResponseRecorder, v any) {
	So(json.Unmarshal(w.Body.Bytes(), v), ShouldBeNil)
}

type errorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func TestServer_Register(t *testing.T) {
	Convey("Given a registered API server", t, func() {
		h := newMux(newMockDeps("X", "Y"))

		Convey("Then health and metrics serve the Prometheus exposition", func() {
			for _, path := range []string{"/healthz", "/metrics"} {
				w := do(h, http.MethodGet, path, "")
				So(w.Code, ShouldEqual, http.StatusOK)
			}
		})

		Convey("And stats are JSON", func() {
			w := do(h, http.MethodGet, "/stats", "")
			So(w.Code, ShouldEqual, http.StatusOK)
			var stats map[string]interface{}
			decode(w, &stats)
			So(stats["started"], ShouldEqual, true)
		})

		Convey("And wrong methods are refused", func() {
			w := do(h, http.MethodGet, "/vote", "")
			So(w.Code, ShouldEqual, http.StatusMethodNotAllowed)
		})

		Convey("And CORS headers are set and preflight is answered", func() {
			w := do(h, http.MethodOptions, "/vote", "")
			So(w.Code, ShouldEqual, http.StatusNoContent)
			So(w.Header().Get("Access-Control-Allow-Origin"), ShouldEqual, "*")

			w = do(h, http.MethodGet, "/llms", "")
			So(w.Header().Get("Access-Control-Allow-Origin"), ShouldEqual, "*")
		})
	})
}

func TestCatalogAndMatchup(t *testing.T) {
	Convey("Given a server over X and Y", t, func() {
		deps := newMockDeps("X", "Y")
		h := newMux(deps)

		Convey("When listing items", func() {
			w := do(h, http.MethodGet, "/llms", "")

			Convey("Then the catalog is returned", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				var items []model.Item
				decode(w, &items)
				So(len(items), ShouldEqual, 2)
				So(items[0].Name, ShouldEqual, "X")
			})
		})

		Convey("When asking for a matchup", func() {
			w := do(h, http.MethodGet, "/matchup", "")

			Convey("Then two names are returned", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				var pair map[string]string
				decode(w, &pair)
				So(pair["a"], ShouldEqual, "X")
				So(pair["b"], ShouldEqual, "Y")
			})
		})

		Convey("When the catalog is too small for a matchup", func() {
			deps.matchupErr = pairing.ErrInsufficientCatalog
			w := do(h, http.MethodGet, "/matchup", "")

			Convey("Then the service is unavailable", func() {
				So(w.Code, ShouldEqual, http.StatusServiceUnavailable)
			})
		})
	})
}

func TestVote(t *testing.T) {
	Convey("Given a server over X and Y", t, func() {
		deps := newMockDeps("X", "Y")
		h := newMux(deps)

		Convey("When X beats Y", func() {
			id := "3f2b8a9e-1c4d-4e5f-8a6b-7c8d9e0f1a2b"
			w := do(h, http.MethodPost, "/vote", fmt.Sprintf(`{"winner":"X","loser":"Y","vote_id":%q}`, id))

			Convey("Then the vote succeeds with its outcome", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				var resp struct {
					Success   bool          `json:"success"`
					Duplicate bool          `json:"duplicate"`
					VoteID    string        `json:"vote_id"`
					Seq       int64         `json:"seq"`
					Outcome   model.Outcome `json:"outcome"`
				}
				decode(w, &resp)
				So(resp.Success, ShouldBeTrue)
				So(resp.Duplicate, ShouldBeFalse)
				So(resp.VoteID, ShouldEqual, id)
				So(resp.Seq, ShouldEqual, int64(1))
				So(resp.Outcome.After["X"], ShouldEqual, 1516.0)
			})

			Convey("And the rankings show the change", func() {
				w := do(h, http.MethodGet, "/rankings", "")
				So(w.Code, ShouldEqual, http.StatusOK)
				var rows []map[string]interface{}
				decode(w, &rows)
				So(len(rows), ShouldEqual, 2)
				So(rows[0]["name"], ShouldEqual, "X")
				So(rows[0]["score"], ShouldEqual, 1516.0)
				So(rows[0]["change"], ShouldEqual, 16.0)
				So(rows[1]["change"], ShouldEqual, -16.0)
				So(rows[1]["rank"], ShouldEqual, 2.0)
			})

			Convey("And repeating the vote id is a duplicate", func() {
				w := do(h, http.MethodPost, "/vote", fmt.Sprintf(`{"winner":"X","loser":"Y","vote_id":%q}`, id))
				So(w.Code, ShouldEqual, http.StatusOK)
				var resp map[string]interface{}
				decode(w, &resp)
				So(resp["duplicate"], ShouldEqual, true)
				_, hasOutcome := resp["outcome"]
				So(hasOutcome, ShouldBeFalse)
			})
		})

		Convey("When no vote id is given", func() {
			w := do(h, http.MethodPost, "/vote", `{"winner":"X","loser":"Y"}`)

			Convey("Then one is generated", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				So(len(deps.gotVoteIDs), ShouldEqual, 1)
				So(len(deps.gotVoteIDs[0]), ShouldEqual, 36)
			})
		})

		Convey("When the body is malformed", func() {
			w := do(h, http.MethodPost, "/vote", `{"winner":`)

			Convey("Then it is a bad request", func() {
				So(w.Code, ShouldEqual, http.StatusBadRequest)
				var body errorBody
				decode(w, &body)
				So(body.Code, ShouldEqual, "bad_request")
			})
		})

		Convey("When fields are missing or equal", func() {
			missing := do(h, http.MethodPost, "/vote", `{"winner":"X"}`)
			same := do(h, http.MethodPost, "/vote", `{"winner":"X","loser":"X"}`)
			badID := do(h, http.MethodPost, "/vote", `{"winner":"X","loser":"Y","vote_id":"nope"}`)

			Convey("Then validation rejects them without calling the service", func() {
				So(missing.Code, ShouldEqual, http.StatusBadRequest)
				So(missing.Body.String(), ShouldContainSubstring, "missing loser")
				So(same.Code, ShouldEqual, http.StatusBadRequest)
				So(same.Body.String(), ShouldContainSubstring, "must differ")
				So(badID.Code, ShouldEqual, http.StatusBadRequest)
				So(badID.Body.String(), ShouldContainSubstring, "vote_id")
				So(len(deps.gotVoteIDs), ShouldEqual, 0)
			})
		})

		Convey("When a name is misspelled", func() {
			w := do(h, http.MethodPost, "/vote", `{"winner":"x","loser":"Y"}`)

			Convey("Then the error suggests the catalog name", func() {
				So(w.Code, ShouldEqual, http.StatusBadRequest)
				var body errorBody
				decode(w, &body)
				So(body.Message, ShouldContainSubstring, `did you mean "X"`)
			})
		})

		Convey("When the write queue is full", func() {
			deps.submitErr = fmt.Errorf("vote rejected: %w", queue.ErrFull)
			w := do(h, http.MethodPost, "/vote", `{"winner":"X","loser":"Y"}`)

			Convey("Then backpressure is signalled", func() {
				So(w.Code, ShouldEqual, http.StatusTooManyRequests)
				var body errorBody
				decode(w, &body)
				So(body.Code, ShouldEqual, "backpressure")
			})
		})

		Convey("When persistence fails", func() {
			deps.submitErr = fmt.Errorf("%w: append: disk full", repository.ErrPersistence)
			w := do(h, http.MethodPost, "/vote", `{"winner":"X","loser":"Y"}`)

			Convey("Then the service is unavailable", func() {
				So(w.Code, ShouldEqual, http.StatusServiceUnavailable)
			})
		})

		Convey("When the service is stopped", func() {
			deps.submitErr = service.ErrNotStarted
			w := do(h, http.MethodPost, "/vote", `{"winner":"X","loser":"Y"}`)

			Convey("Then the service is unavailable rather than broken", func() {
				So(w.Code, ShouldEqual, http.StatusServiceUnavailable)
				var body errorBody
				decode(w, &body)
				So(body.Code, ShouldEqual, "unavailable")
			})
		})

		Convey("When an unexpected error happens", func() {
			deps.submitErr = errors.New("boom")
			w := do(h, http.MethodPost, "/vote", `{"winner":"X","loser":"Y"}`)

			Convey("Then it is an internal error", func() {
				So(w.Code, ShouldEqual, http.StatusInternalServerError)
			})
		})
	})
}

func TestVoteRateLimit(t *testing.T) {
	Convey("Given a server limited to a burst of two votes", t, func() {
		h := newMux(newMockDeps("X", "Y"), api.WithVoteRateLimit(0.001, 2))

		Convey("When three votes arrive at once", func() {
			codes := make([]int, 3)
			for i := range codes {
				codes[i] = do(h, http.MethodPost, "/vote", `{"winner":"X","loser":"Y"}`).Code
			}

			Convey("Then the third is rate limited", func() {
				So(codes[0], ShouldEqual, http.StatusOK)
				So(codes[1], ShouldEqual, http.StatusOK)
				So(codes[2], ShouldEqual, http.StatusTooManyRequests)
			})
		})
	})
}

func TestRankings(t *testing.T) {
	Convey("Given a server over three items", t, func() {
		deps := newMockDeps("A", "B", "C")
		h := newMux(deps)

		Convey("When asking for the top one", func() {
			w := do(h, http.MethodGet, "/rankings?limit=1", "")

			Convey("Then one row is returned", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				var rows []map[string]interface{}
				decode(w, &rows)
				So(len(rows), ShouldEqual, 1)
				So(rows[0]["name"], ShouldEqual, "A")
			})
		})

		Convey("When the limit is invalid", func() {
			w := do(h, http.MethodGet, "/rankings?limit=zero", "")

			Convey("Then it is a bad request", func() {
				So(w.Code, ShouldEqual, http.StatusBadRequest)
			})
		})

		Convey("When asking for one item", func() {
			w := do(h, http.MethodGet, "/rankings/B", "")

			Convey("Then its standing is returned", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				var row map[string]interface{}
				decode(w, &row)
				So(row["name"], ShouldEqual, "B")
				So(row["rank"], ShouldEqual, 1.0)
				So(row["rating"], ShouldEqual, 1500.0)
			})
		})

		Convey("When asking for an unknown item", func() {
			w := do(h, http.MethodGet, "/rankings/b2", "")

			Convey("Then it is not found", func() {
				So(w.Code, ShouldEqual, http.StatusNotFound)
				var body errorBody
				decode(w, &body)
				So(body.Code, ShouldEqual, "not_found")
			})
		})
	})
}

func TestHistoryAndAnalytics(t *testing.T) {
	Convey("Given a server with three recorded votes", t, func() {
		deps := newMockDeps("A", "B", "C")
		h := newMux(deps, api.WithDefaultHistory(2), api.WithMaxLimit(10))
		for _, body := range []string{
			`{"winner":"A","loser":"B"}`,
			`{"winner":"B","loser":"C"}`,
			`{"winner":"C","loser":"A"}`,
		} {
			So(do(h, http.MethodPost, "/vote", body).Code, ShouldEqual, http.StatusOK)
		}

		Convey("Then /history defaults to the configured tail", func() {
			w := do(h, http.MethodGet, "/history", "")
			So(w.Code, ShouldEqual, http.StatusOK)
			var votes []model.VoteEvent
			decode(w, &votes)
			So(len(votes), ShouldEqual, 2)
			So(votes[0].Winner, ShouldEqual, "B")
			So(votes[1].Winner, ShouldEqual, "C")
		})

		Convey("And limits above the maximum are rejected", func() {
			w := do(h, http.MethodGet, "/history?limit=11", "")
			So(w.Code, ShouldEqual, http.StatusBadRequest)
			So(w.Body.String(), ShouldContainSubstring, "limit exceeds 10")
		})

		Convey("And /outcomes returns before and after snapshots", func() {
			w := do(h, http.MethodGet, "/outcomes?limit=3", "")
			So(w.Code, ShouldEqual, http.StatusOK)
			var outs []model.Outcome
			decode(w, &outs)
			So(len(outs), ShouldEqual, 3)
			So(outs[0].Before["A"], ShouldEqual, 1500.0)
			So(outs[0].After["A"], ShouldEqual, 1516.0)
		})

		Convey("And /analytics returns N+1 points per item", func() {
			w := do(h, http.MethodGet, "/analytics", "")
			So(w.Code, ShouldEqual, http.StatusOK)
			var tl map[string][]model.TimelinePoint
			decode(w, &tl)
			So(len(tl), ShouldEqual, 3)
			for _, points := range tl {
				So(len(points), ShouldEqual, 4)
			}
		})
	})
}

func TestError(t *testing.T) {
	Convey("Given API errors", t, func() {
		Convey("Then Wrap picks the kind from the cause", func() {
			So(errors.Is(api.Wrap("op", rating.ErrSameItem), api.ErrBadRequest), ShouldBeTrue)
			So(errors.Is(api.Wrap("op", &rating.UnknownItemError{Name: "z"}), api.ErrBadRequest), ShouldBeTrue)
			So(errors.Is(api.Wrap("op", queue.ErrFull), api.ErrBackpressure), ShouldBeTrue)
			So(errors.Is(api.Wrap("op", context.DeadlineExceeded), api.ErrUnavailable), ShouldBeTrue)
			So(errors.Is(api.Wrap("op", service.ErrNotStarted), api.ErrUnavailable), ShouldBeTrue)
			So(errors.Is(api.Wrap("op", errors.New("x")), api.ErrInternal), ShouldBeTrue)
		})

		Convey("And the cause stays reachable", func() {
			err := api.WrapKind("api.op", api.ErrNotFound, rating.ErrUnknownItem)
			So(errors.Is(err, rating.ErrUnknownItem), ShouldBeTrue)
			So(err.Error(), ShouldEqual, "api.op: unknown item")
		})

		Convey("And a bare kind reads as the kind", func() {
			So(api.NewKind("api.op", api.ErrBadRequest).Error(), ShouldEqual, "api.op: bad request")
		})
	})
}

package api

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/bigyanadk07/BugTracker"
	"github.com/bigyanadk07/BugTracker/auth"
	"github.com/bigyanadk07/BugTracker/config"
	"github.com/bigyanadk07/BugTracker/model"
	"github.com/bigyanadk07/BugTracker/store/memstore"
)

type discardResponse struct {
	header http.Header
}

func (d *discardResponse) Header() http.Header {
	if d.header == nil {
		d.header = make(http.Header)
	}
	return d.header
}

func (d *discardResponse) Write(p []byte) (int, error) {
	return len(p), nil
}

func (d *discardResponse) WriteHeader(int) {}

func BenchmarkListBugs(b *testing.B) {
	ctx := context.Background()
	mem := memstore.New()
	user, err := mem.CreateUser(ctx, model.User{Name: "bench", Email: "bench@example.com", Role: bugtracker.RoleUser})
	if err != nil {
		b.Fatal(err)
	}
	priorities := []model.Priority{model.PriorityLow, model.PriorityMedium, model.PriorityHigh}
	for i := 0; i < 500; i++ {
		_, err := mem.Insert(ctx, model.Bug{
			Title:     "bug",
			Priority:  priorities[i%len(priorities)],
			Status:    model.StatusOpen,
			CreatedBy: user.ID,
		})
		if err != nil {
			b.Fatal(err)
		}
	}

	codec, _ := auth.NewTokenCodec([]byte("bench-secret-0123456789"), time.Hour)
	token, _ := codec.Issue(user.Principal(), time.Now())
	server, err := New(Options{Bugs: mem, Users: mem, Codec: codec})
	if err != nil {
		b.Fatal(err)
	}
	cfg := config.Default()
	cfg.Env = config.EnvTest
	app := NewApp(cfg, slog.New(slog.NewTextHandler(io.Discard, nil)), server, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/bugs?priority[in]=High,Low&sort=-createdAt,title&limit=25&page=3", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	writer := &discardResponse{}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		app.ServeHTTP(writer, req)
	}
}

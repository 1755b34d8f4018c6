package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"

	"github.com/hubenschmidt/interview-coach/internal/env"
	"github.com/hubenschmidt/interview-coach/internal/generate"
	"github.com/hubenschmidt/interview-coach/internal/interview"
	"github.com/hubenschmidt/interview-coach/internal/store"
)

// systemUser owns the seeded catalog so it shows up for every real user.
var systemUser = interview.User{ID: "system", Name: "Interview Coach", Email: "catalog@interview-coach.local"}

// seedInterview is one catalog file.
type seedInterview struct {
	Role       string   `json:"role"`
	Level      string   `json:"level"`
	Type       string   `json:"type"`
	Techstack  []string `json:"techstack"`
	Questions  []string `json:"questions"`
	CoverImage string   `json:"coverImage"`
}

func main() {
	_ = godotenv.Load()

	dir := flag.String("dir", "", "directory containing interview .json files to seed")
	databaseURL := flag.String("database-url", env.Str("DATABASE_URL", ""), "Postgres connection string")
	flag.Parse()

	if *dir == "" || *databaseURL == "" {
		fmt.Fprintln(os.Stderr, "usage: seed --dir ./samples/interviews/ [--database-url postgres://...]")
		os.Exit(1)
	}

	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, nil)))

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	docs, err := store.OpenPostgres(ctx, *databaseURL)
	if err != nil {
		slog.Error("open store", "error", err)
		os.Exit(1)
	}
	defer docs.Close()

	n, err := seed(ctx, docs, *dir, time.Now().UTC())
	if err != nil {
		slog.Error("seed", "error", err)
		os.Exit(1)
	}
	slog.Info("done", "interviews", n)
}

// seed loads every *.json file in dir as a finalized interview. It does
// nothing when the catalog already holds finalized interviews.
func seed(ctx context.Context, s store.Store, dir string, now time.Time) (int, error) {
	count, err := s.CountFinalizedInterviews(ctx)
	if err != nil {
		return 0, fmt.Errorf("count interviews: %w", err)
	}
	if count > 0 {
		slog.Info("catalog already seeded, skipping", "interviews", count)
		return 0, nil
	}

	files, err := filepath.Glob(filepath.Join(dir, "*.json"))
	if err != nil {
		return 0, fmt.Errorf("glob files: %w", err)
	}
	if len(files) == 0 {
		return 0, fmt.Errorf("no .json files found in %s", dir)
	}

	if err = ensureSystemUser(ctx, s); err != nil {
		return 0, err
	}

	var total int
	for i, f := range files {
		iv, loadErr := loadInterview(f)
		if loadErr != nil {
			slog.Error("load file", "file", f, "error", loadErr)
			continue
		}
		iv.CreatedAt = now.Add(time.Duration(i) * time.Second)
		if err = s.CreateInterview(ctx, iv); err != nil {
			return total, fmt.Errorf("store %s: %w", f, err)
		}
		total++
		slog.Info("seeded", "file", f, "interview_id", iv.ID, "questions", len(iv.Questions))
	}
	return total, nil
}

func ensureSystemUser(ctx context.Context, s store.Store) error {
	_, err := s.GetUser(ctx, systemUser.ID)
	if err == nil {
		return nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return fmt.Errorf("get system user: %w", err)
	}
	if err = s.CreateUser(ctx, systemUser); err != nil {
		return fmt.Errorf("create system user: %w", err)
	}
	return nil
}

func loadInterview(path string) (interview.Interview, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return interview.Interview{}, err
	}
	var in seedInterview
	if err = json.Unmarshal(data, &in); err != nil {
		return interview.Interview{}, fmt.Errorf("decode: %w", err)
	}
	if strings.TrimSpace(in.Role) == "" || len(in.Questions) == 0 {
		return interview.Interview{}, errors.New("role and questions are required")
	}
	cover := in.CoverImage
	if cover == "" {
		cover = generate.CoverImages[0]
	}
	techstack := in.Techstack
	if techstack == nil {
		techstack = []string{}
	}
	return interview.Interview{
		ID:         uuid.NewString(),
		UserID:     systemUser.ID,
		Role:       strings.TrimSpace(in.Role),
		Level:      strings.TrimSpace(in.Level),
		Type:       strings.TrimSpace(in.Type),
		Techstack:  techstack,
		Questions:  in.Questions,
		Finalized:  true,
		CoverImage: cover,
	}, nil
}

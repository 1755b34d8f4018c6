// Package dashboard assembles the home view: the user's interviews and the
// catalog of others' finalized interviews.
package dashboard

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/hubenschmidt/interview-coach/internal/interview"
	"github.com/hubenschmidt/interview-coach/internal/store"
)

// Placeholder texts shown when a section is empty.
const (
	NoPastInterviews      = "You have not taken any interviews yet"
	NoAvailableInterviews = "There are no interviews available"
)

// Section is one list of interview cards.
type Section struct {
	Interviews  []interview.Interview `json:"interviews"`
	Placeholder string                `json:"placeholder,omitempty"`
}

// View is the dashboard payload.
type View struct {
	User      *interview.User `json:"user"`
	Past      Section         `json:"past"`
	Available Section         `json:"available"`
}

// Builder reads dashboard data from the store.
type Builder struct {
	store store.Store
	limit int
}

// NewBuilder creates a builder. limit <= 0 uses store.DefaultLatestLimit.
func NewBuilder(s store.Store, limit int) *Builder {
	if limit <= 0 {
		limit = store.DefaultLatestLimit
	}
	return &Builder{store: s, limit: limit}
}

// Build returns the view for user. A nil user gets both placeholders.
func (b *Builder) Build(ctx context.Context, user *interview.User) (View, error) {
	var past, latest []interview.Interview

	if user != nil {
		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() error {
			var err error
			past, err = b.store.ListInterviewsByUser(gctx, user.ID)
			if err != nil {
				return fmt.Errorf("list user interviews: %w", err)
			}
			return nil
		})
		g.Go(func() error {
			var err error
			latest, err = b.store.ListLatestInterviews(gctx, user.ID, b.limit)
			if err != nil {
				return fmt.Errorf("list latest interviews: %w", err)
			}
			return nil
		})
		if err := g.Wait(); err != nil {
			return View{}, err
		}
	}

	return View{
		User:      user,
		Past:      section(past, NoPastInterviews),
		Available: section(latest, NoAvailableInterviews),
	}, nil
}

func section(items []interview.Interview, placeholder string) Section {
	if len(items) == 0 {
		return Section{Interviews: []interview.Interview{}, Placeholder: placeholder}
	}
	return Section{Interviews: items}
}

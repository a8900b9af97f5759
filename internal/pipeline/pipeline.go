// Package pipeline runs the export and membership stages in order over one
// authenticated messaging session.
package pipeline

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/gnomegl/wagroups/internal/config"
	"github.com/gnomegl/wagroups/internal/export"
	"github.com/gnomegl/wagroups/internal/filter"
	"github.com/gnomegl/wagroups/internal/groups"
	"github.com/gnomegl/wagroups/internal/mutate"
	"github.com/gnomegl/wagroups/internal/pacing"
	"github.com/gnomegl/wagroups/internal/types"
	"go.uber.org/zap"
)

// Messenger is everything the pipeline asks of the messaging client.
type Messenger interface {
	groups.InviteSource
	mutate.GroupMutator
	SelfID() string
	Chats(ctx context.Context) ([]types.Chat, error)
}

// Collector holds what a run has produced so far. Each stage appends to it;
// on error the caller still sees the stages that completed.
type Collector struct {
	Chats    []types.Chat
	Groups   []types.Chat
	Admin    []types.Chat
	Details  []types.GroupDetail
	Filtered []types.GroupDetail
	Results  []types.MutationResult
	Files    []string
}

type Runner struct {
	Client   Messenger
	Config   *config.Config
	Filter   *filter.Filter
	Reporter *export.Reporter
	Pacer    *pacing.Pacer
	Out      io.Writer
	Log      *zap.Logger

	// NewProgress returns a progress sink for max pairings; nil disables it.
	NewProgress func(max int) mutate.Progress

	Now func() time.Time
}

// Export enumerates the admin groups, collects their details and writes the
// group reports followed by the keyword-filtered reports.
func (r *Runner) Export(ctx context.Context) (*Collector, error) {
	c := &Collector{}
	start := r.now()

	r.printf("Loading chats...\n")
	chats, err := r.Client.Chats(ctx)
	if err != nil {
		return c, fmt.Errorf("error loading chats: %w", err)
	}
	c.Chats = chats
	r.printf("✓ Loaded %d total chats in %.1f seconds\n\n", len(chats), r.now().Sub(start).Seconds())

	r.printf("Filtering groups...\n")
	c.Groups = groups.Enumerate(chats)
	r.printf("✓ Found %d groups\n\n", len(c.Groups))

	selfID := r.Client.SelfID()
	r.log().Debug("resolved identity", zap.String("self", selfID))
	c.Admin = groups.AdminGroups(c.Groups, selfID)
	r.printf("✓ Found %d groups where you are admin\n\n", len(c.Admin))

	collector := &groups.Collector{
		Invites: r.Client,
		Out:     r.Out,
		Log:     r.log(),
		Timeout: r.Config.InviteTimeout,
	}
	details, err := collector.Collect(ctx, c.Admin)
	if err != nil {
		return c, err
	}
	c.Details = details

	files, err := r.Reporter.WriteGroups(details)
	c.Files = append(c.Files, files...)
	if err != nil {
		return c, err
	}

	stats := groups.Summarize(details)
	r.printf("\n=== SUMMARY ===\n")
	r.printf("Total Groups: %d\n", len(c.Groups))
	r.printf("Groups where you are admin: %d\n", stats.Groups)
	r.printf("Successfully fetched invite links: %d\n", stats.InviteLinks)
	r.printf("Total participants across admin groups: %d\n", stats.TotalParticipants)
	r.printf("\nTotal processing time: %.1f seconds\n", r.now().Sub(start).Seconds())

	r.printf("\n=== FILTERING GROUPS BY KEYWORDS ===\n")
	r.printf("Keywords: %s\n\n", strings.Join(r.Config.Keywords, ", "))
	c.Filtered = r.Filter.Apply(details)
	r.printf("Found %d groups matching keywords\n\n", len(c.Filtered))
	if len(c.Filtered) == 0 {
		return c, nil
	}

	files, err = r.Reporter.WriteFiltered(c.Filtered)
	c.Files = append(c.Files, files...)
	return c, err
}

// Run performs Export and then ensures every phone number is an admin of
// every filtered group. The results report is written only when the
// mutation stage ran to completion.
func (r *Runner) Run(ctx context.Context, phones []string) (*Collector, error) {
	c, err := r.Export(ctx)
	if err != nil {
		return c, err
	}
	if len(c.Filtered) == 0 {
		r.printf("No groups found matching the specified keywords.\n")
		return c, nil
	}

	r.printf("\n=== ADDING DEFAULT PARTICIPANTS TO FILTERED GROUPS ===\n")
	r.printf("Adding %d default participants to %d groups...\n\n", len(phones), len(c.Filtered))

	m := &mutate.Mutator{
		Client: r.Client,
		Pacer:  r.Pacer,
		Out:    r.Out,
		Log:    r.log(),
	}
	if r.NewProgress != nil {
		m.Progress = r.NewProgress(len(phones) * len(c.Filtered))
	}

	results, err := m.Run(ctx, phones, c.Filtered, c.Admin)
	c.Results = results
	if err != nil {
		r.log().Warn("mutation interrupted", zap.Int("completed", len(results)), zap.Error(err))
		return c, err
	}

	path, err := r.Reporter.WriteResults(results)
	if err != nil {
		return c, err
	}
	c.Files = append(c.Files, path)

	mutate.Summarize(results, phones).Print(r.out())
	r.printf("\nDetailed results saved to %s\n", path)
	return c, nil
}

func (r *Runner) now() time.Time {
	if r.Now != nil {
		return r.Now()
	}
	return time.Now()
}

func (r *Runner) log() *zap.Logger {
	if r.Log == nil {
		return zap.NewNop()
	}
	return r.Log
}

func (r *Runner) out() io.Writer {
	if r.Out == nil {
		return io.Discard
	}
	return r.Out
}

func (r *Runner) printf(format string, args ...interface{}) {
	fmt.Fprintf(r.out(), format, args...)
}

package groups

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/gnomegl/wagroups/internal/types"
	"github.com/samber/lo"
	"go.uber.org/zap"
)

const (
	UnnamedGroup     = "Unnamed Group"
	NoDescription    = "No description"
	Unknown          = "Unknown"
	LinkNotAvailable = "Not available"
	InviteLinkPrefix = "https://chat.whatsapp.com/"
	createdAtLayout  = "2006-01-02 15:04:05"
)

// InviteSource fetches the current invite code of a group.
type InviteSource interface {
	InviteCode(ctx context.Context, groupID string) (string, error)
}

// Enumerate keeps the group chats in source order.
func Enumerate(chats []types.Chat) []types.Chat {
	return lo.Filter(chats, func(c types.Chat, _ int) bool {
		return c.IsGroup
	})
}

// AdminGroups keeps the groups in which selfID is a participant with admin
// rights. Participant entries without an identifier never match.
func AdminGroups(groups []types.Chat, selfID string) []types.Chat {
	return lo.Filter(groups, func(g types.Chat, _ int) bool {
		if selfID == "" {
			return false
		}
		p, ok := g.Participant(selfID)
		return ok && p.IsAdmin
	})
}

type Collector struct {
	Invites InviteSource
	Out     io.Writer
	Log     *zap.Logger

	// Timeout bounds each invite code request; zero means no bound.
	Timeout time.Duration

	// Location renders creation timestamps; nil means time.Local.
	Location *time.Location
}

// Collect builds a detail record per admin group, sequentially. A failed
// invite code lookup is recorded as LinkNotAvailable and does not stop the run.
func (c *Collector) Collect(ctx context.Context, admin []types.Chat) ([]types.GroupDetail, error) {
	log := c.Log
	if log == nil {
		log = zap.NewNop()
	}

	details := make([]types.GroupDetail, 0, len(admin))
	for i, g := range admin {
		if err := ctx.Err(); err != nil {
			return details, err
		}

		name := lo.Ternary(g.Name != "", g.Name, UnnamedGroup)
		c.printf("Processing group %d/%d: %s\n", i+1, len(admin), name)

		link, err := c.inviteLink(ctx, g.ID)
		if err != nil {
			if ctx.Err() != nil {
				return details, ctx.Err()
			}
			log.Warn("invite link unavailable", zap.String("group", g.ID), zap.Error(err))
			c.printf("  ✗ Could not get invite link: %v\n", err)
		} else {
			c.printf("  ✓ Got invite link\n")
		}

		d := Detail(g, link, c.Location)
		details = append(details, d)

		c.printf("  Name: %s\n", d.Name)
		c.printf("  ID: %s\n", d.ID)
		c.printf("  Participants: %d (%d admins)\n", d.ParticipantsCount, d.AdminCount)
		c.printf("  Invite Link: %s\n", d.InviteLink)
		c.printf("-----------------------------------\n\n")
	}
	return details, nil
}

func (c *Collector) inviteLink(ctx context.Context, groupID string) (string, error) {
	if c.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.Timeout)
		defer cancel()
	}

	code, err := c.Invites.InviteCode(ctx, groupID)
	if err != nil {
		return LinkNotAvailable, err
	}
	if code == "" {
		return LinkNotAvailable, fmt.Errorf("empty invite code")
	}
	return InviteLinkPrefix + strings.TrimPrefix(code, InviteLinkPrefix), nil
}

// Detail normalizes a group snapshot into its report record.
func Detail(g types.Chat, inviteLink string, loc *time.Location) types.GroupDetail {
	if loc == nil {
		loc = time.Local
	}

	participants := make([]types.ParticipantDetail, 0, len(g.Participants))
	for _, p := range g.Participants {
		if p.ID == "" {
			continue
		}
		participants = append(participants, types.ParticipantDetail{
			ID:           p.ID,
			Number:       p.Number(),
			IsAdmin:      p.IsAdmin,
			IsSuperAdmin: p.IsSuperAdmin,
		})
	}

	createdAt := Unknown
	if g.CreatedAt > 0 {
		createdAt = time.Unix(g.CreatedAt, 0).In(loc).Format(createdAtLayout)
	}

	return types.GroupDetail{
		ID:                g.ID,
		Name:              lo.Ternary(g.Name != "", g.Name, UnnamedGroup),
		CreatedAt:         createdAt,
		Owner:             lo.Ternary(g.Owner != "", g.Owner, Unknown),
		Description:       lo.Ternary(g.Description != "", g.Description, NoDescription),
		ParticipantsCount: len(participants),
		AdminCount:        lo.CountBy(participants, func(p types.ParticipantDetail) bool { return p.IsAdmin }),
		InviteLink:        inviteLink,
		Participants:      participants,
		IsArchived:        g.Archived,
		IsMuted:           g.Muted,
		IsPinned:          g.Pinned,
		UnreadCount:       g.UnreadCount,
	}
}

type Stats struct {
	Groups            int
	InviteLinks       int
	TotalParticipants int
}

func Summarize(details []types.GroupDetail) Stats {
	return Stats{
		Groups:            len(details),
		InviteLinks:       lo.CountBy(details, func(d types.GroupDetail) bool { return d.InviteLink != LinkNotAvailable }),
		TotalParticipants: lo.SumBy(details, func(d types.GroupDetail) int { return d.ParticipantsCount }),
	}
}

func (c *Collector) printf(format string, args ...interface{}) {
	if c.Out != nil {
		fmt.Fprintf(c.Out, format, args...)
	}
}

package mutate

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/gnomegl/wagroups/internal/pacing"
	"github.com/gnomegl/wagroups/internal/types"
	"go.uber.org/zap"
)

const (
	StatusAlreadyAdmin     = "Already an admin"
	StatusPromoted         = "Promoted to admin"
	StatusAddedPromoted    = "Added and promoted to admin"
	StatusAddedNotPromoted = "Added but not promoted"
	StatusAlreadyMember    = "Already a member"
	StatusGroupNotFound    = "Group object not found"
	StatusNoResponse       = "No response from add operation"
	StatusUnknownError     = "Unknown error"
	promoteFailedPrefix    = "Promote failed: "
	codeAdded              = 200
	codeAlreadyParticipant = 409
)

// GroupMutator is the subset of the messaging client the mutation stage needs.
type GroupMutator interface {
	RefreshGroup(ctx context.Context, groupID string) (types.Chat, error)
	AddParticipants(ctx context.Context, groupID string, participantIDs []string) (map[string]types.AddOutcome, error)
	PromoteParticipants(ctx context.Context, groupID string, participantIDs []string) error
}

// Progress is notified once per finished pairing.
type Progress interface {
	Add(n int) error
}

type Mutator struct {
	Client   GroupMutator
	Pacer    *pacing.Pacer
	Out      io.Writer
	Log      *zap.Logger
	Progress Progress
}

// Run ensures every phone number is a member and admin of every target group.
// Targets are resolved against live, the groups enumerated for this run.
// Pairings run phone-major, group-minor; each appends exactly one result.
// When ctx ends, Run returns the results gathered so far with ctx.Err().
func (m *Mutator) Run(ctx context.Context, phones []string, targets []types.GroupDetail, live []types.Chat) ([]types.MutationResult, error) {
	byID := make(map[string]types.Chat, len(live))
	for _, g := range live {
		byID[g.ID] = g
	}

	results := make([]types.MutationResult, 0, len(phones)*len(targets))
	for pi, phone := range phones {
		m.printf("\n--- Processing participant: %s ---\n\n", phone)

		for gi, target := range targets {
			m.printf("Group %d/%d: %s\n", gi+1, len(targets), target.Name)

			group, found := byID[target.ID]
			var res types.MutationResult
			if found {
				res = m.ensureAdmin(ctx, phone, target.Name, group)
			} else {
				m.printf("  ✗ Could not find group object\n")
				res = failure(phone, target.Name, StatusGroupNotFound)
			}
			if err := ctx.Err(); err != nil {
				return results, err
			}

			results = append(results, res)
			m.log().Debug("pairing done",
				zap.String("phone", phone),
				zap.String("group", target.ID),
				zap.String("status", res.Status),
				zap.Bool("success", res.Success))
			if m.Progress != nil {
				_ = m.Progress.Add(1)
			}

			if err := m.Pacer.Pause(ctx, pacing.BetweenGroups); err != nil {
				return results, err
			}
		}

		if pi < len(phones)-1 {
			m.printf("\nWaiting before processing next participant...\n")
			if err := m.Pacer.Pause(ctx, pacing.BetweenPhones); err != nil {
				return results, err
			}
		}
	}
	return results, nil
}

func (m *Mutator) ensureAdmin(ctx context.Context, phone, groupName string, group types.Chat) types.MutationResult {
	participantID := types.UserID(phone)

	if fresh, err := m.Client.RefreshGroup(ctx, group.ID); err != nil {
		m.log().Debug("group refresh failed", zap.String("group", group.ID), zap.Error(err))
	} else {
		group = fresh
	}

	if existing, ok := group.Participant(participantID); ok {
		if existing.IsAdmin {
			m.printf("  ⚠ %s: Already an admin\n", phone)
			return success(phone, groupName, StatusAlreadyAdmin)
		}
		return m.promoteMember(ctx, phone, groupName, group.ID, participantID)
	}
	return m.add(ctx, phone, groupName, group.ID, participantID)
}

func (m *Mutator) promoteMember(ctx context.Context, phone, groupName, groupID, participantID string) types.MutationResult {
	err := m.promote(ctx, groupID, participantID)
	switch {
	case err == nil:
		m.printf("  ✓ %s: Promoted to admin\n", phone)
		return success(phone, groupName, StatusPromoted)
	case isAlreadyAdmin(err):
		m.printf("  ⚠ %s: Already an admin\n", phone)
		return success(phone, groupName, StatusAlreadyAdmin)
	default:
		msg := errorMessage(err)
		m.printf("  ⚠ %s: Could not promote (%s)\n", phone, msg)
		return failure(phone, groupName, promoteFailedPrefix+msg)
	}
}

func (m *Mutator) add(ctx context.Context, phone, groupName, groupID, participantID string) types.MutationResult {
	if err := m.Pacer.Acquire(ctx); err != nil {
		return failure(phone, groupName, errorMessage(err))
	}

	outcomes, err := m.Client.AddParticipants(ctx, groupID, []string{participantID})
	if err != nil {
		msg := errorMessage(err)
		m.printf("  ⚠ %s: %s\n", phone, msg)
		return failure(phone, groupName, msg)
	}

	outcome, ok := outcomes[participantID]
	if !ok {
		m.printf("  ⚠ %s: No response from add operation\n", phone)
		return failure(phone, groupName, StatusNoResponse)
	}

	switch outcome.Code {
	case codeAdded:
		m.printf("  ✓ %s: Added successfully\n", phone)
		if err := m.Pacer.Pause(ctx, pacing.AfterAdd); err != nil {
			return success(phone, groupName, StatusAddedNotPromoted)
		}
		if err := m.promote(ctx, groupID, participantID); err != nil {
			m.log().Warn("promotion after add failed", zap.String("group", groupID), zap.String("phone", phone), zap.Error(err))
			m.printf("  ⚠ %s: Added but could not promote\n", phone)
			return success(phone, groupName, StatusAddedNotPromoted)
		}
		m.printf("  ✓ %s: Promoted to admin\n", phone)
		return success(phone, groupName, StatusAddedPromoted)
	case codeAlreadyParticipant:
		m.printf("  ⚠ %s: Already a member\n", phone)
		return success(phone, groupName, StatusAlreadyMember)
	default:
		msg := outcome.Message
		if msg == "" {
			msg = fmt.Sprintf("Error code: %d", outcome.Code)
		}
		m.printf("  ⚠ %s: %s\n", phone, msg)
		return failure(phone, groupName, msg)
	}
}

func (m *Mutator) promote(ctx context.Context, groupID, participantID string) error {
	if err := m.Pacer.Acquire(ctx); err != nil {
		return err
	}
	return m.Client.PromoteParticipants(ctx, groupID, []string{participantID})
}

// isAlreadyAdmin treats any promotion error mentioning "admin" as the
// participant already holding the rank. The provider exposes no dedicated
// code for this case.
func isAlreadyAdmin(err error) bool {
	return strings.Contains(err.Error(), "admin")
}

func errorMessage(err error) string {
	if msg := err.Error(); msg != "" {
		return msg
	}
	return StatusUnknownError
}

func success(phone, group, status string) types.MutationResult {
	return types.MutationResult{Phone: phone, Group: group, Status: status, Success: true}
}

func failure(phone, group, status string) types.MutationResult {
	return types.MutationResult{Phone: phone, Group: group, Status: status, Success: false}
}

func (m *Mutator) log() *zap.Logger {
	if m.Log == nil {
		return zap.NewNop()
	}
	return m.Log
}

func (m *Mutator) printf(format string, args ...interface{}) {
	if m.Out != nil {
		fmt.Fprintf(m.Out, format, args...)
	}
}

package whatsapp

import (
	"fmt"
	"strings"
	"time"

	"github.com/gnomegl/wagroups/internal/types"
	watypes "go.mau.fi/whatsmeow/types"
)

// userID serializes a user JID as <number>@c.us.
func userID(jid watypes.JID) string {
	if jid.IsEmpty() {
		return ""
	}
	if jid.Server != watypes.DefaultUserServer {
		return jid.ToNonAD().String()
	}
	return jid.User + types.UserSuffix
}

// parseUserID is the inverse of userID for phone-number identifiers.
func parseUserID(id string) (watypes.JID, error) {
	number, ok := strings.CutSuffix(id, types.UserSuffix)
	if !ok || number == "" {
		return watypes.JID{}, fmt.Errorf("invalid participant id %q", id)
	}
	return watypes.NewJID(number, watypes.DefaultUserServer), nil
}

// phoneJID prefers the phone-number JID of participants addressed by a
// hidden identifier.
func phoneJID(p watypes.GroupParticipant) watypes.JID {
	if p.JID.Server == watypes.HiddenUserServer && !p.PhoneNumber.IsEmpty() {
		return p.PhoneNumber
	}
	return p.JID
}

func participant(p watypes.GroupParticipant) types.Participant {
	return types.Participant{
		ID:           userID(phoneJID(p)),
		IsAdmin:      p.IsAdmin,
		IsSuperAdmin: p.IsSuperAdmin,
	}
}

func chatFromGroup(info *watypes.GroupInfo, settings watypes.LocalChatSettings, now time.Time) types.Chat {
	chat := types.Chat{
		ID:          info.JID.String(),
		Name:        info.Name,
		IsGroup:     true,
		Owner:       userID(info.OwnerJID),
		Description: info.Topic,
		Archived:    settings.Archived,
		Pinned:      settings.Pinned,
		Muted:       settings.MutedUntil.After(now),
	}
	if !info.GroupCreated.IsZero() {
		chat.CreatedAt = info.GroupCreated.Unix()
	}

	chat.Participants = make([]types.Participant, 0, len(info.Participants))
	for _, p := range info.Participants {
		chat.Participants = append(chat.Participants, participant(p))
	}
	return chat
}

// addOutcome maps a per-participant add answer onto HTTP-like codes: the
// library reports success as 0.
func addOutcome(p watypes.GroupParticipant) types.AddOutcome {
	switch {
	case p.Error == 0:
		return types.AddOutcome{Code: 200}
	case p.AddRequest != nil:
		return types.AddOutcome{Code: p.Error, Message: "Invite required by participant privacy settings"}
	default:
		return types.AddOutcome{Code: p.Error}
	}
}

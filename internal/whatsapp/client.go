package whatsapp

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/gnomegl/wagroups/internal/database"
	"github.com/gnomegl/wagroups/internal/groups"
	"github.com/gnomegl/wagroups/internal/session"
	"github.com/gnomegl/wagroups/internal/types"
	"go.mau.fi/whatsmeow"
	watypes "go.mau.fi/whatsmeow/types"
	"go.mau.fi/whatsmeow/types/events"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

// Client adapts a whatsmeow client to the pipeline's collaborator interfaces.
type Client struct {
	wa      *whatsmeow.Client
	db      *database.DB
	machine *session.Machine
	log     *zap.Logger
	now     func() time.Time
}

// New opens the device store at dbPath and prepares an unconnected client.
func New(ctx context.Context, dbPath string, log *zap.Logger) (*Client, error) {
	if log == nil {
		log = zap.NewNop()
	}

	db, err := database.New(ctx, dbPath, NewLogger(log, "store"))
	if err != nil {
		return nil, err
	}

	device, err := db.Device(ctx)
	if err != nil {
		db.Close()
		return nil, err
	}

	wa := whatsmeow.NewClient(device, NewLogger(log, "client"))
	// A dropped connection is terminal for the session machine.
	wa.EnableAutoReconnect = false

	c := &Client{
		wa:      wa,
		db:      db,
		machine: session.New(),
		log:     log,
		now:     time.Now,
	}
	wa.AddEventHandler(c.handleEvent)
	return c, nil
}

// Session exposes the login state machine driven by client events.
func (c *Client) Session() *session.Machine {
	return c.machine
}

// Paired reports whether the device store holds a paired session.
func (c *Client) Paired() bool {
	return c.wa.Store.ID != nil
}

// Connect opens the connection. An unpaired device first subscribes to QR
// challenges, which reach the session machine.
func (c *Client) Connect(ctx context.Context) error {
	if !c.Paired() {
		qrChan, err := c.wa.GetQRChannel(ctx)
		if err != nil {
			return fmt.Errorf("failed to get QR channel: %w", err)
		}
		go c.pumpQR(qrChan)
	}

	if err := c.wa.Connect(); err != nil {
		return fmt.Errorf("failed to connect: %w", err)
	}
	return nil
}

func (c *Client) pumpQR(items <-chan whatsmeow.QRChannelItem) {
	for item := range items {
		switch item.Event {
		case whatsmeow.QRChannelEventCode:
			c.machine.Notify(session.QR(item.Code))
		case whatsmeow.QRChannelSuccess.Event:
			c.log.Info("QR code scanned")
		case whatsmeow.QRChannelEventError:
			c.machine.Notify(session.AuthFailure(fmt.Sprintf("pairing error: %v", item.Error)))
		default:
			c.machine.Notify(session.AuthFailure("pairing " + item.Event))
		}
	}
}

func (c *Client) handleEvent(evt interface{}) {
	switch v := evt.(type) {
	case *events.Connected:
		c.log.Info("connected")
		c.machine.Notify(session.ReadyEvent())
	case *events.PairSuccess:
		c.log.Info("paired", zap.String("id", v.ID.String()), zap.String("platform", v.Platform))
	case *events.LoggedOut:
		c.machine.Notify(session.AuthFailure("logged out: " + v.Reason.String()))
	case *events.ConnectFailure:
		c.machine.Notify(session.AuthFailure(fmt.Sprintf("connect failure: %s %s", v.Reason.String(), v.Message)))
	case *events.TemporaryBan:
		c.machine.Notify(session.AuthFailure(v.String()))
	case *events.StreamReplaced:
		c.machine.Notify(session.Disconnect("stream replaced by another client"))
	case *events.Disconnected:
		c.machine.Notify(session.Disconnect("connection closed"))
	}
}

// SelfID is the serialized identity of the logged-in account.
func (c *Client) SelfID() string {
	if c.wa.Store.ID == nil {
		return ""
	}
	return userID(c.wa.Store.ID.ToNonAD())
}

// Chats returns the joined groups. Direct chats are not enumerable through
// this client and are never returned.
func (c *Client) Chats(ctx context.Context) ([]types.Chat, error) {
	infos, err := c.wa.GetJoinedGroups(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get joined groups: %w", err)
	}

	chats := make([]types.Chat, 0, len(infos))
	for _, info := range infos {
		if info == nil {
			continue
		}
		chats = append(chats, c.chat(ctx, info))
	}
	return chats, nil
}

func (c *Client) chat(ctx context.Context, info *watypes.GroupInfo) types.Chat {
	settings, err := c.wa.Store.ChatSettings.GetChatSettings(ctx, info.JID)
	if err != nil {
		c.log.Debug("chat settings unavailable", zap.String("group", info.JID.String()), zap.Error(err))
	}
	return chatFromGroup(info, settings, c.now())
}

func (c *Client) InviteCode(ctx context.Context, groupID string) (string, error) {
	jid, err := watypes.ParseJID(groupID)
	if err != nil {
		return "", fmt.Errorf("invalid group id %q: %w", groupID, err)
	}

	link, err := c.wa.GetGroupInviteLink(ctx, jid, false)
	if err != nil {
		return "", err
	}
	return strings.TrimPrefix(link, groups.InviteLinkPrefix), nil
}

func (c *Client) RefreshGroup(ctx context.Context, groupID string) (types.Chat, error) {
	jid, err := watypes.ParseJID(groupID)
	if err != nil {
		return types.Chat{}, fmt.Errorf("invalid group id %q: %w", groupID, err)
	}

	info, err := c.wa.GetGroupInfo(ctx, jid)
	if err != nil {
		return types.Chat{}, fmt.Errorf("failed to get group info: %w", err)
	}
	return c.chat(ctx, info), nil
}

func (c *Client) AddParticipants(ctx context.Context, groupID string, participantIDs []string) (map[string]types.AddOutcome, error) {
	results, err := c.updateParticipants(ctx, groupID, participantIDs, whatsmeow.ParticipantChangeAdd)
	if err != nil {
		return nil, err
	}

	outcomes := make(map[string]types.AddOutcome, len(results))
	for _, r := range results {
		id := userID(phoneJID(r))
		if len(participantIDs) == 1 && len(results) == 1 {
			id = participantIDs[0]
		}
		outcomes[id] = addOutcome(r)
	}
	return outcomes, nil
}

func (c *Client) PromoteParticipants(ctx context.Context, groupID string, participantIDs []string) error {
	results, err := c.updateParticipants(ctx, groupID, participantIDs, whatsmeow.ParticipantChangePromote)
	if err != nil {
		return err
	}

	var errs error
	for _, r := range results {
		if r.Error != 0 {
			errs = multierr.Append(errs, fmt.Errorf("promote %s: error code %d", userID(phoneJID(r)), r.Error))
		}
	}
	return errs
}

func (c *Client) updateParticipants(ctx context.Context, groupID string, participantIDs []string, change whatsmeow.ParticipantChange) ([]watypes.GroupParticipant, error) {
	group, err := watypes.ParseJID(groupID)
	if err != nil {
		return nil, fmt.Errorf("invalid group id %q: %w", groupID, err)
	}

	jids := make([]watypes.JID, 0, len(participantIDs))
	for _, id := range participantIDs {
		jid, err := parseUserID(id)
		if err != nil {
			return nil, err
		}
		jids = append(jids, jid)
	}

	return c.wa.UpdateGroupParticipants(ctx, group, jids, change)
}

// Close disconnects and releases the device store.
func (c *Client) Close() error {
	c.wa.Disconnect()
	return c.db.Close()
}

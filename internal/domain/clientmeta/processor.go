package clientmeta

import (
	"context"
	"time"

	"github.com/muurk/bridge/internal/bridgeerr"
	"github.com/muurk/bridge/internal/connmgr"
	"github.com/muurk/bridge/internal/wire"
)

// Processor handles client registration, metadata mutation, action
// registration, and action-trigger forwarding. Registration and metadata
// changes delegate entirely to Manager, whose own change hook broadcasts
// the updated client list; Process returns nothing for those, per the
// specification's process(message, sessionId) → message | nothing
// contract.
type Processor struct {
	Manager *connmgr.Manager
}

// New returns a client-metadata domain Processor backed by mgr.
func New(mgr *connmgr.Manager) *Processor {
	return &Processor{Manager: mgr}
}

// Domain implements router.Processor.
func (p *Processor) Domain() wire.Domain { return wire.DomainClientMetadata }

// Process implements router.Processor.
func (p *Processor) Process(ctx context.Context, msg *wire.Message, sessionID string) (*wire.Message, error) {
	switch msg.Type {
	case wire.MsgClientRegister:
		p.Manager.SetClientInfo(sessionID, p.infoFromFields(msg, connmgr.ClientInfo{}))
		return nil, nil
	case wire.MsgClientMetadataUpdate:
		existing, _ := p.Manager.ClientInfo(sessionID)
		p.Manager.SetClientInfo(sessionID, p.infoFromFields(msg, existing))
		return nil, nil
	case wire.MsgClientActionRegister:
		return nil, p.registerAction(msg, sessionID)
	case wire.MsgClientActionTrigger:
		if err := p.triggerAction(msg, sessionID); err != nil {
			return nil, err
		}
		return &wire.Message{Type: wire.MsgAck, RequestID: msg.RequestID, Timestamp: float64(time.Now().UnixMilli())}, nil
	default:
		return nil, bridgeerr.New(bridgeerr.CodeInvalidMessage, "client-metadata processor cannot handle this message type")
	}
}

func (p *Processor) infoFromFields(msg *wire.Message, base connmgr.ClientInfo) connmgr.ClientInfo {
	info := base
	if name := msg.StringField("name"); name != "" {
		info.Name = name
	}
	if role := msg.StringField("role"); role != "" {
		info.Role = connmgr.Role(role)
	}
	if raw, ok := msg.Field("capabilities"); ok {
		if list, ok := raw.([]interface{}); ok {
			caps := make([]string, 0, len(list))
			for _, v := range list {
				if s, ok := v.(string); ok {
					caps = append(caps, s)
				}
			}
			info.Capabilities = caps
		}
	}
	return info
}

func (p *Processor) registerAction(msg *wire.Message, sessionID string) error {
	actionID := msg.StringField("actionId")
	if actionID == "" {
		return bridgeerr.New(bridgeerr.CodeInvalidMessage, "action-register requires a non-empty actionId")
	}
	name := msg.StringField("name")

	info, _ := p.Manager.ClientInfo(sessionID)
	for _, a := range info.Actions {
		if a.ID == actionID {
			return nil
		}
	}
	info.Actions = append(info.Actions, connmgr.ActionDescriptor{ID: actionID, Name: name})
	p.Manager.SetClientInfo(sessionID, info)
	return nil
}

func (p *Processor) triggerAction(msg *wire.Message, sessionID string) error {
	actionID := msg.StringField("actionId")
	targetID := msg.StringField("targetSessionId")

	target, ok := p.Manager.ClientInfo(targetID)
	if !ok {
		return bridgeerr.New(bridgeerr.CodeTargetNotFound, "action-trigger target session is not registered")
	}

	found := false
	for _, a := range target.Actions {
		if a.ID == actionID {
			found = true
			break
		}
	}
	if !found {
		return bridgeerr.New(bridgeerr.CodeActionNotFound, "action-trigger target has not registered this action")
	}

	targetSession, ok := p.Manager.Session(targetID)
	if !ok {
		return bridgeerr.New(bridgeerr.CodeTargetNotFound, "action-trigger target session is no longer connected")
	}

	forward := &wire.Message{
		Type:      wire.MsgClientActionTrigger,
		RequestID: msg.RequestID,
		Timestamp: float64(time.Now().UnixMilli()),
		Fields:    msg.Fields,
	}
	frame, err := wire.Encode(forward)
	if err != nil {
		return bridgeerr.Wrap(bridgeerr.CodeInvalidMessage, "failed to encode forwarded action-trigger", err)
	}
	if err := targetSession.Send(frame); err != nil {
		return bridgeerr.Wrap(bridgeerr.CodeConnectionFailed, "failed to forward action-trigger to target session", err)
	}
	return nil
}

// Package bot adapts chat updates to the patient simulator.  It routes menu
// callbacks, keeps each user's conversation context and hands text messages
// to the active simulation.
package bot

import (
	"context"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"

	"patientsim/internal/core"
)

// UpdateKind tells what the user did.
type UpdateKind string

const (
	KindCommand  UpdateKind = "command"
	KindCallback UpdateKind = "callback"
	KindMessage  UpdateKind = "message"
)

// Update is one incoming chat event.  Data carries the command name or the
// callback data; Text carries a message.
type Update struct {
	UserID    int64      `json:"user_id"`
	ChatID    int64      `json:"chat_id"`
	FirstName string     `json:"first_name,omitempty"`
	Kind      UpdateKind `json:"kind"`
	Data      string     `json:"data,omitempty"`
	Text      string     `json:"text,omitempty"`
}

// Simulator is the part of core.Simulator the dispatcher drives.
type Simulator interface {
	Start(ctx context.Context, conv *core.Conversation, slug string) (core.Reply, error)
	Panel(ctx context.Context, conv *core.Conversation, action string) (core.Reply, error)
	Message(ctx context.Context, conv *core.Conversation, text string) (core.Reply, error)
}

// Dispatcher routes updates.
type Dispatcher struct {
	sim   Simulator
	convs *ConversationStore
}

// NewDispatcher constructs a Dispatcher.
func NewDispatcher(sim Simulator, convs *ConversationStore) *Dispatcher {
	return &Dispatcher{sim: sim, convs: convs}
}

// Handle processes one update and returns the replies to send, possibly
// none.  Updates of one user are handled one at a time; the conversation
// context is saved only when handling succeeds.
func (d *Dispatcher) Handle(ctx context.Context, u Update) ([]core.Reply, error) {
	if u.UserID == 0 {
		return nil, fmt.Errorf("update without user id")
	}
	unlock := d.convs.Lock(u.UserID)
	defer unlock()

	conv := d.convs.Load(u.UserID, u.ChatID)
	reply, err := d.route(ctx, &conv, u)
	if err != nil {
		logrus.WithError(err).WithFields(logrus.Fields{"user": u.UserID, "kind": u.Kind, "data": u.Data}).Error("update failed")
		return nil, err
	}
	d.convs.Save(conv)
	if reply.Empty() {
		return nil, nil
	}
	return []core.Reply{reply}, nil
}

func (d *Dispatcher) route(ctx context.Context, conv *core.Conversation, u Update) (core.Reply, error) {
	switch u.Kind {
	case KindCommand:
		if strings.TrimPrefix(u.Data, "/") == "start" {
			return mainMenu(u.FirstName), nil
		}
		return core.Reply{}, nil
	case KindMessage:
		return d.sim.Message(ctx, conv, u.Text)
	case KindCallback:
		return d.callback(ctx, conv, u)
	default:
		return core.Reply{}, fmt.Errorf("unknown update kind %q", u.Kind)
	}
}

func (d *Dispatcher) callback(ctx context.Context, conv *core.Conversation, u Update) (core.Reply, error) {
	data := u.Data
	switch {
	case data == MenuMain:
		return mainMenu(u.FirstName), nil
	case data == MenuPatient:
		return d.sim.Start(ctx, conv, "")
	case strings.HasPrefix(data, MenuPatient+":"):
		return d.sim.Start(ctx, conv, strings.TrimPrefix(data, MenuPatient+":"))
	case data == core.ActionLabs, data == core.ActionImaging, data == core.ActionExam, data == core.ActionEnd:
		return d.sim.Panel(ctx, conv, data)
	case data == MenuWeek, data == MenuSyllabus, data == MenuIFOM, data == MenuBroadcasts:
		return core.Reply{Text: NotImplemented, Panel: core.BackToMenuPanel()}, nil
	default:
		// Acknowledge silently.
		return core.Reply{}, nil
	}
}

func mainMenu(firstName string) core.Reply {
	return core.Reply{Text: StartMessage(firstName), Panel: MainMenu()}
}

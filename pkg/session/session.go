// Package session implements the inline edit session: at most one record is
// being edited at a time, with its quantity and price staged as strings until
// the operator commits or cancels.
//
// The state machine is the pure function Apply. It never performs I/O;
// instead it returns an Effect describing the network call the caller should
// make. Controller executes those effects against the gateway and store.
package session

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/greg-hellings/stockdash/pkg/gateway"
	"github.com/greg-hellings/stockdash/pkg/inventory"
)

// Field names a staged value.
type Field string

const (
	// FieldQuantity is the staged integer quantity.
	FieldQuantity Field = "quantity"
	// FieldPrice is the staged decimal unit price.
	FieldPrice Field = "price"
)

// ParseField maps user input to a Field.
func ParseField(s string) (Field, error) {
	switch Field(strings.ToLower(strings.TrimSpace(s))) {
	case FieldQuantity, "qty":
		return FieldQuantity, nil
	case FieldPrice:
		return FieldPrice, nil
	default:
		return "", fmt.Errorf("%w: %q (expected quantity or price)", ErrUnknownField, s)
	}
}

var (
	// ErrNotEditing is returned for draft or commit events while idle.
	ErrNotEditing = errors.New("no item is being edited")
	// ErrUnknownField is returned for drafts of fields other than quantity and price.
	ErrUnknownField = errors.New("unknown draft field")
)

// State is the edit session. The zero value is Idle.
type State struct {
	Editing       bool
	Target        string
	DraftQuantity string
	DraftPrice    string
}

// IsEditing reports whether the session is bound to itemName.
func (s State) IsEditing(itemName string) bool {
	return s.Editing && s.Target == itemName
}

// Event is an input to Apply.
type Event interface {
	isEvent()
}

// StartEdit binds the session to Record, replacing any current session.
type StartEdit struct{ Record inventory.Record }

// UpdateDraft stages Value for Field.
type UpdateDraft struct {
	Field Field
	Value string
}

// Commit asks to send the drafts to the server.
type Commit struct{}

// Cancel discards the session.
type Cancel struct{}

// CommitSucceeded reports that the update for ItemName was accepted.
type CommitSucceeded struct{ ItemName string }

// CommitFailed reports that the update for ItemName failed.
type CommitFailed struct {
	ItemName string
	Err      error
}

// SnapshotReplaced reports the records of a freshly swapped store snapshot.
type SnapshotReplaced struct{ Records []inventory.Record }

func (StartEdit) isEvent()        {}
func (UpdateDraft) isEvent()      {}
func (Commit) isEvent()           {}
func (Cancel) isEvent()           {}
func (CommitSucceeded) isEvent()  {}
func (CommitFailed) isEvent()     {}
func (SnapshotReplaced) isEvent() {}

// EffectKind says what the caller must do after Apply.
type EffectKind int

const (
	// EffectNone requires nothing.
	EffectNone EffectKind = iota
	// EffectReject means the event was refused; Effect.Err says why.
	EffectReject
	// EffectUpdate requests an UpdateRecord call with the effect's fields.
	EffectUpdate
	// EffectRefresh requests a store refresh.
	EffectRefresh
)

// Effect describes the side effect requested by a transition.
type Effect struct {
	Kind     EffectKind
	ItemName string
	Quantity string
	Price    string
	Err      error
}

// Apply computes the next state for ev.
func Apply(s State, ev Event) (State, Effect) {
	switch e := ev.(type) {
	case StartEdit:
		return State{
			Editing:       true,
			Target:        e.Record.ItemName,
			DraftQuantity: strconv.Itoa(e.Record.Quantity),
			DraftPrice:    e.Record.Price.String(),
		}, Effect{}

	case UpdateDraft:
		if !s.Editing {
			return s, reject(ErrNotEditing)
		}
		switch e.Field {
		case FieldQuantity:
			s.DraftQuantity = e.Value
		case FieldPrice:
			s.DraftPrice = e.Value
		default:
			return s, reject(fmt.Errorf("%w: %q", ErrUnknownField, e.Field))
		}
		return s, Effect{}

	case Commit:
		if !s.Editing {
			return s, reject(ErrNotEditing)
		}
		if strings.TrimSpace(s.DraftQuantity) == "" || strings.TrimSpace(s.DraftPrice) == "" {
			return s, reject(&gateway.Error{Op: "updateRecord", Kind: gateway.KindValidation, Err: gateway.ErrBlankField})
		}
		return s, Effect{
			Kind:     EffectUpdate,
			ItemName: s.Target,
			Quantity: s.DraftQuantity,
			Price:    s.DraftPrice,
		}

	case Cancel:
		return State{}, Effect{}

	case CommitSucceeded:
		// the operator may have moved on to another row while the update was in flight
		if s.IsEditing(e.ItemName) {
			s = State{}
		}
		return s, Effect{Kind: EffectRefresh}

	case CommitFailed:
		return s, Effect{}

	case SnapshotReplaced:
		if s.Editing && !inventory.Contains(e.Records, s.Target) {
			return State{}, Effect{}
		}
		return s, Effect{}

	default:
		return s, reject(fmt.Errorf("unsupported event %T", ev))
	}
}

func reject(err error) Effect {
	return Effect{Kind: EffectReject, Err: err}
}

package session

import (
	"context"
	"log/slog"
	"sync"

	"github.com/rocketscienceinc/tictactoe-client/internal/apperror"
	"github.com/rocketscienceinc/tictactoe-client/internal/connection"
	"github.com/rocketscienceinc/tictactoe-client/internal/entity"
	"github.com/rocketscienceinc/tictactoe-client/internal/protocol"
)

type eventSource interface {
	Subscribe(handler connection.Handler) func()
}

type roomOpener interface {
	Open(ctx context.Context, roomID string, initial *entity.RoomState) *Mount
}

// Dispatcher applies inbound events to the model and routes rejections to the notices.
type Dispatcher struct {
	logger  *slog.Logger
	model   *Model
	notices *Notices
	opener  roomOpener

	mu          sync.Mutex
	unsubscribe func()
}

// NewDispatcher - opener mounts the room view once the remote seated the player.
func NewDispatcher(logger *slog.Logger, model *Model, notices *Notices, opener roomOpener) *Dispatcher {
	return &Dispatcher{
		logger:  logger.With("component", "dispatcher"),
		model:   model,
		notices: notices,
		opener:  opener,
	}
}

// Attach - subscribes to the source. A dispatcher holds one subscription, attaching again replaces it.
func (that *Dispatcher) Attach(source eventSource) {
	that.mu.Lock()
	defer that.mu.Unlock()

	if that.unsubscribe != nil {
		that.unsubscribe()
	}

	that.unsubscribe = source.Subscribe(that.Handle)
}

// Detach - removes the subscription. Safe to call repeatedly.
func (that *Dispatcher) Detach() {
	that.mu.Lock()
	defer that.mu.Unlock()

	if that.unsubscribe != nil {
		that.unsubscribe()
		that.unsubscribe = nil
	}
}

func (that *Dispatcher) Handle(event protocol.Inbound) {
	log := that.logger.With("method", "Handle", "event", event.EventName())

	switch ev := event.(type) {
	case protocol.ConnectionAck:
		that.model.SetConnected(true)
	case protocol.Disconnected:
		log.Warn("connection lost", "reason", ev.Reason)
		that.model.SetConnected(false)
	case protocol.LivenessAck:
		log.Debug("liveness acknowledged")
	case protocol.RoomCreated:
		that.model.Bind(ev.RoomID)
		that.model.SetAssignment(ev.Assigned)
		that.opener.Open(context.Background(), ev.RoomID, ev.State)
		that.model.SetPending(false)
	case protocol.RoomJoined:
		that.model.Bind(ev.RoomID)
		that.model.SetAssignment(ev.Assigned)
		that.opener.Open(context.Background(), ev.RoomID, nil)
		that.model.SetPending(false)
	case protocol.RoomStateEvent:
		if err := that.model.Replace(ev.State); err != nil {
			log.Error("dropping room state", "roomID", ev.State.RoomID, "error", err)
		}

		that.model.SetPending(false)
	case protocol.GameOver:
		that.model.MarkEnded(ev.Status)
	case protocol.ProtocolError:
		that.reject(log, &apperror.Rejection{Code: ev.Code, Message: ev.Message, Detail: ev.Detail})
	case protocol.IllegalMove:
		that.reject(log, &apperror.Rejection{Code: ev.Code, Message: ev.Message, Detail: ev.Detail})
	case protocol.ConnectError:
		log.Warn("connect refused", "category", apperror.CategoryTransportError, "message", ev.Message)
	case protocol.Unknown:
		log.Error("unexpected event", "payload", string(ev.Payload))
	default:
		log.Error("unhandled event type")
	}
}

func (that *Dispatcher) reject(log *slog.Logger, rejection *apperror.Rejection) {
	log.Info("intent rejected", "code", rejection.Code, "category", rejection.Category(), "message", rejection.Message)

	that.notices.ShowError(rejection)
	that.model.SetPending(false)
}

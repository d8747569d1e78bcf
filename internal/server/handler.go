package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"nhooyr.io/websocket"

	"hostbridge/internal/model"
)

// handlerFunc processes one authenticated request on an open connection.
// Returning an error tears the connection down; request-local failures are
// reported as error responses and return nil.
type handlerFunc func(ctx context.Context, sess *session, req model.Request) error

// session is the per-connection state the handlers operate on.
type session struct {
	conn       *wsConn
	listenerID string
}

func (s *session) respond(ctx context.Context, resp model.Response) error {
	return s.conn.Deliver(ctx, resp)
}

func (s *session) respondError(ctx context.Context, id, subtype, message string, data any) error {
	if data == nil {
		data = map[string]any{}
	}
	return s.respond(ctx, model.Response{
		ID:      id,
		Type:    model.TypeError,
		Subtype: subtype,
		Message: message,
		Data:    data,
	})
}

func (s *Server) handlerTable() map[string]handlerFunc {
	return map[string]handlerFunc{
		model.EventRegisterDataListener:   s.handleRegisterDataListener,
		model.EventUnregisterDataListener: s.handleUnregisterDataListener,
		model.EventGetData:                s.handleGetData,
		model.EventExitApplication:        s.handleExitApplication,
		model.EventKeyboardKeypress:       s.handleKeyboardKeypress,
		model.EventKeyboardText:           s.handleKeyboardText,
		model.EventMediaControl:           s.handleMediaControl,
		model.EventNotification:           s.handleNotification,
		model.EventOpen:                   s.handleOpen,
		model.EventPowerSleep:             s.powerHandler(model.TypePowerSleeping, "Sleeping", func(ctx context.Context) error { return s.actions.Power.Sleep(ctx) }),
		model.EventPowerHibernate:         s.powerHandler(model.TypePowerHibernating, "Hibernating", func(ctx context.Context) error { return s.actions.Power.Hibernate(ctx) }),
		model.EventPowerRestart:           s.powerHandler(model.TypePowerRestarting, "Restarting", func(ctx context.Context) error { return s.actions.Power.Restart(ctx) }),
		model.EventPowerShutdown:          s.powerHandler(model.TypePowerShuttingDown, "Shutting down", func(ctx context.Context) error { return s.actions.Power.Shutdown(ctx) }),
		model.EventPowerLock:              s.powerHandler(model.TypePowerLocking, "Locking", func(ctx context.Context) error { return s.actions.Power.Lock(ctx) }),
		model.EventPowerLogout:            s.powerHandler(model.TypePowerLoggingOut, "Logging out", func(ctx context.Context) error { return s.actions.Power.Logout(ctx) }),
	}
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	c, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: []string{"*"},
	})
	if err != nil {
		s.logger.Warn("websocket accept failed", "error", err)
		return
	}
	c.SetReadLimit(10 << 20)

	conn := newWSConn(c, s.writeTimeout)
	listenerID := uuid.NewString()
	s.logger.Info("websocket connected", "listener_id", listenerID, "remote", r.RemoteAddr)

	defer func() {
		// Disconnect always drops the registration, whether or not the
		// client ever registered.
		s.registry.Remove(listenerID)
		conn.close(websocket.StatusNormalClosure, "closed")
		s.logger.Info("websocket disconnected", "listener_id", listenerID)
	}()

	s.serveConn(r.Context(), &session{conn: conn, listenerID: listenerID})
}

// serveConn runs the request loop until the peer disconnects or the engine
// decides the connection cannot continue.
func (s *Server) serveConn(ctx context.Context, sess *session) {
	for {
		payload, err := sess.conn.read(ctx)
		if err != nil {
			return
		}

		var req model.Request
		if err := json.Unmarshal(payload, &req); err != nil {
			// Malformed bytes and well-formed-but-wrong-shape payloads get
			// distinct subtypes; neither can be correlated to a request id.
			subtype := model.SubtypeBadRequest
			var syntaxErr *json.SyntaxError
			if errors.As(err, &syntaxErr) {
				subtype = model.SubtypeBadJSON
			}
			_ = sess.respondError(ctx, model.RequestIDUnknown, subtype, "Invalid request message", nil)
			return
		}
		if req.Event == "" {
			_ = sess.respondError(ctx, model.RequestIDUnknown, model.SubtypeBadRequest, "Request is missing the event field", nil)
			return
		}

		if req.Token != s.token {
			s.logger.Warn("websocket request with bad token", "listener_id", sess.listenerID, "event", req.Event)
			_ = sess.respondError(ctx, req.ID, model.SubtypeBadToken, "Invalid token", nil)
			return
		}

		handler, ok := s.handlers[req.Event]
		if !ok {
			// Unknown events are request-local; the connection stays up.
			_ = sess.respondError(ctx, req.ID, model.SubtypeUnknownEvent, fmt.Sprintf("Unknown event %q", req.Event), nil)
			continue
		}
		if err := handler(ctx, sess, req); err != nil {
			s.logger.Warn("websocket handler failed", "listener_id", sess.listenerID, "event", req.Event, "error", err)
			return
		}
	}
}

func (s *Server) handleRegisterDataListener(ctx context.Context, sess *session, req model.Request) error {
	modules, errResp := parseModulesPayload(req)
	if errResp != nil {
		return sess.respond(ctx, *errResp)
	}
	if already := s.registry.Add(sess.listenerID, modules, sess.conn); already {
		return sess.respondError(ctx, req.ID, model.SubtypeListenerAlreadyRegistered, "Listener already registered", map[string]any{
			"listener_id": sess.listenerID,
		})
	}
	return sess.respond(ctx, model.Response{
		ID:      req.ID,
		Type:    model.TypeDataListenerRegistered,
		Message: "Data listener registered",
		Data:    map[string]any{"listener_id": sess.listenerID, "modules": modules},
	})
}

func (s *Server) handleUnregisterDataListener(ctx context.Context, sess *session, req model.Request) error {
	if found := s.registry.Remove(sess.listenerID); !found {
		return sess.respondError(ctx, req.ID, model.SubtypeListenerNotRegistered, "Listener not registered", map[string]any{
			"listener_id": sess.listenerID,
		})
	}
	return sess.respond(ctx, model.Response{
		ID:      req.ID,
		Type:    model.TypeDataListenerUnregistered,
		Message: "Data listener unregistered",
		Data:    map[string]any{"listener_id": sess.listenerID},
	})
}

func (s *Server) handleGetData(ctx context.Context, sess *session, req model.Request) error {
	modules, errResp := parseModulesPayload(req)
	if errResp != nil {
		return sess.respond(ctx, *errResp)
	}
	if err := sess.respond(ctx, model.Response{
		ID:      req.ID,
		Type:    model.TypeDataGet,
		Message: "Getting data",
		Data:    map[string]any{"modules": modules},
	}); err != nil {
		return err
	}
	// One module with no snapshot must not fail its siblings.
	for _, m := range modules {
		blob, ok := s.store.Get(m)
		if !ok {
			if err := sess.respond(ctx, model.Response{
				ID:      req.ID,
				Type:    model.TypeError,
				Module:  m,
				Message: "Cannot find data for module",
				Data:    map[string]any{},
			}); err != nil {
				return err
			}
			continue
		}
		if err := sess.respond(ctx, model.Response{
			ID:      req.ID,
			Type:    model.TypeDataUpdate,
			Module:  m,
			Message: "Data requested",
			Data:    blob,
		}); err != nil {
			return err
		}
	}
	return nil
}

// parseModulesPayload validates the modules list shared by get_data and
// register_data_listener. A nil response means modules is usable.
func parseModulesPayload(req model.Request) ([]model.Module, *model.Response) {
	var payload model.ModulesPayload
	if len(req.Data) > 0 {
		if err := json.Unmarshal(req.Data, &payload); err != nil {
			return nil, &model.Response{
				ID:      req.ID,
				Type:    model.TypeError,
				Subtype: model.SubtypeBadRequest,
				Message: "Invalid data payload",
				Data:    map[string]any{},
			}
		}
	}
	if len(payload.Modules) == 0 {
		return nil, &model.Response{
			ID:      req.ID,
			Type:    model.TypeError,
			Subtype: model.SubtypeMissingModules,
			Message: "No modules provided",
			Data:    map[string]any{},
		}
	}
	valid, invalid := model.ParseModules(payload.Modules)
	if len(invalid) > 0 {
		return nil, &model.Response{
			ID:      req.ID,
			Type:    model.TypeError,
			Subtype: model.SubtypeMissingModules,
			Message: fmt.Sprintf("Unknown modules: %s", strings.Join(invalid, ", ")),
			Data:    map[string]any{"unknown": invalid},
		}
	}
	return valid, nil
}

func (s *Server) handleExitApplication(ctx context.Context, sess *session, req model.Request) error {
	if err := sess.respond(ctx, model.Response{
		ID:      req.ID,
		Type:    model.TypeApplicationExiting,
		Message: "Exiting application",
		Data:    map[string]any{},
	}); err != nil {
		return err
	}
	s.logger.Info("exit requested over websocket", "listener_id", sess.listenerID)
	if s.exit != nil {
		s.exit()
	}
	return nil
}

func (s *Server) handleKeyboardKeypress(ctx context.Context, sess *session, req model.Request) error {
	var payload model.KeyboardKeyPayload
	if len(req.Data) > 0 {
		if err := json.Unmarshal(req.Data, &payload); err != nil {
			return sess.respondError(ctx, req.ID, model.SubtypeBadRequest, "Invalid data payload", nil)
		}
	}
	if payload.Key == "" {
		return sess.respondError(ctx, req.ID, model.SubtypeMissingKey, "No key provided", nil)
	}
	if err := s.actions.Keyboard.PressKey(ctx, payload.Key); err != nil {
		s.logger.Warn("keyboard keypress failed", "key", payload.Key, "error", err)
		return sess.respondError(ctx, req.ID, model.SubtypeMissingKey, "Invalid key", map[string]any{"key": payload.Key})
	}
	return sess.respond(ctx, model.Response{
		ID:      req.ID,
		Type:    model.TypeKeyboardKeyPressed,
		Message: "Key pressed",
		Data:    map[string]any{"key": payload.Key},
	})
}

func (s *Server) handleKeyboardText(ctx context.Context, sess *session, req model.Request) error {
	var payload model.KeyboardTextPayload
	if len(req.Data) > 0 {
		if err := json.Unmarshal(req.Data, &payload); err != nil {
			return sess.respondError(ctx, req.ID, model.SubtypeBadRequest, "Invalid data payload", nil)
		}
	}
	if payload.Text == "" {
		return sess.respondError(ctx, req.ID, model.SubtypeMissingText, "No text provided", nil)
	}
	if err := s.actions.Keyboard.TypeText(ctx, payload.Text); err != nil {
		s.logger.Warn("keyboard text failed", "error", err)
		return sess.respondError(ctx, req.ID, model.SubtypeBadRequest, "Sending text failed", nil)
	}
	return sess.respond(ctx, model.Response{
		ID:      req.ID,
		Type:    model.TypeKeyboardTextSent,
		Message: "Text sent",
		Data:    map[string]any{"text": payload.Text},
	})
}

func (s *Server) handleMediaControl(ctx context.Context, sess *session, req model.Request) error {
	var payload model.MediaControlPayload
	if len(req.Data) > 0 {
		if err := json.Unmarshal(req.Data, &payload); err != nil {
			return sess.respondError(ctx, req.ID, model.SubtypeBadRequest, "Invalid data payload", nil)
		}
	}
	if payload.Action == "" {
		return sess.respondError(ctx, req.ID, model.SubtypeMissingAction, "No action provided", nil)
	}
	if !model.IsMediaAction(payload.Action) {
		return sess.respondError(ctx, req.ID, model.SubtypeInvalidAction, fmt.Sprintf("Invalid media action %q", payload.Action), map[string]any{"action": payload.Action})
	}
	if model.MediaActionNeedsValue(payload.Action) && payload.Value == nil {
		return sess.respondError(ctx, req.ID, model.SubtypeMissingValue, "No value provided", map[string]any{"action": payload.Action})
	}
	if err := s.actions.Media.Control(ctx, payload.Action, payload.Value); err != nil {
		s.logger.Warn("media control failed", "action", payload.Action, "error", err)
		return sess.respondError(ctx, req.ID, model.SubtypeInvalidAction, "Media control failed", map[string]any{"action": payload.Action})
	}
	return sess.respond(ctx, model.Response{
		ID:      req.ID,
		Type:    model.TypeMediaControlled,
		Message: "Media controlled",
		Data:    map[string]any{"action": payload.Action},
	})
}

func (s *Server) handleNotification(ctx context.Context, sess *session, req model.Request) error {
	var payload model.NotificationPayload
	if len(req.Data) > 0 {
		if err := json.Unmarshal(req.Data, &payload); err != nil {
			return sess.respondError(ctx, req.ID, model.SubtypeBadRequest, "Invalid data payload", nil)
		}
	}
	if payload.Title == "" {
		return sess.respondError(ctx, req.ID, model.SubtypeMissingTitle, "No title provided", nil)
	}
	if err := s.actions.Notifier.Notify(ctx, payload.Title, payload.Message); err != nil {
		s.logger.Warn("notification failed", "title", payload.Title, "error", err)
		return sess.respondError(ctx, req.ID, model.SubtypeBadRequest, "Sending notification failed", nil)
	}
	return sess.respond(ctx, model.Response{
		ID:      req.ID,
		Type:    model.TypeNotificationSent,
		Message: "Notification sent",
		Data:    map[string]any{"title": payload.Title},
	})
}

func (s *Server) handleOpen(ctx context.Context, sess *session, req model.Request) error {
	var payload model.OpenPayload
	if len(req.Data) > 0 {
		if err := json.Unmarshal(req.Data, &payload); err != nil {
			return sess.respondError(ctx, req.ID, model.SubtypeBadRequest, "Invalid data payload", nil)
		}
	}
	switch {
	case payload.Path != "":
		if err := s.actions.Opener.OpenPath(ctx, payload.Path); err != nil {
			s.logger.Warn("open path failed", "path", payload.Path, "error", err)
			return sess.respondError(ctx, req.ID, model.SubtypeBadRequest, "Opening path failed", nil)
		}
		return sess.respond(ctx, model.Response{
			ID:      req.ID,
			Type:    model.TypeOpened,
			Message: "Opened",
			Data:    map[string]any{"path": payload.Path},
		})
	case payload.URL != "":
		if err := s.actions.Opener.OpenURL(ctx, payload.URL); err != nil {
			s.logger.Warn("open url failed", "url", payload.URL, "error", err)
			return sess.respondError(ctx, req.ID, model.SubtypeBadRequest, "Opening url failed", nil)
		}
		return sess.respond(ctx, model.Response{
			ID:      req.ID,
			Type:    model.TypeOpened,
			Message: "Opened",
			Data:    map[string]any{"url": payload.URL},
		})
	default:
		return sess.respondError(ctx, req.ID, model.SubtypeMissingPathURL, "No path or url provided", nil)
	}
}

// powerHandler builds one handler per power event. The acknowledgement is
// sent before the action runs; once the host suspends there may be no chance
// to write it.
func (s *Server) powerHandler(respType, message string, run func(ctx context.Context) error) handlerFunc {
	return func(ctx context.Context, sess *session, req model.Request) error {
		if err := sess.respond(ctx, model.Response{
			ID:      req.ID,
			Type:    respType,
			Message: message,
			Data:    map[string]any{},
		}); err != nil {
			return err
		}
		if err := run(ctx); err != nil {
			s.logger.Warn("power action failed", "type", respType, "error", err)
		}
		return nil
	}
}

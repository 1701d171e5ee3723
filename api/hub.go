package api

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	"github.com/bytedance/sonic"
	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"board-sync/domain"
	"board-sync/storage"
)

const defaultSendBuffer = 64

// Session is one connected client's live handle: an opaque identifier and a
// buffered outbound channel drained by the transport layer. Sessions are
// created on connect, destroyed on disconnect and never persisted.
type Session struct {
	ID string

	send    chan []byte
	done    chan struct{}
	once    sync.Once
	dropped atomic.Bool
}

func newSession(buf int) *Session {
	return &Session{
		ID:   uuid.NewString(),
		send: make(chan []byte, buf),
		done: make(chan struct{}),
	}
}

// Outbound is the stream of wire frames to deliver to this client.
func (s *Session) Outbound() <-chan []byte { return s.send }

// Done is closed when the session has ended and the transport should close
// the underlying connection.
func (s *Session) Done() <-chan struct{} { return s.done }

// Dropped reports whether the session ended because its outbound backlog
// overflowed, as opposed to a normal deregistration. The flag is set before
// Done closes, so it is reliable once Done is observed.
func (s *Session) Dropped() bool { return s.dropped.Load() }

func (s *Session) close() {
	s.once.Do(func() { close(s.done) })
}

// deliver enqueues a frame without blocking. A session that cannot keep up is
// dropped; the client reconnects and catches up through the connect snapshot.
func (s *Session) deliver(frame []byte) {
	select {
	case <-s.done:
	case s.send <- frame:
	default:
		s.dropped.Store(true)
		s.close()
	}
}

// Hub owns the session registry and the single mutation pipeline. Every
// accepted mutation is applied to the store and fanned out to all sessions as
// one atomic step, so no client can observe broadcasts out of store order.
type Hub struct {
	store  TaskStore
	cache  *storage.SnapshotCache
	logger *log.Logger
	buf    int

	// pipeMu serializes mutate-then-broadcast, and orders connect snapshots
	// against in-flight mutations.
	pipeMu sync.Mutex

	sessMu   sync.RWMutex
	sessions map[*Session]struct{}
}

// NewHub creates a hub over the given store. sendBuf caps each session's
// outbound backlog; zero or negative selects the default.
func NewHub(store TaskStore, cache *storage.SnapshotCache, logger *log.Logger, sendBuf int) *Hub {
	if logger == nil {
		panic("api.NewHub: logger is not initialized")
	}
	if sendBuf <= 0 {
		sendBuf = defaultSendBuffer
	}
	return &Hub{
		store:    store,
		cache:    cache,
		logger:   logger,
		buf:      sendBuf,
		sessions: make(map[*Session]struct{}),
	}
}

// Connect registers a new session and pushes the full-state snapshot to that
// session only. Catch-up is always a full snapshot; there is no replay log.
func (h *Hub) Connect(ctx context.Context) *Session {
	sess := newSession(h.buf)

	h.pipeMu.Lock()
	h.sessMu.Lock()
	h.sessions[sess] = struct{}{}
	h.sessMu.Unlock()

	snapshot, err := h.snapshotLocked(ctx)
	if err == nil {
		if frame, ferr := encodeRawEvent(EventSync, snapshot); ferr == nil {
			sess.deliver(frame)
		} else {
			err = ferr
		}
	}
	h.pipeMu.Unlock()

	if err != nil {
		h.logger.WithFields(log.Fields{"session": sess.ID, "error": err}).Error("sync snapshot failed")
	}
	h.logger.WithField("session", sess.ID).Debug("client connected")
	return sess
}

// Disconnect deregisters the session. No broadcast is emitted.
func (h *Hub) Disconnect(sess *Session) {
	h.sessMu.Lock()
	delete(h.sessions, sess)
	h.sessMu.Unlock()
	sess.close()
	h.logger.WithField("session", sess.ID).Debug("client disconnected")
}

// Sessions reports the number of currently connected sessions.
func (h *Hub) Sessions() int {
	h.sessMu.RLock()
	defer h.sessMu.RUnlock()
	return len(h.sessions)
}

// Snapshot returns the serialized current task collection, served from the
// snapshot cache when possible. It holds the pipeline lock so a read racing
// a mutation can never re-cache a snapshot the mutation just evicted.
func (h *Hub) Snapshot(ctx context.Context) ([]byte, error) {
	h.pipeMu.Lock()
	defer h.pipeMu.Unlock()
	return h.snapshotLocked(ctx)
}

func (h *Hub) snapshotLocked(ctx context.Context) ([]byte, error) {
	if data, ok := h.cache.Get(ctx); ok {
		return data, nil
	}
	data, err := sonic.Marshal(h.store.List())
	if err != nil {
		return nil, err
	}
	h.cache.Set(ctx, data)
	return data, nil
}

// Dispatch decodes a raw inbound frame and routes it to the matching
// mutation handler. Frames that cannot be decoded are dropped; the protocol
// has no failure kind for malformed input.
func (h *Hub) Dispatch(ctx context.Context, sess *Session, raw []byte) {
	var env envelope
	if err := sonic.Unmarshal(raw, &env); err != nil {
		h.logger.WithFields(log.Fields{"session": sess.ID, "error": err}).Debug("dropping undecodable frame")
		return
	}
	switch env.Event {
	case EventCreate:
		var patch domain.TaskPatch
		if len(env.Data) > 0 {
			if err := sonic.Unmarshal(env.Data, &patch); err != nil {
				h.logger.WithFields(log.Fields{"session": sess.ID, "error": err}).Debug("dropping malformed create")
				return
			}
		}
		h.HandleCreate(ctx, sess, patch)
	case EventUpdate:
		var patch domain.TaskPatch
		if err := sonic.Unmarshal(env.Data, &patch); err != nil {
			h.logger.WithFields(log.Fields{"session": sess.ID, "error": err}).Debug("dropping malformed update")
			return
		}
		h.HandleUpdate(ctx, sess, patch)
	case EventMove:
		var mv movePayload
		if err := sonic.Unmarshal(env.Data, &mv); err != nil {
			h.logger.WithFields(log.Fields{"session": sess.ID, "error": err}).Debug("dropping malformed move")
			return
		}
		h.HandleMove(ctx, sess, mv.ID, mv.Column)
	case EventDelete:
		var id int64
		if err := sonic.Unmarshal(env.Data, &id); err != nil {
			h.logger.WithFields(log.Fields{"session": sess.ID, "error": err}).Debug("dropping malformed delete")
			return
		}
		h.HandleDelete(ctx, sess, id)
	default:
		h.logger.WithFields(log.Fields{"session": sess.ID, "event": env.Event}).Debug("ignoring unknown event")
	}
}

// HandleCreate applies a create request and broadcasts the new record to all
// sessions, the originator included.
func (h *Hub) HandleCreate(ctx context.Context, sess *Session, patch domain.TaskPatch) {
	m, ctx := newMutationMetrics(ctx, h.logger, EventCreate)

	h.pipeMu.Lock()
	task, err := h.store.Create(patch)
	if err != nil {
		h.pipeMu.Unlock()
		m.SetErrorStage("store")
		h.sendError(sess, err)
		m.Log(err)
		return
	}
	// Eviction must outlive the requester; a client vanishing mid-mutation
	// must not leave the pre-mutation snapshot cached.
	h.cache.Evict(context.WithoutCancel(ctx))
	notified := h.broadcast(EventCreated, task)
	h.pipeMu.Unlock()

	m.SetTaskID(task.ID)
	m.SetClientsNotified(notified)
	m.Log(nil)
}

// HandleUpdate applies a partial update. Success broadcasts the merged
// record; NotFound errors back to the requester only.
func (h *Hub) HandleUpdate(ctx context.Context, sess *Session, patch domain.TaskPatch) {
	m, ctx := newMutationMetrics(ctx, h.logger, EventUpdate)
	m.SetTaskID(patch.ID)

	h.pipeMu.Lock()
	task, err := h.store.Update(patch.ID, patch)
	if err != nil {
		h.pipeMu.Unlock()
		m.SetErrorStage("store")
		h.sendError(sess, err)
		m.Log(err)
		return
	}
	h.cache.Evict(context.WithoutCancel(ctx))
	notified := h.broadcast(EventUpdated, task)
	h.pipeMu.Unlock()

	m.SetClientsNotified(notified)
	m.Log(nil)
}

// HandleMove is the drag-and-drop hot path: a column-only update broadcast as
// its own event so clients need not resend the record.
func (h *Hub) HandleMove(ctx context.Context, sess *Session, id int64, column domain.Column) {
	m, ctx := newMutationMetrics(ctx, h.logger, EventMove)
	m.SetTaskID(id)

	h.pipeMu.Lock()
	task, err := h.store.Move(id, column)
	if err != nil {
		h.pipeMu.Unlock()
		m.SetErrorStage("store")
		h.sendError(sess, err)
		m.Log(err)
		return
	}
	h.cache.Evict(context.WithoutCancel(ctx))
	notified := h.broadcast(EventMoved, task)
	h.pipeMu.Unlock()

	m.SetClientsNotified(notified)
	m.Log(nil)
}

// HandleDelete removes a record and broadcasts the bare id; the record no
// longer exists, so observers confirm deletion from the id alone.
func (h *Hub) HandleDelete(ctx context.Context, sess *Session, id int64) {
	m, ctx := newMutationMetrics(ctx, h.logger, EventDelete)
	m.SetTaskID(id)

	h.pipeMu.Lock()
	deletedID, err := h.store.Delete(id)
	if err != nil {
		h.pipeMu.Unlock()
		m.SetErrorStage("store")
		h.sendError(sess, err)
		m.Log(err)
		return
	}
	h.cache.Evict(context.WithoutCancel(ctx))
	notified := h.broadcast(EventDeleted, deletedID)
	h.pipeMu.Unlock()

	m.SetClientsNotified(notified)
	m.Log(nil)
}

// broadcast fans the event out to every connected session and reports how
// many were notified. Delivery per session is non-blocking; a slow client
// never holds up the pipeline or its peers.
func (h *Hub) broadcast(event string, payload any) int {
	frame, err := encodeEvent(event, payload)
	if err != nil {
		h.logger.WithFields(log.Fields{"event": event, "error": err}).Error("broadcast encode failed")
		return 0
	}
	h.sessMu.RLock()
	defer h.sessMu.RUnlock()
	for sess := range h.sessions {
		sess.deliver(frame)
	}
	return len(h.sessions)
}

// sendError converts a mutation failure into an error event for the
// requesting session only. Other clients are never informed of failed
// requests, and the store was never mutated for them.
func (h *Hub) sendError(sess *Session, err error) {
	payload := errorPayload{Message: err.Error()}
	var nf domain.NotFoundError
	if errors.As(err, &nf) {
		payload = errorPayload{Message: "Task not found", TaskID: nf.ID}
	}
	frame, encErr := encodeEvent(EventError, payload)
	if encErr != nil {
		h.logger.WithFields(log.Fields{"session": sess.ID, "error": encErr}).Error("error encode failed")
		return
	}
	sess.deliver(frame)
}

// Package engine reconciles the two asynchronous sources of chat state, the
// request/response API and the persistent event channel, into one consistent
// view per active conversation. All shared state lives behind a single
// goroutine: public methods enqueue work onto the engine's dispatch queue,
// network calls run on the caller's goroutine, and their results are applied
// back on the loop, so no mutation ever interleaves with another.
package engine

import (
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"ligdichat/client/internal/channel"
	"ligdichat/client/internal/config"
	"ligdichat/client/internal/models"
	"ligdichat/client/internal/session"
)

// API is the REST collaborator the engine consumes.
type API interface {
	Conversations() ([]models.Conversation, error)
	Users() ([]models.User, error)
	Messages(conversationID int64) ([]models.Message, error)
	SendMessage(conversationID int64, content string) (models.Message, error)
	UploadAttachment(conversationID int64, filename string, file []byte, kind models.MessageKind) (models.Message, error)
	DeleteMessage(messageID int64) error
	StartConversation(participantEmail string) (models.Conversation, error)
}

// Channel is the event-channel collaborator the engine consumes.
type Channel interface {
	Connect() error
	Events() <-chan channel.Inbound
	Announce(me models.User)
	Join(conversationID int64)
	Leave(conversationID int64)
	Typing(conversationID int64, user models.User)
	StopTyping(conversationID int64, user models.User)
	Close() error
}

// Validation failures rejected before any network call.
var (
	ErrEmptyMessage    = errors.New("engine: message content is empty")
	ErrEmptyAttachment = errors.New("engine: attachment is empty")
	ErrNoActive        = errors.New("engine: no active conversation")
	ErrBadParticipant  = errors.New("engine: invalid participant email")
)

// Engine is the synchronization engine. Construct with New, configure the
// hooks, then start Run in its own goroutine before calling anything else.
type Engine struct {
	session session.Session
	api     API
	channel Channel

	dispatch chan func()
	done     chan struct{}
	stopOnce sync.Once

	directory  *Directory
	timeline   *Timeline
	presence   *PresenceTracker
	typing     *TypingTracker
	membership *ChannelMembership
	scroll     *ScrollPolicy

	users     []models.User
	active    *models.Conversation
	state     ActiveState
	pendingID int64 // conversation id the in-flight history fetch was issued for
	uploading bool

	lastTypingEmit  time.Time
	stopTypingTimer *time.Timer

	// OnUpdate, if set, receives a fresh snapshot after every mutation.
	// It runs on the engine goroutine and must not call back into the engine.
	OnUpdate func(Snapshot)
	// OnScroll, if set, is invoked whenever the viewport should scroll to
	// the bottom. Same constraints as OnUpdate.
	OnScroll func()
	// Confirm gates DeleteMessage: ask, then act. A nil Confirm means
	// deletions proceed unasked.
	Confirm func(messageID int64) bool
}

// New wires an engine to its collaborators. The session context is explicit;
// the engine never reads credentials from ambient state.
func New(sess session.Session, apiClient API, ch Channel) *Engine {
	e := &Engine{
		session:   sess,
		api:       apiClient,
		channel:   ch,
		dispatch:  make(chan func(), 64),
		done:      make(chan struct{}),
		directory: NewDirectory(),
		timeline:  NewTimeline(),
		presence:  NewPresenceTracker(),
		scroll:    NewScrollPolicy(),
	}
	e.membership = NewChannelMembership(ch)
	e.typing = NewTypingTracker(config.TypingQuietPeriod, func(email string, gen uint64) {
		e.post(func() {
			if e.typing.Expire(email, gen) {
				e.notify()
			}
		})
	})
	return e
}

// Run is the engine's event loop. Every store mutation happens here and runs
// to completion before the next event is processed.
func (e *Engine) Run() {
	events := e.channel.Events()
	for {
		select {
		case fn := <-e.dispatch:
			fn()
		case ev, ok := <-events:
			if !ok {
				events = nil
				continue
			}
			e.handleEvent(ev)
		case <-e.done:
			return
		}
	}
}

// post enqueues fn without waiting for it.
func (e *Engine) post(fn func()) {
	select {
	case e.dispatch <- fn:
	case <-e.done:
	}
}

// do enqueues fn and blocks until the loop has executed it. Never call from
// the engine goroutine.
func (e *Engine) do(fn func()) {
	ran := make(chan struct{})
	select {
	case e.dispatch <- func() {
		fn()
		close(ran)
	}:
	case <-e.done:
		return
	}
	select {
	case <-ran:
	case <-e.done:
	}
}

// Bootstrap seeds the directory and user list from the API and brings the
// event channel up. A fetch failure leaves prior state untouched and is
// returned; a channel failure is returned too but never blocks the fetched
// directory from rendering.
func (e *Engine) Bootstrap() error {
	convs, convErr := e.api.Conversations()
	users, userErr := e.api.Users()

	e.do(func() {
		if convErr == nil {
			e.directory.Seed(convs)
		}
		if userErr == nil {
			e.users = users
		}
		e.notify()
	})

	if convErr != nil {
		return fmt.Errorf("bootstrap conversations: %w", convErr)
	}
	if userErr != nil {
		return fmt.Errorf("bootstrap users: %w", userErr)
	}

	if err := e.channel.Connect(); err != nil {
		return fmt.Errorf("bootstrap channel: %w", err)
	}
	e.channel.Announce(e.session.Me)
	return nil
}

// SetActive switches the active conversation: leaves the old room, joins the
// new one, and replaces the timeline with the conversation's full history.
// A history response arriving after another SetActive has superseded it is
// silently discarded.
func (e *Engine) SetActive(conv models.Conversation) error {
	e.do(func() {
		e.membership.Switch(conv.ID)
		c := conv
		e.active = &c
		e.state = StateLoading
		e.pendingID = conv.ID
		e.typing.Clear()
		e.notify()
	})

	msgs, err := e.api.Messages(conv.ID)

	stale := false
	e.do(func() {
		if e.pendingID != conv.ID {
			stale = true
			return
		}
		e.pendingID = 0
		if err != nil {
			return
		}
		e.timeline.Replace(msgs)
		e.state = StateReady
		if e.scroll.OnHistoryLoaded() {
			e.scrollToBottom()
		}
		e.notify()
	})

	if stale {
		return nil
	}
	if err != nil {
		return fmt.Errorf("load history for conversation %d: %w", conv.ID, err)
	}
	return nil
}

// SendMessage posts text to the active conversation. Empty or whitespace-only
// content never reaches the network. On failure the error is returned and no
// state changes, so the caller keeps the composer content. Only a confirmed
// server id is ever inserted, deduplicated against the channel echo.
func (e *Engine) SendMessage(content string) error {
	trimmed := strings.TrimSpace(content)
	if trimmed == "" {
		return ErrEmptyMessage
	}

	convID, ok := e.activeID()
	if !ok {
		return ErrNoActive
	}

	msg, err := e.api.SendMessage(convID, trimmed)
	if err != nil {
		return err
	}

	e.do(func() { e.applyOwnMessage(convID, msg) })
	return nil
}

// SendAttachment uploads a media message with the same contract as
// SendMessage. The Uploading flag is visible in snapshots while the request
// is in flight and is guaranteed to clear on every exit path, which is the
// UI's cue to drop its pending file selection.
func (e *Engine) SendAttachment(filename string, file []byte, kind models.MessageKind) error {
	if len(file) == 0 {
		return ErrEmptyAttachment
	}

	convID, ok := e.activeID()
	if !ok {
		return ErrNoActive
	}

	e.do(func() {
		e.uploading = true
		e.notify()
	})
	defer e.do(func() {
		e.uploading = false
		e.notify()
	})

	msg, err := e.api.UploadAttachment(convID, filename, file, kind)
	if err != nil {
		return err
	}

	e.do(func() { e.applyOwnMessage(convID, msg) })
	return nil
}

// applyOwnMessage inserts the server-confirmed message from our own send.
// The timeline is touched only if the conversation it was sent to is still
// the active one. Engine goroutine only.
func (e *Engine) applyOwnMessage(convID int64, msg models.Message) {
	e.directory.UpsertPreview(convID, msg.Preview())
	if e.active != nil && e.active.ID == convID {
		if e.timeline.Append(msg) && e.scroll.OnMutation() {
			e.scrollToBottom()
		}
	}
	e.notify()
}

// DeleteMessage asks the Confirm gate, then deletes on the server and drops
// the message from the timeline. A declined confirmation is a silent no-op;
// a failed request leaves state unchanged and returns the error.
func (e *Engine) DeleteMessage(messageID int64) error {
	if e.Confirm != nil && !e.Confirm(messageID) {
		return nil
	}
	if err := e.api.DeleteMessage(messageID); err != nil {
		return err
	}
	e.do(func() {
		if e.dropMessage(messageID) {
			e.notify()
		}
	})
	return nil
}

// dropMessage removes a deleted message from the timeline and, when it was
// the one backing its conversation's preview, clears that preview too.
// Engine goroutine only.
func (e *Engine) dropMessage(messageID int64) bool {
	msg, ok := e.timeline.Get(messageID)
	if !ok {
		return false
	}
	e.timeline.Remove(messageID)
	e.directory.DropPreview(msg.ConversationID, msg.Preview())
	return true
}

// StartConversation creates (or finds) the conversation with the given peer,
// front-inserts it into the directory if new, and makes it active.
func (e *Engine) StartConversation(participantEmail string) error {
	if participantEmail == "" || participantEmail == e.session.Me.Email {
		return ErrBadParticipant
	}

	conv, err := e.api.StartConversation(participantEmail)
	if err != nil {
		return err
	}

	e.do(func() {
		e.directory.Upsert(conv)
		e.notify()
	})
	return e.SetActive(conv)
}

// InputActivity reports a keystroke in the composer. A typing signal goes out
// at most once per quiet period, and the single stop-typing timer is replaced
// wholesale on every call: last write wins, timers never accumulate.
func (e *Engine) InputActivity() {
	e.do(func() {
		if e.active == nil {
			return
		}
		convID := e.active.ID

		now := time.Now()
		if now.Sub(e.lastTypingEmit) >= config.TypingQuietPeriod {
			e.channel.Typing(convID, e.session.Me)
			e.lastTypingEmit = now
		}

		if e.stopTypingTimer != nil {
			e.stopTypingTimer.Stop()
		}
		e.stopTypingTimer = time.AfterFunc(config.TypingQuietPeriod, func() {
			e.post(func() {
				e.channel.StopTyping(convID, e.session.Me)
			})
		})
	})
}

// HandleScroll feeds a manual scroll position into the scroll policy.
func (e *Engine) HandleScroll(distanceFromBottom int) {
	e.do(func() { e.scroll.HandleScroll(distanceFromBottom) })
}

// Snapshot returns a consistent copy of the full engine state. Because it
// round-trips through the loop, every operation enqueued before it by the
// same caller is already applied when it returns.
func (e *Engine) Snapshot() Snapshot {
	var snap Snapshot
	e.do(func() { snap = e.snapshot() })
	return snap
}

// Close leaves the active room, stops all timers and shuts the channel down.
func (e *Engine) Close() {
	e.stopOnce.Do(func() {
		e.do(func() {
			e.membership.Teardown()
			e.typing.Clear()
			if e.stopTypingTimer != nil {
				e.stopTypingTimer.Stop()
			}
		})
		close(e.done)
		e.channel.Close()
	})
}

// activeID reads the active conversation id through the loop.
func (e *Engine) activeID() (int64, bool) {
	var id int64
	var ok bool
	e.do(func() {
		if e.active != nil {
			id = e.active.ID
			ok = true
		}
	})
	return id, ok
}

// handleEvent merges one validated channel event into the stores.
// Engine goroutine only.
func (e *Engine) handleEvent(ev channel.Inbound) {
	switch ev := ev.(type) {
	case channel.UserStatus:
		if e.presence.Set(ev.UserID, ev.Status) {
			e.notify()
		}

	case channel.NewMessage:
		msg := ev.Message
		// Preview first, unconditionally: the list stays fresh even for
		// conversations that are not open.
		e.directory.UpsertPreview(msg.ConversationID, msg.Preview())
		if e.active != nil && e.active.ID == msg.ConversationID {
			if e.timeline.Append(msg) && e.scroll.OnMutation() {
				e.scrollToBottom()
			}
		}
		e.notify()

	case channel.MessageDeleted:
		if e.dropMessage(ev.ID) {
			e.notify()
		}

	case channel.Typing:
		if ev.User.Email == e.session.Me.Email {
			return
		}
		if e.active == nil || e.active.ID != ev.ConversationID {
			return
		}
		e.typing.Add(ev.User.Email)
		e.notify()

	case channel.StopTyping:
		if e.typing.Remove(ev.User.Email) {
			e.notify()
		}

	case channel.Reconnected:
		// The transport redialed; restore session identity and room
		// membership on the new connection.
		e.channel.Announce(e.session.Me)
		e.membership.Rejoin()

	default:
		log.Printf("engine: ignoring unexpected event %T", ev)
	}
}

// notify hands the UI a fresh snapshot. Engine goroutine only.
func (e *Engine) notify() {
	if e.OnUpdate != nil {
		e.OnUpdate(e.snapshot())
	}
}

func (e *Engine) scrollToBottom() {
	if e.OnScroll != nil {
		e.OnScroll()
	}
}

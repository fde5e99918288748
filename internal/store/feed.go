// ABOUTME: Realtime change feed built on the changes log table.
// ABOUTME: Polls new log rows and fans them out to per-subscriber goroutines.
package store

import (
	"database/sql"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
)

const subscriberBuffer = 32

type feed struct {
	db     *sql.DB
	logger *log.Logger

	pollMu  sync.Mutex
	lastSeq int64

	mu     sync.Mutex
	subs   map[uint64]*subscriber
	nextID uint64
	closed bool
}

type subscriber struct {
	table  Table
	userID uuid.UUID
	fn     func(Change)
	ch     chan Change
	done   chan struct{}
	once   sync.Once
}

func (s *subscriber) stop() {
	s.once.Do(func() { close(s.done) })
}

func (s *subscriber) run() {
	for {
		select {
		case <-s.done:
			return
		case c := <-s.ch:
			select {
			case <-s.done:
				return
			default:
			}
			s.fn(c)
		}
	}
}

// newFeed starts the feed at the current end of the log, so subscribers
// only see changes made after the store was opened.
func newFeed(db *sql.DB, logger *log.Logger) (*feed, error) {
	f := &feed{db: db, logger: logger, subs: make(map[uint64]*subscriber)}
	if err := db.QueryRow(`SELECT COALESCE(MAX(seq), 0) FROM changes`).Scan(&f.lastSeq); err != nil {
		return nil, err
	}
	return f, nil
}

// Subscribe delivers changes to table rows owned by userID. Callbacks run on a
// dedicated goroutine per subscription, in log order.
func (d *DB) Subscribe(table Table, userID uuid.UUID, onChange func(Change)) Subscription {
	return d.feed.subscribe(table, userID, onChange)
}

func (f *feed) subscribe(table Table, userID uuid.UUID, fn func(Change)) Subscription {
	s := &subscriber{
		table:  table,
		userID: userID,
		fn:     fn,
		ch:     make(chan Change, subscriberBuffer),
		done:   make(chan struct{}),
	}

	f.mu.Lock()
	if f.closed {
		f.mu.Unlock()
		s.stop()
		return newSubscription(func() {})
	}
	id := f.nextID
	f.nextID++
	f.subs[id] = s
	f.mu.Unlock()

	go s.run()

	return newSubscription(func() {
		f.mu.Lock()
		delete(f.subs, id)
		f.mu.Unlock()
		s.stop()
	})
}

// poll reads log rows past lastSeq and dispatches them.
func (f *feed) poll() {
	f.pollMu.Lock()
	defer f.pollMu.Unlock()

	rows, err := f.db.Query(
		`SELECT seq, table_name, op, user_id, record_id, at FROM changes WHERE seq > ? ORDER BY seq`,
		f.lastSeq)
	if err != nil {
		f.logger.Warn("poll changes failed", "err", err)
		return
	}
	var changes []Change
	for rows.Next() {
		var c Change
		var table, op, userID, recordID, at string
		if err := rows.Scan(&c.Seq, &table, &op, &userID, &recordID, &at); err != nil {
			f.logger.Warn("scan change failed", "err", err)
			break
		}
		c.Table = Table(table)
		c.Op = Op(op)
		c.UserID, _ = uuid.Parse(userID)
		c.RecordID, _ = uuid.Parse(recordID)
		c.At = parseTime(at)
		changes = append(changes, c)
	}
	rows.Close()
	if len(changes) == 0 {
		return
	}
	f.lastSeq = changes[len(changes)-1].Seq

	f.mu.Lock()
	subs := make([]*subscriber, 0, len(f.subs))
	for _, s := range f.subs {
		subs = append(subs, s)
	}
	f.mu.Unlock()

	for _, c := range changes {
		for _, s := range subs {
			if s.table != c.Table || s.userID != c.UserID {
				continue
			}
			select {
			case s.ch <- c:
			case <-s.done:
			default:
				f.logger.Debug("subscriber busy, dropping change", "table", c.Table, "seq", c.Seq)
			}
		}
	}
}

func (f *feed) close() {
	f.mu.Lock()
	f.closed = true
	subs := f.subs
	f.subs = make(map[uint64]*subscriber)
	f.mu.Unlock()

	for _, s := range subs {
		s.stop()
	}
}

// Package store owns the durable message table. It is an append-only
// keyspace over Pebble: message records are immutable after creation except
// the read flag, which is flipped in place by MarkThreadRead. Thread
// membership is derived from a per-user index, not a separate entity.
package store

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"sync/atomic"

	"github.com/cockroachdb/pebble"

	"courier/pkg/logger"
	"courier/pkg/models"
)

var (
	db     *pebble.DB
	dbPath string
)

// seq reduces key collisions when multiple messages share the same
// nanosecond timestamp.
var seq uint64

// Open opens (or creates) a Pebble database at the given path and keeps a
// global handle for simple usage in this package.
func Open(path string) error {
	var err error
	logger.Info("opening_store", "path", path)
	db, err = pebble.Open(path, &pebble.Options{})
	if err != nil {
		logger.Error("store_open_failed", "path", path, "err", err)
		return err
	}
	dbPath = path
	logger.Info("store_opened", "path", path)
	return nil
}

// Close closes the opened pebble DB if present.
func Close() error {
	if db == nil {
		return nil
	}
	if err := db.Close(); err != nil {
		return err
	}
	db = nil
	logger.Info("store_closed")
	return nil
}

// Ready reports whether the store is opened and ready.
func Ready() bool {
	return db != nil
}

// MsgKey builds the row key for a message in a thread. The zero-padded
// nanosecond timestamp keeps rows in insertion order under the thread
// prefix; seq disambiguates same-nanosecond writes.
func MsgKey(threadID string, ts int64, s uint64) string {
	return fmt.Sprintf("thread:%s:msg:%020d-%06d", threadID, ts, s)
}

func threadPrefix(threadID string) []byte {
	return []byte("thread:" + threadID + ":msg:")
}

func latestKey(msgID string) []byte {
	return []byte("latest:msg:" + msgID)
}

func userThreadKey(userID, threadID string) []byte {
	return []byte("user:" + userID + ":thread:" + threadID)
}

// SaveMessage appends an authoritative message record. It writes the
// thread row, a latest-pointer index for lookup by id, and the
// participation index entries for both users, in one synced batch.
func SaveMessage(m models.Message) error {
	if db == nil {
		return fmt.Errorf("store not opened; call store.Open first")
	}
	if m.ID == "" || m.Thread == "" {
		return fmt.Errorf("message id and thread are required")
	}
	data, err := json.Marshal(m)
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}
	s := atomic.AddUint64(&seq, 1)
	key := MsgKey(m.Thread, m.TS, s)

	wb := db.NewBatch()
	defer wb.Close()
	_ = wb.Set([]byte(key), data, nil)
	_ = wb.Set(latestKey(m.ID), data, nil)
	_ = wb.Set(userThreadKey(m.Sender, m.Thread), []byte(m.Thread), nil)
	_ = wb.Set(userThreadKey(m.Recipient, m.Thread), []byte(m.Thread), nil)
	if err := db.Apply(wb, pebble.Sync); err != nil {
		logger.Error("save_message_failed", "thread", m.Thread, "key", key, "err", err)
		return err
	}
	logger.Debug("message_saved", "thread", m.Thread, "id", m.ID, "key", key)
	return nil
}

// GetMessage returns the message with the given authoritative id.
func GetMessage(id string) (models.Message, error) {
	var m models.Message
	if db == nil {
		return m, fmt.Errorf("store not opened; call store.Open first")
	}
	v, closer, err := db.Get(latestKey(id))
	if err != nil {
		return m, err
	}
	defer closer.Close()
	if err := json.Unmarshal(v, &m); err != nil {
		return m, fmt.Errorf("invalid stored message: %w", err)
	}
	return m, nil
}

// ListMessages returns all messages for a thread ordered by creation time.
func ListMessages(threadID string) ([]models.Message, error) {
	if db == nil {
		return nil, fmt.Errorf("store not opened; call store.Open first")
	}
	prefix := threadPrefix(threadID)
	iter, err := db.NewIter(&pebble.IterOptions{})
	if err != nil {
		return nil, err
	}
	defer iter.Close()
	var out []models.Message
	for iter.SeekGE(prefix); iter.Valid(); iter.Next() {
		if !bytes.HasPrefix(iter.Key(), prefix) {
			break
		}
		var m models.Message
		if err := json.Unmarshal(iter.Value(), &m); err != nil {
			logger.Error("list_messages_bad_row", "thread", threadID, "key", string(iter.Key()), "err", err)
			continue
		}
		out = append(out, m)
	}
	return out, iter.Error()
}

// MarkThreadRead flips every unread message in the thread addressed to
// reader. It returns the distinct senders among the thread's messages
// (excluding the reader) and how many rows actually flipped. The update is
// idempotent: a second call flips nothing.
func MarkThreadRead(threadID, reader string) (senders []string, flipped int, err error) {
	if db == nil {
		return nil, 0, fmt.Errorf("store not opened; call store.Open first")
	}
	prefix := threadPrefix(threadID)
	iter, err := db.NewIter(&pebble.IterOptions{})
	if err != nil {
		return nil, 0, err
	}
	defer iter.Close()

	senderSet := map[string]struct{}{}
	wb := db.NewBatch()
	defer wb.Close()
	for iter.SeekGE(prefix); iter.Valid(); iter.Next() {
		if !bytes.HasPrefix(iter.Key(), prefix) {
			break
		}
		var m models.Message
		if err := json.Unmarshal(iter.Value(), &m); err != nil {
			logger.Error("mark_read_bad_row", "thread", threadID, "key", string(iter.Key()), "err", err)
			continue
		}
		if m.Sender != reader {
			senderSet[m.Sender] = struct{}{}
		}
		if m.Recipient != reader || m.Read {
			continue
		}
		m.Read = true
		nb, merr := json.Marshal(m)
		if merr != nil {
			return nil, 0, fmt.Errorf("failed to marshal message: %w", merr)
		}
		rowKey := append([]byte(nil), iter.Key()...)
		_ = wb.Set(rowKey, nb, nil)
		_ = wb.Set(latestKey(m.ID), nb, nil)
		flipped++
	}
	if err := iter.Error(); err != nil {
		return nil, 0, err
	}
	if flipped > 0 {
		if err := db.Apply(wb, pebble.Sync); err != nil {
			logger.Error("mark_read_apply_failed", "thread", threadID, "reader", reader, "err", err)
			return nil, 0, err
		}
	}
	for s := range senderSet {
		senders = append(senders, s)
	}
	sort.Strings(senders)
	logger.Debug("thread_marked_read", "thread", threadID, "reader", reader, "flipped", flipped)
	return senders, flipped, nil
}

// ListUserThreads returns the thread ids the user participates in, from
// the participation index.
func ListUserThreads(userID string) ([]string, error) {
	if db == nil {
		return nil, fmt.Errorf("store not opened; call store.Open first")
	}
	prefix := []byte("user:" + userID + ":thread:")
	iter, err := db.NewIter(&pebble.IterOptions{})
	if err != nil {
		return nil, err
	}
	defer iter.Close()
	var out []string
	for iter.SeekGE(prefix); iter.Valid(); iter.Next() {
		if !bytes.HasPrefix(iter.Key(), prefix) {
			break
		}
		out = append(out, string(iter.Value()))
	}
	return out, iter.Error()
}

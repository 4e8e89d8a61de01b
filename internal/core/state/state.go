// Package state manages eportal's persistent state using BoltDB.
// All writes are transactional; reads use read-only transactions to minimise contention.
package state

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/bassosimone/runtimex"
	"github.com/google/uuid"
	"go.etcd.io/bbolt"

	v1 "github.com/f9-o/eportal/api/v1"
	"github.com/f9-o/eportal/pkg/errs"
)

// FileName is the state database file inside the eportal home directory.
const FileName = "state.db"

// Bucket names
var (
	bucketLogins = []byte("logins")
	bucketMeta   = []byte("meta")
)

// Keys inside the meta bucket.
const (
	keyLastIdentity   = "last_identity"
	keyLastConnection = "last_connection"
)

// DB wraps a BoltDB instance with typed accessor methods.
type DB struct {
	bolt *bbolt.DB
}

// Open opens (or creates) the state database at the given path.
func Open(path string) (*DB, error) {
	db, err := bbolt.Open(path, 0o600, &bbolt.Options{Timeout: 2 * time.Second})
	if err != nil {
		return nil, errs.New(errs.ErrStateRead, "state.open", err).
			WithResource(path).
			WithAdvice("another eportal process may hold the database; stop it and retry")
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		for _, b := range [][]byte{bucketLogins, bucketMeta} {
			if _, err := tx.CreateBucketIfNotExists(b); err != nil {
				return fmt.Errorf("create bucket %q: %w", b, err)
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, errs.New(errs.ErrStateWrite, "state.init", err).WithResource(path)
	}

	return &DB{bolt: db}, nil
}

// Close closes the underlying BoltDB file.
func (db *DB) Close() error {
	return db.bolt.Close()
}

// ─────────────────────────────────────────────────────────────────────────────
// Login history
// ─────────────────────────────────────────────────────────────────────────────

// NewRecordID returns a time-ordered record ID (UUIDv7), so bucket order is
// chronological order.
func NewRecordID() string {
	return runtimex.PanicOnError1(uuid.NewV7()).String()
}

// NewLoginRecord builds the history record of a finished operation.
func NewLoginRecord(op, userID string, id v1.DeviceIdentity, started, completed time.Time, result string, err error) v1.LoginRecord {
	rec := v1.LoginRecord{
		ID:          NewRecordID(),
		Op:          op,
		UserID:      userID,
		IP:          id.IP,
		MAC:         id.MAC,
		StartedAt:   started.UTC(),
		CompletedAt: completed.UTC(),
		Result:      result,
		DurationMS:  completed.Sub(started).Milliseconds(),
	}
	if err != nil {
		rec.Error = err.Error()
	}
	return rec
}

// PutLoginRecord appends a record to the history. An empty ID is filled in.
// A successful record with an identity also becomes the last known identity.
func (db *DB) PutLoginRecord(rec v1.LoginRecord) (v1.LoginRecord, error) {
	if rec.ID == "" {
		rec.ID = NewRecordID()
	}
	data, err := json.Marshal(rec)
	if err != nil {
		return rec, errs.New(errs.ErrStateWrite, "state.put_login", err)
	}
	var ident []byte
	if rec.Result == v1.ResultSuccess && rec.IP != "" {
		ident, err = json.Marshal(v1.DeviceIdentity{IP: rec.IP, MAC: rec.MAC})
		if err != nil {
			return rec, errs.New(errs.ErrStateWrite, "state.put_login", err)
		}
	}
	err = db.bolt.Update(func(tx *bbolt.Tx) error {
		if err := tx.Bucket(bucketLogins).Put([]byte(rec.ID), data); err != nil {
			return err
		}
		if ident != nil {
			return tx.Bucket(bucketMeta).Put([]byte(keyLastIdentity), ident)
		}
		return nil
	})
	if err != nil {
		return rec, errs.New(errs.ErrStateWrite, "state.put_login", err).WithResource(rec.ID)
	}
	return rec, nil
}

// ListLoginRecords returns up to limit records, newest first. A limit of
// zero or less returns all of them.
func (db *DB) ListLoginRecords(limit int) ([]v1.LoginRecord, error) {
	var recs []v1.LoginRecord
	err := db.bolt.View(func(tx *bbolt.Tx) error {
		c := tx.Bucket(bucketLogins).Cursor()
		for k, v := c.Last(); k != nil; k, v = c.Prev() {
			if limit > 0 && len(recs) >= limit {
				break
			}
			var r v1.LoginRecord
			if err := json.Unmarshal(v, &r); err != nil {
				return fmt.Errorf("unmarshal login %q: %w", k, err)
			}
			recs = append(recs, r)
		}
		return nil
	})
	if err != nil {
		return nil, errs.New(errs.ErrStateRead, "state.list_logins", err)
	}
	return recs, nil
}

// LastLogin returns the newest record. Returns nil, nil if there is none.
func (db *DB) LastLogin() (*v1.LoginRecord, error) {
	recs, err := db.ListLoginRecords(1)
	if err != nil || len(recs) == 0 {
		return nil, err
	}
	return &recs[0], nil
}

// PruneLoginRecords keeps the newest keep records and deletes the rest.
// It returns how many were deleted.
func (db *DB) PruneLoginRecords(keep int) (int, error) {
	deleted := 0
	err := db.bolt.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucketLogins)
		var stale [][]byte
		seen := 0
		c := b.Cursor()
		for k, _ := c.Last(); k != nil; k, _ = c.Prev() {
			seen++
			if seen > keep {
				stale = append(stale, append([]byte(nil), k...))
			}
		}
		for _, k := range stale {
			if err := b.Delete(k); err != nil {
				return err
			}
			deleted++
		}
		return nil
	})
	if err != nil {
		return 0, errs.New(errs.ErrStateWrite, "state.prune_logins", err)
	}
	return deleted, nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Connection state
// ─────────────────────────────────────────────────────────────────────────────

// LastIdentity returns the identity of the last successful login.
// Returns nil, nil if not found.
func (db *DB) LastIdentity() (*v1.DeviceIdentity, error) {
	var id v1.DeviceIdentity
	found, err := db.getJSON(bucketMeta, keyLastIdentity, &id)
	if err != nil {
		return nil, errs.New(errs.ErrStateRead, "state.last_identity", err)
	}
	if !found {
		return nil, nil
	}
	return &id, nil
}

// PutConnectionEvent stores the latest keepalive observation.
func (db *DB) PutConnectionEvent(ev v1.ConnectionEvent) error {
	if err := db.putJSON(bucketMeta, keyLastConnection, ev); err != nil {
		return errs.New(errs.ErrStateWrite, "state.put_connection", err)
	}
	return nil
}

// LastConnectionEvent returns the latest keepalive observation.
// Returns nil, nil if not found.
func (db *DB) LastConnectionEvent() (*v1.ConnectionEvent, error) {
	var ev v1.ConnectionEvent
	found, err := db.getJSON(bucketMeta, keyLastConnection, &ev)
	if err != nil {
		return nil, errs.New(errs.ErrStateRead, "state.last_connection", err)
	}
	if !found {
		return nil, nil
	}
	return &ev, nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Generic helpers
// ─────────────────────────────────────────────────────────────────────────────

func (db *DB) putJSON(bucket []byte, key string, val any) error {
	data, err := json.Marshal(val)
	if err != nil {
		return fmt.Errorf("marshal: %w", err)
	}
	return db.bolt.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucket).Put([]byte(key), data)
	})
}

func (db *DB) getJSON(bucket []byte, key string, out any) (bool, error) {
	var found bool
	err := db.bolt.View(func(tx *bbolt.Tx) error {
		data := tx.Bucket(bucket).Get([]byte(key))
		if data == nil {
			return nil
		}
		found = true
		return json.Unmarshal(data, out)
	})
	return found, err
}

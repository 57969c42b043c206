package engine

import (
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync/atomic"
	"time"

	"github.com/guyvdb/recstore/fault"

	"go.etcd.io/bbolt"
	berrors "go.etcd.io/bbolt/errors"
)

const (
	modelBucketName    = "Model"
	entityBucketPrefix = "Entity."
)

// BoltEngine implements Engine using BoltDB.
var _ Engine = (*BoltEngine)(nil)
var _ Context = (*boltContext)(nil)

type BoltEngine struct {
	db       *bbolt.DB
	model    *Model
	path     string
	tempDir  string
	readOnly bool
	closed   atomic.Bool
}

type options struct {
	timeout  time.Duration
	inMemory bool
	readOnly bool
}

type Option func(*options)

// WithTimeout bounds how long Open waits for the file lock.
func WithTimeout(d time.Duration) Option {
	return func(o *options) { o.timeout = d }
}

// InMemory keeps the database in a private temporary directory that is
// removed on Close. Nothing outlives the engine.
func InMemory() Option {
	return func(o *options) { o.inMemory = true }
}

// ReadOnly opens the file with a shared lock. Writes fail with
// fault.ErrReadOnly.
func ReadOnly() Option {
	return func(o *options) { o.readOnly = true }
}

// Open creates or opens the BoltDB file at path. Entity descriptions in model
// are persisted, and descriptions persisted by earlier runs are merged into
// model so that their rows stay reachable.
func Open(path string, model *Model, opts ...Option) (*BoltEngine, error) {
	o := &options{timeout: time.Second}
	for _, opt := range opts {
		opt(o)
	}
	if model == nil {
		model = NewModel()
	}

	e := &BoltEngine{model: model, readOnly: o.readOnly}

	if o.inMemory {
		dir, err := os.MkdirTemp("", "recstore-*")
		if err != nil {
			return nil, fault.Storage(fmt.Errorf("failed to create in-memory directory: %w", err))
		}
		name := filepath.Base(path)
		if path == "" || name == "." || name == string(filepath.Separator) {
			name = "memory.db"
		}
		e.tempDir = dir
		path = filepath.Join(dir, name)
	} else if path == "" {
		return nil, fault.Storage(errors.New("empty database path"))
	}
	e.path = path

	slog.Debug("engine.Open() - open bolt engine", "path", path, "inMemory", o.inMemory, "readOnly", o.readOnly)

	db, err := bbolt.Open(path, 0600, &bbolt.Options{Timeout: o.timeout, ReadOnly: o.readOnly})
	if err != nil {
		e.removeTempDir()
		return nil, fault.Storage(fmt.Errorf("failed to open bolt db: %w", err))
	}
	e.db = db

	if err := e.loadModel(o.readOnly); err != nil {
		db.Close()
		e.removeTempDir()
		return nil, err
	}

	return e, nil
}

// loadModel merges persisted descriptions into the model, then persists the
// declared ones.
func (e *BoltEngine) loadModel(readOnly bool) error {
	merge := func(b *bbolt.Bucket) error {
		return b.ForEach(func(k, v []byte) error {
			var desc EntityDescription
			if err := json.Unmarshal(v, &desc); err != nil {
				return fault.Storage(fmt.Errorf("failed to read entity description '%s': %w", string(k), err))
			}
			if e.model.registerIfAbsent(&desc) {
				slog.Debug("BoltEngine.loadModel() - restored entity", "entity", desc.Name)
			}
			return nil
		})
	}

	if readOnly {
		return e.db.View(func(tx *bbolt.Tx) error {
			b := tx.Bucket([]byte(modelBucketName))
			if b == nil {
				return nil
			}
			return merge(b)
		})
	}

	err := e.db.Update(func(tx *bbolt.Tx) error {
		b, err := tx.CreateBucketIfNotExists([]byte(modelBucketName))
		if err != nil {
			return fmt.Errorf("%w: %w", fault.ErrBucketCreateFailed, err)
		}
		if err := merge(b); err != nil {
			return err
		}
		for _, name := range e.model.Entities() {
			desc, _ := e.model.Entity(name)
			data, err := json.Marshal(desc)
			if err != nil {
				return err
			}
			if err := b.Put([]byte(name), data); err != nil {
				return err
			}
		}
		return nil
	})
	return fault.Storage(err)
}

func (e *BoltEngine) Path() string {
	return e.path
}

func (e *BoltEngine) Update(fn func(Context) error) error {
	return e.run(true, fn)
}

func (e *BoltEngine) View(fn func(Context) error) error {
	return e.run(false, fn)
}

// run passes errors returned by fn through untouched; anything else came
// from bbolt itself (begin or commit) and is reported as a storage error.
func (e *BoltEngine) run(writable bool, fn func(Context) error) error {
	if e.closed.Load() {
		return fault.ErrEngineClosed
	}
	if writable && e.readOnly {
		return fault.ErrReadOnly
	}

	var fnErr error
	work := func(tx *bbolt.Tx) error {
		fnErr = fn(&boltContext{tx: tx, engine: e})
		return fnErr
	}

	var err error
	if writable {
		err = e.db.Update(work)
	} else {
		err = e.db.View(work)
	}

	if fnErr != nil {
		return fnErr
	}
	return fault.Storage(err)
}

func (e *BoltEngine) Entities() []string {
	return e.model.Entities()
}

func (e *BoltEngine) Entity(name string) (*EntityDescription, error) {
	desc, found := e.model.Entity(name)
	if !found {
		return nil, fmt.Errorf("%w: '%s'", fault.ErrEntityNotFound, name)
	}
	return desc, nil
}

func (e *BoltEngine) BulkDelete(entity string) error {
	if _, err := e.Entity(entity); err != nil {
		return err
	}

	return e.Update(func(c Context) error {
		tx := c.(*boltContext).tx
		err := tx.DeleteBucket(entityBucketName(entity))
		if err != nil && !errors.Is(err, berrors.ErrBucketNotFound) {
			return fault.Storage(fmt.Errorf("failed to delete entity '%s': %w", entity, err))
		}
		slog.Debug("BoltEngine.BulkDelete() - deleted entity rows", "entity", entity)
		return nil
	})
}

// Close closes the BoltDB database.
func (e *BoltEngine) Close() error {
	if !e.closed.CompareAndSwap(false, true) {
		return nil
	}
	slog.Debug("BoltEngine.Close() - close db", "path", e.path)

	err := e.db.Close()
	e.removeTempDir()
	return fault.Storage(err)
}

func (e *BoltEngine) removeTempDir() {
	if e.tempDir == "" {
		return
	}
	if err := os.RemoveAll(e.tempDir); err != nil {
		slog.Warn("BoltEngine.removeTempDir() - failed to remove in-memory directory", "dir", e.tempDir, "err", err)
	}
}

type boltContext struct {
	tx     *bbolt.Tx
	engine *BoltEngine
}

func (c *boltContext) Entity(name string) (*EntityDescription, error) {
	return c.engine.Entity(name)
}

func (c *boltContext) Create(entity string) (Handle, error) {
	if _, err := c.Entity(entity); err != nil {
		return Handle{}, err
	}

	bucket, err := c.tx.CreateBucketIfNotExists(entityBucketName(entity))
	if err != nil {
		return Handle{}, fmt.Errorf("%w: %w", fault.ErrBucketCreateFailed, err)
	}

	seq, err := bucket.NextSequence()
	if err != nil {
		return Handle{}, fault.Storage(err)
	}

	if _, err := bucket.CreateBucket(rowKey(seq)); err != nil {
		return Handle{}, fmt.Errorf("%w: %w", fault.ErrBucketCreateFailed, err)
	}

	return NewHandle(entity, seq), nil
}

func (c *boltContext) Fetch(entity string) ([]Handle, error) {
	if _, err := c.Entity(entity); err != nil {
		return nil, err
	}

	handles := make([]Handle, 0)

	bucket := c.tx.Bucket(entityBucketName(entity))
	if bucket == nil {
		// Nothing has ever been created for this entity.
		return handles, nil
	}

	cursor := bucket.Cursor()
	for k, v := cursor.First(); k != nil; k, v = cursor.Next() {
		if v != nil || len(k) != 8 {
			slog.Warn("BoltContext.Fetch() - skipping unexpected key", "entity", entity, "key", fmt.Sprintf("%x", k))
			continue
		}
		handles = append(handles, NewHandle(entity, binary.BigEndian.Uint64(k)))
	}
	return handles, nil
}

func (c *boltContext) Delete(h Handle) error {
	if h.IsZero() {
		return fmt.Errorf("%w: zero handle", fault.ErrInvalidHandleFormat)
	}
	bucket := c.tx.Bucket(entityBucketName(h.Entity))
	if bucket == nil {
		return nil
	}

	err := bucket.DeleteBucket(rowKey(h.Key))
	if err != nil && !errors.Is(err, berrors.ErrBucketNotFound) {
		return fault.Storage(fmt.Errorf("failed to delete %s: %w", h, err))
	}
	return nil
}

func (c *boltContext) SetValue(h Handle, attribute string, value any) error {
	attr, err := c.attribute(h.Entity, attribute)
	if err != nil {
		return err
	}

	row, err := c.row(h)
	if err != nil {
		return err
	}

	if value == nil {
		return fault.Storage(row.Delete([]byte(attribute)))
	}

	data, err := encodeValue(attr.Type, value)
	if err != nil {
		return err
	}
	if err := row.Put([]byte(attribute), data); err != nil {
		return fault.Storage(fmt.Errorf("failed to set %s on %s: %w", attribute, h, err))
	}
	return nil
}

func (c *boltContext) Value(h Handle, attribute string) (any, bool, error) {
	attr, err := c.attribute(h.Entity, attribute)
	if err != nil {
		return nil, false, err
	}

	row, err := c.row(h)
	if err != nil {
		return nil, false, err
	}

	data := row.Get([]byte(attribute))
	if data == nil {
		return nil, false, nil
	}

	v, err := decodeValue(attr.Type, data)
	if err != nil {
		return nil, false, fmt.Errorf("%s.%s: %w", h, attribute, err)
	}
	return v, true, nil
}

func (c *boltContext) attribute(entity, attribute string) (*AttributeDescription, error) {
	desc, err := c.Entity(entity)
	if err != nil {
		return nil, err
	}
	attr, found := desc.Attribute(attribute)
	if !found {
		return nil, fmt.Errorf("%w: '%s' on entity '%s'", fault.ErrAttributeNotFound, attribute, entity)
	}
	return attr, nil
}

func (c *boltContext) row(h Handle) (*bbolt.Bucket, error) {
	bucket := c.tx.Bucket(entityBucketName(h.Entity))
	if bucket == nil {
		return nil, fault.Storage(fmt.Errorf("row %s not found", h))
	}
	row := bucket.Bucket(rowKey(h.Key))
	if row == nil {
		return nil, fault.Storage(fmt.Errorf("row %s not found", h))
	}
	return row, nil
}

func entityBucketName(entity string) []byte {
	return []byte(entityBucketPrefix + entity)
}

func rowKey(seq uint64) []byte {
	return binary.BigEndian.AppendUint64(make([]byte, 0, 8), seq)
}
